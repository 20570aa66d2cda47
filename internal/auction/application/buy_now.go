package application

import (
	"context"
	"time"

	"github.com/cristianortiz/bidEngine/internal/auction/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BuyNowDTO struct {
	AuctionID uuid.UUID
	BidderID  uuid.UUID
}

// BuyNowUseCase sells the item at its buy-now price and ends the auction. It takes the
// same lane as bids so a concurrent second purchase sees the ended auction.
type BuyNowUseCase struct {
	committer *Committer
	policy    domain.BlindPolicy
}

func NewBuyNowUseCase(committer *Committer, policy domain.BlindPolicy) *BuyNowUseCase {
	return &BuyNowUseCase{committer: committer, policy: policy}
}

func (uc *BuyNowUseCase) Execute(ctx context.Context, cmd BuyNowDTO) (*BidResultDTO, error) {
	log.Info("Executing BuyNowUseCase",
		zap.String("auctionID", cmd.AuctionID.String()),
		zap.String("bidderID", cmd.BidderID.String()),
	)
	res, err := uc.committer.apply(ctx, cmd.AuctionID, domain.KindBuyNow, func(a *domain.Auction, now time.Time) (*domain.Change, error) {
		return a.BuyNow(cmd.BidderID, now)
	})
	if err != nil {
		return nil, wrapNotFound(withDetail(err, res, cmd.BidderID, uc.policy), cmd.AuctionID)
	}

	log.Info("Auction purchased",
		zap.String("auctionID", cmd.AuctionID.String()),
		zap.String("bidderID", cmd.BidderID.String()),
		zap.String("finalPrice", res.change.Auction.CurrentPrice.String()),
	)
	return newBidResult(res.change, domain.KindBuyNow, cmd.BidderID, res.now, uc.policy), nil
}
