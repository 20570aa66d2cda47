package application

import (
	"context"
	"time"

	"github.com/cristianortiz/bidEngine/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PlaceBidDTO is the input of PlaceBidUseCase: a literal amount from an authenticated bidder.
type PlaceBidDTO struct {
	AuctionID uuid.UUID
	BidderID  uuid.UUID
	Amount    decimal.Decimal
}

// BidResultDTO is returned for every accepted bid, auto-bid or purchase. Price and
// MinNextBid are nil when the blind phase hides them from this bidder.
type BidResultDTO struct {
	AuctionID        uuid.UUID             `json:"auctionId"`
	Kind             domain.BidKind        `json:"kind"`
	Leading          bool                  `json:"leading"`
	Price            *decimal.Decimal      `json:"price,omitempty"`
	MinNextBid       *decimal.Decimal      `json:"minNextBid,omitempty"`
	TopBidderMasked  string                `json:"topBidderMasked,omitempty"`
	HasActiveAutoBid bool                  `json:"hasActiveAutoBid"`
	AutoBidCeiling   *decimal.Decimal      `json:"autoBidCeiling,omitempty"`
	LifecycleState   domain.LifecycleState `json:"lifecycleState"`
	CloseReason      domain.CloseReason    `json:"closeReason,omitempty"`
}

func newBidResult(ch *domain.Change, kind domain.BidKind, bidderID uuid.UUID, now time.Time, policy domain.BlindPolicy) *BidResultDTO {
	v := ch.Auction.View(bidderID, now, policy)
	return &BidResultDTO{
		AuctionID:        v.AuctionID,
		Kind:             kind,
		Leading:          v.IsLeading,
		Price:            v.Price,
		MinNextBid:       v.MinNextBid,
		TopBidderMasked:  v.TopBidderMasked,
		HasActiveAutoBid: v.HasActiveAutoBid,
		AutoBidCeiling:   v.AutoBidCeiling,
		LifecycleState:   v.LifecycleState,
		CloseReason:      v.CloseReason,
	}
}

// PlaceBidUseCase places a manual bid through the auction's lane.
type PlaceBidUseCase struct {
	committer *Committer
	policy    domain.BlindPolicy
}

func NewPlaceBidUseCase(committer *Committer, policy domain.BlindPolicy) *PlaceBidUseCase {
	return &PlaceBidUseCase{committer: committer, policy: policy}
}

func (uc *PlaceBidUseCase) Execute(ctx context.Context, cmd PlaceBidDTO) (*BidResultDTO, error) {
	log.Info("Executing PlaceBidUseCase",
		zap.String("auctionID", cmd.AuctionID.String()),
		zap.String("bidderID", cmd.BidderID.String()),
		zap.String("amount", cmd.Amount.String()),
	)
	if !cmd.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	return placeBid(ctx, uc.committer, uc.policy, cmd.AuctionID, cmd.BidderID, domain.Manual{Amount: cmd.Amount})
}

func placeBid(ctx context.Context, committer *Committer, policy domain.BlindPolicy,
	auctionID, bidderID uuid.UUID, req domain.BidRequest) (*BidResultDTO, error) {

	res, err := committer.apply(ctx, auctionID, req.Kind(), func(a *domain.Auction, now time.Time) (*domain.Change, error) {
		ch, _, err := a.PlaceBid(bidderID, req, now)
		return ch, err
	})
	if err != nil {
		return nil, wrapNotFound(withDetail(err, res, bidderID, policy), auctionID)
	}

	result := newBidResult(res.change, req.Kind(), bidderID, res.now, policy)
	log.Info("Bid accepted",
		zap.String("auctionID", auctionID.String()),
		zap.String("bidderID", bidderID.String()),
		zap.String("kind", string(req.Kind())),
		zap.Bool("leading", result.Leading),
		zap.Int64("version", res.change.Auction.Version),
	)
	return result, nil
}
