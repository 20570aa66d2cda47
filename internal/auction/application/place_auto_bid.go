package application

import (
	"context"

	"github.com/cristianortiz/bidEngine/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PlaceAutoBidDTO registers or raises a proxy ceiling.
type PlaceAutoBidDTO struct {
	AuctionID uuid.UUID
	BidderID  uuid.UUID
	Ceiling   decimal.Decimal
}

// PlaceAutoBidUseCase places a proxy bid: the engine bids on the bidder's behalf up to Ceiling.
type PlaceAutoBidUseCase struct {
	committer *Committer
	policy    domain.BlindPolicy
}

func NewPlaceAutoBidUseCase(committer *Committer, policy domain.BlindPolicy) *PlaceAutoBidUseCase {
	return &PlaceAutoBidUseCase{committer: committer, policy: policy}
}

func (uc *PlaceAutoBidUseCase) Execute(ctx context.Context, cmd PlaceAutoBidDTO) (*BidResultDTO, error) {
	// the ceiling itself is private, it is not logged
	log.Info("Executing PlaceAutoBidUseCase",
		zap.String("auctionID", cmd.AuctionID.String()),
		zap.String("bidderID", cmd.BidderID.String()),
	)
	if !cmd.Ceiling.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	return placeBid(ctx, uc.committer, uc.policy, cmd.AuctionID, cmd.BidderID, domain.Proxy{Ceiling: cmd.Ceiling})
}
