package application

import (
	"context"

	"github.com/cristianortiz/bidEngine/internal/auction/domain"
	"github.com/cristianortiz/bidEngine/internal/shared/clock"
	"github.com/google/uuid"
)

// GetAuctionViewUseCase serves the read path. It reads a committed snapshot straight from
// the store without taking the lane, so it may trail an in-flight write.
type GetAuctionViewUseCase struct {
	repo   domain.AuctionRepository
	clock  clock.Clock
	policy domain.BlindPolicy
}

func NewGetAuctionViewUseCase(repo domain.AuctionRepository, clk clock.Clock, policy domain.BlindPolicy) *GetAuctionViewUseCase {
	return &GetAuctionViewUseCase{repo: repo, clock: clk, policy: policy}
}

// Execute builds the view for requesterID; uuid.Nil is an anonymous watcher.
func (uc *GetAuctionViewUseCase) Execute(ctx context.Context, auctionID, requesterID uuid.UUID) (*domain.AuctionView, error) {
	a, err := uc.repo.GetByID(ctx, auctionID)
	if err != nil {
		return nil, wrapNotFound(err, auctionID)
	}
	v := a.View(requesterID, uc.clock.Now(), uc.policy)
	return &v, nil
}
