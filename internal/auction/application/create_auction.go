package application

import (
	"context"
	"fmt"
	"time"

	"github.com/cristianortiz/bidEngine/internal/auction/domain"
	"github.com/cristianortiz/bidEngine/internal/shared/clock"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateAuctionDTO is the input of CreateAuctionUseCase. A zero MinIncrement selects the
// default increment ladder.
type CreateAuctionDTO struct {
	Title        string
	StartTime    time.Time
	FinishedTime time.Time
	BidHideTime  *time.Time
	StartPrice   decimal.Decimal
	BuyNowPrice  decimal.NullDecimal
	MinIncrement decimal.Decimal
}

type CreateAuctionUseCase struct {
	repo  domain.AuctionRepository
	clock clock.Clock
}

func NewCreateAuctionUseCase(repo domain.AuctionRepository, clk clock.Clock) *CreateAuctionUseCase {
	return &CreateAuctionUseCase{repo: repo, clock: clk}
}

func (uc *CreateAuctionUseCase) Execute(ctx context.Context, cmd CreateAuctionDTO) (*domain.Auction, error) {
	a, err := domain.NewAuction(domain.AuctionParams{
		Title:        cmd.Title,
		StartTime:    cmd.StartTime,
		FinishedTime: cmd.FinishedTime,
		BidHideTime:  cmd.BidHideTime,
		StartPrice:   cmd.StartPrice,
		BuyNowPrice:  cmd.BuyNowPrice,
		MinIncrement: cmd.MinIncrement,
	}, uc.clock.Now())
	if err != nil {
		log.Warn("CreateAuctionUseCase: invalid auction", zap.Error(err))
		return nil, err
	}

	if err := uc.repo.Create(ctx, a); err != nil {
		log.Error("CreateAuctionUseCase: failed to store auction",
			zap.String("auctionID", a.ID.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("create auction use case: %w", err)
	}

	log.Info("Auction created",
		zap.String("auctionID", a.ID.String()),
		zap.Time("startTime", a.StartTime),
		zap.Time("finishedTime", a.FinishedTime),
		zap.String("startPrice", a.StartPrice.String()),
		zap.String("minIncrement", a.MinIncrement.String()),
	)
	return a, nil
}
