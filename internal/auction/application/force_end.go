package application

import (
	"context"
	"errors"
	"time"

	"github.com/cristianortiz/bidEngine/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CloseOutcome string

const (
	OutcomeEnded        CloseOutcome = "ended"
	OutcomeAlreadyEnded CloseOutcome = "already_ended"
)

type ForceEndDTO struct {
	AuctionID uuid.UUID
	Actor     string
}

// CloseResultDTO reports the recorded close. For AlreadyEnded it describes the earlier close,
// which is never changed.
type CloseResultDTO struct {
	AuctionID   uuid.UUID          `json:"auctionId"`
	Outcome     CloseOutcome       `json:"outcome"`
	CloseReason domain.CloseReason `json:"closeReason"`
	FinalPrice  decimal.Decimal    `json:"finalPrice"`
	WinnerID    *uuid.UUID         `json:"winnerId,omitempty"`
	ClosedAt    *time.Time         `json:"closedAt,omitempty"`
}

func newCloseResult(a *domain.Auction, outcome CloseOutcome) *CloseResultDTO {
	return &CloseResultDTO{
		AuctionID:   a.ID,
		Outcome:     outcome,
		CloseReason: a.CloseReason,
		FinalPrice:  a.CurrentPrice,
		WinnerID:    a.Winner(),
		ClosedAt:    a.ClosedAt,
	}
}

// ForceEndUseCase ends an auction on an operator's request.
type ForceEndUseCase struct {
	committer *Committer
}

func NewForceEndUseCase(committer *Committer) *ForceEndUseCase {
	return &ForceEndUseCase{committer: committer}
}

func (uc *ForceEndUseCase) Execute(ctx context.Context, cmd ForceEndDTO) (*CloseResultDTO, error) {
	log.Info("Executing ForceEndUseCase",
		zap.String("auctionID", cmd.AuctionID.String()),
		zap.String("actor", cmd.Actor),
	)
	return closeAuction(ctx, uc.committer, cmd.AuctionID, domain.CloseForcedEnd, cmd.Actor)
}

// closeAuction is shared by ForceEnd and the Closer. An auction that is already ended is
// reported, not treated as a failure.
func closeAuction(ctx context.Context, committer *Committer, auctionID uuid.UUID,
	reason domain.CloseReason, actor string) (*CloseResultDTO, error) {

	res, err := committer.apply(ctx, auctionID, "", func(a *domain.Auction, now time.Time) (*domain.Change, error) {
		return a.Close(reason, actor, now)
	})
	if errors.Is(err, domain.ErrAlreadyEnded) && res.before != nil {
		return newCloseResult(res.before, OutcomeAlreadyEnded), nil
	}
	if err != nil {
		return nil, wrapNotFound(err, auctionID)
	}
	return newCloseResult(res.change.Auction, OutcomeEnded), nil
}
