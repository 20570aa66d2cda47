package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuctionRepository is the Auction Store. Commit must be atomic per auction: it applies the
// change only if the stored version equals Change.ExpectedVersion (ErrVersionConflict
// otherwise), appends the history entries and upserts the agents in one write.
type AuctionRepository interface {
	Create(ctx context.Context, a *Auction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Auction, error)
	Commit(ctx context.Context, ch *Change) error
	// ListDue returns auctions with no recorded close whose window ended at or before now.
	ListDue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}
