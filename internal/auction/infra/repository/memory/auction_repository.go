package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cristianortiz/bidEngine/internal/auction/domain"
	"github.com/google/uuid"
)

// AuctionRepository keeps auctions in process memory. Every read returns a deep copy and every
// commit is a compare-and-swap on the version, matching the Postgres store.
type AuctionRepository struct {
	mu       sync.RWMutex
	auctions map[uuid.UUID]*domain.Auction
}

var _ domain.AuctionRepository = (*AuctionRepository)(nil)

func NewAuctionRepository() *AuctionRepository {
	return &AuctionRepository{auctions: make(map[uuid.UUID]*domain.Auction)}
}

func (r *AuctionRepository) Create(ctx context.Context, a *domain.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.auctions[a.ID]; ok {
		return fmt.Errorf("memory repository: auction %s already exists", a.ID)
	}
	r.auctions[a.ID] = a.Clone()
	return nil
}

func (r *AuctionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.auctions[id]
	if !ok {
		return nil, domain.ErrAuctionNotFound
	}
	return a.Clone(), nil
}

// Commit stores ch.Auction if the stored version still equals ch.ExpectedVersion and bumps
// the version on both copies.
func (r *AuctionRepository) Commit(ctx context.Context, ch *domain.Change) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.auctions[ch.Auction.ID]
	if !ok {
		return domain.ErrAuctionNotFound
	}
	if stored.Version != ch.ExpectedVersion {
		return domain.ErrVersionConflict
	}
	if len(stored.History)+len(ch.NewEntries) != len(ch.Auction.History) {
		return fmt.Errorf("memory repository: history of auction %s is not append-only", ch.Auction.ID)
	}

	next := ch.Auction.Clone()
	next.Version = ch.ExpectedVersion + 1
	r.auctions[next.ID] = next
	ch.Auction.Version = next.Version
	return nil
}

// ListDue returns open auctions whose window elapsed at now, oldest deadline first.
func (r *AuctionRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	r.mu.RLock()
	due := make([]*domain.Auction, 0)
	for _, a := range r.auctions {
		if a.CloseReason == "" && !now.Before(a.FinishedTime) {
			due = append(due, a)
		}
	}
	r.mu.RUnlock()

	sort.Slice(due, func(i, j int) bool { return due[i].FinishedTime.Before(due[j].FinishedTime) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	ids := make([]uuid.UUID, 0, len(due))
	for _, a := range due {
		ids = append(ids, a.ID)
	}
	return ids, nil
}
