package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cristianortiz/bidEngine/internal/auction/domain"
	"github.com/cristianortiz/bidEngine/internal/auction/infra/repository/memory"
	"github.com/cristianortiz/bidEngine/internal/shared/clock"
	"github.com/google/uuid"
	"github.com/peterldowns/testy/assert"
	"github.com/shopspring/decimal"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, events ...domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) snapshot() []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Event(nil), p.events...)
}

// flakyRepository fails the next failures commits before delegating to the memory store.
type flakyRepository struct {
	*memory.AuctionRepository
	failures atomic.Int32
	commits  atomic.Int32
	err      error
}

func (r *flakyRepository) Commit(ctx context.Context, ch *domain.Change) error {
	r.commits.Add(1)
	if r.failures.Add(-1) >= 0 {
		return r.err
	}
	return r.AuctionRepository.Commit(ctx, ch)
}

type harness struct {
	repo      *flakyRepository
	clock     *clock.Fake
	lanes     *Coordinator
	committer *Committer
	publisher *recordingPublisher
	service   AuctionService
	closer    *Closer
}

func newHarness(t *testing.T, policy domain.BlindPolicy) *harness {
	t.Helper()
	h := &harness{
		repo:      &flakyRepository{AuctionRepository: memory.NewAuctionRepository(), err: errors.New("connection reset by peer")},
		clock:     clock.NewFake(t0.Add(-time.Hour)),
		lanes:     NewCoordinator(64),
		publisher: &recordingPublisher{},
	}
	h.committer = NewCommitter(h.repo, h.lanes, h.clock, h.publisher, 3)
	h.committer.backoff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	h.service = NewAuctionService(
		NewCreateAuctionUseCase(h.repo, h.clock),
		NewPlaceBidUseCase(h.committer, policy),
		NewPlaceAutoBidUseCase(h.committer, policy),
		NewBuyNowUseCase(h.committer, policy),
		NewForceEndUseCase(h.committer),
		NewGetAuctionViewUseCase(h.repo, h.clock, policy),
	)
	h.closer = NewCloser(h.repo, h.committer, h.clock, CloserConfig{Interval: time.Millisecond, BatchSize: 10, Concurrency: 4})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = h.lanes.Shutdown(ctx)
	})
	return h
}

// createAuction opens at t0 for one hour, starting at 100 with increment 10.
func (h *harness) createAuction(t *testing.T, modify ...func(*CreateAuctionDTO)) *domain.Auction {
	t.Helper()
	cmd := CreateAuctionDTO{
		Title:        "vintage camera",
		StartTime:    t0,
		FinishedTime: t0.Add(time.Hour),
		StartPrice:   dec("100"),
		MinIncrement: dec("10"),
	}
	for _, m := range modify {
		m(&cmd)
	}
	a, err := h.service.CreateAuction(context.Background(), cmd)
	assert.NoError(t, err)
	return a
}

func (h *harness) stored(t *testing.T, id uuid.UUID) *domain.Auction {
	t.Helper()
	a, err := h.repo.GetByID(context.Background(), id)
	assert.NoError(t, err)
	return a
}

// queued reports how many jobs wait on the auction's lane.
func (c *Coordinator) queued(auctionID uuid.UUID) int {
	s := c.shardFor(auctionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lanes[auctionID]
	if !ok {
		return 0
	}
	return len(l.jobs)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}
