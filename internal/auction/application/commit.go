package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cristianortiz/bidEngine/internal/auction/domain"
	"github.com/cristianortiz/bidEngine/internal/shared/clock"
	"github.com/cristianortiz/bidEngine/internal/shared/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

const publishTimeout = 5 * time.Second

// Mutation computes the next state of a loaded auction at now. It must not touch anything
// but its argument.
type Mutation func(a *domain.Auction, now time.Time) (*domain.Change, error)

// applied is what a lane job hands back to the use case that submitted it.
type applied struct {
	before *domain.Auction
	change *domain.Change
	now    time.Time
}

// Committer runs mutations on the auction's lane: load, mutate, commit with bounded retries,
// publish. It is the only writer of existing auctions.
type Committer struct {
	repo       domain.AuctionRepository
	lanes      *Coordinator
	clock      clock.Clock
	publisher  domain.EventPublisher
	maxRetries int
	backoff    func() backoff.BackOff
}

func NewCommitter(repo domain.AuctionRepository,
	lanes *Coordinator,
	clk clock.Clock,
	publisher domain.EventPublisher,
	maxRetries int) *Committer {

	return &Committer{
		repo:       repo,
		lanes:      lanes,
		clock:      clk,
		publisher:  publisher,
		maxRetries: maxRetries,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 20 * time.Millisecond
			b.MaxInterval = 500 * time.Millisecond
			b.MaxElapsedTime = 0
			return b
		},
	}
}

// apply runs m for auctionID under the lane. On a rejection the returned applied still
// carries the snapshot and instant the rejection was computed against.
func (c *Committer) apply(ctx context.Context, auctionID uuid.UUID, kind domain.BidKind, m Mutation) (*applied, error) {
	res := &applied{}
	err := c.lanes.Submit(ctx, auctionID, func(ctx context.Context) error {
		a, err := c.repo.GetByID(ctx, auctionID)
		if err != nil {
			if !errors.Is(err, domain.ErrAuctionNotFound) {
				log.Error("Committer: failed to load auction",
					zap.String("auctionID", auctionID.String()),
					zap.Error(err),
				)
			}
			return err
		}
		res.before = a
		res.now = c.clock.Now()

		ch, err := m(a, res.now)
		if err != nil {
			return err
		}
		if err := c.commit(ctx, ch); err != nil {
			return err
		}
		res.change = ch
		c.publish(ctx, domain.EventsFor(ch, kind, res.now))
		return nil
	})
	return res, err
}

// commit writes ch, retrying transient store failures with the same change. A version
// conflict means another writer bypassed the lane and is never retried.
func (c *Committer) commit(ctx context.Context, ch *domain.Change) error {
	attempts := 0
	op := func() error {
		attempts++
		err := c.repo.Commit(ctx, ch)
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrVersionConflict) {
			return backoff.Permanent(err)
		}
		log.Warn("Committer: commit attempt failed",
			zap.String("auctionID", ch.Auction.ID.String()),
			zap.Int("attempt", attempts),
			zap.Error(err),
		)
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.backoff(), uint64(c.maxRetries)), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		log.Error("Committer: giving up on commit",
			zap.String("auctionID", ch.Auction.ID.String()),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return &domain.PersistenceError{Attempts: attempts, Err: err}
	}
	return nil
}

// publish delivers events after the commit. Delivery failures never undo a committed change.
func (c *Committer) publish(ctx context.Context, events []domain.Event) {
	if c.publisher == nil || len(events) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := c.publisher.Publish(ctx, events...); err != nil {
		log.Error("Committer: failed to publish events",
			zap.String("auctionID", events[0].Auction().String()),
			zap.Int("events", len(events)),
			zap.Error(err),
		)
	}
}

// withDetail attaches the caller-specific rejection detail computed from the snapshot the
// rejection was decided on.
func withDetail(err error, res *applied, bidderID uuid.UUID, policy domain.BlindPolicy) error {
	var rej *domain.RejectionError
	if res == nil || res.before == nil || !errors.As(err, &rej) {
		return err
	}
	rej.Detail = res.before.RejectionDetail(bidderID, res.now, policy)
	log.Warn("Bid rejected",
		zap.String("auctionID", res.before.ID.String()),
		zap.String("bidderID", bidderID.String()),
		zap.String("reason", string(rej.Reason)),
	)
	return rej
}

func wrapNotFound(err error, auctionID uuid.UUID) error {
	if errors.Is(err, domain.ErrAuctionNotFound) {
		return fmt.Errorf("auction %s: %w", auctionID, err)
	}
	return err
}
