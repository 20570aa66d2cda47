package application

import (
	"context"
	"errors"
	"time"

	"github.com/cristianortiz/bidEngine/internal/auction/domain"
	"github.com/cristianortiz/bidEngine/internal/shared/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const closerActor = "closer"

type CloserConfig struct {
	Interval    time.Duration
	BatchSize   int
	Concurrency int
}

// Closer ends auctions whose window elapsed. It goes through the same lanes as bids, so a
// bid racing the close either lands first or is rejected as not open.
type Closer struct {
	repo      domain.AuctionRepository
	committer *Committer
	clock     clock.Clock
	cfg       CloserConfig
}

func NewCloser(repo domain.AuctionRepository, committer *Committer, clk clock.Clock, cfg CloserConfig) *Closer {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 100
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Closer{repo: repo, committer: committer, clock: clk, cfg: cfg}
}

// Run sweeps every Interval until ctx is done. A failed sweep is logged and retried on the
// next tick.
func (c *Closer) Run(ctx context.Context) error {
	log.Info("Closer started",
		zap.Duration("interval", c.cfg.Interval),
		zap.Int("batchSize", c.cfg.BatchSize),
		zap.Int("concurrency", c.cfg.Concurrency),
	)
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Closer stopped")
			return nil
		case <-ticker.C:
			if _, err := c.Sweep(ctx); err != nil && ctx.Err() == nil {
				log.Error("Closer: sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep closes one batch of due auctions in parallel and returns how many it ended.
// Failures on single auctions are logged and left for the next sweep.
func (c *Closer) Sweep(ctx context.Context) (int, error) {
	ids, err := c.repo.ListDue(ctx, c.clock.Now(), c.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	results := make([]bool, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)
	for i, id := range ids {
		g.Go(func() error {
			res, err := closeAuction(gctx, c.committer, id, domain.CloseTimeElapsed, closerActor)
			switch {
			case err == nil:
				results[i] = res.Outcome == OutcomeEnded
			case errors.Is(err, domain.ErrNotDue), errors.Is(err, domain.ErrBusy):
				log.Debug("Closer: auction skipped",
					zap.String("auctionID", id.String()),
					zap.Error(err),
				)
			default:
				log.Error("Closer: failed to close auction",
					zap.String("auctionID", id.String()),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	closed := 0
	for _, ok := range results {
		if ok {
			closed++
		}
	}
	if closed > 0 {
		log.Info("Closer: sweep finished", zap.Int("due", len(ids)), zap.Int("closed", closed))
	}
	return closed, nil
}
