package application

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/cristianortiz/bidEngine/internal/auction/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const laneShards = 64

const (
	jobPending int32 = iota
	jobStarted
	jobCancelled
)

// job is one mutating operation waiting for its turn on an auction lane.
type job struct {
	ctx   context.Context
	run   func(ctx context.Context) error
	state atomic.Int32
	err   error
	done  chan struct{}
}

// lane serializes every mutation of one auction. It owns a bounded queue and a goroutine
// that lives while the queue is non-empty.
type lane struct {
	auctionID uuid.UUID
	jobs      chan *job
}

type laneShard struct {
	mu    sync.Mutex
	lanes map[uuid.UUID]*lane
}

// Coordinator is the per-auction serialization boundary: jobs for the same auction run one
// at a time in submission order, jobs for different auctions run in parallel.
type Coordinator struct {
	shards     [laneShards]*laneShard
	queueDepth int
	wg         sync.WaitGroup

	// admit guards closed; Submit holds it for reading until its lane goroutine is
	// counted in wg, so Shutdown never waits on a partially admitted job.
	admit  sync.RWMutex
	closed bool
}

func NewCoordinator(queueDepth int) *Coordinator {
	if queueDepth < 1 {
		queueDepth = 1
	}
	c := &Coordinator{queueDepth: queueDepth}
	for i := range c.shards {
		c.shards[i] = &laneShard{lanes: make(map[uuid.UUID]*lane)}
	}
	return c
}

func (c *Coordinator) shardFor(auctionID uuid.UUID) *laneShard {
	return c.shards[xxhash.Sum64(auctionID[:])%laneShards]
}

// Submit runs fn on the auction's lane and waits for it. A full lane fails fast with
// domain.ErrBusy. A caller that gives up before its turn gets ctx.Err() and fn never runs;
// once fn has started it runs to completion on a context that ignores cancellation.
func (c *Coordinator) Submit(ctx context.Context, auctionID uuid.UUID, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	j := &job{ctx: ctx, run: fn, done: make(chan struct{})}
	if err := c.enqueue(auctionID, j); err != nil {
		return err
	}

	select {
	case <-j.done:
		return j.err
	case <-ctx.Done():
		if j.state.CompareAndSwap(jobPending, jobCancelled) {
			return ctx.Err()
		}
		// already applying, the outcome is the caller's
		<-j.done
		return j.err
	}
}

// enqueue admits j onto the auction's lane, starting the lane goroutine when needed.
func (c *Coordinator) enqueue(auctionID uuid.UUID, j *job) error {
	c.admit.RLock()
	defer c.admit.RUnlock()
	if c.closed {
		return fmt.Errorf("coordinator is shut down: %w", domain.ErrBusy)
	}

	shard := c.shardFor(auctionID)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	l, ok := shard.lanes[auctionID]
	if !ok {
		l = &lane{auctionID: auctionID, jobs: make(chan *job, c.queueDepth)}
		shard.lanes[auctionID] = l
		c.wg.Add(1)
		go c.drain(shard, l)
	}
	select {
	case l.jobs <- j:
		return nil
	default:
		log.Warn("Coordinator: lane queue full",
			zap.String("auctionID", auctionID.String()),
			zap.Int("queueDepth", c.queueDepth),
		)
		return domain.ErrBusy
	}
}

// drain runs queued jobs until the lane is empty, then removes the lane. Enqueue and the
// emptiness check both hold the shard lock, so no job is stranded.
func (c *Coordinator) drain(shard *laneShard, l *lane) {
	defer c.wg.Done()
	for {
		shard.mu.Lock()
		select {
		case j := <-l.jobs:
			shard.mu.Unlock()
			c.execute(l, j)
		default:
			delete(shard.lanes, l.auctionID)
			shard.mu.Unlock()
			return
		}
	}
}

func (c *Coordinator) execute(l *lane, j *job) {
	if !j.state.CompareAndSwap(jobPending, jobStarted) {
		return
	}
	defer close(j.done)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Coordinator: recovered from panic in lane job",
				zap.String("auctionID", l.auctionID.String()),
				zap.Any("panic", r),
			)
			j.err = fmt.Errorf("lane job panicked: %v", r)
		}
	}()
	j.err = j.run(context.WithoutCancel(j.ctx))
}

// ActiveLanes reports how many auctions currently have queued or running work.
func (c *Coordinator) ActiveLanes() int {
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		n += len(s.lanes)
		s.mu.Unlock()
	}
	return n
}

// Shutdown stops accepting jobs and waits for queued ones to finish or ctx to expire.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.admit.Lock()
	c.closed = true
	c.admit.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
