package domain

import (
	"fmt"
	"time"

	"github.com/cristianortiz/bidEngine/internal/shared/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var log = logger.GetLogger()

// monetaryPrecision is the number of decimal places kept for every amount.
const monetaryPrecision int32 = 4

// LifecycleState is derived from the server clock plus the recorded close.
type LifecycleState string

const (
	StateInitial   LifecycleState = "initial"
	StateHappening LifecycleState = "happening"
	StateEnded     LifecycleState = "ended"
)

// CloseReason is set exactly once, when the auction ends.
type CloseReason string

const (
	CloseTimeElapsed CloseReason = "time_elapsed"
	CloseBuyNow      CloseReason = "buy_now"
	CloseForcedEnd   CloseReason = "forced_end"
)

// TopBid is the currently winning commitment.
type TopBid struct {
	BidderID uuid.UUID
	Amount   decimal.Decimal
	IsProxy  bool
	Ceiling  decimal.Decimal // only meaningful when IsProxy
}

// Auction is the aggregate root. It is owned by the per-auction lane that loaded it and is
// never shared between goroutines; readers get their own copy from the repository.
type Auction struct {
	ID           uuid.UUID
	Title        string
	StartTime    time.Time
	FinishedTime time.Time
	BidHideTime  *time.Time
	StartPrice   decimal.Decimal
	BuyNowPrice  decimal.NullDecimal
	MinIncrement decimal.Decimal
	CurrentPrice decimal.Decimal
	TopBid       *TopBid
	History      []BidEntry
	Agents       map[uuid.UUID]*ProxyAgent
	CloseReason  CloseReason // empty while open
	ClosedAt     *time.Time
	ClosedBy     string
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AuctionParams is the input for NewAuction.
type AuctionParams struct {
	ID           uuid.UUID // generated when zero
	Title        string
	StartTime    time.Time
	FinishedTime time.Time
	BidHideTime  *time.Time
	StartPrice   decimal.Decimal
	BuyNowPrice  decimal.NullDecimal
	MinIncrement decimal.Decimal // zero selects DefaultIncrement(StartPrice)
}

// NewAuction validates the params and builds an auction with no bids.
func NewAuction(p AuctionParams, now time.Time) (*Auction, error) {
	if !p.StartTime.Before(p.FinishedTime) {
		return nil, fmt.Errorf("%w: start time must be before finished time", ErrInvalidAuction)
	}
	if p.BidHideTime != nil && p.BidHideTime.After(p.FinishedTime) {
		return nil, fmt.Errorf("%w: bid hide time must not be after finished time", ErrInvalidAuction)
	}
	startPrice := roundMoney(p.StartPrice)
	buyNow := p.BuyNowPrice
	if buyNow.Valid {
		buyNow.Decimal = roundMoney(buyNow.Decimal)
	}
	inc := roundMoney(p.MinIncrement)

	// validated after rounding, the stored values are the ones that must hold
	if startPrice.IsNegative() {
		return nil, fmt.Errorf("%w: start price cannot be negative", ErrInvalidAuction)
	}
	if buyNow.Valid && !buyNow.Decimal.GreaterThan(startPrice) {
		return nil, fmt.Errorf("%w: buy now price must be greater than start price", ErrInvalidAuction)
	}
	if p.MinIncrement.IsNegative() || (!p.MinIncrement.IsZero() && !inc.IsPositive()) {
		return nil, fmt.Errorf("%w: min increment must be positive", ErrInvalidAuction)
	}

	id := p.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	if inc.IsZero() {
		inc = roundMoney(DefaultIncrement(startPrice))
	}
	var hide *time.Time
	if p.BidHideTime != nil {
		h := p.BidHideTime.UTC()
		hide = &h
	}

	return &Auction{
		ID:           id,
		Title:        p.Title,
		StartTime:    p.StartTime.UTC(),
		FinishedTime: p.FinishedTime.UTC(),
		BidHideTime:  hide,
		StartPrice:   startPrice,
		BuyNowPrice:  buyNow,
		MinIncrement: inc,
		CurrentPrice: startPrice,
		History:      []BidEntry{},
		Agents:       make(map[uuid.UUID]*ProxyAgent),
		CreatedAt:    now.UTC(),
		UpdatedAt:    now.UTC(),
	}, nil
}

// incrementLadder maps a price bracket upper bound to its increment.
var incrementLadder = []struct {
	below     decimal.Decimal
	increment decimal.Decimal
}{
	{decimal.NewFromInt(1), decimal.RequireFromString("0.05")},
	{decimal.NewFromInt(5), decimal.RequireFromString("0.25")},
	{decimal.NewFromInt(25), decimal.RequireFromString("0.50")},
	{decimal.NewFromInt(100), decimal.NewFromInt(1)},
	{decimal.NewFromInt(250), decimal.RequireFromString("2.50")},
	{decimal.NewFromInt(500), decimal.NewFromInt(5)},
	{decimal.NewFromInt(1000), decimal.NewFromInt(10)},
	{decimal.NewFromInt(2500), decimal.NewFromInt(25)},
	{decimal.NewFromInt(5000), decimal.NewFromInt(50)},
}

// DefaultIncrement is the increment policy used when an auction is created without one.
func DefaultIncrement(startPrice decimal.Decimal) decimal.Decimal {
	for _, step := range incrementLadder {
		if startPrice.LessThan(step.below) {
			return step.increment
		}
	}
	return decimal.NewFromInt(100)
}

func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(monetaryPrecision)
}

// State derives the lifecycle state at now.
func (a *Auction) State(now time.Time) LifecycleState {
	switch {
	case a.CloseReason != "":
		return StateEnded
	case now.Before(a.StartTime):
		return StateInitial
	case !now.Before(a.FinishedTime):
		return StateEnded
	default:
		return StateHappening
	}
}

// InBlindPhase reports whether the read path must withhold ranking details.
func (a *Auction) InBlindPhase(now time.Time) bool {
	return a.BidHideTime != nil && !now.Before(*a.BidHideTime) && a.State(now) == StateHappening
}

// NextBidFloor is the smallest amount a manual bid (or a new ceiling) must reach.
func (a *Auction) NextBidFloor() decimal.Decimal {
	return a.CurrentPrice.Add(a.MinIncrement)
}

func (a *Auction) IsTop(bidderID uuid.UUID) bool {
	return a.TopBid != nil && a.TopBid.BidderID == bidderID
}

// ActiveAgent returns the bidder's active proxy agent or nil.
func (a *Auction) ActiveAgent(bidderID uuid.UUID) *ProxyAgent {
	agent, ok := a.Agents[bidderID]
	if !ok || !agent.Active() {
		return nil
	}
	return agent
}

// Clone returns a deep copy; history entries are values and agents are copied.
func (a *Auction) Clone() *Auction {
	c := *a
	if a.BidHideTime != nil {
		h := *a.BidHideTime
		c.BidHideTime = &h
	}
	if a.ClosedAt != nil {
		t := *a.ClosedAt
		c.ClosedAt = &t
	}
	if a.TopBid != nil {
		top := *a.TopBid
		c.TopBid = &top
	}
	c.History = make([]BidEntry, len(a.History))
	copy(c.History, a.History)
	c.Agents = make(map[uuid.UUID]*ProxyAgent, len(a.Agents))
	for id, agent := range a.Agents {
		cp := *agent
		c.Agents[id] = &cp
	}
	return &c
}

// Change is the unit a repository commits atomically: the auction row after the mutation,
// the history entries appended by it and the agents it created or modified.
type Change struct {
	Auction         *Auction
	ExpectedVersion int64
	NewEntries      []BidEntry
	Agents          []*ProxyAgent
}

// changeSet accumulates a Change while a mutation is applied to a clone.
type changeSet struct {
	next    *Auction
	now     time.Time
	entries []BidEntry
	touched map[uuid.UUID]bool
}

func (a *Auction) begin(now time.Time) *changeSet {
	return &changeSet{
		next:    a.Clone(),
		now:     now,
		touched: make(map[uuid.UUID]bool),
	}
}

// record appends a history entry and moves the price to amount.
func (cs *changeSet) record(bidderID uuid.UUID, amount decimal.Decimal, kind BidKind) {
	entry := BidEntry{
		Seq:       len(cs.next.History) + 1,
		BidderID:  bidderID,
		Amount:    amount,
		Kind:      kind,
		Timestamp: cs.now,
	}
	cs.next.History = append(cs.next.History, entry)
	cs.next.CurrentPrice = amount
	cs.entries = append(cs.entries, entry)
}

func (cs *changeSet) touch(agent *ProxyAgent) {
	agent.UpdatedAt = cs.now
	cs.touched[agent.BidderID] = true
}

func (cs *changeSet) finish(expectedVersion int64) *Change {
	cs.next.UpdatedAt = cs.now
	agents := make([]*ProxyAgent, 0, len(cs.touched))
	for id := range cs.touched {
		agents = append(agents, cs.next.Agents[id])
	}
	return &Change{
		Auction:         cs.next,
		ExpectedVersion: expectedVersion,
		NewEntries:      cs.entries,
		Agents:          agents,
	}
}
