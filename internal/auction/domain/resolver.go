package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Outcome summarizes an accepted bid for the caller.
type Outcome struct {
	NewPrice    decimal.Decimal
	TopBidderID uuid.UUID
	Leading     bool // the submitting bidder holds the top bid after resolution
}

// PlaceBid validates req and resolves it against the auction using proxy (second-price)
// rules. The receiver is not modified; the returned Change holds the next state.
func (a *Auction) PlaceBid(bidderID uuid.UUID, req BidRequest, now time.Time) (*Change, *Outcome, error) {
	if rej := ValidateBid(a, bidderID, req, now); rej != nil {
		return nil, nil, rej
	}

	cs := a.begin(now)
	switch r := req.(type) {
	case Manual:
		cs.resolveManual(bidderID, roundMoney(r.Amount))
	case Proxy:
		cs.resolveProxy(bidderID, roundMoney(r.Ceiling))
	}
	cs.retireOutbid()

	next := cs.next
	outcome := &Outcome{
		NewPrice:    next.CurrentPrice,
		TopBidderID: next.TopBid.BidderID,
		Leading:     next.TopBid.BidderID == bidderID,
	}
	log.Debug("Bid resolved",
		zap.String("auctionID", a.ID.String()),
		zap.String("bidderID", bidderID.String()),
		zap.String("kind", string(req.Kind())),
		zap.String("newPrice", outcome.NewPrice.String()),
		zap.Bool("leading", outcome.Leading),
		zap.Int("entries", len(cs.entries)),
	)
	return cs.finish(a.Version), outcome, nil
}

// resolveManual applies a literal amount. An active defending agent whose ceiling covers
// the amount answers at once; on a tie the earlier commitment keeps priority.
func (cs *changeSet) resolveManual(bidderID uuid.UUID, amount decimal.Decimal) {
	a := cs.next
	defender := a.TopBid
	var defAgent *ProxyAgent
	if defender != nil {
		defAgent = a.ActiveAgent(defender.BidderID)
	}

	cs.record(bidderID, amount, KindManual)
	a.TopBid = &TopBid{BidderID: bidderID, Amount: amount}

	if defAgent != nil && defAgent.Ceiling.GreaterThanOrEqual(amount) {
		counter := decimal.Min(defAgent.Ceiling, amount.Add(a.MinIncrement))
		cs.record(defender.BidderID, counter, KindProxy)
		a.TopBid = &TopBid{BidderID: defender.BidderID, Amount: counter, IsProxy: true, Ceiling: defAgent.Ceiling}
	}
}

// resolveProxy applies a ceiling. The price only moves far enough to beat the competing
// ceiling by one increment, so a leader's maximum stays private unless a bid forces it.
func (cs *changeSet) resolveProxy(bidderID uuid.UUID, ceiling decimal.Decimal) {
	a := cs.next

	if a.IsTop(bidderID) {
		cs.setAgent(bidderID, ceiling)
		a.TopBid.IsProxy = true
		a.TopBid.Ceiling = ceiling
		return
	}

	cs.setAgent(bidderID, ceiling)
	if a.TopBid == nil {
		cs.lead(bidderID, decimal.Min(ceiling, a.NextBidFloor()), ceiling)
		return
	}

	defender := a.TopBid.BidderID
	defCeiling := a.CurrentPrice
	defAgent := a.ActiveAgent(defender)
	if defAgent != nil {
		defCeiling = defAgent.Ceiling
	}

	if ceiling.GreaterThan(defCeiling) {
		if defAgent != nil && defCeiling.GreaterThan(a.CurrentPrice) {
			// the defending agent is pushed to its limit before it loses
			cs.record(defender, defCeiling, KindProxy)
			a.TopBid.Amount = defCeiling
		}
		cs.lead(bidderID, decimal.Min(ceiling, defCeiling.Add(a.MinIncrement)), ceiling)
		return
	}

	// The defender holds: the challenger's ceiling is spent in full and answered.
	cs.record(bidderID, ceiling, KindProxy)
	counter := decimal.Min(defCeiling, ceiling.Add(a.MinIncrement))
	cs.record(defender, counter, KindProxy)
	a.TopBid.Amount = counter
}

func (cs *changeSet) lead(bidderID uuid.UUID, price, ceiling decimal.Decimal) {
	cs.record(bidderID, price, KindProxy)
	cs.next.TopBid = &TopBid{BidderID: bidderID, Amount: price, IsProxy: true, Ceiling: ceiling}
}

// setAgent creates the bidder's agent or raises its ceiling, reactivating a retired one.
func (cs *changeSet) setAgent(bidderID uuid.UUID, ceiling decimal.Decimal) {
	agent, ok := cs.next.Agents[bidderID]
	if !ok {
		agent = &ProxyAgent{BidderID: bidderID, CreatedAt: cs.now}
		cs.next.Agents[bidderID] = agent
	}
	agent.Ceiling = ceiling
	agent.Status = AgentActive
	cs.touch(agent)
}

// retireOutbid retires every non-leading agent that can no longer place a valid bid.
func (cs *changeSet) retireOutbid() {
	a := cs.next
	floor := a.NextBidFloor()
	for id, agent := range a.Agents {
		if !agent.Active() || a.IsTop(id) {
			continue
		}
		if agent.Ceiling.LessThan(floor) {
			agent.Status = AgentOutbid
			cs.touch(agent)
		}
	}
}
