package domain

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Close transitions the auction to Ended. A ForcedEnd requested after the window already
// elapsed is recorded as TimeElapsed, since that close happened first. Closing an ended
// auction returns ErrAlreadyEnded and changes nothing.
func (a *Auction) Close(reason CloseReason, actor string, now time.Time) (*Change, error) {
	if a.CloseReason != "" {
		return nil, ErrAlreadyEnded
	}
	elapsed := !now.Before(a.FinishedTime)
	switch {
	case reason == CloseTimeElapsed && !elapsed:
		return nil, ErrNotDue
	case reason == CloseForcedEnd && elapsed:
		reason = CloseTimeElapsed
	}

	cs := a.begin(now)
	cs.close(reason, actor)
	log.Info("Auction closed",
		zap.String("auctionID", a.ID.String()),
		zap.String("closeReason", string(reason)),
		zap.String("actor", actor),
		zap.String("finalPrice", cs.next.CurrentPrice.String()),
	)
	return cs.finish(a.Version), nil
}

// BuyNow sells the item at BuyNowPrice to bidderID and ends the auction in the same change.
func (a *Auction) BuyNow(bidderID uuid.UUID, now time.Time) (*Change, error) {
	if rej := ValidateBuyNow(a, bidderID, now); rej != nil {
		return nil, rej
	}

	cs := a.begin(now)
	price := a.BuyNowPrice.Decimal
	cs.record(bidderID, price, KindBuyNow)
	cs.next.TopBid = &TopBid{BidderID: bidderID, Amount: price}
	cs.close(CloseBuyNow, bidderID.String())
	return cs.finish(a.Version), nil
}

func (cs *changeSet) close(reason CloseReason, actor string) {
	a := cs.next
	closedAt := cs.now
	a.CloseReason = reason
	a.ClosedAt = &closedAt
	a.ClosedBy = actor
	for _, agent := range a.Agents {
		if agent.Active() {
			agent.Status = AgentClosed
			cs.touch(agent)
		}
	}
}

// Winner returns the top bidder of an ended auction, if any.
func (a *Auction) Winner() *uuid.UUID {
	if a.CloseReason == "" || a.TopBid == nil {
		return nil
	}
	id := a.TopBid.BidderID
	return &id
}
