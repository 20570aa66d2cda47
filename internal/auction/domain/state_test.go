package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestAuctionState(t *testing.T) {
	a := newTestAuction(t)

	check.Equal(t, StateInitial, a.State(t0.Add(-time.Nanosecond)))
	check.Equal(t, StateHappening, a.State(t0))
	check.Equal(t, StateHappening, a.State(t0.Add(time.Hour-time.Nanosecond)))
	check.Equal(t, StateEnded, a.State(t0.Add(time.Hour)))

	ch, err := a.Close(CloseForcedEnd, "admin", t0.Add(time.Minute))
	assert.NoError(t, err)
	check.Equal(t, StateEnded, ch.Auction.State(t0.Add(time.Minute)))
	// a recorded close wins over the clock
	check.Equal(t, StateEnded, ch.Auction.State(t0.Add(-time.Hour)))
}

func TestClose_TimeElapsed(t *testing.T) {
	a := newTestAuction(t)
	bidder := uuid.New()
	a, _ = mustBid(t, a, bidder, Proxy{Ceiling: dec("300")}, t0.Add(time.Minute))

	_, err := a.Close(CloseTimeElapsed, "closer", t0.Add(59*time.Minute))
	check.True(t, errors.Is(err, ErrNotDue))

	ch, err := a.Close(CloseTimeElapsed, "closer", t0.Add(time.Hour))
	assert.NoError(t, err)
	ended := ch.Auction
	check.Equal(t, CloseTimeElapsed, ended.CloseReason)
	check.Equal(t, "closer", ended.ClosedBy)
	check.Equal(t, AgentClosed, ended.Agents[bidder].Status)
	check.Equal(t, 1, len(ch.Agents))
	check.Equal(t, 0, len(ch.NewEntries))
	assert.NotNil(t, ended.Winner())
	check.Equal(t, bidder, *ended.Winner())

	// closing twice changes nothing
	again, err := ended.Close(CloseTimeElapsed, "closer", t0.Add(2*time.Hour))
	check.True(t, errors.Is(err, ErrAlreadyEnded))
	check.Nil(t, again)
}

func TestClose_ForcedEnd(t *testing.T) {
	t.Run("before start", func(t *testing.T) {
		a := newTestAuction(t)
		ch, err := a.Close(CloseForcedEnd, "admin", t0.Add(-time.Minute))
		assert.NoError(t, err)
		check.Equal(t, CloseForcedEnd, ch.Auction.CloseReason)
		check.Nil(t, ch.Auction.Winner())
	})

	t.Run("after the window elapsed", func(t *testing.T) {
		a := newTestAuction(t)
		ch, err := a.Close(CloseForcedEnd, "admin", t0.Add(2*time.Hour))
		assert.NoError(t, err)
		check.Equal(t, CloseTimeElapsed, ch.Auction.CloseReason)
	})
}

func TestBuyNow(t *testing.T) {
	a := newTestAuction(t, withBuyNow("500"))
	bidderA, bidderB := uuid.New(), uuid.New()
	now := t0.Add(time.Minute)
	a, _ = mustBid(t, a, bidderA, Proxy{Ceiling: dec("300")}, now)

	ch, err := a.BuyNow(bidderB, now)
	assert.NoError(t, err)
	sold := ch.Auction

	check.Equal(t, CloseBuyNow, sold.CloseReason)
	check.Equal(t, "500", sold.CurrentPrice.String())
	check.Equal(t, bidderB, sold.TopBid.BidderID)
	check.Equal(t, KindBuyNow, sold.History[len(sold.History)-1].Kind)
	check.Equal(t, AgentClosed, sold.Agents[bidderA].Status)
	check.Equal(t, StateEnded, sold.State(now))

	// the auction is now closed to everyone
	_, _, err = sold.PlaceBid(bidderA, Manual{Amount: dec("900")}, now)
	check.True(t, errors.Is(err, ErrAuctionNotOpen))
	_, err = sold.BuyNow(bidderA, now)
	check.True(t, errors.Is(err, ErrAlreadyEnded))
}

func TestValidateBuyNow(t *testing.T) {
	top := uuid.New()
	now := t0.Add(time.Minute)

	withTop := newTestAuction(t, withBuyNow("500"))
	withTop, _ = mustBid(t, withTop, top, Manual{Amount: dec("200")}, now)

	reached := newTestAuction(t, withBuyNow("500"))
	reached, _ = mustBid(t, reached, top, Manual{Amount: dec("500")}, now)

	tests := []struct {
		name   string
		a      *Auction
		bidder uuid.UUID
		now    time.Time
		want   error
	}{
		{name: "no buy now price", a: newTestAuction(t), bidder: uuid.New(), now: now, want: ErrBuyNowUnavailable},
		{name: "not started", a: newTestAuction(t, withBuyNow("500")), bidder: uuid.New(), now: t0.Add(-time.Minute), want: ErrAuctionNotOpen},
		{name: "window elapsed", a: newTestAuction(t, withBuyNow("500")), bidder: uuid.New(), now: t0.Add(time.Hour), want: ErrAlreadyEnded},
		{name: "top bidder", a: withTop, bidder: top, now: now, want: ErrAlreadyTopBidder},
		{name: "price reached", a: reached, bidder: uuid.New(), now: now, want: ErrBuyNowUnavailable},
		{name: "ok", a: withTop, bidder: uuid.New(), now: now, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rej := ValidateBuyNow(tt.a, tt.bidder, tt.now)
			if tt.want == nil {
				check.Nil(t, rej)
				return
			}
			assert.NotNil(t, rej)
			check.True(t, errors.Is(rej, tt.want))
		})
	}
}

func TestEventsFor(t *testing.T) {
	a := newTestAuction(t, withBuyNow("500"))
	now := t0.Add(time.Minute)

	ch, _, err := a.PlaceBid(uuid.New(), Proxy{Ceiling: dec("200")}, now)
	assert.NoError(t, err)
	events := EventsFor(ch, KindProxy, now)
	assert.Equal(t, 1, len(events))
	accepted, ok := events[0].(BidAccepted)
	assert.True(t, ok)
	check.Equal(t, "110", accepted.NewPrice.String())
	check.Equal(t, 1, accepted.Seq)

	buyer := uuid.New()
	ch, err = ch.Auction.BuyNow(buyer, now)
	assert.NoError(t, err)
	events = EventsFor(ch, KindBuyNow, now)
	assert.Equal(t, 2, len(events))
	check.Equal(t, EventBidAccepted, events[0].Type())
	ended, ok := events[1].(AuctionEnded)
	assert.True(t, ok)
	check.Equal(t, CloseBuyNow, ended.CloseReason)
	check.Equal(t, buyer, *ended.WinnerID)
}
