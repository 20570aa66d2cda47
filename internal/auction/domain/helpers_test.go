package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/peterldowns/testy/assert"
	"github.com/shopspring/decimal"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type auctionOpt func(*AuctionParams)

func withBuyNow(price string) auctionOpt {
	return func(p *AuctionParams) { p.BuyNowPrice = decimal.NewNullDecimal(dec(price)) }
}

func withHideBefore(d time.Duration) auctionOpt {
	return func(p *AuctionParams) {
		h := p.FinishedTime.Add(-d)
		p.BidHideTime = &h
	}
}

// newTestAuction opens at t0, closes one hour later, starts at 100 with increment 10.
func newTestAuction(t *testing.T, opts ...auctionOpt) *Auction {
	t.Helper()
	p := AuctionParams{
		Title:        "test lot",
		StartTime:    t0,
		FinishedTime: t0.Add(time.Hour),
		StartPrice:   dec("100"),
		MinIncrement: dec("10"),
	}
	for _, opt := range opts {
		opt(&p)
	}
	a, err := NewAuction(p, t0.Add(-time.Minute))
	assert.NoError(t, err)
	return a
}

// mustBid applies a bid that is expected to be accepted and returns the next state.
func mustBid(t *testing.T, a *Auction, bidder uuid.UUID, req BidRequest, now time.Time) (*Auction, *Outcome) {
	t.Helper()
	ch, out, err := a.PlaceBid(bidder, req, now)
	assert.NoError(t, err)
	ch.Auction.Version = ch.ExpectedVersion + 1
	return ch.Auction, out
}

func historyAmounts(a *Auction) []string {
	out := make([]string, 0, len(a.History))
	for _, e := range a.History {
		out = append(out, e.Amount.String())
	}
	return out
}
