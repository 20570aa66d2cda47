package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

func TestNewAuction_Validation(t *testing.T) {
	hideLate := t0.Add(2 * time.Hour)
	tests := []struct {
		name   string
		modify func(p *AuctionParams)
	}{
		{name: "empty window", modify: func(p *AuctionParams) { p.FinishedTime = p.StartTime }},
		{name: "hide after finish", modify: func(p *AuctionParams) { p.BidHideTime = &hideLate }},
		{name: "negative start", modify: func(p *AuctionParams) { p.StartPrice = dec("-1") }},
		{name: "buy now below start", modify: func(p *AuctionParams) { p.BuyNowPrice = decimal.NewNullDecimal(dec("50")) }},
		{name: "negative increment", modify: func(p *AuctionParams) { p.MinIncrement = dec("-5") }},
		{name: "increment rounds to zero", modify: func(p *AuctionParams) { p.MinIncrement = dec("0.00001") }},
		{name: "buy now rounds to start", modify: func(p *AuctionParams) { p.BuyNowPrice = decimal.NewNullDecimal(dec("100.00001")) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := AuctionParams{
				Title:        "lot",
				StartTime:    t0,
				FinishedTime: t0.Add(time.Hour),
				StartPrice:   dec("100"),
				MinIncrement: dec("10"),
			}
			tt.modify(&p)
			a, err := NewAuction(p, t0)
			check.Nil(t, a)
			check.True(t, errors.Is(err, ErrInvalidAuction))
		})
	}
}

func TestNewAuction_SmallestIncrementKeepsTiesWithLeader(t *testing.T) {
	a, err := NewAuction(AuctionParams{
		Title:        "lot",
		StartTime:    t0,
		FinishedTime: t0.Add(time.Hour),
		StartPrice:   dec("100"),
		MinIncrement: dec("0.00005"),
	}, t0)
	assert.NoError(t, err)
	check.Equal(t, "0.0001", a.MinIncrement.String())
	check.True(t, a.MinIncrement.IsPositive())

	bidderA, bidderB := uuid.New(), uuid.New()
	a, _ = mustBid(t, a, bidderA, Manual{Amount: dec("100.0001")}, t0.Add(time.Minute))
	_, _, err = a.PlaceBid(bidderB, Manual{Amount: dec("100.0001")}, t0.Add(2*time.Minute))
	check.True(t, errors.Is(err, ErrBidTooLow))
	check.Equal(t, bidderA, a.TopBid.BidderID)
}

func TestNewAuction_Defaults(t *testing.T) {
	a, err := NewAuction(AuctionParams{
		Title:        "lot",
		StartTime:    t0,
		FinishedTime: t0.Add(time.Hour),
		StartPrice:   dec("12.123456"),
	}, t0)
	assert.NoError(t, err)

	check.NotEqual(t, uuid.Nil, a.ID)
	check.Equal(t, "12.1235", a.StartPrice.String())
	check.Equal(t, "12.1235", a.CurrentPrice.String())
	check.Equal(t, "0.5", a.MinIncrement.String())
	check.Nil(t, a.TopBid)
	check.Equal(t, int64(0), a.Version)
}

func TestDefaultIncrement(t *testing.T) {
	tests := []struct {
		price string
		want  string
	}{
		{"0", "0.05"},
		{"0.99", "0.05"},
		{"1", "0.25"},
		{"24.99", "0.5"},
		{"99", "1"},
		{"100", "2.5"},
		{"499", "5"},
		{"999", "10"},
		{"2499", "25"},
		{"4999", "50"},
		{"5000", "100"},
		{"1000000", "100"},
	}
	for _, tt := range tests {
		check.Equal(t, tt.want, DefaultIncrement(dec(tt.price)).String())
	}
}

func TestClone_IsDeep(t *testing.T) {
	a := newTestAuction(t)
	a, _ = mustBid(t, a, uuid.New(), Proxy{Ceiling: dec("200")}, t0.Add(time.Minute))

	c := a.Clone()
	c.History[0].Amount = dec("1")
	c.TopBid.Amount = dec("1")
	for _, agent := range c.Agents {
		agent.Ceiling = dec("1")
	}

	check.Equal(t, "110", a.History[0].Amount.String())
	check.Equal(t, "110", a.TopBid.Amount.String())
	for _, agent := range a.Agents {
		check.Equal(t, "200", agent.Ceiling.String())
	}
}
