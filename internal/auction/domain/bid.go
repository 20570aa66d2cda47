package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BidKind tags an accepted history entry.
type BidKind string

const (
	KindManual BidKind = "manual"
	KindProxy  BidKind = "proxy"
	KindBuyNow BidKind = "buy_now"
)

// BidEntry is one accepted bid event. Entries are append-only; Seq is the apply order.
type BidEntry struct {
	Seq       int
	BidderID  uuid.UUID
	Amount    decimal.Decimal
	Kind      BidKind
	Timestamp time.Time
}

// BidRequest is either a Manual amount or a Proxy ceiling.
type BidRequest interface {
	Value() decimal.Decimal
	Kind() BidKind
	isBidRequest()
}

// Manual is a literal bid: when accepted the price becomes exactly Amount.
type Manual struct {
	Amount decimal.Decimal
}

func (m Manual) Value() decimal.Decimal { return m.Amount }
func (Manual) Kind() BidKind            { return KindManual }
func (Manual) isBidRequest()            {}

// Proxy authorizes the engine to bid on the bidder's behalf up to Ceiling.
type Proxy struct {
	Ceiling decimal.Decimal
}

func (p Proxy) Value() decimal.Decimal { return p.Ceiling }
func (Proxy) Kind() BidKind            { return KindProxy }
func (Proxy) isBidRequest()            {}
