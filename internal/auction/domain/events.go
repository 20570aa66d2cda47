package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventBidAccepted  EventType = "bid_accepted"
	EventAuctionEnded EventType = "auction_ended"
)

// Event is emitted after every committed mutation, in apply order per auction.
type Event interface {
	Type() EventType
	Auction() uuid.UUID
}

type BidAccepted struct {
	AuctionID       uuid.UUID       `json:"auctionId"`
	NewPrice        decimal.Decimal `json:"newPrice"`
	TopBidderMasked string          `json:"topBidderMasked"`
	Kind            BidKind         `json:"kind"`
	Seq             int             `json:"seq"`
	InBlindPhase    bool            `json:"inBlindPhase"`
	Timestamp       time.Time       `json:"timestamp"`
}

func (BidAccepted) Type() EventType      { return EventBidAccepted }
func (e BidAccepted) Auction() uuid.UUID { return e.AuctionID }

type AuctionEnded struct {
	AuctionID   uuid.UUID       `json:"auctionId"`
	CloseReason CloseReason     `json:"closeReason"`
	FinalPrice  decimal.Decimal `json:"finalPrice"`
	WinnerID    *uuid.UUID      `json:"winnerId,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

func (AuctionEnded) Type() EventType      { return EventAuctionEnded }
func (e AuctionEnded) Auction() uuid.UUID { return e.AuctionID }

// EventPublisher delivers events to collaborators. Publishing never affects the
// outcome of the mutation that produced the events.
type EventPublisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// EventsFor derives the events of a committed change.
func EventsFor(ch *Change, kind BidKind, now time.Time) []Event {
	a := ch.Auction
	var events []Event
	if len(ch.NewEntries) > 0 || kind == KindProxy {
		ev := BidAccepted{
			AuctionID:    a.ID,
			NewPrice:     a.CurrentPrice,
			Kind:         kind,
			Seq:          len(a.History),
			InBlindPhase: a.InBlindPhase(now),
			Timestamp:    now,
		}
		if a.TopBid != nil {
			ev.TopBidderMasked = MaskBidderID(a.TopBid.BidderID)
		}
		events = append(events, ev)
	}
	if a.CloseReason != "" {
		events = append(events, AuctionEnded{
			AuctionID:   a.ID,
			CloseReason: a.CloseReason,
			FinalPrice:  a.CurrentPrice,
			WinnerID:    a.Winner(),
			Timestamp:   now,
		})
	}
	return events
}
