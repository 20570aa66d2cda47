// Package events adapts domain events to the transports that carry them out of the engine.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cristianortiz/bidEngine/internal/auction/domain"
	"github.com/cristianortiz/bidEngine/internal/shared/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var log = logger.GetLogger()

// Envelope is the wire shape shared by every transport.
type Envelope struct {
	Type      domain.EventType `json:"type"`
	AuctionID uuid.UUID        `json:"auctionId"`
	Payload   any              `json:"payload"`
}

// publicBidAccepted is the UI-facing BidAccepted. During the blind phase it carries neither
// the price nor the leader, only that a bid landed.
type publicBidAccepted struct {
	AuctionID       uuid.UUID        `json:"auctionId"`
	NewPrice        *decimal.Decimal `json:"newPrice,omitempty"`
	TopBidderMasked string           `json:"topBidderMasked,omitempty"`
	Seq             int              `json:"seq"`
	InBlindPhase    bool             `json:"inBlindPhase"`
	Timestamp       time.Time        `json:"timestamp"`
}

// EncodeFull keeps every field; it is meant for internal consumers such as archival.
func EncodeFull(ev domain.Event) ([]byte, error) {
	return json.Marshal(Envelope{Type: ev.Type(), AuctionID: ev.Auction(), Payload: ev})
}

// EncodePublic applies the blind-phase masking for collaborators that reach bidders.
func EncodePublic(ev domain.Event) ([]byte, error) {
	switch e := ev.(type) {
	case domain.BidAccepted:
		public := publicBidAccepted{
			AuctionID:    e.AuctionID,
			Seq:          e.Seq,
			InBlindPhase: e.InBlindPhase,
			Timestamp:    e.Timestamp,
		}
		if !e.InBlindPhase {
			price := e.NewPrice
			public.NewPrice = &price
			public.TopBidderMasked = e.TopBidderMasked
		}
		return json.Marshal(Envelope{Type: e.Type(), AuctionID: e.AuctionID, Payload: public})
	case domain.AuctionEnded:
		return EncodeFull(e)
	default:
		return nil, fmt.Errorf("unknown event type %T", ev)
	}
}

// messageID identifies an event for broker-side deduplication.
func messageID(ev domain.Event) string {
	switch e := ev.(type) {
	case domain.BidAccepted:
		return fmt.Sprintf("%s:%s:%d:%d", e.AuctionID, e.Type(), e.Seq, e.Timestamp.UnixNano())
	default:
		return fmt.Sprintf("%s:%s", ev.Auction(), ev.Type())
	}
}
