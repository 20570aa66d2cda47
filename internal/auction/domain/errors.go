package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrAuctionNotFound   = errors.New("auction not found")
	ErrAuctionNotOpen    = errors.New("auction is not open for bids")
	ErrAlreadyTopBidder  = errors.New("bidder is already the top bidder")
	ErrBidTooLow         = errors.New("bid amount is too low")
	ErrCeilingTooLow     = errors.New("proxy ceiling is too low")
	ErrAlreadyEnded      = errors.New("auction already ended")
	ErrBuyNowUnavailable = errors.New("buy now is not available for this auction")
	ErrBusy              = errors.New("auction is busy, retry later")
	ErrPersistence       = errors.New("auction store write failed")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrInvalidAuction    = errors.New("invalid auction")
	ErrVersionConflict   = errors.New("auction version conflict")
	ErrNotDue            = errors.New("auction window has not elapsed")
)

// RejectReason is the machine readable code of a caller-input rejection.
type RejectReason string

const (
	ReasonAuctionNotOpen    RejectReason = "auction_not_open"
	ReasonAlreadyTopBidder  RejectReason = "already_top_bidder"
	ReasonBidTooLow         RejectReason = "bid_too_low"
	ReasonCeilingTooLow     RejectReason = "ceiling_too_low"
	ReasonAlreadyEnded      RejectReason = "already_ended"
	ReasonBuyNowUnavailable RejectReason = "buy_now_unavailable"
)

var reasonErrors = map[RejectReason]error{
	ReasonAuctionNotOpen:    ErrAuctionNotOpen,
	ReasonAlreadyTopBidder:  ErrAlreadyTopBidder,
	ReasonBidTooLow:         ErrBidTooLow,
	ReasonCeilingTooLow:     ErrCeilingTooLow,
	ReasonAlreadyEnded:      ErrAlreadyEnded,
	ReasonBuyNowUnavailable: ErrBuyNowUnavailable,
}

// RejectionDetail lets the caller decide whether to re-bid without another read.
// Amounts are nil when the blind phase withholds them from the caller.
type RejectionDetail struct {
	CurrentPrice    *decimal.Decimal `json:"currentPrice,omitempty"`
	MinNextBid      *decimal.Decimal `json:"minNextBid,omitempty"`
	TopBidderMasked string           `json:"topBidderMasked,omitempty"`
	Leading         bool             `json:"leading"`
	State           LifecycleState   `json:"state"`
}

// RejectionError is returned for every validator or resolver rejection. It never
// accompanies a state change.
type RejectionError struct {
	Reason RejectReason
	Detail RejectionDetail
}

func reject(reason RejectReason) *RejectionError {
	return &RejectionError{Reason: reason}
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("bid rejected: %s", e.Reason)
}

func (e *RejectionError) Unwrap() error {
	return reasonErrors[e.Reason]
}

// PersistenceError is surfaced after the bounded commit retries are exhausted. The stored
// auction is unchanged when it is returned.
type PersistenceError struct {
	Attempts int
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("auction store write failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
