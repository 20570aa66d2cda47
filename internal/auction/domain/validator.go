package domain

import (
	"time"

	"github.com/google/uuid"
)

// ValidateBid checks a proposed bid against a snapshot. It is pure: no logging, no mutation.
// Checks run in order and stop at the first failure.
func ValidateBid(a *Auction, bidderID uuid.UUID, req BidRequest, now time.Time) *RejectionError {
	if a.State(now) != StateHappening {
		return reject(ReasonAuctionNotOpen)
	}

	switch r := req.(type) {
	case Manual:
		if a.IsTop(bidderID) {
			return reject(ReasonAlreadyTopBidder)
		}
		if r.Amount.LessThan(a.NextBidFloor()) {
			return reject(ReasonBidTooLow)
		}
	case Proxy:
		// The top bidder may only raise an existing commitment; that is a ceiling update.
		if r.Ceiling.LessThan(a.NextBidFloor()) {
			return reject(ReasonCeilingTooLow)
		}
		if agent := a.ActiveAgent(bidderID); agent != nil && !r.Ceiling.GreaterThan(agent.Ceiling) {
			return reject(ReasonCeilingTooLow)
		}
	}
	return nil
}

// ValidateBuyNow checks an explicit purchase against a snapshot.
func ValidateBuyNow(a *Auction, bidderID uuid.UUID, now time.Time) *RejectionError {
	switch a.State(now) {
	case StateEnded:
		return reject(ReasonAlreadyEnded)
	case StateInitial:
		return reject(ReasonAuctionNotOpen)
	}
	if !a.BuyNowPrice.Valid {
		return reject(ReasonBuyNowUnavailable)
	}
	if a.IsTop(bidderID) {
		return reject(ReasonAlreadyTopBidder)
	}
	// Bids may legitimately reach the buy-now price; buying would then lower it.
	if a.CurrentPrice.GreaterThanOrEqual(a.BuyNowPrice.Decimal) {
		return reject(ReasonBuyNowUnavailable)
	}
	return nil
}
