package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaskMode selects how much of the ranking a non-leading bidder sees during the blind phase.
type MaskMode string

const (
	// MaskRanking replaces every row below the top with a placeholder.
	MaskRanking MaskMode = "ranking"
	// MaskAmounts keeps the masked bidder rows but drops their amounts.
	MaskAmounts MaskMode = "amounts"
)

// BlindPolicy configures the blind-phase read path.
type BlindPolicy struct {
	Mode        MaskMode
	RevealPrice bool
}

func DefaultBlindPolicy() BlindPolicy {
	return BlindPolicy{Mode: MaskRanking}
}

// RankingEntry is one row of the exposed ranking (top_ownerships).
type RankingEntry struct {
	Position     int              `json:"position"`
	BidderMasked string           `json:"bidderMasked,omitempty"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	IsYou        bool             `json:"isYou"`
	Masked       bool             `json:"masked"`
}

// AuctionView is the read model returned to a single requester.
type AuctionView struct {
	AuctionID        uuid.UUID           `json:"auctionId"`
	Title            string              `json:"title"`
	StartTime        time.Time           `json:"startTime"`
	FinishedTime     time.Time           `json:"finishedTime"`
	BidHideTime      *time.Time          `json:"bidHideTime,omitempty"`
	LifecycleState   LifecycleState      `json:"lifecycleState"`
	InBlindPhase     bool                `json:"inBlindPhase"`
	Price            *decimal.Decimal    `json:"price,omitempty"`
	MinNextBid       *decimal.Decimal    `json:"minNextBid,omitempty"`
	StartPrice       decimal.Decimal     `json:"startPrice"`
	BuyNowPrice      decimal.NullDecimal `json:"priceBuyNow"`
	MinIncrement     decimal.Decimal     `json:"minIncrement"`
	TopBidderMasked  string              `json:"topBidderMasked,omitempty"`
	IsLeading        bool                `json:"isLeading"`
	HasActiveAutoBid bool                `json:"hasActiveAutoBid"`
	AutoBidCeiling   *decimal.Decimal    `json:"autoBidCeiling,omitempty"`
	Ranking          []RankingEntry      `json:"topOwnerships"`
	RankingMasked    bool                `json:"rankingMasked"`
	BidCount         int                 `json:"bidCount"`
	CloseReason      CloseReason         `json:"closeReason,omitempty"`
}

// View builds the requester's view at now. While the blind phase is on, a requester
// other than the top bidder never sees another bidder's amount unless the policy
// reveals the price.
func (a *Auction) View(requester uuid.UUID, now time.Time, policy BlindPolicy) AuctionView {
	blind := a.InBlindPhase(now)
	masked := blind && !a.IsTop(requester)

	v := AuctionView{
		AuctionID:      a.ID,
		Title:          a.Title,
		StartTime:      a.StartTime,
		FinishedTime:   a.FinishedTime,
		BidHideTime:    a.BidHideTime,
		LifecycleState: a.State(now),
		InBlindPhase:   blind,
		StartPrice:     a.StartPrice,
		BuyNowPrice:    a.BuyNowPrice,
		MinIncrement:   a.MinIncrement,
		IsLeading:      a.IsTop(requester),
		BidCount:       len(a.History),
		CloseReason:    a.CloseReason,
		RankingMasked:  masked,
	}
	if agent := a.ActiveAgent(requester); agent != nil {
		v.HasActiveAutoBid = true
		ceiling := agent.Ceiling
		v.AutoBidCeiling = &ceiling
	}
	if !masked || policy.RevealPrice {
		price := a.CurrentPrice
		floor := a.NextBidFloor()
		v.Price = &price
		v.MinNextBid = &floor
	}
	if a.TopBid != nil && (!masked || policy.Mode == MaskAmounts) {
		v.TopBidderMasked = MaskBidderID(a.TopBid.BidderID)
	}

	v.Ranking = a.ranking(requester, masked, policy)
	return v
}

type standing struct {
	bidder uuid.UUID
	amount decimal.Decimal
	seq    int // first entry that reached amount
}

// standings returns each bidder's highest accepted amount; the current top bidder comes
// first, the rest by amount descending and then by who reached it first.
func (a *Auction) standings() []standing {
	best := make(map[uuid.UUID]*standing)
	order := make([]uuid.UUID, 0)
	for _, e := range a.History {
		s, ok := best[e.BidderID]
		if !ok {
			best[e.BidderID] = &standing{bidder: e.BidderID, amount: e.Amount, seq: e.Seq}
			order = append(order, e.BidderID)
			continue
		}
		if e.Amount.GreaterThan(s.amount) {
			s.amount = e.Amount
			s.seq = e.Seq
		}
	}

	out := make([]standing, 0, len(order))
	for _, id := range order {
		out = append(out, *best[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if a.IsTop(out[i].bidder) != a.IsTop(out[j].bidder) {
			return a.IsTop(out[i].bidder)
		}
		if !out[i].amount.Equal(out[j].amount) {
			return out[i].amount.GreaterThan(out[j].amount)
		}
		return out[i].seq < out[j].seq
	})
	return out
}

func (a *Auction) ranking(requester uuid.UUID, masked bool, policy BlindPolicy) []RankingEntry {
	standings := a.standings()
	rows := make([]RankingEntry, 0, len(standings))
	for i, s := range standings {
		row := RankingEntry{
			Position:     i + 1,
			BidderMasked: MaskBidderID(s.bidder),
			IsYou:        s.bidder == requester,
		}
		amount := s.amount
		row.Amount = &amount

		if masked && !row.IsYou {
			isTop := a.IsTop(s.bidder)
			switch {
			case isTop && policy.RevealPrice:
				// the top amount is the price, which the policy reveals
			case isTop && policy.Mode == MaskAmounts:
				row.Amount = nil
			case policy.Mode == MaskAmounts:
				row.Amount = nil
				row.Masked = true
			default:
				row = RankingEntry{Position: i + 1, Masked: true}
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// MaskBidderID keeps the first and last four characters of the id.
func MaskBidderID(id uuid.UUID) string {
	s := id.String()
	return s[:4] + "****" + s[len(s)-4:]
}

// RejectionDetail builds the structured detail attached to a rejection for bidderID,
// applying the same blind-phase masking as View.
func (a *Auction) RejectionDetail(bidderID uuid.UUID, now time.Time, policy BlindPolicy) RejectionDetail {
	v := a.View(bidderID, now, policy)
	return RejectionDetail{
		CurrentPrice:    v.Price,
		MinNextBid:      v.MinNextBid,
		TopBidderMasked: v.TopBidderMasked,
		Leading:         v.IsLeading,
		State:           v.LifecycleState,
	}
}
