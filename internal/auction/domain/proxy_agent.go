package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AgentStatus string

const (
	AgentActive AgentStatus = "active"
	AgentOutbid AgentStatus = "outbid"
	AgentClosed AgentStatus = "closed"
)

// ProxyAgent bids automatically for one bidder up to Ceiling. Retired agents keep their
// ceiling for audit and are never deleted.
type ProxyAgent struct {
	BidderID  uuid.UUID
	Ceiling   decimal.Decimal
	Status    AgentStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *ProxyAgent) Active() bool {
	return p.Status == AgentActive
}
