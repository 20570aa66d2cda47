package websocket

import (
	"github.com/cristianortiz/bidEngine/internal/auction/application"
	"github.com/cristianortiz/bidEngine/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MessageType defines ws type message
type MessageType string

const (
	MessageTypeClientBid          MessageType = "client_bid"           // client msg to place a manual bid
	MessageTypeClientAutoBid      MessageType = "client_auto_bid"      // client msg to set a proxy ceiling
	MessageTypeClientBuyNow       MessageType = "client_buy_now"       // client msg to buy at the buy-now price
	MessageTypeServerBidResult    MessageType = "server_bid_result"    // server msg answering the sender's bid
	MessageTypeServerError        MessageType = "server_error"         // server msg indicating error
	MessageTypeServerInitialState MessageType = "server_initial_state" // server msg with the view at connect time
)

// BaseMessage is base struct for all the WS messages, includes a Type field for identify the message type
type BaseMessage struct {
	Type MessageType `json:"type"`
}

// ClientBidMessage carries a manual amount. The bidder is the one authenticated on the connection.
type ClientBidMessage struct {
	BaseMessage
	Payload struct {
		AuctionID uuid.UUID       `json:"auctionId"`
		Amount    decimal.Decimal `json:"amount"`
	} `json:"payload"`
}

type ClientAutoBidMessage struct {
	BaseMessage
	Payload struct {
		AuctionID uuid.UUID       `json:"auctionId"`
		Ceiling   decimal.Decimal `json:"ceiling"`
	} `json:"payload"`
}

type ClientBuyNowMessage struct {
	BaseMessage
	Payload struct {
		AuctionID uuid.UUID `json:"auctionId"`
	} `json:"payload"`
}

type ServerBidResultMessage struct {
	BaseMessage
	Payload *application.BidResultDTO `json:"payload"`
}

// ServerErrorMessage reports a failed request. Reason and Detail are set for bid rejections.
type ServerErrorMessage struct {
	BaseMessage
	Payload struct {
		Error  string                  `json:"error"`
		Reason domain.RejectReason     `json:"reason,omitempty"`
		Detail *domain.RejectionDetail `json:"detail,omitempty"`
	} `json:"payload"`
}

// ServerInitialStateMessage is sent once to a client right after it connects.
type ServerInitialStateMessage struct {
	BaseMessage
	Payload *domain.AuctionView `json:"payload"`
}
