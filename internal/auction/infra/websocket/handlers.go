package websocket

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/cristianortiz/bidEngine/internal/auction/application"
	"github.com/cristianortiz/bidEngine/internal/auction/domain"
	"github.com/cristianortiz/bidEngine/internal/shared/logger"
	"github.com/cristianortiz/bidEngine/internal/shared/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// AuctionWSHandler handles the ws inbound msgs wich are specific for auction module (remember is a bounded context)
type AuctionWSHandler struct {
	auctionService application.AuctionService // application layer dependency
	hub            *websocket.Hub             // shared hub dependency to send msgs
}

// NewAuctionWSHandler creates a new instance of AuctionWSHandler
func NewAuctionWSHandler(auctionService application.AuctionService, hub *websocket.Hub) *AuctionWSHandler {
	return &AuctionWSHandler{
		auctionService: auctionService,
		hub:            hub,
	}
}

// ListenForMessages starts a go routine that listen the Hub inbound channel for messages and proccess every one of them
func (h *AuctionWSHandler) ListenForMessages(ctx context.Context) {
	log.Info("AuctionWSHandler started listening for inbound messages from hub")
	for {
		select {
		case <-ctx.Done():
			log.Info("AuctionWSHandler stopped listening for inbound messages from hub")
			return
		case msg := <-h.hub.InboundMessages:
			// per-auction ordering is enforced by the coordinator, not here
			go h.ProcessMessage(ctx, msg.Client, msg.Data)
		}
	}
}

// SendInitialState pushes the client's own view of the auction.
func (h *AuctionWSHandler) SendInitialState(ctx context.Context, client *websocket.Client) {
	auctionID, err := uuid.Parse(client.AuctionID)
	if err != nil {
		h.sendErrorToClient(client, err)
		return
	}
	view, err := h.auctionService.GetAuctionView(ctx, auctionID, client.BidderID)
	if err != nil {
		h.sendErrorToClient(client, err)
		return
	}
	h.send(client, ServerInitialStateMessage{
		BaseMessage: BaseMessage{Type: MessageTypeServerInitialState},
		Payload:     view,
	})
}

// ProcessMessage dispatches one inbound frame by its type. The answer goes to the sender
// only; every other watcher learns about the change from the published events.
func (h *AuctionWSHandler) ProcessMessage(ctx context.Context, client *websocket.Client, data []byte) {
	var baseMsg BaseMessage
	if err := json.Unmarshal(data, &baseMsg); err != nil {
		h.sendErrorToClient(client, errors.New("invalid message format"))
		return
	}
	if client.BidderID == uuid.Nil {
		h.sendErrorToClient(client, errors.New("watch-only connection cannot bid"))
		return
	}

	var (
		result *application.BidResultDTO
		err    error
	)
	switch baseMsg.Type {
	case MessageTypeClientBid:
		var msg ClientBidMessage
		if err = json.Unmarshal(data, &msg); err == nil && h.sameAuction(client, msg.Payload.AuctionID) {
			result, err = h.auctionService.PlaceBid(ctx, application.PlaceBidDTO{
				AuctionID: msg.Payload.AuctionID,
				BidderID:  client.BidderID,
				Amount:    msg.Payload.Amount,
			})
		}
	case MessageTypeClientAutoBid:
		var msg ClientAutoBidMessage
		if err = json.Unmarshal(data, &msg); err == nil && h.sameAuction(client, msg.Payload.AuctionID) {
			result, err = h.auctionService.PlaceAutoBid(ctx, application.PlaceAutoBidDTO{
				AuctionID: msg.Payload.AuctionID,
				BidderID:  client.BidderID,
				Ceiling:   msg.Payload.Ceiling,
			})
		}
	case MessageTypeClientBuyNow:
		var msg ClientBuyNowMessage
		if err = json.Unmarshal(data, &msg); err == nil && h.sameAuction(client, msg.Payload.AuctionID) {
			result, err = h.auctionService.BuyNow(ctx, application.BuyNowDTO{
				AuctionID: msg.Payload.AuctionID,
				BidderID:  client.BidderID,
			})
		}
	default:
		h.sendErrorToClient(client, errors.New("unknown message type"))
		return
	}

	if err != nil {
		h.sendErrorToClient(client, err)
		return
	}
	if result == nil {
		h.sendErrorToClient(client, errors.New("auction ID mismatch"))
		return
	}
	h.send(client, ServerBidResultMessage{
		BaseMessage: BaseMessage{Type: MessageTypeServerBidResult},
		Payload:     result,
	})
}

func (h *AuctionWSHandler) sameAuction(client *websocket.Client, auctionID uuid.UUID) bool {
	return auctionID.String() == client.AuctionID
}

// sendErrorToClient serializes and sends an error msg to a specific client
func (h *AuctionWSHandler) sendErrorToClient(client *websocket.Client, cause error) {
	errMsg := ServerErrorMessage{
		BaseMessage: BaseMessage{MessageTypeServerError},
	}
	errMsg.Payload.Error = cause.Error()
	var rej *domain.RejectionError
	if errors.As(cause, &rej) {
		errMsg.Payload.Reason = rej.Reason
		errMsg.Payload.Detail = &rej.Detail
	}
	h.send(client, errMsg)
}

func (h *AuctionWSHandler) send(client *websocket.Client, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error("failed to marshal websocket message", zap.Error(err))
		return
	}
	if !client.Reply(data) {
		log.Warn("client send channel full or closed, could not send message",
			zap.String("clientID", client.ID),
		)
	}
}
