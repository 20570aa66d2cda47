package http

import (
	"context"
	"errors"
	"time"

	"github.com/cristianortiz/bidEngine/internal/auction/application"
	"github.com/cristianortiz/bidEngine/internal/auction/domain"
	auctionws "github.com/cristianortiz/bidEngine/internal/auction/infra/websocket"
	"github.com/cristianortiz/bidEngine/internal/shared/logger"
	sharedws "github.com/cristianortiz/bidEngine/internal/shared/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// BidderHeader carries the bidder id resolved by the authentication layer in front of the engine.
const BidderHeader = "X-Bidder-ID"

// ActorHeader names the operator behind a force-end.
const ActorHeader = "X-Actor"

const localBidderID = "bidderID"

// AuctionHandler exposes the auction service over REST and WebSocket.
type AuctionHandler struct {
	ctx       context.Context
	service   application.AuctionService
	hub       *sharedws.Hub
	wsHandler *auctionws.AuctionWSHandler
}

// NewAuctionHandler builds the handler; ctx bounds the lifetime of WebSocket pumps.
func NewAuctionHandler(ctx context.Context, service application.AuctionService, hub *sharedws.Hub, wsHandler *auctionws.AuctionWSHandler) *AuctionHandler {
	return &AuctionHandler{ctx: ctx, service: service, hub: hub, wsHandler: wsHandler}
}

func (h *AuctionHandler) RegisterRoutes(app *fiber.App) {
	api := app.Group("/api/v1/auctions")
	api.Post("/", h.CreateAuction)
	api.Get("/:id", h.GetAuctionView)
	api.Post("/:id/bids", h.PlaceBid)
	api.Post("/:id/auto-bids", h.PlaceAutoBid)
	api.Post("/:id/buy-now", h.BuyNow)
	api.Post("/:id/force-end", h.ForceEnd)

	if h.hub != nil && h.wsHandler != nil {
		app.Use("/ws", h.upgrade)
		app.Get("/ws/auctions/:id", websocket.New(h.serveWS))
	}
}

type createAuctionRequest struct {
	Title        string              `json:"title"`
	StartTime    time.Time           `json:"startTime"`
	FinishedTime time.Time           `json:"finishedTime"`
	BidHideTime  *time.Time          `json:"bidHideTime"`
	StartPrice   decimal.Decimal     `json:"startPrice"`
	BuyNowPrice  decimal.NullDecimal `json:"priceBuyNow"`
	MinIncrement decimal.Decimal     `json:"minIncrement"`
}

type createAuctionResponse struct {
	AuctionID    uuid.UUID       `json:"auctionId"`
	MinIncrement decimal.Decimal `json:"minIncrement"`
	Version      int64           `json:"version"`
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type ceilingRequest struct {
	Ceiling decimal.Decimal `json:"ceiling"`
}

type errorResponse struct {
	Error  string                  `json:"error"`
	Reason domain.RejectReason     `json:"reason,omitempty"`
	Detail *domain.RejectionDetail `json:"detail,omitempty"`
}

func (h *AuctionHandler) CreateAuction(c *fiber.Ctx) error {
	var req createAuctionRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, err)
	}
	a, err := h.service.CreateAuction(c.UserContext(), application.CreateAuctionDTO{
		Title:        req.Title,
		StartTime:    req.StartTime,
		FinishedTime: req.FinishedTime,
		BidHideTime:  req.BidHideTime,
		StartPrice:   req.StartPrice,
		BuyNowPrice:  req.BuyNowPrice,
		MinIncrement: req.MinIncrement,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(createAuctionResponse{
		AuctionID:    a.ID,
		MinIncrement: a.MinIncrement,
		Version:      a.Version,
	})
}

// GetAuctionView answers anonymous watchers too; the bidder header only personalizes the view.
func (h *AuctionHandler) GetAuctionView(c *fiber.Ctx) error {
	auctionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, errors.New("invalid auction id"))
	}
	requester := uuid.Nil
	if raw := c.Get(BidderHeader); raw != "" {
		if requester, err = uuid.Parse(raw); err != nil {
			return writeError(c, fiber.StatusBadRequest, errors.New("invalid bidder id"))
		}
	}
	view, err := h.service.GetAuctionView(c.UserContext(), auctionID, requester)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(view)
}

func (h *AuctionHandler) PlaceBid(c *fiber.Ctx) error {
	auctionID, bidderID, err := bidTarget(c)
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, err)
	}
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, err)
	}
	res, err := h.service.PlaceBid(c.UserContext(), application.PlaceBidDTO{
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    req.Amount,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

func (h *AuctionHandler) PlaceAutoBid(c *fiber.Ctx) error {
	auctionID, bidderID, err := bidTarget(c)
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, err)
	}
	var req ceilingRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, err)
	}
	res, err := h.service.PlaceAutoBid(c.UserContext(), application.PlaceAutoBidDTO{
		AuctionID: auctionID,
		BidderID:  bidderID,
		Ceiling:   req.Ceiling,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

func (h *AuctionHandler) BuyNow(c *fiber.Ctx) error {
	auctionID, bidderID, err := bidTarget(c)
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, err)
	}
	res, err := h.service.BuyNow(c.UserContext(), application.BuyNowDTO{AuctionID: auctionID, BidderID: bidderID})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// ForceEnd answers 200 for both a fresh close and an auction that was already ended.
func (h *AuctionHandler) ForceEnd(c *fiber.Ctx) error {
	auctionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, errors.New("invalid auction id"))
	}
	actor := c.Get(ActorHeader)
	if actor == "" {
		actor = "operator"
	}
	res, err := h.service.ForceEnd(c.UserContext(), application.ForceEndDTO{AuctionID: auctionID, Actor: actor})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

func bidTarget(c *fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
	auctionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, errors.New("invalid auction id")
	}
	bidderID, err := uuid.Parse(c.Get(BidderHeader))
	if err != nil || bidderID == uuid.Nil {
		return uuid.Nil, uuid.Nil, errors.New("missing or invalid " + BidderHeader + " header")
	}
	return auctionID, bidderID, nil
}

// respondError maps engine errors to HTTP statuses. Rejections carry their structured detail.
func respondError(c *fiber.Ctx, err error) error {
	var rej *domain.RejectionError
	switch {
	case errors.As(err, &rej):
		return c.Status(fiber.StatusConflict).JSON(errorResponse{
			Error:  err.Error(),
			Reason: rej.Reason,
			Detail: &rej.Detail,
		})
	case errors.Is(err, domain.ErrAuctionNotFound):
		return writeError(c, fiber.StatusNotFound, err)
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidAuction):
		return writeError(c, fiber.StatusBadRequest, err)
	case errors.Is(err, domain.ErrBusy):
		c.Set(fiber.HeaderRetryAfter, "1")
		return writeError(c, fiber.StatusServiceUnavailable, err)
	case errors.Is(err, domain.ErrPersistence):
		return writeError(c, fiber.StatusServiceUnavailable, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return writeError(c, fiber.StatusRequestTimeout, err)
	default:
		log.Error("Unhandled auction API error",
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return writeError(c, fiber.StatusInternalServerError, errors.New("internal error"))
	}
}

func writeError(c *fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(errorResponse{Error: err.Error()})
}

// upgrade only lets WebSocket handshakes through and remembers the optional bidder identity.
func (h *AuctionHandler) upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	bidderID := uuid.Nil
	if raw := c.Get(BidderHeader); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, errors.New("invalid bidder id"))
		}
		bidderID = id
	}
	c.Locals(localBidderID, bidderID)
	return c.Next()
}

func (h *AuctionHandler) serveWS(conn *websocket.Conn) {
	auctionID, err := uuid.Parse(conn.Params("id"))
	if err != nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"server_error","payload":{"error":"invalid auction id"}}`))
		_ = conn.Close()
		return
	}
	bidderID, _ := conn.Locals(localBidderID).(uuid.UUID)

	client := sharedws.NewClient(h.hub, conn, auctionID.String(), bidderID)
	h.hub.RegisterClient(client)
	h.wsHandler.SendInitialState(h.ctx, client)

	go client.WritePump(h.ctx)
	client.ReadPump(h.ctx)
}
