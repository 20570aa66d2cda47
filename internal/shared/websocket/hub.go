package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/cristianortiz/bidEngine/internal/shared/logger"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// Constants for WebSocket configuration (adjust as needed)
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024

	// Capacity of the hub's control channels.
	hubQueueSize = 256

	// SendBufferSize is the per-client outbound buffer; a client that falls this far behind is dropped.
	SendBufferSize = 64
)

// Hub keeps client's registry and handle messages broadcasting
type Hub struct {
	// Registered clients, grouped by auction ID.
	// The inner map keys are clients, and the boolean value is ignored.
	clients map[string]map[*Client]bool
	// Outbound messages for every client of one auction.
	broadcast chan *Message
	// Register requests from the clients.
	register chan *Client
	// Unregister requests from clients.
	unregister chan *Client
	// Count requests, answered from the Run goroutine.
	count           chan countRequest
	InboundMessages chan *ClientMessage // this channel will be listened to by module-specific handlers (e.g, auction handler)
}

// Client represents a ws individual connection
type Client struct {
	Hub *Hub
	// The websocket connection.
	Conn *websocket.Conn
	// Buffered channel of outbound messages.
	Send chan []byte
	// The auction this client watches.
	AuctionID string
	// BidderID is the authenticated bidder behind the connection, uuid.Nil for watchers.
	BidderID uuid.UUID
	// Unique identifier for the client
	ID         string
	RemoteAddr string

	// sendMu guards sendClosed; Send is closed only through closeSend.
	sendMu     sync.Mutex
	sendClosed bool
}

type Message struct {
	AuctionID string
	Data      []byte
}

// ClientMessage is used for wraping the client and data message received.
// is used to send inbound messages from the client to the hub handlers
type ClientMessage struct {
	Client *Client
	Data   []byte
}

type countRequest struct {
	auctionID string
	reply     chan int
}

func NewHub() *Hub {
	return &Hub{
		broadcast:       make(chan *Message, hubQueueSize),
		register:        make(chan *Client, hubQueueSize),
		unregister:      make(chan *Client, hubQueueSize),
		count:           make(chan countRequest),
		clients:         make(map[string]map[*Client]bool),
		InboundMessages: make(chan *ClientMessage, hubQueueSize),
	}
}

// NewClient builds a client for conn watching auctionID.
func NewClient(hub *Hub, conn *websocket.Conn, auctionID string, bidderID uuid.UUID) *Client {
	c := &Client{
		Hub:       hub,
		Conn:      conn,
		Send:      make(chan []byte, SendBufferSize),
		AuctionID: auctionID,
		BidderID:  bidderID,
		ID:        uuid.NewString(),
	}
	if conn != nil && conn.Conn != nil {
		c.RemoteAddr = conn.RemoteAddr().String()
	}
	return c
}

// Run starts the hub listening in their channels
func (h *Hub) Run(ctx context.Context) {
	log.Info("Websocket Hub started")
	for {
		select {
		case <-ctx.Done():
			log.Info("WebSocket Hub shutting down due to context cancellation")
			for auctionID, clients := range h.clients {
				for client := range clients {
					client.closeSend()
				}
				delete(h.clients, auctionID)
			}
			return

		case client := <-h.register:
			if _, ok := h.clients[client.AuctionID]; !ok {
				h.clients[client.AuctionID] = make(map[*Client]bool)
			}
			h.clients[client.AuctionID][client] = true
			log.Info("Client registered",
				zap.String("clientID", client.ID),
				zap.String("auctionID", client.AuctionID),
				zap.String("remoteAddr", client.RemoteAddr),
				zap.Int("totalClients", h.totalClients()),
			)

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			clients, ok := h.clients[message.AuctionID]
			if !ok {
				continue
			}
			log.Debug("Broadcasting message to auction", zap.String("auctionID", message.AuctionID), zap.Int("clients", len(clients)))
			for client := range clients {
				select {
				case client.Send <- message.Data:
				default:
					// the client is not draining its buffer, drop it
					log.Warn("Failed to Send message to client, unregistering",
						zap.String("clientID", client.ID),
						zap.String("auctionID", client.AuctionID),
						zap.String("remoteAddr", client.RemoteAddr),
					)
					h.remove(client)
				}
			}

		case req := <-h.count:
			req.reply <- len(h.clients[req.auctionID])
		}
	}
}

func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.AuctionID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	client.closeSend()
	log.Info("Client unregistered",
		zap.String("clientID", client.ID),
		zap.String("auctionID", client.AuctionID),
		zap.Int("totalClients", h.totalClients()),
	)
	if len(clients) == 0 {
		delete(h.clients, client.AuctionID)
		log.Debug("Auction group removed as empty", zap.String("auctionID", client.AuctionID))
	}
}

func (h *Hub) totalClients() int {
	count := 0
	for _, auctionClients := range h.clients {
		count += len(auctionClients)
	}
	return count
}

// RegisterClient register a new client in the hub
func (h *Hub) RegisterClient(client *Client) {
	select { // Use select to avoid blocking if channel is full
	case h.register <- client:
		log.Debug("Client queued for registration",
			zap.String("clientID", client.ID),
			zap.String("auctionID", client.AuctionID),
		)
	default:
		log.Error("Register channel is full, client registration failed",
			zap.String("clientID", client.ID),
			zap.String("auctionID", client.AuctionID),
		)
		if client.Conn != nil {
			_ = client.Conn.Close()
		}
	}
}

// UnregisterClient delete a client from the hub
func (h *Hub) UnregisterClient(client *Client) {
	select { // Use select to avoid blocking if channel is full
	case h.unregister <- client:
		log.Debug("Client queued for unregistration",
			zap.String("clientID", client.ID),
			zap.String("auctionID", client.AuctionID),
		)
	default:
		log.Error("Unregister channel is full, client unregistration failed",
			zap.String("clientID", client.ID),
			zap.String("auctionID", client.AuctionID),
		)
	}
}

// BroadcastToAuction queues data for every client watching auctionID.
func (h *Hub) BroadcastToAuction(auctionID string, data []byte) bool {
	select { // Use select to avoid blocking if channel is full
	case h.broadcast <- &Message{AuctionID: auctionID, Data: data}:
		log.Debug("Message queued for broadcast", zap.String("auctionID", auctionID))
		return true
	default:
		log.Error("Broadcast channel is full, message dropped", zap.String("auctionID", auctionID))
		return false
	}
}

// ClientCount reports how many clients watch auctionID. It blocks until Run answers or ctx ends.
func (h *Hub) ClientCount(ctx context.Context, auctionID string) (int, error) {
	req := countRequest{auctionID: auctionID, reply: make(chan int, 1)}
	select {
	case h.count <- req:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	select {
	case n := <-req.reply:
		return n, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// ReadPump reads client frames and forwards them to InboundMessages.
// Must run in its own goroutine per client.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.Hub.UnregisterClient(c)
		c.Conn.Close()
		log.Info("ReadPump stopped for client",
			zap.String("clientID", c.ID),
			zap.String("auctionID", c.AuctionID),
			zap.String("remoteAddr", c.RemoteAddr),
		)
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		select {
		case <-ctx.Done():
			log.Info("ReadPump context cancelled for client",
				zap.String("clientID", c.ID),
				zap.String("auctionID", c.AuctionID),
			)
			return
		default:
		}

		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("WebSocket read error",
					zap.String("clientID", c.ID),
					zap.String("auctionID", c.AuctionID),
					zap.String("remoteAddr", c.RemoteAddr),
					zap.Error(err),
				)
			} else {
				log.Info("WebSocket connection closed by peer",
					zap.String("clientID", c.ID),
					zap.String("auctionID", c.AuctionID),
					zap.Error(err),
				)
			}
			break
		}

		select {
		case c.Hub.InboundMessages <- &ClientMessage{Client: c, Data: message}:
		default:
			// handlers are not keeping up
			log.Error("Hub InboundMessages channel is full, dropping message",
				zap.String("clientID", c.ID),
				zap.String("auctionID", c.AuctionID),
			)
			c.Reply(busyFrame)
		}
	}
}

var busyFrame = []byte(`{"type":"server_error","payload":{"error":"busy"}}`)

// Reply queues data for this client only. It never blocks and reports false once the
// hub has dropped the client.
func (c *Client) Reply(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		log.Warn("Client send channel full, reply dropped",
			zap.String("clientID", c.ID),
			zap.String("auctionID", c.AuctionID),
		)
		return false
	}
}

// closeSend closes Send once. Only the hub goroutine calls it.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return
	}
	c.sendClosed = true
	close(c.Send)
}

// WritePump pumps messages from the hub to the websocket connection.
// A goroutine running WritePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// invoking WriteControl and WriteMessage from a single goroutine.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Hub.UnregisterClient(c)
		c.Conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			err := c.Conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			if err != nil {
				log.Debug("Failed to send close control message",
					zap.String("clientID", c.ID),
					zap.Error(err),
				)
			}
			return

		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The Hub closed the channel.
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// one JSON document per frame
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error("Failed to write message to client",
					zap.String("clientID", c.ID),
					zap.String("auctionID", c.AuctionID),
					zap.Error(err),
				)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Error("Failed to write ping message to client",
					zap.String("clientID", c.ID),
					zap.String("auctionID", c.AuctionID),
					zap.Error(err),
				)
				return
			}
		}
	}
}
