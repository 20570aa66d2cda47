package events

import (
	"context"
	"fmt"

	"github.com/cristianortiz/bidEngine/internal/auction/domain"
	"github.com/cristianortiz/bidEngine/internal/shared/websocket"
)

// HubPublisher pushes public events to the WebSocket clients of this process.
type HubPublisher struct {
	hub *websocket.Hub
}

func NewHubPublisher(hub *websocket.Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) Publish(ctx context.Context, events ...domain.Event) error {
	for _, ev := range events {
		data, err := EncodePublic(ev)
		if err != nil {
			return err
		}
		if !p.hub.BroadcastToAuction(ev.Auction().String(), data) {
			return fmt.Errorf("hub broadcast queue full, %s dropped", ev.Type())
		}
	}
	return nil
}
