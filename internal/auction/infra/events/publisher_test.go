package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cristianortiz/bidEngine/internal/auction/domain"
	"github.com/cristianortiz/bidEngine/internal/shared/websocket"
	"github.com/google/uuid"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/redis/go-redis/v9"
)

type stubPublisher struct {
	err   error
	calls int
}

func (s *stubPublisher) Publish(ctx context.Context, events ...domain.Event) error {
	s.calls++
	return s.err
}

func TestMulti_DeliversToAll(t *testing.T) {
	failing := &stubPublisher{err: errors.New("broker down")}
	ok := &stubPublisher{}
	m := Multi{failing, ok}

	err := m.Publish(context.Background(), bidAccepted(false))
	check.Error(t, err)
	check.Equal(t, 1, failing.calls)
	check.Equal(t, 1, ok.calls)

	check.NoError(t, Multi{ok}.Publish(context.Background(), bidAccepted(false)))
}

func TestRedisPublisher(t *testing.T) {
	ctx := context.Background()
	srv := miniredis.RunT(t)
	pub, err := NewRedisPublisher(srv.Addr(), "", 0)
	assert.NoError(t, err)
	t.Cleanup(func() { _ = pub.Close() })

	ev := bidAccepted(true)
	sub := redis.NewClient(&redis.Options{Addr: srv.Addr()}).Subscribe(ctx, ChannelFor(ev.AuctionID.String()))
	t.Cleanup(func() { _ = sub.Close() })
	_, err = sub.Receive(ctx)
	assert.NoError(t, err)

	ended := domain.AuctionEnded{AuctionID: ev.AuctionID, CloseReason: domain.CloseTimeElapsed, Timestamp: ts}
	assert.NoError(t, pub.Publish(ctx, ev, ended))

	rctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	first, err := sub.ReceiveMessage(rctx)
	assert.NoError(t, err)
	env, payload := decodePayload(t, []byte(first.Payload))
	check.Equal(t, domain.EventBidAccepted, env.Type)
	_, hasPrice := payload["newPrice"]
	check.False(t, hasPrice)

	second, err := sub.ReceiveMessage(rctx)
	assert.NoError(t, err)
	env, _ = decodePayload(t, []byte(second.Payload))
	check.Equal(t, domain.EventAuctionEnded, env.Type)
}

func TestHubPublisher(t *testing.T) {
	hub := websocket.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	ev := bidAccepted(false)
	client := websocket.NewClient(hub, nil, ev.AuctionID.String(), uuid.New())
	hub.RegisterClient(client)
	deadline := time.Now().Add(2 * time.Second)
	for {
		n, err := hub.ClientCount(ctx, ev.AuctionID.String())
		assert.NoError(t, err)
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(time.Millisecond)
	}

	assert.NoError(t, NewHubPublisher(hub).Publish(ctx, ev))
	select {
	case data := <-client.Send:
		env, payload := decodePayload(t, data)
		check.Equal(t, ev.AuctionID, env.AuctionID)
		check.Equal(t, "130.5", payload["newPrice"])
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}
