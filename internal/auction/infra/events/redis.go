package events

import (
	"context"
	"fmt"
	"time"

	"github.com/cristianortiz/bidEngine/internal/auction/domain"
	"github.com/redis/go-redis/v9"
)

// ChannelFor is the Redis pub/sub channel carrying an auction's public events.
func ChannelFor(auctionID string) string {
	return fmt.Sprintf("auction_events:%s", auctionID)
}

// RedisPublisher fans public events out over Redis pub/sub for broadcast services running
// in other processes.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher connects and pings the server.
func NewRedisPublisher(addr, password string, db int) (*RedisPublisher, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisPublisher{client: rdb}, nil
}

// Publish sends the events of one mutation in a single pipeline, keeping their order.
func (p *RedisPublisher) Publish(ctx context.Context, events ...domain.Event) error {
	pipe := p.client.Pipeline()
	for _, ev := range events {
		data, err := EncodePublic(ev)
		if err != nil {
			return err
		}
		pipe.Publish(ctx, ChannelFor(ev.Auction().String()), data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish events to Redis: %w", err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
