package events

import (
	"context"
	"fmt"
	"time"

	"github.com/cristianortiz/bidEngine/internal/auction/domain"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

const (
	StreamName    = "AUCTION_EVENTS"
	subjectPrefix = "auction.events."
)

// JetStreamPublisher appends full-detail events to a durable stream for archival and settlement
// consumers. Each event carries a message id so a retried publish is stored once.
type JetStreamPublisher struct {
	js jetstream.JetStream
}

// NewJetStreamPublisher ensures the stream exists on conn.
func NewJetStreamPublisher(ctx context.Context, conn *nats.Conn) (*JetStreamPublisher, error) {
	js, err := jetstream.New(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Committed auction events",
		Subjects:    []string{subjectPrefix + "*"},
		Storage:     jetstream.FileStorage,
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      7 * 24 * time.Hour,
		Duplicates:  2 * time.Minute,
		Replicas:    1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create/update stream: %w", err)
	}
	log.Info("JetStream stream ready", zap.String("stream", StreamName))
	return &JetStreamPublisher{js: js}, nil
}

func (p *JetStreamPublisher) Publish(ctx context.Context, events ...domain.Event) error {
	for _, ev := range events {
		data, err := EncodeFull(ev)
		if err != nil {
			return err
		}
		subject := subjectPrefix + ev.Auction().String()
		if _, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(messageID(ev))); err != nil {
			return fmt.Errorf("publish %s to %s: %w", ev.Type(), subject, err)
		}
	}
	return nil
}
