package events

import (
	"context"

	"github.com/cristianortiz/bidEngine/internal/auction/domain"
	"go.uber.org/multierr"
)

// Multi delivers to every publisher in order. A failing publisher does not stop the others.
type Multi []domain.EventPublisher

func (m Multi) Publish(ctx context.Context, events ...domain.Event) error {
	var err error
	for _, p := range m {
		err = multierr.Append(err, p.Publish(ctx, events...))
	}
	return err
}
