package events

import (
	"context"

	interfaces "github.com/sheikh-saqib/webhook-transaction-processor/internal/interfaces"
)

// NoopPublisher discards events. It is the default when no broker is
// configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, topic string, event any) error {
	return nil
}

var _ interfaces.EventPublisher = NoopPublisher{}
