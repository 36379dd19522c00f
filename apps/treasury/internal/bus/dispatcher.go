package bus

import (
	"context"

	"treasury/apps/treasury/internal/events"
)

// Dispatcher decouples the heartbeat from stage execution. The scheduler only
// publishes typed events; a Consumer invokes the registered handler.
type Dispatcher interface {
	Publish(ctx context.Context, event events.StoreDueEvent) error
}

// Handler processes one store-due event.
type Handler func(ctx context.Context, event events.StoreDueEvent) error
