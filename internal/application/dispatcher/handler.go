package dispatcher

import (
	"context"

	"github.com/dmarkov/expensio/internal/domain/event"
)

// Handler processes domain events.
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo carries handler metadata for registration and debugging.
type HandlerInfo struct {
	Name      string
	EventType event.Type
	Handler   Handler
}
