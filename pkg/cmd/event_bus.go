package cmd

import (
	"log/slog"

	"github.com/voyflow/voyflow/pkg/eventbus"
)

// NewEventBus creates an event bus instance for the given provider. The
// in-process gochannel bus is the only wired provider.
func NewEventBus(provider string, logger *slog.Logger) eventbus.EventBus {
	switch provider {
	case "", "gochannel":
		return eventbus.NewGoChannelEventBus()
	default:
		panic("Unsupported event bus provider: " + provider)
	}
}
