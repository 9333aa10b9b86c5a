package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/dealgrid/playrun/pkg/channels/gochannel"
	"github.com/dealgrid/playrun/pkg/channels/kafka"
	"github.com/dealgrid/playrun/pkg/eventbus"
)

// NewEventBus builds the event transport. "kafka" requires KAFKA_BROKERS;
// "gochannel" is the in-process default for single-binary deployments.
func NewEventBus(provider string, logger *slog.Logger) (eventbus.EventBus, error) {
	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), "playrun")
		if err != nil {
			return nil, fmt.Errorf("creating kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	case "gochannel", "":
		pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("creating gochannel pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %s", provider)
	}
}
