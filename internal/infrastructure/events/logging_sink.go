package events

import (
	"context"

	"github.com/nicklaros/stockengine/internal/application/ports"
	"github.com/nicklaros/stockengine/pkg/logger"
)

// LoggingSink publishes events as structured log lines. It is the default
// EventSinkPort and never fails, which keeps the engine's post-commit hook
// a no-op on a fresh deployment with no message broker configured.
type LoggingSink struct {
	logger logger.Logger
}

// NewLoggingSink builds a LoggingSink.
func NewLoggingSink(logger logger.Logger) *LoggingSink {
	return &LoggingSink{logger: logger}
}

func (s *LoggingSink) Publish(ctx context.Context, event ports.InventoryEvent) error {
	s.logger.WithFields(map[string]interface{}{
		"event_type":    event.EventType,
		"sku":           event.SKU,
		"location":      event.Location,
		"movement_id":   event.MovementID,
		"movement_type": event.MovementType,
		"quantity":      event.Quantity,
		"detail":        event.Detail,
		"occurred_at":   event.OccurredAt,
	}).Info("inventory event")
	return nil
}

var _ ports.EventSinkPort = (*LoggingSink)(nil)
