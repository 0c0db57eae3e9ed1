package events

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/docuscan/taxpipeline/internal/interfaces"
)

// NewLoggerSubscriber creates an event handler that logs all events
func NewLoggerSubscriber(logger arbor.ILogger) interfaces.EventHandler {
	return func(ctx context.Context, event interfaces.Event) error {
		// Extract common fields from payload if available
		var batchID, fileID, status string
		if payload, ok := event.Payload.(map[string]interface{}); ok {
			if id, ok := payload["batch_id"].(string); ok {
				batchID = id
			}
			if id, ok := payload["file_id"].(string); ok {
				fileID = id
			}
			if s, ok := payload["status"].(string); ok {
				status = s
			}
		}

		// Log event with structured fields
		logEvent := logger.Debug().
			Str("event_type", string(event.Type))

		if batchID != "" {
			logEvent = logEvent.Str("batch_id", batchID)
		}
		if fileID != "" {
			logEvent = logEvent.Str("file_id", fileID)
		}
		if status != "" {
			logEvent = logEvent.Str("status", status)
		}

		logEvent.Msg("Event published")

		return nil
	}
}

// SubscribeLoggerToAllEvents subscribes the logger to all known event types
func SubscribeLoggerToAllEvents(eventService interfaces.EventService, logger arbor.ILogger) error {
	subscriber := NewLoggerSubscriber(logger)

	// Subscribe to all known event types
	eventTypes := []interfaces.EventType{
		interfaces.EventBatchCreated,
		interfaces.EventBatchProgress,
		interfaces.EventBatchCompleted,
		interfaces.EventBatchCancelled,
		interfaces.EventFileStageChanged,
		interfaces.EventFileCompleted,
		interfaces.EventKeyUpdated,
		interfaces.EventAuditRecorded,
	}

	for _, eventType := range eventTypes {
		if err := eventService.Subscribe(eventType, subscriber); err != nil {
			return fmt.Errorf("failed to subscribe logger to event type %s: %w", eventType, err)
		}
	}

	logger.Info().
		Int("event_type_count", len(eventTypes)).
		Msg("Logger subscribed to all event types")

	return nil
}
