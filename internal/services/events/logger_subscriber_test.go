package events

import (
	"context"
	"testing"

	"github.com/ternarybob/arbor"

	"github.com/docuscan/taxpipeline/internal/common"
	"github.com/docuscan/taxpipeline/internal/interfaces"
)

// TestNewLoggerSubscriber verifies that the logger subscriber logs events
func TestNewLoggerSubscriber(t *testing.T) {
	logger := arbor.NewLogger()
	defer common.Stop()

	subscriber := NewLoggerSubscriber(logger)

	ctx := context.Background()
	event := interfaces.Event{
		Type: interfaces.EventBatchProgress,
		Payload: map[string]interface{}{
			"batch_id": "batch-123",
			"status":   "running",
		},
	}

	if err := subscriber(ctx, event); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}

	event2 := interfaces.Event{
		Type:    interfaces.EventAuditRecorded,
		Payload: nil,
	}

	if err := subscriber(ctx, event2); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
}

// TestSubscribeLoggerToAllEvents verifies the logger can be subscribed to
// every known event type without error.
func TestSubscribeLoggerToAllEvents(t *testing.T) {
	logger := arbor.NewLogger()
	defer common.Stop()

	eventService := NewService(logger)
	defer eventService.Close()

	if err := SubscribeLoggerToAllEvents(eventService, logger); err != nil {
		t.Fatalf("Failed to subscribe logger to all events: %v", err)
	}

	ctx := context.Background()
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
		event := interfaces.Event{
			Type:    eventType,
			Payload: map[string]interface{}{"test": "data"},
		}

		if err := eventService.Publish(ctx, event); err != nil {
			t.Errorf("Expected no error publishing %s event, got: %v", eventType, err)
		}
	}
}

// TestLoggerSubscriberDoesNotInterfere verifies the logger subscriber
// coexists with other handlers on the same event type.
func TestLoggerSubscriberDoesNotInterfere(t *testing.T) {
	logger := arbor.NewLogger()
	defer common.Stop()

	eventService := NewService(logger)
	defer eventService.Close()

	if err := eventService.Subscribe(interfaces.EventBatchCreated, NewLoggerSubscriber(logger)); err != nil {
		t.Fatalf("Failed to subscribe logger handler: %v", err)
	}

	callCount := 0
	customHandler := func(ctx context.Context, event interfaces.Event) error {
		callCount++
		return nil
	}

	if err := eventService.Subscribe(interfaces.EventBatchCreated, customHandler); err != nil {
		t.Fatalf("Failed to subscribe custom handler: %v", err)
	}

	ctx := context.Background()
	event := interfaces.Event{
		Type: interfaces.EventBatchCreated,
		Payload: map[string]interface{}{
			"batch_id": "batch-456",
		},
	}

	if err := eventService.PublishSync(ctx, event); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}

	if callCount != 1 {
		t.Errorf("Expected custom handler to be called once, got: %d", callCount)
	}
}
