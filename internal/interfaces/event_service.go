package interfaces

import "context"

// EventType represents different event types published on the internal event bus.
type EventType string

const (
	// EventBatchCreated is published when a batch is accepted and persisted.
	// Payload: map[string]interface{} with keys: batch_id, total_files, timestamp.
	EventBatchCreated EventType = "batch_created"

	// EventBatchProgress is published whenever a batch's file counters change.
	// Payload: map[string]interface{} with keys:
	//   - batch_id: string
	//   - files_processed: int
	//   - files_failed: int
	//   - total_files: int
	//   - status: string ("pending", "processing", "completed", "partial", "failed", "cancelled")
	//   - timestamp: time.Time
	EventBatchProgress EventType = "batch_progress"

	// EventBatchCompleted is published when every file in a batch reaches a
	// terminal state (done, failed, or skipped).
	// Payload: map[string]interface{} with keys: batch_id, files_processed, files_failed, duration_seconds, timestamp.
	EventBatchCompleted EventType = "batch_completed"

	// EventBatchCancelled is published when a batch is cancelled by request.
	// Payload: map[string]interface{} with keys: batch_id, reason, timestamp.
	EventBatchCancelled EventType = "batch_cancelled"

	// EventFileStageChanged is published on every document-pipeline state transition.
	// Payload: map[string]interface{} with keys:
	//   - batch_id: string
	//   - file_id: string
	//   - stage: string ("queued", "ocr_running", "routed", "extracting", "persisting", "done", "failed")
	//   - error: string (present only when stage == "failed")
	//   - timestamp: time.Time
	EventFileStageChanged EventType = "file_stage_changed"

	// EventFileCompleted is published when a single document file finishes
	// processing, successfully or not.
	// Payload: map[string]interface{} with keys: batch_id, file_id, success, transaction_count, timestamp.
	EventFileCompleted EventType = "file_completed"

	// EventKeyUpdated is published when a key/value entry changes via the KV service.
	// Payload: map[string]interface{} with keys: key_name, old_value, new_value, timestamp.
	EventKeyUpdated EventType = "key_updated"

	// EventAuditRecorded is published whenever an audit entry is appended to the audit log.
	// Payload: *models.AuditEvent
	EventAuditRecorded EventType = "audit_recorded"
)

// Event represents a system event.
type Event struct {
	Type    EventType
	Payload interface{}
}

// EventHandler is a function that handles events.
type EventHandler func(ctx context.Context, event Event) error

// EventService manages the pub/sub event bus used to fan progress and audit
// notifications out to the notification fabric and other subscribers.
type EventService interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// Unsubscribe removes a handler from an event type.
	Unsubscribe(eventType EventType, handler EventHandler) error

	// Publish delivers an event to subscribers asynchronously.
	Publish(ctx context.Context, event Event) error

	// PublishSync delivers an event and waits for every handler to complete.
	PublishSync(ctx context.Context, event Event) error

	// Close shuts down the event service.
	Close() error
}
