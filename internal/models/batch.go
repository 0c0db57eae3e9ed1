package models

import "time"

// BatchStatus is the lifecycle state of a Batch.
type BatchStatus string

const (
	BatchStatusPending    BatchStatus = "pending"
	BatchStatusProcessing BatchStatus = "processing"
	BatchStatusCompleted  BatchStatus = "completed"
	BatchStatusPartial    BatchStatus = "partial"
	BatchStatusFailed     BatchStatus = "failed"
	BatchStatusCancelled  BatchStatus = "cancelled"
)

// Batch is the unit of submission: a group of files with declared document
// types, driven to completion by the Batch Scheduler.
//
// Invariants (enforced by the scheduler, never by this struct alone):
//   - FilesProcessed + FilesFailed <= TotalFiles at all times
//   - Status == completed implies FilesFailed == 0
//   - Status == partial implies FilesFailed > 0 && FilesProcessed+FilesFailed == TotalFiles
type Batch struct {
	ID              string      `json:"id"`
	Owner           string      `json:"owner"`
	TotalFiles      int         `json:"total_files"`
	TotalPages      int         `json:"total_pages"`
	FilesProcessed  int         `json:"files_processed"`
	FilesFailed     int         `json:"files_failed"`
	PagesProcessed  int         `json:"pages_processed"`
	Status          BatchStatus `json:"status"`
	CancelRequested bool        `json:"cancel_requested"`
	CreatedAt       time.Time   `json:"created_at"`
	CompletedAt     *time.Time  `json:"completed_at,omitempty"`
}

// IsTerminal reports whether the batch has reached a state the scheduler
// will never mutate again.
func (b *Batch) IsTerminal() bool {
	switch b.Status {
	case BatchStatusCompleted, BatchStatusPartial, BatchStatusFailed, BatchStatusCancelled:
		return true
	default:
		return false
	}
}

// Snapshot is the read-only view returned by status(batch_id); it is safe to
// serialize directly to callers.
type Snapshot struct {
	Batch      *Batch          `json:"batch"`
	Files      []*DocumentFile `json:"files"`
	ETASeconds *float64        `json:"eta_seconds,omitempty"`
}

// BatchDescriptor is the input to submit(batch_descriptor).
type BatchDescriptor struct {
	Owner string               `json:"owner" validate:"required"`
	Files []FileSubmission     `json:"files" validate:"required,min=1,dive"`
}

// FileSubmission describes one file within a BatchDescriptor.
type FileSubmission struct {
	Filename     string `json:"filename" validate:"required"`
	DeclaredType string `json:"declared_type" validate:"required"`
	StoredPath   string `json:"stored_path" validate:"required"`
	Size         int64  `json:"size" validate:"min=0"`
}
