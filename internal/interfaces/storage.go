package interfaces

import (
	"context"

	"github.com/docuscan/taxpipeline/internal/models"
)

// ListOptions paginates batch listings. Default pagination returns the
// first 10 items immediately; callers may request more via Offset/Limit.
type ListOptions struct {
	Owner  string
	Limit  int
	Offset int
}

// BatchStorage persists Batch and DocumentFile rows. DocumentFile rows are
// owned by their Batch (cascade delete); ScanResult rows are owned by their
// DocumentFile.
type BatchStorage interface {
	SaveBatch(ctx context.Context, batch *models.Batch) error
	GetBatch(ctx context.Context, id string) (*models.Batch, error)
	ListBatches(ctx context.Context, opts ListOptions) ([]*models.Batch, error)
	DeleteBatch(ctx context.Context, id string) error

	// UpdateCounters atomically applies the given deltas to a batch's
	// files_processed/files_failed/pages_processed counters and returns the
	// updated Batch.
	UpdateCounters(ctx context.Context, batchID string, filesProcessedDelta, filesFailedDelta, pagesProcessedDelta int) (*models.Batch, error)

	// SetStatus updates the batch's terminal/intermediate status.
	SetStatus(ctx context.Context, batchID string, status models.BatchStatus) error

	// SetCancelRequested marks the batch's cancel flag. Idempotent.
	SetCancelRequested(ctx context.Context, batchID string) error
}

// DocumentFileStorage persists DocumentFile rows within a batch.
type DocumentFileStorage interface {
	SaveFile(ctx context.Context, file *models.DocumentFile) error
	GetFile(ctx context.Context, id string) (*models.DocumentFile, error)
	ListFilesByBatch(ctx context.Context, batchID string) ([]*models.DocumentFile, error)

	// UpdateStatus advances a file's status/stage. Callers are expected to
	// be the single pipeline worker owning this file.
	UpdateStatus(ctx context.Context, fileID string, status models.FileStatus, stage models.PipelineStage, errKind models.ErrorKind, errMsg string) error

	// GetStaleProcessingFiles returns files stuck in "processing" whose
	// UpdatedAt is older than the given threshold, for crash-recovery resume.
	GetStaleProcessingFiles(ctx context.Context, staleAfterSeconds int) ([]*models.DocumentFile, error)
}

// ScanResultStorage persists ScanResult rows, at most one per DocumentFile.
type ScanResultStorage interface {
	// SaveResult creates or reconciles the ScanResult for a DocumentFile:
	// if one already exists, its raw text/confidence/timings are updated in
	// place while any user-edited structured-payload fields are preserved,
	// rather than creating a duplicate row.
	SaveResult(ctx context.Context, result *models.ScanResult) error

	GetResult(ctx context.Context, id string) (*models.ScanResult, error)
	GetResultByFile(ctx context.Context, documentFileID string) (*models.ScanResult, error)
	ListResultsByBatch(ctx context.Context, batchID string) ([]*models.ScanResult, error)

	// ApplyPatch merges patch.Fields into the result's structured payload.
	ApplyPatch(ctx context.Context, patch *models.ResultPatch) (*models.ScanResult, error)
}

// AuditStorage appends structured audit events to the append-only log.
type AuditStorage interface {
	Append(ctx context.Context, event *models.AuditEvent) error
}

// StorageManager is the composite persistence interface the application
// wires up once at startup. DB() returns the underlying handle (a *badger.DB)
// for components that need direct access (e.g. badgerhold queries).
type StorageManager interface {
	BatchStorage() BatchStorage
	DocumentFileStorage() DocumentFileStorage
	ScanResultStorage() ScanResultStorage
	AuditStorage() AuditStorage
	KeyValueStorage() KeyValueStorage
	DB() interface{}
	Close() error
}
