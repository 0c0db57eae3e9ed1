package models

import "time"

// DocumentType is a closed set of document classifications. Unknown values
// are rejected fail-fast by the Document Pipeline; filename-based detection
// is deliberately not supported (see SPEC_FULL design notes).
type DocumentType string

const (
	DocTypeFakturPajak    DocumentType = "faktur_pajak"
	DocTypePPh21          DocumentType = "pph21"
	DocTypePPh23          DocumentType = "pph23"
	DocTypeInvoice        DocumentType = "invoice"
	DocTypeRekeningKoran  DocumentType = "rekening_koran"
)

// IsTaxDocument reports whether the document type routes through the Smart
// Mapper alone, as opposed to the Hybrid Bank Processor.
func (d DocumentType) IsTaxDocument() bool {
	switch d {
	case DocTypeFakturPajak, DocTypePPh21, DocTypePPh23, DocTypeInvoice:
		return true
	default:
		return false
	}
}

// Known reports whether d is one of the closed set of supported types.
func (d DocumentType) Known() bool {
	return d.IsTaxDocument() || d == DocTypeRekeningKoran
}

// FileStatus is the per-file lifecycle state tracked by the Document Pipeline.
type FileStatus string

const (
	FileStatusQueued     FileStatus = "queued"
	FileStatusProcessing FileStatus = "processing"
	FileStatusDone       FileStatus = "done"
	FileStatusFailed     FileStatus = "failed"
	FileStatusSkipped    FileStatus = "skipped"
)

// PipelineStage is a finer-grained phase within FileStatusProcessing, used
// for progress events and the notification fabric.
type PipelineStage string

const (
	StageQueued      PipelineStage = "queued"
	StageOCRRunning  PipelineStage = "ocr_running"
	StageRouted      PipelineStage = "routed"
	StageExtracting  PipelineStage = "extracting"
	StagePersisting  PipelineStage = "persisting"
	StageDone        PipelineStage = "done"
	StageFailed      PipelineStage = "failed"
)

// DocumentFile is one uploaded file within a Batch.
//
// Invariant: ContentHash is computed before processing begins. Status
// transitions are monotonic except queued->skipped on batch cancel.
type DocumentFile struct {
	ID           string       `json:"id"`
	BatchID      string       `json:"batch_id"`
	DeclaredType DocumentType `json:"declared_type"`
	Filename     string       `json:"filename"`
	StoredPath   string       `json:"stored_path"`
	Size         int64        `json:"size"`
	ContentHash  string       `json:"content_hash"`
	PageCount    int          `json:"page_count"`
	Status       FileStatus   `json:"status"`
	Stage        PipelineStage `json:"stage"`
	ErrorKind    ErrorKind    `json:"error_kind,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// IsTerminal reports whether the file has reached done/failed/skipped.
func (f *DocumentFile) IsTerminal() bool {
	switch f.Status {
	case FileStatusDone, FileStatusFailed, FileStatusSkipped:
		return true
	default:
		return false
	}
}
