package models

import "time"

// StageTimings records how long each pipeline stage took, in milliseconds,
// for diagnostics and capacity planning. Zero value means the stage did not
// run (e.g. no chunking performed).
type StageTimings struct {
	OCRMs        int64 `json:"ocr_ms"`
	ExtractionMs int64 `json:"extraction_ms"`
	PersistMs    int64 `json:"persist_ms"`
}

// ScanResult is the persisted structured outcome of processing one
// DocumentFile. Invariant: exactly one ScanResult exists per successfully
// processed DocumentFile.
type ScanResult struct {
	ID               string                 `json:"id"`
	DocumentFileID   string                 `json:"document_file_id"`
	DocumentType     DocumentType           `json:"document_type"`
	RawText          string                 `json:"raw_text"`
	StructuredPayload map[string]interface{} `json:"structured_payload"`
	Confidence       float64                `json:"confidence"`
	OCREngineID      string                 `json:"ocr_engine_id"`
	AIModelID        string                 `json:"ai_model_id,omitempty"`
	Timings          StageTimings           `json:"timings"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// ResultPatch is the input to update_result(result_id, patch): a partial
// structured-payload update representing a user correction. Every patch
// application must be audit-logged by the caller.
type ResultPatch struct {
	ResultID string                 `json:"result_id" validate:"required"`
	Fields   map[string]interface{} `json:"fields" validate:"required"`
}
