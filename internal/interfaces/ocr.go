package interfaces

import "context"

// OCRBlock is a detected text region within a page, used by adapters that
// need positional structure (e.g. column detection) beyond flat text.
type OCRBlock struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// OCRTable is a detected table's cells, row-major.
type OCRTable struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// OCRPage is the per-page result of an OCR call.
type OCRPage struct {
	PageNumber int        `json:"page_number"`
	Text       string     `json:"text"`
	Tables     []OCRTable `json:"tables,omitempty"`
	Blocks     []OCRBlock `json:"blocks,omitempty"`
}

// OCRResult is the uniform shape returned by the OCR Router regardless of
// which engine ultimately served the request.
type OCRResult struct {
	Text             string    `json:"text"`
	Pages            []OCRPage `json:"pages"`
	Confidence       float64   `json:"confidence"`
	EngineID         string    `json:"engine_id"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
}

// CloudOCRClient is the narrow interface the OCR Router consumes for the
// external cloud OCR collaborator (a Google Document AI-compatible
// service). Kept minimal so the router never depends on a concrete SDK
// client, only on this contract.
type CloudOCRClient interface {
	// Process sends raw document bytes (image or PDF) and returns the
	// uniform OCRResult. mimeType is the source content type.
	Process(ctx context.Context, content []byte, mimeType string) (*OCRResult, error)
}

// LocalOCREngine is the narrow interface for a local fallback extractor. It
// need only guarantee text and an approximate confidence — no tables or
// per-line blocks are required.
type LocalOCREngine interface {
	ExtractText(ctx context.Context, content []byte, mimeType string) (text string, confidence float64, err error)
}

// OCRMode selects the engine selection policy.
type OCRMode string

const (
	OCRModeCloudPrimary OCRMode = "cloud_primary"
	OCRModeCloudOnly    OCRMode = "cloud_only"
	OCRModeLocalPrimary OCRMode = "local_primary"
	OCRModeLocalOnly    OCRMode = "local_only"
)

// OCRRouter provides a uniform interface over the cloud OCR collaborator and
// optional local fallbacks. It never decides to chunk a PDF — that decision
// belongs to the Document Pipeline after a page-count probe.
type OCRRouter interface {
	// Process runs OCR over a single-image or single-chunk PDF payload and
	// returns the uniform result, trying engines in the configured mode's
	// deterministic order until one succeeds.
	Process(ctx context.Context, content []byte, mimeType string) (*OCRResult, error)
}
