package models

// ExportFormat selects the Exporter Factory's output shape.
type ExportFormat string

const (
	ExportFormatSpreadsheet ExportFormat = "spreadsheet"
	ExportFormatReport      ExportFormat = "report"
)

// ExportArtifact is the binary output of export_single/export_batch, along
// with enough metadata for the transport shell to set response headers.
type ExportArtifact struct {
	Filename    string       `json:"filename"`
	ContentType string       `json:"content_type"`
	Format      ExportFormat `json:"format"`
	Bytes       []byte       `json:"-"`
}
