package interfaces

import "github.com/docuscan/taxpipeline/internal/models"

// Exporter renders one or more ScanResults of a single document type into
// an export artifact. The Exporter Factory selects an implementation by
// document type, falling back to a generic table exporter on mixed types.
type Exporter interface {
	// DocumentType is the type this exporter is registered for.
	DocumentType() models.DocumentType

	// RenderSpreadsheet produces the spreadsheet artifact for the given
	// results (one or more rows per result, depending on document type).
	RenderSpreadsheet(results []*models.ScanResult) (*models.ExportArtifact, error)

	// RenderReport produces the narrative report artifact for a single
	// result (header + styled data section).
	RenderReport(result *models.ScanResult) (*models.ExportArtifact, error)
}
