// Package export implements the Exporter Factory (§4.9): per-document-type
// renderers producing a spreadsheet (CSV) artifact or a narrative report
// (markdown rendered to PDF via an fpdf/goldmark pipeline).
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/docuscan/taxpipeline/internal/interfaces"
	"github.com/docuscan/taxpipeline/internal/models"
)

// Factory selects the Exporter registered for a ScanResult's document type,
// falling back to a generic flat-table exporter for unregistered or mixed
// types — mirroring the Bank Adapter Registry's detect-then-fall-back shape.
type Factory struct {
	logger    arbor.ILogger
	exporters map[models.DocumentType]interfaces.Exporter
	fallback  interfaces.Exporter
}

// NewFactory builds the Exporter Factory with one exporter per known
// document type plus a generic fallback for anything else.
func NewFactory(logger arbor.ILogger) *Factory {
	f := &Factory{
		logger:    logger,
		exporters: make(map[models.DocumentType]interfaces.Exporter),
	}
	f.fallback = newGenericExporter("", logger)
	f.exporters[models.DocTypeRekeningKoran] = newBankStatementExporter(logger)
	for _, dt := range []models.DocumentType{models.DocTypeFakturPajak, models.DocTypePPh21, models.DocTypePPh23, models.DocTypeInvoice} {
		f.exporters[dt] = newGenericExporter(dt, logger)
	}
	return f
}

// ForType returns the Exporter registered for docType, or the generic
// fallback if none is registered.
func (f *Factory) ForType(docType models.DocumentType) interfaces.Exporter {
	if e, ok := f.exporters[docType]; ok {
		return e
	}
	return f.fallback
}

// genericExporter flattens a ScanResult's StructuredPayload into one row
// per result for spreadsheets, and a labeled section list for reports.
type genericExporter struct {
	docType models.DocumentType
	logger  arbor.ILogger
}

func newGenericExporter(docType models.DocumentType, logger arbor.ILogger) *genericExporter {
	return &genericExporter{docType: docType, logger: logger}
}

func (e *genericExporter) DocumentType() models.DocumentType {
	return e.docType
}

func (e *genericExporter) RenderSpreadsheet(results []*models.ScanResult) (*models.ExportArtifact, error) {
	columns := collectColumns(results)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := append([]string{"document_file_id", "document_type", "confidence"}, columns...)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	for _, r := range results {
		row := []string{r.DocumentFileID, string(r.DocumentType), strconv.FormatFloat(r.Confidence, 'f', 2, 64)}
		for _, col := range columns {
			row = append(row, formatCell(r.StructuredPayload[col]))
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	return &models.ExportArtifact{
		Filename:    fmt.Sprintf("%s_export.csv", e.docType),
		ContentType: "text/csv",
		Format:      models.ExportFormatSpreadsheet,
		Bytes:       buf.Bytes(),
	}, nil
}

func (e *genericExporter) RenderReport(result *models.ScanResult) (*models.ExportArtifact, error) {
	var md strings.Builder
	fmt.Fprintf(&md, "# %s\n\n", titleFor(result.DocumentType))
	fmt.Fprintf(&md, "Document file: %s  \nConfidence: %.2f  \nExtracted: %s\n\n",
		result.DocumentFileID, result.Confidence, result.CreatedAt.Format(time.RFC3339))

	md.WriteString("| Field | Value |\n|---|---|\n")
	keys := make([]string, 0, len(result.StructuredPayload))
	for k := range result.StructuredPayload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&md, "| %s | %s |\n", k, formatCell(result.StructuredPayload[k]))
	}

	pdfBytes, err := renderMarkdownToPDF(md.String(), e.logger)
	if err != nil {
		return nil, err
	}

	return &models.ExportArtifact{
		Filename:    fmt.Sprintf("%s_%s.pdf", result.DocumentType, result.DocumentFileID),
		ContentType: "application/pdf",
		Format:      models.ExportFormatReport,
		Bytes:       pdfBytes,
	}, nil
}

func collectColumns(results []*models.ScanResult) []string {
	set := make(map[string]struct{})
	for _, r := range results {
		for k := range r.StructuredPayload {
			set[k] = struct{}{}
		}
	}
	columns := make([]string, 0, len(set))
	for k := range set {
		columns = append(columns, k)
	}
	sort.Strings(columns)
	return columns
}

func formatCell(v interface{}) string {
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func titleFor(docType models.DocumentType) string {
	switch docType {
	case models.DocTypeFakturPajak:
		return "Faktur Pajak Report"
	case models.DocTypePPh21:
		return "PPh 21 Report"
	case models.DocTypePPh23:
		return "PPh 23 Report"
	case models.DocTypeInvoice:
		return "Invoice Report"
	case models.DocTypeRekeningKoran:
		return "Bank Statement Report"
	default:
		return "Document Report"
	}
}
