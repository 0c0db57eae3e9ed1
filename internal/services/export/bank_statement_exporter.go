package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/docuscan/taxpipeline/internal/models"
)

// bankStatementExporter renders rekening_koran results as one spreadsheet
// row per StandardizedTransaction rather than one row per result, since a
// single statement carries many transactions (§4.9).
type bankStatementExporter struct {
	logger arbor.ILogger
}

func newBankStatementExporter(logger arbor.ILogger) *bankStatementExporter {
	return &bankStatementExporter{logger: logger}
}

func (e *bankStatementExporter) DocumentType() models.DocumentType {
	return models.DocTypeRekeningKoran
}

func (e *bankStatementExporter) RenderSpreadsheet(results []*models.ScanResult) (*models.ExportArtifact, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"document_file_id", "transaction_date", "description", "transaction_type", "reference_number", "debit", "credit", "balance", "bank_name", "account_number"}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	for _, r := range results {
		for _, tx := range extractTransactions(r.StructuredPayload) {
			row := []string{
				r.DocumentFileID,
				tx.TransactionDate.Format("2006-01-02"),
				tx.Description,
				tx.TransactionType,
				tx.ReferenceNumber,
				tx.Debit.String(),
				tx.Credit.String(),
				tx.Balance.String(),
				tx.BankName,
				tx.AccountNumber,
			}
			if err := w.Write(row); err != nil {
				return nil, fmt.Errorf("write csv row: %w", err)
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	return &models.ExportArtifact{
		Filename:    "rekening_koran_export.csv",
		ContentType: "text/csv",
		Format:      models.ExportFormatSpreadsheet,
		Bytes:       buf.Bytes(),
	}, nil
}

func (e *bankStatementExporter) RenderReport(result *models.ScanResult) (*models.ExportArtifact, error) {
	transactions := extractTransactions(result.StructuredPayload)

	var md strings.Builder
	fmt.Fprintf(&md, "# Bank Statement Report\n\n")
	fmt.Fprintf(&md, "Document file: %s  \nConfidence: %.2f  \nExtracted: %s  \nTransactions: %d\n\n",
		result.DocumentFileID, result.Confidence, result.CreatedAt.Format(time.RFC3339), len(transactions))

	md.WriteString("| Date | Description | Debit | Credit | Balance |\n|---|---|---|---|---|\n")
	for _, tx := range transactions {
		fmt.Fprintf(&md, "| %s | %s | %s | %s | %s |\n",
			tx.TransactionDate.Format("2006-01-02"), tx.Description, tx.Debit.String(), tx.Credit.String(), tx.Balance.String())
	}

	pdfBytes, err := renderMarkdownToPDF(md.String(), e.logger)
	if err != nil {
		return nil, err
	}

	return &models.ExportArtifact{
		Filename:    fmt.Sprintf("rekening_koran_%s.pdf", result.DocumentFileID),
		ContentType: "application/pdf",
		Format:      models.ExportFormatReport,
		Bytes:       pdfBytes,
	}, nil
}

// extractTransactions reads the "transactions" key of a structured payload,
// tolerating both the native []models.StandardizedTransaction shape (set
// directly by the Hybrid Bank Processor) and the []interface{} shape a patch
// applied via JSON would produce.
func extractTransactions(payload map[string]interface{}) []models.StandardizedTransaction {
	raw, ok := payload["transactions"]
	if !ok {
		return nil
	}

	if txs, ok := raw.([]models.StandardizedTransaction); ok {
		return txs
	}

	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}

	result := make([]models.StandardizedTransaction, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		tx := models.StandardizedTransaction{}
		if s, ok := m["description"].(string); ok {
			tx.Description = s
		}
		if s, ok := m["transaction_type"].(string); ok {
			tx.TransactionType = s
		}
		if s, ok := m["reference_number"].(string); ok {
			tx.ReferenceNumber = s
		}
		if s, ok := m["bank_name"].(string); ok {
			tx.BankName = s
		}
		if s, ok := m["account_number"].(string); ok {
			tx.AccountNumber = s
		}
		if s, ok := m["transaction_date"].(string); ok {
			if t, err := time.Parse("2006-01-02", s); err == nil {
				tx.TransactionDate = t
			}
		}
		if f, ok := m["debit"].(float64); ok {
			tx.Debit = models.Money(int64(f))
		}
		if f, ok := m["credit"].(float64); ok {
			tx.Credit = models.Money(int64(f))
		}
		if f, ok := m["balance"].(float64); ok {
			tx.Balance = models.Money(int64(f))
		}
		result = append(result, tx)
	}
	return result
}
