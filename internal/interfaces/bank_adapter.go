package interfaces

import "github.com/docuscan/taxpipeline/internal/models"

// AdapterParseResult is what a BankAdapter.Parse call produces.
type AdapterParseResult struct {
	Transactions []models.StandardizedTransaction
	Identity     models.AccountIdentity
}

// BankAdapter is a rule-based parser specialized to one bank statement
// layout. The registry probes adapters in a deterministic order; the first
// whose Detect matches wins. Adding a bank is purely additive: a new file
// implementing this interface plus a registry entry, no change to existing
// adapters or to merge logic.
type BankAdapter interface {
	// BankName is a human-readable bank name, used as metadata and in logs.
	BankName() string

	// BankCode is a short stable identifier (e.g. "BCA", "MANDIRI").
	BankCode() string

	// Detect reports whether ocrText matches this adapter's known layout,
	// typically via a keyword set specific to the bank's statement header.
	Detect(ocrText string) bool

	// Parse extracts transactions and account identity from OCR text plus
	// any detected tables for the same page range.
	Parse(ocrText string, tables []OCRTable) (*AdapterParseResult, error)
}
