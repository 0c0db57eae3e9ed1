package bankadapter

import "github.com/docuscan/taxpipeline/internal/interfaces"

// PaninAdapter parses Panin Bank statements: combined amount + D/C flag
// column layout.
type PaninAdapter struct{}

func NewPaninAdapter() *PaninAdapter { return &PaninAdapter{} }

func (a *PaninAdapter) BankName() string { return "Panin Bank" }
func (a *PaninAdapter) BankCode() string { return "PANIN" }

func (a *PaninAdapter) Detect(ocrText string) bool {
	return detectByKeywords(ocrText, "PANIN BANK") || detectByKeywords(ocrText, "PANIN", "REKENING KORAN")
}

func (a *PaninAdapter) Parse(ocrText string, tables []interfaces.OCRTable) (*interfaces.AdapterParseResult, error) {
	identity := extractIdentity(ocrText, a.BankName())
	layout := columnLayout{date: 0, description: 1, reference: 2, debit: -1, credit: -1, amountCol: 3, drFlagCol: 4, balance: 5, branch: -1}
	txs := parseRows(tables, layout, a.BankName(), identity.AccountNumber, identity.AccountHolder)
	return &interfaces.AdapterParseResult{Transactions: txs, Identity: identity}, nil
}

var _ interfaces.BankAdapter = (*PaninAdapter)(nil)
