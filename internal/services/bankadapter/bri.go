package bankadapter

import "github.com/docuscan/taxpipeline/internal/interfaces"

// BRIAdapter parses Bank Rakyat Indonesia statements: separate debit/credit
// columns, reference column absent (BRI statements fold the reference into
// the description text).
type BRIAdapter struct{}

func NewBRIAdapter() *BRIAdapter { return &BRIAdapter{} }

func (a *BRIAdapter) BankName() string { return "Bank Rakyat Indonesia" }
func (a *BRIAdapter) BankCode() string { return "BRI" }

func (a *BRIAdapter) Detect(ocrText string) bool {
	return detectByKeywords(ocrText, "PT BANK RAKYAT INDONESIA") || detectByKeywords(ocrText, "BRI", "REKENING KORAN")
}

func (a *BRIAdapter) Parse(ocrText string, tables []interfaces.OCRTable) (*interfaces.AdapterParseResult, error) {
	identity := extractIdentity(ocrText, a.BankName())
	layout := columnLayout{date: 0, description: 1, reference: -1, debit: 2, credit: 3, balance: 4, branch: -1, amountCol: -1, drFlagCol: -1}
	txs := parseRows(tables, layout, a.BankName(), identity.AccountNumber, identity.AccountHolder)
	return &interfaces.AdapterParseResult{Transactions: txs, Identity: identity}, nil
}

var _ interfaces.BankAdapter = (*BRIAdapter)(nil)
