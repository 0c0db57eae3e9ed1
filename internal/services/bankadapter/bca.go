package bankadapter

import (
	"github.com/docuscan/taxpipeline/internal/interfaces"
)

// BCAAdapter parses Bank Central Asia "rekening koran" statements: separate
// debit/credit columns, single-line descriptions.
type BCAAdapter struct{}

func NewBCAAdapter() *BCAAdapter { return &BCAAdapter{} }

func (a *BCAAdapter) BankName() string { return "Bank Central Asia" }
func (a *BCAAdapter) BankCode() string { return "BCA" }

func (a *BCAAdapter) Detect(ocrText string) bool {
	return detectByKeywords(ocrText, "PT BANK CENTRAL ASIA") || detectByKeywords(ocrText, "BCA", "REKENING KORAN")
}

func (a *BCAAdapter) Parse(ocrText string, tables []interfaces.OCRTable) (*interfaces.AdapterParseResult, error) {
	identity := extractIdentity(ocrText, a.BankName())
	layout := columnLayout{date: 0, description: 1, reference: 2, debit: 3, credit: 4, balance: 5, amountCol: -1, drFlagCol: -1, branch: -1}
	txs := parseRows(tables, layout, a.BankName(), identity.AccountNumber, identity.AccountHolder)
	return &interfaces.AdapterParseResult{Transactions: txs, Identity: identity}, nil
}

var _ interfaces.BankAdapter = (*BCAAdapter)(nil)
