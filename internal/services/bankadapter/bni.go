package bankadapter

import "github.com/docuscan/taxpipeline/internal/interfaces"

// BNIAdapter parses Bank Negara Indonesia statements: separate debit/credit
// columns plus a branch column.
type BNIAdapter struct{}

func NewBNIAdapter() *BNIAdapter { return &BNIAdapter{} }

func (a *BNIAdapter) BankName() string { return "Bank Negara Indonesia" }
func (a *BNIAdapter) BankCode() string { return "BNI" }

func (a *BNIAdapter) Detect(ocrText string) bool {
	return detectByKeywords(ocrText, "PT BANK NEGARA INDONESIA") || detectByKeywords(ocrText, "BNI", "REKENING KORAN")
}

func (a *BNIAdapter) Parse(ocrText string, tables []interfaces.OCRTable) (*interfaces.AdapterParseResult, error) {
	identity := extractIdentity(ocrText, a.BankName())
	layout := columnLayout{date: 0, description: 1, reference: 2, debit: 3, credit: 4, balance: 5, branch: 6, amountCol: -1, drFlagCol: -1}
	txs := parseRows(tables, layout, a.BankName(), identity.AccountNumber, identity.AccountHolder)
	return &interfaces.AdapterParseResult{Transactions: txs, Identity: identity}, nil
}

var _ interfaces.BankAdapter = (*BNIAdapter)(nil)
