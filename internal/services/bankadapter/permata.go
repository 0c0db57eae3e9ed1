package bankadapter

import "github.com/docuscan/taxpipeline/internal/interfaces"

// PermataAdapter parses Bank Permata statements: separate debit/credit
// columns plus a branch column.
type PermataAdapter struct{}

func NewPermataAdapter() *PermataAdapter { return &PermataAdapter{} }

func (a *PermataAdapter) BankName() string { return "Bank Permata" }
func (a *PermataAdapter) BankCode() string { return "PERMATA" }

func (a *PermataAdapter) Detect(ocrText string) bool {
	return detectByKeywords(ocrText, "BANK PERMATA") || detectByKeywords(ocrText, "PERMATA", "REKENING KORAN")
}

func (a *PermataAdapter) Parse(ocrText string, tables []interfaces.OCRTable) (*interfaces.AdapterParseResult, error) {
	identity := extractIdentity(ocrText, a.BankName())
	layout := columnLayout{date: 0, description: 1, reference: 2, debit: 3, credit: 4, balance: 5, branch: 6, amountCol: -1, drFlagCol: -1}
	txs := parseRows(tables, layout, a.BankName(), identity.AccountNumber, identity.AccountHolder)
	return &interfaces.AdapterParseResult{Transactions: txs, Identity: identity}, nil
}

var _ interfaces.BankAdapter = (*PermataAdapter)(nil)
