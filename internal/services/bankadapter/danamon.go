package bankadapter

import "github.com/docuscan/taxpipeline/internal/interfaces"

// DanamonAdapter parses Bank Danamon statements: combined amount + D/C flag
// column layout.
type DanamonAdapter struct{}

func NewDanamonAdapter() *DanamonAdapter { return &DanamonAdapter{} }

func (a *DanamonAdapter) BankName() string { return "Bank Danamon" }
func (a *DanamonAdapter) BankCode() string { return "DANAMON" }

func (a *DanamonAdapter) Detect(ocrText string) bool {
	return detectByKeywords(ocrText, "BANK DANAMON") || detectByKeywords(ocrText, "DANAMON", "REKENING KORAN")
}

func (a *DanamonAdapter) Parse(ocrText string, tables []interfaces.OCRTable) (*interfaces.AdapterParseResult, error) {
	identity := extractIdentity(ocrText, a.BankName())
	layout := columnLayout{date: 0, description: 1, reference: 2, debit: -1, credit: -1, amountCol: 3, drFlagCol: 4, balance: 5, branch: -1}
	txs := parseRows(tables, layout, a.BankName(), identity.AccountNumber, identity.AccountHolder)
	return &interfaces.AdapterParseResult{Transactions: txs, Identity: identity}, nil
}

var _ interfaces.BankAdapter = (*DanamonAdapter)(nil)
