package bankadapter

import "github.com/docuscan/taxpipeline/internal/interfaces"

// CIMBAdapter parses CIMB Niaga statements: combined amount + D/C flag
// column layout.
type CIMBAdapter struct{}

func NewCIMBAdapter() *CIMBAdapter { return &CIMBAdapter{} }

func (a *CIMBAdapter) BankName() string { return "CIMB Niaga" }
func (a *CIMBAdapter) BankCode() string { return "CIMB" }

func (a *CIMBAdapter) Detect(ocrText string) bool {
	return detectByKeywords(ocrText, "CIMB NIAGA") || detectByKeywords(ocrText, "CIMB", "REKENING KORAN")
}

func (a *CIMBAdapter) Parse(ocrText string, tables []interfaces.OCRTable) (*interfaces.AdapterParseResult, error) {
	identity := extractIdentity(ocrText, a.BankName())
	layout := columnLayout{date: 0, description: 1, reference: 2, debit: -1, credit: -1, amountCol: 3, drFlagCol: 4, balance: 5, branch: -1}
	txs := parseRows(tables, layout, a.BankName(), identity.AccountNumber, identity.AccountHolder)
	return &interfaces.AdapterParseResult{Transactions: txs, Identity: identity}, nil
}

var _ interfaces.BankAdapter = (*CIMBAdapter)(nil)
