package bankadapter

import "github.com/docuscan/taxpipeline/internal/interfaces"

// MaybankAdapter parses Maybank Indonesia statements: separate debit/credit
// columns plus a branch column.
type MaybankAdapter struct{}

func NewMaybankAdapter() *MaybankAdapter { return &MaybankAdapter{} }

func (a *MaybankAdapter) BankName() string { return "Maybank Indonesia" }
func (a *MaybankAdapter) BankCode() string { return "MAYBANK" }

func (a *MaybankAdapter) Detect(ocrText string) bool {
	return detectByKeywords(ocrText, "MAYBANK INDONESIA") || detectByKeywords(ocrText, "MAYBANK", "REKENING KORAN")
}

func (a *MaybankAdapter) Parse(ocrText string, tables []interfaces.OCRTable) (*interfaces.AdapterParseResult, error) {
	identity := extractIdentity(ocrText, a.BankName())
	layout := columnLayout{date: 0, description: 1, reference: 2, debit: 3, credit: 4, balance: 5, branch: 6, amountCol: -1, drFlagCol: -1}
	txs := parseRows(tables, layout, a.BankName(), identity.AccountNumber, identity.AccountHolder)
	return &interfaces.AdapterParseResult{Transactions: txs, Identity: identity}, nil
}

var _ interfaces.BankAdapter = (*MaybankAdapter)(nil)
