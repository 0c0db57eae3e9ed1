package bankadapter

import "github.com/docuscan/taxpipeline/internal/interfaces"

// MandiriAdapter parses Bank Mandiri statements: combined amount column with
// a sibling D/C flag column (§4.8).
type MandiriAdapter struct{}

func NewMandiriAdapter() *MandiriAdapter { return &MandiriAdapter{} }

func (a *MandiriAdapter) BankName() string { return "Bank Mandiri" }
func (a *MandiriAdapter) BankCode() string { return "MANDIRI" }

func (a *MandiriAdapter) Detect(ocrText string) bool {
	return detectByKeywords(ocrText, "PT BANK MANDIRI") || detectByKeywords(ocrText, "MANDIRI", "REKENING KORAN")
}

func (a *MandiriAdapter) Parse(ocrText string, tables []interfaces.OCRTable) (*interfaces.AdapterParseResult, error) {
	identity := extractIdentity(ocrText, a.BankName())
	layout := columnLayout{date: 0, description: 1, reference: 2, debit: -1, credit: -1, amountCol: 3, drFlagCol: 4, balance: 5, branch: -1}
	txs := parseRows(tables, layout, a.BankName(), identity.AccountNumber, identity.AccountHolder)
	return &interfaces.AdapterParseResult{Transactions: txs, Identity: identity}, nil
}

var _ interfaces.BankAdapter = (*MandiriAdapter)(nil)
