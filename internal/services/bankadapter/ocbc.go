package bankadapter

import "github.com/docuscan/taxpipeline/internal/interfaces"

// OCBCAdapter parses OCBC NISP statements: separate debit/credit columns.
type OCBCAdapter struct{}

func NewOCBCAdapter() *OCBCAdapter { return &OCBCAdapter{} }

func (a *OCBCAdapter) BankName() string { return "OCBC NISP" }
func (a *OCBCAdapter) BankCode() string { return "OCBC" }

func (a *OCBCAdapter) Detect(ocrText string) bool {
	return detectByKeywords(ocrText, "OCBC NISP") || detectByKeywords(ocrText, "OCBC", "REKENING KORAN")
}

func (a *OCBCAdapter) Parse(ocrText string, tables []interfaces.OCRTable) (*interfaces.AdapterParseResult, error) {
	identity := extractIdentity(ocrText, a.BankName())
	layout := columnLayout{date: 0, description: 1, reference: 2, debit: 3, credit: 4, balance: 5, branch: -1, amountCol: -1, drFlagCol: -1}
	txs := parseRows(tables, layout, a.BankName(), identity.AccountNumber, identity.AccountHolder)
	return &interfaces.AdapterParseResult{Transactions: txs, Identity: identity}, nil
}

var _ interfaces.BankAdapter = (*OCBCAdapter)(nil)
