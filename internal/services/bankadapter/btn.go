package bankadapter

import "github.com/docuscan/taxpipeline/internal/interfaces"

// BTNAdapter parses Bank Tabungan Negara statements: separate debit/credit
// columns, reference column absent.
type BTNAdapter struct{}

func NewBTNAdapter() *BTNAdapter { return &BTNAdapter{} }

func (a *BTNAdapter) BankName() string { return "Bank Tabungan Negara" }
func (a *BTNAdapter) BankCode() string { return "BTN" }

func (a *BTNAdapter) Detect(ocrText string) bool {
	return detectByKeywords(ocrText, "BANK TABUNGAN NEGARA") || detectByKeywords(ocrText, "BTN", "REKENING KORAN")
}

func (a *BTNAdapter) Parse(ocrText string, tables []interfaces.OCRTable) (*interfaces.AdapterParseResult, error) {
	identity := extractIdentity(ocrText, a.BankName())
	layout := columnLayout{date: 0, description: 1, reference: -1, debit: 2, credit: 3, balance: 4, branch: -1, amountCol: -1, drFlagCol: -1}
	txs := parseRows(tables, layout, a.BankName(), identity.AccountNumber, identity.AccountHolder)
	return &interfaces.AdapterParseResult{Transactions: txs, Identity: identity}, nil
}

var _ interfaces.BankAdapter = (*BTNAdapter)(nil)
