package models

import "time"

// StandardizedTransaction is the canonical bank-statement row shape shared
// by every Bank Adapter and the Smart Mapper's rekening-koran output.
//
// Invariant: Debit > 0 implies Credit == 0, and vice versa (a row is either
// a debit or a credit, never both).
type StandardizedTransaction struct {
	TransactionDate time.Time  `json:"transaction_date"`
	PostingDate     *time.Time `json:"posting_date,omitempty"`
	EffectiveDate   *time.Time `json:"effective_date,omitempty"`
	Description     string     `json:"description"`
	TransactionType string     `json:"transaction_type"`
	ReferenceNumber string     `json:"reference_number"`
	Debit           Money      `json:"debit"`
	Credit          Money      `json:"credit"`
	Balance         Money      `json:"balance"`
	Branch          string     `json:"branch,omitempty"`
	AdditionalInfo  string     `json:"additional_info,omitempty"`
	BankName        string     `json:"bank_name"`
	AccountNumber   string     `json:"account_number"`
	AccountHolder   string     `json:"account_holder"`

	// SourceSequence is the transaction's position within the page/chunk it
	// was parsed from; used for deterministic merge ordering (date, then
	// source sequence) since wall-clock parse order is not guaranteed.
	SourceSequence int `json:"-"`
}

// Valid reports whether the debit/credit exclusivity invariant holds.
func (t *StandardizedTransaction) Valid() bool {
	return !(t.Debit > 0 && t.Credit > 0)
}

// Fingerprint returns the dedup key used by the Hybrid Bank Processor and
// PDF Chunker merge step: (date, debit, credit, balance).
func (t *StandardizedTransaction) Fingerprint() string {
	return t.TransactionDate.Format("2006-01-02") + "|" +
		formatMoneyKey(t.Debit) + "|" + formatMoneyKey(t.Credit) + "|" + formatMoneyKey(t.Balance)
}

func formatMoneyKey(m Money) string {
	// int64 key, stable regardless of locale formatting.
	return (Money(m)).keyString()
}

func (m Money) keyString() string {
	const digits = "0123456789"
	if m == 0 {
		return "0"
	}
	neg := m < 0
	v := int64(m)
	if neg {
		v = -v
	}
	buf := make([]byte, 0, 20)
	for v > 0 {
		buf = append([]byte{digits[v%10]}, buf...)
		v /= 10
	}
	if neg {
		return "-" + string(buf)
	}
	return string(buf)
}

// AccountIdentity is the bank/account metadata an adapter or mapper can
// contribute to a rekening-koran ScanResult.
type AccountIdentity struct {
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	AccountHolder string `json:"account_holder"`
	Branch        string `json:"branch,omitempty"`
	PeriodStart   string `json:"period_start,omitempty"`
	PeriodEnd     string `json:"period_end,omitempty"`
	OpeningBalance Money `json:"opening_balance"`
	ClosingBalance Money `json:"closing_balance"`
}
