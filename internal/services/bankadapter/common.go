// Package bankadapter implements the Bank Adapter Registry (§4.8): one
// rule-based parser per known Indonesian bank statement layout, each
// advertising a detection keyword set and an expected column layout, probed
// in a deterministic order until one matches.
package bankadapter

import (
	"fmt"
	"strings"
	"time"

	"github.com/docuscan/taxpipeline/internal/interfaces"
	"github.com/docuscan/taxpipeline/internal/models"
)

// columnLayout describes where a bank's statement table carries each field,
// so the shared row-parsing helper can serve every adapter's Parse method
// without duplicating the table-walk loop eleven times. -1 means the column
// is absent from this bank's layout.
type columnLayout struct {
	date        int
	description int
	reference   int
	debit       int
	credit      int
	// amountCol and drFlagCol together describe a combined amount+D/C-flag
	// layout (§4.8 "D/C flag columns"): amountCol holds the magnitude,
	// drFlagCol holds a sibling "D"/"C" marker selecting debit vs credit.
	// When set, debit/credit above are ignored.
	amountCol int
	drFlagCol int
	balance   int
	branch    int
}

// parseRows walks tables using layout, accumulating multi-line descriptions
// (§4.8) into the previous row when a row's date column is empty — the
// convention every observed Indonesian statement layout uses for wrapped
// description text.
func parseRows(tables []interfaces.OCRTable, layout columnLayout, bankName, accountNumber, accountHolder string) []models.StandardizedTransaction {
	var out []models.StandardizedTransaction

	for _, table := range tables {
		for seq, row := range table.Rows {
			dateCell := cell(row, layout.date)
			if strings.TrimSpace(dateCell) == "" {
				if len(out) > 0 {
					out[len(out)-1].Description = strings.TrimSpace(out[len(out)-1].Description + " " + cell(row, layout.description))
				}
				continue
			}

			date, err := parseIndonesianDate(dateCell)
			if err != nil {
				continue
			}


			tx := models.StandardizedTransaction{
				TransactionDate: date,
				Description:     strings.TrimSpace(cell(row, layout.description)),
				ReferenceNumber: strings.TrimSpace(cell(row, layout.reference)),
				Branch:          strings.TrimSpace(cell(row, layout.branch)),
				BankName:        bankName,
				AccountNumber:   accountNumber,
				AccountHolder:   accountHolder,
				SourceSequence:  seq,
			}

			if layout.amountCol >= 0 {
				amount, _ := models.ParseRupiah(cell(row, layout.amountCol))
				flag := strings.ToUpper(strings.TrimSpace(cell(row, layout.drFlagCol)))
				if strings.HasPrefix(flag, "D") {
					tx.Debit = amount
				} else {
					tx.Credit = amount
				}
			} else {
				tx.Debit, _ = models.ParseRupiah(cell(row, layout.debit))
				tx.Credit, _ = models.ParseRupiah(cell(row, layout.credit))
			}
			tx.Balance, _ = models.ParseRupiah(cell(row, layout.balance))

			out = append(out, tx)
		}
	}

	return out
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// parseIndonesianDate accepts the DD/MM/YYYY and DD-MM-YYYY forms seen
// across the 11 bank layouts.
func parseIndonesianDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"02/01/2006", "02-01-2006", "02/01/06", "02-01-06"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %q", s)
}

// accountNumberPattern and accountHolderPattern scan a statement's header
// block (the lines above the transaction table) for the account number and
// holder name. Every observed layout labels these lines "No. Rekening" /
// "Nomor Rekening" and "Nama"/"Atas Nama" respectively, so a single scan
// serves all 11 adapters.
var (
	accountNumberLabels = []string{"no. rekening", "nomor rekening", "no rekening", "account no"}
	accountHolderLabels = []string{"atas nama", "nama nasabah", "nama pemegang", "account name", "nama"}
)

// extractIdentity builds an AccountIdentity by scanning ocrText's header
// lines for the labels above. Returns zero-value fields for anything not
// found; the Smart Mapper's rekening_koran lane is the fallback source of
// truth when the rule-based scan comes up empty (§4.3).
func extractIdentity(ocrText, bankName string) models.AccountIdentity {
	identity := models.AccountIdentity{BankName: bankName}
	for _, line := range strings.Split(ocrText, "\n") {
		lower := strings.ToLower(line)
		if identity.AccountNumber == "" {
			if v, ok := valueAfterLabel(lower, line, accountNumberLabels); ok {
				identity.AccountNumber = v
			}
		}
		if identity.AccountHolder == "" {
			if v, ok := valueAfterLabel(lower, line, accountHolderLabels); ok {
				identity.AccountHolder = v
			}
		}
	}
	return identity
}

func valueAfterLabel(lowerLine, originalLine string, labels []string) (string, bool) {
	for _, label := range labels {
		if idx := strings.Index(lowerLine, label); idx >= 0 {
			rest := originalLine[idx+len(label):]
			rest = strings.TrimLeft(rest, " :.\t")
			rest = strings.TrimSpace(rest)
			if rest != "" {
				return rest, true
			}
		}
	}
	return "", false
}

// detectByKeywords reports whether ocrText (case-insensitively) contains
// every keyword in keywords — the shared detection strategy every adapter
// uses against its bank's statement header.
func detectByKeywords(ocrText string, keywords ...string) bool {
	lower := strings.ToLower(ocrText)
	for _, kw := range keywords {
		if !strings.Contains(lower, strings.ToLower(kw)) {
			return false
		}
	}
	return true
}
