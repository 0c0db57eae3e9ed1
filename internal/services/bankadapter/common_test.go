package bankadapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuscan/taxpipeline/internal/interfaces"
)

func TestParseIndonesianDate(t *testing.T) {
	cases := []string{"01/02/2024", "01-02-2024", "01/02/24", "01-02-24"}
	for _, c := range cases {
		_, err := parseIndonesianDate(c)
		assert.NoError(t, err, c)
	}
	_, err := parseIndonesianDate("not-a-date")
	assert.Error(t, err)
}

func TestExtractIdentity(t *testing.T) {
	ocrText := "BANK CENTRAL ASIA\nNo. Rekening : 1234567890\nAtas Nama : Budi Santoso\n"
	identity := extractIdentity(ocrText, "Bank Central Asia")
	assert.Equal(t, "Bank Central Asia", identity.BankName)
	assert.Equal(t, "1234567890", identity.AccountNumber)
	assert.Equal(t, "Budi Santoso", identity.AccountHolder)
}

func TestParseRows_SeparateDebitCredit(t *testing.T) {
	layout := columnLayout{date: 0, description: 1, reference: 2, debit: 3, credit: 4, balance: 5, branch: -1, amountCol: -1, drFlagCol: -1}
	tables := []interfaces.OCRTable{
		{
			Rows: [][]string{
				{"01/02/2024", "Transfer keluar", "REF001", "100.000,00", "", "900.000,00"},
				{"", "lanjutan deskripsi", "", "", "", ""},
				{"02/02/2024", "Setoran tunai", "REF002", "", "50.000,00", "950.000,00"},
			},
		},
	}

	txs := parseRows(tables, layout, "Bank Central Asia", "123", "Budi")
	require.Len(t, txs, 2)
	assert.Equal(t, "Transfer keluar lanjutan deskripsi", txs[0].Description)
	assert.Equal(t, int64(10000000), int64(txs[0].Debit))
	assert.Equal(t, int64(90000000), int64(txs[0].Balance))
	assert.Equal(t, int64(5000000), int64(txs[1].Credit))
}

func TestParseRows_CombinedAmountDCFlag(t *testing.T) {
	layout := columnLayout{date: 0, description: 1, reference: 2, debit: -1, credit: -1, amountCol: 3, drFlagCol: 4, balance: 5, branch: -1}
	tables := []interfaces.OCRTable{
		{
			Rows: [][]string{
				{"01/02/2024", "Pembayaran", "REF010", "200.000,00", "D", "800.000,00"},
				{"02/02/2024", "Terima transfer", "REF011", "150.000,00", "C", "950.000,00"},
			},
		},
	}

	txs := parseRows(tables, layout, "Bank Danamon", "456", "Siti")
	require.Len(t, txs, 2)
	assert.True(t, txs[0].Debit > 0)
	assert.True(t, txs[1].Credit > 0)
}

func TestDetectByKeywords(t *testing.T) {
	assert.True(t, detectByKeywords("This is a BCA Rekening Koran statement", "BCA", "rekening koran"))
	assert.False(t, detectByKeywords("Mandiri statement", "BCA"))
}
