package bankadapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestRegistry_Detect_FirstMatchWins(t *testing.T) {
	r := NewRegistry(arbor.NewLogger())
	require.Len(t, r.Adapters(), 11)

	adapter, ok := r.Detect("PT BANK CENTRAL ASIA Tbk\nREKENING KORAN\n")
	require.True(t, ok)
	assert.Equal(t, "BCA", adapter.BankCode())
}

func TestRegistry_Detect_NoMatch(t *testing.T) {
	r := NewRegistry(arbor.NewLogger())
	_, ok := r.Detect("Some unrelated document with no bank keywords")
	assert.False(t, ok)
}

func TestRegistry_Detect_ProbesEveryKnownBank(t *testing.T) {
	r := NewRegistry(arbor.NewLogger())
	cases := map[string]string{
		"BCA":     "PT BANK CENTRAL ASIA Tbk",
		"MANDIRI": "BANK MANDIRI REKENING KORAN",
		"BNI":     "PT BANK NEGARA INDONESIA REKENING KORAN",
		"BRI":     "PT BANK RAKYAT INDONESIA REKENING KORAN",
		"CIMB":    "CIMB NIAGA REKENING KORAN",
		"PERMATA": "BANK PERMATA REKENING KORAN",
		"DANAMON": "BANK DANAMON REKENING KORAN",
		"OCBC":    "OCBC NISP REKENING KORAN",
		"PANIN":   "PANIN BANK REKENING KORAN",
		"MAYBANK": "MAYBANK INDONESIA REKENING KORAN",
		"BTN":     "BANK TABUNGAN NEGARA REKENING KORAN",
	}
	for wantCode, text := range cases {
		adapter, ok := r.Detect(text)
		require.True(t, ok, text)
		assert.Equal(t, wantCode, adapter.BankCode(), text)
	}
}
