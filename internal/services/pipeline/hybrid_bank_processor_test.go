package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/docuscan/taxpipeline/internal/interfaces"
	"github.com/docuscan/taxpipeline/internal/models"
)

type fakeAdapter struct {
	bankCode string
	result   *interfaces.AdapterParseResult
	err      error
}

func (a *fakeAdapter) BankName() string { return a.bankCode }
func (a *fakeAdapter) BankCode() string { return a.bankCode }
func (a *fakeAdapter) Detect(string) bool { return true }
func (a *fakeAdapter) Parse(string, []interfaces.OCRTable) (*interfaces.AdapterParseResult, error) {
	return a.result, a.err
}

type fakeRegistry struct {
	adapter interfaces.BankAdapter
	matched bool
}

func (r *fakeRegistry) Detect(string) (interfaces.BankAdapter, bool) {
	return r.adapter, r.matched
}

type fakeMapper struct {
	result *interfaces.StructuredMapResult
	err    error
}

func (m *fakeMapper) MapStructured(ctx context.Context, docType string, ocrText string, fields []string) (*interfaces.StructuredMapResult, error) {
	return m.result, m.err
}

type fakeTemplates struct{}

func (fakeTemplates) Get(docType models.DocumentType) (*models.Template, bool) {
	return &models.Template{DocumentType: docType}, true
}

func TestHybridBankProcessor_AdapterWins_WhenItHasRows(t *testing.T) {
	adapterResult := &interfaces.AdapterParseResult{
		Transactions: []models.StandardizedTransaction{
			{TransactionDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Debit: 100000},
		},
		Identity: models.AccountIdentity{BankName: "BCA", AccountNumber: "123"},
	}
	registry := &fakeRegistry{adapter: &fakeAdapter{bankCode: "BCA", result: adapterResult}, matched: true}
	mapper := &fakeMapper{result: &interfaces.StructuredMapResult{Record: map[string]interface{}{
		"bank_info": map[string]interface{}{"nama_bank": "Bank Central Asia", "nomor_rekening": "123", "nama_pemegang": "Budi"},
	}}}

	processor := NewHybridBankProcessor(registry, mapper, fakeTemplates{}, arbor.NewLogger())
	result, err := processor.Process(context.Background(), "ocr text", nil)

	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, models.Money(100000), result.Transactions[0].Debit)
	assert.Equal(t, "Budi", result.Identity.AccountHolder) // mapper metadata preferred
	assert.Equal(t, "123", result.Identity.AccountNumber)
	// 0.50 (adapter) + 0.30 (mapper) + 0.20 * 3/4 (bank/account/holder filled, no branch)
	assert.InDelta(t, 0.95, result.Confidence, 0.001)
}

func TestHybridBankProcessor_FallsBackToMapper_WhenAdapterEmpty(t *testing.T) {
	registry := &fakeRegistry{matched: false}
	mapper := &fakeMapper{result: &interfaces.StructuredMapResult{Record: map[string]interface{}{
		"bank_info": map[string]interface{}{"nama_bank": "Mandiri"},
		"transactions": []interface{}{
			map[string]interface{}{"transaction_date": "01/02/2024", "description": "Transfer", "debit": "100.000,00", "balance": "900.000,00"},
		},
	}}}

	processor := NewHybridBankProcessor(registry, mapper, fakeTemplates{}, arbor.NewLogger())
	result, err := processor.Process(context.Background(), "ocr text", nil)

	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, "Transfer", result.Transactions[0].Description)
}

func TestHybridBankProcessor_BothFail_ReturnsZeroConfidenceNotError(t *testing.T) {
	registry := &fakeRegistry{matched: false}
	mapper := &fakeMapper{err: assertError("provider down")}

	processor := NewHybridBankProcessor(registry, mapper, fakeTemplates{}, arbor.NewLogger())
	result, err := processor.Process(context.Background(), "ocr text", nil)

	require.NoError(t, err)
	assert.Equal(t, 0.0, result.Confidence)
	assert.Empty(t, result.Transactions)
}

func TestHybridBankProcessor_DedupesByFingerprint(t *testing.T) {
	date := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	adapterResult := &interfaces.AdapterParseResult{
		Transactions: []models.StandardizedTransaction{
			{TransactionDate: date, Debit: 100000, Balance: 900000, SourceSequence: 0},
			{TransactionDate: date, Debit: 100000, Balance: 900000, SourceSequence: 1}, // duplicate fingerprint
		},
	}
	registry := &fakeRegistry{adapter: &fakeAdapter{bankCode: "BCA", result: adapterResult}, matched: true}
	mapper := &fakeMapper{result: &interfaces.StructuredMapResult{Record: map[string]interface{}{}}}

	processor := NewHybridBankProcessor(registry, mapper, fakeTemplates{}, arbor.NewLogger())
	result, err := processor.Process(context.Background(), "ocr text", nil)

	require.NoError(t, err)
	assert.Len(t, result.Transactions, 1)
}

type simpleError string

func (e simpleError) Error() string { return string(e) }

func assertError(msg string) error { return simpleError(msg) }
