package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/docuscan/taxpipeline/internal/interfaces"
	"github.com/docuscan/taxpipeline/internal/models"
)

// BankStatementResult is the Hybrid Bank Processor's output: a merged
// rekening-koran structured payload plus the confidence score the merge
// policy assigned it.
type BankStatementResult struct {
	Identity     models.AccountIdentity
	Transactions []models.StandardizedTransaction
	Confidence   float64
}

// HybridBankProcessor implements §4.3: run the Bank Adapter Registry and
// the Smart Mapper concurrently over one rekening-koran OCR result, then
// merge deterministically. Concurrency is a WaitGroup over two goroutines,
// each recording its own outcome in local variables (no error channel),
// after events.Service.PublishSync's WaitGroup idiom rather than
// introducing a new concurrency pattern for two tasks.
type HybridBankProcessor struct {
	adapters bankAdapterRegistry
	mapper   interfaces.StructuredMapper
	template templateRegistry
	logger   arbor.ILogger
}

// bankAdapterRegistry and templateRegistry are narrowed to the one method
// this processor calls, so tests can stub them without constructing the
// full bankadapter.Registry / template.Registry types.
type bankAdapterRegistry interface {
	Detect(ocrText string) (interfaces.BankAdapter, bool)
}

type templateRegistry interface {
	Get(docType models.DocumentType) (*models.Template, bool)
}

func NewHybridBankProcessor(adapters bankAdapterRegistry, mapper interfaces.StructuredMapper, templates templateRegistry, logger arbor.ILogger) *HybridBankProcessor {
	return &HybridBankProcessor{adapters: adapters, mapper: mapper, template: templates, logger: logger}
}

// Process runs the adapter and mapper lanes concurrently and merges their
// output per §4.3's deterministic policy.
func (p *HybridBankProcessor) Process(ctx context.Context, ocrText string, tables []interfaces.OCRTable) (*BankStatementResult, error) {
	var (
		wg             sync.WaitGroup
		adapterResult  *interfaces.AdapterParseResult
		adapterSuccess bool
		mapperRecord   map[string]interface{}
		mapperSuccess  bool
	)

	wg.Add(2)

	go func() {
		defer wg.Done()
		adapter, ok := p.adapters.Detect(ocrText)
		if !ok {
			p.logger.Debug().Msg("hybrid bank processor: no adapter matched OCR text")
			return
		}
		result, err := adapter.Parse(ocrText, tables)
		if err != nil {
			p.logger.Warn().Err(err).Str("bank_code", adapter.BankCode()).Msg("hybrid bank processor: adapter parse failed")
			return
		}
		adapterResult = result
		adapterSuccess = true
	}()

	go func() {
		defer wg.Done()
		tmpl, ok := p.template.Get(models.DocTypeRekeningKoran)
		if !ok {
			p.logger.Error().Msg("hybrid bank processor: no rekening_koran template registered")
			return
		}
		mapResult, err := p.mapper.MapStructured(ctx, string(models.DocTypeRekeningKoran), ocrText, tmpl.FieldNames())
		if err != nil {
			p.logger.Warn().Err(err).Msg("hybrid bank processor: smart mapper call failed")
			return
		}
		if mapResult.ParseError {
			p.logger.Warn().Msg("hybrid bank processor: smart mapper response failed to parse")
			return
		}
		mapperRecord = mapResult.Record
		mapperSuccess = true
	}()

	wg.Wait()

	return p.merge(adapterResult, adapterSuccess, mapperRecord, mapperSuccess), nil
}

// merge implements §4.3 step 2-3: transactions prefer the adapter when it
// produced at least one record, metadata prefers the mapper filling gaps
// from the adapter, confidence is the weighted sum, and the combined
// transaction list is deduplicated and ordered deterministically.
func (p *HybridBankProcessor) merge(adapterResult *interfaces.AdapterParseResult, adapterSuccess bool, mapperRecord map[string]interface{}, mapperSuccess bool) *BankStatementResult {
	var transactions []models.StandardizedTransaction
	adapterHasRows := adapterSuccess && adapterResult != nil && len(adapterResult.Transactions) > 0

	if adapterHasRows {
		transactions = adapterResult.Transactions
	} else if mapperSuccess {
		transactions = mapperTransactions(mapperRecord)
	}

	identity := mergeIdentity(adapterResult, adapterSuccess, mapperRecord, mapperSuccess)
	metadataFillScore := metadataFillFraction(identity)

	confidence := 0.0
	if adapterSuccess {
		confidence += 0.50
	}
	if mapperSuccess {
		confidence += 0.30
	}
	confidence += 0.20 * metadataFillScore

	return &BankStatementResult{
		Identity:     identity,
		Transactions: dedupeTransactions(transactions),
		Confidence:   confidence,
	}
}

// mergeIdentity prefers mapper-sourced account/bank metadata and fills any
// empty field from the adapter's identity extraction.
func mergeIdentity(adapterResult *interfaces.AdapterParseResult, adapterSuccess bool, mapperRecord map[string]interface{}, mapperSuccess bool) models.AccountIdentity {
	var identity models.AccountIdentity

	if mapperSuccess {
		identity = identityFromMapperRecord(mapperRecord)
	}

	if adapterSuccess && adapterResult != nil {
		adapterIdentity := adapterResult.Identity
		if identity.BankName == "" {
			identity.BankName = adapterIdentity.BankName
		}
		if identity.AccountNumber == "" {
			identity.AccountNumber = adapterIdentity.AccountNumber
		}
		if identity.AccountHolder == "" {
			identity.AccountHolder = adapterIdentity.AccountHolder
		}
		if identity.Branch == "" {
			identity.Branch = adapterIdentity.Branch
		}
	}

	return identity
}

// metadataFillFraction is the fraction of the four core identity fields
// that ended up populated after merge, used as the 0.20-weighted term in
// the confidence formula.
func metadataFillFraction(identity models.AccountIdentity) float64 {
	filled := 0
	total := 4
	if identity.BankName != "" {
		filled++
	}
	if identity.AccountNumber != "" {
		filled++
	}
	if identity.AccountHolder != "" {
		filled++
	}
	if identity.Branch != "" {
		filled++
	}
	return float64(filled) / float64(total)
}

func identityFromMapperRecord(record map[string]interface{}) models.AccountIdentity {
	bankInfo, _ := record["bank_info"].(map[string]interface{})
	saldoInfo, _ := record["saldo_info"].(map[string]interface{})

	identity := models.AccountIdentity{
		BankName:      stringField(bankInfo, "nama_bank"),
		AccountNumber: stringField(bankInfo, "nomor_rekening"),
		AccountHolder: stringField(bankInfo, "nama_pemegang"),
		PeriodStart:   stringField(bankInfo, "periode"),
	}
	if saldoInfo != nil {
		identity.OpeningBalance, _ = models.ParseRupiah(stringField(saldoInfo, "awal"))
		identity.ClosingBalance, _ = models.ParseRupiah(stringField(saldoInfo, "akhir"))
	}
	return identity
}

func mapperTransactions(record map[string]interface{}) []models.StandardizedTransaction {
	raw, ok := record["transactions"].([]interface{})
	if !ok {
		return nil
	}

	txs := make([]models.StandardizedTransaction, 0, len(raw))
	for i, item := range raw {
		row, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		date, _ := time.Parse("02/01/2006", stringField(row, "transaction_date"))
		debit, _ := models.ParseRupiah(stringField(row, "debit"))
		credit, _ := models.ParseRupiah(stringField(row, "credit"))
		balance, _ := models.ParseRupiah(stringField(row, "balance"))
		txs = append(txs, models.StandardizedTransaction{
			TransactionDate: date,
			Description:     stringField(row, "description"),
			Debit:           debit,
			Credit:          credit,
			Balance:         balance,
			SourceSequence:  i,
		})
	}
	return txs
}

func stringField(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

// dedupeTransactions applies §4.3 step 3: fingerprint-based dedup, ordered
// deterministically by (date, source sequence).
func dedupeTransactions(txs []models.StandardizedTransaction) []models.StandardizedTransaction {
	seen := make(map[string]bool, len(txs))
	out := make([]models.StandardizedTransaction, 0, len(txs))
	for _, tx := range txs {
		fp := tx.Fingerprint()
		if seen[fp] {
			continue
		}
		seen[fp] = true
		out = append(out, tx)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].TransactionDate.Equal(out[j].TransactionDate) {
			return out[i].TransactionDate.Before(out[j].TransactionDate)
		}
		return out[i].SourceSequence < out[j].SourceSequence
	})

	return out
}
