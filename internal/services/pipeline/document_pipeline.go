package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/docuscan/taxpipeline/internal/interfaces"
	"github.com/docuscan/taxpipeline/internal/models"
)

// DocumentPipeline drives one DocumentFile through §4.2's state machine:
// queued -> ocr_running -> routed -> extracting -> persisting -> done/failed.
// It owns the decision to chunk a large PDF (§4.4's pre-flight sizing
// policy) and the dispatch between the Smart Mapper and the Hybrid Bank
// Processor, but never decides OCR engine selection — that is the Router's
// job.
type DocumentPipeline struct {
	ocr       interfaces.OCRRouter
	chunker   interfaces.PDFChunker
	mapper    interfaces.StructuredMapper
	bankProc  *HybridBankProcessor
	templates templateRegistry
	files     interfaces.DocumentFileStorage
	results   interfaces.ScanResultStorage
	events    interfaces.EventService
	sem       *tokenBucket
	retry     retryConfig

	// chunkPageThreshold forces chunking once a PDF's page count exceeds
	// it, per §4.4's pre-flight sizing policy. chunkSize/chunkOverlap are
	// passed through to PDFChunker.Chunk.
	chunkPageThreshold int
	chunkSize          int
	chunkOverlap       int

	logger arbor.ILogger
}

// NewDocumentPipeline wires the collaborators one DocumentPipeline needs.
// sem is the scheduler's shared OCR/LLM concurrency token bucket: every
// outbound call this pipeline makes acquires a token first, so chunk-level
// parallelism never exceeds the global cap regardless of how many workers
// are running concurrently.
func NewDocumentPipeline(
	ocr interfaces.OCRRouter,
	chunker interfaces.PDFChunker,
	mapper interfaces.StructuredMapper,
	bankProc *HybridBankProcessor,
	templates templateRegistry,
	files interfaces.DocumentFileStorage,
	results interfaces.ScanResultStorage,
	events interfaces.EventService,
	sem *tokenBucket,
	chunkPageThreshold, chunkSize, chunkOverlap int,
	logger arbor.ILogger,
) *DocumentPipeline {
	return &DocumentPipeline{
		ocr:                ocr,
		chunker:            chunker,
		mapper:             mapper,
		bankProc:           bankProc,
		templates:          templates,
		files:              files,
		results:            results,
		events:             events,
		sem:                sem,
		retry:              defaultRetryConfig(),
		chunkPageThreshold: chunkPageThreshold,
		chunkSize:          chunkSize,
		chunkOverlap:       chunkOverlap,
		logger:             logger,
	}
}

// chunkExtraction is the per-chunk (or whole-document, for the unchunked
// path) structured outcome the pipeline merges or persists directly.
type chunkExtraction struct {
	rawText      string
	record       map[string]interface{}
	transactions []models.StandardizedTransaction
	confidence   float64
	aiModelID    string
	engineID     string
}

// Process runs one DocumentFile through the full pipeline and persists its
// outcome. It always returns nil: document-level failures are recorded on
// the file's status/error fields rather than surfaced as a return error, so
// the scheduler's worker loop can move straight on to the next file.
func (p *DocumentPipeline) Process(ctx context.Context, file *models.DocumentFile) error {
	content, err := os.ReadFile(file.StoredPath)
	if err != nil {
		return p.fail(ctx, file, models.NewTaggedError(models.ErrorKindInternal, "read stored file", err))
	}
	if !file.DeclaredType.Known() {
		return p.fail(ctx, file, models.NewTaggedError(models.ErrorKindValidation, "unsupported document type: "+string(file.DeclaredType), nil))
	}

	p.transition(ctx, file, models.StageOCRRunning, "")

	mimeType := mimeTypeForPath(file.StoredPath)
	var result *chunkExtraction

	if mimeType == mimePDF && file.PageCount > p.chunkPageThreshold {
		result, err = p.processChunked(ctx, file)
	} else {
		result, err = p.processSingle(ctx, file.DeclaredType, content, mimeType)
	}
	if err != nil {
		return p.fail(ctx, file, err)
	}

	return p.persistAndFinish(ctx, file, result)
}

// processSingle runs OCR once over the full document, then dispatches the
// OCR text/tables to the Smart Mapper or Hybrid Bank Processor.
func (p *DocumentPipeline) processSingle(ctx context.Context, docType models.DocumentType, content []byte, mimeType string) (*chunkExtraction, error) {
	ocrResult, err := p.runOCR(ctx, content, mimeType)
	if err != nil {
		return nil, err
	}

	var tables []interfaces.OCRTable
	for _, page := range ocrResult.Pages {
		tables = append(tables, page.Tables...)
	}

	return p.extractOne(ctx, docType, ocrResult.Text, tables, ocrResult.EngineID, ocrResult.Confidence)
}

// processChunked implements §4.4's pre-flight-triggered path: split the PDF
// into overlapping page windows, OCR and extract each chunk independently,
// then merge per document type. Chunk files are removed via Cleanup before
// returning, success or failure.
func (p *DocumentPipeline) processChunked(ctx context.Context, file *models.DocumentFile) (*chunkExtraction, error) {
	chunks, err := p.chunker.Chunk(file.StoredPath, p.chunkSize, p.chunkOverlap)
	if err != nil {
		return nil, models.NewTaggedError(models.ErrorKindInternal, "chunk pdf", err)
	}
	defer func() {
		if cerr := p.chunker.Cleanup(chunks); cerr != nil {
			p.logger.Warn().Err(cerr).Str("file_id", file.ID).Msg("document pipeline: chunk cleanup failed")
		}
	}()

	p.logger.Info().Str("file_id", file.ID).Int("chunk_count", len(chunks)).Msg("document pipeline: oversized pdf split into chunks")

	chunkResults := make([]*chunkExtraction, 0, len(chunks))
	for _, chunk := range chunks {
		content, readErr := os.ReadFile(chunk.Path)
		if readErr != nil {
			return nil, models.NewTaggedError(models.ErrorKindInternal, "read pdf chunk", readErr)
		}
		result, extractErr := p.processSingle(ctx, file.DeclaredType, content, mimePDF)
		if extractErr != nil {
			return nil, extractErr
		}
		chunkResults = append(chunkResults, result)
	}

	return mergeChunkResults(file.DeclaredType, chunkResults), nil
}

// mergeChunkResults implements §4.4's merge_results: for rekening koran,
// concatenate transactions and dedupe by fingerprint; for tax documents
// (rarely chunked), take the first non-empty value per field across
// chunks. Raw text is concatenated in chunk order either way, and
// confidence is averaged across chunks.
func mergeChunkResults(docType models.DocumentType, chunks []*chunkExtraction) *chunkExtraction {
	if len(chunks) == 1 {
		return chunks[0]
	}

	merged := &chunkExtraction{record: make(map[string]interface{})}
	var rawText strings.Builder
	var confidenceSum float64
	var engineID string

	for i, c := range chunks {
		if i > 0 {
			rawText.WriteString("\n")
		}
		rawText.WriteString(c.rawText)
		confidenceSum += c.confidence
		if engineID == "" {
			engineID = c.engineID
		}
		if merged.aiModelID == "" {
			merged.aiModelID = c.aiModelID
		}

		if docType == models.DocTypeRekeningKoran {
			merged.transactions = append(merged.transactions, c.transactions...)
			mergeField(merged.record, c.record, "bank_info")
			mergeField(merged.record, c.record, "saldo_info")
		} else {
			for field, value := range c.record {
				if !isEmptyValue(merged.record[field]) {
					continue
				}
				if isEmptyValue(value) {
					continue
				}
				merged.record[field] = value
			}
		}
	}

	if docType == models.DocTypeRekeningKoran {
		merged.transactions = dedupeTransactions(merged.transactions)
		merged.record["transactions"] = transactionsToInterfaceSlice(merged.transactions)
	}

	merged.rawText = rawText.String()
	merged.confidence = confidenceSum / float64(len(chunks))
	merged.engineID = engineID
	return merged
}

// mergeField copies a nested section (e.g. "bank_info") from src into dst
// only if dst doesn't already have a non-empty value for it, implementing
// the "first non-empty value per field" rule one level deeper for the
// sectioned records the Smart Mapper produces.
func mergeField(dst, src map[string]interface{}, section string) {
	if isEmptyValue(dst[section]) && !isEmptyValue(src[section]) {
		dst[section] = src[section]
	}
}

func isEmptyValue(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case map[string]interface{}:
		return len(val) == 0
	case []interface{}:
		return len(val) == 0
	default:
		return false
	}
}

func transactionsToInterfaceSlice(txs []models.StandardizedTransaction) []interface{} {
	out := make([]interface{}, 0, len(txs))
	for _, tx := range txs {
		out = append(out, map[string]interface{}{
			"transaction_date": tx.TransactionDate.Format("02/01/2006"),
			"description":      tx.Description,
			"debit":            tx.Debit,
			"credit":           tx.Credit,
			"balance":          tx.Balance,
		})
	}
	return out
}

// runOCR calls the router with the pipeline's retry policy. OCR errors are
// treated as transient: the router itself already exhausts cloud/local
// fallback internally before reporting failure, so anything it returns is
// either a genuine outage or a deterministic configuration problem that a
// bounded number of retries will not worsen.
func (p *DocumentPipeline) runOCR(ctx context.Context, content []byte, mimeType string) (*interfaces.OCRResult, error) {
	var lastErr error
	for attempt := 0; attempt < p.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, models.NewTaggedError(models.ErrorKindUpstreamTransient, "ocr cancelled", ctx.Err())
			case <-time.After(p.retry.backoff(attempt - 1)):
			}
		}
		if err := p.sem.acquire(ctx); err != nil {
			return nil, models.NewTaggedError(models.ErrorKindUpstreamTransient, "ocr semaphore", err)
		}
		result, err := p.ocr.Process(ctx, content, mimeType)
		p.sem.release()
		if err == nil {
			return result, nil
		}
		lastErr = err
		p.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("document pipeline: ocr attempt failed")
	}
	return nil, models.NewTaggedError(models.ErrorKindUpstreamTransient, "ocr failed after retries", lastErr)
}

// extractOne dispatches one OCR text/tables blob to the Smart Mapper (tax
// documents) or the Hybrid Bank Processor (rekening koran).
func (p *DocumentPipeline) extractOne(ctx context.Context, docType models.DocumentType, ocrText string, tables []interfaces.OCRTable, engineID string, ocrConfidence float64) (*chunkExtraction, error) {
	if docType == models.DocTypeRekeningKoran {
		if err := p.sem.acquire(ctx); err != nil {
			return nil, models.NewTaggedError(models.ErrorKindUpstreamTransient, "bank processor semaphore", err)
		}
		bankResult, err := p.bankProc.Process(ctx, ocrText, tables)
		p.sem.release()
		if err != nil {
			return nil, models.NewTaggedError(models.ErrorKindInternal, "hybrid bank processor", err)
		}
		return &chunkExtraction{
			rawText:      ocrText,
			record:       buildBankPayload(bankResult),
			transactions: bankResult.Transactions,
			confidence:   blendConfidence(bankResult.Confidence, ocrConfidence),
			engineID:     engineID,
		}, nil
	}

	tmpl, ok := p.templates.Get(docType)
	if !ok {
		return nil, models.NewTaggedError(models.ErrorKindValidation, "no template for document type: "+string(docType), nil)
	}

	if err := p.sem.acquire(ctx); err != nil {
		return nil, models.NewTaggedError(models.ErrorKindUpstreamTransient, "mapper semaphore", err)
	}
	mapResult, err := p.mapper.MapStructured(ctx, string(docType), ocrText, tmpl.FieldNames())
	p.sem.release()
	if err != nil {
		return nil, models.NewTaggedError(models.ErrorKindUpstreamTransient, "smart mapper call failed", err)
	}

	confidence := blendConfidence(1.0, ocrConfidence)
	if mapResult.ParseError {
		// Per §4.2, a parse failure surviving the mapper's own single
		// retry is recorded as a low-confidence extraction rather than a
		// pipeline failure, so the file still reaches done for human
		// review instead of retrying a deterministically-malformed
		// response.
		p.logger.Warn().Str("doc_type", string(docType)).Msg("document pipeline: smart mapper response failed to parse")
		confidence = 0
	}

	return &chunkExtraction{
		rawText:    ocrText,
		record:     mapResult.Record,
		confidence: confidence,
		aiModelID:  "smart-mapper",
		engineID:   engineID,
	}, nil
}

// blendConfidence caps extraction confidence at OCR confidence: a perfectly
// parsed record built from unreliable OCR text is not actually reliable.
func blendConfidence(extraction, ocr float64) float64 {
	if ocr > 0 && ocr < extraction {
		return ocr
	}
	return extraction
}

// buildBankPayload shapes a BankStatementResult into the same
// bank_info/saldo_info/transactions record structure the rekening koran
// template and exporter expect.
func buildBankPayload(result *BankStatementResult) map[string]interface{} {
	return map[string]interface{}{
		"bank_info": map[string]interface{}{
			"nama_bank":      result.Identity.BankName,
			"nomor_rekening": result.Identity.AccountNumber,
			"nama_pemegang":  result.Identity.AccountHolder,
			"periode":        result.Identity.PeriodStart,
		},
		"saldo_info": map[string]interface{}{
			"awal":  result.Identity.OpeningBalance,
			"akhir": result.Identity.ClosingBalance,
		},
		"transactions": transactionsToInterfaceSlice(result.Transactions),
	}
}

// persistAndFinish writes the merged extraction result as a ScanResult,
// advances the file to done, and publishes the completion events.
func (p *DocumentPipeline) persistAndFinish(ctx context.Context, file *models.DocumentFile, result *chunkExtraction) error {
	p.transition(ctx, file, models.StageRouted, "")
	p.transition(ctx, file, models.StageExtracting, "")
	p.transition(ctx, file, models.StagePersisting, "")

	scanResult := &models.ScanResult{
		DocumentFileID:    file.ID,
		DocumentType:      file.DeclaredType,
		RawText:           result.rawText,
		StructuredPayload: result.record,
		Confidence:        result.confidence,
		OCREngineID:       result.engineID,
		AIModelID:         result.aiModelID,
	}
	if err := p.results.SaveResult(ctx, scanResult); err != nil {
		return p.fail(ctx, file, models.NewTaggedError(models.ErrorKindInternal, "save scan result", err))
	}

	if err := p.files.UpdateStatus(ctx, file.ID, models.FileStatusDone, models.StageDone, "", ""); err != nil {
		p.logger.Error().Err(err).Str("file_id", file.ID).Msg("document pipeline: update status to done failed")
	}

	p.publish(ctx, interfaces.EventFileStageChanged, map[string]interface{}{
		"batch_id": file.BatchID, "file_id": file.ID, "stage": string(models.StageDone), "timestamp": time.Now(),
	})
	p.publish(ctx, interfaces.EventFileCompleted, map[string]interface{}{
		"batch_id": file.BatchID, "file_id": file.ID, "success": true,
		"transaction_count": len(result.transactions), "timestamp": time.Now(),
	})

	return nil
}

// fail records a terminal failure on the file and publishes the matching
// events. It always returns nil: the caller (the scheduler's worker loop)
// should move on to the next file rather than abort the batch.
func (p *DocumentPipeline) fail(ctx context.Context, file *models.DocumentFile, err error) error {
	kind := models.KindOf(err)
	p.logger.Error().Err(err).Str("file_id", file.ID).Str("kind", string(kind)).Msg("document pipeline: file failed")

	if updErr := p.files.UpdateStatus(ctx, file.ID, models.FileStatusFailed, models.StageFailed, kind, err.Error()); updErr != nil {
		p.logger.Error().Err(updErr).Str("file_id", file.ID).Msg("document pipeline: update status to failed failed")
	}

	p.publish(ctx, interfaces.EventFileStageChanged, map[string]interface{}{
		"batch_id": file.BatchID, "file_id": file.ID, "stage": string(models.StageFailed),
		"error": err.Error(), "timestamp": time.Now(),
	})
	p.publish(ctx, interfaces.EventFileCompleted, map[string]interface{}{
		"batch_id": file.BatchID, "file_id": file.ID, "success": false,
		"transaction_count": 0, "timestamp": time.Now(),
	})

	return nil
}

// transition advances a file's stage in storage and publishes
// EventFileStageChanged, matching kv.Service's publish-after-persist idiom.
func (p *DocumentPipeline) transition(ctx context.Context, file *models.DocumentFile, stage models.PipelineStage, errMsg string) {
	if err := p.files.UpdateStatus(ctx, file.ID, models.FileStatusProcessing, stage, "", errMsg); err != nil {
		p.logger.Warn().Err(err).Str("file_id", file.ID).Str("stage", string(stage)).Msg("document pipeline: stage transition persist failed")
	}
	p.publish(ctx, interfaces.EventFileStageChanged, map[string]interface{}{
		"batch_id": file.BatchID, "file_id": file.ID, "stage": string(stage), "timestamp": time.Now(),
	})
}

func (p *DocumentPipeline) publish(ctx context.Context, eventType interfaces.EventType, payload map[string]interface{}) {
	if p.events == nil {
		return
	}
	if err := p.events.Publish(ctx, interfaces.Event{Type: eventType, Payload: payload}); err != nil {
		p.logger.Debug().Err(err).Str("event_type", string(eventType)).Msg("document pipeline: event publish failed")
	}
}

const mimePDF = "application/pdf"

func mimeTypeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return mimePDF
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".tif", ".tiff":
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}
