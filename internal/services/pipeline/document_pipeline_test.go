package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/docuscan/taxpipeline/internal/interfaces"
	"github.com/docuscan/taxpipeline/internal/models"
)

type fakeOCRRouter struct {
	results []*interfaces.OCRResult
	errs    []error
	calls   int
}

func (r *fakeOCRRouter) Process(ctx context.Context, content []byte, mimeType string) (*interfaces.OCRResult, error) {
	i := r.calls
	r.calls++
	if i < len(r.errs) && r.errs[i] != nil {
		return nil, r.errs[i]
	}
	if i < len(r.results) {
		return r.results[i], nil
	}
	return r.results[len(r.results)-1], nil
}

type fakeChunker struct {
	chunks       []interfaces.PDFChunk
	cleanupPaths []interfaces.PDFChunk
}

func (c *fakeChunker) CountPages(path string) (int, error) { return len(c.chunks), nil }
func (c *fakeChunker) Chunk(path string, chunkSize, overlap int) ([]interfaces.PDFChunk, error) {
	return c.chunks, nil
}
func (c *fakeChunker) Cleanup(chunks []interfaces.PDFChunk) error {
	c.cleanupPaths = chunks
	return nil
}

type fakeFileStore struct {
	updates []models.FileStatus
	stages  []models.PipelineStage
}

func (s *fakeFileStore) SaveFile(ctx context.Context, file *models.DocumentFile) error { return nil }
func (s *fakeFileStore) GetFile(ctx context.Context, id string) (*models.DocumentFile, error) {
	return nil, nil
}
func (s *fakeFileStore) ListFilesByBatch(ctx context.Context, batchID string) ([]*models.DocumentFile, error) {
	return nil, nil
}
func (s *fakeFileStore) UpdateStatus(ctx context.Context, fileID string, status models.FileStatus, stage models.PipelineStage, errKind models.ErrorKind, errMsg string) error {
	s.updates = append(s.updates, status)
	s.stages = append(s.stages, stage)
	return nil
}
func (s *fakeFileStore) GetStaleProcessingFiles(ctx context.Context, staleAfterSeconds int) ([]*models.DocumentFile, error) {
	return nil, nil
}

type fakeResultStore struct {
	saved []*models.ScanResult
}

func (s *fakeResultStore) SaveResult(ctx context.Context, result *models.ScanResult) error {
	s.saved = append(s.saved, result)
	return nil
}
func (s *fakeResultStore) GetResult(ctx context.Context, id string) (*models.ScanResult, error) {
	return nil, nil
}
func (s *fakeResultStore) GetResultByFile(ctx context.Context, documentFileID string) (*models.ScanResult, error) {
	return nil, nil
}
func (s *fakeResultStore) ListResultsByBatch(ctx context.Context, batchID string) ([]*models.ScanResult, error) {
	return nil, nil
}
func (s *fakeResultStore) ApplyPatch(ctx context.Context, patch *models.ResultPatch) (*models.ScanResult, error) {
	return nil, nil
}

type fakeEvents struct {
	published []interfaces.Event
}

func (e *fakeEvents) Subscribe(eventType interfaces.EventType, handler interfaces.EventHandler) error {
	return nil
}
func (e *fakeEvents) Unsubscribe(eventType interfaces.EventType, handler interfaces.EventHandler) error {
	return nil
}
func (e *fakeEvents) Publish(ctx context.Context, event interfaces.Event) error {
	e.published = append(e.published, event)
	return nil
}
func (e *fakeEvents) PublishSync(ctx context.Context, event interfaces.Event) error {
	return e.Publish(ctx, event)
}
func (e *fakeEvents) Close() error { return nil }

func newTestPipeline(t *testing.T, ocr interfaces.OCRRouter, chunker interfaces.PDFChunker, mapper interfaces.StructuredMapper, bankProc *HybridBankProcessor, files *fakeFileStore, results *fakeResultStore, events *fakeEvents) *DocumentPipeline {
	t.Helper()
	return NewDocumentPipeline(ocr, chunker, mapper, bankProc, fakeTemplates{}, files, results, events, newTokenBucket(4), 10, 8, 1, arbor.NewLogger())
}

func writeTestFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDocumentPipeline_TaxDocument_HappyPath(t *testing.T) {
	ocr := &fakeOCRRouter{results: []*interfaces.OCRResult{{Text: "faktur text", EngineID: "cloud-doc-ai", Confidence: 0.9}}}
	mapper := &fakeMapper{result: &interfaces.StructuredMapResult{Record: map[string]interface{}{"invoice": map[string]interface{}{"number": "001"}}}}
	files := &fakeFileStore{}
	results := &fakeResultStore{}
	events := &fakeEvents{}

	p := newTestPipeline(t, ocr, &fakeChunker{}, mapper, nil, files, results, events)
	file := &models.DocumentFile{ID: "f1", BatchID: "b1", DeclaredType: models.DocTypeFakturPajak, StoredPath: writeTestFile(t, "irrelevant bytes")}

	err := p.Process(context.Background(), file)

	require.NoError(t, err)
	require.Len(t, results.saved, 1)
	assert.Equal(t, 0.9, results.saved[0].Confidence)
	assert.Equal(t, models.FileStatusDone, files.updates[len(files.updates)-1])
}

func TestDocumentPipeline_RekeningKoran_UsesHybridBankProcessor(t *testing.T) {
	ocr := &fakeOCRRouter{results: []*interfaces.OCRResult{{Text: "statement text", EngineID: "cloud-doc-ai", Confidence: 1.0}}}
	registry := &fakeRegistry{matched: false}
	mapper := &fakeMapper{result: &interfaces.StructuredMapResult{Record: map[string]interface{}{
		"transactions": []interface{}{
			map[string]interface{}{"transaction_date": "01/02/2024", "description": "Transfer", "debit": "100.000,00"},
		},
	}}}
	bankProc := NewHybridBankProcessor(registry, mapper, fakeTemplates{}, arbor.NewLogger())
	files := &fakeFileStore{}
	results := &fakeResultStore{}
	events := &fakeEvents{}

	p := newTestPipeline(t, ocr, &fakeChunker{}, mapper, bankProc, files, results, events)
	file := &models.DocumentFile{ID: "f2", BatchID: "b1", DeclaredType: models.DocTypeRekeningKoran, StoredPath: writeTestFile(t, "irrelevant bytes")}

	err := p.Process(context.Background(), file)

	require.NoError(t, err)
	require.Len(t, results.saved, 1)
	payload := results.saved[0].StructuredPayload
	txs, ok := payload["transactions"].([]interface{})
	require.True(t, ok)
	assert.Len(t, txs, 1)
}

func TestDocumentPipeline_UnsupportedType_FailsFast(t *testing.T) {
	files := &fakeFileStore{}
	results := &fakeResultStore{}
	events := &fakeEvents{}

	p := newTestPipeline(t, &fakeOCRRouter{}, &fakeChunker{}, &fakeMapper{}, nil, files, results, events)
	file := &models.DocumentFile{ID: "f3", BatchID: "b1", DeclaredType: models.DocumentType("unknown"), StoredPath: writeTestFile(t, "bytes")}

	err := p.Process(context.Background(), file)

	require.NoError(t, err)
	assert.Empty(t, results.saved)
	assert.Equal(t, models.FileStatusFailed, files.updates[len(files.updates)-1])
}

func TestDocumentPipeline_OCRFailsAfterRetries_MarksFileFailed(t *testing.T) {
	ocr := &fakeOCRRouter{errs: []error{assertError("503"), assertError("503"), assertError("503"), assertError("503")}}
	files := &fakeFileStore{}
	results := &fakeResultStore{}
	events := &fakeEvents{}

	p := newTestPipeline(t, ocr, &fakeChunker{}, &fakeMapper{}, nil, files, results, events)
	p.retry = retryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, BackoffMultiplier: 1}
	file := &models.DocumentFile{ID: "f4", BatchID: "b1", DeclaredType: models.DocTypeFakturPajak, StoredPath: writeTestFile(t, "bytes")}

	err := p.Process(context.Background(), file)

	require.NoError(t, err)
	assert.Empty(t, results.saved)
	assert.Equal(t, models.FileStatusFailed, files.updates[len(files.updates)-1])
	assert.Equal(t, 2, ocr.calls)
}

func TestDocumentPipeline_ChunkedPDF_MergesTransactionsAndDedupes(t *testing.T) {
	ocr := &fakeOCRRouter{results: []*interfaces.OCRResult{
		{Text: "chunk 1 text", EngineID: "cloud-doc-ai", Confidence: 0.95},
		{Text: "chunk 2 text", EngineID: "cloud-doc-ai", Confidence: 0.92},
	}}
	registry := &fakeRegistry{matched: false}
	callCount := 0
	mapperResults := []map[string]interface{}{
		{"transactions": []interface{}{
			map[string]interface{}{"transaction_date": "01/02/2024", "description": "A", "debit": "100.000,00", "balance": "900.000,00"},
		}},
		{"transactions": []interface{}{
			// overlap page repeats the same row, must dedupe away
			map[string]interface{}{"transaction_date": "01/02/2024", "description": "A", "debit": "100.000,00", "balance": "900.000,00"},
			map[string]interface{}{"transaction_date": "02/02/2024", "description": "B", "credit": "50.000,00", "balance": "950.000,00"},
		}},
	}
	mapper := &sequencedMapper{results: mapperResults, callCount: &callCount}
	bankProc := NewHybridBankProcessor(registry, mapper, fakeTemplates{}, arbor.NewLogger())

	chunker := &fakeChunker{chunks: []interfaces.PDFChunk{
		{Path: writeTestFile(t, "chunk one"), StartPage: 1, EndPage: 8},
		{Path: writeTestFile(t, "chunk two"), StartPage: 8, EndPage: 15},
	}}
	files := &fakeFileStore{}
	results := &fakeResultStore{}
	events := &fakeEvents{}

	p := newTestPipeline(t, ocr, chunker, mapper, bankProc, files, results, events)
	file := &models.DocumentFile{ID: "f5", BatchID: "b1", DeclaredType: models.DocTypeRekeningKoran, PageCount: 15, StoredPath: writeTestFile(t, "whole doc")}

	err := p.Process(context.Background(), file)

	require.NoError(t, err)
	require.Len(t, results.saved, 1)
	txs, ok := results.saved[0].StructuredPayload["transactions"].([]interface{})
	require.True(t, ok)
	assert.Len(t, txs, 2)
	assert.NotEmpty(t, chunker.cleanupPaths)
}

// sequencedMapper returns a different canned record on each call, used to
// simulate per-chunk extraction results in the chunked-PDF test.
type sequencedMapper struct {
	results   []map[string]interface{}
	callCount *int
}

func (m *sequencedMapper) MapStructured(ctx context.Context, docType string, ocrText string, fields []string) (*interfaces.StructuredMapResult, error) {
	i := *m.callCount
	*m.callCount++
	if i >= len(m.results) {
		return &interfaces.StructuredMapResult{Record: map[string]interface{}{}}, nil
	}
	return &interfaces.StructuredMapResult{Record: m.results[i]}, nil
}
