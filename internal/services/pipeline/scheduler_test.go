package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/docuscan/taxpipeline/internal/common"
	"github.com/docuscan/taxpipeline/internal/interfaces"
	"github.com/docuscan/taxpipeline/internal/models"
)

// fakeBatchStore is an in-memory interfaces.BatchStorage good enough to
// exercise the scheduler's counter and status transitions.
type fakeBatchStore struct {
	mu      sync.Mutex
	batches map[string]*models.Batch
}

func newFakeBatchStore() *fakeBatchStore {
	return &fakeBatchStore{batches: make(map[string]*models.Batch)}
}

func (s *fakeBatchStore) SaveBatch(ctx context.Context, batch *models.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *batch
	s.batches[batch.ID] = &cp
	return nil
}

func (s *fakeBatchStore) GetBatch(ctx context.Context, id string) (*models.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[id]
	if !ok {
		return nil, assertError("batch not found")
	}
	cp := *b
	return &cp, nil
}

func (s *fakeBatchStore) ListBatches(ctx context.Context, opts interfaces.ListOptions) ([]*models.Batch, error) {
	return nil, nil
}

func (s *fakeBatchStore) DeleteBatch(ctx context.Context, id string) error { return nil }

func (s *fakeBatchStore) UpdateCounters(ctx context.Context, batchID string, filesProcessedDelta, filesFailedDelta, pagesProcessedDelta int) (*models.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[batchID]
	if !ok {
		return nil, assertError("batch not found")
	}
	b.FilesProcessed += filesProcessedDelta
	b.FilesFailed += filesFailedDelta
	b.PagesProcessed += pagesProcessedDelta
	cp := *b
	return &cp, nil
}

func (s *fakeBatchStore) SetStatus(ctx context.Context, batchID string, status models.BatchStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[batchID]
	if !ok {
		return assertError("batch not found")
	}
	b.Status = status
	return nil
}

func (s *fakeBatchStore) SetCancelRequested(ctx context.Context, batchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[batchID]
	if !ok {
		return assertError("batch not found")
	}
	b.CancelRequested = true
	return nil
}

// fakeFileStoreScheduler extends the plain fakeFileStore with real
// persistence, since the scheduler (unlike the pipeline-only tests) reads
// files back by ID and lists them by batch.
type fakeFileStoreScheduler struct {
	mu    sync.Mutex
	files map[string]*models.DocumentFile
}

func newFakeFileStoreScheduler() *fakeFileStoreScheduler {
	return &fakeFileStoreScheduler{files: make(map[string]*models.DocumentFile)}
}

func (s *fakeFileStoreScheduler) SaveFile(ctx context.Context, file *models.DocumentFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *file
	s.files[file.ID] = &cp
	return nil
}

func (s *fakeFileStoreScheduler) GetFile(ctx context.Context, id string) (*models.DocumentFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok {
		return nil, assertError("file not found")
	}
	cp := *f
	return &cp, nil
}

func (s *fakeFileStoreScheduler) ListFilesByBatch(ctx context.Context, batchID string) ([]*models.DocumentFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.DocumentFile
	for _, f := range s.files {
		if f.BatchID == batchID {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeFileStoreScheduler) UpdateStatus(ctx context.Context, fileID string, status models.FileStatus, stage models.PipelineStage, errKind models.ErrorKind, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[fileID]
	if !ok {
		return assertError("file not found")
	}
	f.Status = status
	f.Stage = stage
	f.ErrorKind = errKind
	f.ErrorMessage = errMsg
	return nil
}

func (s *fakeFileStoreScheduler) GetStaleProcessingFiles(ctx context.Context, staleAfterSeconds int) ([]*models.DocumentFile, error) {
	return nil, nil
}

func newTestScheduler(t *testing.T, ocr interfaces.OCRRouter, mapper interfaces.StructuredMapper, files *fakeFileStoreScheduler, batches *fakeBatchStore, results *fakeResultStore, events *fakeEvents, workerPoolSize int) *Scheduler {
	t.Helper()
	docs := NewDocumentPipeline(ocr, &fakeChunker{}, mapper, nil, fakeTemplates{}, files, results, events, newTokenBucket(4), 10, 8, 1, arbor.NewLogger())
	cfg := common.SchedulerConfig{
		WorkerPoolSize:      workerPoolSize,
		MaxFilesPerBatch:    50,
		MaxArchiveFiles:     100,
		ArchiveAllowedTypes: nil,
		MaxFileBytes:        10 << 20,
		StaleAfterSeconds:   600,
	}
	return NewScheduler(batches, files, results, events, docs, cfg, arbor.NewLogger())
}

func waitForTerminal(t *testing.T, batches *fakeBatchStore, batchID string) *models.Batch {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		b, err := batches.GetBatch(context.Background(), batchID)
		require.NoError(t, err)
		if b.IsTerminal() {
			return b
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("batch never reached a terminal status")
	return nil
}

func TestScheduler_Submit_RejectsEmptyBatch(t *testing.T) {
	files := newFakeFileStoreScheduler()
	batches := newFakeBatchStore()
	s := newTestScheduler(t, &fakeOCRRouter{}, &fakeMapper{}, files, batches, &fakeResultStore{}, &fakeEvents{}, 1)

	_, err := s.Submit(context.Background(), &models.BatchDescriptor{Owner: "alice"})
	require.Error(t, err)
	assert.Equal(t, models.ErrorKindValidation, models.KindOf(err))
}

func TestScheduler_Submit_RejectsOverCapBatch(t *testing.T) {
	files := newFakeFileStoreScheduler()
	batches := newFakeBatchStore()
	s := newTestScheduler(t, &fakeOCRRouter{}, &fakeMapper{}, files, batches, &fakeResultStore{}, &fakeEvents{}, 1)
	s.config.MaxFilesPerBatch = 1
	s.config.MaxArchiveFiles = 1

	descriptor := &models.BatchDescriptor{Owner: "alice", Files: []models.FileSubmission{
		{Filename: "a.pdf", DeclaredType: "faktur_pajak", StoredPath: writeTestFile(t, "a")},
		{Filename: "b.pdf", DeclaredType: "faktur_pajak", StoredPath: writeTestFile(t, "b")},
	}}

	_, err := s.Submit(context.Background(), descriptor)
	require.Error(t, err)
}

func TestScheduler_SubmitAndProcess_BatchCompletes(t *testing.T) {
	ocr := &fakeOCRRouter{results: []*interfaces.OCRResult{{Text: "faktur text", EngineID: "cloud-doc-ai", Confidence: 0.9}}}
	mapper := &fakeMapper{result: &interfaces.StructuredMapResult{Record: map[string]interface{}{"invoice": map[string]interface{}{"number": "001"}}}}
	files := newFakeFileStoreScheduler()
	batches := newFakeBatchStore()
	results := &fakeResultStore{}
	events := &fakeEvents{}

	s := newTestScheduler(t, ocr, mapper, files, batches, results, events, 2)
	s.Start(context.Background())
	defer s.Stop()

	descriptor := &models.BatchDescriptor{Owner: "alice", Files: []models.FileSubmission{
		{Filename: "a.pdf", DeclaredType: "faktur_pajak", StoredPath: writeTestFile(t, "a")},
	}}
	batchID, err := s.Submit(context.Background(), descriptor)
	require.NoError(t, err)

	final := waitForTerminal(t, batches, batchID)
	assert.Equal(t, models.BatchStatusCompleted, final.Status)
	assert.Equal(t, 1, final.FilesProcessed)
	assert.Equal(t, 0, final.FilesFailed)

	resultsOut, err := s.Results(context.Background(), batchID)
	require.NoError(t, err)
	assert.Len(t, resultsOut, 0) // fakeResultStore.ListResultsByBatch is a stub returning nil
}

func TestScheduler_SomeFilesFail_BatchPartial(t *testing.T) {
	files := newFakeFileStoreScheduler()
	batches := newFakeBatchStore()
	results := &fakeResultStore{}
	events := &fakeEvents{}

	ocr := &fakeOCRRouter{errs: []error{assertError("503"), assertError("503"), assertError("503"), assertError("503")}}
	s := newTestScheduler(t, ocr, &fakeMapper{}, files, batches, results, events, 2)
	s.docs.retry = retryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, BackoffMultiplier: 1}
	s.Start(context.Background())
	defer s.Stop()

	descriptor := &models.BatchDescriptor{Owner: "alice", Files: []models.FileSubmission{
		{Filename: "a.pdf", DeclaredType: "faktur_pajak", StoredPath: writeTestFile(t, "a")},
	}}
	batchID, err := s.Submit(context.Background(), descriptor)
	require.NoError(t, err)

	final := waitForTerminal(t, batches, batchID)
	assert.Equal(t, models.BatchStatusPartial, final.Status)
	assert.Equal(t, 1, final.FilesFailed)
}

func TestScheduler_Cancel_SkipsQueuedFiles(t *testing.T) {
	files := newFakeFileStoreScheduler()
	batches := newFakeBatchStore()
	results := &fakeResultStore{}
	events := &fakeEvents{}

	// Zero workers: nothing drains the queue, so cancel observes every file
	// still in the "queued" state.
	s := newTestScheduler(t, &fakeOCRRouter{}, &fakeMapper{}, files, batches, results, events, 1)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	defer s.cancel()

	descriptor := &models.BatchDescriptor{Owner: "alice", Files: []models.FileSubmission{
		{Filename: "a.pdf", DeclaredType: "faktur_pajak", StoredPath: writeTestFile(t, "a")},
		{Filename: "b.pdf", DeclaredType: "faktur_pajak", StoredPath: writeTestFile(t, "b")},
	}}
	batchID, err := s.Submit(context.Background(), descriptor)
	require.NoError(t, err)

	require.NoError(t, s.Cancel(context.Background(), batchID))

	final, err := batches.GetBatch(context.Background(), batchID)
	require.NoError(t, err)
	assert.True(t, final.CancelRequested)
	assert.Equal(t, models.BatchStatusCancelled, final.Status)

	fileList, err := files.ListFilesByBatch(context.Background(), batchID)
	require.NoError(t, err)
	for _, f := range fileList {
		assert.Equal(t, models.FileStatusSkipped, f.Status)
	}
}
