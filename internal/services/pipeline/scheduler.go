package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/docuscan/taxpipeline/internal/common"
	"github.com/docuscan/taxpipeline/internal/interfaces"
	"github.com/docuscan/taxpipeline/internal/models"
)

// Backoff bounds for idle worker polling.
const (
	minIdleBackoff = 100 * time.Millisecond
	maxIdleBackoff = 5 * time.Second
)

// workItem is one (batch, file) pair waiting for a worker.
type workItem struct {
	batchID string
	fileID  string
}

// Scheduler is the Batch Scheduler of §4.1: a fixed-size worker pool drains
// a single FIFO queue of (batch, file) work items, each driven through the
// DocumentPipeline. File failures are local to the file; a batch reaches a
// terminal status only once every one of its files has reached done,
// failed, or skipped.
type Scheduler struct {
	batches interfaces.BatchStorage
	files   interfaces.DocumentFileStorage
	results interfaces.ScanResultStorage
	events  interfaces.EventService
	docs    *DocumentPipeline
	config  common.SchedulerConfig

	queue  chan workItem
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool

	logger arbor.ILogger
}

// NewScheduler wires the Batch Scheduler. docs is the DocumentPipeline used
// to drive every admitted file; it must share its tokenBucket with any
// other scheduler instance in the process so OCR/LLM concurrency is capped
// globally, not per-scheduler.
func NewScheduler(
	batches interfaces.BatchStorage,
	files interfaces.DocumentFileStorage,
	results interfaces.ScanResultStorage,
	events interfaces.EventService,
	docs *DocumentPipeline,
	config common.SchedulerConfig,
	logger arbor.ILogger,
) *Scheduler {
	if config.WorkerPoolSize < 1 {
		config.WorkerPoolSize = 1
	}
	// Queue depth: generous enough that Submit never blocks on a large
	// batch waiting for workers to drain it.
	queueDepth := config.MaxArchiveFiles
	if queueDepth < config.WorkerPoolSize {
		queueDepth = config.WorkerPoolSize
	}

	return &Scheduler{
		batches: batches,
		files:   files,
		results: results,
		events:  events,
		docs:    docs,
		config:  config,
		queue:   make(chan workItem, queueDepth),
		logger:  logger,
	}
}

// Start launches the worker pool and resumes any files left stuck in
// "processing" by a prior crash (§4.1 crash recovery). Call once, after
// every collaborator is constructed.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.logger.Info().Int("worker_pool_size", s.config.WorkerPoolSize).Msg("batch scheduler starting")

	for i := 0; i < s.config.WorkerPoolSize; i++ {
		s.wg.Add(1)
		go s.runWorker(i)
	}

	s.resumeStale()
}

// Stop drains in-flight work and blocks until every worker goroutine has
// exited.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info().Msg("batch scheduler stopping")
	s.cancel()
	s.wg.Wait()
	s.logger.Info().Msg("batch scheduler stopped")
}

// resumeStale re-queues files stuck in "processing" whose owning worker is
// gone, per §4.1's crash-recovery contract. Chunk-level idempotence in the
// Document Pipeline's merge step means re-running a partially processed
// file has no duplicate side effects.
func (s *Scheduler) resumeStale() {
	stale, err := s.files.GetStaleProcessingFiles(s.ctx, s.config.StaleAfterSeconds)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to query stale processing files for resume")
		return
	}
	for _, f := range stale {
		s.logger.Warn().Str("file_id", f.ID).Str("batch_id", f.BatchID).Msg("resuming file left processing by a prior crash")
		s.enqueue(f.BatchID, f.ID)
	}
}

func (s *Scheduler) enqueue(batchID, fileID string) {
	select {
	case s.queue <- workItem{batchID: batchID, fileID: fileID}:
	case <-s.ctx.Done():
	}
}

// Submit implements §4.1's submit(batch_descriptor) operation: validates
// the admission caps, persists the Batch and its DocumentFile rows, and
// enqueues every file for processing. Returns the new batch ID.
func (s *Scheduler) Submit(ctx context.Context, descriptor *models.BatchDescriptor) (string, error) {
	if err := s.validateAdmission(descriptor); err != nil {
		return "", err
	}

	batch := &models.Batch{
		ID:         common.NewBatchID(),
		Owner:      descriptor.Owner,
		TotalFiles: len(descriptor.Files),
		Status:     models.BatchStatusPending,
		CreatedAt:  time.Now(),
	}

	docFiles := make([]*models.DocumentFile, 0, len(descriptor.Files))
	for _, sub := range descriptor.Files {
		pageCount, err := s.docs.chunker.CountPages(sub.StoredPath)
		if err != nil {
			// Non-PDF submissions (e.g. images) have no page count; this is
			// not an admission failure, only a progress-accounting gap.
			pageCount = 0
		}
		batch.TotalPages += pageCount

		docFiles = append(docFiles, &models.DocumentFile{
			ID:           common.NewFileID(),
			BatchID:      batch.ID,
			DeclaredType: models.DocumentType(sub.DeclaredType),
			Filename:     sub.Filename,
			StoredPath:   sub.StoredPath,
			Size:         sub.Size,
			PageCount:    pageCount,
			Status:       models.FileStatusQueued,
			Stage:        models.StageQueued,
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		})
	}

	if err := s.batches.SaveBatch(ctx, batch); err != nil {
		return "", fmt.Errorf("save batch: %w", err)
	}
	for _, f := range docFiles {
		if err := s.files.SaveFile(ctx, f); err != nil {
			return "", fmt.Errorf("save file %s: %w", f.Filename, err)
		}
	}

	s.publish(ctx, interfaces.EventBatchCreated, map[string]interface{}{
		"batch_id":    batch.ID,
		"total_files": batch.TotalFiles,
		"timestamp":   time.Now(),
	})

	for _, f := range docFiles {
		s.enqueue(batch.ID, f.ID)
	}

	return batch.ID, nil
}

// validateAdmission enforces §4.1/§6.3's admission caps before any storage
// write happens, so a rejected batch never appears in listings.
func (s *Scheduler) validateAdmission(descriptor *models.BatchDescriptor) error {
	if len(descriptor.Files) == 0 {
		return models.NewTaggedError(models.ErrorKindValidation, "batch has no files", nil)
	}

	fileCap := s.config.MaxFilesPerBatch
	archiveTypes := make(map[string]bool, len(s.config.ArchiveAllowedTypes))
	for _, t := range s.config.ArchiveAllowedTypes {
		archiveTypes[t] = true
	}
	isArchiveSubmission := len(descriptor.Files) > fileCap
	if isArchiveSubmission {
		fileCap = s.config.MaxArchiveFiles
	}
	if len(descriptor.Files) > fileCap {
		return models.NewTaggedError(models.ErrorKindValidation, fmt.Sprintf("%d files exceeds the %d-file cap", len(descriptor.Files), fileCap), nil)
	}

	for _, f := range descriptor.Files {
		if f.Size > s.config.MaxFileBytes {
			return models.NewTaggedError(models.ErrorKindValidation, fmt.Sprintf("%s (%d bytes) exceeds the %d-byte per-file cap", f.Filename, f.Size, s.config.MaxFileBytes), nil)
		}
		if !models.DocumentType(f.DeclaredType).Known() {
			return models.NewTaggedError(models.ErrorKindValidation, fmt.Sprintf("%s has unsupported declared_type %q", f.Filename, f.DeclaredType), nil)
		}
		if isArchiveSubmission && len(archiveTypes) > 0 && !archiveTypes[f.DeclaredType] {
			return models.NewTaggedError(models.ErrorKindValidation, fmt.Sprintf("%s has declared_type %q not allowed via archive submission", f.Filename, f.DeclaredType), nil)
		}
	}
	return nil
}

// Status implements §4.1's status(batch_id) operation.
func (s *Scheduler) Status(ctx context.Context, batchID string) (*models.Snapshot, error) {
	batch, err := s.batches.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	files, err := s.files.ListFilesByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	return &models.Snapshot{Batch: batch, Files: files, ETASeconds: estimateETA(batch)}, nil
}

// estimateETA is a coarse linear projection from pages processed so far;
// nil once the batch is terminal or before any progress has been made.
func estimateETA(batch *models.Batch) *float64 {
	if batch.IsTerminal() || batch.PagesProcessed == 0 || batch.TotalPages <= batch.PagesProcessed {
		return nil
	}
	elapsed := time.Since(batch.CreatedAt).Seconds()
	if elapsed <= 0 {
		return nil
	}
	rate := float64(batch.PagesProcessed) / elapsed
	if rate <= 0 {
		return nil
	}
	remaining := float64(batch.TotalPages-batch.PagesProcessed) / rate
	return &remaining
}

// Cancel implements §4.1's cancel(batch_id) operation: idempotent, flips
// the batch's cancel flag, and skips every file still queued. Files already
// in flight run to their next safe boundary (enforced by the workers
// observing CancelRequested between pipeline stages) before becoming
// skipped themselves.
func (s *Scheduler) Cancel(ctx context.Context, batchID string) error {
	if err := s.batches.SetCancelRequested(ctx, batchID); err != nil {
		return err
	}

	files, err := s.files.ListFilesByBatch(ctx, batchID)
	if err != nil {
		return err
	}
	for _, f := range files {
		if f.Status == models.FileStatusQueued {
			if err := s.files.UpdateStatus(ctx, f.ID, models.FileStatusSkipped, models.StageFailed, "", "cancelled before processing started"); err != nil {
				s.logger.Error().Err(err).Str("file_id", f.ID).Msg("failed to mark queued file skipped on cancel")
				continue
			}
			s.finishOne(ctx, batchID, false)
		}
	}

	s.publish(ctx, interfaces.EventBatchCancelled, map[string]interface{}{
		"batch_id":  batchID,
		"reason":    "requested",
		"timestamp": time.Now(),
	})
	return nil
}

// Results implements §4.1's results(batch_id) operation.
func (s *Scheduler) Results(ctx context.Context, batchID string) ([]*models.ScanResult, error) {
	return s.results.ListResultsByBatch(ctx, batchID)
}

func (s *Scheduler) runWorker(workerID int) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			s.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", string(buf[:n])).
				Int("worker_id", workerID).
				Msg("batch scheduler worker recovered from panic; worker exiting")
		}
	}()

	backoff := minIdleBackoff
	for {
		select {
		case <-s.ctx.Done():
			return
		case item := <-s.queue:
			s.processItem(workerID, item)
			backoff = minIdleBackoff
		case <-time.After(backoff):
			backoff *= 2
			if backoff > maxIdleBackoff {
				backoff = maxIdleBackoff
			}
		}
	}
}

func (s *Scheduler) processItem(workerID int, item workItem) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			s.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", string(buf[:n])).
				Str("file_id", item.fileID).
				Int("worker_id", workerID).
				Msg("recovered from panic processing a document file")
			s.files.UpdateStatus(s.ctx, item.fileID, models.FileStatusFailed, models.StageFailed, models.ErrorKindInternal, fmt.Sprintf("worker panic: %v", r))
			s.finishOne(s.ctx, item.batchID, true)
		}
	}()

	batch, err := s.batches.GetBatch(s.ctx, item.batchID)
	if err != nil {
		s.logger.Error().Err(err).Str("batch_id", item.batchID).Msg("failed to load batch for queued file")
		return
	}
	if batch.CancelRequested {
		s.files.UpdateStatus(s.ctx, item.fileID, models.FileStatusSkipped, models.StageFailed, "", "cancelled before processing started")
		s.finishOne(s.ctx, item.batchID, false)
		return
	}

	file, err := s.files.GetFile(s.ctx, item.fileID)
	if err != nil {
		s.logger.Error().Err(err).Str("file_id", item.fileID).Msg("failed to load document file")
		return
	}

	s.logger.Info().Str("batch_id", item.batchID).Str("file_id", file.ID).Str("filename", file.Filename).Int("worker_id", workerID).Msg("document file processing started")
	started := time.Now()

	err = s.docs.Process(s.ctx, file)

	// Process records document-level failures on the file rather than
	// returning them, so the persisted status decides the counter.
	failed := err != nil
	if updated, getErr := s.files.GetFile(s.ctx, file.ID); getErr == nil && updated.Status == models.FileStatusFailed {
		failed = true
	}

	s.logger.Info().
		Str("batch_id", item.batchID).
		Str("file_id", file.ID).
		Bool("success", !failed).
		Dur("duration", time.Since(started)).
		Msg("document file processing finished")

	s.finishOne(s.ctx, item.batchID, failed)
}

// finishOne applies the per-file terminal delta to the batch counters and,
// once every file has reached a terminal state, derives and persists the
// batch's own terminal status.
func (s *Scheduler) finishOne(ctx context.Context, batchID string, failed bool) {
	processedDelta, failedDelta := 1, 0
	if failed {
		processedDelta, failedDelta = 0, 1
	}

	batch, err := s.batches.UpdateCounters(ctx, batchID, processedDelta, failedDelta, 0)
	if err != nil {
		s.logger.Error().Err(err).Str("batch_id", batchID).Msg("failed to update batch counters")
		return
	}

	s.publish(ctx, interfaces.EventBatchProgress, map[string]interface{}{
		"batch_id":        batch.ID,
		"files_processed": batch.FilesProcessed,
		"files_failed":    batch.FilesFailed,
		"total_files":     batch.TotalFiles,
		"status":          string(batch.Status),
		"timestamp":       time.Now(),
	})

	if batch.FilesProcessed+batch.FilesFailed < batch.TotalFiles {
		return
	}

	status := models.BatchStatusCompleted
	switch {
	case batch.CancelRequested:
		status = models.BatchStatusCancelled
	case batch.FilesFailed > 0:
		status = models.BatchStatusPartial
	}
	if err := s.batches.SetStatus(ctx, batchID, status); err != nil {
		s.logger.Error().Err(err).Str("batch_id", batchID).Msg("failed to set terminal batch status")
		return
	}

	s.publish(ctx, interfaces.EventBatchCompleted, map[string]interface{}{
		"batch_id":         batch.ID,
		"files_processed":  batch.FilesProcessed,
		"files_failed":     batch.FilesFailed,
		"duration_seconds": time.Since(batch.CreatedAt).Seconds(),
		"timestamp":        time.Now(),
	})
}

func (s *Scheduler) publish(ctx context.Context, eventType interfaces.EventType, payload map[string]interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, interfaces.Event{Type: eventType, Payload: payload}); err != nil {
		s.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("failed to publish scheduler event")
	}
}
