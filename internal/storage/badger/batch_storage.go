package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/docuscan/taxpipeline/internal/interfaces"
	"github.com/docuscan/taxpipeline/internal/models"
)

// BatchStorage implements interfaces.BatchStorage for Badger.
type BatchStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

func NewBatchStorage(db *BadgerDB, logger arbor.ILogger) interfaces.BatchStorage {
	return &BatchStorage{db: db, logger: logger}
}

func (s *BatchStorage) SaveBatch(ctx context.Context, batch *models.Batch) error {
	if batch.ID == "" {
		return fmt.Errorf("batch ID is required")
	}
	if err := s.db.Store().Upsert(batch.ID, batch); err != nil {
		return fmt.Errorf("failed to save batch: %w", err)
	}
	return nil
}

func (s *BatchStorage) GetBatch(ctx context.Context, id string) (*models.Batch, error) {
	var batch models.Batch
	if err := s.db.Store().Get(id, &batch); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("batch not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	return &batch, nil
}

func (s *BatchStorage) ListBatches(ctx context.Context, opts interfaces.ListOptions) ([]*models.Batch, error) {
	query := badgerhold.Where("ID").Ne("")
	if opts.Owner != "" {
		query = query.And("Owner").Eq(opts.Owner)
	}
	query = query.SortBy("CreatedAt").Reverse()
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	} else {
		query = query.Limit(10)
	}
	if opts.Offset > 0 {
		query = query.Skip(opts.Offset)
	}

	var batches []models.Batch
	if err := s.db.Store().Find(&batches, query); err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}

	result := make([]*models.Batch, len(batches))
	for i := range batches {
		result[i] = &batches[i]
	}
	return result, nil
}

func (s *BatchStorage) DeleteBatch(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Batch{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("batch not found: %s", id)
		}
		return fmt.Errorf("failed to delete batch: %w", err)
	}
	return nil
}

// UpdateCounters applies deltas to a batch's progress counters via
// read-modify-write. BadgerHold has no native atomic-field-increment;
// concurrent safety for this domain is instead provided by the Document
// Pipeline's single-writer-per-file rule (§4.2: one worker owns a
// DocumentFile's lifecycle at a time), so two counter updates for the same
// batch never race on the same file.
func (s *BatchStorage) UpdateCounters(ctx context.Context, batchID string, filesProcessedDelta, filesFailedDelta, pagesProcessedDelta int) (*models.Batch, error) {
	var batch models.Batch
	if err := s.db.Store().Get(batchID, &batch); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("batch not found: %s", batchID)
		}
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	batch.FilesProcessed += filesProcessedDelta
	batch.FilesFailed += filesFailedDelta
	batch.PagesProcessed += pagesProcessedDelta

	if err := s.SaveBatch(ctx, &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

func (s *BatchStorage) SetStatus(ctx context.Context, batchID string, status models.BatchStatus) error {
	var batch models.Batch
	if err := s.db.Store().Get(batchID, &batch); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("batch not found: %s", batchID)
		}
		return fmt.Errorf("failed to get batch: %w", err)
	}
	batch.Status = status
	return s.SaveBatch(ctx, &batch)
}

func (s *BatchStorage) SetCancelRequested(ctx context.Context, batchID string) error {
	var batch models.Batch
	if err := s.db.Store().Get(batchID, &batch); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("batch not found: %s", batchID)
		}
		return fmt.Errorf("failed to get batch: %w", err)
	}
	if batch.CancelRequested {
		return nil
	}
	batch.CancelRequested = true
	return s.SaveBatch(ctx, &batch)
}
