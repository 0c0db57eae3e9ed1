package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/docuscan/taxpipeline/internal/interfaces"
	"github.com/docuscan/taxpipeline/internal/models"
)

// DocumentFileStorage implements interfaces.DocumentFileStorage for Badger.
type DocumentFileStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

func NewDocumentFileStorage(db *BadgerDB, logger arbor.ILogger) interfaces.DocumentFileStorage {
	return &DocumentFileStorage{db: db, logger: logger}
}

func (s *DocumentFileStorage) SaveFile(ctx context.Context, file *models.DocumentFile) error {
	if file.ID == "" {
		return fmt.Errorf("document file ID is required")
	}
	file.UpdatedAt = time.Now()
	if err := s.db.Store().Upsert(file.ID, file); err != nil {
		return fmt.Errorf("failed to save document file: %w", err)
	}
	return nil
}

func (s *DocumentFileStorage) GetFile(ctx context.Context, id string) (*models.DocumentFile, error) {
	var file models.DocumentFile
	if err := s.db.Store().Get(id, &file); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("document file not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get document file: %w", err)
	}
	return &file, nil
}

func (s *DocumentFileStorage) ListFilesByBatch(ctx context.Context, batchID string) ([]*models.DocumentFile, error) {
	var files []models.DocumentFile
	err := s.db.Store().Find(&files, badgerhold.Where("BatchID").Eq(batchID).SortBy("CreatedAt"))
	if err != nil {
		return nil, fmt.Errorf("failed to list document files: %w", err)
	}

	result := make([]*models.DocumentFile, len(files))
	for i := range files {
		result[i] = &files[i]
	}
	return result, nil
}

func (s *DocumentFileStorage) UpdateStatus(ctx context.Context, fileID string, status models.FileStatus, stage models.PipelineStage, errKind models.ErrorKind, errMsg string) error {
	var file models.DocumentFile
	if err := s.db.Store().Get(fileID, &file); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("document file not found: %s", fileID)
		}
		return fmt.Errorf("failed to get document file: %w", err)
	}

	file.Status = status
	file.Stage = stage
	file.ErrorKind = errKind
	file.ErrorMessage = errMsg

	return s.SaveFile(ctx, &file)
}

// GetStaleProcessingFiles returns files stuck in "processing" for crash
// recovery. This domain has no separate heartbeat field; UpdatedAt doubles
// as the liveness signal because every stage transition of a file being
// actively worked rewrites it (§4.2).
func (s *DocumentFileStorage) GetStaleProcessingFiles(ctx context.Context, staleAfterSeconds int) ([]*models.DocumentFile, error) {
	threshold := time.Now().Add(-time.Duration(staleAfterSeconds) * time.Second)
	var files []models.DocumentFile
	err := s.db.Store().Find(&files, badgerhold.Where("Status").Eq(models.FileStatusProcessing).And("UpdatedAt").Lt(threshold))
	if err != nil {
		return nil, fmt.Errorf("failed to get stale processing files: %w", err)
	}

	result := make([]*models.DocumentFile, len(files))
	for i := range files {
		result[i] = &files[i]
	}
	return result, nil
}
