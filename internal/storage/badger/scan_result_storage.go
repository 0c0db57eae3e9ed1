package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/docuscan/taxpipeline/internal/common"
	"github.com/docuscan/taxpipeline/internal/interfaces"
	"github.com/docuscan/taxpipeline/internal/models"
)

// ScanResultStorage implements interfaces.ScanResultStorage for Badger.
type ScanResultStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

func NewScanResultStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ScanResultStorage {
	return &ScanResultStorage{db: db, logger: logger}
}

// SaveResult reconciles rather than duplicates: a DocumentFile has at most one
// ScanResult (models.ScanResult doc comment), so a re-run of OCR/extraction
// for the same file (e.g. after a crash-recovery resume) updates the raw
// text/confidence/timings of the existing row in place while leaving any
// already-applied user patch on StructuredPayload untouched.
func (s *ScanResultStorage) SaveResult(ctx context.Context, result *models.ScanResult) error {
	existing, err := s.GetResultByFile(ctx, result.DocumentFileID)
	if err == nil && existing != nil {
		result.ID = existing.ID
		if existing.StructuredPayload != nil {
			result.StructuredPayload = existing.StructuredPayload
		}
		result.CreatedAt = existing.CreatedAt
	} else {
		if result.ID == "" {
			result.ID = common.NewResultID()
		}
		result.CreatedAt = time.Now()
	}
	result.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(result.ID, result); err != nil {
		return fmt.Errorf("failed to save scan result: %w", err)
	}
	return nil
}

func (s *ScanResultStorage) GetResult(ctx context.Context, id string) (*models.ScanResult, error) {
	var result models.ScanResult
	if err := s.db.Store().Get(id, &result); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("scan result not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get scan result: %w", err)
	}
	return &result, nil
}

func (s *ScanResultStorage) GetResultByFile(ctx context.Context, documentFileID string) (*models.ScanResult, error) {
	var results []models.ScanResult
	err := s.db.Store().Find(&results, badgerhold.Where("DocumentFileID").Eq(documentFileID).Limit(1))
	if err != nil {
		return nil, fmt.Errorf("failed to get scan result by file: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("scan result not found for file: %s", documentFileID)
	}
	return &results[0], nil
}

func (s *ScanResultStorage) ListResultsByBatch(ctx context.Context, batchID string) ([]*models.ScanResult, error) {
	var files []models.DocumentFile
	if err := s.db.Store().Find(&files, badgerhold.Where("BatchID").Eq(batchID)); err != nil {
		return nil, fmt.Errorf("failed to list batch files: %w", err)
	}

	results := make([]*models.ScanResult, 0, len(files))
	for _, f := range files {
		r, err := s.GetResultByFile(ctx, f.ID)
		if err != nil {
			continue
		}
		results = append(results, r)
	}
	return results, nil
}

// ApplyPatch merges patch.Fields into the result's structured payload. The
// caller (server handler) is responsible for audit-logging the patch (§6.4).
func (s *ScanResultStorage) ApplyPatch(ctx context.Context, patch *models.ResultPatch) (*models.ScanResult, error) {
	result, err := s.GetResult(ctx, patch.ResultID)
	if err != nil {
		return nil, err
	}

	if result.StructuredPayload == nil {
		result.StructuredPayload = make(map[string]interface{})
	}
	for k, v := range patch.Fields {
		result.StructuredPayload[k] = v
	}
	result.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(result.ID, result); err != nil {
		return nil, fmt.Errorf("failed to apply patch: %w", err)
	}
	return result, nil
}
