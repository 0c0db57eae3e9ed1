package badger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/docuscan/taxpipeline/internal/interfaces"
	"github.com/docuscan/taxpipeline/internal/models"
)

// AuditStorage implements interfaces.AuditStorage for Badger. Events are
// keyed by a random ID that is never exposed back to callers (§6.4: the
// audit log is append-only and queried by timestamp/actor, not by ID).
type AuditStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

func NewAuditStorage(db *BadgerDB, logger arbor.ILogger) interfaces.AuditStorage {
	return &AuditStorage{db: db, logger: logger}
}

func (s *AuditStorage) Append(ctx context.Context, event *models.AuditEvent) error {
	key := "audit_" + uuid.New().String()
	if err := s.db.Store().Insert(key, event); err != nil {
		return fmt.Errorf("failed to append audit event: %w", err)
	}
	return nil
}
