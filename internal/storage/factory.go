package storage

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/docuscan/taxpipeline/internal/common"
	"github.com/docuscan/taxpipeline/internal/interfaces"
	"github.com/docuscan/taxpipeline/internal/services/audit"
	"github.com/docuscan/taxpipeline/internal/storage/badger"
)

// NewStorageManager creates a new storage manager based on config. Batch,
// DocumentFile, ScanResult, and KV storage are Badger-backed; the audit log
// is overridden with an append-only JSONL writer at config.Audit.LogPath
// per §6.4, since a KV record store does not satisfy "one JSON object per
// line, append-only".
func NewStorageManager(logger arbor.ILogger, config *common.Config) (interfaces.StorageManager, error) {
	if config.Storage.Type != "badger" && config.Storage.Type != "" {
		return nil, fmt.Errorf("unsupported storage type: %s (only 'badger' is supported)", config.Storage.Type)
	}

	manager, err := badger.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		return nil, err
	}

	auditLog, err := audit.NewJSONLWriter(config.Audit.LogPath, logger)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	return &managerWithJSONLAudit{StorageManager: manager, audit: auditLog}, nil
}

// managerWithJSONLAudit decorates a StorageManager to replace its
// AuditStorage() with the JSONL writer, leaving every other storage
// interface untouched.
type managerWithJSONLAudit struct {
	interfaces.StorageManager
	audit *audit.JSONLWriter
}

func (m *managerWithJSONLAudit) AuditStorage() interfaces.AuditStorage {
	return m.audit
}

func (m *managerWithJSONLAudit) Close() error {
	auditErr := m.audit.Close()
	if err := m.StorageManager.Close(); err != nil {
		return err
	}
	return auditErr
}
