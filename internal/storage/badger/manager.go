package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/docuscan/taxpipeline/internal/common"
	"github.com/docuscan/taxpipeline/internal/interfaces"
)

// Manager implements interfaces.StorageManager for Badger.
type Manager struct {
	db     *BadgerDB
	batch  interfaces.BatchStorage
	file   interfaces.DocumentFileStorage
	result interfaces.ScanResultStorage
	audit  interfaces.AuditStorage
	kv     interfaces.KeyValueStorage
	logger arbor.ILogger
}

// NewManager creates a new Badger storage manager.
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:     db,
		batch:  NewBatchStorage(db, logger),
		file:   NewDocumentFileStorage(db, logger),
		result: NewScanResultStorage(db, logger),
		audit:  NewAuditStorage(db, logger),
		kv:     NewKVStorage(db, logger),
		logger: logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

func (m *Manager) BatchStorage() interfaces.BatchStorage {
	return m.batch
}

func (m *Manager) DocumentFileStorage() interfaces.DocumentFileStorage {
	return m.file
}

func (m *Manager) ScanResultStorage() interfaces.ScanResultStorage {
	return m.result
}

func (m *Manager) AuditStorage() interfaces.AuditStorage {
	return m.audit
}

func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// DB returns the underlying database connection.
func (m *Manager) DB() interface{} {
	if m.db != nil {
		return m.db.Store()
	}
	return nil
}

// Close closes the database connection.
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
