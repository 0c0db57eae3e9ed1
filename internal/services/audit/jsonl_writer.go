// Package audit implements the append-only JSONL audit log required by
// §6.4: one JSON object per line, no rotation (the operator's concern).
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/docuscan/taxpipeline/internal/interfaces"
	"github.com/docuscan/taxpipeline/internal/models"
)

// JSONLWriter implements interfaces.AuditStorage by appending one JSON
// object per line to a file opened with O_APPEND, matching §6.4's format
// literally rather than storing events as individually-keyed KV records.
type JSONLWriter struct {
	mu     sync.Mutex
	file   *os.File
	logger arbor.ILogger
}

// NewJSONLWriter opens (creating if necessary) the audit log at path for
// appending. The parent directory is created if missing.
func NewJSONLWriter(path string, logger arbor.ILogger) (*JSONLWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create audit log directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	logger.Info().Str("path", path).Msg("audit log writer opened")
	return &JSONLWriter{file: file, logger: logger}, nil
}

// Append writes event as a single JSON line. The write is serialized by a
// mutex rather than relying on O_APPEND alone for atomicity across the
// write(2) call plus the trailing newline.
func (w *JSONLWriter) Append(ctx context.Context, event *models.AuditEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	data = append(data, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.Write(data); err != nil {
		return fmt.Errorf("write audit event: %w", err)
	}
	return nil
}

// Close releases the underlying file handle.
func (w *JSONLWriter) Close() error {
	return w.file.Close()
}

var _ interfaces.AuditStorage = (*JSONLWriter)(nil)
