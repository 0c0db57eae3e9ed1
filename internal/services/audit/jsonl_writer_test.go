package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/docuscan/taxpipeline/internal/models"
)

func TestJSONLWriter_Append_WritesOneLinePerEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "audit.log")
	writer, err := NewJSONLWriter(path, arbor.NewLogger())
	require.NoError(t, err)
	defer writer.Close()

	require.NoError(t, writer.Append(context.Background(), &models.AuditEvent{
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EventType: models.AuditEventDataAccess,
		Actor:     "user-1",
		Action:    "update_result",
		Status:    models.AuditStatusSuccess,
		IPAddress: "10.0.0.1",
		Details:   map[string]interface{}{"result_id": "r1"},
	}))
	require.NoError(t, writer.Append(context.Background(), &models.AuditEvent{
		Timestamp: time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC),
		EventType: models.AuditEventAuthentication,
		Actor:     "user-2",
		Action:    "login",
		Status:    models.AuditStatusFailure,
		IPAddress: "10.0.0.2",
	}))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Len(t, lines, 2)

	var first models.AuditEvent
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "user-1", first.Actor)
	assert.Equal(t, models.AuditStatusSuccess, first.Status)

	var second models.AuditEvent
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "user-2", second.Actor)
	assert.Equal(t, models.AuditStatusFailure, second.Status)
}

func TestJSONLWriter_Append_IsAppendOnlyAcrossReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")

	w1, err := NewJSONLWriter(path, arbor.NewLogger())
	require.NoError(t, err)
	require.NoError(t, w1.Append(context.Background(), &models.AuditEvent{Actor: "first"}))
	require.NoError(t, w1.Close())

	w2, err := NewJSONLWriter(path, arbor.NewLogger())
	require.NoError(t, err)
	defer w2.Close()
	require.NoError(t, w2.Append(context.Background(), &models.AuditEvent{Actor: "second"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	assert.Equal(t, 2, lines)
}
