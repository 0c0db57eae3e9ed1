package notify

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/docuscan/taxpipeline/internal/models"
)

// fakeSession is a minimal interfaces.NotifySession stub recording every
// event delivered to it, with an optional forced Send failure.
type fakeSession struct {
	mu       sync.Mutex
	id       string
	userID   string
	received []models.ProgressEvent
	failSend bool
}

func (s *fakeSession) ID() string     { return s.id }
func (s *fakeSession) UserID() string { return s.userID }

func (s *fakeSession) Send(event models.ProgressEvent) error {
	if s.failSend {
		return fmt.Errorf("session %s: forced failure", s.id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, event)
	return nil
}

func (s *fakeSession) Close(code int, reason string) error { return nil }

func (s *fakeSession) events() []models.ProgressEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ProgressEvent(nil), s.received...)
}

func TestFabric_Publish_DeliversToRegisteredSessions(t *testing.T) {
	fabric := NewFabric(arbor.NewLogger())
	session := &fakeSession{id: "sess-1", userID: "user-1"}

	require.NoError(t, fabric.Register(session, []string{"batch:1"}))
	fabric.Publish("batch:1", models.ProgressEvent{Phase: "ocr_running"})

	events := session.events()
	require.Len(t, events, 1)
	assert.Equal(t, "batch:1", events[0].Topic)
	assert.Equal(t, uint64(1), events[0].Sequence)
}

func TestFabric_Publish_SequenceIsMonotonicPerTopic(t *testing.T) {
	fabric := NewFabric(arbor.NewLogger())
	session := &fakeSession{id: "sess-1", userID: "user-1"}
	require.NoError(t, fabric.Register(session, []string{"batch:1"}))

	fabric.Publish("batch:1", models.ProgressEvent{})
	fabric.Publish("batch:1", models.ProgressEvent{})
	fabric.Publish("batch:1", models.ProgressEvent{})

	events := session.events()
	require.Len(t, events, 3)
	assert.Equal(t, uint64(1), events[0].Sequence)
	assert.Equal(t, uint64(2), events[1].Sequence)
	assert.Equal(t, uint64(3), events[2].Sequence)
}

func TestFabric_Publish_DoesNotCrossTopics(t *testing.T) {
	fabric := NewFabric(arbor.NewLogger())
	batchSession := &fakeSession{id: "sess-batch", userID: "user-1"}
	fileSession := &fakeSession{id: "sess-file", userID: "user-1"}

	require.NoError(t, fabric.Register(batchSession, []string{"batch:1"}))
	require.NoError(t, fabric.Register(fileSession, []string{"file:1"}))

	fabric.Publish("batch:1", models.ProgressEvent{})

	assert.Len(t, batchSession.events(), 1)
	assert.Len(t, fileSession.events(), 0)
}

func TestFabric_Snapshot_ReturnsLastEvent(t *testing.T) {
	fabric := NewFabric(arbor.NewLogger())

	_, ok := fabric.Snapshot("batch:1")
	assert.False(t, ok)

	fabric.Publish("batch:1", models.ProgressEvent{Phase: "queued"})
	fabric.Publish("batch:1", models.ProgressEvent{Phase: "done"})

	snapshot, ok := fabric.Snapshot("batch:1")
	require.True(t, ok)
	assert.Equal(t, "done", snapshot.Phase)
	assert.Equal(t, uint64(2), snapshot.Sequence)
}

func TestFabric_Publish_DropsSessionAfterSendFailure(t *testing.T) {
	fabric := NewFabric(arbor.NewLogger())
	session := &fakeSession{id: "sess-bad", userID: "user-1", failSend: true}
	require.NoError(t, fabric.Register(session, []string{"batch:1"}))

	fabric.Publish("batch:1", models.ProgressEvent{})

	// The session was dropped after the failed send; a second publish must
	// not attempt delivery again (no panic, no further Send calls recorded
	// since failSend never appends to received regardless).
	fabric.Publish("batch:1", models.ProgressEvent{})
	assert.Len(t, session.events(), 0)
}

func TestFabric_Unregister_RemovesFromAllTopics(t *testing.T) {
	fabric := NewFabric(arbor.NewLogger())
	session := &fakeSession{id: "sess-1", userID: "user-1"}
	require.NoError(t, fabric.Register(session, []string{"batch:1", "file:1"}))

	fabric.Unregister("sess-1")

	fabric.Publish("batch:1", models.ProgressEvent{})
	fabric.Publish("file:1", models.ProgressEvent{})
	assert.Len(t, session.events(), 0)
}
