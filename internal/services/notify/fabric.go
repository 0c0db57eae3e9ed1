// Package notify implements the Notification Fabric (§4.10): an in-process,
// topic-scoped pub/sub that fans batch/file progress events out to
// long-lived client sessions without ever blocking the publisher.
package notify

import (
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/docuscan/taxpipeline/internal/interfaces"
	"github.com/docuscan/taxpipeline/internal/models"
)

// Fabric implements interfaces.NotificationFabric. Subscription state is
// guarded by a single RWMutex, matching SPEC_FULL §5's "single fine-grained
// lock or equivalent concurrent map" guidance for the subscription table.
type Fabric struct {
	mu       sync.RWMutex
	sessions map[string][]interfaces.NotifySession // topic -> sessions
	byID     map[string]interfaces.NotifySession
	sequence map[string]uint64 // topic -> last assigned sequence
	last     map[string]models.ProgressEvent
	logger   arbor.ILogger
}

func NewFabric(logger arbor.ILogger) *Fabric {
	return &Fabric{
		sessions: make(map[string][]interfaces.NotifySession),
		byID:     make(map[string]interfaces.NotifySession),
		sequence: make(map[string]uint64),
		last:     make(map[string]models.ProgressEvent),
		logger:   logger,
	}
}

func (f *Fabric) Register(session interfaces.NotifySession, topics []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.byID[session.ID()] = session
	for _, topic := range topics {
		f.sessions[topic] = append(f.sessions[topic], session)
	}

	f.logger.Debug().
		Str("session_id", session.ID()).
		Int("topic_count", len(topics)).
		Msg("Notification session registered")

	return nil
}

func (f *Fabric) Unregister(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.byID, sessionID)
	for topic, sessions := range f.sessions {
		filtered := sessions[:0]
		for _, s := range sessions {
			if s.ID() != sessionID {
				filtered = append(filtered, s)
			}
		}
		f.sessions[topic] = filtered
	}

	f.logger.Debug().Str("session_id", sessionID).Msg("Notification session unregistered")
}

// Publish assigns the next monotonic sequence number for topic and sends to
// every registered session. A session whose Send fails (its queue overflowed
// and it dropped itself) is unregistered so future publishes skip it.
func (f *Fabric) Publish(topic string, event models.ProgressEvent) {
	f.mu.Lock()
	f.sequence[topic]++
	event.Topic = topic
	event.Sequence = f.sequence[topic]
	f.last[topic] = event
	sessions := append([]interfaces.NotifySession(nil), f.sessions[topic]...)
	f.mu.Unlock()

	var dead []string
	for _, session := range sessions {
		if err := session.Send(event); err != nil {
			f.logger.Warn().
				Err(err).
				Str("session_id", session.ID()).
				Str("topic", topic).
				Msg("Dropping notification session after send failure")
			dead = append(dead, session.ID())
		}
	}

	for _, id := range dead {
		f.Unregister(id)
	}
}

func (f *Fabric) Snapshot(topic string) (models.ProgressEvent, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	event, ok := f.last[topic]
	return event, ok
}

var _ interfaces.NotificationFabric = (*Fabric)(nil)
