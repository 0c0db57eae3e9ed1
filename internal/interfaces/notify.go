package interfaces

import "github.com/docuscan/taxpipeline/internal/models"

// NotifySession is one connected client session registered against a set of
// topics ("batch:{id}", "file:{id}"). Send must never block the publisher —
// an implementation backs it with a bounded per-session queue and drops the
// session on overflow (§4.10 backpressure).
type NotifySession interface {
	ID() string
	UserID() string
	Send(event models.ProgressEvent) error
	Close(code int, reason string) error
}

// NotificationFabric is the in-process topic pub/sub the Batch Scheduler and
// Document Pipeline publish progress onto, and that registered sessions
// subscribe to implicitly by the route they joined.
type NotificationFabric interface {
	// Register subscribes session to topics. Topics the fabric has not seen
	// before start a fresh per-topic sequence counter at zero.
	Register(session NotifySession, topics []string) error

	// Unregister removes a session from every topic it was registered on.
	Unregister(sessionID string)

	// Publish assigns the next sequence number for topic and fans the event
	// out to every registered session, non-blocking.
	Publish(topic string, event models.ProgressEvent)

	// Snapshot returns the last event published on topic, if any — used to
	// replay current state to a late subscriber before live events resume.
	Snapshot(topic string) (models.ProgressEvent, bool)
}
