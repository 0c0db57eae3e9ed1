package notify

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/docuscan/taxpipeline/internal/models"
)

const (
	heartbeatInterval = 30 * time.Second
	pingTimeout       = 10 * time.Second
	sendQueueSize     = 64
	sendTimeout       = 5 * time.Second

	// CloseOverflow is the close code used when a session's bounded send
	// queue overflows (§4.10 backpressure): clients are expected to
	// reconnect and resync via the snapshot endpoint.
	CloseOverflow = 4000
	// CloseUnauthorized is used when the auth handshake fails.
	CloseUnauthorized = 4001
	// CloseHeartbeatTimeout is used when a session misses its ping deadline.
	CloseHeartbeatTimeout = 4002
)

// wsConn is the narrow slice of *websocket.Conn the session needs, kept as
// an interface so tests can exercise Session without a real network
// connection.
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
	ReadMessage() (messageType int, p []byte, err error)
}

// Session is one connected client, backed by a gorilla/websocket connection,
// adapted from a flat global-broadcast model to one bounded outbound queue
// per session.
type Session struct {
	id         string
	userID     string
	conn       wsConn
	send       chan models.ProgressEvent
	closeOnce  sync.Once
	closed     chan struct{}
	logger     arbor.ILogger
	onClose    func(sessionID string)
}

func NewSession(id, userID string, conn wsConn, logger arbor.ILogger, onClose func(sessionID string)) *Session {
	s := &Session{
		id:      id,
		userID:  userID,
		conn:    conn,
		send:    make(chan models.ProgressEvent, sendQueueSize),
		closed:  make(chan struct{}),
		logger:  logger,
		onClose: onClose,
	}
	go s.writeLoop()
	go s.heartbeatLoop()
	go s.readLoop()
	return s
}

// readLoop drains incoming frames so gorilla/websocket's pong handler fires
// on received pongs; the client is not expected to send application
// messages after the auth handshake, so anything read is discarded. A read
// error (deadline exceeded or the peer closing) ends the session.
func (s *Session) readLoop() {
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			s.Close(CloseHeartbeatTimeout, "read failed or ping timeout")
			return
		}
	}
}

func (s *Session) ID() string     { return s.id }
func (s *Session) UserID() string { return s.userID }

// Send enqueues event for delivery without blocking. If the bounded queue
// is already full, the session is dropped: the fabric never blocks on a
// slow subscriber.
func (s *Session) Send(event models.ProgressEvent) error {
	select {
	case <-s.closed:
		return fmt.Errorf("session %s is closed", s.id)
	default:
	}

	select {
	case s.send <- event:
		return nil
	default:
		go s.Close(CloseOverflow, "send queue overflow")
		return fmt.Errorf("session %s send queue overflow", s.id)
	}
}

func (s *Session) Close(code int, reason string) error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		if s.onClose != nil {
			s.onClose(s.id)
		}
		closeMsg := websocket.FormatCloseMessage(code, reason)
		_ = s.conn.WriteMessage(websocket.CloseMessage, closeMsg)
		err = s.conn.Close()
		s.logger.Info().Str("session_id", s.id).Int("close_code", code).Str("reason", reason).Msg("Notification session closed")
	})
	return err
}

func (s *Session) writeLoop() {
	for {
		select {
		case <-s.closed:
			return
		case event := <-s.send:
			data, err := json.Marshal(event)
			if err != nil {
				s.logger.Error().Err(err).Str("session_id", s.id).Msg("Failed to marshal progress event")
				continue
			}
			if err := s.writeWithTimeout(data); err != nil {
				s.logger.Warn().Err(err).Str("session_id", s.id).Msg("Failed to write progress event, closing session")
				s.Close(websocket.CloseInternalServerErr, "write failed")
				return
			}
		}
	}
}

func (s *Session) writeWithTimeout(data []byte) error {
	done := make(chan error, 1)
	go func() { done <- s.conn.WriteMessage(websocket.TextMessage, data) }()
	select {
	case err := <-done:
		return err
	case <-time.After(sendTimeout):
		return fmt.Errorf("write timed out after %s", sendTimeout)
	}
}

// heartbeatLoop reaps sessions idle beyond ping_timeout + grace: each
// missed pong deadline closes the session with CloseHeartbeatTimeout.
func (s *Session) heartbeatLoop() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	s.conn.SetReadDeadline(time.Now().Add(heartbeatInterval + pingTimeout))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(heartbeatInterval + pingTimeout))
		return nil
	})

	for {
		select {
		case <-s.closed:
			return
		case <-ticker.C:
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.Close(CloseHeartbeatTimeout, "ping timeout")
				return
			}
		}
	}
}
