package notify

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/docuscan/taxpipeline/internal/models"
)

// fakeConn is a wsConn stub that records writes and lets tests control
// ReadMessage's behavior without a real network socket.
type fakeConn struct {
	mu          sync.Mutex
	writes      [][]byte
	messageType []int
	closed      bool
	closeCode   int
	readErr     error
	readBlock   chan struct{}
	pongHandler func(string) error
	blockWrites chan struct{} // non-nil: WriteMessage blocks until closed
}

func newFakeConn() *fakeConn {
	return &fakeConn{readBlock: make(chan struct{})}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	if c.blockWrites != nil {
		<-c.blockWrites
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, data)
	c.messageType = append(c.messageType, messageType)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) SetReadDeadline(t time.Time) error { return nil }

func (c *fakeConn) SetPongHandler(h func(string) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pongHandler = h
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	<-c.readBlock
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return 0, nil, c.readErr
	}
	return 0, nil, errors.New("fake connection closed")
}

func (c *fakeConn) unblockRead(err error) {
	c.mu.Lock()
	c.readErr = err
	c.mu.Unlock()
	close(c.readBlock)
}

func (c *fakeConn) writeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.writes)
}

func TestSession_Send_DeliversEvent(t *testing.T) {
	conn := newFakeConn()
	defer conn.unblockRead(nil)

	session := NewSession("sess-1", "user-1", conn, arbor.NewLogger(), nil)
	event := models.ProgressEvent{Topic: "batch:1", Sequence: 1}

	require.NoError(t, session.Send(event))

	assert.Eventually(t, func() bool { return conn.writeCount() >= 1 }, time.Second, 5*time.Millisecond)

	conn.mu.Lock()
	var decoded models.ProgressEvent
	err := json.Unmarshal(conn.writes[0], &decoded)
	conn.mu.Unlock()
	require.NoError(t, err)
	assert.Equal(t, "batch:1", decoded.Topic)
}

func TestSession_Send_OverflowClosesSession(t *testing.T) {
	conn := newFakeConn()
	conn.blockWrites = make(chan struct{}) // writeLoop can never drain the queue
	defer conn.unblockRead(nil)
	defer close(conn.blockWrites)

	var closedID string
	session := NewSession("sess-2", "user-1", conn, arbor.NewLogger(), func(id string) { closedID = id })

	// One event is picked up by writeLoop and blocks on the first write;
	// the rest pile up in the bounded queue until it overflows.
	var overflowed bool
	for i := 0; i < sendQueueSize*2; i++ {
		if err := session.Send(models.ProgressEvent{Sequence: uint64(i)}); err != nil {
			overflowed = true
			break
		}
	}

	assert.True(t, overflowed)
	assert.Eventually(t, func() bool { return closedID == "sess-2" }, time.Second, 5*time.Millisecond)
}

func TestSession_Close_IsIdempotent(t *testing.T) {
	conn := newFakeConn()
	defer conn.unblockRead(nil)

	session := NewSession("sess-3", "user-1", conn, arbor.NewLogger(), nil)

	require.NoError(t, session.Close(CloseOverflow, "first"))
	require.NoError(t, session.Close(CloseOverflow, "second"))

	conn.mu.Lock()
	defer conn.mu.Unlock()
	assert.True(t, conn.closed)
}

func TestSession_ReadLoop_ClosesOnReadError(t *testing.T) {
	conn := newFakeConn()

	var closedID string
	var wg sync.WaitGroup
	wg.Add(1)
	session := NewSession("sess-4", "user-1", conn, arbor.NewLogger(), func(id string) {
		closedID = id
		wg.Done()
	})

	conn.unblockRead(errors.New("ping timeout"))
	wg.Wait()

	assert.Equal(t, "sess-4", closedID)
	_ = session
}
