package notify

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeValidator struct {
	userID string
	err    error
}

func (v *fakeValidator) Validate(token string) (string, error) {
	return v.userID, v.err
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

// readOnceConn implements wsConn and returns one canned frame or error from
// ReadMessage, recording anything written back (e.g. the unauthorized close).
type readOnceConn struct {
	frame      []byte
	readErr    error
	writes     [][]byte
	closeCalls int
}

func (c *readOnceConn) WriteMessage(messageType int, data []byte) error {
	c.writes = append(c.writes, data)
	return nil
}

func (c *readOnceConn) Close() error { c.closeCalls++; return nil }

func (c *readOnceConn) SetReadDeadline(t time.Time) error { return nil }

func (c *readOnceConn) SetPongHandler(h func(string) error) {}

func (c *readOnceConn) ReadMessage() (int, []byte, error) {
	if c.readErr != nil {
		return 0, nil, c.readErr
	}
	return 0, c.frame, nil
}

func TestHandshake_ValidAuthMessage_ReturnsUserID(t *testing.T) {
	stub := &readOnceConn{frame: mustMarshal(t, AuthMessage{Type: "auth", Token: "good-token"})}

	userID, err := Handshake(stub, &fakeValidator{userID: "user-42"})
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)
	assert.Zero(t, stub.closeCalls)
}

func TestHandshake_WrongMessageType_ClosesUnauthorized(t *testing.T) {
	stub := &readOnceConn{frame: mustMarshal(t, AuthMessage{Type: "ping", Token: "x"})}

	_, err := Handshake(stub, &fakeValidator{userID: "user-1"})
	require.Error(t, err)
	assert.Equal(t, 1, stub.closeCalls)
}

func TestHandshake_MissingToken_ClosesUnauthorized(t *testing.T) {
	stub := &readOnceConn{frame: mustMarshal(t, AuthMessage{Type: "auth"})}

	_, err := Handshake(stub, &fakeValidator{userID: "user-1"})
	require.Error(t, err)
	assert.Equal(t, 1, stub.closeCalls)
}

func TestHandshake_ValidatorRejects_ClosesUnauthorized(t *testing.T) {
	stub := &readOnceConn{frame: mustMarshal(t, AuthMessage{Type: "auth", Token: "bad"})}

	_, err := Handshake(stub, &fakeValidator{err: errors.New("invalid token")})
	require.Error(t, err)
	assert.Equal(t, 1, stub.closeCalls)
}

func TestHandshake_ReadError_DoesNotPanic(t *testing.T) {
	stub := &readOnceConn{readErr: errors.New("deadline exceeded")}

	_, err := Handshake(stub, &fakeValidator{})
	require.Error(t, err)
}
