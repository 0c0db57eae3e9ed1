package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

const handshakeDeadline = 5 * time.Second

// AuthMessage is the first frame a client must send after connecting.
type AuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// TokenValidator is the external auth collaborator the handshake calls to
// turn a bearer token into a user identifier. Kept narrow and separate from
// interfaces.LLMService/CloudOCRClient-style domain collaborators since auth
// itself is explicitly out of scope for this module (§1) — only this one
// call shape is required at the boundary.
type TokenValidator interface {
	Validate(token string) (userID string, err error)
}

// Handshake implements §4.10's precise four-step contract: (1) the caller
// has already accepted the connection; (2) read the first message with a
// deadline; (3) verify type=="auth" and a valid token; (4) otherwise close
// with CloseUnauthorized. Returns the authenticated user identifier.
func Handshake(conn wsConn, validator TokenValidator) (string, error) {
	conn.SetReadDeadline(time.Now().Add(handshakeDeadline))

	_, data, err := conn.ReadMessage()
	if err != nil {
		return "", fmt.Errorf("read auth message: %w", err)
	}

	var msg AuthMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		writeUnauthorized(conn)
		return "", fmt.Errorf("malformed auth message: %w", err)
	}

	if msg.Type != "auth" || msg.Token == "" {
		writeUnauthorized(conn)
		return "", fmt.Errorf("first message must be type=auth with a token")
	}

	userID, err := validator.Validate(msg.Token)
	if err != nil {
		writeUnauthorized(conn)
		return "", fmt.Errorf("token validation failed: %w", err)
	}

	return userID, nil
}

func writeUnauthorized(conn wsConn) {
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(CloseUnauthorized, "unauthorized"))
	_ = conn.Close()
}
