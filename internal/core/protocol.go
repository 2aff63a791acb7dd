package core

import "encoding/json"

// Event names on the wire. EventConnected and EventDisconnected are synthetic:
// the connection adapter delivers them locally, they never cross the wire.
const (
	EventJoinRequest = "join-request"
	EventJoined      = "joined"
	EventUserJoined  = "user-joined"

	EventConnected    = "connected"
	EventDisconnected = "disconnected"
)

// Envelope frames every wire message: a type tag and an opaque payload.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinRequest is emitted exactly once per accepted join submission. JoinID
// correlates the eventual ack with this attempt.
type JoinRequest struct {
	JoinID   string `json:"joinId"`
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

// JoinAck confirms a join. A backend that does not echo the join id leaves
// JoinID empty and the client degrades to flag-only duplicate handling.
type JoinAck struct {
	JoinID string `json:"joinId,omitempty"`
	RoomID string `json:"roomId"`
}

// UserJoined notifies room peers that a member arrived.
type UserJoined struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}
