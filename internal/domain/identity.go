// Package domain contains the entities of the client shell, no transport
// or lifecycle logic.
package domain

import (
	"strings"

	"github.com/google/uuid"
)

const (
	MinRoomIDLen   = 5
	MinUsernameLen = 3
)

// Identity is the client's claim on a room: which room, under which name.
type Identity struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

// Normalized returns a copy with both fields trimmed.
func (i Identity) Normalized() Identity {
	return Identity{
		RoomID:   strings.TrimSpace(i.RoomID),
		Username: strings.TrimSpace(i.Username),
	}
}

// IsZero reports whether the identity carries no data at all.
func (i Identity) IsZero() bool {
	return i.RoomID == "" && i.Username == ""
}

// NewRoomID mints a fresh room identifier.
func NewRoomID() string {
	return uuid.NewString()
}
