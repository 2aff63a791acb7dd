package domain

// SessionStatus is the client's join state for its current room session.
// Owned exclusively by the session machine; everything else only reads it.
type SessionStatus int

const (
	StatusDisconnected SessionStatus = iota
	StatusAttemptingJoin
	StatusJoined
	// StatusJoinFailed is transient: a join that timed out passes through it
	// on the way back to StatusDisconnected.
	StatusJoinFailed
)

func (s SessionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusAttemptingJoin:
		return "attempting_join"
	case StatusJoined:
		return "joined"
	case StatusJoinFailed:
		return "join_failed"
	default:
		return "unknown"
	}
}
