// Package core defines the capabilities the session machine is handed and the
// wire-level event types both ends of the connection speak.
package core

// EventHandler consumes the raw JSON payload of one inbound event.
type EventHandler func(payload []byte)

// Conn is one persistent logical connection to the collaboration backend.
// Connect and Disconnect are fire-and-forget commands: their effect is
// observed later through Connected and through the synthetic
// connected/disconnected events, never assumed synchronously.
type Conn interface {
	Connect()
	Disconnect()
	Connected() bool
	Emit(event string, payload any) error
	On(event string, h EventHandler)
}

// Navigator performs the actual route transition into a room's workspace,
// carrying the username as transition-scoped context.
type Navigator interface {
	NavigateToWorkspace(roomID, username string)
}

// RedirectGuard records "this client already completed a redirect for its
// current joined session". Single logical writer; not safe for concurrent
// writers by contract.
type RedirectGuard interface {
	IsSet() bool
	Set() error
	Clear() error
}

// Notifier surfaces user-facing messages outside the log stream.
type Notifier interface {
	Info(msg string)
	Error(msg string)
}
