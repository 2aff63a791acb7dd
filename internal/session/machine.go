// Package session owns the room-session lifecycle: how an identity moves from
// disconnected through an in-flight join to joined, and how a returning client
// is re-armed instead of resuming a stale session.
package session

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/codesync/codesync/internal/core"
	"github.com/codesync/codesync/internal/domain"
)

// ErrJoinTimeout is recorded when a join attempt expires without an ack.
var ErrJoinTimeout = errors.New("join timed out")

// Machine reconciles user submissions, connection lifecycle events and
// re-entry after a remount into one session state. All transitions are
// serialized behind a single mutex; each event is fully applied before the
// next is considered.
type Machine struct {
	conn   core.Conn
	guard  core.RedirectGuard
	nav    core.Navigator
	notify core.Notifier

	joinTimeout time.Duration

	mu            sync.Mutex
	status        domain.SessionStatus
	identity      domain.Identity
	joinID        string // in-flight join, set at submission
	handledJoinID string // ack already handled for the current session
	joinTimer     *time.Timer
	lastErr       error
}

type Option func(*Machine)

// WithJoinTimeout bounds how long a join may sit unacknowledged. Zero
// disables the timer.
func WithJoinTimeout(d time.Duration) Option {
	return func(m *Machine) { m.joinTimeout = d }
}

// WithNotifier routes user-facing messages (currently only the join-timeout
// error) to n.
func WithNotifier(n core.Notifier) Option {
	return func(m *Machine) { m.notify = n }
}

func NewMachine(conn core.Conn, guard core.RedirectGuard, nav core.Navigator, opts ...Option) *Machine {
	m := &Machine{
		conn:   conn,
		guard:  guard,
		nav:    nav,
		status: domain.StatusDisconnected,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Bind subscribes the machine to the connection's event surface. Call once
// after construction, before Connect.
func (m *Machine) Bind() {
	m.conn.On(core.EventJoined, func(payload []byte) {
		var ack core.JoinAck
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &ack); err != nil {
				log.Warn().Err(err).Str("module", "session").Msg("bad joined payload")
			}
		}
		m.OnJoined(ack.JoinID)
	})
	m.conn.On(core.EventConnected, func([]byte) { m.OnConnectionLifecycle(true) })
	m.conn.On(core.EventDisconnected, func([]byte) { m.OnConnectionLifecycle(false) })
}

func (m *Machine) Status() domain.SessionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Machine) Identity() domain.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity
}

// LastError reports the most recent session-level failure (join timeout).
func (m *Machine) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// SubmitJoin validates the identity and issues at most one join-request.
// A submission while another join is in flight is absorbed silently: not an
// error, not a queue entry.
func (m *Machine) SubmitJoin(id domain.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status == domain.StatusAttemptingJoin {
		log.Debug().Str("module", "session").Msg("join already in flight, submission absorbed")
		return nil
	}

	id = id.Normalized()
	if err := domain.Validate(id); err != nil {
		return err
	}

	m.identity = id
	m.joinID = uuid.NewString()
	m.status = domain.StatusAttemptingJoin
	m.lastErr = nil
	m.armJoinTimer(m.joinID)

	req := core.JoinRequest{
		JoinID:   m.joinID,
		RoomID:   id.RoomID,
		Username: id.Username,
	}
	if err := m.conn.Emit(core.EventJoinRequest, req); err != nil {
		// Stay in attempting_join: the conn may still be dialing and the
		// join timer bounds how long we wait for the world to catch up.
		log.Warn().Err(err).Str("module", "session").Str("room", id.RoomID).Msg("join-request emit failed")
	} else {
		log.Info().Str("module", "session").Str("room", id.RoomID).Str("join_id", m.joinID).Msg("join requested")
	}
	return nil
}

// OnConnectionLifecycle reacts to the handle's own connect/disconnect. The
// only action is the idempotent reconnect trigger; session status never
// changes here. The Connect command runs outside the machine lock: the handle
// may deliver further lifecycle events synchronously.
func (m *Machine) OnConnectionLifecycle(connected bool) {
	m.mu.Lock()
	reconnect := m.status == domain.StatusDisconnected && !connected
	m.mu.Unlock()

	if reconnect {
		log.Info().Str("module", "session").Msg("disconnected, re-arming connection")
		m.conn.Connect()
	}
}

// OnJoined is the only transition into StatusJoined. joinID is the backend's
// echo of the correlation id from the join-request; a delivery repeating the
// id already handled for this session is a duplicate and is dropped. An empty
// id disables that check.
//
// First genuine arrival: set the redirect flag, navigate once into the
// workspace. Arrival with the flag already set (a remounted client coming
// back to the form): consume the flag and force a fresh connection instead of
// resuming the stale joined session.
func (m *Machine) OnJoined(joinID string) {
	m.mu.Lock()

	if joinID != "" && joinID == m.handledJoinID {
		m.mu.Unlock()
		log.Debug().Str("module", "session").Str("join_id", joinID).Msg("duplicate joined delivery dropped")
		return
	}
	m.stopJoinTimer()

	if !m.guard.IsSet() {
		if err := m.guard.Set(); err != nil {
			log.Error().Err(err).Str("module", "session").Msg("set redirect flag")
		}
		m.handledJoinID = joinID
		m.status = domain.StatusJoined
		roomID, username := m.identity.RoomID, m.identity.Username
		m.mu.Unlock()
		log.Info().Str("module", "session").Str("room", roomID).Str("username", username).Msg("joined, navigating to workspace")
		m.nav.NavigateToWorkspace(roomID, username)
		return
	}

	if err := m.guard.Clear(); err != nil {
		log.Error().Err(err).Str("module", "session").Msg("clear redirect flag")
	}
	m.handledJoinID = ""
	m.joinID = ""
	m.status = domain.StatusDisconnected
	m.mu.Unlock()

	// The cycle runs outside the lock: Disconnect delivers the synthetic
	// disconnected event straight back into OnConnectionLifecycle.
	log.Info().Str("module", "session").Msg("redirect already done, cycling connection for a fresh session")
	m.conn.Disconnect()
	m.conn.Connect()
}

func (m *Machine) armJoinTimer(joinID string) {
	if m.joinTimeout <= 0 {
		return
	}
	if m.joinTimer != nil {
		m.joinTimer.Stop()
	}
	m.joinTimer = time.AfterFunc(m.joinTimeout, func() { m.onJoinTimeout(joinID) })
}

func (m *Machine) stopJoinTimer() {
	if m.joinTimer != nil {
		m.joinTimer.Stop()
		m.joinTimer = nil
	}
}

func (m *Machine) onJoinTimeout(joinID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != domain.StatusAttemptingJoin || m.joinID != joinID {
		return
	}
	m.status = domain.StatusJoinFailed
	m.lastErr = ErrJoinTimeout
	log.Warn().Str("module", "session").Str("join_id", joinID).Msg("join attempt expired")
	if m.notify != nil {
		m.notify.Error("Joining the room timed out, please try again")
	}
	m.joinID = ""
	m.status = domain.StatusDisconnected
}
