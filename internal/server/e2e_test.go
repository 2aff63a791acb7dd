package server

import (
	"sync"
	"testing"
	"time"

	"github.com/codesync/codesync/internal/adapters/ws"
	"github.com/codesync/codesync/internal/domain"
	"github.com/codesync/codesync/internal/guard"
	"github.com/codesync/codesync/internal/session"
)

type recordingNav struct {
	mu    sync.Mutex
	calls [][2]string
}

func (n *recordingNav) NavigateToWorkspace(roomID, username string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, [2]string{roomID, username})
}

func (n *recordingNav) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// TestClientJoinEndToEnd runs the whole forward flow against the real dev
// server: dial, submit, ack, single redirect into the workspace.
func TestClientJoinEndToEnd(t *testing.T) {
	srv := newTestServer(t)

	nav := &recordingNav{}
	g := guard.NewMemory()
	conn := ws.New(wsURL(srv.URL))
	m := session.NewMachine(conn, g, nav)
	m.Bind()

	conn.Connect()
	waitUntil(t, "connection", conn.Connected)

	if err := m.SubmitJoin(domain.Identity{RoomID: "abcde", Username: "bob"}); err != nil {
		t.Fatalf("SubmitJoin: %v", err)
	}
	waitUntil(t, "joined status", func() bool { return m.Status() == domain.StatusJoined })

	if nav.count() != 1 {
		t.Fatalf("navigations = %d, want 1", nav.count())
	}
	if got := nav.calls[0]; got != [2]string{"abcde", "bob"} {
		t.Errorf("navigated with %v", got)
	}
	if !g.IsSet() {
		t.Error("redirect flag not set")
	}
	conn.Disconnect()
}

// TestClientRemountEndToEnd replays the backward flow: a remounted shell
// whose redirect flag is still set must not navigate again, but consume the
// flag and cycle the connection for a fresh session.
func TestClientRemountEndToEnd(t *testing.T) {
	srv := newTestServer(t)

	g := guard.NewMemory()
	if err := g.Set(); err != nil {
		t.Fatal(err)
	}

	nav := &recordingNav{}
	conn := ws.New(wsURL(srv.URL))
	m := session.NewMachine(conn, g, nav)
	m.Bind()

	conn.Connect()
	waitUntil(t, "connection", conn.Connected)

	if err := m.SubmitJoin(domain.Identity{RoomID: "abcde", Username: "bob"}); err != nil {
		t.Fatalf("SubmitJoin: %v", err)
	}
	waitUntil(t, "flag consumed", func() bool { return !g.IsSet() })
	waitUntil(t, "disconnected status", func() bool { return m.Status() == domain.StatusDisconnected })

	if nav.count() != 0 {
		t.Errorf("navigations = %d, want 0 on re-entry", nav.count())
	}

	// The machine re-arms the connection; it comes back up on its own.
	waitUntil(t, "reconnect", conn.Connected)
	conn.Disconnect()
}
