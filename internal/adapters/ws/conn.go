// Package ws implements the connection handle over a gorilla websocket
// client: fire-and-forget connect/disconnect, a buffered write pump with
// backpressure, and envelope-based event dispatch.
package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/codesync/codesync/internal/core"
)

var (
	ErrNotConnected = errors.New("not connected")
	ErrBackpressure = errors.New("backpressure")
)

const (
	sendBuffer   = 32
	writeTimeout = 5 * time.Second

	defaultRedialMin = 500 * time.Millisecond
	defaultRedialMax = 30 * time.Second
)

// Conn dials one websocket endpoint and dispatches inbound envelopes to
// registered handlers. The synthetic connected/disconnected events fire on
// every transition of the underlying socket, including failed dials. A failed
// dial holds its disconnected event back for a doubling backoff interval, so
// a handler that answers disconnected with Connect cannot hammer a dead
// backend.
type Conn struct {
	url    string
	dialer *websocket.Dialer

	redialMin time.Duration
	redialMax time.Duration

	mu         sync.RWMutex
	ws         *websocket.Conn
	send       chan []byte
	connected  bool
	dialing    bool
	redialWait time.Duration // next backoff after a failed dial
	handlers   map[string][]core.EventHandler
}

type Option func(*Conn)

// WithRedialBackoff sets the delay range applied after a failed dial before
// the disconnected event goes out. The delay starts at min, doubles per
// consecutive failure and is capped at max; a successful dial resets it.
func WithRedialBackoff(min, max time.Duration) Option {
	return func(c *Conn) {
		c.redialMin = min
		c.redialMax = max
	}
}

func New(url string, opts ...Option) *Conn {
	c := &Conn{
		url:       url,
		dialer:    websocket.DefaultDialer,
		redialMin: defaultRedialMin,
		redialMax: defaultRedialMax,
		handlers:  make(map[string][]core.EventHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// On registers h for event. Registration is expected at wiring time; handlers
// run on the read pump goroutine, one event at a time.
func (c *Conn) On(event string, h core.EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = append(c.handlers[event], h)
}

func (c *Conn) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Connect starts a dial in the background. Redundant calls while connected
// or already dialing are no-ops.
func (c *Conn) Connect() {
	c.mu.Lock()
	if c.connected || c.dialing {
		c.mu.Unlock()
		return
	}
	c.dialing = true
	c.mu.Unlock()
	go c.dial()
}

func (c *Conn) dial() {
	ws, _, err := c.dialer.Dial(c.url, nil)
	c.mu.Lock()
	if err != nil {
		// Keep the dialing flag up through the backoff: redundant Connect
		// calls during the wait stay no-ops.
		wait := c.redialWait
		if wait < c.redialMin {
			wait = c.redialMin
		}
		next := wait * 2
		if next > c.redialMax {
			next = c.redialMax
		}
		c.redialWait = next
		c.mu.Unlock()
		log.Warn().Err(err).Str("module", "ws").Str("url", c.url).Dur("retry_in", wait).Msg("dial failed")
		time.Sleep(wait)
		c.mu.Lock()
		c.dialing = false
		c.mu.Unlock()
		c.dispatch(core.EventDisconnected, nil)
		return
	}
	c.dialing = false
	c.redialWait = 0
	c.ws = ws
	c.send = make(chan []byte, sendBuffer)
	c.connected = true
	send := c.send
	c.mu.Unlock()

	log.Info().Str("module", "ws").Str("url", c.url).Msg("connected")
	go c.writePump(ws, send)
	go c.readPump(ws)
	c.dispatch(core.EventConnected, nil)
}

// Disconnect tears the socket down. Safe to call when already disconnected.
func (c *Conn) Disconnect() {
	c.mu.RLock()
	ws := c.ws
	c.mu.RUnlock()
	if ws != nil {
		c.teardown(ws)
	}
}

// Emit frames payload in an envelope and queues it. Fails fast when the
// socket is down or the write queue is full.
func (c *Conn) Emit(event string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(core.Envelope{Type: event, Payload: body})
	if err != nil {
		return err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.connected {
		return ErrNotConnected
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

// teardown closes ws and dispatches the disconnected event exactly once per
// socket, whichever of Disconnect or a pump error gets there first.
func (c *Conn) teardown(ws *websocket.Conn) {
	c.mu.Lock()
	if c.ws != ws {
		c.mu.Unlock()
		return
	}
	c.ws = nil
	c.connected = false
	close(c.send)
	_ = ws.Close()
	c.mu.Unlock()

	log.Info().Str("module", "ws").Msg("disconnected")
	c.dispatch(core.EventDisconnected, nil)
}

func (c *Conn) writePump(ws *websocket.Conn, send <-chan []byte) {
	for data := range send {
		if err := ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			log.Error().Err(err).Str("module", "ws").Msg("writePump set deadline")
			return
		}
		if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Error().Err(err).Str("module", "ws").Msg("writePump write error")
			return
		}
	}
}

func (c *Conn) readPump(ws *websocket.Conn) {
	defer c.teardown(ws)
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Str("module", "ws").Msg("readPump closing")
			return
		}
		var env core.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Warn().Err(err).Str("module", "ws").Msg("bad envelope")
			continue
		}
		c.dispatch(env.Type, env.Payload)
	}
}

func (c *Conn) dispatch(event string, payload []byte) {
	c.mu.RLock()
	handlers := append([]core.EventHandler(nil), c.handlers[event]...)
	c.mu.RUnlock()
	for _, h := range handlers {
		h(payload)
	}
}
