package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/codesync/codesync/internal/core"
)

var ErrBackpressure = errors.New("backpressure")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsConn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

func (c *wsConn) TrySend(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

func (c *wsConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}

// WSController accepts shell connections and speaks the envelope protocol:
// a join-request registers the client in its room, gets a joined ack echoing
// the join id, and the room's peers hear user-joined.
type WSController struct {
	Registry  *Registry
	ReadLimit int64
}

func (ctl *WSController) HandleWS(ctx context.Context, c *gin.Context) {
	sid := c.GetString("client_token")
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "server.ws").Msg("upgrade failed")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}
	log.Info().Str("module", "server.ws").Str("sid", sid).Msg("new shell connection")

	conn := &wsConn{
		conn: ws,
		send: make(chan []byte, 32),
	}

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go func() {
		defer cancel()
		ctl.readPump(ctx, sid, conn)
	}()
}

func (ctl *WSController) writePump(ctx context.Context, c *wsConn) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "server.ws").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "server.ws").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *WSController) readPump(ctx context.Context, sid string, c *wsConn) {
	defer func() {
		log.Info().Str("module", "server.ws").Str("sid", sid).Msg("readPump closing")
		ctl.Registry.Leave(sid)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Str("module", "server.ws").Str("sid", sid).Msg("readPump read error")
				return
			}
			ctl.handleEnvelope(sid, c, data)
		}
	}
}

func (ctl *WSController) handleEnvelope(sid string, c *wsConn, data []byte) {
	var env core.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "server.ws").Msg("bad envelope")
		return
	}

	switch env.Type {
	case core.EventJoinRequest:
		ctl.handleJoinRequest(sid, c, env.Payload)
	default:
		log.Warn().Str("module", "server.ws").Str("type", env.Type).Msg("unknown event")
	}
}

func (ctl *WSController) handleJoinRequest(sid string, c *wsConn, payload []byte) {
	var req core.JoinRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		log.Warn().Err(err).Str("module", "server.ws").Msg("bad join-request payload")
		return
	}
	if req.RoomID == "" {
		log.Warn().Str("module", "server.ws").Str("sid", sid).Msg("join-request without room id")
		return
	}

	ctl.Registry.Join(sid, req.RoomID, req.Username, c)
	log.Info().Str("module", "server.ws").Str("sid", sid).Str("room", req.RoomID).Int("members", ctl.Registry.RoomCount(req.RoomID)).Msg("join-request accepted")

	ctl.sendEvent(c, core.EventJoined, core.JoinAck{JoinID: req.JoinID, RoomID: req.RoomID})

	notice := core.UserJoined{RoomID: req.RoomID, Username: req.Username}
	for _, peer := range ctl.Registry.RoomPeers(req.RoomID, sid) {
		ctl.sendEvent(peer, core.EventUserJoined, notice)
	}
}

func (ctl *WSController) sendEvent(c *wsConn, event string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("module", "server.ws").Msg("marshal payload")
		return
	}
	data, err := json.Marshal(core.Envelope{Type: event, Payload: body})
	if err != nil {
		log.Error().Err(err).Str("module", "server.ws").Msg("marshal envelope")
		return
	}
	if err := c.TrySend(data); err != nil {
		log.Warn().Err(err).Str("module", "server.ws").Str("event", event).Msg("send dropped")
	}
}
