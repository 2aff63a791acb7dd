package server

import (
	"sync"

	"github.com/rs/zerolog/log"
)

type member struct {
	conn     *wsConn
	username string
	roomID   string
}

// Registry is a threadsafe map of connected clients and their room
// membership. It never closes connections; the ws controller owns those.
type Registry struct {
	mu      sync.RWMutex
	members map[string]*member // sid -> member
}

func NewRegistry() *Registry {
	return &Registry{members: make(map[string]*member)}
}

func (r *Registry) Join(sid, roomID, username string, c *wsConn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[sid] = &member{conn: c, username: username, roomID: roomID}
	log.Info().Str("module", "server.registry").Str("sid", sid).Str("room", roomID).Str("username", username).Msg("member joined")
}

func (r *Registry) Leave(sid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, sid)
	log.Info().Str("module", "server.registry").Str("sid", sid).Msg("member left")
}

// RoomPeers returns the connections of everyone in roomID except sid.
func (r *Registry) RoomPeers(roomID, exceptSID string) []*wsConn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*wsConn, 0, len(r.members))
	for sid, m := range r.members {
		if sid != exceptSID && m.roomID == roomID {
			out = append(out, m.conn)
		}
	}
	return out
}

func (r *Registry) RoomCount(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, m := range r.members {
		if m.roomID == roomID {
			n++
		}
	}
	return n
}
