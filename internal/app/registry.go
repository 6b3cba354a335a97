package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/QuizRush/internal/core"
	"github.com/dkeye/QuizRush/internal/domain"
)

// SessionID identifies one client connection.
type SessionID string

type sessionEntry struct {
	RoomID   domain.RoomID
	PlayerID domain.PlayerID
	Signal   core.SignalConnection
	Cancel   context.CancelFunc
}

// Registry tracks live connections and the room each one has joined.
type Registry struct {
	mu       sync.RWMutex
	sessions map[SessionID]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[SessionID]*sessionEntry)}
}

func (r *Registry) BindSignal(sid SessionID, conn core.SignalConnection, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &sessionEntry{Signal: conn, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("bound signal")
}

func (r *Registry) GetSignal(sid SessionID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Signal, true
	}
	return nil, false
}

func (r *Registry) Unbind(sid SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind session")
}

// RoomOf returns the room and player the connection is bound to.
func (r *Registry) RoomOf(sid SessionID) (domain.RoomID, domain.PlayerID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok || e.RoomID == "" {
		return "", "", false
	}
	return e.RoomID, e.PlayerID, true
}

func (r *Registry) UpdateRoom(sid SessionID, room domain.RoomID, player domain.PlayerID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return false
	}
	e.RoomID = room
	e.PlayerID = player
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(room)).Str("player", string(player)).Msg("updated room")
	return true
}

func (r *Registry) RemoveRoom(sid SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[sid]; ok {
		e.RoomID = ""
		e.PlayerID = ""
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("removed room association")
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) Cancel(sid SessionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("canceled session")
	return true
}
