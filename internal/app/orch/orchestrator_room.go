package orch

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/QuizRush/internal/app"
	"github.com/dkeye/QuizRush/internal/core"
	"github.com/dkeye/QuizRush/internal/domain"
)

// Join admits the connection into a room under the given display name.
// A connection belongs to at most one room at a time.
func (o *Orchestrator) Join(sid app.SessionID, roomID domain.RoomID, name, password string) (*core.Room, domain.PlayerID, error) {
	if from, _, ok := o.Registry.RoomOf(sid); ok {
		log.Debug().Str("module", "orch").Str("sid", string(sid)).Str("room", string(from)).Msg("join while in a room")
		return nil, "", domain.ErrAlreadyInRoom
	}
	conn, ok := o.Registry.GetSignal(sid)
	if !ok {
		return nil, "", domain.ErrNotInRoom
	}
	room, err := o.Rooms.FindJoinable(roomID, password)
	if err != nil {
		return nil, "", err
	}
	playerID, err := room.Join(name, password, conn)
	if err != nil {
		return nil, "", err
	}
	o.Registry.UpdateRoom(sid, roomID, playerID)
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(roomID)).Str("player", string(playerID)).Msg("added to room")
	return room, playerID, nil
}

// Leave removes the connection's player from its room. It is a no-op when the
// connection is not in a room.
func (o *Orchestrator) Leave(sid app.SessionID) {
	roomID, playerID, ok := o.Registry.RoomOf(sid)
	if !ok {
		return
	}
	o.Registry.RemoveRoom(sid)
	if room, ok := o.Rooms.Get(roomID); ok {
		room.Leave(playerID)
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(roomID)).Msg("left room")
}

// OnDisconnect is a leave followed by forgetting the connection.
func (o *Orchestrator) OnDisconnect(sid app.SessionID) {
	o.Leave(sid)
	o.Registry.Unbind(sid)
}
