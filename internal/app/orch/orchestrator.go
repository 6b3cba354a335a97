// Package orch binds client connections to rooms.
package orch

import (
	"github.com/dkeye/QuizRush/internal/app"
	"github.com/dkeye/QuizRush/internal/core"
	"github.com/dkeye/QuizRush/internal/domain"
)

type Orchestrator struct {
	Registry *app.Registry
	Rooms    *app.RoomRegistry
}

// RoomFor resolves the room and player bound to the connection.
func (o *Orchestrator) RoomFor(sid app.SessionID) (*core.Room, domain.PlayerID, error) {
	roomID, playerID, ok := o.Registry.RoomOf(sid)
	if !ok {
		return nil, "", domain.ErrNotInRoom
	}
	room, ok := o.Rooms.Get(roomID)
	if !ok {
		o.Registry.RemoveRoom(sid)
		return nil, "", domain.ErrNotInRoom
	}
	return room, playerID, nil
}
