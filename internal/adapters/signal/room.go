package signal

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/QuizRush/internal/app"
	"github.com/dkeye/QuizRush/internal/domain"
	"github.com/dkeye/QuizRush/internal/protocol"
)

func (ctl *SignalWSController) handleJoin(sid app.SessionID, m protocol.JoinRoom) error {
	_, pid, err := ctl.Orch.Join(sid, domain.RoomID(m.RoomID), m.PlayerName, m.Password)
	if err != nil {
		return err
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", m.RoomID).Str("player", string(pid)).Msg("join")
	return nil
}

// handleLeave keeps the connection open; the client may join another room.
func (ctl *SignalWSController) handleLeave(sid app.SessionID) {
	ctl.Orch.Leave(sid)
}

func (ctl *SignalWSController) handleReady(sid app.SessionID, m protocol.PlayerReady) error {
	room, pid, err := ctl.Orch.RoomFor(sid)
	if err != nil {
		return err
	}
	room.SetReady(pid, m.Ready)
	return nil
}

func (ctl *SignalWSController) handleUpdateSettings(sid app.SessionID, m protocol.UpdateSettings) error {
	room, pid, err := ctl.Orch.RoomFor(sid)
	if err != nil {
		return err
	}
	return room.UpdateSettings(pid, m.Settings, m.MaxPlayers)
}

func (ctl *SignalWSController) handleReset(sid app.SessionID) error {
	room, pid, err := ctl.Orch.RoomFor(sid)
	if err != nil {
		return err
	}
	return room.Reset(pid)
}
