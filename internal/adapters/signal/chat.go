package signal

import (
	"github.com/dkeye/QuizRush/internal/app"
	"github.com/dkeye/QuizRush/internal/protocol"
)

func (ctl *SignalWSController) handleChat(sid app.SessionID, m protocol.ChatMessage) error {
	room, pid, err := ctl.Orch.RoomFor(sid)
	if err != nil {
		return err
	}
	return room.Chat(pid, m.Message)
}
