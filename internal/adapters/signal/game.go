package signal

import (
	"context"

	"github.com/dkeye/QuizRush/internal/app"
	"github.com/dkeye/QuizRush/internal/domain"
	"github.com/dkeye/QuizRush/internal/protocol"
)

func (ctl *SignalWSController) handleStart(ctx context.Context, sid app.SessionID, m protocol.StartGame) error {
	room, pid, err := ctl.Orch.RoomFor(sid)
	if err != nil {
		return err
	}
	questions, err := m.DomainQuestions()
	if err != nil {
		return err
	}
	return room.Start(ctx, pid, questions)
}

// handleAnswer drops late and duplicate answers without a reply.
func (ctl *SignalWSController) handleAnswer(sid app.SessionID, m protocol.Answer) error {
	room, pid, err := ctl.Orch.RoomFor(sid)
	if err != nil {
		return err
	}
	if m.PlayerID != "" && domain.PlayerID(m.PlayerID) != pid {
		return domain.ErrIDMismatch
	}
	room.Submit(pid, m.Answer)
	return nil
}
