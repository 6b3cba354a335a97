package core

import (
	"github.com/dkeye/QuizRush/internal/domain"
	"golang.org/x/time/rate"
)

// Session binds a participant to its transport endpoint.
// This is what a room stores and fans out to.
type Session struct {
	player *domain.Player
	signal SignalConnection
	chat   *rate.Limiter
}

func newSession(p *domain.Player, conn SignalConnection, chat *rate.Limiter) *Session {
	return &Session{player: p, signal: conn, chat: chat}
}

func (s *Session) ID() domain.PlayerID      { return s.player.ID }
func (s *Session) Name() string             { return s.player.Name }
func (s *Session) Signal() SignalConnection { return s.signal }
