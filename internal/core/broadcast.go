package core

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/QuizRush/internal/protocol"
)

// PublishResult reports how a frame was fanned out.
type PublishResult struct {
	SendTo  int
	Dropped []*Session
}

// Send encodes msg and queues it on conn without blocking.
func Send(conn SignalConnection, msg protocol.ServerMessage) error {
	frame, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	return conn.TrySend(frame)
}

func publish(sessions []*Session, msg protocol.ServerMessage) PublishResult {
	var res PublishResult
	frame, err := protocol.Encode(msg)
	if err != nil {
		log.Error().Err(err).Str("module", "core.broadcast").Str("kind", string(msg.Kind())).Msg("encode failed")
		return res
	}
	for _, s := range sessions {
		switch err := s.signal.TrySend(frame); {
		case err == nil:
			res.SendTo++
		case errors.Is(err, ErrBackpressure):
			res.Dropped = append(res.Dropped, s)
		}
	}
	return res
}

// broadcast sends msg to every participant. Must hold r.mu.
func (r *Room) broadcast(msg protocol.ServerMessage) {
	res := publish(r.sessions, msg)
	if len(res.Dropped) > 0 {
		r.log.Warn().Str("kind", string(msg.Kind())).Int("dropped", len(res.Dropped)).Msg("slow consumers")
		r.slow = append(r.slow, res.Dropped...)
	}
}

// unicast sends msg to one participant. Must hold r.mu.
func (r *Room) unicast(s *Session, msg protocol.ServerMessage) {
	res := publish([]*Session{s}, msg)
	r.slow = append(r.slow, res.Dropped...)
}
