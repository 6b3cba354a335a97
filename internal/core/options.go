package core

import (
	"time"

	"golang.org/x/time/rate"
)

// Timing holds the phase durations. Counters are kept in ticks of Tick.
type Timing struct {
	Tick           time.Duration
	QuestionTime   time.Duration
	RevealTime     time.Duration
	StartCountdown time.Duration
	FetchTimeout   time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		Tick:           time.Second,
		QuestionTime:   20 * time.Second,
		RevealTime:     2 * time.Second,
		StartCountdown: 3 * time.Second,
		FetchTimeout:   5 * time.Second,
	}
}

func (t Timing) ticks(d time.Duration) int {
	if t.Tick <= 0 || d <= 0 {
		return 0
	}
	n := int(d / t.Tick)
	if d%t.Tick != 0 {
		n++
	}
	return n
}

// ChatPolicy limits chat per participant.
type ChatPolicy struct {
	Rate      rate.Limit
	Burst     int
	MaxLength int
}

func DefaultChatPolicy() ChatPolicy {
	return ChatPolicy{Rate: 2, Burst: 5, MaxLength: 500}
}

// RoomOptions wires a room to its collaborators.
type RoomOptions struct {
	Source  QuestionSource
	Tickers TickerFactory
	Timing  Timing
	Chat    ChatPolicy

	// OnEmpty runs, outside the room lock, once the last participant left.
	OnEmpty func(*Room)
	// OnSlowConsumer runs, outside the room lock, for every session whose
	// outbound buffer overflowed while handling one event.
	OnSlowConsumer func(*Room, *Session)
}
