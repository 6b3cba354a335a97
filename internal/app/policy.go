package app

import "github.com/dkeye/QuizRush/internal/core"

// BackpressureAction is applied after the overflowing frame was already dropped.
type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
)

// Policy decides what happens to a participant whose outbound buffer overflowed.
type Policy interface {
	OnBackPressure(room *core.Room, member *core.Session) BackpressureAction
}

// SimplePolicy kicks every slow consumer. A client that missed a frame can no
// longer reconstruct the room state.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(room *core.Room, member *core.Session) BackpressureAction {
	return KickMember
}
