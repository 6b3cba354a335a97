package core

import (
	"sort"
	"time"

	"github.com/dkeye/QuizRush/internal/domain"
	"github.com/dkeye/QuizRush/internal/protocol"
)

type Phase string

const (
	PhasePlaying Phase = "playing"
	PhaseReveal  Phase = "reveal"
	PhaseFinal   Phase = "final"
)

// Step is what a tick did to the round.
type Step int

const (
	StepNone Step = iota
	StepRevealed
	StepAdvanced
	StepFinished
)

// Round is the per-game state machine. It is not safe for concurrent use:
// the owning Room serialises every call.
type Round struct {
	questions []domain.Question
	index     int
	phase     Phase

	answers map[domain.PlayerID]string
	scores  map[domain.PlayerID]int

	questionTicks int
	revealTicks   int
	questionLeft  int
	revealLeft    int

	timer    *Countdown
	timerGen uint64
}

// NewRound opens question 0 with every listed player on zero.
func NewRound(questions []domain.Question, players []domain.PlayerID, questionTicks, revealTicks int) *Round {
	r := &Round{
		questions:     questions,
		phase:         PhasePlaying,
		answers:       make(map[domain.PlayerID]string),
		scores:        make(map[domain.PlayerID]int, len(players)),
		questionTicks: questionTicks,
		revealTicks:   revealTicks,
		questionLeft:  questionTicks,
	}
	for _, id := range players {
		r.scores[id] = 0
	}
	return r
}

func (r *Round) Phase() Phase { return r.phase }
func (r *Round) Index() int   { return r.index }
func (r *Round) Len() int     { return len(r.questions) }
func (r *Round) Current() domain.Question {
	return r.questions[r.index]
}

func (r *Round) Score(id domain.PlayerID) int { return r.scores[id] }

func (r *Round) Answer(id domain.PlayerID) (string, bool) {
	a, ok := r.answers[id]
	return a, ok
}

// Submit records the first answer of id for the open question.
// It reports false for a duplicate or when no question is open.
func (r *Round) Submit(id domain.PlayerID, option string) bool {
	if r.phase != PhasePlaying {
		return false
	}
	if _, dup := r.answers[id]; dup {
		return false
	}
	r.answers[id] = option
	return true
}

// AllAnswered reports whether every one of the given players has answered.
func (r *Round) AllAnswered(players []domain.PlayerID) bool {
	if len(players) == 0 {
		return false
	}
	for _, id := range players {
		if _, ok := r.answers[id]; !ok {
			return false
		}
	}
	return true
}

// Reveal closes the open question and scores it. Scoring happens only on
// this edge, so a second call is a no-op.
func (r *Round) Reveal() bool {
	if r.phase != PhasePlaying {
		return false
	}
	q := r.questions[r.index]
	for id, option := range r.answers {
		if _, ok := r.scores[id]; !ok {
			r.scores[id] = 0
		}
		if q.IsCorrect(option) {
			r.scores[id]++
		}
	}
	r.phase = PhaseReveal
	r.revealLeft = r.revealTicks
	r.questionLeft = 0
	return true
}

// Tick advances the phase timers by one interval.
func (r *Round) Tick() Step {
	switch r.phase {
	case PhasePlaying:
		r.questionLeft--
		if r.questionLeft <= 0 {
			r.Reveal()
			return StepRevealed
		}
	case PhaseReveal:
		r.revealLeft--
		if r.revealLeft <= 0 {
			return r.advance()
		}
	}
	return StepNone
}

func (r *Round) advance() Step {
	if r.index+1 < len(r.questions) {
		r.index++
		clear(r.answers)
		r.phase = PhasePlaying
		r.questionLeft = r.questionTicks
		r.revealLeft = 0
		return StepAdvanced
	}
	r.phase = PhaseFinal
	r.revealLeft = 0
	return StepFinished
}

// Stop cancels the round's timer.
func (r *Round) Stop() {
	r.timer.Stop()
	r.timer = nil
}

// Snapshot projects the round for clients. tick converts counters to seconds.
func (r *Round) Snapshot(tick time.Duration) protocol.GameState {
	st := protocol.GameState{
		QuestionIndex:         r.index,
		TotalQuestions:        len(r.questions),
		Questions:             make([]protocol.QuestionView, len(r.questions)),
		Phase:                 string(r.phase),
		Answered:              make(map[domain.PlayerID]bool, len(r.answers)),
		Scores:                make(map[domain.PlayerID]int, len(r.scores)),
		QuestionTimeRemaining: seconds(r.questionLeft, tick),
		RevealTimeRemaining:   seconds(r.revealLeft, tick),
	}
	for i, q := range r.questions {
		revealed := i < r.index || (i == r.index && r.phase != PhasePlaying)
		st.Questions[i] = protocol.NewQuestionView(q, revealed)
	}
	for id := range r.answers {
		st.Answered[id] = true
	}
	if r.phase != PhasePlaying {
		st.Answers = make(map[domain.PlayerID]string, len(r.answers))
		for id, a := range r.answers {
			st.Answers[id] = a
		}
	}
	for id, s := range r.scores {
		st.Scores[id] = s
	}
	return st
}

// Standings orders players by score, highest first, keeping the given order on ties.
func (r *Round) Standings(players []protocol.PlayerView) []protocol.PlayerView {
	out := make([]protocol.PlayerView, len(players))
	copy(out, players)
	for i := range out {
		out[i].Score = r.scores[out[i].ID]
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// seconds rounds a tick count up to whole seconds.
func seconds(ticks int, tick time.Duration) int {
	if ticks <= 0 {
		return 0
	}
	d := time.Duration(ticks) * tick
	return int((d + time.Second - 1) / time.Second)
}
