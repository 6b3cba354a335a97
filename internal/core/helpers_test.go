package core

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/QuizRush/internal/domain"
)

type frame map[string]any

func (f frame) kind() string { s, _ := f["type"].(string); return s }

// fakeConn records every frame it accepts.
type fakeConn struct {
	mu     sync.Mutex
	frames []frame
	full   bool
	closed bool
}

func (c *fakeConn) TrySend(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	if c.full {
		return ErrBackpressure
	}
	var m frame
	if err := json.Unmarshal(f, &m); err != nil {
		panic(err)
	}
	c.frames = append(c.frames, m)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) kinds() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.frames))
	for _, f := range c.frames {
		out = append(out, f.kind())
	}
	return out
}

func (c *fakeConn) all(kind string) []frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []frame
	for _, f := range c.frames {
		if f.kind() == kind {
			out = append(out, f)
		}
	}
	return out
}

func (c *fakeConn) last(kind string) frame {
	fs := c.all(kind)
	if len(fs) == 0 {
		return nil
	}
	return fs[len(fs)-1]
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
}

// stubTickers hands out tickers that never fire; tests drive ticks by hand.
type stubTickers struct{}

func (stubTickers) NewTicker(time.Duration) Ticker { return stubTicker{} }

type stubTicker struct{}

func (stubTicker) C() <-chan time.Time { return nil }
func (stubTicker) Stop()               {}

// manualTickers hands out tickers whose channel the test feeds.
type manualTickers struct {
	mu      sync.Mutex
	tickers []*manualTicker
}

func (m *manualTickers) NewTicker(time.Duration) Ticker {
	t := &manualTicker{ch: make(chan time.Time), stopped: make(chan struct{})}
	m.mu.Lock()
	m.tickers = append(m.tickers, t)
	m.mu.Unlock()
	return t
}

type manualTicker struct {
	ch       chan time.Time
	stopOnce sync.Once
	stopped  chan struct{}
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }
func (t *manualTicker) Stop()               { t.stopOnce.Do(func() { close(t.stopped) }) }

func testTiming() Timing {
	return Timing{
		Tick:         time.Second,
		QuestionTime: 3 * time.Second,
		RevealTime:   2 * time.Second,
	}
}

func questions(n int) []domain.Question {
	out := make([]domain.Question, n)
	for i := range out {
		out[i] = domain.Question{
			Prompt:  "question",
			Options: []string{"right", "wrong", "other"},
			Answer:  "right",
		}
	}
	return out
}

func newTestRoom(t *testing.T, capacity int, opts RoomOptions) *Room {
	t.Helper()
	meta, err := domain.NewRoom(domain.RoomConfig{
		Name:       "Test room",
		HostName:   "alice",
		MaxPlayers: capacity,
		Settings:   domain.DefaultSettings(),
	})
	require.NoError(t, err)
	if opts.Tickers == nil {
		opts.Tickers = stubTickers{}
	}
	if opts.Timing.Tick == 0 {
		opts.Timing = testTiming()
	}
	r := NewRoom(meta, opts)
	t.Cleanup(r.Close)
	return r
}

type member struct {
	id   domain.PlayerID
	conn *fakeConn
}

func join(t *testing.T, r *Room, name string) member {
	t.Helper()
	conn := &fakeConn{}
	id, err := r.Join(name, "", conn)
	require.NoError(t, err)
	return member{id: id, conn: conn}
}

func readyAll(r *Room, ms ...member) {
	for _, m := range ms {
		r.SetReady(m.id, true)
	}
}

// startGame readies everyone and starts with the given questions and no countdown.
func startGame(t *testing.T, r *Room, qs []domain.Question, ms ...member) {
	t.Helper()
	readyAll(r, ms...)
	require.NoError(t, r.Start(t.Context(), ms[0].id, qs))
	require.Equal(t, domain.StatusPlaying, r.Status())
}

// tick drives the round timer n times.
func tick(r *Room, n int) {
	for i := 0; i < n; i++ {
		r.mu.Lock()
		round := r.round
		var gen uint64
		if round != nil {
			gen = round.timerGen
		}
		r.mu.Unlock()
		r.onRoundTick(round, gen)
	}
}

func phaseOf(f frame) string {
	st := f["state"].(map[string]any)
	return st["phase"].(string)
}

func stateOf(f frame) map[string]any {
	return f["state"].(map[string]any)
}
