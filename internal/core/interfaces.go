package core

import (
	"context"
	"time"

	"github.com/dkeye/QuizRush/internal/domain"
)

//go:generate mockgen -destination=mocks_test.go -package=core . QuestionSource,SignalConnection

// QuestionSource supplies the question list for a new game.
type QuestionSource interface {
	Questions(ctx context.Context, req domain.QuestionRequest) ([]domain.Question, error)
}

// Ticker is the subset of *time.Ticker the room timers use.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates tickers, so timers can be driven by hand in tests.
type TickerFactory interface {
	NewTicker(d time.Duration) Ticker
}

type RealTickers struct{}

func (RealTickers) NewTicker(d time.Duration) Ticker { return realTicker{time.NewTicker(d)} }

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }
