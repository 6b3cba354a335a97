package core

import (
	"context"
	"time"
)

// Countdown calls fn on every tick until stopped. fn runs on the countdown's own
// goroutine; callers re-check their state under lock, so a tick that races a
// Stop is harmless.
type Countdown struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func StartCountdown(tickers TickerFactory, every time.Duration, fn func()) *Countdown {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Countdown{cancel: cancel, done: make(chan struct{})}
	t := tickers.NewTicker(every)
	go func() {
		defer close(c.done)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C():
				fn()
			}
		}
	}()
	return c
}

// Stop is safe on a nil or already stopped countdown. It does not wait for the
// goroutine, since fn may be blocked on the lock the caller holds.
func (c *Countdown) Stop() {
	if c == nil {
		return
	}
	c.cancel()
}

// Done is closed once the goroutine has exited.
func (c *Countdown) Done() <-chan struct{} { return c.done }
