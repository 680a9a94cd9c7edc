package core

import (
	"context"
	"log/slog"
)

// callbackCall is one completion callback waiting to run on the
// dispatcher goroutine.
type callbackCall struct {
	fn      func(ok bool, payload any)
	ok      bool
	payload any
}

// dispatchCallbacks is the single-consumer inbox for completion
// callbacks. Running them here, never on the worker goroutine, keeps
// callback side effects serialized with producer-side state.
func (e *Engine) dispatchCallbacks(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			// Drain what was already handed off so finished items
			// still see their callbacks during shutdown.
			for {
				select {
				case c := <-e.callbacks:
					e.runCallback(c)
				default:
					return
				}
			}
		case c := <-e.callbacks:
			e.runCallback(c)
		}
	}
}

func (e *Engine) runCallback(c callbackCall) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Callback panic", "panic", r)
		}
	}()
	c.fn(c.ok, c.payload)
}
