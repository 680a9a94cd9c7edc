package core

import (
	"time"

	"github.com/dnstools/requestq/item"
)

// OperationSource resolves an action name to a registered operation.
// The registry package provides the standard implementation.
type OperationSource interface {
	Get(action string) (item.Operation, bool)
}

// Notifier receives advisory events from the engine. Implementations
// must be safe for calls from the engine's goroutines and should return
// quickly; engine correctness never depends on a notifier being
// attached.
type Notifier interface {
	// ItemStarted fires when the worker begins executing an item.
	ItemStarted(id string)

	// ItemFinished fires after a terminal transition, with the raw
	// result payload.
	ItemFinished(id string, ok bool, payload any)

	// QueuePaused and QueueResumed track the pause state.
	QueuePaused()
	QueueResumed()

	// QueueEmpty fires when the worker finds nothing to do.
	QueueEmpty()

	// QueueChanged fires when the pending set or history changes
	// outside normal execution (enqueue, cancel, clear).
	QueueChanged()

	// RateLimited fires when the remote API asks the client to back
	// off, with the server-suggested wait.
	RateLimited(retryAfter time.Duration, message string)
}

func (e *Engine) notifyStarted(id string) {
	for _, n := range e.notifiers {
		n.ItemStarted(id)
	}
}

func (e *Engine) notifyFinished(id string, ok bool, payload any) {
	for _, n := range e.notifiers {
		n.ItemFinished(id, ok, payload)
	}
}

func (e *Engine) notifyPaused() {
	for _, n := range e.notifiers {
		n.QueuePaused()
	}
}

func (e *Engine) notifyResumed() {
	for _, n := range e.notifiers {
		n.QueueResumed()
	}
}

func (e *Engine) notifyEmpty() {
	for _, n := range e.notifiers {
		n.QueueEmpty()
	}
}

func (e *Engine) notifyChanged() {
	for _, n := range e.notifiers {
		n.QueueChanged()
	}
}

func (e *Engine) notifyRateLimited(retryAfter time.Duration, message string) {
	for _, n := range e.notifiers {
		n.RateLimited(retryAfter, message)
	}
}
