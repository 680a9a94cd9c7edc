package core

import (
	"context"
	"sync"
	"time"

	"github.com/dnstools/requestq/item"
)

// Mock implementations for testing

// recordingNotifier captures every event the engine emits.
type recordingNotifier struct {
	mu          sync.Mutex
	started     []string
	finished    []finishedEvent
	paused      int
	resumed     int
	empty       int
	changed     int
	rateLimited []rateLimitEvent
}

type finishedEvent struct {
	id      string
	ok      bool
	payload any
}

type rateLimitEvent struct {
	retryAfter time.Duration
	message    string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{}
}

func (r *recordingNotifier) ItemStarted(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, id)
}

func (r *recordingNotifier) ItemFinished(id string, ok bool, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, finishedEvent{id: id, ok: ok, payload: payload})
}

func (r *recordingNotifier) QueuePaused() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused++
}

func (r *recordingNotifier) QueueResumed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resumed++
}

func (r *recordingNotifier) QueueEmpty() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.empty++
}

func (r *recordingNotifier) QueueChanged() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changed++
}

func (r *recordingNotifier) RateLimited(retryAfter time.Duration, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rateLimited = append(r.rateLimited, rateLimitEvent{retryAfter: retryAfter, message: message})
}

func (r *recordingNotifier) startedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.started)
}

func (r *recordingNotifier) finishedEvents() []finishedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]finishedEvent(nil), r.finished...)
}

func (r *recordingNotifier) rateLimitedEvents() []rateLimitEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]rateLimitEvent(nil), r.rateLimited...)
}

func (r *recordingNotifier) emptyCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.empty
}

func (r *recordingNotifier) pausedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused
}

func (r *recordingNotifier) resumedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resumed
}

// staticPersister serves a canned history document and discards saves.
type staticPersister struct {
	entries []item.Snapshot
}

func (s *staticPersister) Save(snapshots []item.Snapshot) error { return nil }

func (s *staticPersister) Load() ([]item.Snapshot, error) {
	return append([]item.Snapshot(nil), s.entries...), nil
}

// callCounter counts operation invocations.
type callCounter struct {
	mu    sync.Mutex
	calls int
}

func (c *callCounter) inc() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.calls
}

func (c *callCounter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// succeedOp returns an operation that always succeeds with payload.
func succeedOp(payload any) item.Operation {
	return func(ctx context.Context, args item.Args) (any, error) {
		return payload, nil
	}
}

// failOp returns an operation that always fails with the given message
// and optional raw payload.
func failOp(message string, raw any) item.Operation {
	return func(ctx context.Context, args item.Args) (any, error) {
		return nil, &item.OpError{Message: message, Raw: raw}
	}
}

// rateLimitThenSucceed rate-limits the first n calls, then succeeds.
func rateLimitThenSucceed(counter *callCounter, n int, retryAfter time.Duration, payload any) item.Operation {
	return func(ctx context.Context, args item.Args) (any, error) {
		if counter.inc() <= n {
			return nil, &item.RateLimitError{RetryAfter: retryAfter, Message: "throttled"}
		}
		return payload, nil
	}
}

// alwaysRateLimited returns the rate-limit signal on every call.
func alwaysRateLimited(counter *callCounter, retryAfter time.Duration) item.Operation {
	return func(ctx context.Context, args item.Args) (any, error) {
		counter.inc()
		return nil, &item.RateLimitError{RetryAfter: retryAfter, Message: "throttled"}
	}
}

// recordingOp appends label to order (under mu) and succeeds.
func recordingOp(mu *sync.Mutex, order *[]string, label string) item.Operation {
	return func(ctx context.Context, args item.Args) (any, error) {
		mu.Lock()
		*order = append(*order, label)
		mu.Unlock()
		return label, nil
	}
}

// blockingOp signals entered and waits for release before succeeding.
func blockingOp(entered chan<- struct{}, release <-chan struct{}) item.Operation {
	return func(ctx context.Context, args item.Args) (any, error) {
		entered <- struct{}{}
		<-release
		return "done", nil
	}
}

// panicOp always panics.
func panicOp() item.Operation {
	return func(ctx context.Context, args item.Args) (any, error) {
		panic("kaboom")
	}
}
