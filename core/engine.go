// Package core implements the request queue engine: a single
// background worker that serializes, rate-limits, retries, and audits
// every outbound API call on behalf of an interactive client.
package core

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/dnstools/requestq/errors"
	"github.com/dnstools/requestq/history"
	"github.com/dnstools/requestq/item"
	"github.com/dnstools/requestq/jsonsafe"
	"github.com/dnstools/requestq/queue"
)

// HardLimitWait separates transient throttling from hard quota
// exhaustion: a server-suggested wait at or above this threshold is
// treated as a daily/quota limit and fails the item immediately instead
// of retrying.
const HardLimitWait = 60 * time.Second

// backoffChunk bounds how long a stop request can go unnoticed while
// the worker sleeps out a rate-limit backoff.
const backoffChunk = time.Second

// Engine owns the pending queue, the history store, and the single
// worker goroutine. All exported methods are safe to call from any
// number of producer goroutines.
type Engine struct {
	config  *Config
	queue   *queue.Queue
	history *history.Store

	notifiers []Notifier

	seq atomic.Int64

	callbacks chan callbackCall

	mu      sync.Mutex
	paused  bool
	started bool
	resume  chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewEngine creates an engine. It does not start processing until
// Start is called; Enqueue before Start is allowed and the items wait
// in the queue.
func NewEngine(options ...EngineOption) *Engine {
	config := defaultConfig()
	for _, opt := range options {
		opt(config)
	}

	hist := history.NewStore(config.HistoryLimit)
	if config.Persister != nil {
		hist.SetPersister(config.Persister)
		hist.SetPersist(config.Persist)
	}
	if config.Registry != nil {
		hist.SetResolver(config.Registry.Get)
	}

	return &Engine{
		config:    config,
		queue:     queue.New(),
		history:   hist,
		notifiers: config.Notifiers,
		callbacks: make(chan callbackCall, config.CallbackBuffer),
		resume:    make(chan struct{}, 1),
	}
}

// Start loads persisted history and launches the worker and callback
// dispatcher goroutines.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return errors.ErrAlreadyStarted
	}
	e.started = true
	e.ctx, e.cancel = context.WithCancel(ctx)
	runCtx := e.ctx
	e.mu.Unlock()

	e.history.Load()

	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		e.dispatchCallbacks(runCtx)
	}()
	go func() {
		defer e.wg.Done()
		e.work(runCtx)
	}()

	slog.Info("Request queue engine started")
	return nil
}

// Stop requests shutdown, waits up to the configured timeout for the
// worker to exit, and flushes history one final time. An in-flight
// rate-limit backoff is interrupted within about a second.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return nil
	}
	cancel := e.cancel
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.queue.Wake()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Request queue engine stopped")
	case <-time.After(e.config.StopTimeout):
		slog.Warn("Engine shutdown timeout exceeded")
	}

	e.history.Flush()

	e.mu.Lock()
	e.started = false
	e.mu.Unlock()
	return nil
}

// Run starts the engine and blocks until the context is cancelled or a
// shutdown signal arrives, then stops gracefully.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.Start(ctx); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
	}

	return e.Stop()
}

// Enqueue assigns the item its sequence number, captures the audit
// snapshot of the request, and hands it to the worker. It returns the
// item id immediately and never blocks on I/O or on the worker.
//
// A missing operation is a caller bug and fails synchronously.
func (e *Engine) Enqueue(it *item.Item) (string, error) {
	if it == nil {
		return "", errors.ErrNilItem
	}
	if it.Operation == nil {
		return "", errors.ErrNilOperation
	}

	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if it.CreatedAt.IsZero() {
		it.CreatedAt = time.Now()
	}
	if it.MaxRetries <= 0 {
		it.MaxRetries = e.config.MaxRetries
	}
	it.Status = item.StatusPending
	it.Sequence = e.seq.Add(1)

	// Captured once; an automatic retry keeps the original snapshot.
	if it.RequestInfo == nil {
		it.RequestInfo = buildRequestInfo(it)
	}

	e.history.Track(it)
	e.queue.Push(it)
	e.notifyChanged()

	slog.Debug("Item enqueued",
		"id", it.ID, "action", it.Action,
		"priority", it.Priority.String(), "sequence", it.Sequence)
	return it.ID, nil
}

// Pause suspends processing after the current item finishes.
func (e *Engine) Pause() {
	e.mu.Lock()
	if e.paused {
		e.mu.Unlock()
		return
	}
	e.paused = true
	e.mu.Unlock()

	slog.Info("Queue paused")
	e.notifyPaused()
}

// Resume restarts processing and wakes the worker.
func (e *Engine) Resume() {
	e.mu.Lock()
	if !e.paused {
		e.mu.Unlock()
		return
	}
	e.paused = false
	e.mu.Unlock()

	select {
	case e.resume <- struct{}{}:
	default:
	}
	e.queue.Wake()

	slog.Info("Queue resumed")
	e.notifyResumed()
}

// Cancel cancels a pending item. Items already running or terminal are
// left alone; cancellation is cooperative and never preempts
// execution. Returns whether the item was cancelled.
func (e *Engine) Cancel(id string) bool {
	it, ok := e.history.CancelPending(id)
	if !ok {
		return false
	}

	slog.Info("Item cancelled", "id", it.ID, "action", it.Action)
	e.notifyChanged()
	return true
}

// Retry re-enqueues a failed or cancelled item through the normal
// enqueue path. The item keeps its id and accumulated retry count but
// receives a new sequence number, so it queues behind work enqueued
// since its failure.
func (e *Engine) Retry(id string) error {
	it, err := e.history.TakeForRetry(id)
	if err != nil {
		return err
	}

	_, err = e.Enqueue(it)
	return err
}

// RetryAllFailed retries every failed history item and returns how many
// were re-enqueued.
func (e *Engine) RetryAllFailed() int {
	n := 0
	for _, it := range e.history.RetryCandidates() {
		if err := e.Retry(it.ID); err != nil {
			slog.Warn("Failed to retry item", "id", it.ID, "error", err)
			continue
		}
		n++
	}
	return n
}

// PendingCount returns the current queue depth.
func (e *Engine) PendingCount() int {
	return e.queue.Len()
}

// History returns an independent copy of the history list, most recent
// first.
func (e *Engine) History() []item.Snapshot {
	return e.history.List()
}

// ClearHistory drops all history entries.
func (e *Engine) ClearHistory() {
	e.history.Clear()
	e.notifyChanged()
}

// RemoveCompleted drops completed entries, keeping failures and
// cancellations visible.
func (e *Engine) RemoveCompleted() {
	e.history.RemoveCompleted()
	e.notifyChanged()
}

// SetHistoryLimit changes the retention bound at runtime. Takes effect
// on the next history write.
func (e *Engine) SetHistoryLimit(n int) {
	e.history.SetLimit(n)
}

// SetPersistence toggles history persistence at runtime.
func (e *Engine) SetPersistence(enabled bool) {
	e.history.SetPersist(enabled)
}

// SetPersister swaps the durable backend at runtime. Takes effect on
// the next write.
func (e *Engine) SetPersister(p history.Persister) {
	e.history.SetPersister(p)
}

// work is the single worker loop.
func (e *Engine) work(ctx context.Context) {
	notifiedEmpty := false

	for {
		if ctx.Err() != nil {
			return
		}
		if !e.waitWhilePaused(ctx) {
			return
		}

		it, ok := e.queue.Pop()
		if !ok {
			if !notifiedEmpty {
				e.notifyEmpty()
				notifiedEmpty = true
			}
			select {
			case <-ctx.Done():
				return
			case <-e.queue.Wait():
			case <-time.After(e.config.EmptyWait):
			}
			continue
		}
		notifiedEmpty = false

		// Cancelled before execution began: discard silently. The
		// cancellation was already recorded at cancel time.
		if !e.history.MarkRunning(it) {
			continue
		}

		e.notifyStarted(it.ID)
		slog.Debug("Item started", "id", it.ID, "action", it.Action)

		payload, err := e.invoke(ctx, it)
		e.settle(ctx, it, payload, err)
	}
}

// invoke runs the operation with panic recovery; a panicking operation
// never takes down the worker loop.
func (e *Engine) invoke(ctx context.Context, it *item.Item) (payload any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("operation panic: %v", r)
		}
	}()
	return it.Operation(ctx, it.Args)
}

// settle classifies the outcome of one execution: success, ordinary
// failure, or the rate-limit signal with its retry machinery.
func (e *Engine) settle(ctx context.Context, it *item.Item, payload any, err error) {
	if err == nil {
		e.finalize(ctx, it, true, payload, "")
		return
	}

	var rl *item.RateLimitError
	if stderrors.As(err, &rl) {
		e.settleRateLimited(ctx, it, rl)
		return
	}

	var opErr *item.OpError
	if stderrors.As(err, &opErr) {
		e.finalize(ctx, it, false, opErr.Payload(), opErr.Message)
		return
	}
	e.finalize(ctx, it, false, map[string]any{"message": err.Error()}, err.Error())
}

func (e *Engine) settleRateLimited(ctx context.Context, it *item.Item, rl *item.RateLimitError) {
	// A long wait means a hard daily/quota limit; retrying
	// automatically would just burn the quota window.
	if rl.RetryAfter >= HardLimitWait {
		e.notifyRateLimited(rl.RetryAfter, rl.Message)
		e.finalize(ctx, it, false, rateLimitPayload(rl),
			fmt.Sprintf("rate limit exceeded, not retrying (server asks to wait %s): %s", rl.RetryAfter, rl.Message))
		return
	}

	if it.RetryCount < it.MaxRetries {
		it.RetryCount++
		if it.RetryCount == 1 {
			// One advisory signal per item, not one per attempt.
			e.notifyRateLimited(rl.RetryAfter, rl.Message)
		}
		slog.Info("Rate limited, will retry",
			"id", it.ID, "retryAfter", rl.RetryAfter,
			"attempt", it.RetryCount, "maxRetries", it.MaxRetries)

		if !sleepInterruptibly(ctx, rl.RetryAfter+e.config.RetrySlack) {
			// Shutdown mid-backoff; the item stays in memory only.
			return
		}

		e.history.ResetPending(it)
		// Original sequence preserved: the item keeps its position
		// against same-priority work enqueued after it.
		e.queue.Push(it)
		return
	}

	e.finalize(ctx, it, false, rateLimitPayload(rl),
		fmt.Sprintf("rate limited: gave up after %d retries: %s", it.RetryCount, rl.Message))
}

// finalize applies the terminal transition, persists history, and emits
// the finished notification and callback.
func (e *Engine) finalize(ctx context.Context, it *item.Item, ok bool, payload any, errMsg string) {
	status := item.StatusCompleted
	if !ok {
		status = item.StatusFailed
	}

	result := &item.Result{OK: ok, Payload: payload}
	e.history.Finalize(it, status, result, jsonsafe.Sanitize(payload), errMsg)

	if ok {
		slog.Info("Item completed", "id", it.ID, "action", it.Action)
	} else {
		slog.Warn("Item failed", "id", it.ID, "action", it.Action, "error", errMsg)
	}

	e.notifyFinished(it.ID, ok, payload)

	if it.Callback != nil {
		// Hand off to the dispatcher; the worker does not wait for the
		// callback to run.
		select {
		case e.callbacks <- callbackCall{fn: it.Callback, ok: ok, payload: payload}:
		case <-ctx.Done():
		}
	}
}

// waitWhilePaused blocks while the engine is paused. Returns false when
// shutdown was requested.
func (e *Engine) waitWhilePaused(ctx context.Context) bool {
	for {
		e.mu.Lock()
		paused := e.paused
		e.mu.Unlock()
		if !paused {
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-e.resume:
		}
	}
}

// sleepInterruptibly sleeps for d in bounded chunks, returning false if
// the context was cancelled first.
func sleepInterruptibly(ctx context.Context, d time.Duration) bool {
	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(min(remaining, backoffChunk)):
		}
	}
}

func rateLimitPayload(rl *item.RateLimitError) any {
	if rl.Raw != nil {
		return rl.Raw
	}
	return map[string]any{
		"message":    rl.Message,
		"retryAfter": rl.RetryAfter.Seconds(),
	}
}

// buildRequestInfo captures the JSON-safe audit snapshot of a request
// at first enqueue.
func buildRequestInfo(it *item.Item) map[string]any {
	info := map[string]any{"action": it.Action}
	if it.Category != "" {
		info["category"] = it.Category
	}
	if len(it.Args.Positional) > 0 {
		info["args"] = jsonsafe.Sanitize(it.Args.Positional)
	}
	if len(it.Args.Named) > 0 {
		info["namedArgs"] = jsonsafe.Sanitize(it.Args.Named)
	}
	return info
}
