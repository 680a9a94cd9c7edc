package core

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dnstools/requestq/item"
)

func TestMain(m *testing.M) {
	// Only show errors in tests to avoid noise.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	slog.SetDefault(logger)
	os.Exit(m.Run())
}

// testSetup bundles an engine tuned for fast tests with a recording
// notifier.
type testSetup struct {
	Engine   *Engine
	Notifier *recordingNotifier
}

// newTestSetup builds an engine with short waits. Extra options are
// applied on top.
func newTestSetup(t *testing.T, options ...EngineOption) *testSetup {
	t.Helper()

	notifier := newRecordingNotifier()
	base := []EngineOption{
		WithEmptyWait(10 * time.Millisecond),
		WithRetrySlack(5 * time.Millisecond),
		WithStopTimeout(2 * time.Second),
		WithNotifier(notifier),
	}
	engine := NewEngine(append(base, options...)...)

	return &testSetup{Engine: engine, Notifier: notifier}
}

// start runs the engine and registers cleanup.
func (s *testSetup) start(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Engine.Start(ctx); err != nil {
		cancel()
		t.Fatalf("failed to start engine: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Engine.Stop()
		cancel()
	})
}

// waitFor polls cond until it holds or the timeout expires.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

// historyStatus returns the status of id in history, or "" if absent.
func historyStatus(e *Engine, id string) item.Status {
	for _, snap := range e.History() {
		if snap.ID == id {
			return snap.Status
		}
	}
	return ""
}

// waitFinished waits until id shows up terminal in history.
func waitFinished(t *testing.T, e *Engine, id string) item.Snapshot {
	t.Helper()

	waitFor(t, 3*time.Second, func() bool {
		return historyStatus(e, id).Terminal()
	}, "item "+id+" to finish")

	for _, snap := range e.History() {
		if snap.ID == id {
			return snap
		}
	}
	t.Fatalf("item %s missing from history", id)
	return item.Snapshot{}
}
