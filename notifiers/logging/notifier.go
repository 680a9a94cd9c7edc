// Package logging provides a Notifier that writes engine events to a
// structured logger.
package logging

import (
	"log/slog"
	"time"
)

// Notifier logs every engine event through slog.
type Notifier struct {
	logger *slog.Logger
}

// NewNotifier creates a notifier writing to logger. A nil logger uses
// the process default.
func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{logger: logger}
}

func (n *Notifier) ItemStarted(id string) {
	n.logger.Info("Queue item started", "id", id)
}

func (n *Notifier) ItemFinished(id string, ok bool, payload any) {
	if ok {
		n.logger.Info("Queue item finished", "id", id, "ok", ok)
		return
	}
	n.logger.Warn("Queue item finished", "id", id, "ok", ok)
}

func (n *Notifier) QueuePaused() {
	n.logger.Info("Queue paused")
}

func (n *Notifier) QueueResumed() {
	n.logger.Info("Queue resumed")
}

func (n *Notifier) QueueEmpty() {
	n.logger.Debug("Queue empty")
}

func (n *Notifier) QueueChanged() {
	n.logger.Debug("Queue changed")
}

func (n *Notifier) RateLimited(retryAfter time.Duration, message string) {
	n.logger.Warn("Rate limited by server", "retryAfter", retryAfter, "message", message)
}
