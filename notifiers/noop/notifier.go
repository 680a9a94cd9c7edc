// Package noop provides a Notifier that discards all events. Useful as
// a placeholder and in tests.
package noop

import "time"

// Notifier implements core.Notifier with no-op operations
type Notifier struct{}

// NewNotifier creates a new no-op notifier
func NewNotifier() *Notifier {
	return &Notifier{}
}

// ItemStarted discards the event
func (n *Notifier) ItemStarted(id string) {}

// ItemFinished discards the event
func (n *Notifier) ItemFinished(id string, ok bool, payload any) {}

// QueuePaused discards the event
func (n *Notifier) QueuePaused() {}

// QueueResumed discards the event
func (n *Notifier) QueueResumed() {}

// QueueEmpty discards the event
func (n *Notifier) QueueEmpty() {}

// QueueChanged discards the event
func (n *Notifier) QueueChanged() {}

// RateLimited discards the event
func (n *Notifier) RateLimited(retryAfter time.Duration, message string) {}
