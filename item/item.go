// Package item defines the unit of deferred work processed by the
// request queue engine: one outbound API call, its arguments, and the
// bookkeeping the engine keeps about it.
package item

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Priority determines queue draw order. Lower values are served first.
type Priority int

const (
	PriorityHigh   Priority = 0
	PriorityNormal Priority = 1
	PriorityLow    Priority = 2
)

// String returns the human-readable priority name
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// Status enumerates the lifecycle states of an item.
//
// Legal transitions: Pending -> Running -> {Completed | Failed},
// or Pending -> Cancelled. A terminal item only changes again through
// the engine's Retry operation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is a terminal state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Args holds the positional and named values passed to an operation.
type Args struct {
	Positional []any
	Named      map[string]any
}

// Operation is the opaque callable the engine invokes. The engine never
// inspects its behavior; it only calls it with the stored arguments and
// classifies the returned error.
//
// A nil error means success with the returned payload. An *OpError is an
// ordinary failure. A *RateLimitError is the distinguished rate-limit
// signal carrying a server-suggested wait.
type Operation func(ctx context.Context, args Args) (any, error)

// Callback is invoked with the terminal outcome of an item. Callbacks
// run on the engine's dispatcher goroutine, never on the worker
// goroutine.
type Callback func(ok bool, payload any)

// Result is the last outcome of an item, set only on a terminal
// transition.
type Result struct {
	OK      bool
	Payload any
}

// DefaultMaxRetries is the number of automatic rate-limit retries an
// item gets unless configured otherwise.
const DefaultMaxRetries = 3

// Item describes one unit of deferred work.
//
// Fields are written by the producer at construction time and by the
// engine afterwards; external readers should use Snapshot copies rather
// than holding on to live items.
type Item struct {
	// ID uniquely identifies the item for lookup, cancel, and retry.
	ID string

	// Priority determines queue draw order.
	Priority Priority

	// Category is a free-form classification string for grouping in
	// UIs. It has no behavioral effect.
	Category string

	// Action is a human-readable description used for logging and the
	// audit trail.
	Action string

	// Operation is the callable to invoke.
	Operation Operation

	// Args are passed to Operation verbatim.
	Args Args

	// Callback, if set, receives the terminal outcome.
	Callback Callback

	// MaxRetries bounds automatic rate-limit retries.
	MaxRetries int

	// Status is the current lifecycle state. Owned by the engine after
	// enqueue.
	Status Status

	// Result is the last outcome, set on the terminal transition.
	Result *Result

	// ErrorMessage is set when the item fails.
	ErrorMessage string

	CreatedAt   time.Time
	CompletedAt time.Time

	// RetryCount counts rate-limit-triggered automatic retries.
	RetryCount int

	// Sequence is assigned at enqueue time and breaks ties within a
	// priority tier. Never reused; an automatic rate-limit retry keeps
	// its sequence, a manual Retry gets a fresh one.
	Sequence int64

	// RequestInfo is a JSON-safe snapshot of the action and arguments,
	// captured once at first enqueue for the audit trail.
	RequestInfo map[string]any

	// ResponseData is a best-effort JSON-safe snapshot of the raw
	// result payload.
	ResponseData any
}

// Option configures an Item at construction time.
type Option func(*Item)

// WithPriority sets the item priority.
func WithPriority(p Priority) Option {
	return func(i *Item) { i.Priority = p }
}

// WithCategory sets the free-form category string.
func WithCategory(category string) Option {
	return func(i *Item) { i.Category = category }
}

// WithArgs sets the positional arguments passed to the operation.
func WithArgs(positional ...any) Option {
	return func(i *Item) { i.Args.Positional = positional }
}

// WithNamedArgs sets the named arguments passed to the operation.
func WithNamedArgs(named map[string]any) Option {
	return func(i *Item) { i.Args.Named = named }
}

// WithCallback sets the completion callback.
func WithCallback(cb Callback) Option {
	return func(i *Item) { i.Callback = cb }
}

// WithMaxRetries overrides the automatic rate-limit retry budget.
func WithMaxRetries(n int) Option {
	return func(i *Item) { i.MaxRetries = n }
}

// New creates a pending item for the given action and operation.
func New(action string, op Operation, opts ...Option) *Item {
	i := &Item{
		ID:         uuid.NewString(),
		Priority:   PriorityNormal,
		Action:     action,
		Operation:  op,
		MaxRetries: DefaultMaxRetries,
		Status:     StatusPending,
		CreatedAt:  time.Now(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// CloneForRetry returns a fresh pending copy of the item for
// re-enqueueing: same id, action, arguments, and retry count, with the
// terminal outcome fields cleared. The receiver is left untouched, so
// any stale queue entry still pointing at it keeps seeing a terminal
// status and gets discarded instead of re-running.
func (i *Item) CloneForRetry() *Item {
	return &Item{
		ID:          i.ID,
		Priority:    i.Priority,
		Category:    i.Category,
		Action:      i.Action,
		Operation:   i.Operation,
		Args:        i.Args,
		Callback:    i.Callback,
		MaxRetries:  i.MaxRetries,
		Status:      StatusPending,
		CreatedAt:   time.Now(),
		RetryCount:  i.RetryCount,
		RequestInfo: i.RequestInfo,
	}
}

// Less reports whether i sorts before other: by priority ascending,
// then by sequence ascending.
func (i *Item) Less(other *Item) bool {
	if i.Priority != other.Priority {
		return i.Priority < other.Priority
	}
	return i.Sequence < other.Sequence
}
