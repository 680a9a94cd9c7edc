// Package history keeps the bounded, most-recent-first record of
// finished and cancelled items, along with the id index the engine uses
// to resolve cancel and retry requests in O(1).
//
// The store owns the single mutex guarding history entries, the id
// index, and item status transitions. Exposing only whole operations
// keeps the pending/cancelled race between producers and the worker
// inside one critical section.
package history

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dnstools/requestq/errors"
	"github.com/dnstools/requestq/item"
)

// Persister writes the full history document to durable storage and
// reads it back on startup. Implementations live in persistence/.
type Persister interface {
	// Save replaces the durable document with the given entries,
	// most recent first.
	Save(snapshots []item.Snapshot) error

	// Load returns the previously saved entries, most recent first.
	// A missing document is not an error; it returns (nil, nil).
	Load() ([]item.Snapshot, error)
}

// DefaultLimit is the history retention bound used when none is
// configured.
const DefaultLimit = 100

// Store is the history list plus the id index over both active
// (pending/running) and finished items.
type Store struct {
	mu        sync.Mutex
	limit     int
	persist   bool
	persister Persister
	entries   []*item.Item          // most-recent-first, terminal items only
	index     map[string]*item.Item // active + history
	resolve   func(action string) (item.Operation, bool)
}

// NewStore creates a store bounded to limit entries. A limit <= 0 falls
// back to DefaultLimit.
func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Store{
		limit: limit,
		index: make(map[string]*item.Item),
	}
}

// SetPersister attaches the durable backend. Takes effect on the next
// write.
func (s *Store) SetPersister(p Persister) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persister = p
	s.persist = p != nil
}

// SetPersist toggles persistence without dropping the backend.
func (s *Store) SetPersist(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persist = enabled && s.persister != nil
}

// SetResolver attaches an action name to operation resolver, used by
// TakeForRetry to rebind items whose closure did not survive
// persistence.
func (s *Store) SetResolver(resolve func(action string) (item.Operation, bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolve = resolve
}

// SetLimit changes the retention bound. Takes effect on the next
// record.
func (s *Store) SetLimit(limit int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limit = limit
}

// Load reads the persisted history, bounded to the configured limit.
// Entries already known to the index (e.g. re-enqueued before Load) are
// skipped. Load failures are logged and leave the store empty; startup
// never fails on bad history.
func (s *Store) Load() {
	s.mu.Lock()
	persister, persist := s.persister, s.persist
	s.mu.Unlock()

	if !persist {
		return
	}

	snapshots, err := persister.Load()
	if err != nil {
		slog.Warn("Failed to load history", "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, snap := range snapshots {
		if len(s.entries) >= s.limit {
			break
		}
		if _, exists := s.index[snap.ID]; exists {
			continue
		}
		it := item.FromSnapshot(snap)
		s.entries = append(s.entries, it)
		s.index[it.ID] = it
	}
}

// Track adds an active item to the id index at enqueue time.
func (s *Store) Track(it *item.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index[it.ID] = it
}

// Get resolves an item by id, active or finished.
func (s *Store) Get(id string) (*item.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.index[id]
	return it, ok
}

// MarkRunning transitions a pending item to running. It returns false
// when the item was cancelled (or otherwise left pending) before the
// worker reached it, in which case the worker discards it.
func (s *Store) MarkRunning(it *item.Item) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it.Status != item.StatusPending {
		return false
	}
	it.Status = item.StatusRunning
	return true
}

// ResetPending puts a rate-limited item back to pending before it is
// re-pushed with its original sequence.
func (s *Store) ResetPending(it *item.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it.Status = item.StatusPending
}

// CancelPending cancels an item that has not started executing: it is
// marked cancelled, stamped, moved to history, and persisted in one
// critical section. Returns false (a no-op) when the item is unknown,
// already running, or terminal.
func (s *Store) CancelPending(id string) (*item.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.index[id]
	if !ok || it.Status != item.StatusPending {
		return nil, false
	}
	it.Status = item.StatusCancelled
	it.CompletedAt = time.Now()
	s.recordLocked(it)
	return it, true
}

// Finalize applies the terminal outcome and records the item in one
// critical section, so readers never observe a half-written terminal
// state.
func (s *Store) Finalize(it *item.Item, status item.Status, result *item.Result, response any, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it.Status = status
	it.Result = result
	it.ResponseData = response
	it.ErrorMessage = errMsg
	it.CompletedAt = time.Now()
	s.recordLocked(it)
}

// TakeForRetry detaches a failed or cancelled item from history and
// returns a fresh pending copy (same id, retry count preserved) for
// the caller to re-enqueue. The stored item itself stays terminal: a
// cancelled item may still have a queue entry pointing at it, and that
// entry must keep failing the pending check when it surfaces.
// User-initiated retries deliberately go back through the normal
// enqueue path and receive a new sequence number.
func (s *Store) TakeForRetry(id string) (*item.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.index[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	if it.Status != item.StatusFailed && it.Status != item.StatusCancelled {
		return nil, errors.ErrNotRetryable
	}
	op := it.Operation
	if op == nil && s.resolve != nil {
		// Items reloaded from disk carry no operation closure; a
		// registered operation with the same action can stand in.
		if resolved, ok := s.resolve(it.Action); ok {
			op = resolved
		}
	}
	if op == nil {
		return nil, errors.ErrNoOperation
	}

	delete(s.index, id)
	for i, entry := range s.entries {
		if entry.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}

	fresh := it.CloneForRetry()
	fresh.Operation = op
	return fresh, nil
}

// Record inserts a terminal item at the front of the history, trims
// overflow from the tail, and persists the document.
func (s *Store) Record(it *item.Item) {
	s.mu.Lock()
	s.recordLocked(it)
	s.mu.Unlock()
}

func (s *Store) recordLocked(it *item.Item) {
	s.entries = append([]*item.Item{it}, s.entries...)
	s.index[it.ID] = it

	for len(s.entries) > s.limit {
		last := s.entries[len(s.entries)-1]
		s.entries = s.entries[:len(s.entries)-1]
		if s.index[last.ID] == last {
			delete(s.index, last.ID)
		}
	}

	s.flushLocked()
}

// Remove detaches an item from history and index, returning it. Used by
// the manual retry path before re-enqueueing.
func (s *Store) Remove(id string) (*item.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.index[id]
	if !ok {
		return nil, false
	}
	delete(s.index, id)
	for i, entry := range s.entries {
		if entry.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}
	return it, true
}

// List returns an independent snapshot copy of the history,
// most recent first.
func (s *Store) List() []item.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]item.Snapshot, len(s.entries))
	for i, it := range s.entries {
		out[i] = it.Snapshot()
	}
	return out
}

// RetryCandidates returns the failed items, most recent first.
func (s *Store) RetryCandidates() []*item.Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*item.Item
	for _, it := range s.entries {
		if it.Status == item.StatusFailed {
			out = append(out, it)
		}
	}
	return out
}

// RemoveCompleted drops all completed entries, keeping failures and
// cancellations, then persists.
func (s *Store) RemoveCompleted() {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	for _, it := range s.entries {
		if it.Status == item.StatusCompleted {
			if s.index[it.ID] == it {
				delete(s.index, it.ID)
			}
			continue
		}
		kept = append(kept, it)
	}
	s.entries = kept
	s.flushLocked()
}

// Clear drops all history entries. Active (pending/running) items stay
// in the index.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, it := range s.entries {
		if s.index[it.ID] == it {
			delete(s.index, it.ID)
		}
	}
	s.entries = nil
	s.flushLocked()
}

// Size returns the number of history entries.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Flush persists the current document immediately. Called on shutdown.
func (s *Store) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushLocked()
}

// flushLocked writes through the persister. Persistence failures are
// logged and swallowed; in-memory history stays authoritative and the
// next successful write re-syncs the durable copy.
func (s *Store) flushLocked() {
	if !s.persist || s.persister == nil {
		return
	}

	snapshots := make([]item.Snapshot, len(s.entries))
	for i, it := range s.entries {
		snapshots[i] = it.Snapshot()
	}

	if err := s.persister.Save(snapshots); err != nil {
		slog.Error("Failed to persist history", "error", err)
	}
}
