package item

import "time"

// Snapshot is the JSON-safe, persistence-friendly view of an item. It
// is what the history file contains and what external consumers (UIs,
// the audit CLI) read.
type Snapshot struct {
	ID           string         `json:"id"`
	Priority     int            `json:"priority"`
	Category     string         `json:"category,omitempty"`
	Action       string         `json:"action"`
	Status       Status         `json:"status"`
	Error        string         `json:"error,omitempty"`
	RetryCount   int            `json:"retryCount,omitempty"`
	CreatedAt    *time.Time     `json:"createdAt"`
	CompletedAt  *time.Time     `json:"completedAt"`
	RequestInfo  map[string]any `json:"requestInfo,omitempty"`
	ResponseData any            `json:"responseData,omitempty"`
}

// Snapshot returns an independent JSON-safe copy of the item's current
// state. The operation and callback do not survive snapshotting.
func (i *Item) Snapshot() Snapshot {
	s := Snapshot{
		ID:           i.ID,
		Priority:     int(i.Priority),
		Category:     i.Category,
		Action:       i.Action,
		Status:       i.Status,
		Error:        i.ErrorMessage,
		RetryCount:   i.RetryCount,
		ResponseData: i.ResponseData,
	}
	if len(i.RequestInfo) > 0 {
		s.RequestInfo = make(map[string]any, len(i.RequestInfo))
		for k, v := range i.RequestInfo {
			s.RequestInfo[k] = v
		}
	}
	if !i.CreatedAt.IsZero() {
		t := i.CreatedAt
		s.CreatedAt = &t
	}
	if !i.CompletedAt.IsZero() {
		t := i.CompletedAt
		s.CompletedAt = &t
	}
	return s
}

// FromSnapshot reconstructs an item from its persisted form. The
// operation closure is gone, so a reloaded item can be listed and
// cleared but not re-executed.
func FromSnapshot(s Snapshot) *Item {
	i := &Item{
		ID:           s.ID,
		Priority:     Priority(s.Priority),
		Category:     s.Category,
		Action:       s.Action,
		Status:       s.Status,
		ErrorMessage: s.Error,
		RetryCount:   s.RetryCount,
		MaxRetries:   DefaultMaxRetries,
		RequestInfo:  s.RequestInfo,
		ResponseData: s.ResponseData,
	}
	if s.CreatedAt != nil {
		i.CreatedAt = *s.CreatedAt
	}
	if s.CompletedAt != nil {
		i.CompletedAt = *s.CompletedAt
	}
	return i
}
