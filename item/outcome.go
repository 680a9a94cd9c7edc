package item

import (
	"fmt"
	"time"
)

// OpError is an ordinary operation failure carrying an optional raw
// payload (for example the decoded error body of an HTTP response).
type OpError struct {
	Message string
	Raw     any
}

func (e *OpError) Error() string {
	return e.Message
}

// Payload returns the value handed to callbacks and stored as the
// failure result. When no raw payload was attached, the message is
// wrapped so consumers always see a structured value.
func (e *OpError) Payload() any {
	if e.Raw != nil {
		return e.Raw
	}
	return map[string]any{"message": e.Message}
}

// RateLimitError is the distinguished rate-limit outcome. It carries
// the server-suggested wait before the call may be repeated.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
	Raw        any
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("rate limited, retry after %s: %s", e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}
