// Package errors provides error types and utilities for the requestq library.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	ErrNilItem       = errors.New("item cannot be nil")
	ErrNilOperation  = errors.New("operation cannot be nil")
	ErrEmptyAction   = errors.New("action name cannot be empty")
	ErrNotFound      = errors.New("item not found")
	ErrNotRetryable  = errors.New("item is not in a retryable state")
	ErrNoOperation   = errors.New("item has no operation attached")
	ErrNotConnected  = errors.New("not connected")
	ErrAlreadyStarted = errors.New("engine already started")
	ErrNotStarted    = errors.New("engine not started")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// PersistenceError represents history persistence errors
type PersistenceError struct {
	Op   string // operation being performed ("save", "load")
	Path string // target path or key (if applicable)
	Err  error  // underlying error
}

func (e *PersistenceError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("persistence %s at %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ConnectionError represents connection-related errors for remote
// persistence and notification backends
type ConnectionError struct {
	URI string // connection URI (may be redacted)
	Err error  // underlying error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s: %v", e.URI, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Helper functions for creating errors

// NewPersistenceError creates a new persistence error
func NewPersistenceError(op, path string, err error) error {
	return &PersistenceError{Op: op, Path: path, Err: err}
}

// NewConnectionError creates a new connection error
func NewConnectionError(uri string, err error) error {
	return &ConnectionError{URI: uri, Err: err}
}
