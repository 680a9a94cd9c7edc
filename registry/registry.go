// Package registry maps action names to operations. Operations are
// closures and do not survive history persistence, so a process that
// wants reloaded items to stay retryable registers its operations here
// under the same action names.
package registry

import (
	"sync"

	"github.com/dnstools/requestq/errors"
	"github.com/dnstools/requestq/item"
)

// Registry is a thread-safe action name to operation registry
type Registry struct {
	mu         sync.RWMutex
	operations map[string]item.Operation
}

// NewRegistry creates a new registry
func NewRegistry() *Registry {
	return &Registry{
		operations: make(map[string]item.Operation),
	}
}

// Register adds an operation for an action
func (r *Registry) Register(action string, op item.Operation) error {
	if action == "" {
		return errors.ErrEmptyAction
	}

	if op == nil {
		return errors.ErrNilOperation
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.operations[action] = op
	return nil
}

// Get retrieves an operation by action
func (r *Registry) Get(action string) (item.Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	op, ok := r.operations[action]
	return op, ok
}

// List returns all registered actions
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	actions := make([]string, 0, len(r.operations))
	for action := range r.operations {
		actions = append(actions, action)
	}

	return actions
}

// Remove unregisters an operation
func (r *Registry) Remove(action string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.operations, action)
}

// Clear removes all registered operations
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.operations = make(map[string]item.Operation)
}
