package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"airtime/internal/core"

	"github.com/rs/zerolog/log"
)

// Registry routes commands to the executor registered for a backend id
type Registry struct {
	executors map[string]Executor
	fallback  Executor
	mu        sync.RWMutex
}

// NewRegistry creates a new empty registry
func NewRegistry() *Registry {
	return &Registry{executors: make(map[string]Executor)}
}

// Register binds backendID to exec, replacing any previous binding.
func (r *Registry) Register(backendID string, exec Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.executors[backendID] = exec
	log.Info().Str("backend", backendID).Msg("registered modem backend")
}

// SetFallback routes ids without their own binding to exec, typically a
// gateway that knows every modem.
func (r *Registry) SetFallback(exec Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = exec
}

// Get returns the executor for backendID
func (r *Registry) Get(backendID string) (Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if exec, ok := r.executors[backendID]; ok {
		return exec, nil
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, fmt.Errorf("backend %q not registered: %w", backendID, core.ErrBackendUnavailable)
}

// Execute implements Executor
func (r *Registry) Execute(ctx context.Context, backendID, command string) (string, error) {
	exec, err := r.Get(backendID)
	if err != nil {
		return "", err
	}
	return exec.Execute(ctx, backendID, command)
}

// Backends lists the explicitly registered backend ids
func (r *Registry) Backends() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.executors))
	for id := range r.executors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
