// Package task tracks translation tasks in memory and runs them to
// completion in the background.
package task

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/babelpdf/babelpdf-api/internal/domain"
)

// entry wraps a task with its runner handle and eviction bookkeeping.
type entry struct {
	task   *domain.Task
	cancel context.CancelFunc
	doneAt time.Time
}

// Registry is the process-wide store of task state. It is injected into the
// handlers and the runner rather than living in a package-level variable.
// Reads hand out clones so pollers always observe a consistent snapshot, and
// updates are validated against the task lifecycle before they are applied.
//
// Terminal tasks are evicted after the configured TTL; without that the
// registry would grow for the life of the process. A TTL of zero disables
// eviction. In-flight tasks are never evicted.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
	logger  *slog.Logger
}

// NewRegistry creates an empty task registry.
func NewRegistry(ttl time.Duration, logger *slog.Logger) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		ttl:     ttl,
		logger:  logger,
	}
}

// Create inserts a new task. The task must be in the queued state.
func (r *Registry) Create(t *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[t.ID]; ok {
		return ErrDuplicateTask
	}
	r.entries[t.ID] = &entry{task: t.Clone()}
	return nil
}

// Get returns a snapshot of the task with the given ID.
func (r *Registry) Get(id string) (*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return e.task.Clone(), nil
}

// Len returns the number of tracked tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Update applies fn to a copy of the task and swaps the copy in if the
// result is a legal lifecycle step. Status must follow
// queued -> processing -> completed|failed and progress must not decrease.
// Owner, ID and creation time are immutable; changes to them are discarded.
func (r *Registry) Update(id string, fn func(*domain.Task)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return ErrTaskNotFound
	}

	updated := e.task.Clone()
	fn(updated)

	// Immutable fields.
	updated.ID = e.task.ID
	updated.Owner = e.task.Owner
	updated.FileID = e.task.FileID
	updated.CreatedAt = e.task.CreatedAt

	if updated.Status != e.task.Status || e.task.Status.Terminal() {
		if !e.task.Status.CanTransition(updated.Status) {
			return ErrInvalidTransition
		}
	}
	if updated.Progress < e.task.Progress {
		return ErrProgressRegression
	}

	updated.UpdatedAt = time.Now().UTC()
	e.task = updated

	if updated.Status.Terminal() && e.doneAt.IsZero() {
		e.doneAt = updated.UpdatedAt
		e.cancel = nil // runner handle no longer needed
	}
	return nil
}

// AttachCancel stores the cancel handle of the task's runner so in-flight
// work can be stopped on shutdown.
func (r *Registry) AttachCancel(id string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok && !e.task.Status.Terminal() {
		e.cancel = cancel
	}
}

// CancelAll cancels every in-flight runner. Called during shutdown.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.cancel != nil {
			e.cancel()
		}
	}
}

// Sweep evicts terminal tasks whose TTL has elapsed and returns the number
// evicted.
func (r *Registry) Sweep(now time.Time) int {
	if r.ttl <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, e := range r.entries {
		if !e.doneAt.IsZero() && now.Sub(e.doneAt) > r.ttl {
			delete(r.entries, id)
			evicted++
		}
	}
	return evicted
}

// StartJanitor runs periodic sweeps until the context is cancelled.
func (r *Registry) StartJanitor(ctx context.Context, interval time.Duration) {
	if r.ttl <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := r.Sweep(now); n > 0 {
					r.logger.Debug("evicted expired tasks", "count", n)
				}
			}
		}
	}()
}
