package scheduler

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/syllabus/core"
)

// Kind names the handler a job is routed to.
type Kind string

const (
	KindProcessResource Kind = "process_resource"
	KindEmbedCourse     Kind = "embed_course"
	KindAssembleCourse  Kind = "assemble_course"
)

// Job is one unit of background work.
// TargetID is the resource ID for process_resource and the course ID otherwise.
type Job struct {
	ID         uuid.UUID
	Kind       Kind
	TargetID   core.ID
	EnqueuedAt time.Time

	// result receives the handler outcome for jobs passed to Submit.
	result chan error
}

// NewJob creates a job with a fresh ID.
func NewJob(kind Kind, target core.ID) Job {
	return Job{
		ID:         uuid.New(),
		Kind:       kind,
		TargetID:   target,
		EnqueuedAt: time.Now().UTC(),
	}
}

// report hands err to a waiting Submit caller, if any.
func (j Job) report(err error) {
	if j.result != nil {
		j.result <- err
	}
}

func (j Job) String() string {
	return fmt.Sprintf("%s(%d)", j.Kind, j.TargetID)
}

// HandlerFunc executes a job. A returned error is logged; handlers record
// failures on the target entity themselves.
type HandlerFunc func(ctx context.Context, job Job) error

// FailureFunc is called after a handler panics, with ErrHandlerPanic wrapped in err.
type FailureFunc func(ctx context.Context, job Job, err error)

type registration struct {
	run       HandlerFunc
	onFailure FailureFunc
}

// Registry maps job kinds to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[Kind]registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[Kind]registration)}
}

// Register binds run and an optional failure hook to kind.
func (r *Registry) Register(kind Kind, run HandlerFunc, onFailure FailureFunc) error {
	if kind == "" {
		return fmt.Errorf("job kind cannot be empty")
	}
	if run == nil {
		return fmt.Errorf("handler for %s cannot be nil", kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[kind]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateHandler, kind)
	}
	r.handlers[kind] = registration{run: run, onFailure: onFailure}
	return nil
}

func (r *Registry) lookup(kind Kind) (registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.handlers[kind]
	return reg, ok
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]Kind, 0, len(r.handlers))
	for k := range r.handlers {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}
