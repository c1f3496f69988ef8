// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
)

// Scheduler executes queued jobs one at a time.
type Scheduler struct {
	registry *Registry
	baseCtx  context.Context
	logger   *slog.Logger
	pool     *ants.Pool

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []Job
	started bool
	stopped bool
	done    chan struct{}
}

// Option configures a Scheduler.
type Option func(*Scheduler) error

// WithContext sets the context handed to job handlers.
// Default is context.Background(). Stop does not cancel it.
func WithContext(ctx context.Context) Option {
	return func(s *Scheduler) error {
		if ctx == nil {
			return fmt.Errorf("context cannot be nil")
		}
		s.baseCtx = ctx
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// New creates a stopped scheduler for the handlers in registry.
func New(registry *Registry, opts ...Option) (*Scheduler, error) {
	if registry == nil {
		return nil, ErrRegistryRequired
	}
	s := &Scheduler{
		registry: registry,
		baseCtx:  context.Background(),
		logger:   slog.Default(),
		done:     make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "scheduler")

	pool, err := ants.NewPool(1)
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}
	s.pool = pool
	return s, nil
}

// Start launches the dispatcher goroutine.
// Jobs enqueued before Start run once it is called.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrSchedulerStopped
	}
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true
	go s.loop()
	s.logger.Info("scheduler started", "kinds", s.registry.Kinds())
	return nil
}

// Enqueue appends job to the queue.
func (s *Scheduler) Enqueue(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrSchedulerStopped
	}
	s.queue = append(s.queue, job)
	s.cond.Signal()
	s.logger.Debug("job enqueued", "job_id", job.ID, "kind", job.Kind, "target", job.TargetID, "depth", len(s.queue))
	return nil
}

// Submit enqueues job and waits for its handler to return, yielding the
// handler's error. If ctx ends first Submit returns ctx.Err() and the job
// still runs. A job discarded by Stop yields ErrSchedulerStopped.
func (s *Scheduler) Submit(ctx context.Context, job Job) error {
	job.result = make(chan error, 1)
	if err := s.Enqueue(job); err != nil {
		return err
	}
	select {
	case err := <-job.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of jobs waiting to start.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Stop discards jobs that have not started and waits up to timeout for the
// in-flight job to return. The in-flight job is not interrupted.
// Calling Stop more than once is a no-op.
func (s *Scheduler) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	discarded := len(s.queue)
	for _, job := range s.queue {
		job.report(ErrSchedulerStopped)
	}
	s.queue = nil
	started := s.started
	s.cond.Broadcast()
	s.mu.Unlock()

	if discarded > 0 {
		s.logger.Warn("discarding queued jobs", "count", discarded)
	}
	if !started {
		s.pool.Release()
		return nil
	}

	deadline := time.Now().Add(timeout)
	select {
	case <-s.done:
	case <-time.After(timeout):
		return ErrStopTimeout
	}
	if err := s.pool.ReleaseTimeout(max(time.Until(deadline), time.Millisecond)); err != nil {
		if errors.Is(err, ants.ErrTimeout) {
			return ErrStopTimeout
		}
		return err
	}
	s.logger.Info("scheduler stopped")
	return nil
}

// loop hands jobs to the pool one at a time until Stop.
func (s *Scheduler) loop() {
	defer close(s.done)
	for {
		job, ok := s.next()
		if !ok {
			return
		}
		finished := make(chan struct{})
		err := s.pool.Submit(func() {
			defer close(finished)
			s.execute(job)
		})
		if err != nil {
			s.logger.Error("submitting job", "job_id", job.ID, "kind", job.Kind, "err", err)
			continue
		}
		<-finished
	}
}

// next blocks until a job is queued or the scheduler stops.
func (s *Scheduler) next() (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.queue) == 0 && !s.stopped {
		s.cond.Wait()
	}
	if s.stopped {
		return Job{}, false
	}
	job := s.queue[0]
	s.queue[0] = Job{}
	s.queue = s.queue[1:]
	return job, true
}

func (s *Scheduler) execute(job Job) {
	logger := s.logger.With("job_id", job.ID, "kind", job.Kind, "target", job.TargetID)
	reg, ok := s.registry.lookup(job.Kind)
	if !ok {
		logger.Warn("dropping job with unknown kind")
		job.report(fmt.Errorf("%w: %s", ErrUnknownKind, job.Kind))
		return
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %v", ErrHandlerPanic, r)
			logger.Error("job panicked", "err", err)
			if reg.onFailure != nil {
				s.reportFailure(logger, reg.onFailure, job, err)
			}
			job.report(err)
		}
	}()

	logger.Info("job started", "waited_ms", start.Sub(job.EnqueuedAt).Milliseconds())
	err := reg.run(s.baseCtx, job)
	if err != nil {
		logger.Error("job failed", "elapsed_ms", time.Since(start).Milliseconds(), "err", err)
	} else {
		logger.Info("job finished", "elapsed_ms", time.Since(start).Milliseconds())
	}
	job.report(err)
}

// reportFailure runs a failure hook, containing any panic it raises.
func (s *Scheduler) reportFailure(logger *slog.Logger, hook FailureFunc, job Job, cause error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("failure hook panicked", "panic", r)
		}
	}()
	hook(context.WithoutCancel(s.baseCtx), job, cause)
}
