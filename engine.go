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

// Package syllabus turns uploaded course materials into validated,
// embeddable chunks.
//
// An Engine owns the BadgerDB store, a vector store, the embedding provider
// and a single background worker. Resources are queued for processing,
// extracted into content pieces, assembled into sections and chunks once
// every resource of the course has succeeded, and embedded on request.
package syllabus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/syllabus/ai"
	"github.com/poiesic/syllabus/ai/openai"
	"github.com/poiesic/syllabus/assembly"
	"github.com/poiesic/syllabus/core"
	"github.com/poiesic/syllabus/embedding"
	"github.com/poiesic/syllabus/ingestion"
	"github.com/poiesic/syllabus/scheduler"
	"github.com/poiesic/syllabus/search"
	"github.com/poiesic/syllabus/storage/badger"
	"github.com/poiesic/syllabus/validation"
	"github.com/poiesic/syllabus/vectorstore"
)

// DefaultStopTimeout bounds how long Close waits for the in-flight job.
const DefaultStopTimeout = 10 * time.Second

// Engine wires storage, the worker and the processing stages together.
type Engine struct {
	backend    *badger.Backend
	store      *badger.Store
	vectors    vectorstore.Store
	provider   ai.AIProvider
	assembler  *assembly.Assembler
	gate       *validation.Gate
	dispatcher *ingestion.Dispatcher
	pipeline   *embedding.Pipeline
	scheduler  *scheduler.Scheduler
	searcher   *search.Searcher
	logger     *slog.Logger

	stopTimeout time.Duration
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	inMemory      bool
	aiConfig      *ai.Config
	provider      ai.AIProvider
	vectors       vectorstore.Store
	stopTimeout   time.Duration
	logger        *slog.Logger
	dispatchOpts  []ingestion.Option
	embeddingOpts []embedding.Option
	assemblyOpts  []assembly.Option
}

// WithInMemory keeps all data in memory. The path passed to Open is ignored.
func WithInMemory() Option {
	return func(o *engineOptions) { o.inMemory = true }
}

// WithAIConfig sets the embedding provider configuration.
// Default is ai.DefaultConfig().
func WithAIConfig(cfg *ai.Config) Option {
	return func(o *engineOptions) { o.aiConfig = cfg }
}

// WithAIProvider supplies a ready provider instead of building one from the AI config.
// The engine closes it on Close.
func WithAIProvider(provider ai.AIProvider) Option {
	return func(o *engineOptions) { o.provider = provider }
}

// WithVectorStore sets the vector store.
// Default stores vectors in the engine's BadgerDB.
func WithVectorStore(store vectorstore.Store) Option {
	return func(o *engineOptions) { o.vectors = store }
}

// WithStopTimeout sets how long Close waits for the in-flight job.
// Default is DefaultStopTimeout.
func WithStopTimeout(d time.Duration) Option {
	return func(o *engineOptions) { o.stopTimeout = d }
}

// WithLogger sets the logger passed to every component.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *engineOptions) { o.logger = logger }
}

// WithDispatcherOptions configures resource processing, e.g. parsers and the video pipeline.
func WithDispatcherOptions(opts ...ingestion.Option) Option {
	return func(o *engineOptions) { o.dispatchOpts = append(o.dispatchOpts, opts...) }
}

// WithEmbeddingOptions configures the course embedding pipeline.
func WithEmbeddingOptions(opts ...embedding.Option) Option {
	return func(o *engineOptions) { o.embeddingOpts = append(o.embeddingOpts, opts...) }
}

// WithAssemblyOptions configures section and chunk bounds.
func WithAssemblyOptions(opts ...assembly.Option) Option {
	return func(o *engineOptions) { o.assemblyOpts = append(o.assemblyOpts, opts...) }
}

// Open opens (or creates) the database at path and starts the background worker.
func Open(path string, opts ...Option) (eng *Engine, err error) {
	options := &engineOptions{
		aiConfig:    ai.DefaultConfig(),
		stopTimeout: DefaultStopTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.logger

	e := &Engine{logger: logger.With("component", "engine"), stopTimeout: options.stopTimeout}
	defer func() {
		if err != nil {
			e.closeResources()
		}
	}()

	if e.backend, err = badger.OpenBackend(path, options.inMemory); err != nil {
		return nil, err
	}
	if e.store, err = badger.NewStore(e.backend); err != nil {
		return nil, err
	}

	e.vectors = options.vectors
	if e.vectors == nil {
		e.vectors = badger.NewVectorStore(e.backend)
	}

	e.provider = options.provider
	if e.provider == nil {
		if e.provider, err = openai.NewProvider(options.aiConfig, openai.WithLogger(logger)); err != nil {
			return nil, err
		}
	}

	if e.assembler, err = assembly.New(e.store, append([]assembly.Option{assembly.WithLogger(logger)}, options.assemblyOpts...)...); err != nil {
		return nil, err
	}
	if e.gate, err = validation.NewGate(e.store, validation.WithLogger(logger)); err != nil {
		return nil, err
	}
	e.dispatcher, err = ingestion.NewDispatcher(e.store, e.assembler, e.gate,
		append([]ingestion.Option{ingestion.WithLogger(logger)}, options.dispatchOpts...)...)
	if err != nil {
		return nil, err
	}
	e.pipeline, err = embedding.NewPipeline(e.store, e.provider.Embedder(), e.vectors,
		append([]embedding.Option{embedding.WithLogger(logger)}, options.embeddingOpts...)...)
	if err != nil {
		return nil, err
	}

	if e.searcher, err = search.NewSearcher(e.provider.Embedder(), e.vectors, search.WithLogger(logger)); err != nil {
		return nil, err
	}

	registry := scheduler.NewRegistry()
	if err = registry.Register(scheduler.KindProcessResource, e.runProcessResource, e.resourcePanicked); err != nil {
		return nil, err
	}
	if err = registry.Register(scheduler.KindEmbedCourse, e.runEmbedCourse, e.embeddingPanicked); err != nil {
		return nil, err
	}
	if err = registry.Register(scheduler.KindAssembleCourse, e.runAssembleCourse, nil); err != nil {
		return nil, err
	}
	if e.scheduler, err = scheduler.New(registry, scheduler.WithLogger(logger)); err != nil {
		return nil, err
	}
	if err = e.scheduler.Start(); err != nil {
		return nil, err
	}

	return e, nil
}

// Close stops the worker, discarding queued jobs, and releases storage.
// Jobs discarded this way leave their resource queued or their course pending.
func (e *Engine) Close() error {
	var errs []error
	if e.scheduler != nil {
		if err := e.scheduler.Stop(e.stopTimeout); err != nil {
			e.logger.Error("error stopping scheduler", "err", err)
			errs = append(errs, err)
		}
	}
	if err := e.closeResources(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (e *Engine) closeResources() error {
	var errs []error
	if e.provider != nil {
		if err := e.provider.Close(); err != nil {
			e.logger.Error("error closing AI provider", "err", err)
		}
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			e.logger.Error("error closing store", "err", err)
			errs = append(errs, err)
		}
	}
	if e.backend != nil {
		if err := e.backend.Close(); err != nil {
			e.logger.Error("error closing backend storage", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) runProcessResource(ctx context.Context, job scheduler.Job) error {
	return e.dispatcher.ProcessResource(ctx, job.TargetID)
}

func (e *Engine) runEmbedCourse(ctx context.Context, job scheduler.Job) error {
	return e.pipeline.EmbedCourse(ctx, job.TargetID)
}

// runAssembleCourse rebuilds and validates a course on the worker, so a
// manual assembly never overlaps processing or embedding.
func (e *Engine) runAssembleCourse(ctx context.Context, job scheduler.Job) error {
	ready, err := e.assembler.AssembleCourseIfReady(ctx, job.TargetID)
	if err != nil {
		return err
	}
	if !ready {
		return ErrNotReady
	}
	report, err := e.gate.ValidateCourse(ctx, job.TargetID)
	if err != nil {
		return err
	}
	if !report.OK {
		return fmt.Errorf("%w for course %d: %s", ErrValidationFailed, job.TargetID, report.Summary(3))
	}
	return nil
}

// resourcePanicked records a crashed processing job on its resource.
func (e *Engine) resourcePanicked(ctx context.Context, job scheduler.Job, cause error) {
	res, err := e.store.GetResource(ctx, job.TargetID)
	if err != nil {
		e.logger.Error("loading resource after panic", "resource", job.TargetID, "err", err)
		return
	}
	if res.Status == core.ResourceStatusFailed {
		return
	}
	if err := res.TransitionTo(core.ResourceStatusFailed, res.Stage); err != nil {
		e.logger.Error("recording panic", "resource", res.ID, "err", err)
		return
	}
	res.ErrorMessage = cause.Error()
	res.RetryCount++
	if err := e.store.UpdateResource(ctx, res); err != nil {
		e.logger.Error("recording panic", "resource", res.ID, "err", err)
	}
}

// embeddingPanicked records a crashed embedding job on its course.
func (e *Engine) embeddingPanicked(ctx context.Context, job scheduler.Job, cause error) {
	course, err := e.store.GetCourse(ctx, job.TargetID)
	if err != nil {
		e.logger.Error("loading course after panic", "course", job.TargetID, "err", err)
		return
	}
	if err := course.TransitionEmbedding(core.EmbeddingFailed); err != nil {
		e.logger.Error("recording panic", "course", course.ID, "err", err)
		return
	}
	course.EmbeddingProgress = 0
	course.EmbeddingError = cause.Error()
	if err := e.store.UpdateCourse(ctx, course); err != nil {
		e.logger.Error("recording panic", "course", course.ID, "err", err)
	}
}
