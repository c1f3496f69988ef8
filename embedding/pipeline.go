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

package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/syllabus/ai"
	"github.com/poiesic/syllabus/core"
	"github.com/poiesic/syllabus/storage"
	"github.com/poiesic/syllabus/vectorstore"
)

const (
	// DefaultMaxAttempts is the number of provider calls made per batch.
	DefaultMaxAttempts = 3

	// DefaultRetryDelay is the pause between provider attempts.
	DefaultRetryDelay = 500 * time.Millisecond
)

// Repository is the storage the pipeline reads chunks from and records course state in.
type Repository interface {
	storage.CourseRepository
	storage.ChunkRepository
}

// ProgressFunc observes the progress persisted after each batch.
type ProgressFunc func(courseID core.ID, processed, total int, percent float64)

// Pipeline embeds every chunk of a course into its vector collection.
type Pipeline struct {
	repo        Repository
	embedder    ai.Embedder
	vectors     vectorstore.Store
	batchSize   int
	maxAttempts int
	retryDelay  time.Duration
	onProgress  ProgressFunc
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithBatchSize sets the number of chunks per provider call.
// Default is DefaultBatchSize.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("batch size must be positive, got %d", size)
		}
		p.batchSize = size
		return nil
	}
}

// WithRetry sets the attempts per batch and the fixed delay between them.
func WithRetry(maxAttempts int, delay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts < 1 {
			return ErrInvalidMaxAttempts
		}
		p.maxAttempts = maxAttempts
		p.retryDelay = delay
		return nil
	}
}

// WithProgressFunc registers an observer called after each persisted batch.
func WithProgressFunc(fn ProgressFunc) Option {
	return func(p *Pipeline) error {
		p.onProgress = fn
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new embedding pipeline.
func NewPipeline(repo Repository, embedder ai.Embedder, vectors vectorstore.Store, opts ...Option) (*Pipeline, error) {
	if repo == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if vectors == nil {
		return nil, ErrVectorStoreRequired
	}

	p := &Pipeline{
		repo:        repo,
		embedder:    embedder,
		vectors:     vectors,
		batchSize:   DefaultBatchSize,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "embedding")
	return p, nil
}

// BatchSize returns the configured batch size.
func (p *Pipeline) BatchSize() int {
	return p.batchSize
}

// EmbedCourse embeds all chunks of a course.
//
// The course is expected to be in the pending embedding state. Any failure
// after the course has been loaded is recorded on the course (status failed,
// progress 0, error message) and also returned.
func (p *Pipeline) EmbedCourse(ctx context.Context, courseID core.ID) error {
	course, err := p.repo.GetCourse(ctx, courseID)
	if err != nil {
		return fmt.Errorf("loading course %d: %w", courseID, err)
	}

	chunks, err := p.repo.ListChunks(ctx, courseID)
	if err != nil {
		return p.fail(ctx, course, err)
	}
	if len(chunks) == 0 {
		return p.fail(ctx, course, ErrNoChunks)
	}

	logger := p.logger.With("course", courseID)
	logger.Info("starting embedding", "chunks", len(chunks), "batch_size", p.batchSize, "model", ai.ModelName(p.embedder))

	if err := course.TransitionEmbedding(core.EmbeddingRunning); err != nil {
		return err
	}
	course.EmbeddingProgress = 0
	course.EmbeddingError = ""
	if err := p.repo.UpdateCourse(ctx, course); err != nil {
		return fmt.Errorf("marking course %d running: %w", courseID, err)
	}

	// Chunk IDs change on every assembly, so vectors of a previous run would be orphans.
	if err := p.vectors.DeleteCollection(ctx, courseID); err != nil {
		return p.fail(ctx, course, fmt.Errorf("%w: clearing collection: %w", ErrVectorStore, err))
	}

	processor := NewBatchProcessor(p.embedder, p.vectors, p.maxAttempts, p.retryDelay, logger)
	iterator := NewChunkIterator(chunks, p.batchSize)
	tracker := NewProgressTracker(len(chunks))
	tracker.Start()

	total := len(chunks)
	batches := 0
	err = iterator.ForEach(ctx, func(batch []*core.Chunk) error {
		batches++
		start := time.Now()
		written, err := processor.Process(ctx, courseID, batch)
		if err != nil {
			return err
		}

		course.EmbeddingProgress = tracker.Increment(len(batch))
		course.UpdatedAt = time.Now().UTC()
		if err := p.repo.UpdateCourse(ctx, course); err != nil {
			return fmt.Errorf("persisting progress: %w", err)
		}
		if p.onProgress != nil {
			p.onProgress(courseID, tracker.Current(), total, course.EmbeddingProgress)
		}

		logger.Info("embedded batch",
			"batch", batches,
			"of", iterator.Batches(),
			"vectors", written,
			"progress", course.EmbeddingProgress,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil
	})
	if err != nil {
		logger.Error("embedding failed", "batch", batches, "err", err)
		return p.fail(ctx, course, err)
	}

	if err := course.TransitionEmbedding(core.EmbeddingDone); err != nil {
		return err
	}
	course.EmbeddingProgress = 100
	course.EmbeddingError = ""
	if err := p.repo.UpdateCourse(ctx, course); err != nil {
		return fmt.Errorf("marking course %d done: %w", courseID, err)
	}

	logger.Info("embedding finished", "chunks", tracker.Current(), "batches", batches, "dimension", processor.Dimension(), "elapsed", tracker.Elapsed().Round(time.Millisecond))
	return nil
}

// fail records cause on the course and returns it.
// The write ignores cancellation of ctx so a cancelled job still ends failed.
func (p *Pipeline) fail(ctx context.Context, course *core.Course, cause error) error {
	if err := course.TransitionEmbedding(core.EmbeddingFailed); err != nil {
		return errors.Join(cause, err)
	}
	course.EmbeddingProgress = 0
	course.EmbeddingError = cause.Error()
	if err := p.repo.UpdateCourse(context.WithoutCancel(ctx), course); err != nil {
		return errors.Join(cause, fmt.Errorf("recording failure: %w", err))
	}
	return cause
}
