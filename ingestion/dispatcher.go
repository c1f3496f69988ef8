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

package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/poiesic/syllabus/core"
	"github.com/poiesic/syllabus/storage"
	"github.com/poiesic/syllabus/validation"
)

// Assembler rebuilds a course once all of its resources have succeeded.
type Assembler interface {
	AssembleCourseIfReady(ctx context.Context, courseID core.ID) (bool, error)
}

// ChunkValidator checks the persisted chunks of a course.
type ChunkValidator interface {
	ValidateCourse(ctx context.Context, courseID core.ID) (validation.Report, error)
}

// Dispatcher processes one resource at a time.
// It is not safe for concurrent use on the same course; callers serialize jobs.
type Dispatcher struct {
	repo        storage.Store
	assembler   Assembler
	validator   ChunkValidator
	fetcher     MediaFetcher
	converter   AudioConverter
	transcriber Transcriber
	parsers     *ParserRegistry
	workDir     string
	sampleRate  int
	logger      *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher) error

// WithVideoPipeline sets the collaborators used for video resources.
func WithVideoPipeline(fetcher MediaFetcher, converter AudioConverter, transcriber Transcriber) Option {
	return func(d *Dispatcher) error {
		d.fetcher = fetcher
		d.converter = converter
		d.transcriber = transcriber
		return nil
	}
}

// WithParserRegistry sets the document parsers.
// Default is an empty registry.
func WithParserRegistry(registry *ParserRegistry) Option {
	return func(d *Dispatcher) error {
		if registry == nil {
			registry = NewParserRegistry()
		}
		d.parsers = registry
		return nil
	}
}

// WithWorkDir sets the directory that holds per-resource media files.
// Default is a "syllabus" directory under os.TempDir().
func WithWorkDir(dir string) Option {
	return func(d *Dispatcher) error {
		if dir == "" {
			return fmt.Errorf("work dir cannot be empty")
		}
		d.workDir = dir
		return nil
	}
}

// WithSampleRate sets the sample rate requested from the audio converter.
// Default is DefaultSampleRate.
func WithSampleRate(rate int) Option {
	return func(d *Dispatcher) error {
		if rate <= 0 {
			return fmt.Errorf("sample rate must be positive, got %d", rate)
		}
		d.sampleRate = rate
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		d.logger = logger
		return nil
	}
}

// NewDispatcher creates a resource dispatcher.
func NewDispatcher(repo storage.Store, assembler Assembler, validator ChunkValidator, opts ...Option) (*Dispatcher, error) {
	if repo == nil {
		return nil, ErrStoreRequired
	}
	if assembler == nil {
		return nil, ErrAssemblerRequired
	}
	if validator == nil {
		return nil, ErrValidatorRequired
	}

	d := &Dispatcher{
		repo:       repo,
		assembler:  assembler,
		validator:  validator,
		parsers:    NewParserRegistry(),
		workDir:    filepath.Join(os.TempDir(), "syllabus"),
		sampleRate: DefaultSampleRate,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	d.logger = d.logger.With("component", "dispatcher")
	return d, nil
}

// ProcessResource runs a queued resource through extraction, assembly and validation.
//
// The resource must be queued. Failures after it has been marked running are
// recorded on the resource (status failed, error message, retry count + 1)
// and also returned.
func (d *Dispatcher) ProcessResource(ctx context.Context, resourceID core.ID) error {
	res, err := d.repo.GetResource(ctx, resourceID)
	if err != nil {
		return fmt.Errorf("loading resource %d: %w", resourceID, err)
	}

	stage := core.StageDocParsing
	if res.IsVideo() {
		stage = core.StageDownloading
	}
	if err := res.TransitionTo(core.ResourceStatusRunning, stage); err != nil {
		return err
	}
	if err := d.repo.UpdateResource(ctx, res); err != nil {
		return fmt.Errorf("marking resource %d running: %w", resourceID, err)
	}

	logger := d.logger.With("resource", res.ID, "course", res.CourseID, "type", res.Type)
	logger.Info("processing resource")

	if err := d.run(ctx, logger, res); err != nil {
		logger.Error("resource failed", "stage", res.Stage, "err", err)
		return d.fail(ctx, res, err)
	}

	logger.Info("resource processed")
	return nil
}

func (d *Dispatcher) run(ctx context.Context, logger *slog.Logger, res *core.Resource) error {
	var err error
	if res.IsVideo() {
		err = d.processVideo(ctx, logger, res)
	} else {
		err = d.processDocument(ctx, logger, res)
	}
	if err != nil {
		return err
	}

	if err := res.TransitionTo(core.ResourceStatusSucceeded, core.StageSectioning); err != nil {
		return err
	}
	res.RetryCount = 0
	res.ErrorMessage = ""
	if err := d.repo.UpdateResource(ctx, res); err != nil {
		return err
	}

	assembled, err := d.assembler.AssembleCourseIfReady(ctx, res.CourseID)
	if err != nil {
		return fmt.Errorf("assembling course %d: %w", res.CourseID, err)
	}
	if assembled {
		if err := d.setStage(ctx, res, core.StageChunking); err != nil {
			return err
		}
		report, err := d.validator.ValidateCourse(ctx, res.CourseID)
		if err != nil {
			return err
		}
		if !report.OK {
			return fmt.Errorf("chunk schema validation failed for course %d: %s", res.CourseID, report.Summary(3))
		}
	} else {
		logger.Debug("course not ready for assembly")
	}

	return d.setStage(ctx, res, core.StageDone)
}

// fail records cause on the resource and returns it.
// The write ignores cancellation of ctx so an interrupted job still ends failed.
func (d *Dispatcher) fail(ctx context.Context, res *core.Resource, cause error) error {
	if err := res.TransitionTo(core.ResourceStatusFailed, res.Stage); err != nil {
		return fmt.Errorf("%w (recording failure: %v)", cause, err)
	}
	res.ErrorMessage = cause.Error()
	res.RetryCount++
	if err := d.repo.UpdateResource(context.WithoutCancel(ctx), res); err != nil {
		return fmt.Errorf("%w (recording failure: %v)", cause, err)
	}
	return cause
}

func (d *Dispatcher) setStage(ctx context.Context, res *core.Resource, stage core.ProcessingStage) error {
	res.Stage = stage
	res.UpdatedAt = time.Now().UTC()
	return d.repo.UpdateResource(ctx, res)
}

// stage records the stage, runs fn and logs how long it took.
func (d *Dispatcher) stage(ctx context.Context, logger *slog.Logger, res *core.Resource, stage core.ProcessingStage, fn func() error) error {
	if err := d.setStage(ctx, res, stage); err != nil {
		return err
	}
	start := time.Now()
	err := fn()
	logger.Info("stage finished", "stage", stage, "elapsed_ms", time.Since(start).Milliseconds(), "ok", err == nil)
	return err
}

func languageOf(res *core.Resource) string {
	if lang, ok := res.Meta["language"].(string); ok && lang != "" {
		return lang
	}
	return core.DefaultLanguage
}

func setMeta(res *core.Resource, key string, value any) {
	if res.Meta == nil {
		res.Meta = make(map[string]any)
	}
	res.Meta[key] = value
}
