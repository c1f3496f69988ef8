package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/syllabus"
	"github.com/poiesic/syllabus/ai"
	"github.com/poiesic/syllabus/config"
	"github.com/poiesic/syllabus/core"
	"github.com/poiesic/syllabus/embedding"
	"github.com/poiesic/syllabus/extract"
	"github.com/poiesic/syllabus/ingestion"
	"github.com/poiesic/syllabus/vectorstore/qdrant"
	"github.com/urfave/cli/v2"
)

const pollInterval = 250 * time.Millisecond

func courseFlag() cli.Flag {
	return &cli.Uint64Flag{
		Name:     "course",
		Aliases:  []string{"c"},
		Usage:    "Course ID",
		Required: true,
	}
}

func resourceFlag() cli.Flag {
	return &cli.Uint64Flag{
		Name:     "resource",
		Aliases:  []string{"r"},
		Usage:    "Resource ID",
		Required: true,
	}
}

func commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "course",
			Usage: "Manage courses",
			Subcommands: []*cli.Command{
				{
					Name:   "create",
					Usage:  "Create a course",
					Action: courseCreateCommand,
					Flags: []cli.Flag{
						&cli.StringFlag{Name: "name", Usage: "Course name", Required: true},
						&cli.StringFlag{Name: "description", Usage: "Course description"},
						&cli.StringFlag{Name: "created-by", Usage: "Course owner"},
					},
				},
				{
					Name:   "list",
					Usage:  "List courses",
					Action: courseListCommand,
				},
			},
		},
		{
			Name:  "resource",
			Usage: "Manage course resources",
			Subcommands: []*cli.Command{
				{
					Name:   "add",
					Usage:  "Register a resource with a course",
					Action: resourceAddCommand,
					Flags: []cli.Flag{
						courseFlag(),
						&cli.StringFlag{
							Name:     "type",
							Aliases:  []string{"t"},
							Usage:    "Resource type (video, ppt, pdf, text, markdown)",
							Required: true,
						},
						&cli.StringFlag{Name: "source", Usage: "Source URL or local path", Required: true},
						&cli.StringFlag{Name: "name", Usage: "Display name"},
						&cli.StringFlag{Name: "language", Usage: "Content language"},
					},
				},
				{
					Name:   "list",
					Usage:  "List the resources of a course",
					Action: resourceListCommand,
					Flags:  []cli.Flag{courseFlag()},
				},
				{
					Name:   "retry",
					Usage:  "Re-queue a failed resource and wait for it",
					Action: resourceRetryCommand,
					Flags:  []cli.Flag{resourceFlag()},
				},
			},
		},
		{
			Name:   "process",
			Usage:  "Process a resource and wait for it to finish",
			Action: processCommand,
			Flags:  []cli.Flag{resourceFlag()},
		},
		{
			Name:   "assemble",
			Usage:  "Rebuild sections and chunks for a course",
			Action: assembleCommand,
			Flags:  []cli.Flag{courseFlag()},
		},
		{
			Name:   "embed",
			Usage:  "Embed every chunk of a course and wait for it to finish",
			Action: embedCommand,
			Flags: []cli.Flag{
				courseFlag(),
				&cli.IntFlag{
					Name:  "batch-size",
					Usage: "Number of chunks to embed per request",
				},
			},
		},
		{
			Name:   "status",
			Usage:  "Show the embedding status of a course",
			Action: statusCommand,
			Flags:  []cli.Flag{courseFlag()},
		},
		{
			Name:   "outline",
			Usage:  "Show lectures and sections of a course",
			Action: outlineCommand,
			Flags:  []cli.Flag{courseFlag()},
		},
		{
			Name:   "chunks",
			Usage:  "List the chunks of a course",
			Action: chunksCommand,
			Flags: []cli.Flag{
				courseFlag(),
				&cli.IntFlag{Name: "limit", Usage: "Page size", Value: syllabus.DefaultChunkPageSize},
				&cli.IntFlag{Name: "offset", Usage: "Items to skip"},
			},
		},
		{
			Name:   "validate",
			Usage:  "Check stored chunks against the chunk schema",
			Action: validateCommand,
			Flags: []cli.Flag{
				&cli.Uint64Flag{Name: "course", Aliases: []string{"c"}, Usage: "Course ID (all courses when omitted)"},
			},
		},
		{
			Name:   "search",
			Usage:  "Search the embedded chunks of a course",
			Action: searchCommand,
			Flags: []cli.Flag{
				courseFlag(),
				&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Query text", Required: true},
				&cli.IntFlag{Name: "top-k", Aliases: []string{"k"}, Usage: "Number of results", Value: 5},
				&cli.Uint64Flag{Name: "lecture", Usage: "Only match chunks of this lecture"},
				&cli.Uint64Flag{Name: "section", Usage: "Only match chunks of this section"},
				&cli.StringFlag{Name: "source-type", Usage: "Only match chunks of this source type"},
			},
		},
		{
			Name:   "collections",
			Usage:  "List vector collections",
			Action: collectionsCommand,
		},
	}
}

// openEngine builds an engine from the loaded configuration.
func openEngine(c *cli.Context, embeddingOpts ...embedding.Option) (*syllabus.Engine, error) {
	cfg, err := configFrom(c)
	if err != nil {
		return nil, err
	}
	logger := slog.Default()

	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(cfg.EmbeddingHost),
		ai.WithEmbeddingModel(cfg.EmbeddingModel),
		ai.WithAPIToken(cfg.EmbeddingToken),
		ai.WithRequestTimeout(cfg.EmbeddingTimeoutDuration()),
		ai.WithMaxInputRunes(cfg.EmbeddingMaxInput),
	)

	dispatchOpts := []ingestion.Option{ingestion.WithParserRegistry(extract.NewRegistry())}
	if cfg.WorkDir != "" {
		dispatchOpts = append(dispatchOpts, ingestion.WithWorkDir(cfg.WorkDir))
	}

	opts := []syllabus.Option{
		syllabus.WithLogger(logger),
		syllabus.WithAIConfig(aiConfig),
		syllabus.WithStopTimeout(cfg.StopTimeoutDuration()),
		syllabus.WithDispatcherOptions(dispatchOpts...),
		syllabus.WithEmbeddingOptions(append([]embedding.Option{embedding.WithBatchSize(cfg.EmbeddingBatchSize)}, embeddingOpts...)...),
	}

	if cfg.VectorBackend == config.VectorBackendQdrant {
		qdrantOpts := []qdrant.Option{qdrant.WithLogger(logger), qdrant.WithAPIKey(cfg.QdrantAPIKey)}
		if cfg.VectorDim > 0 {
			qdrantOpts = append(qdrantOpts, qdrant.WithVectorDim(cfg.VectorDim))
		}
		vectors, err := qdrant.New(cfg.QdrantURL, qdrantOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create qdrant client: %w", err)
		}
		opts = append(opts, syllabus.WithVectorStore(vectors))
	}

	eng, err := syllabus.Open(cfg.DBPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return eng, nil
}

// withEngine opens the engine, runs fn with an interruptible context and closes the engine.
func withEngine(c *cli.Context, fn func(ctx context.Context, eng *syllabus.Engine) error, embeddingOpts ...embedding.Option) error {
	eng, err := openEngine(c, embeddingOpts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := eng.Close(); err != nil {
			slog.Warn("failed to close engine", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()
	return fn(ctx, eng)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func courseCreateCommand(c *cli.Context) error {
	return withEngine(c, func(ctx context.Context, eng *syllabus.Engine) error {
		course, err := eng.CreateCourse(ctx, &core.Course{
			Name:        c.String("name"),
			Description: c.String("description"),
			CreatedBy:   c.String("created-by"),
		})
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, course)
	})
}

func courseListCommand(c *cli.Context) error {
	return withEngine(c, func(ctx context.Context, eng *syllabus.Engine) error {
		courses, err := eng.ListCourses(ctx)
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, courses)
	})
}

func resourceAddCommand(c *cli.Context) error {
	source := c.String("source")
	in := syllabus.NewResource{
		CourseID:         core.ID(c.Uint64("course")),
		Type:             core.ResourceType(strings.ToLower(c.String("type"))),
		DisplayName:      c.String("name"),
		SourceURL:        source,
		OriginalFilename: filepath.Base(source),
	}
	if lang := c.String("language"); lang != "" {
		in.Meta = map[string]any{"language": lang}
	}
	return withEngine(c, func(ctx context.Context, eng *syllabus.Engine) error {
		res, err := eng.CreateResource(ctx, in)
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, res)
	})
}

func resourceListCommand(c *cli.Context) error {
	return withEngine(c, func(ctx context.Context, eng *syllabus.Engine) error {
		resources, err := eng.ListResources(ctx, core.ID(c.Uint64("course")))
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, resources)
	})
}

func processCommand(c *cli.Context) error {
	id := core.ID(c.Uint64("resource"))
	return withEngine(c, func(ctx context.Context, eng *syllabus.Engine) error {
		if err := eng.EnqueueResourceProcessing(ctx, id); err != nil {
			return err
		}
		return awaitResource(ctx, c, eng, id)
	})
}

func resourceRetryCommand(c *cli.Context) error {
	id := core.ID(c.Uint64("resource"))
	return withEngine(c, func(ctx context.Context, eng *syllabus.Engine) error {
		if _, err := eng.RetryResource(ctx, id); err != nil {
			return err
		}
		return awaitResource(ctx, c, eng, id)
	})
}

// awaitResource polls until the resource settles, then prints it.
func awaitResource(ctx context.Context, c *cli.Context, eng *syllabus.Engine, id core.ID) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var lastStage core.ProcessingStage
	for {
		res, err := eng.GetResource(ctx, id)
		if err != nil {
			return err
		}
		if res.Stage != lastStage {
			slog.Info("resource progress", "resource_id", id, "status", res.Status, "stage", res.Stage)
			lastStage = res.Stage
		}
		switch res.Status {
		case core.ResourceStatusFailed:
			if err := printJSON(c.App.Writer, res); err != nil {
				return err
			}
			return fmt.Errorf("resource %d failed at %s: %s", id, res.Stage, res.ErrorMessage)
		case core.ResourceStatusSucceeded:
			if res.Stage == core.StageDone {
				return printJSON(c.App.Writer, res)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func assembleCommand(c *cli.Context) error {
	return withEngine(c, func(ctx context.Context, eng *syllabus.Engine) error {
		outline, err := eng.AssembleCourse(ctx, core.ID(c.Uint64("course")))
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, outline)
	})
}

func embedCommand(c *cli.Context) error {
	id := core.ID(c.Uint64("course"))
	var opts []embedding.Option
	if size := c.Int("batch-size"); size > 0 {
		opts = append(opts, embedding.WithBatchSize(size))
	}
	opts = append(opts, embedding.WithProgressFunc(func(courseID core.ID, processed, total int, percent float64) {
		fmt.Fprintf(c.App.ErrWriter, "embedded %d/%d chunks (%.1f%%)\n", processed, total, percent)
	}))

	return withEngine(c, func(ctx context.Context, eng *syllabus.Engine) error {
		if _, err := eng.EnqueueCourseEmbedding(ctx, id); err != nil {
			return err
		}

		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			report, err := eng.GetEmbeddingStatus(ctx, id)
			if err != nil {
				return err
			}
			switch report.Status {
			case core.EmbeddingDone:
				return printJSON(c.App.Writer, report)
			case core.EmbeddingFailed:
				if err := printJSON(c.App.Writer, report); err != nil {
					return err
				}
				return fmt.Errorf("embedding course %d failed: %s", id, report.Error)
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	}, opts...)
}

func statusCommand(c *cli.Context) error {
	return withEngine(c, func(ctx context.Context, eng *syllabus.Engine) error {
		report, err := eng.GetEmbeddingStatus(ctx, core.ID(c.Uint64("course")))
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, report)
	})
}

func outlineCommand(c *cli.Context) error {
	return withEngine(c, func(ctx context.Context, eng *syllabus.Engine) error {
		outline, err := eng.CourseOutline(ctx, core.ID(c.Uint64("course")))
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, outline)
	})
}

func chunksCommand(c *cli.Context) error {
	return withEngine(c, func(ctx context.Context, eng *syllabus.Engine) error {
		page, err := eng.ListChunks(ctx, core.ID(c.Uint64("course")), c.Int("limit"), c.Int("offset"))
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, page)
	})
}

func validateCommand(c *cli.Context) error {
	return withEngine(c, func(ctx context.Context, eng *syllabus.Engine) error {
		var err error
		var report any
		if c.IsSet("course") {
			report, err = eng.ValidateCourse(ctx, core.ID(c.Uint64("course")))
		} else {
			report, err = eng.ValidateAll(ctx)
		}
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, report)
	})
}

func searchCommand(c *cli.Context) error {
	filter := map[string]any{}
	if c.IsSet("lecture") {
		filter["lecture_id"] = c.Uint64("lecture")
	}
	if c.IsSet("section") {
		filter["section_id"] = c.Uint64("section")
	}
	if st := c.String("source-type"); st != "" {
		filter["source_type"] = st
	}
	return withEngine(c, func(ctx context.Context, eng *syllabus.Engine) error {
		results, err := eng.SearchCourse(ctx, core.ID(c.Uint64("course")), c.String("query"), c.Int("top-k"), filter)
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, results)
	})
}

func collectionsCommand(c *cli.Context) error {
	return withEngine(c, func(ctx context.Context, eng *syllabus.Engine) error {
		names, err := eng.ListCollections(ctx)
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, names)
	})
}
