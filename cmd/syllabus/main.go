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

package main

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/poiesic/syllabus/config"
	"github.com/urfave/cli/v2"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	metaConfig  = "config"
	metaLogFile = "log-file"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "syllabus",
		Usage: "Ingest course materials into searchable chunks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Write logs to a rotated file instead of stderr",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory",
			},
			&cli.StringSliceFlag{
				Name:  "env-file",
				Usage: "Load settings from these .env files",
			},
			&cli.StringFlag{
				Name:  "embedding-host",
				Usage: "Embedding service host URL",
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model name",
			},
			&cli.StringFlag{
				Name:  "vector-backend",
				Usage: "Vector store backend (local, qdrant)",
			},
			&cli.StringFlag{
				Name:  "qdrant-url",
				Usage: "Qdrant base URL",
			},
			&cli.StringFlag{
				Name:  "work-dir",
				Usage: "Scratch directory for downloads and extracted audio",
			},
		},
		Metadata: map[string]any{},
		Before:   setup,
		After:    teardown,
		Commands: commands(),
	}
}

// setup loads configuration, applies flag overrides and installs the default logger.
func setup(c *cli.Context) error {
	cfg, err := config.Load(c.StringSlice("env-file")...)
	if err != nil {
		return err
	}
	overrides := map[string]*string{
		"log-level":       &cfg.LogLevel,
		"db":              &cfg.DBPath,
		"embedding-host":  &cfg.EmbeddingHost,
		"embedding-model": &cfg.EmbeddingModel,
		"vector-backend":  &cfg.VectorBackend,
		"qdrant-url":      &cfg.QdrantURL,
		"work-dir":        &cfg.WorkDir,
	}
	for name, field := range overrides {
		if c.IsSet(name) {
			*field = c.String(name)
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.App.Metadata[metaConfig] = cfg

	return setupLogger(c, cfg)
}

func setupLogger(c *cli.Context, cfg *config.Config) error {
	var out io.Writer = c.App.ErrWriter
	if out == nil {
		out = os.Stderr
	}
	if path := c.String("log-file"); path != "" {
		rotator := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     28,
		}
		c.App.Metadata[metaLogFile] = rotator
		out = rotator
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: cfg.Level()})
	slog.SetDefault(slog.New(handler))
	return nil
}

func teardown(c *cli.Context) error {
	if rotator, ok := c.App.Metadata[metaLogFile].(*lumberjack.Logger); ok {
		return rotator.Close()
	}
	return nil
}

func configFrom(c *cli.Context) (*config.Config, error) {
	cfg, ok := c.App.Metadata[metaConfig].(*config.Config)
	if !ok {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return cfg, nil
}
