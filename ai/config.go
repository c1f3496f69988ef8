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

package ai

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Defaults for a local OpenAI-compatible server.
const (
	DefaultEmbeddingHost  = "http://localhost:11434/v1"
	DefaultEmbeddingModel = "bge-m3"
	DefaultRequestTimeout = time.Minute
	// DefaultMaxInputRunes keeps a chunk inside the context window of common embedding models.
	DefaultMaxInputRunes = 8000
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("ai config")

// Config describes how to reach the embedding service.
type Config struct {
	// EmbeddingHost is the API base URL, e.g. "http://localhost:11434/v1".
	EmbeddingHost string

	// EmbeddingModel names the model, e.g. "bge-m3" or "text-embedding-3-small".
	EmbeddingModel string

	// APIToken is sent as the bearer token. Local servers accept any value.
	APIToken string

	// RequestTimeout bounds one HTTP call to the service.
	RequestTimeout time.Duration

	// MaxInputRunes truncates longer texts before they are sent. Zero disables truncation.
	MaxInputRunes int
}

// ConfigOption sets one Config field.
type ConfigOption func(*Config)

func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) { c.EmbeddingHost = host }
}

func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) { c.EmbeddingModel = model }
}

func WithAPIToken(token string) ConfigOption {
	return func(c *Config) { c.APIToken = token }
}

func WithRequestTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) { c.RequestTimeout = timeout }
}

func WithMaxInputRunes(n int) ConfigOption {
	return func(c *Config) { c.MaxInputRunes = n }
}

// DefaultConfig targets a local Ollama-style server.
func DefaultConfig() *Config {
	return &Config{
		EmbeddingHost:  DefaultEmbeddingHost,
		EmbeddingModel: DefaultEmbeddingModel,
		APIToken:       "none",
		RequestTimeout: DefaultRequestTimeout,
		MaxInputRunes:  DefaultMaxInputRunes,
	}
}

// NewConfig applies opts over DefaultConfig.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize appends the /v1 path OpenAI-compatible servers expect and
// fills in a placeholder token.
func (c *Config) Normalize() {
	if host := strings.TrimRight(c.EmbeddingHost, "/"); host != "" && !strings.HasSuffix(host, "/v1") {
		c.EmbeddingHost = host + "/v1"
	} else {
		c.EmbeddingHost = host
	}
	if c.APIToken == "" {
		c.APIToken = "none"
	}
}

// Validate normalizes c and reports every missing or out-of-range field.
func (c *Config) Validate() error {
	c.Normalize()

	var errs []error
	if c.EmbeddingHost == "" {
		errs = append(errs, fmt.Errorf("%w: EmbeddingHost is required", ErrInvalidConfig))
	}
	if strings.TrimSpace(c.EmbeddingModel) == "" {
		errs = append(errs, fmt.Errorf("%w: EmbeddingModel is required", ErrInvalidConfig))
	}
	if c.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("%w: RequestTimeout must not be negative, got %s", ErrInvalidConfig, c.RequestTimeout))
	}
	if c.MaxInputRunes < 0 {
		errs = append(errs, fmt.Errorf("%w: MaxInputRunes must not be negative, got %d", ErrInvalidConfig, c.MaxInputRunes))
	}
	return errors.Join(errs...)
}
