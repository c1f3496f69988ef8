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

package openai

import (
	"log/slog"
	"sync/atomic"

	"github.com/poiesic/syllabus/ai"
)

// Provider serves an Embedder backed by an OpenAI-compatible server.
type Provider struct {
	embedder *Embedder
	closed   atomic.Bool
	logger   *slog.Logger
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithLogger sets the logger for the provider and its embedder.
func WithLogger(logger *slog.Logger) ProviderOption {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProvider validates config, which also normalizes it in place.
func NewProvider(config *ai.Config, opts ...ProviderOption) (ai.AIProvider, error) {
	p := &Provider{logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}

	embedder, err := newEmbedder(config, p.logger)
	if err != nil {
		return nil, err
	}
	p.embedder = embedder
	p.logger = p.logger.With("component", "openai-provider")
	p.logger.Debug("provider ready", "host", config.EmbeddingHost, "model", config.EmbeddingModel,
		"timeout", config.RequestTimeout, "max_input_runes", config.MaxInputRunes)
	return p, nil
}

func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Close is idempotent. The HTTP client holds no resources that need releasing.
func (p *Provider) Close() error {
	if p.closed.CompareAndSwap(false, true) {
		p.logger.Debug("provider closed")
	}
	return nil
}
