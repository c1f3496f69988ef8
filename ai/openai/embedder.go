package openai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"unicode/utf8"

	"github.com/poiesic/syllabus/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder calls an OpenAI-compatible /embeddings endpoint.
type Embedder struct {
	client   embeddings.Embedder
	model    string
	maxRunes int
	logger   *slog.Logger
}

func newEmbedder(config *ai.Config, logger *slog.Logger) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	llm, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(config.APIToken),
		openai.WithEmbeddingModel(config.EmbeddingModel),
		openai.WithHTTPClient(&http.Client{Timeout: config.RequestTimeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("creating openai client: %w", err)
	}

	// Line breaks in extracted course text carry layout, not meaning.
	client, err := embeddings.NewEmbedder(llm, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return &Embedder{
		client:   client,
		model:    config.EmbeddingModel,
		maxRunes: config.MaxInputRunes,
		logger:   logger.With("component", "openai-embedder", "model", config.EmbeddingModel),
	}, nil
}

// NewEmbedder returns a standalone embedder for config.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config, nil)
}

// Model returns the configured model name.
func (e *Embedder) Model() string {
	return e.model
}

func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vector, err := e.client.EmbedQuery(ctx, e.truncate(text))
	if err != nil {
		e.logger.Error("query embedding failed", "runes", utf8.RuneCountInString(text), "err", err)
		return nil, err
	}
	return vector, nil
}

func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	inputs := make([]string, len(texts))
	truncated := 0
	for i, text := range texts {
		inputs[i] = e.truncate(text)
		if len(inputs[i]) != len(text) {
			truncated++
		}
	}
	e.logger.Debug("embedding batch", "count", len(texts), "truncated", truncated)

	vectors, err := e.client.EmbedDocuments(ctx, inputs)
	if err != nil {
		e.logger.Error("batch embedding failed", "count", len(texts), "err", err)
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d vectors for %d texts", len(vectors), len(texts))
	}
	return vectors, nil
}

// truncate cuts text to maxRunes runes on a rune boundary.
func (e *Embedder) truncate(text string) string {
	return truncateRunes(text, e.maxRunes)
}

func truncateRunes(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	n := 0
	for i := range text {
		if n == limit {
			return text[:i]
		}
		n++
	}
	return text
}
