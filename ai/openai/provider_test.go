package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/syllabus/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider_NormalizesHost(t *testing.T) {
	cfg := ai.NewConfig(ai.WithEmbeddingHost("http://localhost:11434/"))

	provider, err := NewProvider(cfg, WithLogger(nil))
	require.NoError(t, err)
	defer provider.Close()

	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	assert.Equal(t, "bge-m3", ai.ModelName(provider.Embedder()))
	assert.NoError(t, provider.Close())
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	_, err := NewProvider(ai.NewConfig(ai.WithEmbeddingModel("")))
	assert.ErrorIs(t, err, ai.ErrInvalidConfig)
	assert.ErrorContains(t, err, "EmbeddingModel")
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  string
	}{
		{"disabled", "fourier", 0, "fourier"},
		{"short", "fourier", 10, "fourier"},
		{"ascii", "fourier", 4, "four"},
		{"han", "傅里叶变换", 3, "傅里叶"},
		{"exact", "傅里叶", 3, "傅里叶"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truncateRunes(tt.text, tt.limit))
		})
	}
}

// embeddingServer answers /v1/embeddings with one 3-dim vector per input
// and records the inputs it received.
func embeddingServer(t *testing.T, got *[]string) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Input []string `json:"input"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		*got = append(*got, req.Input...)

		type item struct {
			Object    string    `json:"object"`
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		data := make([]item, len(req.Input))
		for i := range req.Input {
			data[i] = item{Object: "embedding", Index: i, Embedding: []float32{float32(i + 1), 0, 0}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data, "model": "bge-m3"})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEmbedder_EmbedTexts(t *testing.T) {
	var inputs []string
	srv := embeddingServer(t, &inputs)

	embedder, err := NewEmbedder(ai.NewConfig(
		ai.WithEmbeddingHost(srv.URL),
		ai.WithRequestTimeout(5*time.Second),
		ai.WithMaxInputRunes(4),
	))
	require.NoError(t, err)

	vectors, err := embedder.EmbedTexts(context.Background(), []string{"eigenvalues", "矩阵的秩"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Len(t, vectors[0], 3)
	assert.Equal(t, []string{"eige", "矩阵的秩"}, inputs)
}
