package mock

import (
	"context"
	"hash/fnv"
	"math"
	"sync"
)

// DefaultDimension is the vector length when MockEmbedder.Dimension is unset.
const DefaultDimension = 16

// ModelName is what MockEmbedder.Model reports.
const ModelName = "mock-embedder"

// MockEmbedder implements ai.Embedder with hash-derived vectors.
// Set EmbedTextFunc or EmbedTextsFunc to script failures or odd shapes.
type MockEmbedder struct {
	EmbedTextFunc  func(ctx context.Context, text string) ([]float32, error)
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension overrides DefaultDimension when positive.
	Dimension int

	mu     sync.Mutex
	calls  int
	inputs []string
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{}
}

func (m *MockEmbedder) WithEmbedTextFunc(fn func(ctx context.Context, text string) ([]float32, error)) *MockEmbedder {
	m.EmbedTextFunc = fn
	return m
}

func (m *MockEmbedder) WithEmbedTextsFunc(fn func(ctx context.Context, texts []string) ([][]float32, error)) *MockEmbedder {
	m.EmbedTextsFunc = fn
	return m
}

func (m *MockEmbedder) Model() string {
	return ModelName
}

func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	m.record(text)
	if m.EmbedTextFunc != nil {
		return m.EmbedTextFunc(ctx, text)
	}
	return GenerateVector(text, m.dim()), nil
}

func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.record(texts...)
	if m.EmbedTextsFunc != nil {
		return m.EmbedTextsFunc(ctx, texts)
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = GenerateVector(text, m.dim())
	}
	return out, nil
}

// CallCount counts EmbedText and EmbedTexts calls alike.
func (m *MockEmbedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Inputs returns every text passed in so far, in call order.
func (m *MockEmbedder) Inputs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.inputs...)
}

// Reset forgets calls, inputs and scripted funcs.
func (m *MockEmbedder) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = 0
	m.inputs = nil
	m.EmbedTextFunc = nil
	m.EmbedTextsFunc = nil
}

func (m *MockEmbedder) record(texts ...string) {
	m.mu.Lock()
	m.calls++
	m.inputs = append(m.inputs, texts...)
	m.mu.Unlock()
}

func (m *MockEmbedder) dim() int {
	if m.Dimension > 0 {
		return m.Dimension
	}
	return DefaultDimension
}

// GenerateVector derives a unit vector of length dim from the FNV hash of text.
func GenerateVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	state := h.Sum32()

	v := make([]float32, dim)
	var sumSquares float64
	for i := range v {
		state = state*1664525 + 1013904223
		v[i] = float32(state%1000)/1000 + 0.001
		sumSquares += float64(v[i]) * float64(v[i])
	}
	scale := float32(1 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= scale
	}
	return v
}
