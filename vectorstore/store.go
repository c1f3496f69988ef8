// Package vectorstore defines the per-course vector collection contract used
// by the embedding pipeline and course search.
//
// Every course owns one logical collection named CollectionName(courseID).
// Collections are created on first upsert; counting or querying a collection
// that does not exist yet yields zero results rather than an error.
package vectorstore

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/poiesic/syllabus/core"
)

// DefaultTopK is used when a query asks for zero or fewer hits.
const DefaultTopK = 5

// Item is one vector written to a collection.
type Item struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Vector   []float32      `json:"vector"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Hit is one ranked query result.
type Hit struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Score    float32        `json:"score"`
}

// Store is a set of vector collections keyed by course.
// Implementations must be safe for concurrent use.
type Store interface {
	// Upsert writes items into the course collection, creating it if needed.
	// Returns the number of items written.
	Upsert(ctx context.Context, courseID core.ID, items []Item) (int, error)

	// Query returns up to topK items ranked by similarity to vector.
	// Only items whose metadata equals every non-nil filter value are considered.
	Query(ctx context.Context, courseID core.ID, vector []float32, topK int, filter map[string]any) ([]Hit, error)

	// Count returns the number of items in the course collection.
	Count(ctx context.Context, courseID core.ID) (int, error)

	// DeleteCollection drops the course collection. Missing collections are ignored.
	DeleteCollection(ctx context.Context, courseID core.ID) error

	// ListCollections returns the names of all existing collections.
	ListCollections(ctx context.Context) ([]string, error)
}

// CollectionName returns the collection name of a course.
func CollectionName(courseID core.ID) string {
	return fmt.Sprintf("course_%d", courseID)
}

// CleanFilter drops nil values and blank keys from a query filter.
func CleanFilter(filter map[string]any) map[string]any {
	if len(filter) == 0 {
		return nil
	}
	out := make(map[string]any, len(filter))
	for k, v := range filter {
		if v == nil || strings.TrimSpace(k) == "" {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// MatchesFilter reports whether metadata satisfies every filter condition.
// Numbers compare by value regardless of their Go type.
func MatchesFilter(metadata, filter map[string]any) bool {
	for k, want := range filter {
		got, ok := metadata[k]
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	if aNum && bNum {
		return af == bf
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case core.ID:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Vectors of different length are compared over their common prefix.
func CosineSimilarity(a, b []float32) float32 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
