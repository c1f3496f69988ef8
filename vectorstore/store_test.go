package vectorstore

import (
	"testing"

	"github.com/poiesic/syllabus/core"
	"github.com/stretchr/testify/assert"
)

func TestCollectionName(t *testing.T) {
	assert.Equal(t, "course_42", CollectionName(42))
}

func TestCleanFilterDropsNulls(t *testing.T) {
	got := CleanFilter(map[string]any{"lecture_id": 3, "section_id": nil, " ": "x"})
	assert.Equal(t, map[string]any{"lecture_id": 3}, got)
	assert.Nil(t, CleanFilter(map[string]any{"a": nil}))
	assert.Nil(t, CleanFilter(nil))
}

func TestMatchesFilterNormalizesNumbers(t *testing.T) {
	meta := map[string]any{"lecture_id": float64(3), "source_type": "slide"}

	assert.True(t, MatchesFilter(meta, map[string]any{"lecture_id": 3}))
	assert.True(t, MatchesFilter(meta, map[string]any{"lecture_id": core.ID(3), "source_type": core.SourceTypeSlide}))
	assert.False(t, MatchesFilter(meta, map[string]any{"lecture_id": 4}))
	assert.False(t, MatchesFilter(meta, map[string]any{"section_id": 1}))
	assert.True(t, MatchesFilter(meta, nil))
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-6)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.Equal(t, float32(0), CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}
