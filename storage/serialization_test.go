package storage

import (
	"errors"
	"testing"

	"github.com/poiesic/syllabus/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	for _, id := range []core.ID{1, 300, 1<<63 + 5} {
		got, err := UnmarshalID(MarshalID(id))
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}
}

func TestUnmarshalIDEmpty(t *testing.T) {
	_, err := UnmarshalID(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSerializationFailed))
}

func TestChunkRecordKeepsOptionalFields(t *testing.T) {
	start, end, page := 1.5, 9.0, 3
	chunk := &core.Chunk{
		ID:         10,
		CourseID:   1,
		Text:       "梯度下降是一种优化算法",
		SourceType: core.SourceTypeMixed,
		SourceRef:  &core.SourceRef{ResourceID: 4, StartTime: &start, EndTime: &end, PageNumber: &page},
		Metadata: &core.ChunkMeta{
			SourcePieceIDs: []core.ID{5, 6},
			TimeRanges:     []core.TimeRange{{Start: 1.5, End: 9}},
			PageNumbers:    []int{3},
			SourceTypes:    []core.SourceType{core.SourceTypeTranscript, core.SourceTypeSlide},
		},
	}

	data, err := MarshalRecord(chunk)
	require.NoError(t, err)

	got, err := UnmarshalRecord[core.Chunk](data)
	require.NoError(t, err)
	assert.Equal(t, chunk, got)
}

func TestPieceRecordWithoutTimes(t *testing.T) {
	piece := &core.ContentPiece{ID: 2, Text: "plain", Language: "en", Meta: map[string]any{"duration": 2.5}}

	data, err := MarshalRecord(piece)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "start_time")

	got, err := UnmarshalRecord[core.ContentPiece](data)
	require.NoError(t, err)
	assert.Nil(t, got.StartTime)
	assert.Nil(t, got.PageNumber)
	assert.Equal(t, 2.5, got.Meta["duration"])
}

func TestUnmarshalRecordGarbage(t *testing.T) {
	_, err := UnmarshalRecord[core.Course]([]byte("{not json"))
	require.ErrorIs(t, err, ErrSerializationFailed)
}
