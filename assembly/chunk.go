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

package assembly

import (
	"slices"
	"strings"

	"github.com/poiesic/syllabus/core"
	"github.com/poiesic/syllabus/validation"
)

// MinChunkChars is the shortest chunk persisted on its own. Shorter
// fragments are appended to the previous chunk of the section, or dropped
// when the section has no previous chunk.
const MinChunkChars = validation.MinChunkChars

// candidate accumulates the pieces of one chunk before it is finalized.
type candidate struct {
	text     string
	first    *core.ContentPiece
	pieceIDs []core.ID
	ranges   []core.TimeRange
	pages    []int
	sources  []core.SourceType
}

func newCandidate(pieces []*core.ContentPiece) *candidate {
	c := &candidate{
		pieceIDs: []core.ID{},
		ranges:   []core.TimeRange{},
		pages:    []int{},
		sources:  []core.SourceType{},
	}
	for _, piece := range pieces {
		if strings.TrimSpace(piece.Text) == "" {
			continue
		}
		if c.first == nil {
			c.first = piece
		}
		if piece.ID != 0 {
			c.pieceIDs = append(c.pieceIDs, piece.ID)
		}
		if piece.StartTime != nil && piece.EndTime != nil {
			c.ranges = append(c.ranges, core.TimeRange{Start: *piece.StartTime, End: *piece.EndTime})
		}
		if piece.PageNumber != nil {
			c.pages = append(c.pages, *piece.PageNumber)
		}
		c.sources = append(c.sources, piece.SourceType)
	}
	c.text = JoinText(pieces)
	return c
}

func (c *candidate) earliestStart() *float64 {
	if len(c.ranges) == 0 {
		return nil
	}
	start := c.ranges[0].Start
	for _, r := range c.ranges[1:] {
		start = min(start, r.Start)
	}
	return &start
}

func (c *candidate) latestEnd() *float64 {
	if len(c.ranges) == 0 {
		return nil
	}
	end := c.ranges[0].End
	for _, r := range c.ranges[1:] {
		end = max(end, r.End)
	}
	return &end
}

func (c *candidate) firstPage() *int {
	if len(c.pages) == 0 {
		return nil
	}
	return ptr(c.pages[0])
}

// SourceTypeOf collapses the source types of a chunk's pieces.
func SourceTypeOf(sources []core.SourceType) core.SourceType {
	var distinct []core.SourceType
	for _, s := range sources {
		if !slices.Contains(distinct, s) {
			distinct = append(distinct, s)
		}
	}
	switch len(distinct) {
	case 0:
		return core.SourceTypeUnknown
	case 1:
		return distinct[0]
	default:
		return core.SourceTypeMixed
	}
}

func (c *candidate) toChunk(section *core.Section, order int) *core.Chunk {
	language := c.first.Language
	if language == "" {
		language = core.DefaultLanguage
	}
	return &core.Chunk{
		CourseID:   section.CourseID,
		LectureID:  section.LectureID,
		SectionID:  section.ID,
		Text:       c.text,
		Language:   language,
		SourceType: SourceTypeOf(c.sources),
		SourceRef: &core.SourceRef{
			ResourceID: c.first.ResourceID,
			StartTime:  c.earliestStart(),
			EndTime:    c.latestEnd(),
			PageNumber: c.firstPage(),
		},
		OrderInSection: order,
		TokensEstimate: core.EstimateTokens(c.text),
		Metadata: &core.ChunkMeta{
			SourcePieceIDs: c.pieceIDs,
			TimeRanges:     c.ranges,
			PageNumbers:    c.pages,
			SourceTypes:    c.sources,
		},
		Fingerprint: core.IDFromContent(c.text),
	}
}

// absorb appends a short candidate to an existing chunk.
func absorb(chunk *core.Chunk, c *candidate) {
	chunk.Text = strings.TrimSpace(chunk.Text + " " + c.text)
	chunk.TokensEstimate = core.EstimateTokens(chunk.Text)
	chunk.Fingerprint = core.IDFromContent(chunk.Text)

	meta := chunk.Metadata
	meta.SourcePieceIDs = append(meta.SourcePieceIDs, c.pieceIDs...)
	meta.TimeRanges = append(meta.TimeRanges, c.ranges...)
	meta.PageNumbers = append(meta.PageNumbers, c.pages...)
	meta.SourceTypes = append(meta.SourceTypes, c.sources...)
	chunk.SourceType = SourceTypeOf(meta.SourceTypes)

	ref := chunk.SourceRef
	if end := c.latestEnd(); end != nil && (ref.EndTime == nil || *end > *ref.EndTime) {
		ref.EndTime = end
	}
	if ref.StartTime == nil {
		ref.StartTime = c.earliestStart()
	}
	if ref.PageNumber == nil {
		ref.PageNumber = c.firstPage()
	}
}

// BuildChunks splits the ordered pieces of a section into chunks.
// Candidates shorter than minChars are merged into the previous chunk or,
// for the first chunk of a section, dropped. The returned chunks carry the
// section's ids and consecutive OrderInSection values starting at 1.
func BuildChunks(section *core.Section, pieces []*core.ContentPiece, bounds Bounds, minChars int) []*core.Chunk {
	var chunks []*core.Chunk
	for _, group := range groupChunks(pieces, bounds) {
		c := newCandidate(group)
		if c.text == "" {
			continue
		}
		if core.CharCount(c.text) < minChars {
			if len(chunks) > 0 {
				absorb(chunks[len(chunks)-1], c)
			}
			continue
		}
		chunks = append(chunks, c.toChunk(section, len(chunks)+1))
	}
	return chunks
}
