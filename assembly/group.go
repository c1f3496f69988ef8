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
	"github.com/poiesic/syllabus/core"
)

// Bounds are the soft character limits of a group.
// A group closes once it reaches Min; a group already at Max closes before
// another piece is added.
type Bounds struct {
	Min int
	Max int
}

var (
	// DefaultSectionBounds group pieces into outline sections.
	DefaultSectionBounds = Bounds{Min: 250, Max: 800}

	// DefaultChunkBounds split a section into embeddable chunks.
	DefaultChunkBounds = Bounds{Min: 200, Max: 500}
)

// group walks pieces in order and partitions them greedily.
// Every piece lands in exactly one group and order is preserved.
func group(pieces []*core.ContentPiece, bounds Bounds, length func(*core.ContentPiece) int) [][]*core.ContentPiece {
	var groups [][]*core.ContentPiece
	var current []*core.ContentPiece
	count := 0

	for _, piece := range pieces {
		if count >= bounds.Max && len(current) > 0 {
			groups = append(groups, current)
			current = nil
			count = 0
		}

		current = append(current, piece)
		count += length(piece)

		if count >= bounds.Min {
			groups = append(groups, current)
			current = nil
			count = 0
		}
	}

	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

// GroupSections partitions the ordered pieces of one lecture into sections.
// Piece length is counted on the raw text.
func GroupSections(pieces []*core.ContentPiece, bounds Bounds) [][]*core.ContentPiece {
	return group(pieces, bounds, func(p *core.ContentPiece) int {
		return core.CharCount(p.Text)
	})
}

// groupChunks partitions the pieces of one section into chunk candidates.
// Piece length is counted on the trimmed text.
func groupChunks(pieces []*core.ContentPiece, bounds Bounds) [][]*core.ContentPiece {
	return group(pieces, bounds, func(p *core.ContentPiece) int {
		return core.TrimmedCharCount(p.Text)
	})
}
