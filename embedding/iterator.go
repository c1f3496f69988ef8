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

package embedding

import (
	"context"

	"github.com/poiesic/syllabus/core"
)

// DefaultBatchSize is the default number of chunks embedded per provider call.
const DefaultBatchSize = 64

// ChunkIterator walks an ordered chunk list in batches.
type ChunkIterator struct {
	chunks    []*core.Chunk
	batchSize int
}

// NewChunkIterator creates a new chunk iterator.
// batchSize: number of chunks per batch; non-positive values use DefaultBatchSize
func NewChunkIterator(chunks []*core.Chunk, batchSize int) *ChunkIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &ChunkIterator{
		chunks:    chunks,
		batchSize: batchSize,
	}
}

// Batches returns how many batches ForEach will produce.
func (it *ChunkIterator) Batches() int {
	return (len(it.chunks) + it.batchSize - 1) / it.batchSize
}

// ForEach calls fn for each batch in order.
// Iteration stops on first error from fn.
// Context cancellation is checked between batches.
func (it *ChunkIterator) ForEach(ctx context.Context, fn func(batch []*core.Chunk) error) error {
	for i := 0; i < len(it.chunks); i += it.batchSize {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		end := min(i+it.batchSize, len(it.chunks))
		if err := fn(it.chunks[i:end]); err != nil {
			return err
		}
	}
	return nil
}
