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

// Package storage provides the storage abstraction layer for syllabus.
//
// This package defines repository interfaces that decouple the ingestion,
// assembly and embedding logic from the storage implementation. Consumers
// declare the narrow slice of Store they need.
//
// # Architecture
//
// The storage layer follows the Repository pattern:
//
//   - Repository: transactions and lifecycle
//   - CourseRepository, LectureRepository, ResourceRepository
//   - ContentPieceRepository: extracted fragments, cleared per resource
//   - SectionRepository, ChunkRepository: regenerated wholesale by assembly
//   - Store: all of the above for one backend
//
// # Transactions
//
// WithTransaction places the transaction in the context handed to the
// callback. Every repository call made with that context joins it:
//
//	err := store.WithTransaction(ctx, func(ctx context.Context) error {
//	    res, err := store.GetResource(ctx, id)
//	    if err != nil {
//	        return err
//	    }
//	    res.Status = core.ResourceStatusQueued
//	    return store.UpdateResource(ctx, res)
//	})
//
// Calls made outside WithTransaction run in their own transaction.
//
// # Ordering
//
// List operations return records in index order (see each method), which
// is what assembly and the embedding pipeline rely on for determinism.
package storage
