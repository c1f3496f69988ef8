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

// Package search runs semantic queries against a course's embedded chunks.
//
// The Searcher embeds the query, normalizes the vector the same way the
// embedding pipeline does, and asks the vector store for the closest chunks.
// Each result also reports whether every significant query word appears
// verbatim in the chunk text.
package search
