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

package ingestion

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/poiesic/syllabus/core"
)

// DefaultSampleRate is the sample rate of audio handed to the transcriber.
const DefaultSampleRate = 16000

// MediaFetcher downloads the audio track of a remote video into dir.
type MediaFetcher interface {
	// Fetch returns the path of the downloaded audio file.
	Fetch(ctx context.Context, sourceURL, dir string) (string, error)
}

// AudioConverter resamples audio for speech recognition.
type AudioConverter interface {
	// ToMonoWAV writes in as a single-channel WAV file at sampleRate to out.
	ToMonoWAV(ctx context.Context, in, out string, sampleRate int) error
}

// TranscriptSegment is one timestamped span of recognized speech.
type TranscriptSegment struct {
	Start float64
	End   float64
	Text  string
}

// Transcriber runs speech recognition over a WAV file.
type Transcriber interface {
	// Transcribe returns segments in playback order.
	Transcribe(ctx context.Context, wavPath string) ([]TranscriptSegment, error)
}

// DocumentUnit is one extracted unit of a document: a slide, a page or a block.
type DocumentUnit struct {
	PageNumber *int
	Text       string
}

// DocumentParser extracts ordered text units from a local file.
type DocumentParser interface {
	Parse(ctx context.Context, path string) ([]DocumentUnit, error)
}

// ParserRegistry maps document resource types to parsers.
// It is safe for concurrent use.
type ParserRegistry struct {
	mu      sync.RWMutex
	parsers map[core.ResourceType]DocumentParser
}

// NewParserRegistry creates an empty registry.
func NewParserRegistry() *ParserRegistry {
	return &ParserRegistry{parsers: make(map[core.ResourceType]DocumentParser)}
}

// Register binds parser to a resource type.
// Returns ErrDuplicateParser if the type already has a parser.
func (r *ParserRegistry) Register(t core.ResourceType, parser DocumentParser) error {
	if !t.Valid() || t == core.ResourceTypeVideo {
		return fmt.Errorf("%w: %q", core.ErrInvalidResourceType, t)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.parsers[t]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateParser, t)
	}
	r.parsers[t] = parser
	return nil
}

// Lookup returns the parser registered for t.
func (r *ParserRegistry) Lookup(t core.ResourceType) (DocumentParser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	parser, ok := r.parsers[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoParser, t)
	}
	return parser, nil
}

// Types returns the registered resource types in sorted order.
func (r *ParserRegistry) Types() []core.ResourceType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]core.ResourceType, 0, len(r.parsers))
	for t := range r.parsers {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}
