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

package core

import (
	"fmt"
	"time"
)

// ResourceStatus is the lifecycle state of a resource.
type ResourceStatus string

const (
	ResourceStatusPending   ResourceStatus = "pending"
	ResourceStatusQueued    ResourceStatus = "queued"
	ResourceStatusRunning   ResourceStatus = "running"
	ResourceStatusSucceeded ResourceStatus = "succeeded"
	ResourceStatusFailed    ResourceStatus = "failed"
)

// ProcessingStage is the step a resource is at inside its pipeline.
type ProcessingStage string

const (
	StageWaiting           ProcessingStage = "waiting"
	StageDownloading       ProcessingStage = "downloading"
	StageAudioExtracting   ProcessingStage = "audio_extracting"
	StageASR               ProcessingStage = "asr"
	StageDocParsing        ProcessingStage = "doc_parsing"
	StageContentPieceBuild ProcessingStage = "contentpiece_build"
	StageSectioning        ProcessingStage = "sectioning"
	StageChunking          ProcessingStage = "chunking"
	StageDone              ProcessingStage = "done"
)

// EmbeddingStatus is the state of a course's bulk vectorization job.
type EmbeddingStatus string

const (
	EmbeddingNotStarted EmbeddingStatus = "not_started"
	EmbeddingPending    EmbeddingStatus = "pending"
	EmbeddingRunning    EmbeddingStatus = "running"
	EmbeddingDone       EmbeddingStatus = "done"
	EmbeddingFailed     EmbeddingStatus = "failed"
)

// InFlight reports whether an embedding job is queued or executing.
func (s EmbeddingStatus) InFlight() bool {
	return s == EmbeddingPending || s == EmbeddingRunning
}

var resourceTransitions = map[ResourceStatus][]ResourceStatus{
	ResourceStatusPending:   {ResourceStatusQueued},
	ResourceStatusQueued:    {ResourceStatusRunning},
	ResourceStatusRunning:   {ResourceStatusSucceeded, ResourceStatusFailed},
	ResourceStatusFailed:    {ResourceStatusQueued},
	// succeeded -> failed covers a course that fails validation after assembly.
	ResourceStatusSucceeded: {ResourceStatusQueued, ResourceStatusFailed},
}

var embeddingTransitions = map[EmbeddingStatus][]EmbeddingStatus{
	EmbeddingNotStarted: {EmbeddingPending},
	EmbeddingDone:       {EmbeddingPending},
	EmbeddingFailed:     {EmbeddingPending},
	EmbeddingPending:    {EmbeddingRunning, EmbeddingFailed},
	EmbeddingRunning:    {EmbeddingDone, EmbeddingFailed},
}

// CanTransition reports whether a resource may move from one status to another.
func (s ResourceStatus) CanTransition(to ResourceStatus) bool {
	for _, allowed := range resourceTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CanTransition reports whether a course embedding may move from one status to another.
// An empty status is treated as not_started.
func (s EmbeddingStatus) CanTransition(to EmbeddingStatus) bool {
	if s == "" {
		s = EmbeddingNotStarted
	}
	for _, allowed := range embeddingTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TransitionTo moves the resource to status and sets its stage.
// Returns ErrInvalidTransition if the move is not in the transition table.
func (r *Resource) TransitionTo(status ResourceStatus, stage ProcessingStage) error {
	if !r.Status.CanTransition(status) {
		return fmt.Errorf("%w: resource %d %s -> %s", ErrInvalidTransition, r.ID, r.Status, status)
	}
	r.Status = status
	r.Stage = stage
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// TransitionEmbedding moves the course embedding status.
// Returns ErrInvalidTransition if the move is not in the transition table.
func (c *Course) TransitionEmbedding(status EmbeddingStatus) error {
	if !c.EmbeddingStatus.CanTransition(status) {
		from := c.EmbeddingStatus
		if from == "" {
			from = EmbeddingNotStarted
		}
		return fmt.Errorf("%w: course %d embedding %s -> %s", ErrInvalidTransition, c.ID, from, status)
	}
	c.EmbeddingStatus = status
	c.UpdatedAt = time.Now().UTC()
	return nil
}
