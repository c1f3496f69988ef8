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
	"strings"
)

// ValidateCourse validates a Course before it is created.
//
// Validation rules:
//   - Name must not be blank
//
// NOT validated (owned by the embedding pipeline):
//   - EmbeddingStatus, EmbeddingProgress, EmbeddingError
func ValidateCourse(course *Course) error {
	if course == nil {
		return fmt.Errorf("%w: course is nil", ErrInvalidCourse)
	}

	if strings.TrimSpace(course.Name) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCourse, ErrEmptyName)
	}

	return nil
}

// ValidateResource validates a Resource before it is created.
//
// Validation rules:
//   - CourseID must be set
//   - Type must be a known ResourceType
//
// NOT validated (owned by the dispatcher):
//   - Status, Stage, RetryCount, ErrorMessage
//   - LectureID (bound on creation)
func ValidateResource(resource *Resource) error {
	if resource == nil {
		return fmt.Errorf("%w: resource is nil", ErrInvalidResource)
	}

	if resource.CourseID == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidResource, ErrMissingCourse)
	}

	if !resource.Type.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidResource, ErrInvalidResourceType, resource.Type)
	}

	return nil
}
