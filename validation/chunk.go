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

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/poiesic/syllabus/core"
)

const (
	// MinChunkChars is the shortest chunk text accepted, in characters.
	MinChunkChars = 30

	// MaxChunkChars is the longest chunk text accepted, in characters.
	MaxChunkChars = 3600
)

// chunkView is the flat, validator-tagged projection of a chunk.
type chunkView struct {
	ChunkID        core.ID         `json:"chunk_id" validate:"required"`
	CourseID       core.ID         `json:"course_id" validate:"required"`
	LectureID      core.ID         `json:"lecture_id" validate:"required"`
	SectionID      core.ID         `json:"section_id" validate:"required"`
	Text           string          `json:"text" validate:"required"`
	TextChars      int             `json:"text_chars" validate:"gte=30,lte=3600"`
	Language       string          `json:"language" validate:"required"`
	SourceType     core.SourceType `json:"source_type" validate:"required"`
	SourceRef      *core.SourceRef `json:"source_ref" validate:"required"`
	OrderInSection int             `json:"order_in_section" validate:"required"`
	TokensEstimate int             `json:"tokens_estimate" validate:"gte=0"`
	Metadata       *core.ChunkMeta `json:"metadata" validate:"required"`
}

func newView(chunk *core.Chunk) *chunkView {
	return &chunkView{
		ChunkID:        chunk.ID,
		CourseID:       chunk.CourseID,
		LectureID:      chunk.LectureID,
		SectionID:      chunk.SectionID,
		Text:           chunk.Text,
		TextChars:      core.CharCount(chunk.Text),
		Language:       chunk.Language,
		SourceType:     chunk.SourceType,
		SourceRef:      chunk.SourceRef,
		OrderInSection: chunk.OrderInSection,
		TokensEstimate: chunk.TokensEstimate,
		Metadata:       chunk.Metadata,
	}
}

// Validator checks chunks. It is safe for concurrent use.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator reporting fields by their JSON names.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// Check returns every contract violation of chunk, in field order.
// A nil chunk yields a single issue.
func (v *Validator) Check(chunk *core.Chunk) []string {
	if chunk == nil {
		return []string{"chunk is nil"}
	}

	err := v.validate.Struct(newView(chunk))
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, describe(fe))
	}
	return messages
}

func describe(fe validator.FieldError) string {
	switch {
	case fe.Field() == "text_chars" && fe.Tag() == "gte":
		return fmt.Sprintf("text is too short (<%d chars)", MinChunkChars)
	case fe.Field() == "text_chars" && fe.Tag() == "lte":
		return fmt.Sprintf("text is too long (>%d chars)", MaxChunkChars)
	case fe.Field() == "tokens_estimate":
		return "tokens_estimate must be non-negative"
	case fe.Tag() == "required" && fe.Kind() == reflect.Ptr:
		return fmt.Sprintf("missing field '%s'", fe.Field())
	case fe.Tag() == "required":
		return fmt.Sprintf("field '%s' is empty", fe.Field())
	}
	return fmt.Sprintf("field '%s' failed %s", fe.Field(), fe.Tag())
}
