package core

import (
	"encoding/binary"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated from per-entity database sequences; 0 means "unset".
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// Identical content always produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// DefaultLanguage is assigned to content pieces and chunks that do not declare one.
const DefaultLanguage = "zh"

// ResourceType identifies the kind of uploaded course material.
type ResourceType string

const (
	ResourceTypeVideo    ResourceType = "video"
	ResourceTypePPT      ResourceType = "ppt"
	ResourceTypePDF      ResourceType = "pdf"
	ResourceTypeText     ResourceType = "text"
	ResourceTypeMarkdown ResourceType = "markdown"
)

// Valid reports whether t is a known resource type.
func (t ResourceType) Valid() bool {
	switch t {
	case ResourceTypeVideo, ResourceTypePPT, ResourceTypePDF, ResourceTypeText, ResourceTypeMarkdown:
		return true
	}
	return false
}

// SourceType identifies where a content piece or chunk came from.
type SourceType string

const (
	SourceTypeTranscript SourceType = "transcript"
	SourceTypeSlide      SourceType = "slide"
	SourceTypePDF        SourceType = "pdf"
	SourceTypeText       SourceType = "text"
	SourceTypeMarkdown   SourceType = "markdown"

	// SourceTypeMixed marks a chunk built from pieces of more than one type.
	SourceTypeMixed SourceType = "mixed"
	// SourceTypeUnknown marks a chunk whose pieces carry no type.
	SourceTypeUnknown SourceType = "unknown"
)

// SourceTypeFor maps a document resource type to the source type of its pieces.
func SourceTypeFor(t ResourceType) SourceType {
	switch t {
	case ResourceTypeVideo:
		return SourceTypeTranscript
	case ResourceTypePPT:
		return SourceTypeSlide
	case ResourceTypePDF:
		return SourceTypePDF
	case ResourceTypeMarkdown:
		return SourceTypeMarkdown
	default:
		return SourceTypeText
	}
}

// Course is the root of ownership for lectures, resources, sections and chunks.
type Course struct {
	ID                ID              `json:"id"`
	Name              string          `json:"name"`
	Description       string          `json:"description,omitempty"`
	CreatedBy         string          `json:"created_by,omitempty"`
	EmbeddingStatus   EmbeddingStatus `json:"embedding_status"`
	EmbeddingProgress float64         `json:"embedding_progress"`
	EmbeddingError    string          `json:"embedding_error,omitempty"`
	Meta              map[string]any  `json:"meta,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Lecture groups the resources of a course into an ordered unit.
type Lecture struct {
	ID         ID        `json:"id"`
	CourseID   ID        `json:"course_id"`
	Title      string    `json:"title"`
	OrderIndex int       `json:"order_index"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Resource is one ingested source of course material.
type Resource struct {
	ID               ID              `json:"id"`
	CourseID         ID              `json:"course_id"`
	LectureID        ID              `json:"lecture_id"`
	Type             ResourceType    `json:"type"`
	DisplayName      string          `json:"display_name,omitempty"`
	SourceURL        string          `json:"source_url,omitempty"`
	OriginalFilename string          `json:"original_filename,omitempty"`
	Status           ResourceStatus  `json:"status"`
	Stage            ProcessingStage `json:"stage"`
	RetryCount       int             `json:"retry_count"`
	ErrorMessage     string          `json:"error_message,omitempty"`
	Meta             map[string]any  `json:"meta,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// IsVideo reports whether the resource runs through the transcript pipeline.
func (r *Resource) IsVideo() bool {
	return r.Type == ResourceTypeVideo
}

// ContentPiece is one extracted text fragment of a resource.
// Only SectionID changes after the piece is written.
type ContentPiece struct {
	ID              ID             `json:"id"`
	ResourceID      ID             `json:"resource_id"`
	LectureID       ID             `json:"lecture_id"`
	CourseID        ID             `json:"course_id"`
	SectionID       ID             `json:"section_id,omitempty"`
	SourceType      SourceType     `json:"source_type"`
	Text            string         `json:"text"`
	Language        string         `json:"language"`
	StartTime       *float64       `json:"start_time,omitempty"`
	EndTime         *float64       `json:"end_time,omitempty"`
	PageNumber      *int           `json:"page_number,omitempty"`
	OrderInResource int            `json:"order_in_resource"`
	Meta            map[string]any `json:"meta,omitempty"`
}

// Section is a contiguous group of content pieces within one lecture.
type Section struct {
	ID              ID          `json:"id"`
	CourseID        ID          `json:"course_id"`
	LectureID       ID          `json:"lecture_id"`
	Title           string      `json:"title"`
	Summary         string      `json:"summary"`
	OrderIndex      int         `json:"order_index"`
	ApproxStartTime *float64    `json:"approx_start_time,omitempty"`
	ApproxEndTime   *float64    `json:"approx_end_time,omitempty"`
	Meta            SectionMeta `json:"meta"`
}

// SectionMeta holds aggregate figures about a section.
type SectionMeta struct {
	ContentPieceCount int `json:"content_piece_count"`
	TotalChars        int `json:"total_chars"`
}

// Chunk is the final embeddable unit of text.
type Chunk struct {
	ID             ID         `json:"id"`
	CourseID       ID         `json:"course_id"`
	LectureID      ID         `json:"lecture_id"`
	SectionID      ID         `json:"section_id"`
	Text           string     `json:"text"`
	Language       string     `json:"language"`
	SourceType     SourceType `json:"source_type"`
	SourceRef      *SourceRef `json:"source_ref"`
	OrderInSection int        `json:"order_in_section"`
	TokensEstimate int        `json:"tokens_estimate"`
	Metadata       *ChunkMeta `json:"metadata"`
	Fingerprint    ID         `json:"fingerprint"`
}

// SourceRef points back at where a chunk's text starts in its source material.
type SourceRef struct {
	ResourceID ID       `json:"resource_id"`
	StartTime  *float64 `json:"start_time,omitempty"`
	EndTime    *float64 `json:"end_time,omitempty"`
	PageNumber *int     `json:"page_number,omitempty"`
}

// ChunkMeta lists the content pieces a chunk was built from.
type ChunkMeta struct {
	SourcePieceIDs []ID         `json:"source_piece_ids"`
	TimeRanges     []TimeRange  `json:"time_ranges"`
	PageNumbers    []int        `json:"page_numbers"`
	SourceTypes    []SourceType `json:"source_types"`
}

// TimeRange is a [Start, End] span in seconds.
type TimeRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// CharCount returns the number of characters (code points) in s.
func CharCount(s string) int {
	return utf8.RuneCountInString(s)
}

// TrimmedCharCount returns the number of characters in s after trimming whitespace.
func TrimmedCharCount(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

// EstimateTokens approximates the token count of text as ceil(chars/4), at least 1.
func EstimateTokens(text string) int {
	n := CharCount(text)
	tokens := (n + 3) / 4
	if tokens < 1 {
		return 1
	}
	return tokens
}
