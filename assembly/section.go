package assembly

import (
	"fmt"
	"strings"

	"github.com/poiesic/syllabus/core"
)

// SummaryChars is the length of a section summary before truncation.
const SummaryChars = 200

// JoinText joins the trimmed texts of pieces with single spaces, skipping blanks.
func JoinText(pieces []*core.ContentPiece) string {
	parts := make([]string, 0, len(pieces))
	for _, piece := range pieces {
		if text := strings.TrimSpace(piece.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// Summarize returns the first SummaryChars characters of text, marked with
// an ellipsis when truncated.
func Summarize(text string) string {
	runes := []rune(text)
	if len(runes) <= SummaryChars {
		return text
	}
	return string(runes[:SummaryChars]) + "…"
}

// NewSection builds the index-th section (counting from 1) of a lecture
// from a group of pieces. Returns nil when the group has no text.
func NewSection(lecture *core.Lecture, index int, pieces []*core.ContentPiece) *core.Section {
	text := JoinText(pieces)
	if text == "" {
		return nil
	}

	title := lecture.Title
	if strings.TrimSpace(title) == "" {
		title = "Lecture"
	}

	section := &core.Section{
		CourseID:   lecture.CourseID,
		LectureID:  lecture.ID,
		Title:      fmt.Sprintf("%s - Section %d", title, index),
		Summary:    Summarize(text),
		OrderIndex: index,
		Meta: core.SectionMeta{
			ContentPieceCount: len(pieces),
			TotalChars:        core.CharCount(text),
		},
	}

	for _, piece := range pieces {
		if piece.StartTime != nil && (section.ApproxStartTime == nil || *piece.StartTime < *section.ApproxStartTime) {
			section.ApproxStartTime = ptr(*piece.StartTime)
		}
		if piece.EndTime != nil && (section.ApproxEndTime == nil || *piece.EndTime > *section.ApproxEndTime) {
			section.ApproxEndTime = ptr(*piece.EndTime)
		}
	}
	return section
}

func ptr[T any](v T) *T {
	return &v
}
