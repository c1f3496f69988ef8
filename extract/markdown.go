package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/poiesic/syllabus/ingestion"
)

var headingPattern = regexp.MustCompile(`^#{1,6}\s+\S`)

// MarkdownParser splits markdown files into heading-delimited units.
//
// Fence lines are dropped and fenced content is kept verbatim, including
// blank lines and lines that look like headings. Outside fences lines are
// trimmed and blank lines are skipped.
type MarkdownParser struct{}

var _ ingestion.DocumentParser = MarkdownParser{}

// Parse reads path and returns its units in file order.
func (MarkdownParser) Parse(ctx context.Context, path string) ([]ingestion.DocumentUnit, error) {
	data, err := readFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return SplitMarkdown(data), nil
}

// SplitMarkdown splits markdown text at headings outside code fences.
func SplitMarkdown(text string) []ingestion.DocumentUnit {
	var units []ingestion.DocumentUnit
	var buf []string
	flush := func() {
		content := strings.TrimSpace(strings.Join(buf, "\n"))
		buf = buf[:0]
		if content == "" {
			return
		}
		units = append(units, ingestion.DocumentUnit{
			PageNumber: pageNumber(len(units) + 1),
			Text:       content,
		})
	}

	inFence := false
	for _, raw := range strings.Split(text, "\n") {
		raw = strings.TrimRight(raw, "\r")
		stripped := strings.TrimSpace(raw)
		if strings.HasPrefix(stripped, "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			buf = append(buf, raw)
			continue
		}
		if stripped == "" {
			continue
		}
		if headingPattern.MatchString(stripped) {
			flush()
		}
		buf = append(buf, stripped)
	}
	flush()
	return units
}
