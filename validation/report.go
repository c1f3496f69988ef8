package validation

import (
	"fmt"
	"strings"

	"github.com/poiesic/syllabus/core"
)

// Issue lists the violations of one chunk.
type Issue struct {
	ChunkID core.ID  `json:"chunk_id"`
	Errors  []string `json:"errors"`
}

func (i Issue) String() string {
	return fmt.Sprintf("chunk %d: %s", i.ChunkID, strings.Join(i.Errors, "; "))
}

// Report is the outcome of validating a set of chunks.
type Report struct {
	OK      bool    `json:"ok"`
	Checked int     `json:"checked"`
	Issues  []Issue `json:"issues,omitempty"`
}

// Summary renders at most n issues on one line.
func (r Report) Summary(n int) string {
	issues := r.Issues
	if n >= 0 && len(issues) > n {
		issues = issues[:n]
	}
	parts := make([]string, len(issues))
	for i, issue := range issues {
		parts[i] = issue.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// merge appends other to r.
func (r *Report) merge(other Report) {
	r.Checked += other.Checked
	r.Issues = append(r.Issues, other.Issues...)
	r.OK = len(r.Issues) == 0
}

// Validate checks every chunk and collects the failing ones.
func Validate(chunks []*core.Chunk) Report {
	return NewValidator().Validate(chunks)
}

// Validate checks every chunk and collects the failing ones.
func (v *Validator) Validate(chunks []*core.Chunk) Report {
	report := Report{Checked: len(chunks)}
	for _, chunk := range chunks {
		if errs := v.Check(chunk); len(errs) > 0 {
			var id core.ID
			if chunk != nil {
				id = chunk.ID
			}
			report.Issues = append(report.Issues, Issue{ChunkID: id, Errors: errs})
		}
	}
	report.OK = len(report.Issues) == 0
	return report
}
