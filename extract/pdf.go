package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/poiesic/syllabus/ingestion"
)

// PDFParser extracts page text with poppler's pdftotext.
type PDFParser struct {
	// Binary is the pdftotext executable. Default is "pdftotext" on PATH.
	Binary string
	// Timeout bounds one conversion. Default is 2 minutes.
	Timeout time.Duration
}

var _ ingestion.DocumentParser = PDFParser{}

// Parse runs pdftotext on path and returns one unit per page.
// Pages are numbered from 1 and empty pages are omitted.
func (p PDFParser) Parse(ctx context.Context, path string) ([]ingestion.DocumentUnit, error) {
	bin := p.Binary
	if bin == "" {
		bin = "pdftotext"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return nil, fmt.Errorf("pdftotext not found: %w", err)
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "-enc", "UTF-8", "-layout", "-q", path, "-")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if s := strings.TrimSpace(stderr.String()); s != "" {
			return nil, fmt.Errorf("pdftotext: %w; stderr=%s", err, s)
		}
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	return SplitPages(stdout.String()), nil
}

// SplitPages splits pdftotext output at form feeds into page units.
func SplitPages(text string) []ingestion.DocumentUnit {
	var units []ingestion.DocumentUnit
	for i, page := range strings.Split(text, "\f") {
		page = strings.TrimSpace(strings.ToValidUTF8(page, ""))
		if page == "" {
			continue
		}
		units = append(units, ingestion.DocumentUnit{PageNumber: pageNumber(i + 1), Text: page})
	}
	return units
}
