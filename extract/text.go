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

package extract

import (
	"context"
	"os"
	"strings"

	"github.com/poiesic/syllabus/ingestion"
)

// LinesPerUnit is the number of non-empty lines TextParser groups into one unit.
const LinesPerUnit = 5

// TextParser splits plain text files into units of LinesPerUnit non-empty lines.
// Unit page numbers count from 1.
type TextParser struct{}

var _ ingestion.DocumentParser = TextParser{}

// Parse reads path and returns its units in file order.
func (TextParser) Parse(ctx context.Context, path string) ([]ingestion.DocumentUnit, error) {
	data, err := readFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return SplitText(data), nil
}

// SplitText groups the trimmed non-empty lines of text into units.
func SplitText(text string) []ingestion.DocumentUnit {
	var units []ingestion.DocumentUnit
	var buf []string
	flush := func() {
		if len(buf) == 0 {
			return
		}
		units = append(units, ingestion.DocumentUnit{
			PageNumber: pageNumber(len(units) + 1),
			Text:       strings.Join(buf, "\n"),
		})
		buf = buf[:0]
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		buf = append(buf, line)
		if len(buf) >= LinesPerUnit {
			flush()
		}
	}
	flush()
	return units
}

// readFile returns the contents of path with invalid UTF-8 dropped.
func readFile(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(data), ""), nil
}

func pageNumber(n int) *int { return &n }
