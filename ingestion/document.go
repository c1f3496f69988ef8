package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/syllabus/core"
)

// processDocument parses a local document and stores one piece per non-empty unit.
func (d *Dispatcher) processDocument(ctx context.Context, logger *slog.Logger, res *core.Resource) error {
	if _, err := d.repo.DeleteContentPiecesByResource(ctx, res.ID); err != nil {
		return err
	}

	path := LocalPath(res)
	if path == "" {
		return errors.New("document resource missing local path")
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("document path does not exist: %s", path)
		}
		return err
	}

	parser, err := d.parsers.Lookup(res.Type)
	if err != nil {
		return err
	}

	var units []DocumentUnit
	err = d.stage(ctx, logger, res, core.StageDocParsing, func() error {
		var err error
		units, err = parser.Parse(ctx, path)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	return d.stage(ctx, logger, res, core.StageContentPieceBuild, func() error {
		pieces := DocumentPieces(res, units)
		if len(pieces) == 0 {
			logger.Warn("document has no text", "path", path)
			return nil
		}
		_, err := d.repo.AddContentPieces(ctx, pieces...)
		return err
	})
}

// LocalPath returns the file a document resource should be read from:
// meta "local_path" when set, otherwise the source URL.
func LocalPath(res *core.Resource) string {
	if p, ok := res.Meta["local_path"].(string); ok && strings.TrimSpace(p) != "" {
		return p
	}
	return strings.TrimSpace(res.SourceURL)
}

// DocumentPieces converts parsed units into content pieces of res.
// Blank units are skipped; OrderInResource counts the kept units.
func DocumentPieces(res *core.Resource, units []DocumentUnit) []*core.ContentPiece {
	language := languageOf(res)
	sourceType := core.SourceTypeFor(res.Type)
	var pieces []*core.ContentPiece
	for _, unit := range units {
		text := strings.TrimSpace(unit.Text)
		if text == "" {
			continue
		}
		var page *int
		if unit.PageNumber != nil {
			n := *unit.PageNumber
			page = &n
		}
		pieces = append(pieces, &core.ContentPiece{
			ResourceID:      res.ID,
			LectureID:       res.LectureID,
			CourseID:        res.CourseID,
			SourceType:      sourceType,
			Text:            text,
			Language:        language,
			PageNumber:      page,
			OrderInResource: len(pieces),
		})
	}
	return pieces
}
