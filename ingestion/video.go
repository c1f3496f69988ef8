package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/syllabus/core"
)

// processVideo downloads, converts and transcribes a video resource and
// stores one transcript piece per non-empty segment.
func (d *Dispatcher) processVideo(ctx context.Context, logger *slog.Logger, res *core.Resource) error {
	if strings.TrimSpace(res.SourceURL) == "" {
		return errors.New("video resource missing source_url")
	}
	if d.fetcher == nil || d.converter == nil || d.transcriber == nil {
		return ErrVideoNotConfigured
	}

	if _, err := d.repo.DeleteContentPiecesByResource(ctx, res.ID); err != nil {
		return err
	}

	dir := filepath.Join(d.workDir, fmt.Sprintf("resource_%d", res.ID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating work dir: %w", err)
	}

	var audioPath string
	err := d.stage(ctx, logger, res, core.StageDownloading, func() error {
		var err error
		audioPath, err = d.fetcher.Fetch(ctx, res.SourceURL, dir)
		if err != nil {
			return fmt.Errorf("downloading %s: %w", res.SourceURL, err)
		}
		setMeta(res, "download_path", audioPath)
		return nil
	})
	if err != nil {
		return err
	}

	wavPath := filepath.Join(dir, "audio_mono.wav")
	err = d.stage(ctx, logger, res, core.StageAudioExtracting, func() error {
		if err := d.converter.ToMonoWAV(ctx, audioPath, wavPath, d.sampleRate); err != nil {
			return fmt.Errorf("converting audio: %w", err)
		}
		setMeta(res, "audio_path", wavPath)
		return nil
	})
	if err != nil {
		return err
	}

	var segments []TranscriptSegment
	err = d.stage(ctx, logger, res, core.StageASR, func() error {
		var err error
		segments, err = d.transcriber.Transcribe(ctx, wavPath)
		if err != nil {
			return fmt.Errorf("transcribing: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	return d.stage(ctx, logger, res, core.StageContentPieceBuild, func() error {
		pieces := TranscriptPieces(res, segments)
		if len(pieces) == 0 {
			logger.Warn("transcript is empty")
			return nil
		}
		_, err := d.repo.AddContentPieces(ctx, pieces...)
		return err
	})
}

// TranscriptPieces converts segments into content pieces of res.
// Blank segments are skipped; OrderInResource is the segment index.
func TranscriptPieces(res *core.Resource, segments []TranscriptSegment) []*core.ContentPiece {
	language := languageOf(res)
	var pieces []*core.ContentPiece
	for i, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		start, end := seg.Start, seg.End
		pieces = append(pieces, &core.ContentPiece{
			ResourceID:      res.ID,
			LectureID:       res.LectureID,
			CourseID:        res.CourseID,
			SourceType:      core.SourceTypeTranscript,
			Text:            text,
			Language:        language,
			StartTime:       &start,
			EndTime:         &end,
			OrderInResource: i,
			Meta:            map[string]any{"duration": end - start},
		})
	}
	return pieces
}
