package extract

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/poiesic/syllabus/ingestion"
)

// FFmpegConverter converts media files to mono WAV with ffmpeg.
type FFmpegConverter struct {
	// Binary is the ffmpeg executable. Default is "ffmpeg" on PATH.
	Binary string
	// Timeout bounds one conversion. Default is 30 minutes.
	Timeout time.Duration
}

var _ ingestion.AudioConverter = FFmpegConverter{}

// ToMonoWAV writes the audio track of in to out as single-channel WAV.
func (c FFmpegConverter) ToMonoWAV(ctx context.Context, in, out string, sampleRate int) error {
	if sampleRate <= 0 {
		sampleRate = ingestion.DefaultSampleRate
	}
	bin := c.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{"-y", "-i", in, "-vn", "-ac", "1", "-ar", strconv.Itoa(sampleRate), "-f", "wav", out}
	output, err := exec.CommandContext(ctx, bin, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio failed: %w; out=%s", err, string(output))
	}
	if _, err := os.Stat(out); err != nil {
		return fmt.Errorf("audio output missing at %s", out)
	}
	return nil
}
