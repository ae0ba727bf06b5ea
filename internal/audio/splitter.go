package audio

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
)

// window is one fixed-duration slice of the source timeline.
type window struct {
	start  float64
	length float64
}

// splitWindows walks the timeline in fixed non-overlapping windows of
// segmentSec; the final window may be shorter. Segment count is
// ceil(total/segmentSec).
func splitWindows(totalSec, segmentSec float64) []window {
	if totalSec <= 0 || segmentSec <= 0 {
		return nil
	}
	var windows []window
	for start := 0.0; start < totalSec; start += segmentSec {
		length := segmentSec
		if start+length > totalSec {
			length = totalSec - start
		}
		windows = append(windows, window{start: start, length: length})
	}
	return windows
}

// SplitAudio splits an audio file into fixed-duration segments of
// segmentSec seconds, writing segment_1.mp3, segment_2.mp3, ... into
// outputDir. The returned paths are in timeline order; read back in
// that order they reconstruct the original audio. The caller owns
// cleanup of outputDir.
func SplitAudio(ctx context.Context, inputPath, outputDir string, segmentSec int) ([]string, error) {
	if segmentSec <= 0 {
		return nil, fmt.Errorf("segment length must be positive, got %d", segmentSec)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create segment directory: %v", err)
	}

	total, err := ProbeDuration(ctx, inputPath)
	if err != nil {
		return nil, err
	}

	windows := splitWindows(total, float64(segmentSec))
	log.Printf("Splitting %s (%.2fs) into %d segments of up to %ds", filepath.Base(inputPath), total, len(windows), segmentSec)

	paths := make([]string, 0, len(windows))
	for i, w := range windows {
		outputPath := filepath.Join(outputDir, fmt.Sprintf("segment_%d.mp3", i+1))

		cmd := exec.CommandContext(ctx, "ffmpeg",
			"-i", inputPath,
			"-ss", fmt.Sprintf("%.3f", w.start),
			"-t", fmt.Sprintf("%.3f", w.length),
			"-c:a", "libmp3lame",
			"-q:a", "4",
			"-y",
			outputPath,
		)
		output, err := cmd.CombinedOutput()
		if err != nil {
			return nil, fmt.Errorf("ffmpeg failed on segment %d/%d: %v\nOutput: %s", i+1, len(windows), err, string(output))
		}

		paths = append(paths, outputPath)
		log.Printf("Segment %d/%d written: %s", i+1, len(windows), outputPath)
	}
	return paths, nil
}
