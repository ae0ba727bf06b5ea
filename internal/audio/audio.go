package audio

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ExtractAudio converts any supported audio/video file into a mono
// 16kHz MP3 suitable for the transcription providers. The result is
// written into tempDir and owned by the caller.
func ExtractAudio(ctx context.Context, inputPath, tempDir string) (string, error) {
	outputPath := filepath.Join(tempDir, fmt.Sprintf("normalized_%s.mp3", uuid.New().String()))

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", inputPath,
		"-vn",          // drop any video stream
		"-ar", "16000", // 16kHz sample rate
		"-ac", "1",     // mono
		"-c:a", "libmp3lame",
		"-q:a", "4",
		"-y", // overwrite output
		outputPath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffmpeg failed: %v\nOutput: %s", err, string(output))
	}
	return outputPath, nil
}

// ProbeDuration returns the duration of an audio file in seconds.
func ProbeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed for %s: %v", path, err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe returned unparseable duration %q: %v", string(output), err)
	}
	return duration, nil
}

// ValidateFormat checks if the file format is supported
func ValidateFormat(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	supportedFormats := []string{".mp3", ".wav", ".m4a", ".ogg", ".flac", ".webm", ".aac", ".wma", ".mp4", ".mov", ".avi", ".mkv"}

	for _, format := range supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}
