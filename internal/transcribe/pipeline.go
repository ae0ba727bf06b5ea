package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meetscribe/meetscribe/internal/audio"
	"github.com/meetscribe/meetscribe/internal/config"
	"github.com/meetscribe/meetscribe/internal/types"
)

// ErrEmptyTranscript is returned when every segment resolved to empty
// text and there is nothing for the downstream stages to work with.
var ErrEmptyTranscript = errors.New("transcription produced no text")

// WarningMaxRetries is attached to an otherwise successful outcome when
// at least one segment exhausted its retry budget or was accepted with
// degenerate text.
const WarningMaxRetries = "max retries reached for at least one segment; parts of the transcript may be low quality"

// Pipeline drives segmentation, per-segment transcription with retry,
// speaker-label disambiguation and concatenation into one ordered
// transcript. One Pipeline serves many calls; each Process call owns
// its own run directory and shares nothing with other runs.
type Pipeline struct {
	provider   Provider
	segmentSec int
	maxRetries int
	tempDir    string
	outputDir  string

	// split is audio.SplitAudio, injectable for tests.
	split func(ctx context.Context, inputPath, outputDir string, segmentSec int) ([]string, error)
}

// NewPipeline wires a pipeline from the configuration and a provider
// built by NewProvider.
func NewPipeline(cfg *config.Config, provider Provider) *Pipeline {
	return &Pipeline{
		provider:   provider,
		segmentSec: cfg.Transcription.SegmentLengthSeconds,
		maxRetries: cfg.Transcription.MaxRetries,
		tempDir:    cfg.Storage.TempDir,
		outputDir:  filepath.Join(cfg.Storage.OutputDir, "transcriptions"),
		split:      audio.SplitAudio,
	}
}

// Process turns one audio file into a transcription outcome. The
// returned outcome always has FormattedText and FormattedFile
// populated; RawText/RawFile only for the two-stage method, the
// segment sidecar only for the segmented methods.
func (p *Pipeline) Process(ctx context.Context, audioPath string) (*types.Outcome, error) {
	timestamp := time.Now().Format("20060102150405")
	log.Printf("Starting transcription of %s (method=%s, timestamp=%s)", filepath.Base(audioPath), p.provider.Method(), timestamp)

	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("persistence: create output directory: %w", err)
	}

	if whole, ok := p.provider.(wholeFileTranscriber); ok {
		return p.processWholeFile(ctx, whole, audioPath, timestamp)
	}
	return p.processSegmented(ctx, audioPath, timestamp)
}

// processWholeFile handles the two-stage method: no segmentation, no
// per-segment retry; the formatting output is still gated once by the
// quality filter.
func (p *Pipeline) processWholeFile(ctx context.Context, provider wholeFileTranscriber, audioPath, timestamp string) (*types.Outcome, error) {
	raw, formatted, err := provider.TranscribeWhole(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("provider call: %w", err)
	}

	var warning string
	if IsProblematic(formatted) {
		log.Printf("WARNING: formatted transcript flagged as degenerate, keeping it anyway")
		warning = WarningMaxRetries
	}

	rawPath := filepath.Join(p.outputDir, fmt.Sprintf("transcription_%s.txt", timestamp))
	if err := os.WriteFile(rawPath, []byte(raw), 0644); err != nil {
		return nil, fmt.Errorf("persistence: save raw transcript: %w", err)
	}

	formattedPath := filepath.Join(p.outputDir, fmt.Sprintf("transcription_summary_%s.txt", timestamp))
	if err := os.WriteFile(formattedPath, []byte(formatted), 0644); err != nil {
		return nil, fmt.Errorf("persistence: save formatted transcript: %w", err)
	}

	log.Printf("Transcription complete: raw=%d chars formatted=%d chars", len(raw), len(formatted))
	return &types.Outcome{
		Method:        p.provider.Method().String(),
		RawText:       raw,
		FormattedText: formatted,
		RawFile:       rawPath,
		FormattedFile: formattedPath,
		Timestamp:     timestamp,
		Warning:       warning,
		Segments:      1,
		ProcessedAt:   time.Now(),
	}, nil
}

// processSegmented handles the single-call methods: split, transcribe
// each segment inside the retry loop, disambiguate speaker labels,
// concatenate in segment order.
func (p *Pipeline) processSegmented(ctx context.Context, audioPath, timestamp string) (*types.Outcome, error) {
	runDir := filepath.Join(p.tempDir, fmt.Sprintf("segments_%s_%s", timestamp, uuid.New().String()[:8]))
	segPaths, err := p.split(ctx, audioPath, runDir, p.segmentSec)
	if err != nil {
		return nil, fmt.Errorf("segmentation: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(runDir); err != nil {
			log.Printf("Failed to clean up segment directory %s: %v", runDir, err)
		}
	}()

	warned := false
	results := make([]types.SegmentResult, 0, len(segPaths))
	for i, segPath := range segPaths {
		result, segWarned := p.transcribeSegment(ctx, segPath, i+1)
		results = append(results, result)
		warned = warned || segWarned
	}

	// Per-segment breakdown goes to a JSON sidecar before concatenation
	// so a bad run can be audited segment by segment.
	sidecarPath := filepath.Join(p.outputDir, fmt.Sprintf("segments_%s.json", timestamp))
	sidecar, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("persistence: encode segment sidecar: %w", err)
	}
	if err := os.WriteFile(sidecarPath, sidecar, 0644); err != nil {
		return nil, fmt.Errorf("persistence: save segment sidecar: %w", err)
	}

	var sb strings.Builder
	for _, result := range results {
		if result.Text == "" {
			continue
		}
		sb.WriteString(AddSpeakerIdentifier(result.Text, fmt.Sprintf("seg%d", result.SegmentIndex)))
	}
	combined := NormalizeTranscript(sb.String())
	if combined == "" {
		return nil, ErrEmptyTranscript
	}

	formattedPath := filepath.Join(p.outputDir, fmt.Sprintf("transcription_summary_%s.txt", timestamp))
	if err := os.WriteFile(formattedPath, []byte(combined), 0644); err != nil {
		return nil, fmt.Errorf("persistence: save formatted transcript: %w", err)
	}

	var warning string
	if warned {
		warning = WarningMaxRetries
	}

	log.Printf("Transcription complete: %d segments, %d chars, warning=%v", len(segPaths), len(combined), warned)
	return &types.Outcome{
		Method:        p.provider.Method().String(),
		FormattedText: combined,
		FormattedFile: formattedPath,
		SidecarFile:   sidecarPath,
		Timestamp:     timestamp,
		Warning:       warning,
		SegmentSec:    p.segmentSec,
		Segments:      len(segPaths),
		ProcessedAt:   time.Now(),
	}, nil
}

// transcribeSegment runs the per-segment retry state machine. It
// returns the accepted result plus whether the run-level warning flag
// must be raised. Provider errors and degenerate output consume the
// same attempt budget; a provider error on the final attempt resolves
// to empty text (the segment is skipped later), degenerate output on
// the final attempt is accepted as-is.
func (p *Pipeline) transcribeSegment(ctx context.Context, segPath string, index int) (types.SegmentResult, bool) {
	name := filepath.Base(segPath)
	maxAttempts := p.maxRetries + 1

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		text, err := p.provider.Transcribe(ctx, segPath)
		if err != nil {
			log.Printf("Segment %d attempt %d/%d failed: %v", index, attempt, maxAttempts, err)
			if attempt == maxAttempts {
				log.Printf("Segment %d exhausted its retry budget, continuing with empty text", index)
				return types.SegmentResult{SegmentIndex: index, SourceName: name, AttemptCount: attempt}, true
			}
			continue
		}

		text = CollapseWhitespace(text)
		if !IsProblematic(text) {
			return types.SegmentResult{SegmentIndex: index, SourceName: name, Text: text, AttemptCount: attempt}, false
		}

		log.Printf("Segment %d attempt %d/%d produced degenerate output", index, attempt, maxAttempts)
		if attempt == maxAttempts {
			log.Printf("Segment %d still degenerate after %d attempts, accepting the last result", index, maxAttempts)
			return types.SegmentResult{SegmentIndex: index, SourceName: name, Text: text, AttemptCount: attempt}, true
		}
	}

	// Unreachable: the loop always returns on the final attempt.
	return types.SegmentResult{SegmentIndex: index, SourceName: name, AttemptCount: maxAttempts}, true
}
