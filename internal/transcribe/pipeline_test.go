package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/meetscribe/meetscribe/internal/types"
)

type fakeProvider struct {
	method Method
	calls  map[string]int
	reply  func(name string, attempt int) (string, error)
}

func (f *fakeProvider) Transcribe(ctx context.Context, path string) (string, error) {
	name := filepath.Base(path)
	f.calls[name]++
	return f.reply(name, f.calls[name])
}

func (f *fakeProvider) Method() Method { return f.method }

func newFakeProvider(reply func(name string, attempt int) (string, error)) *fakeProvider {
	return &fakeProvider{
		method: MethodSingleCallAlternate,
		calls:  make(map[string]int),
		reply:  reply,
	}
}

func newTestPipeline(t *testing.T, provider Provider, segments int) *Pipeline {
	t.Helper()
	return &Pipeline{
		provider:   provider,
		segmentSec: 450,
		maxRetries: 2,
		tempDir:    t.TempDir(),
		outputDir:  t.TempDir(),
		split: func(ctx context.Context, inputPath, outputDir string, segmentSec int) ([]string, error) {
			paths := make([]string, segments)
			for i := range paths {
				paths[i] = filepath.Join(outputDir, fmt.Sprintf("segment_%d.mp3", i+1))
			}
			return paths, nil
		},
	}
}

func readSidecar(t *testing.T, path string) []types.SegmentResult {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sidecar: %v", err)
	}
	var results []types.SegmentResult
	if err := json.Unmarshal(data, &results); err != nil {
		t.Fatalf("decode sidecar: %v", err)
	}
	return results
}

func TestPipelineRetrySucceedsWithinBudget(t *testing.T) {
	// Segment 2 fails twice and succeeds on the third attempt. The
	// budget was never exhausted, so no warning is raised.
	provider := newFakeProvider(func(name string, attempt int) (string, error) {
		if name == "segment_2.mp3" && attempt < 3 {
			return "", errors.New("upstream timeout")
		}
		return "話者1: 順調です", nil
	})
	p := newTestPipeline(t, provider, 3)

	outcome, err := p.Process(context.Background(), "meeting.mp3")
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if outcome.Warning != "" {
		t.Errorf("warning should be empty after in-budget recovery, got %q", outcome.Warning)
	}
	if provider.calls["segment_2.mp3"] != 3 {
		t.Errorf("segment 2 called %d times, want 3", provider.calls["segment_2.mp3"])
	}

	results := readSidecar(t, outcome.SidecarFile)
	if len(results) != 3 {
		t.Fatalf("sidecar has %d entries, want 3", len(results))
	}
	if results[1].AttemptCount != 3 {
		t.Errorf("segment 2 attempt count = %d, want 3", results[1].AttemptCount)
	}
	if results[0].AttemptCount != 1 || results[2].AttemptCount != 1 {
		t.Errorf("segments 1/3 attempt counts = %d/%d, want 1/1", results[0].AttemptCount, results[2].AttemptCount)
	}
}

func TestPipelineExhaustedSegmentIsSkipped(t *testing.T) {
	failing := errors.New("model unavailable")
	provider := newFakeProvider(func(name string, attempt int) (string, error) {
		if name == "segment_2.mp3" {
			return "", failing
		}
		return fmt.Sprintf("話者1: %sの内容", name), nil
	})
	p := newTestPipeline(t, provider, 3)

	outcome, err := p.Process(context.Background(), "meeting.mp3")
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if outcome.Warning == "" {
		t.Error("exhausted segment must raise the run warning")
	}
	if provider.calls["segment_2.mp3"] != 3 {
		t.Errorf("segment 2 called %d times, want maxRetries+1 = 3", provider.calls["segment_2.mp3"])
	}
	if strings.Contains(outcome.FormattedText, "segment_2") {
		t.Errorf("skipped segment leaked into output: %q", outcome.FormattedText)
	}
	if !strings.Contains(outcome.FormattedText, "segment_1.mp3") || !strings.Contains(outcome.FormattedText, "segment_3.mp3") {
		t.Errorf("surviving segments missing from output: %q", outcome.FormattedText)
	}

	results := readSidecar(t, outcome.SidecarFile)
	if results[1].Text != "" {
		t.Errorf("exhausted segment text = %q, want empty", results[1].Text)
	}
}

func TestPipelineDegenerateOutputAcceptedAtBudget(t *testing.T) {
	// Every attempt on segment 1 leaks the prompt instruction. After the
	// final attempt the text is accepted anyway with a warning.
	provider := newFakeProvider(func(name string, attempt int) (string, error) {
		if name == "segment_1.mp3" {
			return "話者1: " + leakedInstruction, nil
		}
		return "話者1: 以上です", nil
	})
	p := newTestPipeline(t, provider, 2)

	outcome, err := p.Process(context.Background(), "meeting.mp3")
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if outcome.Warning != WarningMaxRetries {
		t.Errorf("warning = %q, want %q", outcome.Warning, WarningMaxRetries)
	}
	if provider.calls["segment_1.mp3"] != 3 {
		t.Errorf("segment 1 called %d times, want 3", provider.calls["segment_1.mp3"])
	}
	if !strings.Contains(outcome.FormattedText, leakedInstruction) {
		t.Error("last-resort text should survive into the combined transcript")
	}
}

func TestPipelineConcatenationOrder(t *testing.T) {
	texts := map[string]string{
		"segment_1.mp3": "A",
		"segment_2.mp3": "B",
		"segment_3.mp3": "C",
	}
	provider := newFakeProvider(func(name string, attempt int) (string, error) {
		return texts[name], nil
	})
	p := newTestPipeline(t, provider, 3)

	outcome, err := p.Process(context.Background(), "meeting.mp3")
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if outcome.FormattedText != "ABC" {
		t.Errorf("combined transcript = %q, want %q", outcome.FormattedText, "ABC")
	}

	data, err := os.ReadFile(outcome.FormattedFile)
	if err != nil {
		t.Fatalf("read transcript file: %v", err)
	}
	if string(data) != outcome.FormattedText {
		t.Errorf("file content %q differs from outcome text %q", data, outcome.FormattedText)
	}
}

func TestPipelineSpeakerLabelsDisambiguated(t *testing.T) {
	provider := newFakeProvider(func(name string, attempt int) (string, error) {
		return "話者1: はい、そうです。", nil
	})
	p := newTestPipeline(t, provider, 2)

	outcome, err := p.Process(context.Background(), "meeting.mp3")
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	for _, want := range []string{"話者1_seg1:", "話者1_seg2:"} {
		if !strings.Contains(outcome.FormattedText, want) {
			t.Errorf("output missing %q: %q", want, outcome.FormattedText)
		}
	}
	if strings.Contains(outcome.FormattedText, "話者1: ") {
		t.Errorf("undecorated label survived: %q", outcome.FormattedText)
	}
}

func TestPipelineAllSegmentsEmptyIsFatal(t *testing.T) {
	provider := newFakeProvider(func(name string, attempt int) (string, error) {
		return "", errors.New("model unavailable")
	})
	p := newTestPipeline(t, provider, 2)

	_, err := p.Process(context.Background(), "meeting.mp3")
	if !errors.Is(err, ErrEmptyTranscript) {
		t.Errorf("err = %v, want ErrEmptyTranscript", err)
	}
}

type fakeWholeProvider struct {
	raw, formatted string
	err            error
}

func (f *fakeWholeProvider) Transcribe(ctx context.Context, path string) (string, error) {
	return "", errors.New("not used for whole-file providers")
}

func (f *fakeWholeProvider) Method() Method { return MethodTwoStage }

func (f *fakeWholeProvider) TranscribeWhole(ctx context.Context, path string) (string, string, error) {
	return f.raw, f.formatted, f.err
}

func TestPipelineWholeFileMethod(t *testing.T) {
	provider := &fakeWholeProvider{
		raw:       "おはようございます 本日の議題です",
		formatted: `{"conversations": [{"speaker": "話者1", "utterance": "おはようございます"}]}`,
	}
	p := newTestPipeline(t, provider, 0)

	outcome, err := p.Process(context.Background(), "meeting.mp3")
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if outcome.RawText != provider.raw {
		t.Errorf("raw text = %q, want %q", outcome.RawText, provider.raw)
	}
	if outcome.FormattedText != provider.formatted {
		t.Errorf("formatted text = %q, want %q", outcome.FormattedText, provider.formatted)
	}
	if outcome.SidecarFile != "" {
		t.Errorf("whole-file runs write no sidecar, got %q", outcome.SidecarFile)
	}
	if outcome.Warning != "" {
		t.Errorf("clean formatted output should carry no warning, got %q", outcome.Warning)
	}
	if !strings.HasSuffix(filepath.Base(outcome.RawFile), ".txt") || !strings.HasPrefix(filepath.Base(outcome.RawFile), "transcription_") {
		t.Errorf("unexpected raw file name %q", outcome.RawFile)
	}
	if !strings.HasPrefix(filepath.Base(outcome.FormattedFile), "transcription_summary_") {
		t.Errorf("unexpected formatted file name %q", outcome.FormattedFile)
	}
	for _, path := range []string{outcome.RawFile, outcome.FormattedFile} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected artifact on disk: %v", err)
		}
	}
}

func TestPipelineWholeFileProviderError(t *testing.T) {
	provider := &fakeWholeProvider{err: errors.New("speech-to-text stage: boom")}
	p := newTestPipeline(t, provider, 0)

	if _, err := p.Process(context.Background(), "meeting.mp3"); err == nil {
		t.Fatal("provider error must be fatal for the whole-file method")
	}
}
