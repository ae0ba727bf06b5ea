package remap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type stubChatter struct {
	reply string
	err   error
}

func (s *stubChatter) Chat(ctx context.Context, systemPrompt, userText string) (string, error) {
	return s.reply, s.err
}

func writeTranscript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transcription_summary_20260827120000.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

const transcript = `{"conversations": [
  {"speaker": "話者1_seg1", "utterance": "おはようございます"},
  {"speaker": "話者1_seg2", "utterance": "続けます"},
  {"speaker": "話者2_seg1", "utterance": "了解です"}
]}`

func TestRemapRewritesSpeakers(t *testing.T) {
	chatter := &stubChatter{reply: "```json\n{\"話者1_seg1\": \"田中\", \"話者1_seg2\": \"田中\"}\n```"}
	path := writeTranscript(t, transcript)

	outPath, err := NewRemapper(chatter).Remap(context.Background(), path)
	if err != nil {
		t.Fatalf("Remap() error: %v", err)
	}
	if want := strings.TrimSuffix(path, ".txt") + "_remapped.txt"; outPath != want {
		t.Errorf("output path = %q, want %q", outPath, want)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if strings.Count(out, `"speaker": "田中"`) != 2 {
		t.Errorf("expected both 話者1 labels renamed to 田中:\n%s", out)
	}
	if !strings.Contains(out, "話者2_seg1") {
		t.Errorf("unmapped label must survive unchanged:\n%s", out)
	}
	if !strings.Contains(out, "おはようございます") {
		t.Errorf("utterances must be untouched:\n%s", out)
	}
}

func TestParseMappingExtractionOrder(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  map[string]string
	}{
		{
			name:  "fenced json block",
			reply: "わかりました。\n```json\n{\"話者1_seg1\": \"佐藤\"}\n```\n以上です。",
			want:  map[string]string{"話者1_seg1": "佐藤"},
		},
		{
			name:  "bare object in prose",
			reply: "マッピングは {\"話者1_seg1\": \"佐藤\"} です。",
			want:  map[string]string{"話者1_seg1": "佐藤"},
		},
		{
			name:  "whole reply is the object",
			reply: `{"話者1_seg1": "佐藤"}`,
			want:  map[string]string{"話者1_seg1": "佐藤"},
		},
		{
			name:  "no json at all",
			reply: "すみません、マッピングを作れませんでした。",
			want:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseMapping(tt.reply)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("mapping[%q] = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestRemapChatFailureIsNonFatal(t *testing.T) {
	chatter := &stubChatter{err: errors.New("quota exceeded")}
	path := writeTranscript(t, transcript)

	outPath, err := NewRemapper(chatter).Remap(context.Background(), path)
	if err != nil {
		t.Fatalf("chat failure must not fail the remap pass: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != transcript {
		t.Errorf("fallback output must equal the input transcript")
	}
}

func TestApplySpeakerMappingSkipsDegenerateEntries(t *testing.T) {
	out := applySpeakerMapping(transcript, map[string]string{
		"話者1_seg1": "話者1_seg1", // identity
		"":          "名無し",      // empty key
		"話者2_seg1": "",          // empty value
	})
	if out != transcript {
		t.Errorf("degenerate mapping entries must be no-ops")
	}
}
