package minutes

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

type stubChatter struct {
	reply      string
	lastSystem string
	lastUser   string
}

func (s *stubChatter) Chat(ctx context.Context, systemPrompt, userText string) (string, error) {
	s.lastSystem = systemPrompt
	s.lastUser = userText
	return s.reply, nil
}

func TestGenerateMinutes(t *testing.T) {
	dir := t.TempDir()
	transcriptPath := filepath.Join(dir, "transcription_summary_20260827120000.txt")
	if err := os.WriteFile(transcriptPath, []byte("話者1: 予算の確認です"), 0644); err != nil {
		t.Fatal(err)
	}

	chatter := &stubChatter{reply: "# 議事録\n\n- 予算を確認した"}
	svc := NewService(chatter, dir)

	outPath, err := svc.GenerateMinutes(context.Background(), transcriptPath)
	if err != nil {
		t.Fatalf("GenerateMinutes() error: %v", err)
	}
	if want := filepath.Join(dir, "transcription_summary_20260827120000_minutes.md"); outPath != want {
		t.Errorf("output path = %q, want %q", outPath, want)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != chatter.reply {
		t.Errorf("minutes content = %q, want %q", data, chatter.reply)
	}
	if chatter.lastUser != "話者1: 予算の確認です" {
		t.Errorf("transcript not passed to the model: %q", chatter.lastUser)
	}
}

func TestGenerateReflection(t *testing.T) {
	dir := t.TempDir()
	minutesPath := filepath.Join(dir, "transcription_summary_20260827120000_minutes.md")
	if err := os.WriteFile(minutesPath, []byte("# 議事録"), 0644); err != nil {
		t.Fatal(err)
	}

	svc := NewService(&stubChatter{reply: "振り返り: 時間配分は適切でした"}, dir)
	outPath, err := svc.GenerateReflection(context.Background(), minutesPath)
	if err != nil {
		t.Fatalf("GenerateReflection() error: %v", err)
	}
	if want := filepath.Join(dir, "transcription_summary_20260827120000_minutes_reflection.md"); outPath != want {
		t.Errorf("output path = %q, want %q", outPath, want)
	}
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name, reply, want string
	}{
		{"clean json", `{"title": "四半期予算レビュー"}`, "四半期予算レビュー"},
		{"json with noise", "はい。\n{\"title\": \"採用計画会議\"} 以上です。", "採用計画会議"},
		{"plain text fallback", "週次定例ミーティング", "週次定例ミーティング"},
		{"quoted fallback", `"キックオフ"`, "キックオフ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractTitle(tt.reply); got != tt.want {
				t.Errorf("extractTitle(%q) = %q, want %q", tt.reply, got, tt.want)
			}
		})
	}
}
