package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/meetscribe/meetscribe/internal/types"
)

func TestSaveOutcome(t *testing.T) {
	dir := t.TempDir()
	ls := NewLocalStorage(dir)

	outcome := &types.Outcome{
		JobID:         "job-123",
		Method:        "gemini",
		FormattedText: "話者1_seg1: 会議を始めます",
		Title:         "定例会議",
		CSVFile:       "/tmp/x.csv",
		Warning:       "",
		Segments:      3,
		ProcessedAt:   time.Now(),
	}

	txtPath, err := ls.SaveOutcome("weekly sync.mp4", outcome)
	if err != nil {
		t.Fatalf("SaveOutcome() error: %v", err)
	}

	now := time.Now()
	wantDir := filepath.Join(dir,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		fmt.Sprintf("%02d", now.Day()))
	if filepath.Dir(txtPath) != wantDir {
		t.Errorf("transcript dir = %q, want dated tree %q", filepath.Dir(txtPath), wantDir)
	}

	data, err := os.ReadFile(txtPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != outcome.FormattedText {
		t.Errorf("transcript content = %q", data)
	}

	metaPath := strings.TrimSuffix(txtPath, ".txt") + "_meta.json"
	metaData, err := os.ReadFile(metaPath)
	if err != nil {
		t.Fatalf("metadata sidecar missing: %v", err)
	}
	var meta map[string]any
	if err := json.Unmarshal(metaData, &meta); err != nil {
		t.Fatalf("metadata is not valid JSON: %v", err)
	}
	if meta["job_id"] != "job-123" {
		t.Errorf("metadata job_id = %v", meta["job_id"])
	}
	if meta["title"] != "定例会議" {
		t.Errorf("metadata title = %v", meta["title"])
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"meeting.mp3", "meeting.mp3"},
		{"weekly sync.mp4", "weekly_sync.mp4"},
		{"a/b\\c:d", "b_c_d"},
		{"", "recording"},
		{strings.Repeat("x", 200), strings.Repeat("x", 100)},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
