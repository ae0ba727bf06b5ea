package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/meetscribe/meetscribe/internal/types"
)

func newTestDB(t *testing.T) *MetadataDB {
	t.Helper()
	db, err := NewMetadataDB(filepath.Join(t.TempDir(), "transcripts.db"))
	if err != nil {
		t.Fatalf("NewMetadataDB() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMetadataDBSaveAndGet(t *testing.T) {
	db := newTestDB(t)

	outcome := &types.Outcome{
		JobID:       "job-abc",
		Method:      "openai_audio",
		Title:       "採用計画",
		CSVFile:     "/out/t.csv",
		MinutesFile: "/out/t_minutes.md",
		Warning:     "max retries reached for at least one segment; parts of the transcript may be low quality",
		DurationSec: 1820.5,
		WordCount:   4200,
		ProcessedAt: time.Now(),
	}
	if err := db.SaveOutcome("standup.mp3", "/out/2026/08/27/t.txt", outcome); err != nil {
		t.Fatalf("SaveOutcome() error: %v", err)
	}

	rec, err := db.GetTranscript("job-abc")
	if err != nil {
		t.Fatalf("GetTranscript() error: %v", err)
	}
	if rec.RequestName != "standup.mp3" {
		t.Errorf("request name = %q", rec.RequestName)
	}
	if rec.Method != "openai_audio" || rec.Title != "採用計画" {
		t.Errorf("method/title = %q/%q", rec.Method, rec.Title)
	}
	if rec.Warning == "" {
		t.Error("warning column not persisted")
	}
	if rec.MinutesPath != "/out/t_minutes.md" {
		t.Errorf("minutes path = %q", rec.MinutesPath)
	}
}

func TestMetadataDBGetMissing(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.GetTranscript("nope"); err == nil {
		t.Error("expected an error for an unknown job id")
	}
}

func TestMetadataDBListNewestFirst(t *testing.T) {
	db := newTestDB(t)

	for i, id := range []string{"job-1", "job-2", "job-3"} {
		outcome := &types.Outcome{JobID: id, Method: "gemini", ProcessedAt: time.Now()}
		if err := db.SaveOutcome("rec.mp3", "/out/t.txt", outcome); err != nil {
			t.Fatal(err)
		}
		// Distinct created_at values so the ordering is deterministic.
		if i < 2 {
			time.Sleep(5 * time.Millisecond)
		}
	}

	records, err := db.ListTranscripts(2)
	if err != nil {
		t.Fatalf("ListTranscripts() error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].JobID != "job-3" || records[1].JobID != "job-2" {
		t.Errorf("order = %s, %s; want job-3, job-2", records[0].JobID, records[1].JobID)
	}
}
