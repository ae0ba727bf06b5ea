package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/meetscribe/meetscribe/internal/types"
)

// LocalStorage archives finished runs on the local filesystem under a
// dated tree: outputs/2026/08/27/. The pipeline stages write their
// working files elsewhere; this is the durable copy plus a metadata
// JSON pointing at every artifact of the run.
type LocalStorage struct {
	outputDir string
}

func NewLocalStorage(outputDir string) *LocalStorage {
	return &LocalStorage{outputDir: outputDir}
}

// SaveOutcome writes the final transcript and a metadata JSON into the
// dated tree and returns the transcript path.
func (ls *LocalStorage) SaveOutcome(requestName string, outcome *types.Outcome) (string, error) {
	now := time.Now()
	dateDir := filepath.Join(ls.outputDir,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		fmt.Sprintf("%02d", now.Day()))

	if err := os.MkdirAll(dateDir, 0755); err != nil {
		return "", fmt.Errorf("create date directory: %w", err)
	}

	timestamp := now.Format("20060102_150405")
	baseFilename := fmt.Sprintf("%s_%s", timestamp, SanitizeFilename(requestName))

	txtPath := filepath.Join(dateDir, baseFilename+".txt")
	if err := os.WriteFile(txtPath, []byte(outcome.FormattedText), 0644); err != nil {
		return "", fmt.Errorf("save transcript: %w", err)
	}

	metaPath := filepath.Join(dateDir, baseFilename+"_meta.json")
	metaJSON, err := json.MarshalIndent(outcomeMetadata(requestName, txtPath, outcome), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(metaPath, metaJSON, 0644); err != nil {
		return "", fmt.Errorf("save metadata: %w", err)
	}

	return txtPath, nil
}

func outcomeMetadata(requestName, localPath string, outcome *types.Outcome) map[string]any {
	return map[string]any{
		"job_id":           outcome.JobID,
		"request_name":     requestName,
		"method":           outcome.Method,
		"title":            outcome.Title,
		"duration_seconds": outcome.DurationSec,
		"word_count":       outcome.WordCount,
		"segments":         outcome.Segments,
		"warning":          outcome.Warning,
		"created_at":       outcome.ProcessedAt,
		"local_path":       localPath,
		"csv_path":         outcome.CSVFile,
		"minutes_path":     outcome.MinutesFile,
		"reflection_path":  outcome.ReflectionFile,
		"remapped_path":    outcome.RemappedFile,
		"gdrive_url":       outcome.GDriveURL,
	}
}

// SanitizeFilename makes a request name safe to embed in a filename.
func SanitizeFilename(name string) string {
	name = filepath.Base(name)
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
		"\"", "_", "<", "_", ">", "_", "|", "_", " ", "_",
	)
	name = replacer.Replace(name)
	if len(name) > 100 {
		name = name[:100]
	}
	if name == "" || name == "." {
		name = "recording"
	}
	return name
}
