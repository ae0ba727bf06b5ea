// Package csvconv flattens a conversation-JSON transcript into a
// two-column CSV for spreadsheet review. Transcripts are concatenations
// of model output and are only mostly JSON, so parsing degrades
// gracefully: strict parse, then a cleaned retry, then pairwise regex
// extraction.
package csvconv

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Row is one utterance in the flattened transcript.
type Row struct {
	Speaker   string `json:"speaker"`
	Utterance string `json:"utterance"`
}

var pairRe = regexp.MustCompile(`"speaker"\s*:\s*"([^"]+)"\s*,\s*"utterance"\s*:\s*"([^"]+)"`)

// ConvertFile converts the transcript at transcriptPath and writes
// <stem>.csv into outputDir. Returns the CSV path.
func ConvertFile(transcriptPath, outputDir string) (string, error) {
	data, err := os.ReadFile(transcriptPath)
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}

	rows := ExtractRows(string(data))
	if len(rows) == 0 {
		return "", fmt.Errorf("no conversation entries found in %s", filepath.Base(transcriptPath))
	}

	base := filepath.Base(transcriptPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	outPath := filepath.Join(outputDir, stem+".csv")

	f, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Speaker", "Utterance"}); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write([]string{row.Speaker, row.Utterance}); err != nil {
			return "", fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}

	log.Printf("CSV saved to %s (%d rows)", outPath, len(rows))
	return outPath, nil
}

// ExtractRows pulls speaker/utterance pairs out of transcript text.
// Entries with an empty speaker and utterance are dropped.
func ExtractRows(text string) []Row {
	rows := parseRows(text)
	if rows == nil {
		rows = regexRows(text)
	}

	kept := rows[:0]
	for _, row := range rows {
		if row.Speaker == "" && row.Utterance == "" {
			continue
		}
		kept = append(kept, row)
	}
	return kept
}

// parseRows attempts a strict JSON parse of the list between the first
// '[' and the last ']', then once more after stripping newlines and a
// trailing dangling comma. Returns nil when neither attempt parses.
func parseRows(text string) []Row {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil
	}
	candidate := text[start : end+1]

	var rows []Row
	if err := json.Unmarshal([]byte(candidate), &rows); err == nil {
		return rows
	}

	cleaned := strings.NewReplacer("\n", "", "\r", "", "\t", "").Replace(candidate)
	cleaned = strings.TrimRight(cleaned, ", ]")
	cleaned += "]"
	if err := json.Unmarshal([]byte(cleaned), &rows); err == nil {
		return rows
	}
	return nil
}

// regexRows is the last resort for transcripts that are several JSON
// documents glued together: it scans for adjacent speaker/utterance
// pairs regardless of the surrounding structure.
func regexRows(text string) []Row {
	matches := pairRe.FindAllStringSubmatch(text, -1)
	rows := make([]Row, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, Row{Speaker: m[1], Utterance: m[2]})
	}
	return rows
}
