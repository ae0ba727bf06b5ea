package types

import "time"

// Job status constants
const (
	StatusQueued     = "QUEUED"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Source type constants
const (
	SourceUpload = "upload"
	SourceLocal  = "local"
)

// Pipeline stage identifiers reported through progress events
const (
	StageExtract    = "extracting_audio"
	StageTranscribe = "transcribing"
	StageCSV        = "converting_csv"
	StageTitle      = "generating_title"
	StageMinutes    = "generating_minutes"
	StageReflection = "generating_reflection"
	StageRemap      = "remapping_speakers"
	StageStore      = "storing"
)

// Outcome is the result of one complete processing run. It is created
// once per job and never mutated after the worker finishes with it.
type Outcome struct {
	JobID         string
	Method        string
	RawText       string
	FormattedText string
	RawFile       string
	FormattedFile string
	SidecarFile   string
	Timestamp     string

	// Warning carries the non-fatal "max retries reached" notice when at
	// least one segment was accepted degenerate or exhausted its budget.
	Warning string

	CSVFile        string
	Title          string
	MinutesFile    string
	ReflectionFile string
	RemappedFile   string

	DurationSec float64
	WordCount   int
	SegmentSec  int
	Segments    int
	ProcessedAt time.Time
	GDriveURL   string
}

// SegmentResult is the accepted result of one audio segment. Immutable
// once the retry loop settles on it; serialized into the JSON sidecar.
type SegmentResult struct {
	SegmentIndex int    `json:"segment_index"`
	SourceName   string `json:"source_segment_name"`
	Text         string `json:"text"`
	AttemptCount int    `json:"attempt_count"`
}
