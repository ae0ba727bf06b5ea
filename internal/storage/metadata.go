package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/meetscribe/meetscribe/internal/types"
)

// Record is one row of transcript metadata as stored in SQLite.
type Record struct {
	JobID          string    `json:"job_id"`
	RequestName    string    `json:"request_name"`
	Method         string    `json:"method"`
	Title          string    `json:"title"`
	LocalPath      string    `json:"local_path"`
	CSVPath        string    `json:"csv_path"`
	MinutesPath    string    `json:"minutes_path"`
	ReflectionPath string    `json:"reflection_path"`
	RemappedPath   string    `json:"remapped_path"`
	GDriveURL      string    `json:"gdrive_url"`
	Warning        string    `json:"warning"`
	DurationSec    float64   `json:"duration_seconds"`
	WordCount      int       `json:"word_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// MetadataDB indexes finished runs in SQLite so the HTTP surface can
// list and fetch transcripts without walking the dated tree.
type MetadataDB struct {
	db *sql.DB
}

func NewMetadataDB(dbPath string) (*MetadataDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS transcripts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL UNIQUE,
		request_name TEXT NOT NULL,
		method TEXT NOT NULL,
		title TEXT,
		local_path TEXT NOT NULL,
		csv_path TEXT,
		minutes_path TEXT,
		reflection_path TEXT,
		remapped_path TEXT,
		gdrive_url TEXT,
		warning TEXT,
		duration REAL,
		word_count INTEGER,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_created_at ON transcripts(created_at);
	CREATE INDEX IF NOT EXISTS idx_request_name ON transcripts(request_name);
	`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &MetadataDB{db: db}, nil
}

// SaveOutcome inserts the metadata row for a finished run.
func (mdb *MetadataDB) SaveOutcome(requestName, localPath string, outcome *types.Outcome) error {
	query := `
	INSERT INTO transcripts (job_id, request_name, method, title, local_path, csv_path,
		minutes_path, reflection_path, remapped_path, gdrive_url, warning,
		duration, word_count, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := mdb.db.Exec(query,
		outcome.JobID, requestName, outcome.Method, outcome.Title, localPath,
		outcome.CSVFile, outcome.MinutesFile, outcome.ReflectionFile,
		outcome.RemappedFile, outcome.GDriveURL, outcome.Warning,
		outcome.DurationSec, outcome.WordCount, time.Now())
	if err != nil {
		return fmt.Errorf("save transcript metadata: %w", err)
	}
	return nil
}

const recordColumns = `job_id, request_name, method, title, local_path, csv_path,
	minutes_path, reflection_path, remapped_path, gdrive_url, warning,
	duration, word_count, created_at`

// GetTranscript retrieves one record by job ID.
func (mdb *MetadataDB) GetTranscript(jobID string) (*Record, error) {
	row := mdb.db.QueryRow(
		`SELECT `+recordColumns+` FROM transcripts WHERE job_id = ?`, jobID)

	rec, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("get transcript: %w", err)
	}
	return rec, nil
}

// ListTranscripts returns the newest records, most recent first.
func (mdb *MetadataDB) ListTranscripts(limit int) ([]*Record, error) {
	rows, err := mdb.db.Query(
		`SELECT `+recordColumns+` FROM transcripts ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.JobID, &rec.RequestName, &rec.Method, &rec.Title,
		&rec.LocalPath, &rec.CSVPath, &rec.MinutesPath, &rec.ReflectionPath,
		&rec.RemappedPath, &rec.GDriveURL, &rec.Warning,
		&rec.DurationSec, &rec.WordCount, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (mdb *MetadataDB) Close() error {
	return mdb.db.Close()
}
