// Package cleanup removes stale temp files left behind by crashed or
// interrupted runs: uploaded originals, extracted audio and per-run
// segment directories.
package cleanup

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Scheduler periodically sweeps the temp directory.
type Scheduler struct {
	tempDir         string
	intervalMinutes int
	maxAgeHours     int
	stopChan        chan struct{}
}

func NewScheduler(tempDir string, intervalMinutes, maxAgeHours int) *Scheduler {
	return &Scheduler{
		tempDir:         tempDir,
		intervalMinutes: intervalMinutes,
		maxAgeHours:     maxAgeHours,
		stopChan:        make(chan struct{}),
	}
}

// Start runs an initial sweep, then sweeps on the configured interval
// until Stop is called.
func (s *Scheduler) Start() {
	log.Println("Running initial temp file cleanup...")
	s.cleanOldFiles()

	ticker := time.NewTicker(time.Duration(s.intervalMinutes) * time.Minute)
	go func() {
		for {
			select {
			case <-ticker.C:
				s.cleanOldFiles()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	log.Printf("Cleanup scheduler started (interval: %dm, max age: %dh)",
		s.intervalMinutes, s.maxAgeHours)
}

func (s *Scheduler) Stop() {
	close(s.stopChan)
	log.Println("Cleanup scheduler stopped")
}

// cleanOldFiles removes files older than maxAgeHours, then any stale
// segment directories the transcription runs left behind.
func (s *Scheduler) cleanOldFiles() {
	now := time.Now()
	maxAge := time.Duration(s.maxAgeHours) * time.Hour

	var deletedCount int
	var deletedSize int64

	err := filepath.Walk(s.tempDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip entries we cannot stat
		}
		if info.IsDir() {
			return nil
		}

		age := now.Sub(info.ModTime())
		if age > maxAge {
			size := info.Size()
			if err := os.Remove(path); err != nil {
				log.Printf("Failed to delete old file %s: %v", path, err)
			} else {
				deletedCount++
				deletedSize += size
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("Error during cleanup: %v", err)
	}

	s.removeStaleSegmentDirs(now, maxAge)

	if deletedCount > 0 {
		log.Printf("Cleanup complete: %d files deleted, %.2fMB freed",
			deletedCount, float64(deletedSize)/(1024*1024))
	}
}

// removeStaleSegmentDirs deletes per-run segment directories whose
// runs ended long ago. Active runs are younger than maxAge by
// construction, so this never races a worker.
func (s *Scheduler) removeStaleSegmentDirs(now time.Time, maxAge time.Duration) {
	entries, err := os.ReadDir(s.tempDir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "segments_") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) > maxAge {
			path := filepath.Join(s.tempDir, entry.Name())
			if err := os.RemoveAll(path); err != nil {
				log.Printf("Failed to delete stale segment directory %s: %v", path, err)
			} else {
				log.Printf("Deleted stale segment directory: %s", entry.Name())
			}
		}
	}
}

// EnsureTempDirExists creates the temp directory if needed.
func EnsureTempDirExists(tempDir string) error {
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return err
	}
	log.Printf("Temp directory ready: %s", tempDir)
	return nil
}
