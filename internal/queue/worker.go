package queue

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/meetscribe/meetscribe/internal/audio"
	"github.com/meetscribe/meetscribe/internal/config"
	"github.com/meetscribe/meetscribe/internal/csvconv"
	"github.com/meetscribe/meetscribe/internal/minutes"
	"github.com/meetscribe/meetscribe/internal/remap"
	"github.com/meetscribe/meetscribe/internal/storage"
	"github.com/meetscribe/meetscribe/internal/transcribe"
	"github.com/meetscribe/meetscribe/internal/types"
)

// WorkerPool runs the full processing pipeline for queued jobs:
// audio extraction, transcription, CSV conversion, title, minutes,
// reflection, speaker remapping and storage. Only the transcription
// stage can fail a job; the enrichment stages log and continue.
type WorkerPool struct {
	jobQueue    chan *Job
	workerCount int

	cfg          *config.Config
	pipeline     *transcribe.Pipeline
	minutesSvc   *minutes.Service
	remapper     *remap.Remapper
	localStorage *storage.LocalStorage
	driveClient  *storage.DriveClient
	db           *storage.MetadataDB

	mu          sync.RWMutex
	jobs        map[string]*Job
	subscribers map[string][]chan ProgressEvent
}

func NewWorkerPool(
	cfg *config.Config,
	pipeline *transcribe.Pipeline,
	minutesSvc *minutes.Service,
	remapper *remap.Remapper,
	localStorage *storage.LocalStorage,
	driveClient *storage.DriveClient,
	db *storage.MetadataDB,
) *WorkerPool {
	return &WorkerPool{
		jobQueue:     make(chan *Job, 100),
		workerCount:  cfg.Workers.Count,
		cfg:          cfg,
		pipeline:     pipeline,
		minutesSvc:   minutesSvc,
		remapper:     remapper,
		localStorage: localStorage,
		driveClient:  driveClient,
		db:           db,
		jobs:         make(map[string]*Job),
		subscribers:  make(map[string][]chan ProgressEvent),
	}
}

// Start launches the workers.
func (wp *WorkerPool) Start() {
	log.Printf("Starting worker pool with %d workers", wp.workerCount)
	for i := 0; i < wp.workerCount; i++ {
		go wp.worker(i)
	}
}

// EnqueueJob registers and queues a job.
func (wp *WorkerPool) EnqueueJob(job *Job) {
	wp.mu.Lock()
	job.Status = types.StatusQueued
	wp.jobs[job.ID] = job
	wp.mu.Unlock()

	wp.jobQueue <- job
	log.Printf("Job %s enqueued (source: %s, name: %s)", job.ID, job.SourceType, job.RequestName)
}

// JobSnapshot returns a copy of the job's current state.
func (wp *WorkerPool) JobSnapshot(id string) (Job, bool) {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	job, ok := wp.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Subscribe returns a channel of progress events for a job plus an
// unsubscribe function. Events are dropped, not blocked on, when the
// subscriber is slow.
func (wp *WorkerPool) Subscribe(jobID string) (<-chan ProgressEvent, func()) {
	ch := make(chan ProgressEvent, 16)

	wp.mu.Lock()
	wp.subscribers[jobID] = append(wp.subscribers[jobID], ch)
	wp.mu.Unlock()

	unsubscribe := func() {
		wp.mu.Lock()
		defer wp.mu.Unlock()
		subs := wp.subscribers[jobID]
		for i, s := range subs {
			if s == ch {
				wp.subscribers[jobID] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
	return ch, unsubscribe
}

func (wp *WorkerPool) publish(job *Job, stage, message string) {
	wp.mu.Lock()
	job.Stage = stage
	subs := append([]chan ProgressEvent(nil), wp.subscribers[job.ID]...)
	event := ProgressEvent{
		JobID:   job.ID,
		Status:  job.Status,
		Stage:   stage,
		Message: message,
		At:      time.Now(),
	}
	wp.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}

func (wp *WorkerPool) setStatus(job *Job, status, errMessage string) {
	wp.mu.Lock()
	job.Status = status
	job.Error = errMessage
	wp.mu.Unlock()
	wp.publish(job, job.Stage, errMessage)
}

func (wp *WorkerPool) worker(id int) {
	log.Printf("Worker %d started", id)

	for job := range wp.jobQueue {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Worker %d: PANIC processing job %s: %v\n%s",
						id, job.ID, r, string(debug.Stack()))
					wp.setStatus(job, types.StatusFailed, fmt.Sprintf("worker panic: %v", r))
					wp.cleanupTempFile(job.FilePath)
				}
			}()
			wp.processJob(id, job)
		}()
	}
}

// processJob runs the whole pipeline for one job.
func (wp *WorkerPool) processJob(workerID int, job *Job) {
	log.Printf("Worker %d: Processing job %s", workerID, job.ID)
	wp.setStatus(job, types.StatusProcessing, "")
	ctx := context.Background()

	// Stage 1: extract and normalize the audio track. Uploads are often
	// screen recordings, so this also strips video.
	wp.publish(job, types.StageExtract, "")
	audioPath, err := audio.ExtractAudio(ctx, job.FilePath, wp.cfg.Storage.TempDir)
	if err != nil {
		wp.fail(workerID, job, fmt.Errorf("audio extraction: %w", err))
		return
	}
	defer wp.cleanupTempFile(audioPath)

	durationSec, err := audio.ProbeDuration(ctx, audioPath)
	if err != nil {
		log.Printf("Worker %d: duration probe failed for job %s: %v", workerID, job.ID, err)
	}

	// Stage 2: transcription. The only stage whose failure fails the job.
	wp.publish(job, types.StageTranscribe, "")
	outcome, err := wp.pipeline.Process(ctx, audioPath)
	if err != nil {
		wp.fail(workerID, job, fmt.Errorf("transcription: %w", err))
		return
	}
	outcome.JobID = job.ID
	outcome.DurationSec = durationSec
	outcome.WordCount = len(strings.Fields(outcome.FormattedText))
	outcome.ProcessedAt = time.Now()
	if outcome.Warning != "" {
		wp.publish(job, types.StageTranscribe, outcome.Warning)
	}

	// Stage 3: CSV conversion.
	wp.publish(job, types.StageCSV, "")
	csvPath, err := csvconv.ConvertFile(outcome.FormattedFile, filepath.Dir(outcome.FormattedFile))
	if err != nil {
		log.Printf("Worker %d: CSV conversion failed for job %s: %v", workerID, job.ID, err)
	} else {
		outcome.CSVFile = csvPath
	}

	// Stage 4: title.
	wp.publish(job, types.StageTitle, "")
	title, err := wp.minutesSvc.GenerateTitle(ctx, outcome.FormattedText)
	if err != nil {
		log.Printf("Worker %d: title generation failed for job %s: %v", workerID, job.ID, err)
		title = job.RequestName
	}
	outcome.Title = title

	// Stage 5: minutes, then the facilitation reflection over them.
	if wp.cfg.Transcription.GenerateMinutes {
		wp.publish(job, types.StageMinutes, "")
		minutesPath, err := wp.minutesSvc.GenerateMinutes(ctx, outcome.FormattedFile)
		if err != nil {
			log.Printf("Worker %d: minutes generation failed for job %s: %v", workerID, job.ID, err)
		} else {
			outcome.MinutesFile = minutesPath
			if wp.cfg.Transcription.GenerateReflection {
				wp.publish(job, types.StageReflection, "")
				reflectionPath, err := wp.minutesSvc.GenerateReflection(ctx, minutesPath)
				if err != nil {
					log.Printf("Worker %d: reflection generation failed for job %s: %v", workerID, job.ID, err)
				} else {
					outcome.ReflectionFile = reflectionPath
				}
			}
		}
	}

	// Stage 6: speaker remapping.
	if wp.cfg.Transcription.EnableSpeakerRemapping {
		wp.publish(job, types.StageRemap, "")
		remappedPath, err := wp.remapper.Remap(ctx, outcome.FormattedFile)
		if err != nil {
			log.Printf("Worker %d: speaker remapping failed for job %s: %v", workerID, job.ID, err)
		} else {
			outcome.RemappedFile = remappedPath
		}
	}

	// Stage 7: archive locally, mirror to Drive, index in the database.
	wp.publish(job, types.StageStore, "")

	if wp.driveClient != nil {
		for attempt := 1; attempt <= 3; attempt++ {
			url, err := wp.driveClient.Upload(job.RequestName, outcome)
			if err == nil {
				outcome.GDriveURL = url
				break
			}
			log.Printf("Worker %d: Google Drive upload attempt %d/3 failed: %v", workerID, attempt, err)
			if attempt < 3 {
				time.Sleep(time.Duration(attempt*attempt) * time.Second)
			}
		}
		if outcome.GDriveURL == "" {
			log.Printf("Worker %d: WARNING - Google Drive upload failed after 3 attempts, continuing with local save only", workerID)
		}
	}

	localPath, err := wp.localStorage.SaveOutcome(job.RequestName, outcome)
	if err != nil {
		wp.fail(workerID, job, fmt.Errorf("local save: %w", err))
		return
	}

	if wp.db != nil {
		if err := wp.db.SaveOutcome(job.RequestName, localPath, outcome); err != nil {
			log.Printf("Worker %d: database save failed for job %s: %v", workerID, job.ID, err)
		}
	}

	wp.cleanupTempFile(job.FilePath)

	wp.mu.Lock()
	job.Outcome = outcome
	wp.mu.Unlock()
	wp.setStatus(job, types.StatusCompleted, "")
	log.Printf("Worker %d: Job %s completed (title: %q, local: %s, gdrive: %s)",
		workerID, job.ID, outcome.Title, localPath, outcome.GDriveURL)
}

func (wp *WorkerPool) fail(workerID int, job *Job, err error) {
	log.Printf("Worker %d: job %s failed: %v", workerID, job.ID, err)
	wp.setStatus(job, types.StatusFailed, err.Error())
	wp.cleanupTempFile(job.FilePath)
}

func (wp *WorkerPool) cleanupTempFile(filePath string) {
	if filePath == "" {
		return
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to cleanup temp file %s: %v", filePath, err)
	}
}
