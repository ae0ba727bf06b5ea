package handlers

import (
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/meetscribe/meetscribe/internal/queue"
	"github.com/meetscribe/meetscribe/internal/storage"
	"github.com/meetscribe/meetscribe/internal/types"
)

// JobsHandler exposes job status and the finished transcript index.
type JobsHandler struct {
	workerPool *queue.WorkerPool
	db         *storage.MetadataDB
}

func NewJobsHandler(workerPool *queue.WorkerPool, db *storage.MetadataDB) *JobsHandler {
	return &JobsHandler{workerPool: workerPool, db: db}
}

// Status reports the current state of one job, including artifact
// paths once it has completed.
func (h *JobsHandler) Status(c *fiber.Ctx) error {
	job, ok := h.workerPool.JobSnapshot(c.Params("id"))
	if !ok {
		return c.Status(404).JSON(fiber.Map{
			"error": "Job not found",
			"code":  "ERR_JOB_NOT_FOUND",
		})
	}

	resp := fiber.Map{
		"job_id":       job.ID,
		"request_name": job.RequestName,
		"status":       job.Status,
		"stage":        job.Stage,
		"created_at":   job.CreatedAt,
	}
	if job.Error != "" {
		resp["error"] = job.Error
	}
	if job.Status == types.StatusCompleted && job.Outcome != nil {
		resp["title"] = job.Outcome.Title
		resp["warning"] = job.Outcome.Warning
		resp["transcript_file"] = job.Outcome.FormattedFile
		resp["csv_file"] = job.Outcome.CSVFile
		resp["minutes_file"] = job.Outcome.MinutesFile
		resp["reflection_file"] = job.Outcome.ReflectionFile
		resp["remapped_file"] = job.Outcome.RemappedFile
		resp["gdrive_url"] = job.Outcome.GDriveURL
	}
	return c.JSON(resp)
}

// List returns the newest finished transcripts.
func (h *JobsHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	records, err := h.db.ListTranscripts(limit)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(records)
}

// Text serves the stored transcript text for a finished job.
func (h *JobsHandler) Text(c *fiber.Ctx) error {
	record, err := h.db.GetTranscript(c.Params("id"))
	if err != nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "Transcript not found",
			"code":  "ERR_TRANSCRIPT_NOT_FOUND",
		})
	}

	content, err := os.ReadFile(record.LocalPath)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to read transcript file"})
	}
	return c.SendString(string(content))
}
