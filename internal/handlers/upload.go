package handlers

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/meetscribe/meetscribe/internal/audio"
	"github.com/meetscribe/meetscribe/internal/queue"
	"github.com/meetscribe/meetscribe/internal/types"
)

// UploadHandler accepts a meeting recording and queues it for
// processing.
type UploadHandler struct {
	workerPool *queue.WorkerPool
	tempDir    string
	maxSizeMB  int
}

func NewUploadHandler(workerPool *queue.WorkerPool, tempDir string, maxSizeMB int) *UploadHandler {
	return &UploadHandler{
		workerPool: workerPool,
		tempDir:    tempDir,
		maxSizeMB:  maxSizeMB,
	}
}

// Handle processes the upload request. The response carries the job ID;
// progress is available on /ws/jobs/:id and the final state on /jobs/:id.
func (h *UploadHandler) Handle(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "No file uploaded",
			"code":  "ERR_NO_FILE",
		})
	}

	requestName := c.FormValue("name")
	if requestName == "" {
		requestName = file.Filename
	}

	maxSize := int64(h.maxSizeMB) * 1024 * 1024
	if file.Size > maxSize {
		return c.Status(400).JSON(fiber.Map{
			"error": fmt.Sprintf("File too large (max %dMB)", h.maxSizeMB),
			"code":  "ERR_FILE_TOO_LARGE",
		})
	}

	if !audio.ValidateFormat(file.Filename) {
		return c.Status(400).JSON(fiber.Map{
			"error": "Unsupported audio/video format",
			"code":  "ERR_INVALID_FORMAT",
		})
	}

	jobID := uuid.New().String()
	tempPath := filepath.Join(h.tempDir, fmt.Sprintf("%s%s", jobID, filepath.Ext(file.Filename)))

	if err := c.SaveFile(file, tempPath); err != nil {
		log.Printf("Failed to save uploaded file: %v", err)
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to save file",
			"code":  "ERR_SAVE_FAILED",
		})
	}

	h.workerPool.EnqueueJob(queue.NewJob(jobID, requestName, types.SourceUpload, tempPath))

	return c.JSON(fiber.Map{
		"job_id":  jobID,
		"status":  "queued",
		"message": "File uploaded successfully, processing started",
	})
}
