package handlers

import (
	"log"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/meetscribe/meetscribe/internal/queue"
	"github.com/meetscribe/meetscribe/internal/types"
)

// ProgressHandler streams pipeline stage events for a job over a
// WebSocket. The connection closes after the terminal event.
type ProgressHandler struct {
	workerPool *queue.WorkerPool
}

func NewProgressHandler(workerPool *queue.WorkerPool) *ProgressHandler {
	return &ProgressHandler{workerPool: workerPool}
}

// Handle serves one subscriber. The current job state is sent first so
// late subscribers are not left waiting for the next stage change.
func (h *ProgressHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	jobID := c.Params("id")
	job, ok := h.workerPool.JobSnapshot(jobID)
	if !ok {
		c.WriteJSON(queue.ProgressEvent{
			JobID:   jobID,
			Status:  types.StatusFailed,
			Message: "job not found",
			At:      time.Now(),
		})
		return
	}

	events, unsubscribe := h.workerPool.Subscribe(jobID)
	defer unsubscribe()

	current := queue.ProgressEvent{
		JobID:  job.ID,
		Status: job.Status,
		Stage:  job.Stage,
		At:     time.Now(),
	}
	if err := c.WriteJSON(current); err != nil {
		return
	}
	if current.Terminal() {
		return
	}

	for event := range events {
		if err := c.WriteJSON(event); err != nil {
			log.Printf("WebSocket write failed for job %s: %v", jobID, err)
			return
		}
		if event.Terminal() {
			return
		}
	}
}
