package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/glowcare/storefront/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskUploadCleanup removes an uploaded file that is no longer referenced.
	TaskUploadCleanup = "uploads:cleanup"
)

// UploadCleanupPayload names the public path of the file to delete.
type UploadCleanupPayload struct {
	Path string `json:"path"`
}

// NewUploadCleanupTask constructs an Asynq task.
func NewUploadCleanupTask(path string) (*asynq.Task, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("jobs: upload cleanup path required")
	}
	data, err := json.Marshal(UploadCleanupPayload{Path: path})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskUploadCleanup, data, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// Remover deletes a stored upload by public path.
type Remover interface {
	Remove(publicPath string) error
}

// UploadCleanupHandler processes TaskUploadCleanup tasks.
type UploadCleanupHandler struct {
	Remover Remover
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// ProcessTask implements asynq.Handler.
func (h UploadCleanupHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload UploadCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("jobs: decode upload cleanup: %v: %w", err, asynq.SkipRetry)
	}
	tracker := h.Metrics.Track("uploads_cleanup")
	err := h.Remover.Remove(payload.Path)
	if err != nil && h.Logger != nil {
		h.Logger.Warn("upload cleanup", slog.String("path", payload.Path), slog.Any("error", err))
	}
	return tracker.End(err)
}
