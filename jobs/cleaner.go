package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Enqueuer schedules upload cleanup.
type Enqueuer interface {
	EnqueueUploadCleanup(ctx context.Context, path string) (*asynq.TaskInfo, error)
}

// UploadCleaner schedules removal of replaced or orphaned uploads on the queue.
// When the queue is unreachable (or not configured) the file is removed inline.
type UploadCleaner struct {
	Queue   Enqueuer
	Remover Remover
	Logger  *slog.Logger
}

// Cleanup schedules removal of path. Empty paths are ignored.
func (c UploadCleaner) Cleanup(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	if c.Queue != nil {
		_, err := c.Queue.EnqueueUploadCleanup(ctx, path)
		if err == nil {
			return nil
		}
		if c.Logger != nil {
			c.Logger.Warn("enqueue upload cleanup, removing inline", slog.String("path", path), slog.Any("error", err))
		}
	}
	if c.Remover == nil {
		return nil
	}
	return c.Remover.Remove(path)
}
