package engine

import (
	"context"
	"log/slog"

	"github.com/OmarCodes2/Slop-Block/app/tasks"
)

// ScanTask processes the candidate roots queued since the last scan. It runs
// from the idle queue.
type ScanTask struct {
	tasks.Task
	engine     *Engine
	generation int
}

func NewScanTask(sessionID string, engine *Engine, generation int) *ScanTask {
	task := tasks.NewTask(tasks.TaskTypeScan, sessionID)
	task.MaxRetries = 0

	return &ScanTask{
		Task:       task,
		engine:     engine,
		generation: generation,
	}
}

func (t *ScanTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	candidates, processed := t.engine.runScan(t.generation)
	if candidates == 0 {
		return nil
	}

	slog.Info("Task completed",
		"type", "Scan",
		"session", t.SessionID,
		"duration", t.GetDuration(),
		"candidates", candidates,
		"processed", processed)

	return nil
}
