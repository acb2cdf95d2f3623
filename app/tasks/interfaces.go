package tasks

import (
	"context"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Tasks run one at a time on a single loop, so task bodies may share state
// without locking.
//
//	scheduler := NewScheduler(sessionID, idleTimeout)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.ScheduleIdle(scanTask)
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	EnqueueTaskWait(ctx context.Context, task TaskInterface) error
	ScheduleIdle(task TaskInterface) error
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}
