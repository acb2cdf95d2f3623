package engine

import (
	"context"
	"time"

	"github.com/OmarCodes2/Slop-Block/app/tasks"
)

const (
	ContainerMaxRetries = 10
	ContainerRetryBase  = 500 * time.Millisecond
	ContainerRetryCap   = 5 * time.Second
)

// LocateContainerTask looks for the feed containers of one page generation.
// It fails while no container exists so the scheduler retries it with capped
// backoff, and gives up silently after ContainerMaxRetries.
type LocateContainerTask struct {
	tasks.Task
	engine     *Engine
	generation int
}

func NewLocateContainerTask(sessionID string, engine *Engine, generation int) *LocateContainerTask {
	task := tasks.NewTask(tasks.TaskTypeLocateContainer, sessionID)
	task.MaxRetries = ContainerMaxRetries
	task.RetryBase = ContainerRetryBase
	task.RetryCap = ContainerRetryCap

	return &LocateContainerTask{
		Task:       task,
		engine:     engine,
		generation: generation,
	}
}

func (t *LocateContainerTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	return t.engine.locate(t.generation)
}
