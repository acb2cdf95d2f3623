package engine

import (
	"context"

	"github.com/OmarCodes2/Slop-Block/app/tasks"
)

// EscalationResultTask hands a backend result back to the loop, where it is
// validated against the current bindings before being shown.
type EscalationResultTask struct {
	tasks.Task
	engine *Engine
	result Result
}

func NewEscalationResultTask(sessionID string, engine *Engine, result Result) *EscalationResultTask {
	task := tasks.NewTask(tasks.TaskTypeEscalation, sessionID)
	task.MaxRetries = 0

	return &EscalationResultTask{
		Task:   task,
		engine: engine,
		result: result,
	}
}

func (t *EscalationResultTask) Execute(ctx context.Context) error {
	t.engine.HandleEscalation(t.result)
	return nil
}
