package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

// CallTask runs a function on the loop and hands its result to a waiter.
// It is never retried.
type CallTask struct {
	Task
	fn   func(ctx context.Context) error
	done chan error
}

func NewCallTask(sessionID string, fn func(ctx context.Context) error) *CallTask {
	task := NewTask(TaskTypeCall, sessionID)
	task.MaxRetries = 0

	return &CallTask{
		Task: task,
		fn:   fn,
		done: make(chan error, 1),
	}
}

func (t *CallTask) Execute(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Call panicked", "session", t.SessionID, "panic", r)
			err = fmt.Errorf("call panicked: %v", r)
		}
		t.done <- err
	}()
	return t.fn(ctx)
}

// Done delivers the result of Execute.
func (t *CallTask) Done() <-chan error {
	return t.done
}
