package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

var ErrStopped = errors.New("scheduler stopped")

const (
	DefaultIdleTimeout = 100 * time.Millisecond
	taskTimeout        = 30 * time.Second
	queueSize          = 300
)

type idleEntry struct {
	task       TaskInterface
	enqueuedAt time.Time
}

// Scheduler runs tasks one at a time on a single loop goroutine. Immediate
// tasks run first; idle tasks run when the immediate queue is empty or once
// they have waited longer than idleTimeout.
type Scheduler struct {
	sessionID   string
	idleTimeout time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface

	mu         sync.Mutex
	idle       []idleEntry
	idleSignal chan struct{}
}

func NewScheduler(sessionID string, idleTimeout time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}

	return &Scheduler{
		sessionID:   sessionID,
		idleTimeout: idleTimeout,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, queueSize),
		idleSignal:  make(chan struct{}, 1),
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.loop()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	if err := s.ctx.Err(); err != nil {
		return ErrStopped
	}

	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return ErrStopped
	default:
		return fmt.Errorf("task queue is full")
	}
}

// EnqueueTaskWait queues task, waiting for room while the queue is full.
func (s *Scheduler) EnqueueTaskWait(ctx context.Context, task TaskInterface) error {
	if err := s.ctx.Err(); err != nil {
		return ErrStopped
	}

	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) ScheduleIdle(task TaskInterface) error {
	if err := s.ctx.Err(); err != nil {
		return ErrStopped
	}

	s.mu.Lock()
	s.idle = append(s.idle, idleEntry{task: task, enqueuedAt: time.Now()})
	s.mu.Unlock()

	select {
	case s.idleSignal <- struct{}{}:
	default:
	}
	return nil
}

// Do runs fn on the loop and waits for it to finish.
func (s *Scheduler) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	task := NewCallTask(s.sessionID, fn)
	if err := s.EnqueueTask(task); err != nil {
		return err
	}

	select {
	case err := <-task.Done():
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return ErrStopped
	}
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	for {
		if s.ctx.Err() != nil {
			return
		}

		if task := s.popIdle(true); task != nil {
			s.executeTask(task)
			continue
		}

		select {
		case task := <-s.taskQueue:
			s.executeTask(task)
			continue
		default:
		}

		if task := s.popIdle(false); task != nil {
			s.executeTask(task)
			continue
		}

		select {
		case <-s.ctx.Done():
			return
		case task := <-s.taskQueue:
			s.executeTask(task)
		case <-s.idleSignal:
		}
	}
}

// popIdle returns the oldest idle task. With overdueOnly it returns one only
// if it has waited past idleTimeout.
func (s *Scheduler) popIdle(overdueOnly bool) TaskInterface {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.idle) == 0 {
		return nil
	}
	entry := s.idle[0]
	if overdueOnly && time.Since(entry.enqueuedAt) < s.idleTimeout {
		return nil
	}
	s.idle[0] = idleEntry{}
	s.idle = s.idle[1:]
	return entry.task
}

func (s *Scheduler) executeTask(task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	err := s.run(taskCtx, task)
	if err == nil {
		slog.Debug("Task completed", "session", task.GetSessionID(), "type", string(task.GetType()), "id", task.GetID(), "duration", task.GetDuration().String())
		return
	}

	if !task.CanRetry() {
		slog.Debug("Task failed", "session", task.GetSessionID(), "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		return
	}

	task.IncrementRetryCount()
	retryDelay := task.RetryDelay()

	slog.Debug("Task retry scheduled", "session", task.GetSessionID(), "type", string(task.GetType()), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String(), "error", err)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(retryDelay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
		case <-timer.C:
			if retryErr := s.EnqueueTask(task); retryErr != nil && !errors.Is(retryErr, ErrStopped) {
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			}
		}
	}()
}

// run executes the task, turning a panic into an error so one bad task never
// stops the loop.
func (s *Scheduler) run(ctx context.Context, task TaskInterface) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Task panicked", "session", task.GetSessionID(), "type", string(task.GetType()), "id", task.GetID(), "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task.Execute(ctx)
}
