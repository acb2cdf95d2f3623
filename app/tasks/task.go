package tasks

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

type TaskType string

const (
	TaskTypeLocateContainer TaskType = "locate_container"
	TaskTypeScan            TaskType = "scan"
	TaskTypeEscalation      TaskType = "escalation_result"
	TaskTypeCall            TaskType = "call"
)

const (
	DefaultMaxRetries = 3
	DefaultRetryBase  = time.Second
	DefaultRetryCap   = 30 * time.Second
)

type TaskInterface interface {
	Execute(ctx context.Context) error
	GetID() string
	GetType() TaskType
	GetSessionID() string
	GetRetryCount() int
	GetMaxRetries() int
	IncrementRetryCount()
	CanRetry() bool
	RetryDelay() time.Duration
	Start()
	GetDuration() time.Duration
}

type Task struct {
	ID         string
	Type       TaskType
	SessionID  string
	RetryCount int
	MaxRetries int
	RetryBase  time.Duration
	RetryCap   time.Duration
	StartedAt  *time.Time
}

func (t *Task) GetID() string {
	return t.ID
}

func (t *Task) GetType() TaskType {
	return t.Type
}

func (t *Task) GetSessionID() string {
	return t.SessionID
}

func (t *Task) GetRetryCount() int {
	return t.RetryCount
}

func (t *Task) GetMaxRetries() int {
	return t.MaxRetries
}

func (t *Task) IncrementRetryCount() {
	t.RetryCount++
}

func (t *Task) CanRetry() bool {
	return t.RetryCount < t.MaxRetries
}

// RetryDelay doubles from RetryBase on every retry and is capped at RetryCap.
func (t *Task) RetryDelay() time.Duration {
	if t.RetryCount <= 0 {
		return 0
	}
	delay := t.RetryBase << uint(t.RetryCount-1)
	if delay > t.RetryCap || delay <= 0 {
		delay = t.RetryCap
	}
	return delay
}

func (t *Task) Start() {
	now := time.Now()
	t.StartedAt = &now
}

func (t *Task) GetDuration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	return time.Since(*t.StartedAt)
}

func NewTask(taskType TaskType, sessionID string) Task {
	uniqueID := fmt.Sprintf("%d-%d", time.Now().UnixNano(), rand.Intn(10000))

	return Task{
		ID:         uniqueID,
		Type:       taskType,
		SessionID:  sessionID,
		RetryCount: 0,
		MaxRetries: DefaultMaxRetries,
		RetryBase:  DefaultRetryBase,
		RetryCap:   DefaultRetryCap,
	}
}
