package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/OmarCodes2/Slop-Block/app/feed"
	"github.com/OmarCodes2/Slop-Block/app/llm"
	"github.com/OmarCodes2/Slop-Block/app/tasks"
)

type Options struct {
	IdleTimeout time.Duration
	Concurrency int
}

// Session is one browsing session: an engine running on its own task loop
// plus the escalator feeding backend results back into that loop. Its
// methods are safe for concurrent use.
type Session struct {
	ID        string
	CreatedAt time.Time

	scheduler *tasks.Scheduler
	engine    *Engine
	escalator *Escalator
}

// SessionInfo summarizes a session for the host.
type SessionInfo struct {
	ID        string        `json:"id"`
	URL       string        `json:"url"`
	Observing bool          `json:"observing"`
	Settings  feed.Settings `json:"settings"`
	Stats     Stats         `json:"stats"`
	CreatedAt time.Time     `json:"created_at"`
}

// NewSession wires a session. A nil backend disables escalation.
func NewSession(id string, settings feed.Settings, backend llm.Backend, opts Options) *Session {
	s := &Session{
		ID:        id,
		CreatedAt: time.Now(),
		scheduler: tasks.NewScheduler(id, opts.IdleTimeout),
	}

	var submitter Submitter
	if backend != nil {
		s.escalator = NewEscalator(backend, opts.Concurrency, s.deliver)
		submitter = s.escalator
	}
	s.engine = New(id, s.scheduler, submitter, settings)

	return s
}

// deliver posts a result back to the loop, waiting while the queue is full.
// It only gives up once the session is closing.
func (s *Session) deliver(ctx context.Context, res Result) {
	err := s.scheduler.EnqueueTaskWait(ctx, NewEscalationResultTask(s.ID, s.engine, res))
	if err != nil && !errors.Is(err, tasks.ErrStopped) && !errors.Is(err, context.Canceled) {
		slog.Warn("Failed to deliver escalation result", "session", s.ID, "key", res.Key, "error", err)
	}
}

func (s *Session) Start() {
	s.scheduler.Start()
}

// Close stops the escalator and the task loop.
func (s *Session) Close() {
	if s.escalator != nil {
		s.escalator.Stop()
	}
	s.scheduler.Stop()
}

func (s *Session) LoadPage(ctx context.Context, pageURL, markup string) error {
	return s.scheduler.Do(ctx, func(context.Context) error {
		return s.engine.LoadPage(pageURL, markup)
	})
}

func (s *Session) Mutate(ctx context.Context, ops []Op) error {
	return s.scheduler.Do(ctx, func(context.Context) error {
		return s.engine.Mutate(ops)
	})
}

func (s *Session) Navigate(ctx context.Context, nextURL string) (Action, error) {
	var action Action
	err := s.scheduler.Do(ctx, func(context.Context) error {
		action = s.engine.Navigate(nextURL)
		return nil
	})
	return action, err
}

func (s *Session) ApplySettings(ctx context.Context, settings feed.Settings) error {
	return s.scheduler.Do(ctx, func(context.Context) error {
		s.engine.ApplySettings(settings)
		return nil
	})
}

func (s *Session) Reveal(ctx context.Context, key string) (int, error) {
	var count int
	err := s.scheduler.Do(ctx, func(context.Context) error {
		var err error
		count, err = s.engine.Reveal(key)
		return err
	})
	return count, err
}

func (s *Session) Snapshot(ctx context.Context) ([]PostState, error) {
	var out []PostState
	err := s.scheduler.Do(ctx, func(context.Context) error {
		out = s.engine.Snapshot()
		return nil
	})
	return out, err
}

func (s *Session) Document(ctx context.Context) (string, error) {
	var doc string
	err := s.scheduler.Do(ctx, func(context.Context) error {
		var err error
		doc, err = s.engine.Document()
		return err
	})
	return doc, err
}

func (s *Session) Import(ctx context.Context, items []feed.Item) (int, error) {
	var count int
	err := s.scheduler.Do(ctx, func(context.Context) error {
		var err error
		count, err = s.engine.Import(items)
		return err
	})
	return count, err
}

func (s *Session) ExportPosts(ctx context.Context) ([]feed.ExportPost, error) {
	var out []feed.ExportPost
	err := s.scheduler.Do(ctx, func(context.Context) error {
		out = s.engine.ExportPosts()
		return nil
	})
	return out, err
}

func (s *Session) Info(ctx context.Context) (SessionInfo, error) {
	info := SessionInfo{ID: s.ID, CreatedAt: s.CreatedAt}
	err := s.scheduler.Do(ctx, func(context.Context) error {
		info.URL = s.engine.URL()
		info.Observing = s.engine.Observing()
		info.Settings = s.engine.Settings()
		info.Stats = s.engine.Stats()
		return nil
	})
	return info, err
}

// Settle runs queued scans without waiting for idle time, waits for the
// escalations they started and applies their results.
func (s *Session) Settle(ctx context.Context) error {
	err := s.scheduler.Do(ctx, func(context.Context) error {
		s.engine.Flush()
		return nil
	})
	if err != nil {
		return err
	}

	if s.escalator != nil {
		done := make(chan struct{})
		go func() {
			s.escalator.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return s.scheduler.Do(ctx, func(context.Context) error { return nil })
}
