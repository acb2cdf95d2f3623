package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/OmarCodes2/Slop-Block/app/llm"
	"golang.org/x/net/html"
	"golang.org/x/sync/semaphore"
)

const DefaultConcurrency = 2

// Request asks the backend for a label for one occluded uncategorized post.
// Node is the post root the request was made for; the result is only applied
// while that node is still bound to Key.
type Request struct {
	Key  string
	Node *html.Node
	Text string
}

// Result is the backend's answer to a Request.
type Result struct {
	Key         string
	Node        *html.Node
	Label       string
	Unavailable bool
	Err         error
}

// Submitter accepts escalation requests from the engine loop.
type Submitter interface {
	Submit(req Request)
}

// Escalator runs backend requests off the loop with bounded concurrency.
// Requests over the limit wait for a slot; completed requests are handed to
// deliver, which must post them back to the loop. The context passed to
// deliver is cancelled by Stop.
type Escalator struct {
	backend llm.Backend
	sem     *semaphore.Weighted
	deliver func(context.Context, Result)

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

func NewEscalator(backend llm.Backend, concurrency int, deliver func(context.Context, Result)) *Escalator {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Escalator{
		backend: backend,
		sem:     semaphore.NewWeighted(int64(concurrency)),
		deliver: deliver,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (x *Escalator) Submit(req Request) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.stopped {
		return
	}

	x.wg.Add(1)
	go func() {
		defer x.wg.Done()

		if err := x.sem.Acquire(x.ctx, 1); err != nil {
			return
		}
		defer x.sem.Release(1)
		if x.ctx.Err() != nil {
			return
		}

		x.deliver(x.ctx, x.categorize(req))
	}()
}

func (x *Escalator) categorize(req Request) Result {
	res := Result{Key: req.Key, Node: req.Node}

	if !x.backend.Available(x.ctx) {
		res.Unavailable = true
		res.Err = llm.ErrUnavailable
		return res
	}

	label, err := x.backend.Categorize(x.ctx, req.Text)
	if err != nil {
		slog.Warn("Escalation failed", "key", req.Key, "error", err)
		res.Err = err
		res.Label = llm.FallbackLabel
		return res
	}

	res.Label = label
	return res
}

// Wait blocks until every submitted request has been delivered.
func (x *Escalator) Wait() {
	x.wg.Wait()
}

// Stop abandons queued requests and waits for running ones.
func (x *Escalator) Stop() {
	x.mu.Lock()
	x.stopped = true
	x.mu.Unlock()

	x.cancel()
	x.wg.Wait()
}
