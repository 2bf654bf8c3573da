package notifications

import (
	"context"
	"errors"
	"sync"
	"time"

	"medfeed/internal/observability"

	"github.com/google/uuid"
)

// ErrQueueFull is returned when a push cannot be queued without blocking.
var ErrQueueFull = errors.New("push queue full")

// ErrDispatcherStopped is returned after Stop.
var ErrDispatcherStopped = errors.New("push dispatcher stopped")

const sendTimeout = 10 * time.Second

type pushJob struct {
	ctx context.Context
	msg PushMessage
}

// Dispatcher hands push messages to a fixed pool of workers through a bounded
// queue. Enqueue never blocks.
type Dispatcher struct {
	sender  PushSender
	queue   chan pushJob
	workers int

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewDispatcher builds a dispatcher; Start launches its workers.
func NewDispatcher(sender PushSender, workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Dispatcher{
		sender:  sender,
		queue:   make(chan pushJob, queueSize),
		workers: workers,
	}
}

// Start launches the worker pool.
func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
}

// Enqueue queues a push and returns its job id.
func (d *Dispatcher) Enqueue(ctx context.Context, title, body string, tokens []string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return "", ErrDispatcherStopped
	}

	msg := PushMessage{
		ID:     uuid.NewString(),
		Title:  title,
		Body:   body,
		Tokens: append([]string(nil), tokens...),
	}
	// Jobs outlive the request; keep its values (correlation id) but not its deadline.
	job := pushJob{ctx: context.WithoutCancel(ctx), msg: msg}

	select {
	case d.queue <- job:
		observability.PushQueueDepth.Inc()
		return msg.ID, nil
	default:
		observability.PushQueueDrops.Inc()
		return "", ErrQueueFull
	}
}

// Stop refuses new jobs and waits for queued ones to drain or ctx to expire.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for job := range d.queue {
		observability.PushQueueDepth.Dec()
		d.send(job)
	}
}

func (d *Dispatcher) send(job pushJob) {
	ctx, cancel := context.WithTimeout(job.ctx, sendTimeout)
	defer cancel()

	fields := map[string]interface{}{
		"push_id":  job.msg.ID,
		"provider": d.sender.Name(),
		"tokens":   len(job.msg.Tokens),
	}
	observability.LogAsyncOperationStart(ctx, "push_dispatch", fields)

	accepted, err := d.sender.Send(ctx, job.msg)
	if err != nil {
		observability.PushDispatch.WithLabelValues(d.sender.Name(), "error").Inc()
		observability.LogAsyncOperationError(ctx, "push_dispatch", err, fields)
		return
	}
	observability.PushDispatch.WithLabelValues(d.sender.Name(), "ok").Inc()
	fields["accepted"] = accepted
	observability.LogAsyncOperationEnd(ctx, "push_dispatch", fields)
}
