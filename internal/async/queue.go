// Package async runs background jobs on a bounded worker pool.
package async

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/exposure-tracker/internal/common"
	"github.com/joseph-ayodele/exposure-tracker/internal/metrics"
)

// ErrClosed is returned by Enqueue after Shutdown.
var ErrClosed = fmt.Errorf("queue is shutting down: %w", common.ErrUnavailable)

// Job is one unit of background work. Payload is interpreted by the handler for Kind.
type Job struct {
	ID          uuid.UUID
	Kind        string
	TenantID    uuid.UUID
	Payload     string
	RequestID   string
	SubmittedAt time.Time
}

// Handler processes a job; the returned value is kept as the job's result.
type Handler func(ctx context.Context, job Job) (any, error)

type Queue interface {
	Enqueue(ctx context.Context, job Job) (uuid.UUID, error)
	Shutdown(ctx context.Context)
}

type State string

const (
	StateQueued  State = "queued"
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

// Status is the observable state of a job.
type Status struct {
	ID       uuid.UUID `json:"id"`
	Kind     string    `json:"kind"`
	TenantID uuid.UUID `json:"-"`
	State    State     `json:"state"`
	Error    string    `json:"error,omitempty"`
	Result   any       `json:"result,omitempty"`
	Finished time.Time `json:"finished,omitempty"`
}

type WorkerQueue struct {
	handler Handler
	logger  *slog.Logger
	metrics *metrics.Recorder
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu      sync.RWMutex
	closed  bool
	quit    chan struct{}
	senders sync.WaitGroup

	statusMu  sync.Mutex
	statuses  map[uuid.UUID]*Status
	retention time.Duration
}

type Option func(*WorkerQueue)

func WithWorkers(n int) Option {
	return func(q *WorkerQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *WorkerQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithJobTimeout(d time.Duration) Option {
	return func(q *WorkerQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithRetention sets how long finished job statuses stay queryable.
func WithRetention(d time.Duration) Option {
	return func(q *WorkerQueue) {
		if d > 0 {
			q.retention = d
		}
	}
}
func WithMetrics(rec *metrics.Recorder) Option {
	return func(q *WorkerQueue) { q.metrics = rec }
}

func NewWorkerQueue(handler Handler, logger *slog.Logger, opts ...Option) *WorkerQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &WorkerQueue{
		handler:   handler,
		logger:    logger,
		workers:   2,
		timeout:   3 * time.Minute,
		ch:        make(chan Job, 64),
		quit:      make(chan struct{}),
		statuses:  map[uuid.UUID]*Status{},
		retention: time.Hour,
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *WorkerQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)
				for job := range q.ch {
					q.metrics.QueueDepth(len(q.ch))
					q.run(workerID, job)
				}
				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *WorkerQueue) run(workerID int, job Job) {
	q.setState(job.ID, func(s *Status) { s.State = StateRunning })

	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	ctx = common.WithTenantID(ctx, job.TenantID)
	if job.RequestID != "" {
		ctx = common.WithRequestID(ctx, job.RequestID)
	}
	start := time.Now()
	result, err := q.safeHandle(ctx, job)
	cancel()

	if err != nil {
		q.logger.Error("job failed", "worker_id", workerID, "job_id", job.ID, "kind", job.Kind,
			"error", err, "elapsed_ms", time.Since(start).Milliseconds())
		q.setState(job.ID, func(s *Status) {
			s.State, s.Error, s.Finished = StateFailed, err.Error(), time.Now().UTC()
		})
		return
	}
	q.logger.Info("job done", "worker_id", workerID, "job_id", job.ID, "kind", job.Kind,
		"elapsed_ms", time.Since(start).Milliseconds())
	q.setState(job.ID, func(s *Status) {
		s.State, s.Result, s.Finished = StateDone, result, time.Now().UTC()
	})
}

func (q *WorkerQueue) safeHandle(ctx context.Context, job Job) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return q.handler(ctx, job)
}

// Enqueue assigns an id when missing and blocks while the queue is full, until ctx
// ends or the queue shuts down.
func (q *WorkerQueue) Enqueue(ctx context.Context, job Job) (uuid.UUID, error) {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		q.logger.Warn("cannot enqueue: queue is shutting down", "kind", job.Kind)
		return uuid.Nil, ErrClosed
	}
	q.senders.Add(1)
	q.mu.RUnlock()
	defer q.senders.Done()

	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now().UTC()
	}
	q.statusMu.Lock()
	q.statuses[job.ID] = &Status{ID: job.ID, Kind: job.Kind, TenantID: job.TenantID, State: StateQueued}
	q.statusMu.Unlock()

	// q.ch is closed only after every sender registered above has returned.
	select {
	case q.ch <- job:
	default:
		q.logger.Warn("queue full, applying backpressure", "job_id", job.ID)
		select {
		case q.ch <- job:
		case <-q.quit:
			q.dropStatus(job.ID)
			return uuid.Nil, ErrClosed
		case <-ctx.Done():
			q.dropStatus(job.ID)
			return uuid.Nil, ctx.Err()
		}
	}
	q.metrics.QueueDepth(len(q.ch))
	q.logger.Info("queued job", "job_id", job.ID, "kind", job.Kind, "tenant_id", job.TenantID)
	return job.ID, nil
}

func (q *WorkerQueue) dropStatus(id uuid.UUID) {
	q.statusMu.Lock()
	delete(q.statuses, id)
	q.statusMu.Unlock()
}

// Status returns a snapshot of a job's state.
func (q *WorkerQueue) Status(id uuid.UUID) (Status, bool) {
	q.statusMu.Lock()
	defer q.statusMu.Unlock()
	s, ok := q.statuses[id]
	if !ok {
		return Status{}, false
	}
	return *s, true
}

func (q *WorkerQueue) setState(id uuid.UUID, fn func(*Status)) {
	q.statusMu.Lock()
	defer q.statusMu.Unlock()
	if s, ok := q.statuses[id]; ok {
		fn(s)
	}
	cutoff := time.Now().UTC().Add(-q.retention)
	for k, s := range q.statuses {
		if !s.Finished.IsZero() && s.Finished.Before(cutoff) {
			delete(q.statuses, k)
		}
	}
}

// Shutdown stops intake and waits for queued jobs to drain or ctx to end.
func (q *WorkerQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.quit)
	q.mu.Unlock()

	q.senders.Wait()
	close(q.ch)

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
