// Package worker runs a pool of job processors against a mongostore
// Connection: dequeue, hand off to a caller-supplied handler, and retry
// transient failures with backoff while dropping permanent ones.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rezkam/jobmongo/internal/domain"
	"github.com/rezkam/jobmongo/internal/mongostore"
)

// retryCountParam is the job-parameter name this worker uses to persist how
// many times a job has been retried, surviving process restarts.
const retryCountParam = "retryCount"

// Handler processes one dequeued job's invocation payload. Returning a
// Transient-wrapped error requeues the job for another attempt (subject to
// Config.MaxRetries); any other error permanently removes it from the
// queue; a panic is recovered, reported to the ErrorHandler, and also
// removes the job permanently.
type Handler func(ctx context.Context, job domain.JobData) error

// Config configures a Worker pool.
type Config struct {
	Queues       []string
	Concurrency  int
	RetryConfig  mongostore.RetryConfig
	MaxRetries   int
	ErrorHandler ErrorHandler
}

// DefaultConfig returns sensible defaults for the given queues.
func DefaultConfig(queues []string) Config {
	return Config{
		Queues:      queues,
		Concurrency: 4,
		RetryConfig: mongostore.RetryConfig{BaseDelay: time.Second, MaxDelay: time.Minute},
		MaxRetries:  5,
		ErrorHandler: &DefaultErrorHandler{},
	}
}

// Worker runs Config.Concurrency dequeue-process loops against conn until
// Stop is called or its context is canceled.
type Worker struct {
	conn    *mongostore.Connection
	handler Handler
	cfg     Config

	wg   sync.WaitGroup
	done chan struct{}
}

// New builds a Worker. conn must already be wired to a QueueProviders
// registry that covers every queue in cfg.Queues.
func New(conn *mongostore.Connection, handler Handler, cfg Config) *Worker {
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = &DefaultErrorHandler{}
	}
	return &Worker{conn: conn, handler: handler, cfg: cfg, done: make(chan struct{})}
}

// Start runs the worker pool until ctx is canceled or Stop is called.
func (w *Worker) Start(ctx context.Context) error {
	slog.InfoContext(ctx, "worker pool started", slog.Any("queues", w.cfg.Queues), slog.Int("concurrency", w.cfg.Concurrency))

	for i := 0; i < w.cfg.Concurrency; i++ {
		w.wg.Add(1)
		go func(id int) {
			defer w.wg.Done()
			w.loop(ctx, id)
		}(i)
	}

	select {
	case <-ctx.Done():
		w.wg.Wait()
		return ctx.Err()
	case <-w.done:
		w.wg.Wait()
		return nil
	}
}

// Stop signals every loop to finish its current job and exit.
func (w *Worker) Stop() {
	close(w.done)
}

func (w *Worker) loop(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		default:
		}

		fetched, err := w.conn.FetchNextJob(ctx, w.cfg.Queues)
		if err != nil {
			if err == domain.ErrCanceled || err == domain.ErrDisposed {
				return
			}
			slog.ErrorContext(ctx, "dequeue failed", slog.Int("loop", id), slog.String("error", err.Error()))
			continue
		}

		w.process(ctx, fetched)
	}
}

func (w *Worker) process(ctx context.Context, fetched *mongostore.FetchedJob) {
	data, err := w.conn.GetJobData(ctx, fetched.JobID())
	if err != nil || data == nil {
		// Job row vanished between dequeue and read (e.g. concurrently
		// removed); nothing left to do with the handle but let it requeue
		// and resolve itself next time it's claimed.
		_ = fetched.Dispose(ctx)
		return
	}

	runErr := w.runHandler(ctx, data)
	if runErr == nil {
		_ = fetched.RemoveFromQueue(ctx)
		return
	}

	var panicErr PanicError
	if errorsAsPanic(runErr, &panicErr) {
		w.cfg.ErrorHandler.HandlePanic(ctx, data.Job, panicErr.Value, panicErr.StackTrace)
		_ = fetched.RemoveFromQueue(ctx)
		return
	}

	retryCount := w.bumpRetryCount(ctx, fetched.JobID())
	result := w.cfg.ErrorHandler.HandleError(ctx, data.Job, retryCount, runErr)

	cancelled := result != nil && result.SetCancelled
	if cancelled || !IsRetryable(runErr) || retryCount > w.cfg.MaxRetries {
		_ = fetched.RemoveFromQueue(ctx)
		return
	}

	delay := mongostore.CalculateRetryDelay(retryCount, w.cfg.RetryConfig)
	time.Sleep(delay)
	_ = fetched.Requeue(ctx)
}

// bumpRetryCount increments and returns the persisted retry count for
// jobID, so a restart-between-attempts doesn't reset MaxRetries.
func (w *Worker) bumpRetryCount(ctx context.Context, jobID string) int {
	value, ok, err := w.conn.GetJobParameter(ctx, jobID, retryCountParam)
	count := 0
	if err == nil && ok && value != nil {
		fmt.Sscanf(*value, "%d", &count)
	}
	count++
	next := fmt.Sprintf("%d", count)
	_ = w.conn.SetJobParameter(ctx, jobID, retryCountParam, &next)
	return count
}

// runHandler invokes the handler, converting a recovered panic into a
// PanicError so process can route it through HandlePanic uniformly.
func (w *Worker) runHandler(ctx context.Context, data *domain.JobData) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = PanicError{Value: r, StackTrace: string(debug.Stack())}
		}
	}()
	return w.handler(ctx, *data)
}

func errorsAsPanic(err error, target *PanicError) bool {
	if pe, ok := err.(PanicError); ok {
		*target = pe
		return true
	}
	return false
}
