package worker

import (
	"context"
	"log/slog"

	"github.com/rezkam/jobmongo/internal/domain"
)

// ErrorHandler processes job errors and panics for telemetry/alerting.
// Allows custom integration with error tracking services (Sentry, Datadog, etc.).
//
// Pattern from River (https://riverqueue.com/docs/error-handling):
// - HandleError for normal errors (can influence retry behavior)
// - HandlePanic for panics (always dropped from the queue, no retries)
type ErrorHandler interface {
	// HandleError is called when a job returns an error.
	// Return nil to follow normal retry policy (retry if transient, drop if
	// permanent). Return &ErrorHandlerResult{SetCancelled: true} to force
	// permanent failure regardless of retryability.
	HandleError(ctx context.Context, job domain.Job, retryCount int, err error) *ErrorHandlerResult

	// HandlePanic is called when job processing panics. Includes the panic
	// value and stack trace. Panicked jobs are always removed from the
	// queue (no retries) regardless of the returned result; this is a hook
	// for logging/telemetry only.
	HandlePanic(ctx context.Context, job domain.Job, panicVal any, stackTrace string) *ErrorHandlerResult
}

// ErrorHandlerResult controls job disposition after an error or panic.
type ErrorHandlerResult struct {
	// SetCancelled permanently fails the job, preventing further retries.
	SetCancelled bool
}

// DefaultErrorHandler logs errors and panics with structured logging.
type DefaultErrorHandler struct{}

func (h *DefaultErrorHandler) HandleError(ctx context.Context, job domain.Job, retryCount int, err error) *ErrorHandlerResult {
	slog.ErrorContext(ctx, "job processing failed",
		slog.String("job_id", job.ID),
		slog.String("queue", derefQueue(job.Queue)),
		slog.Int("retry_count", retryCount),
		slog.String("error", err.Error()),
		slog.Bool("retryable", IsRetryable(err)),
	)
	return nil
}

func (h *DefaultErrorHandler) HandlePanic(ctx context.Context, job domain.Job, panicVal any, stackTrace string) *ErrorHandlerResult {
	slog.ErrorContext(ctx, "job processing panicked",
		slog.String("job_id", job.ID),
		slog.Any("panic_value", panicVal),
		slog.String("stack_trace", stackTrace),
	)
	return nil
}

func derefQueue(q *string) string {
	if q == nil {
		return ""
	}
	return *q
}
