package domain

import "errors"

// Sentinel errors returned by the storage core. Callers should use
// errors.Is against these; storage-error wrapping never obscures them.
var (
	// ErrInvalidArgument marks a null/empty required parameter, a negative
	// timeout, or an inverted range, detected before any I/O.
	ErrInvalidArgument = errors.New("domain: invalid argument")

	// ErrCanceled marks a caller-initiated cancellation of a blocking
	// operation (dequeue wait, lock acquire wait, aggregator pass).
	ErrCanceled = errors.New("domain: canceled")

	// ErrDisposed marks an operation attempted against a queue or lock
	// that has already been torn down.
	ErrDisposed = errors.New("domain: disposed")

	// ErrLockTimeout marks a distributed lock acquisition that did not
	// succeed within the caller-supplied timeout.
	ErrLockTimeout = errors.New("domain: lock acquisition timed out")

	// ErrLockLost marks a lock release that matched no owned row — the
	// lock was stolen by TTL expiry or another participant.
	ErrLockLost = errors.New("domain: lock lost")

	// ErrMixedProviders marks FetchNextJob called with queues that
	// resolve to more than one queue provider.
	ErrMixedProviders = errors.New("domain: queues belong to different providers")

	// ErrSchemaVersionTooNew marks a persisted schema version newer than
	// what this build knows how to speak.
	ErrSchemaVersionTooNew = errors.New("domain: persisted schema version is newer than supported")
)

// LoadException represents a payload deserialization failure on a read
// path. It is carried as a value inside the returned record rather than
// returned as an error, so dashboards keep functioning on corrupt rows.
type LoadException struct {
	// Raw is the undecoded payload, preserved for diagnostics.
	Raw string
	// Err is the underlying decode error.
	Err error
}

func (l *LoadException) Error() string {
	if l == nil || l.Err == nil {
		return "domain: load exception"
	}
	return "domain: load exception: " + l.Err.Error()
}

func (l *LoadException) Unwrap() error {
	if l == nil {
		return nil
	}
	return l.Err
}
