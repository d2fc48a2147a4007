package domain

import "time"

// Job is the central unit of work. Its queue/fetchedAt pair doubles as the
// delivery-state record: a non-empty Queue with a nil FetchedAt means
// "waiting", a non-nil FetchedAt means "owned by whichever worker fetched
// it last", per the single-collection schema this core assumes (see
// design notes on the two coexisting upstream schemas).
type Job struct {
	ID        string
	InvocationData string
	Arguments string
	CreatedAt time.Time
	ExpireAt  *time.Time

	StateID   *string
	StateName *string

	Queue     *string
	FetchedAt *time.Time
}

// JobParameter is a (JobID, Name) keyed value attached to a Job. Value is
// nullable: SetJobParameter explicitly allows storing a null value.
type JobParameter struct {
	JobID    string
	Name     string
	Value    *string
	ExpireAt *time.Time
}

// State is one append-only row in a job's state history. Data holds the
// state's free-form attributes, serialized as a JSON object mapping
// string keys to string values; the core never interprets its contents.
type State struct {
	ID        string
	JobID     string
	Name      string
	Reason    string
	Data      map[string]string
	CreatedAt time.Time
	ExpireAt  *time.Time
}

// JobData is the projection returned by read paths that resolve a job's
// invocation payload. Load is non-nil if the job's Arguments failed to
// decode as JSON; callers must check it before trusting Arguments.
type JobData struct {
	Job  Job
	Load *LoadException
}

// StateData is the projection returned when reading a state row's
// attributes. Load is non-nil if the Data JSON failed to decode.
type StateData struct {
	State State
	Load  *LoadException
}
