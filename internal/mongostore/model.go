package mongostore

import "time"

// The bson-tagged row types below mirror the domain types one-for-one but
// carry the on-wire field names and the string or int64 _id values each
// collection stores. Connection methods translate between these and
// internal/domain's storage-neutral types at the read/write boundary.

type jobRow struct {
	ID             string     `bson:"_id"`
	InvocationData string     `bson:"invocationData"`
	Arguments      string     `bson:"arguments"`
	CreatedAt      time.Time  `bson:"createdAt"`
	ExpireAt       *time.Time `bson:"expireAt,omitempty"`
	StateID        *string    `bson:"stateId,omitempty"`
	StateName      *string    `bson:"stateName,omitempty"`
	Queue          *string    `bson:"queue,omitempty"`
	FetchedAt      *time.Time `bson:"fetchedAt,omitempty"`
}

type jobParameterRow struct {
	JobID    string     `bson:"jobId"`
	Name     string     `bson:"name"`
	Value    *string    `bson:"value,omitempty"`
	ExpireAt *time.Time `bson:"expireAt,omitempty"`
}

type stateRow struct {
	ID        string     `bson:"_id"`
	JobID     string     `bson:"jobId"`
	Name      string     `bson:"name"`
	Reason    string     `bson:"reason"`
	Data      string     `bson:"data"`
	CreatedAt time.Time  `bson:"createdAt"`
	ExpireAt  *time.Time `bson:"expireAt,omitempty"`
}

type setRow struct {
	Key      string     `bson:"key"`
	Value    string     `bson:"value"`
	Score    float64    `bson:"score"`
	ExpireAt *time.Time `bson:"expireAt,omitempty"`
}

type hashRow struct {
	Key      string     `bson:"key"`
	Field    string     `bson:"field"`
	Value    string     `bson:"value"`
	ExpireAt *time.Time `bson:"expireAt,omitempty"`
}

type listRow struct {
	ID       int64      `bson:"_id"`
	Key      string     `bson:"key"`
	Value    string     `bson:"value"`
	ExpireAt *time.Time `bson:"expireAt,omitempty"`
}

type counterRow struct {
	ID       string     `bson:"_id"`
	Key      string     `bson:"key"`
	Value    int64      `bson:"value"`
	ExpireAt *time.Time `bson:"expireAt,omitempty"`
}

type aggregatedCounterRow struct {
	Key      string     `bson:"_id"`
	Value    int64      `bson:"value"`
	ExpireAt *time.Time `bson:"expireAt,omitempty"`
}

type serverRow struct {
	ID          string    `bson:"_id"`
	WorkerCount int       `bson:"workerCount"`
	Queues      []string  `bson:"queues"`
	StartedAt   time.Time `bson:"startedAt"`
	Heartbeat   time.Time `bson:"heartbeat"`
}

type lockRow struct {
	Resource string    `bson:"_id"`
	Owner    string    `bson:"owner"`
	ExpireAt time.Time `bson:"expireAt"`
}
