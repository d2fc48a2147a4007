package domain

import "time"

// Server is one announced worker process. AnnounceServer upserts
// WorkerCount/Queues/Heartbeat and sets StartedAt only on first insert;
// Heartbeat alone refreshes the liveness timestamp thereafter.
type Server struct {
	ID          string
	WorkerCount int
	Queues      []string
	StartedAt   time.Time
	Heartbeat   time.Time
}

// DistributedLockRecord is the persisted row backing one acquired
// DistributedLock resource. Owner is the acquiring process's lock owner
// token (see nextOwnerToken in internal/mongostore/lock.go for its format); ExpireAt is refreshed by the
// holder's heartbeat and is the sole basis for reclaiming abandoned locks.
type DistributedLockRecord struct {
	Resource string
	Owner    string
	ExpireAt time.Time
}
