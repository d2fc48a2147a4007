package domain

import "time"

// SetEntry is one (Key, Value) row of a Set collection, ordered for range
// reads by Score ascending.
type SetEntry struct {
	Key      string
	Value    string
	Score    float64
	ExpireAt *time.Time
}

// HashEntry is one (Key, Field) row of a Hash collection.
type HashEntry struct {
	Key      string
	Field    string
	Value    string
	ExpireAt *time.Time
}

// ListEntry is one row of a List collection. Order within a Key is
// insertion order; TrimList keeps a contiguous window of that order.
type ListEntry struct {
	Key      string
	Value    string
	ExpireAt *time.Time
}

// Counter is one raw ±1 row appended by IncrementCounter/DecrementCounter.
// It is never updated in place; the aggregator rolls groups of these into
// an AggregatedCounter and deletes the contributing rows.
type Counter struct {
	ID       string
	Key      string
	Value    int64
	ExpireAt *time.Time
}

// AggregatedCounter is the upserted roll-up row for a Counter key. ExpireAt
// only ever advances: a merge takes the maximum of the existing and
// incoming expiry, never the minimum.
type AggregatedCounter struct {
	Key      string
	Value    int64
	ExpireAt *time.Time
}
