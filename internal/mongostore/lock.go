package mongostore

import (
	"context"
	"crypto/sha1"
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rezkam/jobmongo/internal/domain"
	"github.com/rezkam/jobmongo/internal/mongostore/lockctx"
)

// processFingerprint identifies this process for the lifetime of the
// program: hex SHA-1 of (hostname, pid, process-start tick). It lets
// Acquire distinguish "the lock is held by this same process" (eligible
// for the cheap in-process awaiter) from "a remote process holds it"
// (falls back to polling).
var processFingerprint = computeProcessFingerprint()

func computeProcessFingerprint() string {
	hostname, _ := os.Hostname()
	material := fmt.Sprintf("%s:%d:%d", hostname, os.Getpid(), processStartTick)
	sum := sha1.Sum([]byte(material))
	return fmt.Sprintf("%x", sum)
}

var processStartTick = time.Now().UnixNano() //nolint:serverclock -- process-local uniqueness salt, not a server-clock read

var lockOwnerCounter atomic.Int64

// processAwaiters is shared by every DistributedLock in this process, so a
// release through one instance wakes same-process waiters on another.
var processAwaiters = newAwaiterRegistry()

// nextOwnerToken returns a fresh "<processFingerprint>:<counter>" owner
// token, unique within this process and distinguishable from remote
// processes' tokens by its fingerprint prefix.
func nextOwnerToken() string {
	return fmt.Sprintf("%s:%d", processFingerprint, lockOwnerCounter.Add(1))
}

// DistributedLock implements upsert-based acquisition with owner tokens,
// a heartbeat timer, in-process reentrancy via lockctx, and two awaiter
// strategies: an in-process pulse for same-process contention, and
// polling for contention from a remote process (spec §4.5).
type DistributedLock struct {
	db *DbContext

	lifetime time.Duration

	awaiters *awaiterRegistry

	mu        sync.Mutex
	heartbeat map[string]*time.Timer
}

// NewDistributedLock builds a DistributedLock bound to dc with the given
// lock lifetime; heartbeat runs at lifetime/5 once a lock is held.
func NewDistributedLock(dc *DbContext, lifetime time.Duration) *DistributedLock {
	return &DistributedLock{
		db:        dc,
		lifetime:  lifetime,
		awaiters:  processAwaiters,
		heartbeat: make(map[string]*time.Timer),
	}
}

// LockHandle is returned by Acquire. Dispose releases the lock (or, for a
// reentrant acquisition, is a no-op).
type LockHandle struct {
	lock      *DistributedLock
	resource  string
	owner     string
	reentrant bool
}

// Acquire acquires resource, blocking up to timeout. If the calling
// logical flow (tracked via ctx through lockctx) already holds resource,
// it returns immediately without touching storage (reentrancy). The
// returned context must be used for any further Acquire calls within the
// same flow for reentrancy to be observed.
func (l *DistributedLock) Acquire(ctx context.Context, resource string, timeout time.Duration) (context.Context, *LockHandle, error) {
	if resource == "" {
		return ctx, nil, fmt.Errorf("%w: resource is required", domain.ErrInvalidArgument)
	}
	if lockctx.Has(ctx, resource) {
		return ctx, &LockHandle{lock: l, resource: resource, reentrant: true}, nil
	}

	deadline := time.Now().Add(timeout) //nolint:serverclock -- caller-supplied timeout deadline, not a persisted expiry
	if timeout <= 0 {
		return ctx, nil, domain.ErrLockTimeout
	}

	owner := nextOwnerToken()

	for {
		now, err := l.db.GetServerTimeUtc(ctx)
		if err != nil {
			return ctx, nil, err
		}

		if _, err := l.db.Collections.Lock.DeleteMany(ctx, bson.D{
			{Key: "_id", Value: resource},
			{Key: "expireAt", Value: bson.D{{Key: "$lt", Value: now}}},
		}); err != nil {
			return ctx, nil, fmt.Errorf("mongostore: clean expired lock: %w", err)
		}

		var before lockRow
		err = l.db.Collections.Lock.FindOneAndUpdate(ctx,
			bson.D{{Key: "_id", Value: resource}},
			bson.D{{Key: "$setOnInsert", Value: bson.D{
				{Key: "owner", Value: owner},
				{Key: "expireAt", Value: now.Add(l.lifetime)},
			}}},
			options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.Before),
		).Decode(&before)

		acquired := err == mongo.ErrNoDocuments
		if err != nil && !acquired {
			return ctx, nil, fmt.Errorf("mongostore: acquire lock: %w", err)
		}

		if acquired {
			newCtx := lockctx.WithAcquired(ctx, resource)
			l.awaiters.getOrCreate(resource) // looks up or creates the entry; one still held by waiters is reused, not replaced
			l.startHeartbeat(resource, owner)
			return newCtx, &LockHandle{lock: l, resource: resource, owner: owner}, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ctx, nil, domain.ErrLockTimeout
		}

		var waitCh <-chan struct{}
		var pollTimer *time.Timer
		var entry *awaiterEntry
		if sameProcess(before.Owner) {
			entry = l.awaiters.getOrCreate(resource)
			waitCh = entry.wait()
		} else {
			interval := remaining / 5
			if interval > l.lifetime {
				interval = l.lifetime
			}
			pollTimer = time.NewTimer(interval)
			waitCh = pollTimer.C
		}

		timeoutTimer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timeoutTimer.Stop()
			if pollTimer != nil {
				pollTimer.Stop()
			}
			return ctx, nil, domain.ErrCanceled
		case <-waitCh:
			timeoutTimer.Stop()
		case <-timeoutTimer.C:
			if pollTimer != nil {
				pollTimer.Stop()
			}
			return ctx, nil, domain.ErrLockTimeout
		}
		runtime.KeepAlive(entry)
	}
}

func sameProcess(owner string) bool {
	return len(owner) > len(processFingerprint) && owner[:len(processFingerprint)] == processFingerprint
}

func (l *DistributedLock) startHeartbeat(resource, owner string) {
	interval := l.lifetime / 5
	if interval <= 0 {
		interval = time.Second
	}

	var tick func()
	timer := time.AfterFunc(interval, func() {
		tick()
	})
	tick = func() {
		ctx, cancel := context.WithTimeout(context.Background(), l.lifetime)
		defer cancel()

		now, err := l.db.GetServerTimeUtc(ctx)
		if err != nil {
			timer.Reset(interval)
			return
		}

		res, err := l.db.Collections.Lock.UpdateOne(ctx,
			bson.D{{Key: "_id", Value: resource}, {Key: "owner", Value: owner}},
			bson.D{{Key: "$set", Value: bson.D{{Key: "expireAt", Value: now.Add(l.lifetime)}}}},
		)
		if err != nil || res.ModifiedCount == 0 {
			// Lock stolen or error: stop silently, the next action on this
			// handle will surface the loss via Release's ErrLockLost.
			l.mu.Lock()
			delete(l.heartbeat, resource)
			l.mu.Unlock()
			return
		}

		timer.Reset(interval)
	}

	l.mu.Lock()
	l.heartbeat[resource] = timer
	l.mu.Unlock()
}

func (l *DistributedLock) stopHeartbeat(resource string) {
	l.mu.Lock()
	timer, ok := l.heartbeat[resource]
	delete(l.heartbeat, resource)
	l.mu.Unlock()
	if ok {
		timer.Stop()
	}
}

// Release deletes the lock document by (resource, owner). A reentrant
// handle is a no-op. Matching zero rows means the lock was stolen (TTL
// expiry or another participant) and returns ErrLockLost; either way the
// awaiter is signaled and the heartbeat stopped.
func (h *LockHandle) Release(ctx context.Context) error {
	if h.reentrant {
		return nil
	}

	h.lock.stopHeartbeat(h.resource)
	defer h.lock.awaiters.getOrCreate(h.resource).signal()

	res, err := h.lock.db.Collections.Lock.DeleteOne(ctx, bson.D{
		{Key: "_id", Value: h.resource},
		{Key: "owner", Value: h.owner},
	})
	if err != nil {
		return fmt.Errorf("mongostore: release lock: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrLockLost
	}
	return nil
}

// AcquireFunc is a lease-with-release-closure convenience over Acquire,
// for callers that prefer a release func() to a disposable handle —
// grounded on the teacher's TryAcquireExclusiveRun ergonomics. It is a
// thin wrapper, not a distinct locking mechanism.
func (l *DistributedLock) AcquireFunc(ctx context.Context, resource string, timeout time.Duration) (context.Context, func(context.Context) error, error) {
	newCtx, handle, err := l.Acquire(ctx, resource, timeout)
	if err != nil {
		return ctx, nil, err
	}
	return newCtx, handle.Release, nil
}
