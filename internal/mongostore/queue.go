package mongostore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rezkam/jobmongo/internal/domain"
)

// JobQueue implements atomic fetch-and-mark dequeue with an invisibility
// timeout, plus blocking wait with cancellation and in-process
// notification (spec §4.4). NotifyQueueChanged uses the classic Go
// "broadcast once" idiom — close a channel to wake every waiter, then
// replace it under a mutex — grounded on the teacher's ticker-and-channel
// worker loop (internal/application/worker/worker.go).
type JobQueue struct {
	db *DbContext

	queuePollInterval   time.Duration
	invisibilityTimeout time.Duration

	mu       sync.Mutex
	changed  chan struct{}
	disposed bool
}

// NewJobQueue builds a JobQueue bound to dc with the given poll interval
// and invisibility timeout.
func NewJobQueue(dc *DbContext, queuePollInterval, invisibilityTimeout time.Duration) *JobQueue {
	return &JobQueue{
		db:                  dc,
		queuePollInterval:   queuePollInterval,
		invisibilityTimeout: invisibilityTimeout,
		changed:             make(chan struct{}),
	}
}

// Dispose marks the queue as torn down; every blocked and future Dequeue
// call fails with ErrDisposed.
func (q *JobQueue) Dispose() {
	q.mu.Lock()
	q.disposed = true
	closed := q.changed
	q.changed = make(chan struct{})
	q.mu.Unlock()
	close(closed)
}

// NotifyQueueChanged wakes every dequeuer currently blocked in this
// process by closing the shared channel and replacing it with a fresh
// one — a pulse, not a persistent signal.
func (q *JobQueue) NotifyQueueChanged() {
	q.mu.Lock()
	closed := q.changed
	q.changed = make(chan struct{})
	q.mu.Unlock()
	close(closed)
}

func (q *JobQueue) changedChan() (ch chan struct{}, disposed bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.changed, q.disposed
}

// Dequeue atomically finds and marks one job from queues, blocking with
// queuePollInterval-bounded long-polling until one is available or ctx is
// canceled. A fetched job remains invisible to other dequeuers until
// invisibilityTimeout elapses without a Remove/Requeue call — the sole
// recovery mechanism for crashed workers.
func (q *JobQueue) Dequeue(ctx context.Context, queues []string) (*FetchedJob, error) {
	if len(queues) == 0 {
		return nil, fmt.Errorf("%w: queues must not be empty", domain.ErrInvalidArgument)
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, domain.ErrCanceled
		}
		if _, disposed := q.changedChan(); disposed {
			return nil, domain.ErrDisposed
		}

		job, err := q.tryClaim(ctx, queues)
		if err != nil {
			return nil, err
		}
		if job != nil {
			return job, nil
		}

		changed, disposed := q.changedChan()
		if disposed {
			return nil, domain.ErrDisposed
		}

		timer := time.NewTimer(q.queuePollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, domain.ErrCanceled
		case <-changed:
			timer.Stop()
		case <-timer.C:
		}

		if _, disposed := q.changedChan(); disposed {
			return nil, domain.ErrDisposed
		}
	}
}

func (q *JobQueue) tryClaim(ctx context.Context, queues []string) (*FetchedJob, error) {
	now, err := q.db.GetServerTimeUtc(ctx)
	if err != nil {
		return nil, err
	}
	invisibleBefore := now.Add(-q.invisibilityTimeout)

	filter := bson.D{
		{Key: "queue", Value: bson.D{{Key: "$in", Value: queues}}},
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "fetchedAt", Value: nil}},
			bson.D{{Key: "fetchedAt", Value: bson.D{{Key: "$lt", Value: invisibleBefore}}}},
		}},
	}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "fetchedAt", Value: now}}}}

	var row jobRow
	err = q.db.Collections.Job.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&row)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongostore: dequeue: %w", err)
	}

	queueName := ""
	if row.Queue != nil {
		queueName = *row.Queue
	}

	return &FetchedJob{jobID: row.ID, queue: queueName, jobs: q.db.Collections.Job}, nil
}

// FetchedJob is the handle returned by Dequeue. If neither RemoveFromQueue
// nor Requeue is called before Dispose, Dispose performs a Requeue — the
// default disposition is to return the job to the queue.
type FetchedJob struct {
	jobID string
	queue string
	jobs  *mongo.Collection

	once     sync.Once
	disposed bool
}

// JobID returns the fetched job's id.
func (f *FetchedJob) JobID() string { return f.jobID }

// Queue returns the queue this job was fetched from.
func (f *FetchedJob) Queue() string { return f.queue }

// RemoveFromQueue clears both queue and fetchedAt, permanently removing
// the job from delivery.
func (f *FetchedJob) RemoveFromQueue(ctx context.Context) error {
	var outerErr error
	f.once.Do(func() {
		_, err := f.jobs.UpdateByID(ctx, f.jobID, bson.D{{Key: "$set", Value: bson.D{
			{Key: "queue", Value: nil},
			{Key: "fetchedAt", Value: nil},
		}}})
		outerErr = err
	})
	return outerErr
}

// Requeue clears fetchedAt but keeps queue, making the job immediately
// visible again to dequeuers.
func (f *FetchedJob) Requeue(ctx context.Context) error {
	var outerErr error
	f.once.Do(func() {
		_, err := f.jobs.UpdateByID(ctx, f.jobID, bson.D{{Key: "$set", Value: bson.D{{Key: "fetchedAt", Value: nil}}}})
		outerErr = err
	})
	return outerErr
}

// Dispose finalizes the handle. If neither RemoveFromQueue nor Requeue
// was already called, it performs a Requeue.
func (f *FetchedJob) Dispose(ctx context.Context) error {
	return f.Requeue(ctx)
}
