package mongostore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mutation is one queued storage operation. now is the single server-time
// sample taken once at Commit and reused for every expireAt derivation in
// this transaction, per spec §4.3.
type mutation func(ctx context.Context, now time.Time) error

// WriteTransaction accumulates mutations into an ordered queue and applies
// them as a batch on Commit. Atomicity is per-operation, not
// per-transaction: a crash mid-commit may leave a prefix applied. Every
// mutation here is written to be idempotent at the application level, and
// TTLs clean up whatever a partial commit leaves behind — a mongo.Session
// is deliberately not used (see DESIGN.md).
type WriteTransaction struct {
	db        *DbContext
	providers *QueueProviders

	mutations     []mutation
	touchedQueues map[string]struct{}
}

func newWriteTransaction(db *DbContext, providers *QueueProviders) *WriteTransaction {
	return &WriteTransaction{db: db, providers: providers, touchedQueues: make(map[string]struct{})}
}

func (t *WriteTransaction) queue(m mutation) *WriteTransaction {
	t.mutations = append(t.mutations, m)
	return t
}

// Commit samples the server clock once, applies every queued mutation in
// insertion order, and — only if every mutation succeeded — notifies the
// queue-changed handle for each distinct queue touched by AddToQueue.
// Notifications never fire on partial failure.
func (t *WriteTransaction) Commit(ctx context.Context) error {
	now, err := t.db.GetServerTimeUtc(ctx)
	if err != nil {
		return err
	}

	for i, m := range t.mutations {
		if err := m(ctx, now); err != nil {
			return fmt.Errorf("mongostore: transaction mutation %d/%d: %w", i+1, len(t.mutations), err)
		}
	}

	for queueName := range t.touchedQueues {
		if provider, err := t.providers.Resolve([]string{queueName}); err == nil {
			provider.Queue().NotifyQueueChanged()
		}
	}
	return nil
}

// ExpireJob sets a job's expireAt to now+expireIn and cascades the same
// expiry to its parameters and states.
func (t *WriteTransaction) ExpireJob(jobID string, expireIn time.Duration) *WriteTransaction {
	return t.queue(func(ctx context.Context, now time.Time) error {
		expireAt := now.Add(expireIn)
		return t.setExpiry(ctx, jobID, &expireAt)
	})
}

// PersistJob clears expireAt on a job and cascades the removal to its
// parameters and states.
func (t *WriteTransaction) PersistJob(jobID string) *WriteTransaction {
	return t.queue(func(ctx context.Context, now time.Time) error {
		return t.setExpiry(ctx, jobID, nil)
	})
}

func (t *WriteTransaction) setExpiry(ctx context.Context, jobID string, expireAt *time.Time) error {
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "expireAt", Value: expireAt}}}}
	if _, err := t.db.Collections.Job.UpdateByID(ctx, jobID, update); err != nil {
		return fmt.Errorf("set job expiry: %w", err)
	}
	if _, err := t.db.Collections.JobParameter.UpdateMany(ctx, bson.D{{Key: "jobId", Value: jobID}}, update); err != nil {
		return fmt.Errorf("cascade expiry to parameters: %w", err)
	}
	if _, err := t.db.Collections.State.UpdateMany(ctx, bson.D{{Key: "jobId", Value: jobID}}, update); err != nil {
		return fmt.Errorf("cascade expiry to states: %w", err)
	}
	return nil
}

// SetJobState inserts a new state row and updates the job's current state
// pointer to it.
func (t *WriteTransaction) SetJobState(jobID, name, reason string, data map[string]string) *WriteTransaction {
	return t.queue(func(ctx context.Context, now time.Time) error {
		stateID, err := t.insertState(ctx, jobID, name, reason, data, now)
		if err != nil {
			return err
		}
		_, err = t.db.Collections.Job.UpdateByID(ctx, jobID, bson.D{{Key: "$set", Value: bson.D{
			{Key: "stateId", Value: stateID},
			{Key: "stateName", Value: name},
		}}})
		if err != nil {
			return fmt.Errorf("set job state pointer: %w", err)
		}
		return nil
	})
}

// AddJobState inserts a new state row without moving the job's current
// state pointer.
func (t *WriteTransaction) AddJobState(jobID, name, reason string, data map[string]string) *WriteTransaction {
	return t.queue(func(ctx context.Context, now time.Time) error {
		_, err := t.insertState(ctx, jobID, name, reason, data, now)
		return err
	})
}

func (t *WriteTransaction) insertState(ctx context.Context, jobID, name, reason string, data map[string]string, now time.Time) (string, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode state data: %w", err)
	}
	row := stateRow{ID: uuid.NewString(), JobID: jobID, Name: name, Reason: reason, Data: string(encoded), CreatedAt: now}
	if _, err := t.db.Collections.State.InsertOne(ctx, row); err != nil {
		return "", fmt.Errorf("insert state: %w", err)
	}
	return row.ID, nil
}

// AddToQueue marks jobID with queueName and clears fetchedAt, making it
// visible to dequeuers once the transaction commits. The queue-changed
// notification is deferred to Commit, never fired here.
func (t *WriteTransaction) AddToQueue(jobID, queueName string) *WriteTransaction {
	t.touchedQueues[queueName] = struct{}{}
	return t.queue(func(ctx context.Context, now time.Time) error {
		_, err := t.db.Collections.Job.UpdateByID(ctx, jobID, bson.D{{Key: "$set", Value: bson.D{
			{Key: "queue", Value: queueName},
			{Key: "fetchedAt", Value: nil},
		}}})
		if err != nil {
			return fmt.Errorf("add to queue: %w", err)
		}
		return nil
	})
}

var counterSeq atomic.Int64

// incrementCounter appends a counter row with value delta (±1) under key.
// expireIn is optional (nil means no expiry).
func (t *WriteTransaction) incrementCounter(key string, delta int64, expireIn *time.Duration) *WriteTransaction {
	return t.queue(func(ctx context.Context, now time.Time) error {
		var expireAt *time.Time
		if expireIn != nil {
			e := now.Add(*expireIn)
			expireAt = &e
		}
		row := counterRow{ID: fmt.Sprintf("%d-%d", now.UnixNano(), counterSeq.Add(1)), Key: key, Value: delta, ExpireAt: expireAt}
		if _, err := t.db.Collections.Counter.InsertOne(ctx, row); err != nil {
			return fmt.Errorf("increment counter: %w", err)
		}
		return nil
	})
}

// IncrementCounter appends a +1 row for key.
func (t *WriteTransaction) IncrementCounter(key string, expireIn *time.Duration) *WriteTransaction {
	return t.incrementCounter(key, 1, expireIn)
}

// DecrementCounter appends a -1 row for key.
func (t *WriteTransaction) DecrementCounter(key string, expireIn *time.Duration) *WriteTransaction {
	return t.incrementCounter(key, -1, expireIn)
}

// AddToSet upserts (key, value) with the default score 0.
func (t *WriteTransaction) AddToSet(key, value string) *WriteTransaction {
	return t.AddRangeToSet(key, value, 0)
}

// AddRangeToSet upserts (key, value) with the given score.
func (t *WriteTransaction) AddRangeToSet(key, value string, score float64) *WriteTransaction {
	return t.queue(func(ctx context.Context, now time.Time) error {
		_, err := t.db.Collections.Set.UpdateOne(ctx,
			bson.D{{Key: "key", Value: key}, {Key: "value", Value: value}},
			bson.D{{Key: "$set", Value: bson.D{{Key: "score", Value: score}}}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("add to set: %w", err)
		}
		return nil
	})
}

// RemoveFromSet deletes (key, value).
func (t *WriteTransaction) RemoveFromSet(key, value string) *WriteTransaction {
	return t.queue(func(ctx context.Context, now time.Time) error {
		_, err := t.db.Collections.Set.DeleteOne(ctx, bson.D{{Key: "key", Value: key}, {Key: "value", Value: value}})
		if err != nil {
			return fmt.Errorf("remove from set: %w", err)
		}
		return nil
	})
}

// InsertToList appends value under key, in insertion order. Each id is the
// transaction's server-time sample in nanoseconds plus the process-wide
// sequence incrementCounter uses: ids fit in int64, increase in call order
// within a transaction, and keep increasing across process restarts rather
// than starting over. TrimList and the range reads sort on these ids.
func (t *WriteTransaction) InsertToList(key, value string) *WriteTransaction {
	return t.queue(func(ctx context.Context, now time.Time) error {
		row := listRow{ID: now.UnixNano() + counterSeq.Add(1), Key: key, Value: value}
		if _, err := t.db.Collections.List.InsertOne(ctx, row); err != nil {
			return fmt.Errorf("insert to list: %w", err)
		}
		return nil
	})
}

// RemoveFromList deletes every row under key equal to value.
func (t *WriteTransaction) RemoveFromList(key, value string) *WriteTransaction {
	return t.queue(func(ctx context.Context, now time.Time) error {
		_, err := t.db.Collections.List.DeleteMany(ctx, bson.D{{Key: "key", Value: key}, {Key: "value", Value: value}})
		if err != nil {
			return fmt.Errorf("remove from list: %w", err)
		}
		return nil
	})
}

// TrimList keeps documents whose descending-by-id index lies within
// [keepFrom, keepTo] inclusive, deleting everything else. If keepFrom >
// keepTo, or keepFrom is beyond the list's length, the whole list under
// key is deleted.
func (t *WriteTransaction) TrimList(key string, keepFrom, keepTo int) *WriteTransaction {
	return t.queue(func(ctx context.Context, now time.Time) error {
		cursor, err := t.db.Collections.List.Find(ctx,
			bson.D{{Key: "key", Value: key}},
			options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}).SetProjection(bson.D{{Key: "_id", Value: 1}}),
		)
		if err != nil {
			return fmt.Errorf("trim list: list ids: %w", err)
		}
		defer cursor.Close(ctx)

		var ids []int64
		for cursor.Next(ctx) {
			var row struct {
				ID int64 `bson:"_id"`
			}
			if err := cursor.Decode(&row); err != nil {
				return fmt.Errorf("trim list: decode id: %w", err)
			}
			ids = append(ids, row.ID)
		}

		removeIDs := trimListRemoveIDs(ids, keepFrom, keepTo)
		if len(removeIDs) == 0 {
			return nil
		}

		_, err = t.db.Collections.List.DeleteMany(ctx, bson.D{{Key: "key", Value: key}, {Key: "_id", Value: bson.D{{Key: "$in", Value: removeIDs}}}})
		if err != nil {
			return fmt.Errorf("trim list: delete: %w", err)
		}
		return nil
	})
}

// SetRangeInHash bulk-upserts fields under key.
func (t *WriteTransaction) SetRangeInHash(key string, fields map[string]string) *WriteTransaction {
	return t.queue(func(ctx context.Context, now time.Time) error {
		if len(fields) == 0 {
			return nil
		}
		models := make([]mongo.WriteModel, 0, len(fields))
		for field, value := range fields {
			models = append(models, mongo.NewUpdateOneModel().
				SetFilter(bson.D{{Key: "key", Value: key}, {Key: "field", Value: field}}).
				SetUpdate(bson.D{{Key: "$set", Value: bson.D{{Key: "value", Value: value}}}}).
				SetUpsert(true))
		}
		if _, err := t.db.Collections.Hash.BulkWrite(ctx, models); err != nil {
			return fmt.Errorf("set range in hash: %w", err)
		}
		return nil
	})
}

// RemoveHash deletes every field stored under key.
func (t *WriteTransaction) RemoveHash(key string) *WriteTransaction {
	return t.queue(func(ctx context.Context, now time.Time) error {
		_, err := t.db.Collections.Hash.DeleteMany(ctx, bson.D{{Key: "key", Value: key}})
		if err != nil {
			return fmt.Errorf("remove hash: %w", err)
		}
		return nil
	})
}

// ExpireSet, PersistSet, ExpireList, PersistList, ExpireHash, PersistHash
// set or clear expireAt on every row under key for their respective
// collection.
func (t *WriteTransaction) ExpireSet(key string, expireIn time.Duration) *WriteTransaction {
	return t.expireCollection(t.db.Collections.Set, key, &expireIn)
}
func (t *WriteTransaction) PersistSet(key string) *WriteTransaction {
	return t.expireCollection(t.db.Collections.Set, key, nil)
}
func (t *WriteTransaction) ExpireList(key string, expireIn time.Duration) *WriteTransaction {
	return t.expireCollection(t.db.Collections.List, key, &expireIn)
}
func (t *WriteTransaction) PersistList(key string) *WriteTransaction {
	return t.expireCollection(t.db.Collections.List, key, nil)
}
func (t *WriteTransaction) ExpireHash(key string, expireIn time.Duration) *WriteTransaction {
	return t.expireCollection(t.db.Collections.Hash, key, &expireIn)
}
func (t *WriteTransaction) PersistHash(key string) *WriteTransaction {
	return t.expireCollection(t.db.Collections.Hash, key, nil)
}

// trimListKeepIDs returns the subset of ids (already sorted descending by
// insertion order) whose index falls within [keepFrom, keepTo] inclusive.
// Any out-of-range keepTo is clamped to the last index; keepFrom > keepTo or
// keepFrom beyond the slice's length keeps nothing.
func trimListKeepIDs(ids []int64, keepFrom, keepTo int) []int64 {
	if keepFrom > keepTo || keepFrom < 0 || keepFrom >= len(ids) {
		return nil
	}
	hi := keepTo
	if hi >= len(ids) {
		hi = len(ids) - 1
	}
	return ids[keepFrom : hi+1]
}

// trimListRemoveIDs returns the ids to delete: everything not kept by
// trimListKeepIDs.
func trimListRemoveIDs(ids []int64, keepFrom, keepTo int) []int64 {
	keepSet := make(map[int64]struct{})
	for _, id := range trimListKeepIDs(ids, keepFrom, keepTo) {
		keepSet[id] = struct{}{}
	}

	var removeIDs []int64
	for _, id := range ids {
		if _, ok := keepSet[id]; !ok {
			removeIDs = append(removeIDs, id)
		}
	}
	return removeIDs
}

func (t *WriteTransaction) expireCollection(coll *mongo.Collection, key string, expireIn *time.Duration) *WriteTransaction {
	return t.queue(func(ctx context.Context, now time.Time) error {
		var expireAt *time.Time
		if expireIn != nil {
			e := now.Add(*expireIn)
			expireAt = &e
		}
		_, err := coll.UpdateMany(ctx,
			bson.D{{Key: "key", Value: key}},
			bson.D{{Key: "$set", Value: bson.D{{Key: "expireAt", Value: expireAt}}}},
		)
		if err != nil {
			return fmt.Errorf("expire collection %s: %w", coll.Name(), err)
		}
		return nil
	})
}
