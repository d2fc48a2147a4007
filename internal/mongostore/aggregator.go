package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/rezkam/jobmongo/internal/domain"
)

// CountersAggregator periodically rolls up raw ±1 Counter rows into
// AggregatedCounter rows, preserving the sum and the maximum TTL observed
// (spec §4.6, invariant 3).
type CountersAggregator struct {
	db *DbContext
}

// NewCountersAggregator builds a CountersAggregator bound to dc.
func NewCountersAggregator(dc *DbContext) *CountersAggregator {
	return &CountersAggregator{db: dc}
}

// groupFanoutLimit bounds concurrent per-key upserts within a single
// pass, so a pass over a wide key fan-out doesn't open unbounded
// concurrent writes against the database.
const groupFanoutLimit = 8

// Run loops until ctx is canceled: each pass reads up to batchSize raw
// counter rows, groups them by key, upserts each group's sum into
// AggregatedCounter, then deletes exactly the rows it rolled up. If a
// pass rolled up batchSize or more rows it retries after shortDelay;
// otherwise it sleeps interval. Cancellation is checked before each
// group mutation and before each sleep.
func (a *CountersAggregator) Run(ctx context.Context, batchSize int, interval, shortDelay time.Duration) error {
	for {
		if err := ctx.Err(); err != nil {
			return domain.ErrCanceled
		}

		rolled, err := a.runPass(ctx, batchSize)
		if err != nil {
			return err
		}

		delay := interval
		if rolled >= batchSize {
			delay = shortDelay
		}

		select {
		case <-ctx.Done():
			return domain.ErrCanceled
		case <-time.After(delay):
		}
	}
}

// runPass performs one aggregation pass and returns the number of raw
// rows it rolled up and deleted.
func (a *CountersAggregator) runPass(ctx context.Context, batchSize int) (int, error) {
	cursor, err := a.db.Collections.Counter.Find(ctx, bson.D{}, options.Find().SetLimit(int64(batchSize)))
	if err != nil {
		return 0, fmt.Errorf("mongostore: aggregator read pass: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []counterRow
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, fmt.Errorf("mongostore: aggregator decode pass: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	groups := make(map[string][]counterRow)
	for _, r := range rows {
		groups[r.Key] = append(groups[r.Key], r)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(groupFanoutLimit)
	for key, grouped := range groups {
		key, grouped := key, grouped
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return domain.ErrCanceled
			}
			return a.rollUpGroup(gctx, key, grouped)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	return len(rows), nil
}

func (a *CountersAggregator) rollUpGroup(ctx context.Context, key string, rows []counterRow) error {
	var sum int64
	var maxExpire *time.Time
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		sum += r.Value
		ids = append(ids, r.ID)
		if r.ExpireAt != nil && (maxExpire == nil || r.ExpireAt.After(*maxExpire)) {
			maxExpire = r.ExpireAt
		}
	}

	update := bson.D{{Key: "$inc", Value: bson.D{{Key: "value", Value: sum}}}}
	if maxExpire != nil {
		update = append(update, bson.E{Key: "$max", Value: bson.D{{Key: "expireAt", Value: *maxExpire}}})
	}

	_, err := a.db.Collections.AggregatedCounter.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: key}},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongostore: upsert aggregated counter %q: %w", key, err)
	}

	if _, err := a.db.Collections.Counter.DeleteMany(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}); err != nil {
		return fmt.Errorf("mongostore: delete rolled-up counters %q: %w", key, err)
	}
	return nil
}
