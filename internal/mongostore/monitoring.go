package mongostore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/rezkam/jobmongo/internal/domain"
)

// MonitoringApi provides the read-only projections a dashboard needs:
// paginated job listings by queue or state, per-state counts, timeline
// statistics, and a point-in-time snapshot (spec §4.7). It never mutates
// state; all writes flow through WriteTransaction.
type MonitoringApi struct {
	db *DbContext
}

// NewMonitoringApi builds a MonitoringApi bound to dc.
func NewMonitoringApi(dc *DbContext) *MonitoringApi {
	return &MonitoringApi{db: dc}
}

// JobPage is one page of job listings plus the token for the next page,
// empty when there are no more results.
type JobPage struct {
	Jobs          []domain.Job
	NextPageToken string
}

// EnqueuedJobs returns jobs waiting (fetchedAt is null) on queueName,
// ordered by insertion descending.
func (m *MonitoringApi) EnqueuedJobs(ctx context.Context, queueName string, pageToken string, pageSize int) (JobPage, error) {
	return m.jobsByQueue(ctx, queueName, false, pageToken, pageSize)
}

// FetchedJobs returns jobs currently owned (fetchedAt is set) on
// queueName, ordered by insertion descending.
func (m *MonitoringApi) FetchedJobs(ctx context.Context, queueName string, pageToken string, pageSize int) (JobPage, error) {
	return m.jobsByQueue(ctx, queueName, true, pageToken, pageSize)
}

func (m *MonitoringApi) jobsByQueue(ctx context.Context, queueName string, fetched bool, pageToken string, pageSize int) (JobPage, error) {
	offset, err := DecodePageToken(pageToken)
	if err != nil {
		return JobPage{}, err
	}
	size := clampPageSize(pageSize)

	fetchedFilter := bson.D{{Key: "$eq", Value: nil}}
	if fetched {
		fetchedFilter = bson.D{{Key: "$ne", Value: nil}}
	}

	filter := bson.D{{Key: "queue", Value: queueName}, {Key: "fetchedAt", Value: fetchedFilter}}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(offset).
		SetLimit(int64(size) + 1)

	cursor, err := m.db.Collections.Job.Find(ctx, filter, opts)
	if err != nil {
		return JobPage{}, fmt.Errorf("mongostore: list jobs by queue: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []jobRow
	if err := cursor.All(ctx, &rows); err != nil {
		return JobPage{}, fmt.Errorf("mongostore: decode jobs by queue: %w", err)
	}

	return buildJobPage(rows, offset, size), nil
}

// JobsByState returns jobs currently in stateName, ordered by insertion
// descending.
func (m *MonitoringApi) JobsByState(ctx context.Context, stateName string, pageToken string, pageSize int) (JobPage, error) {
	offset, err := DecodePageToken(pageToken)
	if err != nil {
		return JobPage{}, err
	}
	size := clampPageSize(pageSize)

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(offset).
		SetLimit(int64(size) + 1)

	cursor, err := m.db.Collections.Job.Find(ctx, bson.D{{Key: "stateName", Value: stateName}}, opts)
	if err != nil {
		return JobPage{}, fmt.Errorf("mongostore: list jobs by state: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []jobRow
	if err := cursor.All(ctx, &rows); err != nil {
		return JobPage{}, fmt.Errorf("mongostore: decode jobs by state: %w", err)
	}

	return buildJobPage(rows, offset, size), nil
}

func buildJobPage(rows []jobRow, offset int64, size int) JobPage {
	hasMore := len(rows) > size
	if hasMore {
		rows = rows[:size]
	}

	jobs := make([]domain.Job, len(rows))
	for i, r := range rows {
		jobs[i] = domain.Job{
			ID: r.ID, InvocationData: r.InvocationData, Arguments: r.Arguments,
			CreatedAt: r.CreatedAt, ExpireAt: r.ExpireAt,
			StateID: r.StateID, StateName: r.StateName,
			Queue: r.Queue, FetchedAt: r.FetchedAt,
		}
	}

	page := JobPage{Jobs: jobs}
	if hasMore {
		page.NextPageToken = EncodePageToken(offset + int64(size))
	}
	return page
}

// StateCounts maps state name to the number of jobs currently in it.
func (m *MonitoringApi) StateCounts(ctx context.Context) (map[string]int64, error) {
	pipeline := bson.A{
		bson.D{{Key: "$match", Value: bson.D{{Key: "stateName", Value: bson.D{{Key: "$ne", Value: nil}}}}}},
		bson.D{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$stateName"}, {Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}}}}},
	}
	cursor, err := m.db.Collections.Job.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("mongostore: state counts: %w", err)
	}
	defer cursor.Close(ctx)

	counts := make(map[string]int64)
	for cursor.Next(ctx) {
		var row struct {
			ID    string `bson:"_id"`
			Count int64  `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("mongostore: decode state counts: %w", err)
		}
		counts[row.ID] = row.Count
	}
	return counts, nil
}

// Statistics is the dashboard's point-in-time snapshot: per-state job
// counts plus total succeeded/deleted counts summed from both raw and
// aggregated counter tables.
type Statistics struct {
	StateCounts map[string]int64
	Succeeded   int64
	Deleted     int64
}

// GetStatistics builds the Statistics snapshot, running the state-count
// query and the two counter sums concurrently.
func (m *MonitoringApi) GetStatistics(ctx context.Context) (Statistics, error) {
	var stats Statistics
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		counts, err := m.StateCounts(gctx)
		stats.StateCounts = counts
		return err
	})
	g.Go(func() error {
		v, err := m.counterTotal(gctx, "stats:succeeded")
		stats.Succeeded = v
		return err
	})
	g.Go(func() error {
		v, err := m.counterTotal(gctx, "stats:deleted")
		stats.Deleted = v
		return err
	})

	if err := g.Wait(); err != nil {
		return Statistics{}, err
	}
	return stats, nil
}

func (m *MonitoringApi) counterTotal(ctx context.Context, key string) (int64, error) {
	pipeline := bson.A{
		bson.D{{Key: "$match", Value: bson.D{{Key: "key", Value: key}}}},
		bson.D{{Key: "$group", Value: bson.D{{Key: "_id", Value: nil}, {Key: "total", Value: bson.D{{Key: "$sum", Value: "$value"}}}}}},
	}
	cursor, err := m.db.Collections.Counter.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("mongostore: sum raw counter %q: %w", key, err)
	}
	defer cursor.Close(ctx)

	var rawTotal int64
	var agg struct {
		Total int64 `bson:"total"`
	}
	if cursor.Next(ctx) {
		if err := cursor.Decode(&agg); err != nil {
			return 0, fmt.Errorf("mongostore: decode raw counter sum %q: %w", key, err)
		}
		rawTotal = agg.Total
	}

	var row aggregatedCounterRow
	err = m.db.Collections.AggregatedCounter.FindOne(ctx, bson.D{{Key: "_id", Value: key}}).Decode(&row)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return 0, fmt.Errorf("mongostore: get aggregated counter %q: %w", key, err)
	}

	return rawTotal + row.Value, nil
}

// TimelineStats returns daily stats for the last 7 days and hourly stats
// for the last 24 hours, keyed by "stats:<type>:YYYY-MM-DD" and
// "stats:<type>:YYYY-MM-DD-HH" respectively, joining both raw and
// aggregated counter rows for each key concurrently.
func (m *MonitoringApi) TimelineStats(ctx context.Context, statType string, now time.Time) (daily map[string]int64, hourly map[string]int64, err error) {
	dailyKeys := make([]string, 0, 7)
	for i := 0; i < 7; i++ {
		day := now.AddDate(0, 0, -i)
		dailyKeys = append(dailyKeys, fmt.Sprintf("stats:%s:%s", statType, day.Format("2006-01-02")))
	}

	hourlyKeys := make([]string, 0, 24)
	for i := 0; i < 24; i++ {
		hour := now.Add(-time.Duration(i) * time.Hour)
		hourlyKeys = append(hourlyKeys, fmt.Sprintf("stats:%s:%s", statType, hour.Format("2006-01-02-15")))
	}

	g, gctx := errgroup.WithContext(ctx)
	daily = make(map[string]int64, len(dailyKeys))
	hourly = make(map[string]int64, len(hourlyKeys))
	var mu sync.Mutex

	for _, k := range dailyKeys {
		k := k
		g.Go(func() error {
			v, err := m.counterTotal(gctx, k)
			if err != nil {
				return err
			}
			mu.Lock()
			daily[k] = v
			mu.Unlock()
			return nil
		})
	}
	for _, k := range hourlyKeys {
		k := k
		g.Go(func() error {
			v, err := m.counterTotal(gctx, k)
			if err != nil {
				return err
			}
			mu.Lock()
			hourly[k] = v
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return daily, hourly, nil
}
