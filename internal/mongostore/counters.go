package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/rezkam/jobmongo/internal/domain"
)

// GetCounter returns the current value of key: the sum of every raw
// Counter row not yet rolled up, plus the AggregatedCounter row's value
// if one exists.
func (c *Connection) GetCounter(ctx context.Context, key string) (int64, error) {
	if key == "" {
		return 0, fmt.Errorf("%w: key is required", domain.ErrInvalidArgument)
	}

	pipeline := bson.A{
		bson.D{{Key: "$match", Value: bson.D{{Key: "key", Value: key}}}},
		bson.D{{Key: "$group", Value: bson.D{{Key: "_id", Value: nil}, {Key: "total", Value: bson.D{{Key: "$sum", Value: "$value"}}}}}},
	}
	cursor, err := c.db.Collections.Counter.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("mongostore: sum raw counters: %w", err)
	}
	defer cursor.Close(ctx)

	var rawTotal int64
	var agg struct {
		Total int64 `bson:"total"`
	}
	if cursor.Next(ctx) {
		if err := cursor.Decode(&agg); err != nil {
			return 0, fmt.Errorf("mongostore: decode raw counter sum: %w", err)
		}
		rawTotal = agg.Total
	}

	var row aggregatedCounterRow
	err = c.db.Collections.AggregatedCounter.FindOne(ctx, bson.D{{Key: "_id", Value: key}}).Decode(&row)
	if err != nil && err != mongo.ErrNoDocuments {
		return 0, fmt.Errorf("mongostore: get aggregated counter: %w", err)
	}

	return rawTotal + row.Value, nil
}
