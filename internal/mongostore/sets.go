package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rezkam/jobmongo/internal/domain"
)

// GetRangeFromSet returns values for key ordered by score ascending,
// inclusive of both startingFrom and endingAt indices.
func (c *Connection) GetRangeFromSet(ctx context.Context, key string, startingFrom, endingAt int64) ([]string, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: key is required", domain.ErrInvalidArgument)
	}
	if endingAt < startingFrom {
		return nil, fmt.Errorf("%w: endingAt must be >= startingFrom", domain.ErrInvalidArgument)
	}

	limit := endingAt - startingFrom + 1
	opts := options.Find().
		SetSort(bson.D{{Key: "score", Value: 1}}).
		SetSkip(startingFrom).
		SetLimit(limit)

	cursor, err := c.db.Collections.Set.Find(ctx, bson.D{{Key: "key", Value: key}}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongostore: get range from set: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []setRow
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("mongostore: decode set range: %w", err)
	}

	values := make([]string, len(rows))
	for i, r := range rows {
		values[i] = r.Value
	}
	return values, nil
}

// GetFirstByLowestScoreFromSet returns the value with the lowest score in
// [from, to], or ("", false, nil) if none match.
func (c *Connection) GetFirstByLowestScoreFromSet(ctx context.Context, key string, from, to float64) (string, bool, error) {
	if key == "" {
		return "", false, fmt.Errorf("%w: key is required", domain.ErrInvalidArgument)
	}
	if to < from {
		return "", false, fmt.Errorf("%w: to must be >= from", domain.ErrInvalidArgument)
	}

	var row setRow
	err := c.db.Collections.Set.FindOne(ctx,
		bson.D{
			{Key: "key", Value: key},
			{Key: "score", Value: bson.D{{Key: "$gte", Value: from}, {Key: "$lte", Value: to}}},
		},
		options.FindOne().SetSort(bson.D{{Key: "score", Value: 1}}),
	).Decode(&row)
	if err == mongo.ErrNoDocuments {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("mongostore: get first by lowest score: %w", err)
	}
	return row.Value, true, nil
}

// GetSetCount returns the number of entries under key.
func (c *Connection) GetSetCount(ctx context.Context, key string) (int64, error) {
	if key == "" {
		return 0, fmt.Errorf("%w: key is required", domain.ErrInvalidArgument)
	}
	count, err := c.db.Collections.Set.CountDocuments(ctx, bson.D{{Key: "key", Value: key}})
	if err != nil {
		return 0, fmt.Errorf("mongostore: count set: %w", err)
	}
	return count, nil
}

// GetSetTtl returns the entry's remaining TTL, or a negative sentinel
// duration if it has no expiry or does not exist.
func (c *Connection) GetSetTtl(ctx context.Context, key, value string) (time.Duration, error) {
	if key == "" || value == "" {
		return 0, fmt.Errorf("%w: key and value are required", domain.ErrInvalidArgument)
	}

	var row setRow
	err := c.db.Collections.Set.FindOne(ctx, bson.D{{Key: "key", Value: key}, {Key: "value", Value: value}}).Decode(&row)
	if err != nil && err != mongo.ErrNoDocuments {
		return 0, fmt.Errorf("mongostore: get set ttl: %w", err)
	}
	if err == mongo.ErrNoDocuments || row.ExpireAt == nil {
		return -1 * time.Second, nil
	}

	now, err := c.db.GetServerTimeUtc(ctx)
	if err != nil {
		return 0, err
	}
	return row.ExpireAt.Sub(now), nil
}
