package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rezkam/jobmongo/internal/domain"
)

// GetRangeFromList returns values under key in insertion order, inclusive
// of both startingFrom and endingAt indices.
func (c *Connection) GetRangeFromList(ctx context.Context, key string, startingFrom, endingAt int64) ([]string, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: key is required", domain.ErrInvalidArgument)
	}
	if endingAt < startingFrom {
		return nil, fmt.Errorf("%w: endingAt must be >= startingFrom", domain.ErrInvalidArgument)
	}

	limit := endingAt - startingFrom + 1
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(startingFrom).
		SetLimit(limit)

	cursor, err := c.db.Collections.List.Find(ctx, bson.D{{Key: "key", Value: key}}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongostore: get range from list: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []listRow
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("mongostore: decode list range: %w", err)
	}

	values := make([]string, len(rows))
	for i, r := range rows {
		values[i] = r.Value
	}
	return values, nil
}

// GetAllItemsFromList returns every value under key in insertion order.
func (c *Connection) GetAllItemsFromList(ctx context.Context, key string) ([]string, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: key is required", domain.ErrInvalidArgument)
	}
	return c.GetRangeFromList(ctx, key, 0, 1<<31)
}

// GetListCount returns the number of entries under key.
func (c *Connection) GetListCount(ctx context.Context, key string) (int64, error) {
	if key == "" {
		return 0, fmt.Errorf("%w: key is required", domain.ErrInvalidArgument)
	}
	count, err := c.db.Collections.List.CountDocuments(ctx, bson.D{{Key: "key", Value: key}})
	if err != nil {
		return 0, fmt.Errorf("mongostore: count list: %w", err)
	}
	return count, nil
}
