package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/rezkam/jobmongo/internal/domain"
)

// GetValueFromHash returns the value stored at (key, field), or
// ("", false, nil) if absent.
func (c *Connection) GetValueFromHash(ctx context.Context, key, field string) (string, bool, error) {
	if key == "" || field == "" {
		return "", false, fmt.Errorf("%w: key and field are required", domain.ErrInvalidArgument)
	}

	var row hashRow
	err := c.db.Collections.Hash.FindOne(ctx, bson.D{{Key: "key", Value: key}, {Key: "field", Value: field}}).Decode(&row)
	if err == mongo.ErrNoDocuments {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("mongostore: get value from hash: %w", err)
	}
	return row.Value, true, nil
}

// GetAllEntriesFromHash returns every field/value pair stored under key.
func (c *Connection) GetAllEntriesFromHash(ctx context.Context, key string) (map[string]string, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: key is required", domain.ErrInvalidArgument)
	}

	cursor, err := c.db.Collections.Hash.Find(ctx, bson.D{{Key: "key", Value: key}})
	if err != nil {
		return nil, fmt.Errorf("mongostore: get all entries from hash: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []hashRow
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("mongostore: decode hash entries: %w", err)
	}

	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Field] = r.Value
	}
	return out, nil
}

// GetHashCount returns the number of fields stored under key.
func (c *Connection) GetHashCount(ctx context.Context, key string) (int64, error) {
	if key == "" {
		return 0, fmt.Errorf("%w: key is required", domain.ErrInvalidArgument)
	}
	count, err := c.db.Collections.Hash.CountDocuments(ctx, bson.D{{Key: "key", Value: key}})
	if err != nil {
		return 0, fmt.Errorf("mongostore: count hash: %w", err)
	}
	return count, nil
}
