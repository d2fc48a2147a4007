package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rezkam/jobmongo/internal/domain"
)

// AnnounceServer upserts a server's worker count and served queues. On
// first insert it also records startedAt; on every call it stamps
// heartbeat with the current server time.
func (c *Connection) AnnounceServer(ctx context.Context, serverID string, workerCount int, queues []string) error {
	if serverID == "" {
		return fmt.Errorf("%w: serverId is required", domain.ErrInvalidArgument)
	}

	now, err := c.db.GetServerTimeUtc(ctx)
	if err != nil {
		return err
	}

	_, err = c.db.Collections.Server.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: serverID}},
		bson.D{
			{Key: "$set", Value: bson.D{
				{Key: "workerCount", Value: workerCount},
				{Key: "queues", Value: queues},
				{Key: "heartbeat", Value: now},
			}},
			{Key: "$setOnInsert", Value: bson.D{{Key: "startedAt", Value: now}}},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongostore: announce server: %w", err)
	}
	return nil
}

// Heartbeat refreshes only serverID's heartbeat timestamp.
func (c *Connection) Heartbeat(ctx context.Context, serverID string) error {
	if serverID == "" {
		return fmt.Errorf("%w: serverId is required", domain.ErrInvalidArgument)
	}

	now, err := c.db.GetServerTimeUtc(ctx)
	if err != nil {
		return err
	}

	_, err = c.db.Collections.Server.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: serverID}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "heartbeat", Value: now}}}},
	)
	if err != nil {
		return fmt.Errorf("mongostore: heartbeat server: %w", err)
	}
	return nil
}

// RemoveTimedOutServers deletes every server whose heartbeat is older
// than server-now minus timeout, returning the count removed. A negative
// timeout is rejected before any I/O.
func (c *Connection) RemoveTimedOutServers(ctx context.Context, timeout time.Duration) (int64, error) {
	if timeout < 0 {
		return 0, fmt.Errorf("%w: timeout must not be negative", domain.ErrInvalidArgument)
	}

	now, err := c.db.GetServerTimeUtc(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := now.Add(-timeout)

	res, err := c.db.Collections.Server.DeleteMany(ctx, bson.D{{Key: "heartbeat", Value: bson.D{{Key: "$lt", Value: cutoff}}}})
	if err != nil {
		return 0, fmt.Errorf("mongostore: remove timed out servers: %w", err)
	}
	return res.DeletedCount, nil
}
