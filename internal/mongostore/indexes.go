package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

// indexSpec names one desired index by the collection it belongs to and
// the IndexModel that should exist. Name is always set explicitly so
// ensureIndex can look it up in ListSpecifications and compare options.
type indexSpec struct {
	collection *mongo.Collection
	model      mongo.IndexModel
}

// ttlIndex builds the TTL index every collection carrying an expireAt
// field needs; it is the sole automatic eviction mechanism this core
// relies on (spec invariant 4 — application code never deletes expired
// rows itself).
func ttlIndex(name string) mongo.IndexModel {
	return mongo.IndexModel{
		Keys:    bson.D{{Key: "expireAt", Value: 1}},
		Options: options.Index().SetName(name).SetExpireAfterSeconds(0),
	}
}

// ensureIndexes creates every index this core requires, dropping and
// recreating any that already exist with different options so changes to
// this list stay idempotent across restarts.
func (dc *DbContext) ensureIndexes(ctx context.Context) error {
	specs := []indexSpec{
		{dc.Collections.Counter, mongo.IndexModel{Keys: bson.D{{Key: "key", Value: 1}}, Options: options.Index().SetName("key_1")}},
		{dc.Collections.Counter, ttlIndex("expireAt_ttl")},

		// AggregatedCounter keys its rows by _id (see aggregatedCounterRow),
		// which already carries a unique index implicitly; no secondary
		// key index is needed here, only the TTL sweep.
		{dc.Collections.AggregatedCounter, ttlIndex("expireAt_ttl")},

		{dc.Collections.List, mongo.IndexModel{Keys: bson.D{{Key: "key", Value: 1}}, Options: options.Index().SetName("key_1")}},
		{dc.Collections.List, ttlIndex("expireAt_ttl")},

		{dc.Collections.Set, mongo.IndexModel{Keys: bson.D{{Key: "key", Value: 1}}, Options: options.Index().SetName("key_1")}},
		{dc.Collections.Set, ttlIndex("expireAt_ttl")},

		{dc.Collections.Hash, mongo.IndexModel{Keys: bson.D{{Key: "key", Value: 1}, {Key: "field", Value: 1}}, Options: options.Index().SetName("key_1_field_1_unique").SetUnique(true)}},
		{dc.Collections.Hash, ttlIndex("expireAt_ttl")},

		{dc.Collections.JobParameter, mongo.IndexModel{Keys: bson.D{{Key: "jobId", Value: 1}, {Key: "name", Value: 1}}, Options: options.Index().SetName("jobId_1_name_1_unique").SetUnique(true)}},
		{dc.Collections.JobParameter, ttlIndex("expireAt_ttl")},

		{dc.Collections.Job, mongo.IndexModel{Keys: bson.D{{Key: "queue", Value: 1}, {Key: "fetchedAt", Value: 1}}, Options: options.Index().SetName("queue_1_fetchedAt_1_sparse").SetSparse(true)}},
		{dc.Collections.Job, mongo.IndexModel{Keys: bson.D{{Key: "stateName", Value: 1}, {Key: "_id", Value: 1}}, Options: options.Index().SetName("stateName_1__id_1")}},
		{dc.Collections.Job, ttlIndex("expireAt_ttl")},

		{dc.Collections.State, mongo.IndexModel{Keys: bson.D{{Key: "jobId", Value: 1}, {Key: "createdAt", Value: 1}}, Options: options.Index().SetName("jobId_1_createdAt_1")}},
		{dc.Collections.State, ttlIndex("expireAt_ttl")},

		{dc.Collections.Server, ttlIndex("expireAt_ttl")},

		{dc.Collections.Lock, ttlIndex("expireAt_ttl")},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, spec := range specs {
		spec := spec
		g.Go(func() error { return ensureIndex(gctx, spec) })
	}
	return g.Wait()
}

// ensureIndex creates the desired index if missing, or if an index with
// the same name exists but different key/options, drops and recreates it.
func ensureIndex(ctx context.Context, spec indexSpec) error {
	desiredName := ""
	if spec.model.Options != nil && spec.model.Options.Name != nil {
		desiredName = *spec.model.Options.Name
	}

	cursor, err := spec.collection.Indexes().List(ctx)
	if err != nil {
		return fmt.Errorf("mongostore: list indexes on %s: %w", spec.collection.Name(), err)
	}
	var existing []bson.M
	if err := cursor.All(ctx, &existing); err != nil {
		return fmt.Errorf("mongostore: decode index list on %s: %w", spec.collection.Name(), err)
	}

	for _, idx := range existing {
		name, _ := idx["name"].(string)
		if name != desiredName {
			continue
		}
		if indexMatches(idx, spec.model) {
			return nil
		}
		if _, err := spec.collection.Indexes().DropOne(ctx, name); err != nil {
			return fmt.Errorf("mongostore: drop stale index %s on %s: %w", name, spec.collection.Name(), err)
		}
		break
	}

	if _, err := spec.collection.Indexes().CreateOne(ctx, spec.model); err != nil {
		return fmt.Errorf("mongostore: create index %s on %s: %w", desiredName, spec.collection.Name(), err)
	}
	return nil
}

// indexMatches compares a decoded index specification against the desired
// model on the options that matter for this core: uniqueness, sparseness,
// and TTL seconds. Key order is assumed stable since specs above never
// reorder an existing index's keys without renaming it.
func indexMatches(existing bson.M, model mongo.IndexModel) bool {
	wantUnique := model.Options != nil && model.Options.Unique != nil && *model.Options.Unique
	gotUnique, _ := existing["unique"].(bool)
	if wantUnique != gotUnique {
		return false
	}

	wantSparse := model.Options != nil && model.Options.Sparse != nil && *model.Options.Sparse
	gotSparse, _ := existing["sparse"].(bool)
	if wantSparse != gotSparse {
		return false
	}

	if model.Options != nil && model.Options.ExpireAfterSeconds != nil {
		gotTTL, ok := existing["expireAfterSeconds"]
		if !ok {
			return false
		}
		var gotSeconds int32
		switch v := gotTTL.(type) {
		case int32:
			gotSeconds = v
		case int64:
			gotSeconds = int32(v)
		case float64:
			gotSeconds = int32(v)
		}
		if gotSeconds != *model.Options.ExpireAfterSeconds {
			return false
		}
	}

	return true
}
