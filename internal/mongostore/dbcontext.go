// Package mongostore is the MongoDB-backed storage and coordination core
// for a distributed background-job scheduler: a persistent job queue with
// invisibility-based delivery, a distributed lock, a write-only batched
// mutation layer, counter aggregation, and read-only monitoring
// projections.
package mongostore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/rezkam/jobmongo/internal/domain"
)

// RequiredSchemaVersion is the schema version this build understands. A
// persisted version higher than this refuses to start.
const RequiredSchemaVersion = 1

// serverClockRefreshInterval bounds how long a sampled server-clock offset
// is trusted before DbContext re-samples it.
const serverClockRefreshInterval = 10 * time.Minute

// collectionNames enumerates the suffixes appended to the configured
// prefix; every named collection this core owns is listed here once.
var collectionNames = struct {
	job, jobParameter, state, set, hash, list, counter, aggregatedCounter, server, lock, schema string
}{
	job:               "job",
	jobParameter:      "jobParameter",
	state:             "state",
	set:               "set",
	hash:              "hash",
	list:              "list",
	counter:           "counter",
	aggregatedCounter: "aggregatedcounter",
	server:            "server",
	lock:              "locks",
	schema:            "schema",
}

// Collections is the set of named collection handles a DbContext resolves
// once at construction time.
type Collections struct {
	Job               *mongo.Collection
	JobParameter      *mongo.Collection
	State             *mongo.Collection
	Set               *mongo.Collection
	Hash              *mongo.Collection
	List              *mongo.Collection
	Counter           *mongo.Collection
	AggregatedCounter *mongo.Collection
	Server            *mongo.Collection
	Lock              *mongo.Collection
	Schema            *mongo.Collection
}

// DbContext owns the Mongo client, the resolved collection handles, and
// the sampled server clock every other component reads time through.
type DbContext struct {
	client *mongo.Client
	db     *mongo.Database
	prefix string

	Collections Collections

	clockMu       sync.Mutex
	clockOffset   time.Duration
	clockSampleAt time.Time
}

// Config names the Mongo deployment and logical database this core
// persists into; Prefix is the collection-name prefix applied to every
// collection (spec default "hangfire").
type Config struct {
	URI      string
	Database string
	Prefix   string
}

// NewDbContext connects to the configured deployment and resolves every
// named collection handle. It does not run Init; callers call Init
// separately so schema checks and index bootstrap can be retried or
// skipped independently of connection setup.
func NewDbContext(ctx context.Context, cfg Config) (*DbContext, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("%w: mongo URI is required", domain.ErrInvalidArgument)
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("%w: database name is required", domain.ErrInvalidArgument)
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "hangfire"
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect: %w", err)
	}

	db := client.Database(cfg.Database)
	majority := options.Collection().SetWriteConcern(writeconcern.Majority())

	dc := &DbContext{
		client: client,
		db:     db,
		prefix: prefix,
		Collections: Collections{
			Job:               db.Collection(prefix + "." + collectionNames.job),
			JobParameter:      db.Collection(prefix + "." + collectionNames.jobParameter),
			State:             db.Collection(prefix + "." + collectionNames.state),
			Set:               db.Collection(prefix + "." + collectionNames.set),
			Hash:              db.Collection(prefix + "." + collectionNames.hash),
			List:              db.Collection(prefix + "." + collectionNames.list),
			Counter:           db.Collection(prefix + "." + collectionNames.counter),
			AggregatedCounter: db.Collection(prefix + "." + collectionNames.aggregatedCounter),
			Server:            db.Collection(prefix + "." + collectionNames.server),
			Lock:              db.Collection(prefix+"."+collectionNames.lock, majority),
			Schema:            db.Collection(prefix + "." + collectionNames.schema),
		},
	}

	return dc, nil
}

// Disconnect releases the underlying Mongo client.
func (dc *DbContext) Disconnect(ctx context.Context) error {
	return dc.client.Disconnect(ctx)
}

// Prefix returns the collection-name prefix this context was configured
// with.
func (dc *DbContext) Prefix() string {
	return dc.prefix
}

// Init checks the persisted schema version, refuses to proceed if it is
// newer than this build supports, upserts the version marker otherwise,
// and ensures every required index exists with the expected options.
func (dc *DbContext) Init(ctx context.Context) error {
	var doc struct {
		Version int `bson:"version"`
	}
	err := dc.Collections.Schema.FindOne(ctx, bson.D{}).Decode(&doc)
	switch {
	case err == nil:
		if doc.Version > RequiredSchemaVersion {
			return fmt.Errorf("%w: persisted=%d supported=%d", domain.ErrSchemaVersionTooNew, doc.Version, RequiredSchemaVersion)
		}
	case err == mongo.ErrNoDocuments:
		// First run against this database; fall through to upsert below.
	default:
		return fmt.Errorf("mongostore: read schema version: %w", err)
	}

	_, err = dc.Collections.Schema.UpdateOne(ctx,
		bson.D{},
		bson.D{{Key: "$set", Value: bson.D{{Key: "version", Value: RequiredSchemaVersion}}}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongostore: upsert schema version: %w", err)
	}

	return dc.ensureIndexes(ctx)
}

// GetServerTimeUtc returns the database server's own clock, sampled via
// its handshake reply and cached for serverClockRefreshInterval. Every
// expiry, TTL, and invisibility comparison in this package goes through
// this call rather than time.Now(), to avoid skew across heterogeneous
// hosts; the serverclock linter enforces that outside of this file.
func (dc *DbContext) GetServerTimeUtc(ctx context.Context) (time.Time, error) {
	dc.clockMu.Lock()
	sampleAge := time.Since(dc.clockSampleAt)
	offset := dc.clockOffset
	needsSample := dc.clockSampleAt.IsZero() || sampleAge > serverClockRefreshInterval
	dc.clockMu.Unlock()

	if !needsSample {
		return time.Now().UTC().Add(offset), nil
	}

	var reply struct {
		LocalTime time.Time `bson:"localTime"`
	}
	before := time.Now()
	if err := dc.db.RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&reply); err != nil {
		if err2 := dc.db.RunCommand(ctx, bson.D{{Key: "isMaster", Value: 1}}).Decode(&reply); err2 != nil {
			return time.Time{}, fmt.Errorf("mongostore: sample server clock: %w", err)
		}
	}
	roundTrip := time.Since(before)
	serverNow := reply.LocalTime.Add(roundTrip / 2).UTC()

	newOffset := serverNow.Sub(time.Now().UTC())

	dc.clockMu.Lock()
	dc.clockOffset = newOffset
	dc.clockSampleAt = time.Now()
	dc.clockMu.Unlock()

	return serverNow, nil
}
