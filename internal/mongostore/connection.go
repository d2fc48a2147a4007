package mongostore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rezkam/jobmongo/internal/domain"
	"github.com/rezkam/jobmongo/internal/ptr"
)

// Connection is the read/write API over the schema described in spec §3:
// jobs, parameters, states, the auxiliary set/hash/list/counter
// collections, and the server registry. A Connection is not required to
// be safe for concurrent use by itself, but the underlying collections
// are, so independent Connections against the same database never
// interfere with each other.
type Connection struct {
	db        *DbContext
	providers *QueueProviders
}

// NewConnection builds a Connection bound to dc, resolving queues through
// providers.
func NewConnection(dc *DbContext, providers *QueueProviders) *Connection {
	return &Connection{db: dc, providers: providers}
}

// NewTransaction returns a fresh WriteTransaction that will commit against
// this Connection's database.
func (c *Connection) NewTransaction() *WriteTransaction {
	return newWriteTransaction(c.db, c.providers)
}

// CreateExpiredJob inserts a job whose expireAt is createdAt+expireIn,
// along with any parameters sharing the same expiry, and returns the new
// job id.
func (c *Connection) CreateExpiredJob(ctx context.Context, invocationData, arguments string, parameters map[string]string, createdAt time.Time, expireIn time.Duration) (string, error) {
	if invocationData == "" {
		return "", fmt.Errorf("%w: invocationData is required", domain.ErrInvalidArgument)
	}

	id := uuid.NewString()
	expireAt := createdAt.Add(expireIn)

	row := jobRow{
		ID:             id,
		InvocationData: invocationData,
		Arguments:      arguments,
		CreatedAt:      createdAt,
		ExpireAt:       &expireAt,
	}
	if _, err := c.db.Collections.Job.InsertOne(ctx, row); err != nil {
		return "", fmt.Errorf("mongostore: insert job: %w", err)
	}

	if len(parameters) > 0 {
		docs := make([]interface{}, 0, len(parameters))
		for name, value := range parameters {
			docs = append(docs, jobParameterRow{JobID: id, Name: name, Value: ptr.To(value), ExpireAt: ptr.To(expireAt)})
		}
		if _, err := c.db.Collections.JobParameter.InsertMany(ctx, docs); err != nil {
			return "", fmt.Errorf("mongostore: insert job parameters: %w", err)
		}
	}

	return id, nil
}

// FetchNextJob resolves the single queue provider common to queues (or
// fails ErrMixedProviders) and delegates to its JobQueue's Dequeue.
func (c *Connection) FetchNextJob(ctx context.Context, queues []string) (*FetchedJob, error) {
	if len(queues) == 0 {
		return nil, fmt.Errorf("%w: queues must not be empty", domain.ErrInvalidArgument)
	}
	provider, err := c.providers.Resolve(queues)
	if err != nil {
		return nil, err
	}
	return provider.Queue().Dequeue(ctx, queues)
}

// SetJobParameter upserts a parameter by (jobId, name); a nil value is
// permitted.
func (c *Connection) SetJobParameter(ctx context.Context, jobID, name string, value *string) error {
	if jobID == "" {
		return fmt.Errorf("%w: jobId is required", domain.ErrInvalidArgument)
	}
	if name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidArgument)
	}

	_, err := c.db.Collections.JobParameter.UpdateOne(ctx,
		bson.D{{Key: "jobId", Value: jobID}, {Key: "name", Value: name}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "value", Value: value}}}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongostore: set job parameter: %w", err)
	}
	return nil
}

// GetJobParameter reads a parameter's value by (jobId, name); it returns
// (nil, false, nil) if no such row exists.
func (c *Connection) GetJobParameter(ctx context.Context, jobID, name string) (*string, bool, error) {
	if jobID == "" || name == "" {
		return nil, false, fmt.Errorf("%w: jobId and name are required", domain.ErrInvalidArgument)
	}

	var row jobParameterRow
	err := c.db.Collections.JobParameter.FindOne(ctx,
		bson.D{{Key: "jobId", Value: jobID}, {Key: "name", Value: name}},
	).Decode(&row)
	if err == mongo.ErrNoDocuments {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("mongostore: get job parameter: %w", err)
	}
	return row.Value, true, nil
}

// GetJobData reads a job's invocation payload. On JSON decode failure of
// Arguments (when it is expected to carry a JSON argument list), the
// failure is carried in the returned JobData.Load field rather than
// returned as an error, so dashboards keep functioning on corrupt rows.
func (c *Connection) GetJobData(ctx context.Context, jobID string) (*domain.JobData, error) {
	if jobID == "" {
		return nil, fmt.Errorf("%w: jobId is required", domain.ErrInvalidArgument)
	}

	var row jobRow
	err := c.db.Collections.Job.FindOne(ctx, bson.D{{Key: "_id", Value: jobID}}).Decode(&row)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongostore: get job data: %w", err)
	}

	job := domain.Job{
		ID:             row.ID,
		InvocationData: row.InvocationData,
		Arguments:      row.Arguments,
		CreatedAt:      row.CreatedAt,
		ExpireAt:       row.ExpireAt,
		StateID:        row.StateID,
		StateName:      row.StateName,
		Queue:          row.Queue,
		FetchedAt:      row.FetchedAt,
	}

	data := &domain.JobData{Job: job}
	if row.Arguments != "" {
		var probe interface{}
		if err := json.Unmarshal([]byte(row.Arguments), &probe); err != nil {
			data.Load = &domain.LoadException{Raw: row.Arguments, Err: err}
		}
	}
	return data, nil
}

// GetStateData reads a state row's attribute map, decoded from its
// JSON-serialized Data field. Decode failures are carried in the returned
// StateData.Load field.
func (c *Connection) GetStateData(ctx context.Context, stateID string) (*domain.StateData, error) {
	if stateID == "" {
		return nil, fmt.Errorf("%w: stateId is required", domain.ErrInvalidArgument)
	}

	var row stateRow
	err := c.db.Collections.State.FindOne(ctx, bson.D{{Key: "_id", Value: stateID}}).Decode(&row)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongostore: get state data: %w", err)
	}

	state := domain.State{
		ID:        row.ID,
		JobID:     row.JobID,
		Name:      row.Name,
		Reason:    row.Reason,
		CreatedAt: row.CreatedAt,
		ExpireAt:  row.ExpireAt,
	}

	result := &domain.StateData{State: state}
	if row.Data != "" {
		var decoded map[string]string
		if err := json.Unmarshal([]byte(row.Data), &decoded); err != nil {
			result.Load = &domain.LoadException{Raw: row.Data, Err: err}
		} else {
			state.Data = decoded
			result.State = state
		}
	}
	return result, nil
}
