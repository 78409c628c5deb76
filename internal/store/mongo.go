package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/etabench/etabench/internal/ingest"
)

// connectTimeout bounds the initial server selection ping.
const connectTimeout = 10 * time.Second

// Query selects a run-id range from the benchmark collection. Both run-id
// bounds are inclusive; empty bounds mean unbounded. City, when set, is an
// exact-match filter on the stored label.
type Query struct {
	FromRunID string
	ToRunID   string
	City      string
	Limit     int64
}

// Mongo wraps one benchmark collection.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
	name   string
}

// Connect dials the document store and pings it. The returned Mongo is ready
// for queries against database/collection.
func Connect(ctx context.Context, uri, database, collection string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("store: connect %q: %w", uri, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	return &Mongo{
		client: client,
		coll:   client.Database(database).Collection(collection),
		name:   collection,
	}, nil
}

// FindRange returns one flat batch of raw documents matching q, sorted by
// run id ascending. Pagination, if any, is the caller's concern via q.Limit.
func (m *Mongo) FindRange(ctx context.Context, q Query) ([]ingest.RawRow, error) {
	opts := options.Find().SetSort(bson.D{{Key: "RunID", Value: 1}})
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cursor, err := m.coll.Find(ctx, buildFilter(q), opts)
	if err != nil {
		return nil, fmt.Errorf("store: find: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("store: decode: %w", err)
	}

	rows := make([]ingest.RawRow, len(docs))
	for i, doc := range docs {
		delete(doc, "_id") // driver-internal identity, not a benchmark field
		rows[i] = ingest.RawRow(doc)
	}
	return rows, nil
}

// InsertRows bulk-inserts raw rows into the collection.
func (m *Mongo) InsertRows(ctx context.Context, rows []ingest.RawRow) error {
	if len(rows) == 0 {
		return nil
	}
	docs := make([]any, len(rows))
	for i, row := range rows {
		docs[i] = bson.M(row)
	}
	if _, err := m.coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("store: insert %d rows: %w", len(rows), err)
	}
	return nil
}

// Collection returns the collection name, used in API responses.
func (m *Mongo) Collection() string { return m.name }

// Close releases the underlying client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// buildFilter translates a Query into a find filter.
func buildFilter(q Query) bson.M {
	filter := bson.M{}

	runID := bson.M{}
	if q.FromRunID != "" {
		runID["$gte"] = q.FromRunID
	}
	if q.ToRunID != "" {
		runID["$lte"] = q.ToRunID
	}
	if len(runID) > 0 {
		filter["RunID"] = runID
	}

	if q.City != "" {
		filter["City"] = q.City
	}
	return filter
}
