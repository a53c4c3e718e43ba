// Package store provides MongoDB persistence for searches and their results.
//
// Collections (all in database "som_agent"):
//   - searches – search metadata, no embedded results (TTL: 30 days)
//   - results  – individual results linked to a search via search_id (TTL: 30 days)
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/agentesom/som-api/internal/domain"
)

const (
	dbName            = "som_agent"
	searchCollection  = "searches"
	resultsCollection = "results"

	searchTTLDays = 30
)

// Client wraps a MongoDB client.
type Client struct {
	mc  *mongo.Client
	mdb *mongo.Database
}

// New connects to MongoDB and returns a store Client.
func New(ctx context.Context, uri string) (*Client, error) {
	clientOpts := options.Client().ApplyURI(uri)
	mc, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("store: mongo connect: %w", err)
	}
	if err := mc.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("store: mongo ping: %w", err)
	}

	c := &Client{mc: mc, mdb: mc.Database(dbName)}
	if err := c.ensureIndices(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Disconnect cleanly closes the MongoDB connection.
func (c *Client) Disconnect(ctx context.Context) error {
	return c.mc.Disconnect(ctx)
}

// ensureIndices creates TTL and lookup indices if missing.
func (c *Client) ensureIndices(ctx context.Context) error {
	sc := c.mdb.Collection(searchCollection)
	if _, err := sc.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
		{
			Keys: bson.D{{Key: "address_searched", Value: 1}},
		},
	}); err != nil {
		return fmt.Errorf("store: search indices: %w", err)
	}

	rc := c.mdb.Collection(resultsCollection)
	if _, err := rc.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
		{
			Keys: bson.D{{Key: "search_id", Value: 1}},
		},
	}); err != nil {
		return fmt.Errorf("store: results indices: %w", err)
	}

	return nil
}

// ─── Searches ─────────────────────────────────────────────────────────────────

// SaveSearch persists search metadata (without embedded results).
func (c *Client) SaveSearch(ctx context.Context, s *domain.StoredSearch) (string, error) {
	s.CreatedAt = time.Now().UTC()
	s.ExpiresAt = s.CreatedAt.Add(searchTTLDays * 24 * time.Hour)

	res, err := c.mdb.Collection(searchCollection).InsertOne(ctx, s)
	if err != nil {
		return "", fmt.Errorf("store: save search: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex(), nil
	}
	return "", nil
}

// FindSearch looks up the most recent search for an address.
// Returns nil, nil when not found.
func (c *Client) FindSearch(ctx context.Context, address string) (*domain.StoredSearch, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var s domain.StoredSearch
	err := c.mdb.Collection(searchCollection).FindOne(ctx, bson.M{"address_searched": address}, opts).Decode(&s)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: find search: %w", err)
	}
	return &s, nil
}

// ─── Results ──────────────────────────────────────────────────────────────────

// SaveResults inserts individual results linked to a searchID.
func (c *Client) SaveResults(ctx context.Context, searchID string, results []domain.Result) error {
	if len(results) == 0 {
		return nil
	}
	now := time.Now().UTC()
	exp := now.Add(searchTTLDays * 24 * time.Hour)

	docs := make([]any, 0, len(results))
	for _, r := range results {
		docs = append(docs, domain.StoredResult{
			SearchID:  searchID,
			Result:    r,
			CreatedAt: now,
			ExpiresAt: exp,
		})
	}

	if _, err := c.mdb.Collection(resultsCollection).InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("store: save results: %w", err)
	}
	return nil
}

// FindResultsBySearchID retrieves all results for the given searchID, in
// insertion order (which is the distance-sorted order they were saved in).
func (c *Client) FindResultsBySearchID(ctx context.Context, searchID string) ([]domain.Result, error) {
	cursor, err := c.mdb.Collection(resultsCollection).Find(ctx,
		bson.M{"search_id": searchID},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("store: find results: %w", err)
	}
	defer cursor.Close(ctx)

	var results []domain.Result
	for cursor.Next(ctx) {
		var doc domain.StoredResult
		if err := cursor.Decode(&doc); err == nil {
			results = append(results, doc.Result)
		}
	}
	return results, cursor.Err()
}
