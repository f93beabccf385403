package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// cachedEntry is the document stored per key
type cachedEntry struct {
	Key       string     `bson:"key"`
	Value     []byte     `bson:"value"`
	CreatedAt time.Time  `bson:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at"`
	ExpiresAt *time.Time `bson:"expires_at,omitempty"`
}

// mongoCache implements Cache on a MongoDB collection. Expired documents are
// hidden from reads and removed by the TTL index on expires_at.
type mongoCache struct {
	collection *mongo.Collection
}

// NewMongoCache creates a cache over the given collection
func NewMongoCache(collection *mongo.Collection) Cache {
	return &mongoCache{collection: collection}
}

func liveFilter(key string) bson.M {
	return bson.M{
		"key": key,
		"$or": bson.A{
			bson.M{"expires_at": bson.M{"$exists": false}},
			bson.M{"expires_at": bson.M{"$gt": time.Now()}},
		},
	}
}

// Get retrieves a document value by key
func (c *mongoCache) Get(ctx context.Context, key string) ([]byte, error) {
	var entry cachedEntry
	err := c.collection.FindOne(ctx, liveFilter(key)).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, &CacheError{Operation: "get", Key: key, Err: err}
	}

	if entry.Value == nil {
		return []byte{}, nil
	}
	return entry.Value, nil
}

// Set upserts the document for key
func (c *mongoCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	now := time.Now()

	set := bson.M{
		"key":        key,
		"value":      value,
		"updated_at": now,
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"created_at": now},
	}
	if expiration > 0 {
		set["expires_at"] = now.Add(expiration)
	} else {
		update["$unset"] = bson.M{"expires_at": ""}
	}

	opts := options.Update().SetUpsert(true)
	if _, err := c.collection.UpdateOne(ctx, bson.M{"key": key}, update, opts); err != nil {
		return &CacheError{Operation: "set", Key: key, Err: err}
	}
	return nil
}

// Delete removes the document for key
func (c *mongoCache) Delete(ctx context.Context, key string) error {
	if _, err := c.collection.DeleteOne(ctx, bson.M{"key": key}); err != nil {
		return &CacheError{Operation: "delete", Key: key, Err: err}
	}
	return nil
}

// Exists reports whether an unexpired document exists for key
func (c *mongoCache) Exists(ctx context.Context, key string) (bool, error) {
	count, err := c.collection.CountDocuments(ctx, liveFilter(key), options.Count().SetLimit(1))
	if err != nil {
		return false, &CacheError{Operation: "exists", Key: key, Err: err}
	}
	return count > 0, nil
}

// Close is a no-op; the owning models.Database disconnects the client
func (c *mongoCache) Close() error {
	return nil
}

// Health pings the server
func (c *mongoCache) Health(ctx context.Context) error {
	if err := c.collection.Database().Client().Ping(ctx, nil); err != nil {
		return fmt.Errorf("MongoDB health check failed: %w", err)
	}
	return nil
}
