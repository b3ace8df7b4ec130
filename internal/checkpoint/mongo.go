package checkpoint

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoMirror best-effort-mirrors checkpoint offsets to a "checkpoints"
// collection for cross-host observability. It is never consulted on
// resume — the file store in Store is always authoritative.
type MongoMirror struct {
	client *mongo.Client
	db     *mongo.Database
}

// ConnectMongoMirror dials MongoDB and ensures the checkpoints index
// exists. uri should include the database name, e.g.
// mongodb://localhost:27017/cedrofeed; "cedrofeed" is used if omitted.
func ConnectMongoMirror(ctx context.Context, uri string) (*MongoMirror, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("checkpoint: connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("checkpoint: ping mongo: %w", err)
	}

	dbName := "cedrofeed"
	if u, err := url.Parse(uri); err == nil {
		if name := strings.TrimPrefix(u.Path, "/"); name != "" {
			dbName = name
		}
	}
	db := client.Database(dbName)

	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "key", Value: 1}, {Key: "class", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := db.Collection("checkpoints").Indexes().CreateOne(ctx, idx); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("checkpoint: ensure index: %w", err)
	}

	log.Printf("checkpoint: connected mongo mirror (db=%s)", dbName)
	return &MongoMirror{client: client, db: db}, nil
}

// Close disconnects the mirror.
func (m *MongoMirror) Close(ctx context.Context) {
	m.client.Disconnect(ctx)
}

// DB exposes the underlying database so other best-effort mirrors (e.g.
// the archiver's cursor) can share the same connection.
func (m *MongoMirror) DB() *mongo.Database {
	return m.db
}

// Upsert records the latest offset. Errors are logged, never returned —
// the mirror must not affect tailer progress.
func (m *MongoMirror) Upsert(key string, class byte, offset int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	filter := bson.M{"key": key, "class": string(class)}
	update := bson.M{"$set": bson.M{
		"key":        key,
		"class":      string(class),
		"offset":     offset,
		"updated_at": time.Now(),
	}}
	_, err := m.db.Collection("checkpoints").UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		log.Printf("checkpoint: mongo mirror upsert failed: %v", err)
	}
}
