// Package mongodb implements the records data-access contract for
// self-hosted deployments. Authentication stays on the hosted provider; only
// the record collections live here.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bdiallo/farmtrack/internal/domain/models"
	"github.com/bdiallo/farmtrack/internal/remote"
)

// Repository is a MongoDB-backed remote.DataStore. It plays the server's
// role in the sync protocol: it assigns ids and timestamps and returns
// canonical rows.
type Repository struct {
	client *mongo.Client
	dbName string
}

// NewRepository connects to MongoDB and verifies the connection.
func NewRepository(ctx context.Context, uri string, dbName string) (*Repository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Repository{client: client, dbName: dbName}, nil
}

// Close closes the MongoDB connection.
func (r *Repository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *Repository) collection(name string) *mongo.Collection {
	return r.client.Database(r.dbName).Collection(name)
}

// SelectOwned fetches every row owned by q.OwnerID, ordered and optionally
// limited, decoding into dest.
func (r *Repository) SelectOwned(ctx context.Context, q remote.Query, dest any) error {
	opts := options.Find()
	if q.OrderBy != "" {
		direction := 1
		if q.Descending {
			direction = -1
		}
		opts.SetSort(bson.D{{Key: q.OrderBy, Value: direction}})
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cursor, err := r.collection(q.Collection).Find(ctx, bson.M{"user_id": q.OwnerID}, opts)
	if err != nil {
		return fmt.Errorf("find %s: %w", q.Collection, err)
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, dest); err != nil {
		return fmt.Errorf("decode %s rows: %w", q.Collection, err)
	}
	return nil
}

// Insert assigns the server-owned fields (id, timestamps), stores the row,
// and decodes the canonical document into dest when dest is non-nil.
func (r *Repository) Insert(ctx context.Context, collection string, row any, dest any) error {
	doc, err := toDocument(row)
	if err != nil {
		return err
	}

	if id, ok := doc["_id"].(string); !ok || id == "" {
		doc["_id"] = uuid.NewString()
	}
	// Stamp only the timestamp fields the row type declares; weather rows
	// have no updated_at column.
	now := primitive.NewDateTimeFromTime(time.Now().UTC())
	for _, key := range []string{"created_at", "updated_at"} {
		if value, declared := doc[key]; declared && zeroDate(value) {
			doc[key] = now
		}
	}

	if _, err := r.collection(collection).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert into %s: %w", collection, err)
	}

	return decodeDocument(doc, dest)
}

// UpdateByID applies the partial update and decodes the post-update document
// into dest when dest is non-nil.
func (r *Repository) UpdateByID(ctx context.Context, collection, id string, partial map[string]any, dest any) error {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	result := r.collection(collection).FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": partial}, opts)

	var doc bson.M
	if err := result.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.NewOpError("record not found", 404)
		}
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}

	return decodeDocument(doc, dest)
}

// DeleteByID removes the row with the given id.
func (r *Repository) DeleteByID(ctx context.Context, collection, id string) error {
	result, err := r.collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if result.DeletedCount == 0 {
		return models.NewOpError("record not found", 404)
	}
	return nil
}

// Upsert replaces the document with the same id, inserting when absent, and
// decodes the stored document into dest when dest is non-nil.
func (r *Repository) Upsert(ctx context.Context, collection string, row any, dest any) error {
	doc, err := toDocument(row)
	if err != nil {
		return err
	}

	id, _ := doc["_id"].(string)
	if id == "" {
		return models.NewOpError("upsert requires an id", 400)
	}

	opts := options.FindOneAndReplace().SetUpsert(true).SetReturnDocument(options.After)
	result := r.collection(collection).FindOneAndReplace(ctx, bson.M{"_id": id}, doc, opts)

	var stored bson.M
	if err := result.Decode(&stored); err != nil {
		return fmt.Errorf("upsert %s/%s: %w", collection, id, err)
	}

	return decodeDocument(stored, dest)
}

// toDocument flattens a typed row into a mutable document.
func toDocument(row any) (bson.M, error) {
	raw, err := bson.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("marshal row: %w", err)
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("flatten row: %w", err)
	}
	return doc, nil
}

// decodeDocument round-trips a document into dest. A nil dest discards the
// canonical row.
func decodeDocument(doc bson.M, dest any) error {
	if dest == nil {
		return nil
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal canonical row: %w", err)
	}
	if err := bson.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode canonical row: %w", err)
	}
	return nil
}

// zeroDate reports whether the value is an unset timestamp. The zero
// time.Time lands in year 1 after BSON conversion.
func zeroDate(v any) bool {
	dt, ok := v.(primitive.DateTime)
	if !ok {
		return false
	}
	return dt.Time().Year() < 1971
}
