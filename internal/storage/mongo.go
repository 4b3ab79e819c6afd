package storage

import (
	"context"
	"errors"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"document-search-platform/models"
)

// MongoMetadataStore implements the metadata-store capability on a MongoDB
// collection. Records are keyed by document id (_id) and written with
// upserts, so retrying a write for the same id is safe.
type MongoMetadataStore struct {
	collection *mongo.Collection
}

func NewMongoMetadataStore(client *mongo.Client, dbName, collectionName string) *MongoMetadataStore {
	return &MongoMetadataStore{
		collection: client.Database(dbName).Collection(collectionName),
	}
}

// Put upserts the record under its id.
func (m *MongoMetadataStore) Put(ctx context.Context, record models.MetadataRecord) error {
	_, err := m.collection.ReplaceOne(ctx,
		bson.M{"_id": record.ID},
		record,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return classifyMongo("put", record.ID, err)
	}
	return nil
}

// Get returns the record for id, or nil when no record exists.
func (m *MongoMetadataStore) Get(ctx context.Context, id string) (*models.MetadataRecord, error) {
	var record models.MetadataRecord
	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, classifyMongo("get", id, err)
	}
	return &record, nil
}

// Scan returns every record whose field value contains substring. The
// substring is regexp-escaped and matched case-insensitively, mirroring a
// DynamoDB-style contains() filter. Results come back in the store's
// natural scan order.
func (m *MongoMetadataStore) Scan(ctx context.Context, field, substring string) ([]models.MetadataRecord, error) {
	filter := bson.M{
		field: bson.M{
			"$regex":   regexp.QuoteMeta(substring),
			"$options": "i",
		},
	}

	cursor, err := m.collection.Find(ctx, filter)
	if err != nil {
		return nil, classifyMongo("scan", "", err)
	}
	defer cursor.Close(ctx)

	var records []models.MetadataRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, classifyMongo("scan", "", err)
	}
	return records, nil
}

// classifyMongo maps MongoDB failures onto the error taxonomy.
func classifyMongo(op, id string, err error) error {
	kind := models.KindTransient

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		// 13 Unauthorized, 18 AuthenticationFailed
		if cmdErr.Code == 13 || cmdErr.Code == 18 {
			kind = models.KindCredential
		}
	}

	return models.WrapError(kind, "mongo."+op, id, err)
}
