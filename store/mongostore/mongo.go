// Package mongostore implements rpq.Store on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"time"

	"github.com/jeremywhuff/rpq"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// IDField is MongoDB's identity field.
const IDField = "_id"

type Store struct {
	db *mongo.Database
}

var _ rpq.Store = (*Store)(nil)

func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

// Connect opens a client for uri and pings it before returning a Store on database.
func Connect(ctx context.Context, uri string, database string) (*Store, error) {
	opts := options.Client().ApplyURI(uri)
	opts.SetConnectTimeout(10 * time.Second).SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return New(client.Database(database)), nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}

func (s *Store) IDField() string {
	return IDField
}

func (s *Store) ParseID(id string) (any, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	return oid, nil
}

func (s *Store) Find(ctx context.Context, collection string, filters []rpq.Filter, skip, limit int64) ([]rpq.Document, error) {
	filter, err := Translate(filters)
	if err != nil {
		return nil, err
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: IDField, Value: 1}}).
		SetSkip(skip).
		SetLimit(limit)

	cur, err := s.db.Collection(collection).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	docs := make([]rpq.Document, 0)
	for cur.Next(ctx) {
		var m bson.M
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		docs = append(docs, rpq.Document(m))
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *Store) Count(ctx context.Context, collection string, filters []rpq.Filter) (int64, error) {
	filter, err := Translate(filters)
	if err != nil {
		return 0, err
	}
	return s.db.Collection(collection).CountDocuments(ctx, filter)
}

func (s *Store) FindOne(ctx context.Context, collection string, id any) (rpq.Document, error) {
	var m bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{IDField: id}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, rpq.ErrNoDocument
	}
	if err != nil {
		return nil, err
	}
	return rpq.Document(m), nil
}

func (s *Store) InsertOne(ctx context.Context, collection string, doc rpq.Document) (any, error) {
	res, err := s.db.Collection(collection).InsertOne(ctx, doc)
	if err != nil {
		return nil, err
	}
	return res.InsertedID, nil
}

func (s *Store) FindOneAndUpdate(ctx context.Context, collection string, id any, set rpq.Document) (rpq.Document, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var m bson.M
	err := s.db.Collection(collection).FindOneAndUpdate(ctx, bson.M{IDField: id}, bson.M{"$set": set}, opts).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, rpq.ErrNoDocument
	}
	if err != nil {
		return nil, err
	}
	return rpq.Document(m), nil
}

func (s *Store) DeleteOne(ctx context.Context, collection string, id any) (bool, error) {
	res, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{IDField: id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}
