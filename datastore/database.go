package datastore

import (
	"context"

	"docstore/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DatabaseInserter persists one new document and reports the identifier it was given
type DatabaseInserter interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

// DatabaseFinder fetches the documents from the persistent store matching the given filter
type DatabaseFinder interface {
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// DatabaseUpdater applies an update to every persisted document matching the filter
type DatabaseUpdater interface {
	UpdateMany(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

// DatabaseDeleter removes every persisted document matching the filter
type DatabaseDeleter interface {
	DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
}

// Collection is everything the client needs from a collection.
// *mongo.Collection satisfies it.
type Collection interface {
	DatabaseInserter
	DatabaseFinder
	DatabaseUpdater
	DatabaseDeleter
}

// Database hands out the collections of one database
type Database interface {
	Name() string
	Collection(name string) Collection
}

// Session is an open, health-checked connection to a server
type Session interface {
	Database(name string) Database
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Dialer opens sessions to the target described by a config
type Dialer interface {
	Dial(ctx context.Context, cfg config.Config) (Session, error)
}
