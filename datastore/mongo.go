package datastore

import (
	"context"
	"time"

	"docstore/config"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// mongodb query operators
const (
	MongoSetOperator = "$set"
)

// common fields/attributes of documents in every collection
const (
	ObjectID = "_id" // document level Primary Key
)

const closeTimeout = 10 * time.Second

// MongoDialer connects with the official driver. The connect and the health
// check share the config's server selection timeout.
type MongoDialer struct{}

func (MongoDialer) Dial(ctx context.Context, cfg config.Config) (Session, error) {
	opts := options.Client().
		ApplyURI(cfg.URI()).
		SetServerSelectionTimeout(cfg.ServerSelectionTimeout)
	ctx, cancel := context.WithTimeout(ctx, cfg.ServerSelectionTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "create mongo client")
	}
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "ping")
	}
	return &mongoSession{client: client}, nil
}

type mongoSession struct {
	client *mongo.Client
}

func (s *mongoSession) Database(name string) Database {
	return &mongoDatabase{db: s.client.Database(name)}
}

func (s *mongoSession) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *mongoSession) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type mongoDatabase struct {
	db *mongo.Database
}

func (d *mongoDatabase) Name() string { return d.db.Name() }

func (d *mongoDatabase) Collection(name string) Collection {
	return d.db.Collection(name)
}

// connectionLost reports whether err means the server is no longer reachable,
// in which case the live connection is dropped and the next call reconnects
func connectionLost(err error) bool {
	return mongo.IsNetworkError(err) ||
		mongo.IsTimeout(err) ||
		errors.Is(err, mongo.ErrClientDisconnected)
}
