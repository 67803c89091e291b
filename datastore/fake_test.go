package datastore

import (
	"context"
	"reflect"
	"sync"
	"testing"

	"docstore/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// memStore keeps documents per "database.collection" and counts every
// collection call that reached it
type memStore struct {
	mu    sync.Mutex
	docs  map[string][]bson.M
	calls int
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[string][]bson.M)}
}

func (s *memStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// fakeDialer implements Dialer over a memStore
type fakeDialer struct {
	mu       sync.Mutex
	store    *memStore
	err      error      // returned by Dial when set
	override Collection // handed out instead of the memStore collections when set
	dials    int
	closes   int
	lastCfg  config.Config
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{store: newMemStore()}
}

func (d *fakeDialer) Dial(ctx context.Context, cfg config.Config) (Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	d.lastCfg = cfg
	if d.err != nil {
		return nil, d.err
	}
	return &fakeSession{dialer: d}, nil
}

func (d *fakeDialer) fail(err error) {
	d.mu.Lock()
	d.err = err
	d.mu.Unlock()
}

func (d *fakeDialer) useCollection(c Collection) {
	d.mu.Lock()
	d.override = c
	d.mu.Unlock()
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) closeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closes
}

type fakeSession struct {
	dialer *fakeDialer
}

func (s *fakeSession) Database(name string) Database {
	return &fakeDatabase{name: name, dialer: s.dialer}
}

func (s *fakeSession) Ping(ctx context.Context) error { return nil }

func (s *fakeSession) Close(ctx context.Context) error {
	s.dialer.mu.Lock()
	s.dialer.closes++
	s.dialer.mu.Unlock()
	return nil
}

type fakeDatabase struct {
	name   string
	dialer *fakeDialer
}

func (db *fakeDatabase) Name() string { return db.name }

func (db *fakeDatabase) Collection(name string) Collection {
	db.dialer.mu.Lock()
	defer db.dialer.mu.Unlock()
	if db.dialer.override != nil {
		return db.dialer.override
	}
	return &memCollection{store: db.dialer.store, name: db.name + "." + name}
}

// memCollection understands equality filters and $set updates
type memCollection struct {
	store *memStore
	name  string
}

func roundTrip(v interface{}) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	m := bson.M{}
	err = bson.Unmarshal(raw, &m)
	return m, err
}

func matches(doc, filter bson.M) bool {
	for k, v := range filter {
		if !reflect.DeepEqual(doc[k], v) {
			return false
		}
	}
	return true
}

func (c *memCollection) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	c.store.calls++
	doc, err := roundTrip(document)
	if err != nil {
		return nil, err
	}
	if _, ok := doc[ObjectID]; !ok {
		doc[ObjectID] = primitive.NewObjectID()
	}
	c.store.docs[c.name] = append(c.store.docs[c.name], doc)
	return &mongo.InsertOneResult{InsertedID: doc[ObjectID]}, nil
}

func (c *memCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	c.store.calls++
	f, err := roundTrip(filter)
	if err != nil {
		return nil, err
	}
	var found []interface{}
	for _, doc := range c.store.docs[c.name] {
		if matches(doc, f) {
			found = append(found, doc)
		}
	}
	return mongo.NewCursorFromDocuments(found, nil, nil)
}

func (c *memCollection) UpdateMany(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	c.store.calls++
	f, err := roundTrip(filter)
	if err != nil {
		return nil, err
	}
	u, err := roundTrip(update)
	if err != nil {
		return nil, err
	}
	set, err := roundTrip(u[MongoSetOperator])
	if err != nil {
		return nil, err
	}
	res := new(mongo.UpdateResult)
	for _, doc := range c.store.docs[c.name] {
		if !matches(doc, f) {
			continue
		}
		res.MatchedCount++
		if matches(doc, set) {
			continue // already holds the values
		}
		for k, v := range set {
			doc[k] = v
		}
		res.ModifiedCount++
	}
	return res, nil
}

func (c *memCollection) DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	c.store.calls++
	f, err := roundTrip(filter)
	if err != nil {
		return nil, err
	}
	res := new(mongo.DeleteResult)
	kept := c.store.docs[c.name][:0]
	for _, doc := range c.store.docs[c.name] {
		if matches(doc, f) {
			res.DeletedCount++
			continue
		}
		kept = append(kept, doc)
	}
	c.store.docs[c.name] = kept
	return res, nil
}

// failingCollection fails every call with err
type failingCollection struct {
	err error
}

func (f *failingCollection) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	return nil, f.err
}

func (f *failingCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	return nil, f.err
}

func (f *failingCollection) UpdateMany(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return nil, f.err
}

func (f *failingCollection) DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	return nil, f.err
}

var errNetwork = mongo.CommandError{Code: 6, Message: "connection reset by peer", Labels: []string{"NetworkError"}}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.User, cfg.Password = "aacuser", "secret"
	cfg.Host, cfg.Port = "localhost", 27017
	return cfg
}

// openTestClient opens a client over d and captures its diagnostics
func openTestClient(t *testing.T, d *fakeDialer, opts ...Option) (*Client, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	opts = append([]Option{WithDialer(d), WithLogger(zap.New(core).Sugar())}, opts...)
	c := Open(context.Background(), testConfig(), opts...)
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c, logs
}
