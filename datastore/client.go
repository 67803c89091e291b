// Package datastore is a CRUD client for a single MongoDB deployment. A Client
// owns at most one live connection, reconnects on demand before each
// operation and validates every argument before touching the database.
package datastore

import (
	"context"
	"sync"

	"docstore/config"
	"docstore/log"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// operation names, used in errors, logs and metrics
const (
	opConnect = "connect"
	opPing    = "ping"
	opCreate  = "create"
	opRead    = "read"
	opUpdate  = "update"
	opDelete  = "delete"
)

// connection is the live handle set. A Client holds either all of it or none.
type connection struct {
	session    Session
	database   Database
	collection Collection
}

// Client runs create/read/update/delete against the collections of one
// database. It is safe for concurrent use.
type Client struct {
	id      string
	dialer  Dialer
	logger  *zap.SugaredLogger
	metrics *Metrics

	mu   sync.RWMutex
	cfg  config.Config // Database and Collection follow the last Connect
	conn *connection
}

// Option customizes a Client
type Option func(*Client)

// WithDialer replaces the MongoDB dialer, mostly for tests
func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// WithLogger replaces the process logger for this client
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics records the client's activity
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New builds a disconnected client. It performs no I/O.
func New(cfg config.Config, opts ...Option) *Client {
	c := &Client{
		id:     uuid.NewString(),
		dialer: MongoDialer{},
		cfg:    cfg,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.Logger()
	}
	c.logger = c.logger.With("instance", c.id, "host", cfg.Address())
	return c
}

// Open builds a client and makes one attempt to connect to the configured
// database and collection. A failed attempt is logged only; the client is
// returned either way and reconnects on its next operation.
func Open(ctx context.Context, cfg config.Config, opts ...Option) *Client {
	c := New(cfg, opts...)
	_ = c.Connect(ctx, cfg.Database, cfg.Collection)
	return c
}

// ID identifies the client in logs
func (c *Client) ID() string { return c.id }

// Connect (re)opens the connection and makes database/collection the active
// target. Any previous connection is released first. On failure the client
// is left disconnected and an ErrConnection error is returned.
func (c *Client) Connect(ctx context.Context, database, collection string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx, database, collection)
}

func (c *Client) connectLocked(ctx context.Context, database, collection string) error {
	c.releaseLocked(ctx)
	c.cfg.Database, c.cfg.Collection = database, collection

	session, err := c.dialer.Dial(ctx, c.cfg)
	if err != nil {
		opErr := newError(opConnect, collection, ErrConnection,
			errors.Wrapf(err, "connecting to %s/%s", c.cfg.Address(), database))
		c.logger.Errorw("connection to MongoDB failed", "database", database, "error", opErr.Err)
		return opErr
	}
	db := session.Database(database)
	c.setLocked(&connection{session: session, database: db, collection: db.Collection(collection)})
	c.logger.Infow("connected to MongoDB", "database", database, "collection", collection)
	return nil
}

// setLocked swaps the live connection, keeping the connection gauge in step
func (c *Client) setLocked(conn *connection) {
	switch {
	case c.conn == nil && conn != nil:
		c.metrics.connected(true)
	case c.conn != nil && conn == nil:
		c.metrics.connected(false)
	}
	c.conn = conn
}

// releaseLocked closes the live connection, if any
func (c *Client) releaseLocked(ctx context.Context) error {
	if c.conn == nil {
		return nil
	}
	session := c.conn.session
	c.setLocked(nil)
	if err := session.Close(ctx); err != nil {
		c.logger.Warnw("closing MongoDB connection failed", "error", err)
		return err
	}
	c.logger.Info("MongoDB connection closed")
	return nil
}

// Close releases the connection. Calling it on a disconnected client is a no-op.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return errors.Wrap(c.releaseLocked(ctx), "closing connection")
}

// Connected reports whether the client currently holds a live connection
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil
}

// Target returns the active database and collection names
func (c *Client) Target() (database, collection string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg.Database, c.cfg.Collection
}

// Ping checks the server is reachable, reconnecting first if needed
func (c *Client) Ping(ctx context.Context) error {
	conn, err := c.ensureConnected(ctx)
	if err != nil {
		return err
	}
	if err = conn.session.Ping(ctx); err != nil {
		return c.failed(conn, opPing, "", err)
	}
	return nil
}

// ensureConnected returns the live connection, making exactly one connect
// attempt with the active target when there is none
func (c *Client) ensureConnected(ctx context.Context) (*connection, error) {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn != nil {
		return conn, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return c.conn, nil
	}
	c.metrics.reconnect()
	c.logger.Infow("not connected, reconnecting", "database", c.cfg.Database)
	if err := c.connectLocked(ctx, c.cfg.Database, c.cfg.Collection); err != nil {
		return nil, err
	}
	return c.conn, nil
}

// failed classifies an error returned by the database. Losing the server
// drops the connection it happened on, so the next call reconnects.
func (c *Client) failed(conn *connection, op, collection string, err error) error {
	kind := ErrOperation
	if connectionLost(err) {
		kind = ErrConnection
		c.drop(conn)
	}
	opErr := newError(op, collection, kind, err)
	c.logger.Errorw(op+" operation failed", "collection", collection, "error", err)
	return opErr
}

func (c *Client) drop(conn *connection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != conn {
		return // already replaced by a reconnect
	}
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	_ = c.releaseLocked(ctx)
}

// invalid reports a rejected argument; nothing was sent to the database
func (c *Client) invalid(op, collection string, err error) error {
	c.logger.Warnw("invalid input", "operation", op, "collection", collection, "error", err)
	return newError(op, collection, ErrValidation, err)
}
