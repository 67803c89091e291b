package datastore

import (
	"context"
	"sync"

	"docstore/config"
	"golang.org/x/crypto/blake2b"
)

// Key identifies a connection target in a Registry: user, password, host,
// port, database and collection. Only a digest of the password is kept.
type Key struct {
	User           string
	PasswordDigest [blake2b.Size256]byte
	Host           string
	Port           int
	Database       string
	Collection     string
}

// KeyOf computes the registry key of cfg
func KeyOf(cfg config.Config) Key {
	return Key{
		User:           cfg.User,
		PasswordDigest: blake2b.Sum256([]byte(cfg.Password)),
		Host:           cfg.Host,
		Port:           cfg.Port,
		Database:       cfg.Database,
		Collection:     cfg.Collection,
	}
}

// Registry shares one Client per distinct Key. Clients live until the
// registry is closed; nothing is evicted.
type Registry struct {
	opts []Option

	mu      sync.Mutex
	entries map[Key]*registryEntry
}

// registryEntry connects its client at most once, outside the registry lock
type registryEntry struct {
	client *Client
	once   sync.Once
}

// NewRegistry returns an empty registry building its clients with opts
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		opts:    opts,
		entries: make(map[Key]*registryEntry),
	}
}

// Get returns the client for cfg, opening it on first request. Concurrent
// first requests for the same key all receive the same client once its
// first connection attempt has finished; requests for other keys do not
// wait on that attempt.
func (r *Registry) Get(ctx context.Context, cfg config.Config) *Client {
	key := KeyOf(cfg)
	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok {
		e = &registryEntry{client: New(cfg, r.opts...)}
		r.entries[key] = e
	}
	r.mu.Unlock()

	e.once.Do(func() {
		_ = e.client.Connect(ctx, cfg.Database, cfg.Collection)
	})
	return e.client
}

// Len is the number of clients held
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close closes every client and empties the registry. A connection attempt
// still in flight is waited for before its client is closed. The first
// close error is returned after all clients were attempted.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[Key]*registryEntry)
	r.mu.Unlock()

	var first error
	for _, e := range entries {
		e.once.Do(func() {})
		if err := e.client.Close(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}
