package datastore

import (
	"context"
	"os"
	"strconv"
	"testing"

	"docstore/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// live server used by TestIntegration, e.g. DOCSTORE_TEST_HOST=localhost
const (
	testHostEnv = "DOCSTORE_TEST_HOST"
	testPortEnv = "DOCSTORE_TEST_PORT"
)

func liveConfig(t *testing.T) config.Config {
	host := os.Getenv(testHostEnv)
	if host == "" {
		t.Skipf("%s not set, skipping live MongoDB test", testHostEnv)
	}
	cfg := config.Default()
	cfg.Host = host
	cfg.Port = 27017
	if port := os.Getenv(testPortEnv); port != "" {
		p, err := strconv.Atoi(port)
		require.NoError(t, err)
		cfg.Port = p
	}
	cfg, err := config.ResolveCredentials(cfg, nil, nil)
	require.NoError(t, err)
	return cfg
}

func TestIntegration(t *testing.T) {
	cfg := liveConfig(t)
	ctx := context.Background()
	c := Open(ctx, cfg, WithLogger(zap.NewNop().Sugar()))
	defer c.Close(ctx)
	require.True(t, c.Connected(), "live server should be reachable")
	require.NoError(t, c.Ping(ctx))

	collection := cfg.Collection
	tag := uuid.NewString()
	defer func() { _, _ = c.Delete(ctx, collection, bson.M{"test_run": tag}) }()

	created, err := c.Create(ctx, collection, bson.M{"name": "Rex", "species": "dog", "test_run": tag})
	require.NoError(t, err)
	assert.True(t, created)

	docs, err := c.Read(ctx, collection, bson.M{"test_run": tag})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Rex", docs[0]["name"])
	assert.IsType(t, "", docs[0][ObjectID])

	modified, err := c.Update(ctx, collection, bson.M{"test_run": tag}, bson.M{"species": "canine"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), modified)
	modified, err = c.Update(ctx, collection, bson.M{"test_run": tag}, bson.M{"species": "canine"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), modified)

	deleted, err := c.Delete(ctx, collection, bson.M{"test_run": tag})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	docs, err = c.Read(ctx, collection, bson.M{"test_run": tag})
	assert.NoError(t, err)
	assert.Empty(t, docs)
}
