package testutils

import (
	"context"
	"testing"
	"time"

	"github.com/evergreen-ci/perffarm"
	"github.com/stretchr/testify/require"
)

const testMongoDBURI = "mongodb://localhost:27017"

// NewEnvironment returns an environment connected to a local database named
// dbName, skipping the test when no database is reachable. The database is
// dropped and the environment closed when the test finishes.
func NewEnvironment(t *testing.T, dbName string) perffarm.Environment {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	env, err := perffarm.NewEnvironment(ctx, dbName, &perffarm.Configuration{
		MongoDBURI:         testMongoDBURI,
		DatabaseName:       dbName,
		MongoDBDialTimeout: time.Second,
		SocketTimeout:      time.Minute,
		NumWorkers:         2,
		Bucket: perffarm.BucketConfig{
			Type: "local",
			Name: t.TempDir(),
		},
	})
	if err != nil {
		t.Skipf("database is not available: %s", err)
	}
	require.NoError(t, env.GetDB().Drop(ctx))

	t.Cleanup(func() {
		require.NoError(t, env.GetDB().Drop(ctx))
		require.NoError(t, env.Close(ctx))
	})

	return env
}
