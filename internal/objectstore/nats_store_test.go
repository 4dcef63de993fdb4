// Package objectstore_test tests the NATS object store implementation.
package objectstore_test

import (
	"context"
	"testing"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"

	"github.com/papercast-dev/papercast/internal/objectstore"
)

// startTestServer starts an in-memory NATS server with JetStream enabled.
func startTestServer(t *testing.T) (*server.Server, *nats.Conn) {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1 // Use a random port
	opts.JetStream = true
	opts.StoreDir = t.TempDir() // Isolate JetStream storage per test
	natsServer := test.RunServer(&opts)

	natsConnection, err := nats.Connect(natsServer.ClientURL())
	if err != nil {
		t.Fatalf("Failed to connect to test NATS server: %v", err)
	}

	return natsServer, natsConnection
}

func TestNatsObjectStore_UploadDownload(t *testing.T) {
	t.Parallel()

	natsServer, natsConnection := startTestServer(t)
	defer natsServer.Shutdown()
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	store, err := objectstore.New(jetstreamContext, "EPISODES", "")
	require.NoError(t, err)

	ctx := context.Background()
	key := "2026-08-26/episode.mp3"
	uploadData := []byte("pretend mp3 payload")

	reference, err := store.Upload(ctx, key, uploadData)
	require.NoError(t, err)
	require.Equal(t, "nats-obj://EPISODES/2026-08-26/episode.mp3", reference)

	downloadData, err := store.Download(ctx, key)
	require.NoError(t, err)
	require.Equal(t, uploadData, downloadData)
}

func TestNatsObjectStore_UploadOverwritesExistingKey(t *testing.T) {
	t.Parallel()

	natsServer, natsConnection := startTestServer(t)
	defer natsServer.Shutdown()
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	store, err := objectstore.New(jetstreamContext, "EPISODES", "")
	require.NoError(t, err)

	ctx := context.Background()
	key := "2026-08-26/episode.json"

	_, err = store.Upload(ctx, key, []byte("first run"))
	require.NoError(t, err)

	_, err = store.Upload(ctx, key, []byte("second run"))
	require.NoError(t, err)

	data, err := store.Download(ctx, key)
	require.NoError(t, err)
	require.Equal(t, []byte("second run"), data)
}

func TestNatsObjectStore_NewAppliesBucketDescription(t *testing.T) {
	t.Parallel()

	natsServer, natsConnection := startTestServer(t)
	defer natsServer.Shutdown()
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	_, err = objectstore.New(jetstreamContext, "EPISODES", "Daily episode artifacts.")
	require.NoError(t, err)

	bucket, err := jetstreamContext.ObjectStore("EPISODES")
	require.NoError(t, err)

	status, err := bucket.Status()
	require.NoError(t, err)
	require.Equal(t, "Daily episode artifacts.", status.Description())
}

func TestNatsObjectStore_NewBindsExistingBucket(t *testing.T) {
	t.Parallel()

	natsServer, natsConnection := startTestServer(t)
	defer natsServer.Shutdown()
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	first, err := objectstore.New(jetstreamContext, "EPISODES", "")
	require.NoError(t, err)

	_, err = first.Upload(context.Background(), "seed", []byte("seed"))
	require.NoError(t, err)

	second, err := objectstore.New(jetstreamContext, "EPISODES", "")
	require.NoError(t, err)

	data, err := second.Download(context.Background(), "seed")
	require.NoError(t, err)
	require.Equal(t, []byte("seed"), data)
}
