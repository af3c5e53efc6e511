package analytics

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), client
}

func TestCacheVersionAndBump(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	ver, err := cache.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), ver)

	key, err := cache.BuildKey(ctx, "ledger", "report")
	require.NoError(t, err)
	require.Equal(t, "ledger:report:v1", key)

	ver, err = cache.Bump(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), ver)

	key, err = cache.BuildKey(ctx, "ledger", "report")
	require.NoError(t, err)
	require.Equal(t, "ledger:report:v2", key)
}

func TestCacheFetchJSONLoadsOnce(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	calls := 0
	loader := func(context.Context) (interface{}, error) {
		calls++
		return map[string]int{"value": 42}, nil
	}

	for i := 0; i < 3; i++ {
		var out map[string]int
		require.NoError(t, cache.FetchJSON(ctx, "k", &out, loader))
		require.Equal(t, 42, out["value"])
	}
	if calls != 1 {
		t.Fatalf("expected loader to run once, ran %d times", calls)
	}
}

func TestCacheFetchJSONRequiresLoader(t *testing.T) {
	cache, _ := newTestCache(t)
	var out map[string]int
	require.Error(t, cache.FetchJSON(context.Background(), "k", &out, nil))
}

func TestCacheListenForInvalidation(t *testing.T) {
	cache, client := newTestCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := cache.Version(ctx)
	require.NoError(t, err)
	require.NoError(t, cache.ListenForInvalidation(ctx, ""))

	require.NoError(t, client.Publish(ctx, bumpChannel, "7").Err())
	require.Eventually(t, func() bool {
		ver, err := cache.Version(ctx)
		return err == nil && ver == 7
	}, time.Second, 10*time.Millisecond)
}

func TestFingerprintDataset(t *testing.T) {
	a, err := FingerprintDataset(sampleDataset())
	require.NoError(t, err)
	b, err := FingerprintDataset(sampleDataset())
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Len(t, a.Accounts, 16)

	ds := sampleDataset()
	ds.Invoices[1].Status = "sent"
	c, err := FingerprintDataset(ds)
	require.NoError(t, err)
	require.NotEqual(t, a.Invoices, c.Invoices)
	require.Equal(t, a.Transactions, c.Transactions)
	require.NotEqual(t, a.Key(), c.Key())
}
