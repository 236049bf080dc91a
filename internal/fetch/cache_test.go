package fetch

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestCachingFetcherServesRepeatedGets(t *testing.T) {
	mr, client := newTestRedis(t)
	upstream := newStub(func(string, int) ([]byte, error) { return []byte(`{"price":10}`), nil })

	f := NewCachingFetcher(upstream, client, time.Hour, nil)
	ctx := context.Background()
	params := url.Values{"sku": {"T1"}}

	for i := 0; i < 3; i++ {
		body, err := f.Get(ctx, "https://vendor.test/p", params)
		require.NoError(t, err)
		assert.Equal(t, `{"price":10}`, string(body))
	}
	assert.Equal(t, 1, upstream.count("https://vendor.test/p"))

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Equal(t, time.Hour, mr.TTL(keys[0]))

	// other params are a different entry
	_, err := f.Get(ctx, "https://vendor.test/p", url.Values{"sku": {"T2"}})
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.count("https://vendor.test/p"))
}

func TestCachingFetcherSkipsEmptyPayloads(t *testing.T) {
	mr, client := newTestRedis(t)
	upstream := newStub(func(_ string, attempt int) ([]byte, error) {
		if attempt == 1 {
			return []byte("[]"), nil
		}
		return []byte(`[1]`), nil
	})

	f := NewCachingFetcher(upstream, client, time.Minute, nil)
	ctx := context.Background()

	body, err := f.Get(ctx, "https://vendor.test/options", nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(body))
	assert.Empty(t, mr.Keys())

	body, err = f.Get(ctx, "https://vendor.test/options", nil)
	require.NoError(t, err)
	assert.Equal(t, "[1]", string(body))
	assert.Len(t, mr.Keys(), 1)
}

func TestCachingFetcherFallsThroughWhenRedisIsDown(t *testing.T) {
	mr, client := newTestRedis(t)
	upstream := newStub(func(string, int) ([]byte, error) { return []byte("ok"), nil })
	f := NewCachingFetcher(upstream, client, time.Minute, nil)

	mr.Close()

	body, err := f.Get(context.Background(), "https://vendor.test/p", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}

func TestCachingFetcherDoesNotCachePosts(t *testing.T) {
	mr, client := newTestRedis(t)
	upstream := newStub(func(string, int) ([]byte, error) { return []byte("ok"), nil })
	f := NewCachingFetcher(upstream, client, time.Minute, nil)

	for i := 0; i < 2; i++ {
		_, err := f.Post(context.Background(), "https://vendor.test/variations", []byte("{}"))
		require.NoError(t, err)
	}
	assert.Equal(t, 2, upstream.count("https://vendor.test/variations"))
	assert.Empty(t, mr.Keys())
}

func TestCachedOrchestratorStillRetriesEmptyPayloads(t *testing.T) {
	_, client := newTestRedis(t)
	upstream := newStub(func(_ string, attempt int) ([]byte, error) {
		if attempt < 3 {
			return []byte("null"), nil
		}
		return []byte(`{"price_delta": 2}`), nil
	})

	o := NewOrchestrator(NewCachingFetcher(upstream, client, time.Minute, nil), Options{})
	children, err := o.Resolve(context.Background(), testBase(), singleGroup(), perLeaf())
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.InDelta(t, 117, children[0].Price, 1e-9)
	assert.Equal(t, 3, upstream.count("https://vendor.test/variant/e"))
}

func TestCachingFetcherSkipsRejectedBodies(t *testing.T) {
	mr, client := newTestRedis(t)
	upstream := newStub(func(_ string, attempt int) ([]byte, error) {
		if attempt == 1 {
			return []byte("<html>maintenance</html>"), nil
		}
		return []byte(`{"price":10}`), nil
	})

	f := NewCachingFetcher(upstream, client, time.Hour, nil, CacheOnly(ValidJSON), WithPrefix("detail:"))
	ctx := context.Background()

	body, err := f.Get(ctx, "https://vendor.test/detail", nil)
	require.NoError(t, err)
	assert.Equal(t, "<html>maintenance</html>", string(body))
	assert.Empty(t, mr.Keys())

	for i := 0; i < 2; i++ {
		body, err = f.Get(ctx, "https://vendor.test/detail", nil)
		require.NoError(t, err)
		assert.Equal(t, `{"price":10}`, string(body))
	}
	assert.Equal(t, 2, upstream.count("https://vendor.test/detail"))

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "detail:"), keys[0])
}
