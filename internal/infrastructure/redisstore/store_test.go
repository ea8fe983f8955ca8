package redisstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb), mr
}

type doc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestGetMissingKeyIsAbsent(t *testing.T) {
	s, _ := setupTestStore(t)

	var d doc
	found, err := s.Get(context.Background(), "thing:1", &d)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetEmptyPayloadIsAbsent(t *testing.T) {
	s, mr := setupTestStore(t)
	require.NoError(t, mr.Set("thing:1", ""))

	var d doc
	found, err := s.Get(context.Background(), "thing:1", &d)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetCorruptPayload(t *testing.T) {
	s, mr := setupTestStore(t)
	require.NoError(t, mr.Set("thing:1", "{not json"))

	var d doc
	_, err := s.Get(context.Background(), "thing:1", &d)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestSetAndGetRoundTrip(t *testing.T) {
	s, mr := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "thing:1", doc{Name: "a", Count: 2}, 0))

	var d doc
	found, err := s.Get(ctx, "thing:1", &d)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, doc{Name: "a", Count: 2}, d)
	assert.Equal(t, time.Duration(0), mr.TTL("thing:1"))
}

func TestSetAttachesTTL(t *testing.T) {
	s, mr := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "thing:1", doc{Name: "a"}, time.Hour))
	assert.Equal(t, time.Hour, mr.TTL("thing:1"))

	mr.FastForward(time.Hour + time.Second)
	ok, err := s.Exists(ctx, "thing:1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetUnencodableDocument(t *testing.T) {
	s, mr := setupTestStore(t)

	err := s.Set(context.Background(), "thing:1", map[string]any{"f": func() {}}, 0)
	assert.ErrorIs(t, err, ErrStore)
	assert.False(t, mr.Exists("thing:1"))
}

func TestDeleteMissingKey(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	deleted, err := s.Delete(ctx, "thing:404")
	require.NoError(t, err)
	assert.False(t, deleted)

	require.NoError(t, s.Set(ctx, "thing:1", doc{}, 0))
	deleted, err = s.Delete(ctx, "thing:1")
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestIncrementConcurrent(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	const n = 50
	var (
		mu   sync.Mutex
		seen = make(map[int64]struct{}, n)
		wg   sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := s.Increment(ctx, CounterKey("thing"))
			assert.NoError(t, err)
			mu.Lock()
			seen[id] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, n)
}

func TestScanKeysExcludesCounterAndOrdersByID(t *testing.T) {
	s, mr := setupTestStore(t)
	ctx := context.Background()

	for _, k := range []string{"thing:10", "thing:2", "thing:1", "thing:counter", "other:3"} {
		require.NoError(t, mr.Set(k, "{}"))
	}

	keys, err := s.ScanKeys(ctx, "thing", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"thing:1", "thing:2", "thing:10"}, keys)

	keys, err = s.ScanKeys(ctx, "thing", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"thing:2"}, keys)

	keys, err = s.ScanKeys(ctx, "thing", 99)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestStreamAppendAndRange(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	first, err := s.AppendToStream(ctx, "stream:thing-events", map[string]string{"event": "thing_created", "thing_id": "1"})
	require.NoError(t, err)
	_, err = s.AppendToStream(ctx, "stream:thing-events", map[string]string{"event": "thing_deleted", "thing_id": "1"})
	require.NoError(t, err)

	all, err := s.RangeStream(ctx, "stream:thing-events", "-", "+", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first, all[0].ID)
	assert.Equal(t, "thing_created", all[0].Fields["event"])
	assert.Equal(t, "thing_deleted", all[1].Fields["event"])

	limited, err := s.RangeStream(ctx, "stream:thing-events", "-", "+", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestPublishSubscribe(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// nobody listening yet: dropped, not an error
	require.NoError(t, s.Publish(ctx, "things:new", []byte("lost")))

	sub, err := s.Subscribe(ctx, "things:new", "things:deleted")
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, s.Publish(ctx, "things:deleted", []byte(`{"id":1}`)))

	channel, payload, ok := sub.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, "things:deleted", channel)
	assert.JSONEq(t, `{"id":1}`, string(payload))
}

func TestSubscriptionNextStopsOnContext(t *testing.T) {
	s, _ := setupTestStore(t)
	sub, err := s.Subscribe(context.Background(), "things:new")
	require.NoError(t, err)
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, ok := sub.Next(ctx)
	assert.False(t, ok)
}
