// Package redisstore turns a plain Redis keyspace into a small JSON document
// database: typed documents under "{kind}:{id}", per-kind id counters, an
// append-only audit stream per kind and pub/sub fan-out.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrStore wraps every transport or serialization failure.
	ErrStore = errors.New("document store failure")
	// ErrCorrupt is returned by Get when a stored payload cannot be decoded.
	ErrCorrupt = errors.New("corrupt document")
)

// KeepTTL passed to Set leaves any existing expiry on the key untouched.
const KeepTTL = redis.KeepTTL

const counterSubkey = "counter"

// Store is the document store adapter.
type Store struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Client exposes the underlying connection for components that need raw
// commands (rate limiting, health checks).
func (s *Store) Client() *redis.Client { return s.rdb }

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStore, op, err)
}

// DocumentKey builds "{prefix}:{id}".
func DocumentKey(prefix string, id int64) string {
	return prefix + ":" + strconv.FormatInt(id, 10)
}

// CounterKey builds the reserved "{prefix}:counter" key.
func CounterKey(prefix string) string {
	return prefix + ":" + counterSubkey
}

// Get decodes the document at key into dest. A missing key or an empty
// payload reports found=false with a nil error.
func (s *Store) Get(ctx context.Context, key string, dest any) (bool, error) {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, storeErr("get "+key, err)
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return true, nil
}

// Set stores doc as JSON at key, replacing any previous document. A positive
// ttl attaches an expiry in the same command; zero stores without expiry and
// KeepTTL preserves the current one.
func (s *Store) Set(ctx context.Context, key string, doc any, ttl time.Duration) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return storeErr("encode "+key, err)
	}
	if ttl < 0 && ttl != KeepTTL {
		ttl = 0
	}
	if err := s.rdb.Set(ctx, key, b, ttl).Err(); err != nil {
		return storeErr("set "+key, err)
	}
	return nil
}

// SetNX stores value only when key does not exist yet.
func (s *Store) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, storeErr("setnx "+key, err)
	}
	return ok, nil
}

// GetString returns the raw string at key, "" when absent.
func (s *Store) GetString(ctx context.Context, key string) (string, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", storeErr("get "+key, err)
	}
	return v, nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, storeErr("exists "+key, err)
	}
	return n > 0, nil
}

// Delete removes key and reports whether it existed. Missing keys are not an
// error.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Del(ctx, key).Result()
	if err != nil {
		return false, storeErr("del "+key, err)
	}
	return n > 0, nil
}

// Increment atomically bumps the counter at key. Redis serialises INCR, so
// concurrent callers always observe distinct values.
func (s *Store) Increment(ctx context.Context, key string) (int64, error) {
	n, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, storeErr("incr "+key, err)
	}
	return n, nil
}

// ScanKeys returns the document keys of a namespace ordered by numeric id.
// With id <= 0 every document matches; otherwise only "{prefix}:{id}". Only
// "{prefix}:{digits}" keys are returned, so the counter and any other
// auxiliary key under the prefix are skipped.
func (s *Store) ScanKeys(ctx context.Context, prefix string, id int64) ([]string, error) {
	pattern := prefix + ":*"
	if id > 0 {
		pattern = DocumentKey(prefix, id)
	}

	ids := make(map[string]int64)
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, storeErr("scan "+pattern, err)
		}
		for _, k := range keys {
			n, err := strconv.ParseInt(strings.TrimPrefix(k, prefix+":"), 10, 64)
			if err != nil {
				continue
			}
			ids[k] = n
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	out := make([]string, 0, len(ids))
	for k := range ids {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return ids[out[i]] < ids[out[j]] })
	return out, nil
}

// StreamEvent is one entry of an audit stream.
type StreamEvent struct {
	ID     string            `json:"id"`
	Fields map[string]string `json:"fields"`
}

// AppendToStream adds fields to stream and returns the generated entry id.
func (s *Store) AppendToStream(ctx context.Context, stream string, fields map[string]string) (string, error) {
	values := make(map[string]any, len(fields))
	for k, v := range fields {
		values[k] = v
	}
	id, err := s.rdb.XAdd(ctx, &redis.XAddArgs{Stream: stream, Values: values}).Result()
	if err != nil {
		return "", storeErr("xadd "+stream, err)
	}
	return id, nil
}

// RangeStream returns up to limit entries between start and end ("-" and "+"
// for the open ends). limit <= 0 means no limit.
func (s *Store) RangeStream(ctx context.Context, stream, start, end string, limit int64) ([]StreamEvent, error) {
	var (
		msgs []redis.XMessage
		err  error
	)
	if limit > 0 {
		msgs, err = s.rdb.XRangeN(ctx, stream, start, end, limit).Result()
	} else {
		msgs, err = s.rdb.XRange(ctx, stream, start, end).Result()
	}
	if err != nil {
		return nil, storeErr("xrange "+stream, err)
	}
	out := make([]StreamEvent, 0, len(msgs))
	for _, m := range msgs {
		fields := make(map[string]string, len(m.Values))
		for k, v := range m.Values {
			fields[k] = fmt.Sprint(v)
		}
		out = append(out, StreamEvent{ID: m.ID, Fields: fields})
	}
	return out, nil
}

// Publish sends payload on channel. Nobody listening is not an error: the
// message is simply dropped.
func (s *Store) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := s.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return storeErr("publish "+channel, err)
	}
	return nil
}

// Subscription is a live, non-replaying feed of payloads. Messages published
// before Subscribe returned are never delivered.
type Subscription struct {
	ps *redis.PubSub
	ch <-chan *redis.Message
}

// Subscribe listens on channels and returns once the server confirmed the
// subscription.
func (s *Store) Subscribe(ctx context.Context, channels ...string) (*Subscription, error) {
	ps := s.rdb.Subscribe(ctx, channels...)
	for range channels {
		if _, err := ps.Receive(ctx); err != nil {
			_ = ps.Close()
			return nil, storeErr("subscribe "+strings.Join(channels, ","), err)
		}
	}
	return &Subscription{ps: ps, ch: ps.Channel()}, nil
}

// Next blocks until the next message arrives or ctx is done. ok=false means
// the subscription is finished.
func (s *Subscription) Next(ctx context.Context) (channel string, payload []byte, ok bool) {
	select {
	case <-ctx.Done():
		return "", nil, false
	case m, open := <-s.ch:
		if !open {
			return "", nil, false
		}
		return m.Channel, []byte(m.Payload), true
	}
}

func (s *Subscription) Close() error {
	return s.ps.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return storeErr("ping", err)
	}
	return nil
}
