package correlator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares job slots between instances so that a webhook landing on
// any instance finds the job registered by another. Keys are not declared to
// the scripts individually, so it targets a single Redis node, not a cluster.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

var putScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current and redis.call('EXISTS', ARGV[5] .. current) == 1 then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[4])
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[4])
redis.call('ZADD', KEYS[3], ARGV[3], ARGV[1])
return 1
`)

var takeScript = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
redis.call('ZREM', KEYS[3], ARGV[1])
if not data then
	return false
end
redis.call('DEL', KEYS[1])
if redis.call('GET', KEYS[2]) == ARGV[1] then
	redis.call('DEL', KEYS[2])
end
return data
`)

// NewRedisStore creates a store under prefix. ttl bounds how long orphaned
// keys survive if no sweeper ever runs; it must exceed the job timeout.
func NewRedisStore(rdb *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "jobs:"
	}
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) slotKey(key Key) string { return s.prefix + "slot:" + key.String() }
func (s *RedisStore) jobKey(token string) string { return s.prefix + "job:" + token }
func (s *RedisStore) attemptKey(key Key) string { return s.prefix + "attempt:" + key.String() }
func (s *RedisStore) deadlinesKey() string { return s.prefix + "deadlines" }

func (s *RedisStore) NextAttempt(ctx context.Context, key Key) (int, error) {
	n, err := s.rdb.Incr(ctx, s.attemptKey(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("incr attempt: %w", err)
	}
	s.rdb.Expire(ctx, s.attemptKey(key), 30*24*time.Hour)
	return int(n), nil
}

func (s *RedisStore) Put(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	res, err := putScript.Run(ctx, s.rdb,
		[]string{s.slotKey(job.Key), s.jobKey(job.Token), s.deadlinesKey()},
		job.Token, data, job.Deadline.UnixMilli(), s.ttl.Milliseconds(), s.prefix+"job:",
	).Int()
	if err != nil {
		return fmt.Errorf("put job: %w", err)
	}
	if res == 0 {
		return ErrActiveJob
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key Key) (*Job, error) {
	token, err := s.rdb.Get(ctx, s.slotKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	return s.load(ctx, token)
}

func (s *RedisStore) load(ctx context.Context, token string) (*Job, error) {
	data, err := s.rdb.Get(ctx, s.jobKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	return &job, nil
}

func (s *RedisStore) Take(ctx context.Context, token string) (*Job, error) {
	job, err := s.load(ctx, token)
	if err != nil || job == nil {
		return nil, err
	}

	data, err := takeScript.Run(ctx, s.rdb,
		[]string{s.jobKey(token), s.slotKey(job.Key), s.deadlinesKey()},
		token,
	).Text()
	if errors.Is(err, redis.Nil) {
		// Another caller took it between the read and the script.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("take job: %w", err)
	}

	var taken Job
	if err := json.Unmarshal([]byte(data), &taken); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	return &taken, nil
}

func (s *RedisStore) Due(ctx context.Context, now time.Time) ([]Job, error) {
	tokens, err := s.rdb.ZRangeByScore(ctx, s.deadlinesKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("range deadlines: %w", err)
	}

	var due []Job
	for _, token := range tokens {
		job, err := s.load(ctx, token)
		if err != nil {
			return due, err
		}
		if job == nil {
			s.rdb.ZRem(ctx, s.deadlinesKey(), token)
			continue
		}
		due = append(due, *job)
	}
	return due, nil
}
