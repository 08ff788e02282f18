package documents

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// StagedStore remembers uploads that no verification has claimed yet.
type StagedStore interface {
	Stage(ctx context.Context, ref string, at time.Time) error
	Unstage(ctx context.Context, refs ...string) error
	StagedBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}

const stagedSetKey = "rentsafe:documents:staged"

type redisStagedStore struct {
	client redis.Cmdable
}

// NewRedisStagedStore keeps staged uploads in a sorted set scored by upload time.
func NewRedisStagedStore(client redis.Cmdable) StagedStore {
	return &redisStagedStore{client: client}
}

func (s *redisStagedStore) Stage(ctx context.Context, ref string, at time.Time) error {
	return s.client.ZAdd(ctx, stagedSetKey, redis.Z{Score: float64(at.Unix()), Member: ref}).Err()
}

func (s *redisStagedStore) Unstage(ctx context.Context, refs ...string) error {
	if len(refs) == 0 {
		return nil
	}
	members := make([]interface{}, len(refs))
	for i, r := range refs {
		members[i] = r
	}
	return s.client.ZRem(ctx, stagedSetKey, members...).Err()
}

func (s *redisStagedStore) StagedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	return s.client.ZRangeByScore(ctx, stagedSetKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff.Unix(), 10),
	}).Result()
}

type memoryStagedStore struct {
	mu     sync.Mutex
	staged map[string]time.Time
}

func NewMemoryStagedStore() StagedStore {
	return &memoryStagedStore{staged: make(map[string]time.Time)}
}

func (s *memoryStagedStore) Stage(_ context.Context, ref string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged[ref] = at
	return nil
}

func (s *memoryStagedStore) Unstage(_ context.Context, refs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range refs {
		delete(s.staged, r)
	}
	return nil
}

func (s *memoryStagedStore) StagedBefore(_ context.Context, cutoff time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for ref, at := range s.staged {
		if at.Before(cutoff) {
			out = append(out, ref)
		}
	}
	return out, nil
}
