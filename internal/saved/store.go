package saved

import (
	"context"
	"sort"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Store keeps the set of property IDs each user has saved.
type Store interface {
	List(ctx context.Context, userID string) ([]string, error)
	Add(ctx context.Context, userID, propertyID string) error
	Remove(ctx context.Context, userID, propertyID string) error
	Contains(ctx context.Context, userID, propertyID string) (bool, error)
}

type redisStore struct {
	client redis.Cmdable
}

func NewRedisStore(client redis.Cmdable) Store {
	return &redisStore{client: client}
}

func savedKey(userID string) string {
	return "rentsafe:saved:" + userID
}

func (s *redisStore) List(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.client.SMembers(ctx, savedKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *redisStore) Add(ctx context.Context, userID, propertyID string) error {
	return s.client.SAdd(ctx, savedKey(userID), propertyID).Err()
}

func (s *redisStore) Remove(ctx context.Context, userID, propertyID string) error {
	return s.client.SRem(ctx, savedKey(userID), propertyID).Err()
}

func (s *redisStore) Contains(ctx context.Context, userID, propertyID string) (bool, error) {
	return s.client.SIsMember(ctx, savedKey(userID), propertyID).Result()
}

type memoryStore struct {
	mu    sync.RWMutex
	saved map[string]map[string]struct{}
}

func NewMemoryStore() Store {
	return &memoryStore{saved: make(map[string]map[string]struct{})}
}

func (s *memoryStore) List(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.saved[userID]))
	for id := range s.saved[userID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *memoryStore) Add(_ context.Context, userID, propertyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.saved[userID]
	if !ok {
		set = make(map[string]struct{})
		s.saved[userID] = set
	}
	set[propertyID] = struct{}{}
	return nil
}

func (s *memoryStore) Remove(_ context.Context, userID, propertyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.saved[userID], propertyID)
	return nil
}

func (s *memoryStore) Contains(_ context.Context, userID, propertyID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.saved[userID][propertyID]
	return ok, nil
}
