package client

import (
	"context"
	"sort"
	"sync"
)

// SavedAPI is the server side of the saved-listings toggle.
type SavedAPI interface {
	SaveProperty(ctx context.Context, id string) error
	UnsaveProperty(ctx context.Context, id string) error
}

// SavedList is the local saved-listings state. Toggle applies the change
// immediately and rolls back to the captured prior value if the server call
// fails, unless a later toggle of the same id has been applied since.
type SavedList struct {
	api     SavedAPI
	mu      sync.Mutex
	saved   map[string]bool
	version map[string]uint64
}

func NewSavedList(api SavedAPI, initial []string) *SavedList {
	s := &SavedList{
		api:     api,
		saved:   make(map[string]bool, len(initial)),
		version: make(map[string]uint64),
	}
	for _, id := range initial {
		s.saved[id] = true
	}
	return s
}

func (s *SavedList) IsSaved(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved[id]
}

// IDs returns the saved IDs, sorted.
func (s *SavedList) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.saved))
	for id, ok := range s.saved {
		if ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Toggle flips id and returns the resulting membership.
func (s *SavedList) Toggle(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	prior := s.saved[id]
	s.saved[id] = !prior
	s.version[id]++
	applied := s.version[id]
	s.mu.Unlock()

	var err error
	if prior {
		err = s.api.UnsaveProperty(ctx, id)
	} else {
		err = s.api.SaveProperty(ctx, id)
	}
	if err == nil {
		return !prior, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version[id] == applied {
		s.saved[id] = prior
	}
	return s.saved[id], err
}
