package database

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/yishak-cs/FlavorAI/internal/metrics"
	"github.com/yishak-cs/FlavorAI/internal/models"
)

// ProfileBackend is the storage a CachedProfileStore fronts
type ProfileBackend interface {
	SaveProfile(ctx context.Context, p models.TasteProfile) error
	GetProfile(ctx context.Context, userID string) (models.TasteProfile, error)
}

// CachedProfileStore keeps recently used profiles in memory. Writes go through
// to the backend first and only then replace the cached copy.
type CachedProfileStore struct {
	backend ProfileBackend
	cache   *lru.Cache[string, models.TasteProfile]
	metrics *metrics.PipelineMetrics
}

// NewCachedProfileStore wraps backend with an LRU cache of the given size
func NewCachedProfileStore(backend ProfileBackend, size int, m *metrics.PipelineMetrics) (*CachedProfileStore, error) {
	cache, err := lru.New[string, models.TasteProfile](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile cache: %w", err)
	}
	return &CachedProfileStore{backend: backend, cache: cache, metrics: m}, nil
}

// SaveProfile stores p and refreshes the cached copy
func (s *CachedProfileStore) SaveProfile(ctx context.Context, p models.TasteProfile) error {
	if err := s.backend.SaveProfile(ctx, p); err != nil {
		s.cache.Remove(p.UserID)
		return err
	}
	s.cache.Add(p.UserID, p.Clone())
	return nil
}

// GetProfile serves from cache when possible
func (s *CachedProfileStore) GetProfile(ctx context.Context, userID string) (models.TasteProfile, error) {
	if p, ok := s.cache.Get(userID); ok {
		s.metrics.RecordCacheLookup(true)
		return p.Clone(), nil
	}
	s.metrics.RecordCacheLookup(false)

	p, err := s.backend.GetProfile(ctx, userID)
	if err != nil {
		return models.TasteProfile{}, err
	}
	// a SaveProfile that finished while we were reading holds the newer copy
	if found, _ := s.cache.ContainsOrAdd(userID, p.Clone()); found {
		if cached, ok := s.cache.Peek(userID); ok {
			return cached.Clone(), nil
		}
	}
	return p, nil
}

// Len reports how many profiles are cached
func (s *CachedProfileStore) Len() int {
	return s.cache.Len()
}
