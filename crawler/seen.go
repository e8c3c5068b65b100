package crawler

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// SeenSet tracks identity keys already emitted during one crawl invocation.
// It is scoped to a single run and never persisted. The LRU capacity bounds
// memory on pathological inputs; with the default capacity and the page-cap
// circuit breakers eviction never occurs in practice.
type SeenSet struct {
	cache *lru.Cache[string, struct{}]
}

// NewSeenSet builds a seen-set with the given capacity.
func NewSeenSet(capacity int) (*SeenSet, error) {
	if capacity <= 0 {
		capacity = 1 << 16
	}
	cache, err := lru.New[string, struct{}](capacity)
	if err != nil {
		return nil, err
	}
	return &SeenSet{cache: cache}, nil
}

// Seen reports whether key was recorded before, recording it as a side
// effect. The first caller for a key gets false; later callers get true.
func (s *SeenSet) Seen(key string) bool {
	if _, ok := s.cache.Get(key); ok {
		return true
	}
	s.cache.Add(key, struct{}{})
	return false
}

// Len returns the number of distinct keys recorded so far.
func (s *SeenSet) Len() int {
	return s.cache.Len()
}
