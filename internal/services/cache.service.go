package services

import (
	"sync"
	"time"

	"memviz/internal/models"
)

// HostCache holds the last host memory reading with a TTL
type HostCache struct {
	mu        sync.RWMutex
	value     *models.HostMemory
	cacheTime time.Time
	ttl       time.Duration
	fetch     func() (*models.HostMemory, error)
}

// NewHostCache caches fetch results for ttl
func NewHostCache(ttl time.Duration, fetch func() (*models.HostMemory, error)) *HostCache {
	if ttl <= 0 {
		ttl = time.Second
	}
	return &HostCache{ttl: ttl, fetch: fetch}
}

// isCacheValid checks if cache is still valid
func (hc *HostCache) isCacheValid() bool {
	return hc.value != nil && time.Since(hc.cacheTime) < hc.ttl
}

// Get returns cached host memory if valid, otherwise fetches fresh
func (hc *HostCache) Get() (*models.HostMemory, error) {
	hc.mu.RLock()
	if hc.isCacheValid() {
		defer hc.mu.RUnlock()
		return hc.value, nil
	}
	hc.mu.RUnlock()

	// Fetch outside the lock; it can take a while on some platforms
	value, err := hc.fetch()
	if err != nil {
		return nil, err
	}

	hc.mu.Lock()
	hc.value = value
	hc.cacheTime = time.Now()
	hc.mu.Unlock()

	return value, nil
}

// Clear drops the cached value
func (hc *HostCache) Clear() {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.value = nil
}
