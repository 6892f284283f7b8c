package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/safetycheck/safetycheck/internal/schema"
)

// MemoryBackend is the in-process cache backend. Entries are stored
// serialized, so readers always get an independent copy, and expiry is
// lazy: expired entries are evicted by the read that finds them.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewMemoryBackend creates an empty in-process backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]memoryEntry)}
}

func (b *MemoryBackend) Get(_ context.Context, key string) (*schema.AnalysisResult, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !time.Now().Before(entry.expiresAt) {
		delete(b.entries, key)
		return nil, false, nil
	}

	var result schema.AnalysisResult
	if err := json.Unmarshal(entry.data, &result); err != nil {
		delete(b.entries, key)
		return nil, false, nil
	}
	return &result, true, nil
}

func (b *MemoryBackend) Set(_ context.Context, key string, result *schema.AnalysisResult, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[key] = memoryEntry{data: data, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, key)
	return nil
}

func (b *MemoryBackend) Clear(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = make(map[string]memoryEntry)
	return nil
}

func (b *MemoryBackend) Close() error { return nil }

// Len reports the number of entries, including any not yet lazily evicted.
func (b *MemoryBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
