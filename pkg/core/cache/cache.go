package cache

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DefaultTTL matches the upstream data refresh cadence: DART corrections
// to a filing almost always land within a day.
const DefaultTTL = 24 * time.Hour

// Key derives a stable cache key from an operation name and its
// parameters. encoding/json sorts map keys, so equal parameter sets
// always produce the same key regardless of insertion order.
func Key(function string, params map[string]interface{}) string {
	blob, _ := json.Marshal(params)
	return fmt.Sprintf("%x", md5.Sum([]byte(function+":"+string(blob))))
}

type memoryEntry struct {
	storedAt time.Time
	data     []byte
}

type fileEntry struct {
	Timestamp time.Time       `json:"timestamp"`
	Function  string          `json:"function"`
	Params    json.RawMessage `json:"params"`
	Data      json.RawMessage `json:"data"`
}

// Cache is a two-tier store for upstream call results: a process-local
// map in front of a sharded file tree. Values are kept as marshaled JSON
// and decoded into the caller's type on Get.
type Cache struct {
	dir string
	ttl time.Duration

	mu     sync.RWMutex
	memory map[string]memoryEntry

	statMu sync.Mutex
	hits   int64
	misses int64
	saves  int64
}

func New(dir string, ttl time.Duration) (*Cache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	fmt.Printf("[DEBUG] cache initialized: %s (TTL: %s)\n", dir, ttl)
	return &Cache{
		dir:    dir,
		ttl:    ttl,
		memory: make(map[string]memoryEntry),
	}, nil
}

// path shards files by the first two hex chars of the key so a large
// cache does not pile every file into one directory.
func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key[:2], key+".cache")
}

func (c *Cache) fresh(storedAt time.Time) bool {
	return time.Since(storedAt) < c.ttl
}

// Get looks the entry up in memory first, then on disk, decoding the
// stored value into out. Expired and corrupt files are deleted on the
// way. It reports whether out was populated.
func (c *Cache) Get(function string, params map[string]interface{}, out interface{}) bool {
	key := Key(function, params)

	c.mu.RLock()
	entry, ok := c.memory[key]
	c.mu.RUnlock()
	if ok {
		if c.fresh(entry.storedAt) {
			if err := json.Unmarshal(entry.data, out); err == nil {
				c.count(&c.hits)
				return true
			}
		}
		c.mu.Lock()
		delete(c.memory, key)
		c.mu.Unlock()
	}

	path := c.path(key)
	raw, err := os.ReadFile(path)
	if err != nil {
		c.count(&c.misses)
		return false
	}

	var fe fileEntry
	if err := json.Unmarshal(raw, &fe); err != nil {
		fmt.Printf("[WARNING] removing corrupt cache file %s: %v\n", path, err)
		os.Remove(path)
		c.count(&c.misses)
		return false
	}
	if !c.fresh(fe.Timestamp) {
		os.Remove(path)
		c.count(&c.misses)
		return false
	}
	if err := json.Unmarshal(fe.Data, out); err != nil {
		fmt.Printf("[WARNING] removing unreadable cache payload %s: %v\n", path, err)
		os.Remove(path)
		c.count(&c.misses)
		return false
	}

	c.mu.Lock()
	c.memory[key] = memoryEntry{storedAt: fe.Timestamp, data: fe.Data}
	c.mu.Unlock()
	c.count(&c.hits)
	return true
}

// Set stores data in both tiers. The params are written alongside the
// payload so cache files stay inspectable.
func (c *Cache) Set(function string, params map[string]interface{}, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal cache payload: %w", err)
	}
	paramBlob, _ := json.Marshal(params)
	key := Key(function, params)
	now := time.Now()

	c.mu.Lock()
	c.memory[key] = memoryEntry{storedAt: now, data: payload}
	c.mu.Unlock()

	entry := fileEntry{Timestamp: now, Function: function, Params: paramBlob, Data: payload}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache shard: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	c.count(&c.saves)
	return nil
}

// Clear drops every entry from both tiers and reports how many files
// were removed.
func (c *Cache) Clear() (int, error) {
	c.mu.Lock()
	c.memory = make(map[string]memoryEntry)
	c.mu.Unlock()
	return c.sweep(func(time.Time) bool { return true })
}

// ClearOlderThan removes entries whose write time is older than the
// given age.
func (c *Cache) ClearOlderThan(age time.Duration) (int, error) {
	cutoff := time.Now().Add(-age)

	c.mu.Lock()
	for key, entry := range c.memory {
		if entry.storedAt.Before(cutoff) {
			delete(c.memory, key)
		}
	}
	c.mu.Unlock()

	return c.sweep(func(modTime time.Time) bool { return modTime.Before(cutoff) })
}

func (c *Cache) sweep(drop func(modTime time.Time) bool) (int, error) {
	count := 0
	err := filepath.Walk(c.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || !strings.HasSuffix(path, ".cache") {
			return nil
		}
		if drop(info.ModTime()) {
			if rmErr := os.Remove(path); rmErr == nil {
				count++
			}
		}
		return nil
	})
	return count, err
}

// Stats is a point-in-time snapshot of cache effectiveness.
type Stats struct {
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	Saves         int64   `json:"saves"`
	HitRate       float64 `json:"hit_rate"`
	MemoryEntries int     `json:"memory_entries"`
	CacheFiles    int     `json:"cache_files"`
	CacheSizeMB   float64 `json:"cache_size_mb"`
}

func (c *Cache) Stats() Stats {
	c.statMu.Lock()
	s := Stats{Hits: c.hits, Misses: c.misses, Saves: c.saves}
	c.statMu.Unlock()

	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total) * 100
	}

	c.mu.RLock()
	s.MemoryEntries = len(c.memory)
	c.mu.RUnlock()

	var size int64
	filepath.Walk(c.dir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() && strings.HasSuffix(path, ".cache") {
			s.CacheFiles++
			size += info.Size()
		}
		return nil
	})
	s.CacheSizeMB = float64(size) / 1024 / 1024
	return s
}

func (c *Cache) count(field *int64) {
	c.statMu.Lock()
	*field++
	c.statMu.Unlock()
}
