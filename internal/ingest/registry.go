package ingest

import (
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// DefaultRegistryCapacity bounds the dedup set before it is cleared in full.
const DefaultRegistryCapacity = 50000

// Registry remembers which paths were already submitted during this process
// lifetime. It is a capped set, not an LRU: once the size passes the cap the
// whole set is dropped, so a burst past the cap briefly allows resubmission.
type Registry struct {
	mu       sync.Mutex
	capacity int
	seen     map[string]struct{}
}

// NewRegistry returns a registry that clears itself once its size exceeds
// capacity. A non-positive capacity selects the default.
func NewRegistry(capacity int) *Registry {
	if capacity <= 0 {
		capacity = DefaultRegistryCapacity
	}
	return &Registry{
		capacity: capacity,
		seen:     make(map[string]struct{}, 1024),
	}
}

// MarkIfNew records key and reports whether it was seen for the first time.
// The check and the mark are a single atomic step, so concurrent submitters
// of the same key produce exactly one winner.
func (r *Registry) MarkIfNew(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[key]; ok {
		return false
	}
	r.seen[key] = struct{}{}
	if len(r.seen) > r.capacity {
		r.seen = make(map[string]struct{}, 1024)
	}
	return true
}

// Len reports the number of keys currently remembered.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

// NormalizeKey converts a path into its dedup identity: absolute, cleaned,
// and case-folded where the platform's paths are case-insensitive.
func NormalizeKey(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if runtime.GOOS == "windows" {
		abs = strings.ToLower(abs)
	}
	return abs, nil
}
