// Package mapping provides the linearizable, single-key hash->hash maps
// shared between workers during Phases 2-4 (blob_map, tree_map,
// commit_map in spec terms): every key is written at most once, and a
// conflicting write -- two workers computing different results for the
// same source hash -- is a correctness bug, not a race to paper over.
//
// A coordinator-routed channel or a lock-protected map both satisfy the
// single-writer-per-key contract; this implementation uses a mutex rather
// than sync.Map because every access here already needs the conflict check,
// which sync.Map's LoadOrStore cannot express atomically with a custom
// equality failure path.
package mapping

import (
	"sync"

	"github.com/objrw/historewrite/internal/errs"
	"github.com/objrw/historewrite/internal/hashid"
)

// Map is a concurrency-safe hash->hash mapping with set-once semantics.
type Map struct {
	mu sync.Mutex
	m  map[hashid.Hash]hashid.Hash
}

// New returns an empty Map.
func New() *Map {
	return &Map{m: make(map[hashid.Hash]hashid.Hash)}
}

// SetOrAgree records from->to. If from is already mapped, the existing
// value must equal to, or this is a ConsistencyError (two workers produced
// different rewrites for the same source hash).
func (mm *Map) SetOrAgree(name string, from, to hashid.Hash) error {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	if existing, ok := mm.m[from]; ok {
		if existing != to {
			return errs.NewConsistencyError(from.String(), existing.String(), to.String())
		}
		return nil
	}
	mm.m[from] = to
	return nil
}

// Get returns the mapping for from, and whether it exists.
func (mm *Map) Get(from hashid.Hash) (hashid.Hash, bool) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	to, ok := mm.m[from]
	return to, ok
}

// MustGet returns the mapping for from, or a MissingMappingError.
func (mm *Map) MustGet(name string, from hashid.Hash) (hashid.Hash, error) {
	to, ok := mm.Get(from)
	if !ok {
		return hashid.Hash{}, errs.NewMissingMappingError(name, from.String())
	}
	return to, nil
}

// Len reports the number of entries, for cache persistence and logging.
func (mm *Map) Len() int {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	return len(mm.m)
}

// Range calls f for every entry. f must not call back into mm.
func (mm *Map) Range(f func(from, to hashid.Hash)) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	for from, to := range mm.m {
		f(from, to)
	}
}
