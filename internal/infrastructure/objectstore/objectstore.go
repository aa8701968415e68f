package objectstore

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// ObjectStore is a concurrent, in-memory KV of T indexed by int64 IDs.
//
// Data structures:
//   - byID map for O(1) lookups
//   - ids slice kept in ascending order for deterministic iteration
//
// Concurrency:
//   - Writes take the exclusive lock
//   - Reads take the shared lock
//
// Semantics:
//   - Values are stored as provided; pointer values stay live references.
//   - The store never deep-copies, so callers storing pointers share them
//     with every reader.
type ObjectStore[T any] struct {
	log *zap.Logger

	mu   sync.RWMutex // guards byID + ids
	byID map[int64]T
	ids  []int64
}

// NewObjectStore constructs a ready-to-use ObjectStore.
// No background tasks. Safe for concurrent use post-return.
func NewObjectStore[T any](log *zap.Logger) *ObjectStore[T] {
	if log == nil {
		log = zap.NewNop()
	}
	return &ObjectStore[T]{
		log:  log,
		byID: make(map[int64]T),
		ids:  make([]int64, 0),
	}
}

// Upsert inserts or overwrites value at id.
//
// Time:
//   - Overwrite existing id -> O(1)
//   - Append when id is strictly greater than current max -> amortized O(1)
//   - General insert -> O(n) for mid-slice shift
func (s *ObjectStore[T]) Upsert(id int64, value T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[id]; exists {
		s.byID[id] = value
		return
	}
	s.byID[id] = value

	// Append fast path: ids are usually handed out in ascending order.
	if n := len(s.ids); n == 0 || id > s.ids[n-1] {
		s.ids = append(s.ids, id)
		return
	}

	i := sort.Search(len(s.ids), func(j int) bool { return s.ids[j] >= id })
	s.ids = append(s.ids, 0)
	copy(s.ids[i+1:], s.ids[i:])
	s.ids[i] = id
}

// Delete removes id and reports whether it was present.
// Idempotent: deleting a missing id is a no-op.
//
// Time: O(log n) search + O(n) compaction
func (s *ObjectStore[T]) Delete(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return false
	}
	delete(s.byID, id)

	i := sort.Search(len(s.ids), func(j int) bool { return s.ids[j] >= id })
	if i < len(s.ids) && s.ids[i] == id {
		s.ids = append(s.ids[:i], s.ids[i+1:]...)
	} else {
		s.log.Warn("delete: invariant violation (id missing from ordered index)", zap.Int64("id", id))
	}
	return true
}

// GetOne returns (value, ok).
func (s *ObjectStore[T]) GetOne(id int64) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.byID[id]
	return val, ok
}

// GetList returns (ids, values) in ascending id order; slices are copies.
func (s *ObjectStore[T]) GetList() ([]int64, []T) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idsOut := make([]int64, len(s.ids))
	copy(idsOut, s.ids)

	valsOut := make([]T, len(s.ids))
	for i, id := range s.ids {
		valsOut[i] = s.byID[id]
	}
	return idsOut, valsOut
}

// Len returns the number of stored entries.
func (s *ObjectStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}
