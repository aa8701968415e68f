package reservation

import "github.com/google/btree"

// freeSet holds the IDs of free tables, ordered ascending.
// lowest() gives the lowest-identity free table in O(log n), replacing a
// linear scan of the pool while keeping the same tie-break.
type freeSet struct {
	t *btree.BTreeG[int]
}

func newFreeSet(capacity int) *freeSet {
	t := btree.NewOrderedG[int](8)
	for id := 1; id <= capacity; id++ {
		t.ReplaceOrInsert(id)
	}
	return &freeSet{t: t}
}

func (f *freeSet) lowest() (int, bool) { return f.t.Min() }

// take removes id; reports whether it was free.
func (f *freeSet) take(id int) bool {
	_, ok := f.t.Delete(id)
	return ok
}

// put marks id free; reports whether it was already free.
func (f *freeSet) put(id int) bool {
	_, existed := f.t.ReplaceOrInsert(id)
	return existed
}

func (f *freeSet) len() int { return f.t.Len() }
