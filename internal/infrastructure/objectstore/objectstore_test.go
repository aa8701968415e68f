package objectstore

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectStore_OrderedUpsert(t *testing.T) {
	s := NewObjectStore[string](nil)

	s.Upsert(3, "c")
	s.Upsert(1, "a")
	s.Upsert(2, "b")
	s.Upsert(2, "bb")

	ids, vals := s.GetList()
	assert.Equal(t, []int64{1, 2, 3}, ids)
	assert.Equal(t, []string{"a", "bb", "c"}, vals)
	assert.Equal(t, 3, s.Len())

	v, ok := s.GetOne(2)
	assert.True(t, ok)
	assert.Equal(t, "bb", v)
}

func TestObjectStore_Delete(t *testing.T) {
	s := NewObjectStore[int](nil)
	for i := int64(1); i <= 4; i++ {
		s.Upsert(i, int(i*10))
	}

	assert.True(t, s.Delete(2))
	assert.False(t, s.Delete(2))
	assert.False(t, s.Delete(99))

	_, ok := s.GetOne(2)
	assert.False(t, ok)

	ids, vals := s.GetList()
	assert.Equal(t, []int64{1, 3, 4}, ids)
	assert.Equal(t, []int{10, 30, 40}, vals)
}

func TestObjectStore_GetListIsACopy(t *testing.T) {
	s := NewObjectStore[int](nil)
	s.Upsert(1, 1)

	ids, _ := s.GetList()
	ids[0] = 42

	again, _ := s.GetList()
	assert.Equal(t, []int64{1}, again)
}

func TestObjectStore_Concurrency(t *testing.T) {
	s := NewObjectStore[int](nil)

	n := 100
	wg := &sync.WaitGroup{}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			s.Upsert(id, int(id))
			s.GetOne(id)
		}(int64(i + 1))
	}
	wg.Wait()

	ids, _ := s.GetList()
	assert.Len(t, ids, n)
	for i := 1; i < len(ids); i++ {
		assert.Less(t, ids[i-1], ids[i])
	}
}
