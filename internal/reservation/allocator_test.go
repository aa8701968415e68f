package reservation

import (
	"fmt"
	"sync"
	"testing"

	"github.com/edirooss/tablemux/internal/domain/customer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAllocator(t *testing.T, capacity int, opts ...Option) (*Allocator, *customer.Directory) {
	t.Helper()
	dir := customer.NewDirectory(nil)
	a, err := New(capacity, dir, opts...)
	require.NoError(t, err)
	return a, dir
}

func register(t *testing.T, dir *customer.Directory, names ...string) []*customer.Customer {
	t.Helper()
	out := make([]*customer.Customer, len(names))
	for i, name := range names {
		c, err := dir.Register(name)
		require.NoError(t, err)
		out[i] = c
	}
	return out
}

// assertInvariants checks the ownership bookkeeping against the pool.
func assertInvariants(t *testing.T, a *Allocator) {
	t.Helper()
	a.mu.Lock()
	defer a.mu.Unlock()

	assert.LessOrEqual(t, len(a.holders), len(a.pool))
	free := 0
	for _, tbl := range a.pool {
		_, inFree := a.free.t.Get(tbl.ID())
		holder, held := a.holders[tbl.ID()]
		if tbl.IsAvailable() {
			free++
			assert.True(t, inFree, "free table %d missing from free set", tbl.ID())
			assert.False(t, held, "free table %d has a holder", tbl.ID())
		} else {
			assert.False(t, inFree, "occupied table %d in free set", tbl.ID())
			require.True(t, held, "occupied table %d has no holder", tbl.ID())
			assert.Equal(t, tbl.ID(), a.seated[holder.ID])
		}
	}
	assert.Equal(t, free, a.free.len())
	assert.Len(t, a.seated, len(a.holders))

	assert.Len(t, a.waiting, len(a.waitlist))
	for _, id := range a.waitlist {
		_, ok := a.waiting[id]
		assert.True(t, ok)
		_, seated := a.seated[id]
		assert.False(t, seated, "customer %d both seated and waiting", id)
	}
}

func TestNew_InvalidArguments(t *testing.T) {
	dir := customer.NewDirectory(nil)

	_, err := New(-1, dir)
	assert.ErrorIs(t, err, ErrInvalidCapacity)

	_, err = New(2, nil)
	assert.ErrorIs(t, err, ErrNilLiveness)

	a, err := New(0, dir)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, a.Stats())
	assert.Equal(t, PolicyHeadOnly, a.Policy())
}

func TestRequest_LowestFreeThenQueued(t *testing.T) {
	for capacity := 0; capacity <= 5; capacity++ {
		t.Run(fmt.Sprintf("capacity=%d", capacity), func(t *testing.T) {
			a, dir := newTestAllocator(t, capacity)

			for i := 1; i <= capacity; i++ {
				c := register(t, dir, fmt.Sprintf("guest-%d", i))[0]
				g, err := a.Request(c)
				require.NoError(t, err)
				assert.Equal(t, Grant{Status: StatusGranted, TableID: i}, g)
			}

			extra := register(t, dir, "overflow")[0]
			g, err := a.Request(extra)
			require.NoError(t, err)
			assert.Equal(t, Grant{Status: StatusQueued, Position: 1}, g)

			assert.Equal(t, Stats{Capacity: capacity, Occupied: capacity, Free: 0, Waiting: 1}, a.Stats())
			assertInvariants(t, a)
		})
	}
}

func TestRequest_LowestFreeAfterRelease(t *testing.T) {
	a, dir := newTestAllocator(t, 3)
	cs := register(t, dir, "A", "B", "C", "D")

	for _, c := range cs[:3] {
		_, err := a.Request(c)
		require.NoError(t, err)
	}

	_, err := a.Release(3)
	require.NoError(t, err)
	_, err = a.Release(2)
	require.NoError(t, err)

	g, err := a.Request(cs[3])
	require.NoError(t, err)
	assert.Equal(t, 2, g.TableID)
	assertInvariants(t, a)
}

func TestRequest_Errors(t *testing.T) {
	a, dir := newTestAllocator(t, 1)
	cs := register(t, dir, "A", "B")

	_, err := a.Request(nil)
	assert.ErrorIs(t, err, ErrNilCustomer)

	_, err = a.Request(cs[0])
	require.NoError(t, err)
	_, err = a.Request(cs[0])
	assert.ErrorIs(t, err, ErrDuplicateCustomer)

	g, err := a.Request(cs[1])
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, g.Status)
	_, err = a.Request(cs[1])
	assert.ErrorIs(t, err, ErrDuplicateCustomer)

	assert.Equal(t, []string{"B"}, a.ListWaiting())
	assertInvariants(t, a)
}

func TestRelease_Twice(t *testing.T) {
	a, dir := newTestAllocator(t, 2)
	c := register(t, dir, "A")[0]
	_, err := a.Request(c)
	require.NoError(t, err)

	res, err := a.Release(1)
	require.NoError(t, err)
	assert.Equal(t, StatusReleased, res.Status)
	assert.Same(t, c, res.Holder)
	assert.Nil(t, res.Reassigned)

	res, err = a.Release(1)
	require.NoError(t, err)
	assert.Equal(t, StatusAlreadyFree, res.Status)
	assert.Nil(t, res.Holder)

	// Never-occupied table behaves the same.
	res, err = a.Release(2)
	require.NoError(t, err)
	assert.Equal(t, StatusAlreadyFree, res.Status)
	assertInvariants(t, a)
}

func TestRelease_UnknownTable(t *testing.T) {
	a, _ := newTestAllocator(t, 2)
	for _, id := range []int{-1, 0, 3, 100} {
		_, err := a.Release(id)
		assert.ErrorIs(t, err, ErrUnknownTable, "table %d", id)
	}
	_, err := a.HolderOf(3)
	assert.ErrorIs(t, err, ErrUnknownTable)
	assertInvariants(t, a)
}

func TestScenario_TwoTablesFourGuests(t *testing.T) {
	a, dir := newTestAllocator(t, 2)
	cs := register(t, dir, "A", "B", "C", "D")

	want := []Grant{
		{Status: StatusGranted, TableID: 1},
		{Status: StatusGranted, TableID: 2},
		{Status: StatusQueued, Position: 1},
		{Status: StatusQueued, Position: 2},
	}
	for i, c := range cs {
		g, err := a.Request(c)
		require.NoError(t, err)
		assert.Equal(t, want[i], g, c.Name)
	}

	res, err := a.Release(1)
	require.NoError(t, err)
	require.NotNil(t, res.Reassigned)
	assert.Same(t, cs[2], res.Reassigned.Customer)
	assert.Equal(t, 1, res.Reassigned.TableID)
	assert.Empty(t, res.Dropped)

	tableID, ok := a.TableOf(cs[2].ID)
	assert.True(t, ok)
	assert.Equal(t, 1, tableID)

	assert.Equal(t, []string{"D"}, a.ListWaiting())
	assertInvariants(t, a)
}

func TestRelease_StaleHead_HeadOnly(t *testing.T) {
	a, dir := newTestAllocator(t, 1, WithPolicy(PolicyHeadOnly))
	cs := register(t, dir, "A", "B", "C")
	for _, c := range cs {
		_, err := a.Request(c)
		require.NoError(t, err)
	}
	require.NoError(t, dir.Discard(cs[1].ID))

	res, err := a.Release(1)
	require.NoError(t, err)
	assert.Equal(t, StatusReleased, res.Status)
	assert.Nil(t, res.Reassigned)
	assert.Equal(t, []int64{cs[1].ID}, res.Dropped)

	// The freed table stays free for this pass; C keeps waiting.
	holder, err := a.HolderOf(1)
	require.NoError(t, err)
	assert.Nil(t, holder)
	assert.Equal(t, []string{"C"}, a.ListWaiting())
	assert.Equal(t, Stats{Capacity: 1, Occupied: 0, Free: 1, Waiting: 1}, a.Stats())
	assertInvariants(t, a)
}

func TestRelease_StaleHead_ScanForward(t *testing.T) {
	a, dir := newTestAllocator(t, 1, WithPolicy(PolicyScanForward))
	cs := register(t, dir, "A", "B", "C", "D")
	for _, c := range cs {
		_, err := a.Request(c)
		require.NoError(t, err)
	}
	require.NoError(t, dir.Discard(cs[1].ID))

	res, err := a.Release(1)
	require.NoError(t, err)
	require.NotNil(t, res.Reassigned)
	assert.Same(t, cs[2], res.Reassigned.Customer)
	assert.Equal(t, 1, res.Reassigned.TableID)
	assert.Equal(t, []int64{cs[1].ID}, res.Dropped)

	assert.Equal(t, []string{"D"}, a.ListWaiting())
	assertInvariants(t, a)
}

func TestRelease_ScanForwardExhaustsStaleWaitlist(t *testing.T) {
	a, dir := newTestAllocator(t, 1, WithPolicy(PolicyScanForward))
	cs := register(t, dir, "A", "B", "C")
	for _, c := range cs {
		_, err := a.Request(c)
		require.NoError(t, err)
	}
	require.NoError(t, dir.Discard(cs[1].ID))
	require.NoError(t, dir.Discard(cs[2].ID))

	res, err := a.Release(1)
	require.NoError(t, err)
	assert.Nil(t, res.Reassigned)
	assert.Equal(t, []int64{cs[1].ID, cs[2].ID}, res.Dropped)
	assert.Equal(t, Stats{Capacity: 1, Occupied: 0, Free: 1, Waiting: 0}, a.Stats())
	assertInvariants(t, a)
}

func TestRelease_WaitlistGetsLowestFreeTable(t *testing.T) {
	// Head-only leaves table 1 free after a stale head; the next live
	// head is seated at the lowest free table, not the one just released.
	a, dir := newTestAllocator(t, 2)
	cs := register(t, dir, "A", "B", "C", "D")
	for _, c := range cs {
		_, err := a.Request(c)
		require.NoError(t, err)
	}
	require.NoError(t, dir.Discard(cs[2].ID))

	res, err := a.Release(1)
	require.NoError(t, err)
	assert.Nil(t, res.Reassigned)

	res, err = a.Release(2)
	require.NoError(t, err)
	require.NotNil(t, res.Reassigned)
	assert.Same(t, cs[3], res.Reassigned.Customer)
	assert.Equal(t, 1, res.Reassigned.TableID)
	assertInvariants(t, a)
}

func TestRelease_HolderDiscardedWhileSeated(t *testing.T) {
	a, dir := newTestAllocator(t, 1)
	c := register(t, dir, "Morgan")[0]
	_, err := a.Request(c)
	require.NoError(t, err)

	require.NoError(t, dir.Discard(c.ID))

	holder, err := a.HolderOf(1)
	require.NoError(t, err)
	assert.Equal(t, "Morgan", holder.Name)
	assert.Equal(t, []TableState{{ID: 1, Occupied: true, HolderID: c.ID, HolderName: "Morgan"}}, a.Tables())

	res, err := a.Release(1)
	require.NoError(t, err)
	assert.Same(t, c, res.Holder)
	assertInvariants(t, a)
}

func TestListWaiting_IdempotentAndReadOnly(t *testing.T) {
	a, dir := newTestAllocator(t, 0)
	cs := register(t, dir, "A", "B", "C")
	for _, c := range cs {
		_, err := a.Request(c)
		require.NoError(t, err)
	}
	require.NoError(t, dir.Discard(cs[1].ID))

	first := a.ListWaiting()
	second := a.ListWaiting()
	assert.Equal(t, []string{"A", "C"}, first)
	assert.Equal(t, first, second)

	// Stale entries are skipped but still counted until pruned.
	assert.Equal(t, 3, a.Stats().Waiting)
	assert.Equal(t, []WaitEntry{
		{Position: 1, CustomerID: cs[0].ID, Name: "A"},
		{Position: 2, CustomerID: cs[2].ID, Name: "C"},
	}, a.Waitlist())
	assertInvariants(t, a)
}

func TestRequest_QueuedPositionSkipsStaleEntries(t *testing.T) {
	a, dir := newTestAllocator(t, 0)
	cs := register(t, dir, "A", "B", "C")

	for _, c := range cs[:2] {
		_, err := a.Request(c)
		require.NoError(t, err)
	}
	require.NoError(t, dir.Discard(cs[0].ID))

	g, err := a.Request(cs[2])
	require.NoError(t, err)
	assert.Equal(t, Grant{Status: StatusQueued, Position: 2}, g)

	assert.Equal(t, []WaitEntry{
		{Position: 1, CustomerID: cs[1].ID, Name: "B"},
		{Position: 2, CustomerID: cs[2].ID, Name: "C"},
	}, a.Waitlist())
	assert.Equal(t, 3, a.Stats().Waiting)
	assertInvariants(t, a)
}

func TestPruneWaitlist(t *testing.T) {
	a, dir := newTestAllocator(t, 0)
	cs := register(t, dir, "A", "B", "C", "D")
	for _, c := range cs {
		_, err := a.Request(c)
		require.NoError(t, err)
	}
	require.NoError(t, dir.Discard(cs[0].ID))
	require.NoError(t, dir.Discard(cs[2].ID))

	assert.Equal(t, []int64{cs[0].ID, cs[2].ID}, a.PruneWaitlist())
	assert.Empty(t, a.PruneWaitlist())
	assert.Equal(t, []string{"B", "D"}, a.ListWaiting())
	assert.Equal(t, 2, a.Stats().Waiting)
	assertInvariants(t, a)
}

func TestCancel(t *testing.T) {
	a, dir := newTestAllocator(t, 1)
	cs := register(t, dir, "A", "B", "C")
	for _, c := range cs {
		_, err := a.Request(c)
		require.NoError(t, err)
	}

	assert.True(t, a.Cancel(cs[1].ID))
	assert.False(t, a.Cancel(cs[1].ID))
	assert.False(t, a.Cancel(cs[0].ID)) // seated, not waiting

	res, err := a.Release(1)
	require.NoError(t, err)
	require.NotNil(t, res.Reassigned)
	assert.Same(t, cs[2], res.Reassigned.Customer)

	// A cancelled customer may queue again.
	g, err := a.Request(cs[1])
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, g.Status)
	assertInvariants(t, a)
}

func TestAllocator_Concurrency(t *testing.T) {
	const capacity, guests = 5, 50
	a, dir := newTestAllocator(t, capacity)

	cs := make([]*customer.Customer, guests)
	for i := range cs {
		cs[i] = register(t, dir, fmt.Sprintf("guest-%d", i))[0]
	}

	wg := &sync.WaitGroup{}
	for _, c := range cs {
		wg.Add(1)
		go func(c *customer.Customer) {
			defer wg.Done()
			_, err := a.Request(c)
			assert.NoError(t, err)
		}(c)
	}
	wg.Wait()

	assert.Equal(t, Stats{Capacity: capacity, Occupied: capacity, Free: 0, Waiting: guests - capacity}, a.Stats())
	assertInvariants(t, a)

	// Churn: every release seats exactly one waiting guest.
	seatedTotal := capacity
	for a.Stats().Waiting > 0 {
		for id := 1; id <= capacity; id++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				_, err := a.Release(id)
				assert.NoError(t, err)
			}(id)
		}
		wg.Wait()
		seatedTotal += capacity
		assertInvariants(t, a)
	}
	assert.Equal(t, guests, seatedTotal)
	assert.Equal(t, capacity, a.Stats().Occupied)
}
