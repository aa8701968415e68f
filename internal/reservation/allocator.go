package reservation

import (
	"fmt"
	"slices"
	"sync"

	"github.com/edirooss/tablemux/internal/domain/customer"
	"github.com/edirooss/tablemux/internal/domain/table"
	"go.uber.org/zap"
)

// Liveness resolves a customer ID to the live customer.
// ok=false means the owning application has discarded it.
// customer.Directory implements it.
type Liveness interface {
	Lookup(id int64) (*customer.Customer, bool)
}

// Allocator seats customers at a fixed pool of tables, first available
// (lowest table ID) wins, and keeps an arrival-ordered waitlist for the
// overflow.
//
// Ownership:
//   - pool: owned exclusively. Tables never leave the Allocator; callers
//     only ever see TableState copies.
//   - holders: shared. A seated customer is referenced by pointer and stays
//     valid while seated, even if its owner discards it meanwhile.
//     Unseating drops the reference and nothing more.
//   - waitlist: non-owning. Entries are customer IDs only and are resolved
//     through Liveness before use. A stale entry is discarded, never used.
//
// Invariants:
//   - A customer is seated at most once, or waiting at most once, never both.
//   - A table is occupied iff it has a holder iff it is absent from free.
//
// Concurrency Model:
//   - One mutex spans each public call, waitlist reprocessing included.
//   - Reprocessing calls the locked request path directly (no goroutines).
//   - No I/O happens under the lock. Lock order is Allocator → Liveness.
type Allocator struct {
	log    *zap.Logger
	live   Liveness
	policy Policy

	mu       sync.Mutex
	pool     []*table.Table             // index = table ID - 1
	free     *freeSet                   // free table IDs
	holders  map[int]*customer.Customer // table ID → holder
	seated   map[int64]int              // customer ID → table ID
	waitlist []int64                    // customer IDs, arrival order
	waiting  map[int64]struct{}         // waitlist membership
}

type Option func(*Allocator)

func WithLogger(log *zap.Logger) Option {
	return func(a *Allocator) {
		if log != nil {
			a.log = log
		}
	}
}

func WithPolicy(p Policy) Option {
	return func(a *Allocator) { a.policy = p }
}

// New builds an Allocator with tables 1..capacity.
// Capacity 0 is legal: every request queues.
func New(capacity int, live Liveness, opts ...Option) (*Allocator, error) {
	if capacity < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	if live == nil {
		return nil, ErrNilLiveness
	}

	a := &Allocator{
		log:     zap.NewNop(),
		live:    live,
		policy:  PolicyHeadOnly,
		pool:    make([]*table.Table, capacity),
		free:    newFreeSet(capacity),
		holders: make(map[int]*customer.Customer, capacity),
		seated:  make(map[int64]int, capacity),
		waiting: make(map[int64]struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.Named("allocator")

	for i := range a.pool {
		a.pool[i] = table.New(i + 1)
	}

	a.log.Info("allocator ready", zap.Int("capacity", capacity), zap.Stringer("policy", a.policy))
	return a, nil
}

// Request seats c at the lowest free table, or appends it to the waitlist.
// Queued is a normal outcome, not an error.
func (a *Allocator) Request(c *customer.Customer) (Grant, error) {
	if c == nil {
		return Grant{}, ErrNilCustomer
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if tableID, ok := a.seated[c.ID]; ok {
		return Grant{}, fmt.Errorf("customer %d at table %d: %w", c.ID, tableID, ErrDuplicateCustomer)
	}
	if _, ok := a.waiting[c.ID]; ok {
		return Grant{}, fmt.Errorf("customer %d on waitlist: %w", c.ID, ErrDuplicateCustomer)
	}

	return a.requestLocked(c), nil
}

// requestLocked is the grant path shared by Request and reprocessing.
// Caller must hold mu and have ruled out duplicates.
func (a *Allocator) requestLocked(c *customer.Customer) Grant {
	tableID, ok := a.free.lowest()
	if !ok {
		pos := a.livePositionLocked()
		a.waitlist = append(a.waitlist, c.ID)
		a.waiting[c.ID] = struct{}{}
		a.log.Debug("no table free; waitlisted",
			zap.Int64("customer_id", c.ID),
			zap.String("name", c.Name),
			zap.Int("position", pos))
		return Grant{Status: StatusQueued, Position: pos}
	}

	if err := a.pool[tableID-1].Occupy(); err != nil {
		panic(fmt.Sprintf("allocator: free set out of sync with pool: %v", err))
	}
	a.free.take(tableID)
	a.holders[tableID] = c
	a.seated[c.ID] = tableID

	a.log.Debug("table granted",
		zap.Int("table_id", tableID),
		zap.Int64("customer_id", c.ID),
		zap.String("name", c.Name))
	return Grant{Status: StatusGranted, TableID: tableID}
}

// livePositionLocked is the position a new tail entry gets, counting live
// entries only so it matches Waitlist.
func (a *Allocator) livePositionLocked() int {
	pos := 1
	for _, id := range a.waitlist {
		if _, ok := a.live.Lookup(id); ok {
			pos++
		}
	}
	return pos
}

// Release frees tableID and reprocesses the waitlist.
//   - Unknown table → ErrUnknownTable.
//   - Already free → StatusAlreadyFree, nil error (idempotent).
//   - Otherwise → StatusReleased; Reassigned is set when a waitlisted
//     customer took a table during this call.
func (a *Allocator) Release(tableID int) (ReleaseResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	t, err := a.tableLocked(tableID)
	if err != nil {
		return ReleaseResult{}, err
	}

	if t.IsAvailable() {
		a.log.Debug("release of free table ignored", zap.Int("table_id", tableID))
		return ReleaseResult{Status: StatusAlreadyFree, TableID: tableID, Dropped: []int64{}}, nil
	}

	if err := t.Release(); err != nil {
		panic(fmt.Sprintf("allocator: %v", err))
	}
	holder := a.holders[tableID]
	delete(a.holders, tableID)
	if holder != nil {
		delete(a.seated, holder.ID)
	}
	if a.free.put(tableID) {
		panic(fmt.Sprintf("allocator: table %d was occupied but listed free", tableID))
	}

	res := ReleaseResult{Status: StatusReleased, TableID: tableID, Holder: holder}
	a.log.Debug("table released", zap.Int("table_id", tableID))

	res.Reassigned, res.Dropped = a.reprocessLocked()
	return res, nil
}

// reprocessLocked offers freed capacity to the waitlist.
//
// Each head entry is popped and revalidated before use:
//   - live → seated via requestLocked, pass ends
//   - stale → discarded; PolicyHeadOnly ends the pass,
//     PolicyScanForward moves on to the next head
//
// Caller must hold mu and must have just freed a table.
func (a *Allocator) reprocessLocked() (*Assignment, []int64) {
	dropped := []int64{}

	for len(a.waitlist) > 0 {
		id := a.waitlist[0]
		a.waitlist = slices.Delete(a.waitlist, 0, 1)
		delete(a.waiting, id)

		c, ok := a.live.Lookup(id)
		if !ok {
			dropped = append(dropped, id)
			a.log.Debug("stale waitlist entry discarded",
				zap.Int64("customer_id", id), zap.Stringer("policy", a.policy))
			if a.policy == PolicyHeadOnly {
				return nil, dropped
			}
			continue
		}

		g := a.requestLocked(c)
		if g.Status != StatusGranted {
			panic(fmt.Sprintf("allocator: waitlisted customer %d not seated after release", id))
		}
		a.log.Info("waitlisted customer seated",
			zap.Int64("customer_id", c.ID),
			zap.String("name", c.Name),
			zap.Int("table_id", g.TableID))
		return &Assignment{Customer: c, TableID: g.TableID}, dropped
	}

	return nil, dropped
}

// Cancel removes customerID from the waitlist. Reports whether it was waiting.
func (a *Allocator) Cancel(customerID int64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.waiting[customerID]; !ok {
		return false
	}
	delete(a.waiting, customerID)
	a.waitlist = slices.DeleteFunc(a.waitlist, func(id int64) bool { return id == customerID })
	return true
}

// ListWaiting returns the names of live waitlisted customers in order.
// Read-only: stale entries are skipped, not pruned (see PruneWaitlist).
func (a *Allocator) ListWaiting() []string {
	entries := a.Waitlist()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

// Waitlist returns live waitlist entries in order; Position counts live
// entries only.
func (a *Allocator) Waitlist() []WaitEntry {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]WaitEntry, 0, len(a.waitlist))
	for _, id := range a.waitlist {
		c, ok := a.live.Lookup(id)
		if !ok {
			continue
		}
		out = append(out, WaitEntry{Position: len(out) + 1, CustomerID: c.ID, Name: c.Name})
	}
	return out
}

// PruneWaitlist drops every stale waitlist entry and returns their IDs.
func (a *Allocator) PruneWaitlist() []int64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	pruned := []int64{}
	kept := a.waitlist[:0]
	for _, id := range a.waitlist {
		if _, ok := a.live.Lookup(id); ok {
			kept = append(kept, id)
			continue
		}
		delete(a.waiting, id)
		pruned = append(pruned, id)
	}
	clear(a.waitlist[len(kept):])
	a.waitlist = kept

	if len(pruned) > 0 {
		a.log.Debug("waitlist pruned", zap.Int64s("customer_ids", pruned))
	}
	return pruned
}

// Tables returns every table in ID order.
func (a *Allocator) Tables() []TableState {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]TableState, len(a.pool))
	for i, t := range a.pool {
		st := t.State()
		out[i] = TableState{ID: st.ID, Occupied: st.Occupied}
		if h := a.holders[st.ID]; h != nil {
			out[i].HolderID = h.ID
			out[i].HolderName = h.Name
		}
	}
	return out
}

// HolderOf returns the customer seated at tableID, or nil if it is free.
func (a *Allocator) HolderOf(tableID int) (*customer.Customer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := a.tableLocked(tableID); err != nil {
		return nil, err
	}
	return a.holders[tableID], nil
}

// TableOf returns the table customerID is seated at.
func (a *Allocator) TableOf(customerID int64) (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id, ok := a.seated[customerID]
	return id, ok
}

func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	free := a.free.len()
	return Stats{
		Capacity: len(a.pool),
		Occupied: len(a.pool) - free,
		Free:     free,
		Waiting:  len(a.waitlist),
	}
}

func (a *Allocator) Policy() Policy { return a.policy }

// tableLocked resolves a table ID. Caller must hold mu.
func (a *Allocator) tableLocked(tableID int) (*table.Table, error) {
	if tableID < 1 || tableID > len(a.pool) {
		return nil, fmt.Errorf("table %d: %w", tableID, ErrUnknownTable)
	}
	return a.pool[tableID-1], nil
}
