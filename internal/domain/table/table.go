package table

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyOccupied means Occupy was called on a table that is taken.
	ErrAlreadyOccupied = errors.New("table already occupied")
	// ErrNotOccupied means Release was called on a table that is free.
	ErrNotOccupied = errors.New("table not occupied")
)

// Table is a single unit of seating capacity.
// Only two states exist: free and occupied.
type Table struct {
	id       int
	occupied bool
}

// State is a value copy of a table, safe to hand out.
type State struct {
	ID       int  `json:"id"`
	Occupied bool `json:"occupied"`
}

func New(id int) *Table {
	return &Table{id: id}
}

func (t *Table) ID() int { return t.id }

func (t *Table) IsAvailable() bool { return !t.occupied }

// Occupy transitions Free → Occupied.
func (t *Table) Occupy() error {
	if t.occupied {
		return fmt.Errorf("table %d: %w", t.id, ErrAlreadyOccupied)
	}
	t.occupied = true
	return nil
}

// Release transitions Occupied → Free.
func (t *Table) Release() error {
	if !t.occupied {
		return fmt.Errorf("table %d: %w", t.id, ErrNotOccupied)
	}
	t.occupied = false
	return nil
}

func (t *Table) State() State {
	return State{ID: t.id, Occupied: t.occupied}
}
