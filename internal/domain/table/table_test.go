package table

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableLifecycle(t *testing.T) {
	tbl := New(7)
	assert.Equal(t, 7, tbl.ID())
	assert.True(t, tbl.IsAvailable())

	assert.NoError(t, tbl.Occupy())
	assert.False(t, tbl.IsAvailable())
	assert.Equal(t, State{ID: 7, Occupied: true}, tbl.State())

	err := tbl.Occupy()
	assert.True(t, errors.Is(err, ErrAlreadyOccupied))
	assert.False(t, tbl.IsAvailable())

	assert.NoError(t, tbl.Release())
	assert.True(t, tbl.IsAvailable())

	err = tbl.Release()
	assert.ErrorIs(t, err, ErrNotOccupied)
	assert.Contains(t, err.Error(), "table 7")
	assert.True(t, tbl.IsAvailable())
}
