package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapCells(t *testing.T) {
	m := NewMap(3, 4)
	assert.Equal(t, uint32(4), m.Width())
	assert.Equal(t, uint32(3), m.Height())
	assert.True(t, m.Passable(3, 2))

	require.NoError(t, m.SetCell(3, 2, Cell{Tile: 9}))
	c, err := m.Cell(3, 2)
	require.NoError(t, err)
	assert.Equal(t, Cell{Tile: 9}, c)
	assert.False(t, m.Passable(3, 2))

	other, err := m.Cell(2, 3-1)
	require.NoError(t, err)
	assert.True(t, other.Passable)
}

func TestMapOutOfBounds(t *testing.T) {
	m := NewMap(2, 2)
	_, err := m.Cell(2, 0)
	require.ErrorIs(t, err, ErrOutOfBounds)
	require.ErrorIs(t, m.SetCell(0, 2, Cell{}), ErrOutOfBounds)
	assert.False(t, m.Passable(5, 5))
}
