// Package world holds the grid the simulation's entities move across.
package world

import (
	"errors"
	"fmt"
)

var ErrOutOfBounds = errors.New("world: cell out of bounds")

// Cell is one grid square.
type Cell struct {
	Tile     uint16
	Passable bool
}

// Map is a fixed-size row-major grid of cells.
type Map struct {
	width  uint32
	height uint32
	cells  []Cell
}

// NewMap returns a height x width map of passable cells.
func NewMap(height, width uint32) *Map {
	cells := make([]Cell, int(height)*int(width))
	for i := range cells {
		cells[i].Passable = true
	}
	return &Map{width: width, height: height, cells: cells}
}

func (m *Map) Width() uint32  { return m.width }
func (m *Map) Height() uint32 { return m.height }

func (m *Map) Cell(x, y uint32) (Cell, error) {
	i, err := m.index(x, y)
	if err != nil {
		return Cell{}, err
	}
	return m.cells[i], nil
}

func (m *Map) SetCell(x, y uint32, c Cell) error {
	i, err := m.index(x, y)
	if err != nil {
		return err
	}
	m.cells[i] = c
	return nil
}

// Passable reports whether (x, y) is inside the map and walkable.
func (m *Map) Passable(x, y uint32) bool {
	c, err := m.Cell(x, y)
	return err == nil && c.Passable
}

func (m *Map) index(x, y uint32) (int, error) {
	if x >= m.width || y >= m.height {
		return 0, fmt.Errorf("%w: (%d,%d) in %dx%d", ErrOutOfBounds, x, y, m.width, m.height)
	}
	return int(y)*int(m.width) + int(x), nil
}
