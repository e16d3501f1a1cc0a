package grid

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrDimensions  = errors.New("grid: invalid dimensions")
	ErrFrameSize   = errors.New("grid: frame size mismatch")
	ErrOutOfBounds = errors.New("grid: coordinate out of bounds")
)

// Position is a row/column pair on the field.
type Position struct {
	Row    int
	Column int
}

// State is the field at one turn. It is built once per frame and never
// mutated afterwards.
type State struct {
	width  int
	height int
	cells  []Cell
	pawn   Position
	alive  bool
}

// NewState decodes a row-major frame of width*height symbols and locates
// the pawn whose head symbol is id.
func NewState(frame string, width, height int, id rune) (*State, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrDimensions, width, height)
	}
	if width > math.MaxInt/height {
		return nil, fmt.Errorf("%w: %dx%d overflows", ErrDimensions, width, height)
	}
	symbols := []rune(frame)
	if len(symbols) != width*height {
		return nil, fmt.Errorf("%w: got %d symbols, want %d (%dx%d)", ErrFrameSize, len(symbols), width*height, width, height)
	}

	s := &State{
		width:  width,
		height: height,
		cells:  make([]Cell, len(symbols)),
	}
	for i, sym := range symbols {
		s.cells[i] = NewCell(sym)
		if sym == id {
			s.pawn = Position{Row: i / width, Column: i % width}
			s.alive = true
		}
	}
	return s, nil
}

func (s *State) Width() int  { return s.width }
func (s *State) Height() int { return s.height }

// InBounds reports whether row/column address a cell of the field.
func (s *State) InBounds(row, column int) bool {
	return row >= 0 && row < s.height && column >= 0 && column < s.width
}

// Cell returns the cell at row/column. Out-of-range coordinates are a
// caller bug and return ErrOutOfBounds.
func (s *State) Cell(row, column int) (Cell, error) {
	if !s.InBounds(row, column) {
		return Cell{}, fmt.Errorf("%w: row=%d column=%d (field is %d rows x %d columns)", ErrOutOfBounds, row, column, s.height, s.width)
	}
	return s.cells[row*s.width+column], nil
}

// MustCell is Cell for callers that treat a bad coordinate as fatal for
// the turn. It panics with the ErrOutOfBounds error.
func (s *State) MustCell(row, column int) Cell {
	c, err := s.Cell(row, column)
	if err != nil {
		panic(err)
	}
	return c
}

// CellSafe never fails: off-field coordinates read as walls.
func (s *State) CellSafe(row, column int) Cell {
	if !s.InBounds(row, column) {
		return NewCell(SymbolWall)
	}
	return s.cells[row*s.width+column]
}

// Pawn returns our pawn's position; ok is false when the pawn is gone.
func (s *State) Pawn() (Position, bool) {
	if !s.alive {
		return Position{}, false
	}
	return s.pawn, true
}

func (s *State) PawnRow() (int, bool) {
	p, ok := s.Pawn()
	return p.Row, ok
}

func (s *State) PawnColumn() (int, bool) {
	p, ok := s.Pawn()
	return p.Column, ok
}

// IsAlive reports whether our pawn's head was found in the frame.
func (s *State) IsAlive() bool { return s.alive }
