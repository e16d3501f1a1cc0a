package grid

import "unicode"

// Raw symbols with a fixed meaning on the wire.
const (
	SymbolEmpty rune = '.'
	SymbolWall  rune = '#'
	SymbolDeath rune = '*'
)

// Kind is the classification of a single grid symbol.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindWall
	KindHead
	KindTrail
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindWall:
		return "wall"
	case KindHead:
		return "head"
	case KindTrail:
		return "trail"
	default:
		return "unknown"
	}
}

// Classify maps a symbol to its Kind. Anything that is not empty, a wall,
// or an uppercase head is trail-like, so new trail markers keep working.
func Classify(symbol rune) Kind {
	switch {
	case symbol == SymbolEmpty:
		return KindEmpty
	case symbol == SymbolWall:
		return KindWall
	case unicode.IsUpper(symbol):
		return KindHead
	default:
		return KindTrail
	}
}

// Cell is one position on the field.
type Cell struct {
	symbol rune
}

func NewCell(symbol rune) Cell {
	return Cell{symbol: symbol}
}

func (c Cell) Kind() Kind { return Classify(c.symbol) }

// IsEmpty reports whether moving into the cell is safe, unless another
// pawn moves there in the same turn.
func (c Cell) IsEmpty() bool { return c.Kind() == KindEmpty }

// IsOccupied reports whether moving into the cell is fatal.
func (c Cell) IsOccupied() bool { return !c.IsEmpty() }

// IsPawn reports whether the cell holds any pawn head, including our own.
func (c Cell) IsPawn() bool { return c.Kind() == KindHead }

// IsTrail reports whether the cell holds a trail or a special death marker.
func (c Cell) IsTrail() bool { return c.Kind() == KindTrail }

func (c Cell) IsWall() bool { return c.Kind() == KindWall }

// Char returns the raw symbol.
func (c Cell) Char() rune { return c.symbol }

func (c Cell) String() string { return string(c.symbol) }
