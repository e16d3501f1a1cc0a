package protocol

import "unicode/utf8"

const (
	HandshakeSeparator = "|"
	CommandSeparator   = ":"
)

// Direction is one of the four moves a pawn can be steered in. The zero
// value is not a direction.
type Direction uint8

const (
	North Direction = iota + 1
	East
	South
	West
)

// Directions lists every valid direction in wire order.
var Directions = [...]Direction{North, East, South, West}

// Valid reports whether d is one of the four directions.
func (d Direction) Valid() bool {
	return d >= North && d <= West
}

// Delta is the row/column offset of one step in direction d.
func (d Direction) Delta() (row, column int) {
	switch d {
	case North:
		return -1, 0
	case East:
		return 0, 1
	case South:
		return 1, 0
	case West:
		return 0, -1
	default:
		return 0, 0
	}
}

// Handshake is the first line of a session.
type Handshake struct {
	Identifier rune
	Width      int
	Height     int
}

// FrameBytes is the largest encoded size of one frame line. ParseHandshake
// guarantees it does not overflow.
func (h Handshake) FrameBytes() int {
	return h.Width * h.Height * utf8.UTFMax
}

// Command steers the pawn identified by Identifier.
type Command struct {
	Identifier rune
	Direction  Direction
}
