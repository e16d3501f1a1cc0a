package protocol

import (
	"fmt"
	"strconv"
)

// Token returns the wire token of d, or "" when d is not a direction.
func (d Direction) Token() string {
	switch d {
	case North:
		return "north"
	case East:
		return "east"
	case South:
		return "south"
	case West:
		return "west"
	default:
		return ""
	}
}

func (d Direction) String() string {
	if tok := d.Token(); tok != "" {
		return tok
	}
	return fmt.Sprintf("Direction(%d)", uint8(d))
}

func (h Handshake) String() string {
	return string(h.Identifier) + HandshakeSeparator + strconv.Itoa(h.Width) + HandshakeSeparator + strconv.Itoa(h.Height)
}

// Encode renders c as a command line without the trailing newline.
func (c Command) Encode() (string, error) {
	tok := c.Direction.Token()
	if tok == "" {
		return "", fmt.Errorf("%w: %d", ErrUnknownDirection, uint8(c.Direction))
	}
	if c.Identifier == 0 {
		return "", ErrInvalidIdentifier
	}
	return string(c.Identifier) + CommandSeparator + tok, nil
}

func (c Command) String() string {
	line, err := c.Encode()
	if err != nil {
		return fmt.Sprintf("%c%s%s", c.Identifier, CommandSeparator, c.Direction)
	}
	return line
}
