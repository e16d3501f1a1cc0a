package protocol

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ParseHandshake decodes `<id>|<width>|<height>`. Surrounding whitespace is
// ignored; anything else that does not fit is ErrMalformedHandshake.
func ParseHandshake(line string) (Handshake, error) {
	parts := strings.Split(strings.TrimSpace(line), HandshakeSeparator)
	if len(parts) != 3 {
		return Handshake{}, fmt.Errorf("%w: want 3 fields, got %d in %q", ErrMalformedHandshake, len(parts), line)
	}

	id, err := parseIdentifier(parts[0])
	if err != nil {
		return Handshake{}, fmt.Errorf("%w: %w", ErrMalformedHandshake, err)
	}
	width, err := parseDimension("width", parts[1])
	if err != nil {
		return Handshake{}, err
	}
	height, err := parseDimension("height", parts[2])
	if err != nil {
		return Handshake{}, err
	}
	if width > math.MaxInt/utf8.UTFMax/height {
		return Handshake{}, fmt.Errorf("%w: field %dx%d too large", ErrMalformedHandshake, width, height)
	}
	return Handshake{Identifier: id, Width: width, Height: height}, nil
}

// ParseDirection maps a wire token back to its Direction.
func ParseDirection(token string) (Direction, error) {
	for _, d := range Directions {
		if d.Token() == token {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDirection, token)
}

// ParseCommand decodes a `<id>:<direction>` line as the engine reads it.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimRight(line, "\r\n")
	rawID, rawDir, ok := strings.Cut(line, CommandSeparator)
	if !ok {
		return Command{}, fmt.Errorf("%w: missing %q in %q", ErrMalformedCommand, CommandSeparator, line)
	}
	id, err := parseIdentifier(rawID)
	if err != nil {
		return Command{}, fmt.Errorf("%w: %w", ErrMalformedCommand, err)
	}
	dir, err := ParseDirection(rawDir)
	if err != nil {
		return Command{}, fmt.Errorf("%w: %w", ErrMalformedCommand, err)
	}
	return Command{Identifier: id, Direction: dir}, nil
}

// reservedSymbols mark empty, wall and death cells; a pawn named after one
// would match every such cell.
const reservedSymbols = ".#*"

func parseIdentifier(raw string) (rune, error) {
	if utf8.RuneCountInString(raw) != 1 {
		return 0, fmt.Errorf("%w: %q must be exactly one character", ErrInvalidIdentifier, raw)
	}
	id, _ := utf8.DecodeRuneInString(raw)
	if id == utf8.RuneError {
		return 0, fmt.Errorf("%w: %q is not valid utf-8", ErrInvalidIdentifier, raw)
	}
	if id == 0 || strings.ContainsRune(reservedSymbols, id) {
		return 0, fmt.Errorf("%w: %q is reserved", ErrInvalidIdentifier, raw)
	}
	return id, nil
}

func parseDimension(name, raw string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", ErrMalformedHandshake, name, raw)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive, got %d", ErrMalformedHandshake, name, v)
	}
	return v, nil
}
