package main

import (
	"github.com/danmuck/trailctl/internal/grid"
	"github.com/danmuck/trailctl/internal/protocol"
	"github.com/danmuck/trailctl/internal/protocol/session"
	"github.com/rs/zerolog"
)

// Replace firstOpen with your own session.DecideFunc.

var preference = [...]protocol.Direction{protocol.South, protocol.East, protocol.North, protocol.West}

// firstOpen steers into the first empty neighbour in preference order and
// keeps the current heading when boxed in.
func firstOpen(log zerolog.Logger) session.DecideFunc {
	return func(s *grid.State) (protocol.Direction, error) {
		pos, ok := s.Pawn()
		if !ok {
			return 0, session.ErrNoDecision
		}
		for _, d := range preference {
			dr, dc := d.Delta()
			if s.CellSafe(pos.Row+dr, pos.Column+dc).IsEmpty() {
				return d, nil
			}
		}
		log.Warn().Int("row", pos.Row).Int("column", pos.Column).Msg("nowhere to go")
		return 0, session.ErrNoDecision
	}
}
