package session

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/danmuck/trailctl/internal/grid"
	"github.com/danmuck/trailctl/internal/protocol"
)

var (
	// ErrNoDecision is returned by a DecideFunc to keep the pawn on its
	// current heading. No command is sent for the turn.
	ErrNoDecision = errors.New("session: no decision")

	ErrDecisionPanic    = errors.New("session: decision panicked")
	ErrInvalidDirection = errors.New("session: decision returned a non-direction value")
	ErrUndecodableFrame = errors.New("session: undecodable frame")
)

// DecideFunc chooses the next move from one turn's state. It may log to the
// diagnostic channel it was built with but must never write to the
// protocol channel.
type DecideFunc func(state *grid.State) (protocol.Direction, error)

// OutcomeKind classifies a single turn.
type OutcomeKind uint8

const (
	OutcomeDecided OutcomeKind = iota + 1
	OutcomeUnchanged
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeDecided:
		return "decided"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the result of one decision call. Direction is set only for
// OutcomeDecided; Err only for OutcomeFailed.
type Outcome struct {
	Kind      OutcomeKind
	Direction protocol.Direction
	Err       error
}

func decided(d protocol.Direction) Outcome { return Outcome{Kind: OutcomeDecided, Direction: d} }
func unchanged() Outcome                   { return Outcome{Kind: OutcomeUnchanged} }
func failed(err error) Outcome             { return Outcome{Kind: OutcomeFailed, Err: err} }

// Invoke calls decide with panics recovered, and folds its result into an
// Outcome. It never panics.
func Invoke(decide DecideFunc, state *grid.State) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = failed(fmt.Errorf("%w: %v\n%s", ErrDecisionPanic, r, debug.Stack()))
		}
	}()

	dir, err := decide(state)
	switch {
	case errors.Is(err, ErrNoDecision):
		return unchanged()
	case err != nil:
		return failed(err)
	case !dir.Valid():
		return failed(fmt.Errorf("%w: %d; want north, east, south or west", ErrInvalidDirection, uint8(dir)))
	default:
		return decided(dir)
	}
}
