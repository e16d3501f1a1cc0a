package session

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/danmuck/trailctl/internal/grid"
	"github.com/danmuck/trailctl/internal/logging"
	"github.com/danmuck/trailctl/internal/observability"
	"github.com/danmuck/trailctl/internal/protocol"
	"github.com/danmuck/trailctl/internal/protocol/frame"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrNoHandshake   = errors.New("session: input ended before handshake")
	ErrDiagnostics   = errors.New("session: diagnostic channel unavailable")
	ErrNilDecideFunc = errors.New("session: nil decide func")
)

// EndReason says why a session stopped without error.
type EndReason string

const (
	EndOfStream EndReason = "end_of_stream"
	EndPawnLost EndReason = "pawn_lost"
)

// Summary is what Run reports once the session is over.
type Summary struct {
	SessionID string
	Handshake protocol.Handshake
	Turns     int
	Decided   int
	Unchanged int
	Failed    int
	End       EndReason
}

// Loop drives one session: handshake, then one decision per frame until
// the input ends or our pawn disappears. It is single-use and not safe for
// concurrent use.
type Loop struct {
	cfg    Config
	in     *frame.Reader
	out    *frame.Writer
	diag   *diagWriter
	log    zerolog.Logger
	decide DecideFunc
}

func New(cfg Config, ch Channels, decide DecideFunc) *Loop {
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	diag := &diagWriter{w: logging.Colorable(ch.Diagnostic, cfg.Log), src: ch.Diagnostic}
	if diag.w == nil {
		diag.w = io.Discard
	}
	return &Loop{
		cfg:    cfg,
		in:     frame.NewReader(ch.In, cfg.Limits),
		out:    frame.NewWriter(ch.Protocol),
		diag:   diag,
		log:    logging.New(diag, cfg.Log).With().Str("session", cfg.SessionID).Logger(),
		decide: decide,
	}
}

// Run blocks until the session ends. Reaching the end of input and losing
// the pawn both return a nil error; handshake, stream and diagnostic
// failures are fatal.
func (l *Loop) Run() (Summary, error) {
	sum := Summary{SessionID: l.cfg.SessionID}
	if l.decide == nil {
		return sum, ErrNilDecideFunc
	}

	hs, err := l.handshake()
	if err != nil {
		return sum, err
	}
	sum.Handshake = hs
	l.in.SetLimit(max(l.cfg.Limits.MaxLineBytes, hs.FrameBytes()))
	log := l.log.With().Str("id", string(hs.Identifier)).Logger()
	log.Info().Int("width", hs.Width).Int("height", hs.Height).Msg("session started")

	for sum.End == "" {
		line, err := l.in.ReadLine()
		if errors.Is(err, io.EOF) {
			sum.End = EndOfStream
			break
		}
		if err != nil {
			return sum, fmt.Errorf("session: read frame: %w", err)
		}
		sum.Turns++

		if err := l.turn(log, hs, line, &sum); err != nil {
			return sum, err
		}
		if err := l.diag.Err(); err != nil {
			return sum, fmt.Errorf("%w: %v", ErrDiagnostics, err)
		}
	}

	log.Info().
		Str("end", string(sum.End)).
		Int("turns", sum.Turns).
		Int("decided", sum.Decided).
		Int("unchanged", sum.Unchanged).
		Int("failed", sum.Failed).
		Msg("session ended")
	if l.cfg.Metrics {
		observability.RecordSessionEnd(string(sum.End))
	}
	return sum, nil
}

func (l *Loop) handshake() (protocol.Handshake, error) {
	line, err := l.in.ReadLine()
	if errors.Is(err, io.EOF) {
		return protocol.Handshake{}, ErrNoHandshake
	}
	if err != nil {
		return protocol.Handshake{}, fmt.Errorf("session: read handshake: %w", err)
	}
	return protocol.ParseHandshake(line)
}

func (l *Loop) turn(log zerolog.Logger, hs protocol.Handshake, line string, sum *Summary) error {
	log = log.With().Int("turn", sum.Turns).Logger()

	var out Outcome
	var elapsed time.Duration
	state, err := grid.NewState(line, hs.Width, hs.Height, hs.Identifier)
	if err != nil {
		out = failed(fmt.Errorf("%w: %v", ErrUndecodableFrame, err))
	} else if !state.IsAlive() {
		log.Info().Msg("pawn not found in the field, assuming it died; ending session")
		sum.End = EndPawnLost
		return nil
	} else {
		start := time.Now()
		out = Invoke(l.decide, state)
		elapsed = time.Since(start)
		if l.cfg.Metrics {
			observability.RecordDecision(elapsed)
		}
	}
	if l.cfg.Metrics {
		observability.RecordTurn(out.Kind.String())
	}

	switch out.Kind {
	case OutcomeDecided:
		if err := l.send(hs.Identifier, out.Direction); err != nil {
			return err
		}
		sum.Decided++
		log.Debug().Stringer("direction", out.Direction).Dur("elapsed", elapsed).Msg("command sent")
	case OutcomeUnchanged:
		sum.Unchanged++
		log.Debug().Msg("no decision; keeping previous heading")
	default:
		sum.Failed++
		log.Error().Err(out.Err).Msg("turn failed; no command sent")
	}
	return nil
}

func (l *Loop) send(id rune, dir protocol.Direction) error {
	line, err := protocol.Command{Identifier: id, Direction: dir}.Encode()
	if err != nil {
		return fmt.Errorf("session: encode command: %w", err)
	}
	if err := l.out.WriteLine(line); err != nil {
		return fmt.Errorf("session: write command: %w", err)
	}
	return nil
}

// diagWriter remembers the first failed diagnostic write so the loop can
// stop once nothing can be reported anymore. w may be a color-translating
// wrapper around src.
type diagWriter struct {
	w   io.Writer
	src io.Writer
	err error
}

func (d *diagWriter) Write(p []byte) (int, error) {
	n, err := d.w.Write(p)
	if err != nil && d.err == nil {
		d.err = err
	}
	return n, err
}

func (d *diagWriter) Err() error { return d.err }

// Fd exposes the caller's file descriptor for terminal detection.
func (d *diagWriter) Fd() uintptr {
	if f, ok := d.src.(interface{ Fd() uintptr }); ok {
		return f.Fd()
	}
	return ^uintptr(0)
}
