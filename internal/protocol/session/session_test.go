package session

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/trailctl/internal/grid"
	"github.com/danmuck/trailctl/internal/logging"
	"github.com/danmuck/trailctl/internal/observability"
	"github.com/danmuck/trailctl/internal/protocol"
	"github.com/danmuck/trailctl/internal/protocol/frame"
	"github.com/danmuck/trailctl/internal/testutil/testlog"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	handshakeA = "A|10|5\n"
	frameAlive = "###########...aaaA.##..B.....##..bbb...###########\n"
	frameMoved = "###########...aaaaA##..B.....##..bbb...###########\n"
	frameDead  = "###########...aaaa*##..B.....##..bbb...###########\n"
)

type harness struct {
	protocol bytes.Buffer
	diag     bytes.Buffer
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SessionID = "test-session"
	cfg.Log = logging.DefaultConfig(logging.ProfileTest)
	cfg.Metrics = false
	return cfg
}

func (h *harness) channels(t *testing.T, input string) Channels {
	return Channels{
		In:         strings.NewReader(input),
		Protocol:   &h.protocol,
		Diagnostic: io.MultiWriter(&h.diag, testlog.Writer(t)),
	}
}

func newLoop(t *testing.T, h *harness, input string, decide DecideFunc) *Loop {
	t.Helper()
	testlog.Start(t)
	return New(testConfig(), h.channels(t, input), decide)
}

func always(d protocol.Direction) DecideFunc {
	return func(*grid.State) (protocol.Direction, error) { return d, nil }
}

func TestRunSendsOneCommandPerFrame(t *testing.T) {
	var h harness
	loop := newLoop(t, &h, handshakeA+frameAlive+frameMoved, always(protocol.East))

	sum, err := loop.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if h.protocol.String() != "A:east\nA:east\n" {
		t.Fatalf("unexpected protocol output: %q", h.protocol.String())
	}
	if sum.End != EndOfStream || sum.Turns != 2 || sum.Decided != 2 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if sum.Handshake.Identifier != 'A' || sum.Handshake.Width != 10 || sum.Handshake.Height != 5 {
		t.Fatalf("unexpected handshake: %+v", sum.Handshake)
	}
	if sum.SessionID != "test-session" {
		t.Fatalf("unexpected session id: %q", sum.SessionID)
	}
}

func TestRunPassesStateToDecision(t *testing.T) {
	var h harness
	var seen []grid.Position
	loop := newLoop(t, &h, handshakeA+frameAlive+frameMoved, func(s *grid.State) (protocol.Direction, error) {
		p, ok := s.Pawn()
		if !ok {
			t.Fatalf("decision called without a live pawn")
		}
		seen = append(seen, p)
		return protocol.East, nil
	})
	if _, err := loop.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []grid.Position{{Row: 1, Column: 7}, {Row: 1, Column: 8}}
	if len(seen) != 2 || seen[0] != want[0] || seen[1] != want[1] {
		t.Fatalf("unexpected positions: %+v", seen)
	}
}

func TestRunIsolatesPanickingTurn(t *testing.T) {
	var h harness
	calls := 0
	loop := newLoop(t, &h, handshakeA+frameAlive+frameMoved, func(*grid.State) (protocol.Direction, error) {
		calls++
		if calls == 1 {
			panic("boom")
		}
		return protocol.South, nil
	})

	sum, err := loop.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if h.protocol.String() != "A:south\n" {
		t.Fatalf("expected exactly one command for the second frame, got %q", h.protocol.String())
	}
	if sum.Failed != 1 || sum.Decided != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if !strings.Contains(h.diag.String(), "boom") {
		t.Fatalf("panic detail missing from diagnostics: %q", h.diag.String())
	}
}

func TestRunIsolatesErroringTurn(t *testing.T) {
	var h harness
	calls := 0
	loop := newLoop(t, &h, handshakeA+frameAlive+frameMoved, func(*grid.State) (protocol.Direction, error) {
		calls++
		if calls == 1 {
			return 0, fmt.Errorf("strategy exploded")
		}
		return protocol.North, nil
	})

	sum, err := loop.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if h.protocol.String() != "A:north\n" {
		t.Fatalf("unexpected protocol output: %q", h.protocol.String())
	}
	if sum.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if !strings.Contains(h.diag.String(), "strategy exploded") {
		t.Fatalf("error detail missing from diagnostics: %q", h.diag.String())
	}
}

func TestRunTreatsInvalidDirectionAsFailure(t *testing.T) {
	var h harness
	calls := 0
	loop := newLoop(t, &h, handshakeA+frameAlive+frameMoved, func(*grid.State) (protocol.Direction, error) {
		calls++
		if calls == 1 {
			return protocol.Direction(42), nil
		}
		return protocol.West, nil
	})

	sum, err := loop.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if h.protocol.String() != "A:west\n" {
		t.Fatalf("unexpected protocol output: %q", h.protocol.String())
	}
	if sum.Failed != 1 || sum.Decided != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestRunIsolatesOutOfBoundsCell(t *testing.T) {
	var h harness
	calls := 0
	loop := newLoop(t, &h, handshakeA+frameAlive+frameMoved, func(s *grid.State) (protocol.Direction, error) {
		calls++
		if calls == 1 {
			s.MustCell(-1, 0)
		}
		return protocol.South, nil
	})

	if _, err := loop.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if h.protocol.String() != "A:south\n" {
		t.Fatalf("unexpected protocol output: %q", h.protocol.String())
	}
	if !strings.Contains(h.diag.String(), "out of bounds") {
		t.Fatalf("bounds error missing from diagnostics: %q", h.diag.String())
	}
}

func TestRunNoDecisionEmitsNothing(t *testing.T) {
	var h harness
	loop := newLoop(t, &h, handshakeA+frameAlive, func(*grid.State) (protocol.Direction, error) {
		return 0, ErrNoDecision
	})

	sum, err := loop.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if h.protocol.Len() != 0 {
		t.Fatalf("unexpected protocol output: %q", h.protocol.String())
	}
	if sum.Unchanged != 1 || sum.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestRunEndsWhenPawnLost(t *testing.T) {
	var h harness
	calls := 0
	loop := newLoop(t, &h, handshakeA+frameAlive+frameDead+frameAlive, func(*grid.State) (protocol.Direction, error) {
		calls++
		return protocol.East, nil
	})

	sum, err := loop.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.End != EndPawnLost {
		t.Fatalf("unexpected end: %q", sum.End)
	}
	if calls != 1 || sum.Turns != 2 {
		t.Fatalf("loop should stop at the dead frame: calls=%d summary=%+v", calls, sum)
	}
	if h.protocol.String() != "A:east\n" {
		t.Fatalf("unexpected protocol output: %q", h.protocol.String())
	}
	if !strings.Contains(h.diag.String(), "pawn not found") {
		t.Fatalf("missing pawn-lost diagnostic: %q", h.diag.String())
	}
}

func TestRunSkipsUndecodableFrame(t *testing.T) {
	var h harness
	loop := newLoop(t, &h, handshakeA+"####\n"+frameAlive, always(protocol.East))

	sum, err := loop.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if h.protocol.String() != "A:east\n" {
		t.Fatalf("unexpected protocol output: %q", h.protocol.String())
	}
	if sum.Failed != 1 || sum.Decided != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if !strings.Contains(h.diag.String(), "frame size mismatch") {
		t.Fatalf("missing frame error in diagnostics: %q", h.diag.String())
	}
}

func TestRunHandshakeErrors(t *testing.T) {
	cases := []struct {
		input string
		want  error
	}{
		{input: "", want: ErrNoHandshake},
		{input: "A|10\n" + frameAlive, want: protocol.ErrMalformedHandshake},
		{input: "A|x|5\n" + frameAlive, want: protocol.ErrMalformedHandshake},
		{input: "\x00|2|1\n\x00.\n", want: protocol.ErrInvalidIdentifier},
		{input: ".|2|1\n..\n", want: protocol.ErrInvalidIdentifier},
		{input: "#|2|1\n#.\n", want: protocol.ErrInvalidIdentifier},
	}
	for _, tc := range cases {
		var h harness
		sum, err := newLoop(t, &h, tc.input, always(protocol.East)).Run()
		if !errors.Is(err, tc.want) {
			t.Fatalf("%q: expected %v, got %v", tc.input, tc.want, err)
		}
		if sum.Turns != 0 {
			t.Fatalf("%q: no frame may be read after a bad handshake: %+v", tc.input, sum)
		}
		if h.protocol.Len() != 0 {
			t.Fatalf("%q: nothing may be sent after a bad handshake: %q", tc.input, h.protocol.String())
		}
	}
}

func TestRunRejectsNilDecideFunc(t *testing.T) {
	var h harness
	if _, err := newLoop(t, &h, handshakeA, nil).Run(); !errors.Is(err, ErrNilDecideFunc) {
		t.Fatalf("expected ErrNilDecideFunc, got %v", err)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed pipe") }

func TestRunProtocolWriteFailureIsFatal(t *testing.T) {
	var diag bytes.Buffer
	cfg := DefaultConfig()
	cfg.Log = logging.DefaultConfig(logging.ProfileTest)
	cfg.Metrics = false
	loop := New(cfg, Channels{
		In:         strings.NewReader(handshakeA + frameAlive + frameMoved),
		Protocol:   failingWriter{},
		Diagnostic: &diag,
	}, always(protocol.East))

	sum, err := loop.Run()
	if err == nil || !strings.Contains(err.Error(), "write command") {
		t.Fatalf("expected write command error, got %v", err)
	}
	if sum.Turns != 1 || sum.Decided != 0 {
		t.Fatalf("loop should stop on the first failed write without counting it: %+v", sum)
	}
}

func TestRunDiagnosticFailureIsFatal(t *testing.T) {
	var out bytes.Buffer
	cfg := DefaultConfig()
	cfg.Log = logging.DefaultConfig(logging.ProfileTest)
	cfg.Metrics = false
	loop := New(cfg, Channels{
		In:         strings.NewReader(handshakeA + frameAlive + frameMoved),
		Protocol:   &out,
		Diagnostic: failingWriter{},
	}, func(*grid.State) (protocol.Direction, error) { return 0, errors.New("bad turn") })

	_, err := loop.Run()
	if !errors.Is(err, ErrDiagnostics) {
		t.Fatalf("expected ErrDiagnostics, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("unexpected protocol output: %q", out.String())
	}
}

func TestRunKeepsDecisionLogsOffProtocol(t *testing.T) {
	var h harness
	testlog.Start(t)
	ch := h.channels(t, handshakeA+frameAlive)
	decisionLog := logging.New(ch.Diagnostic, logging.DefaultConfig(logging.ProfileTest))
	loop := New(testConfig(), ch, func(*grid.State) (protocol.Direction, error) {
		decisionLog.Info().Msg("thinking hard")
		return protocol.South, nil
	})

	if _, err := loop.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if h.protocol.String() != "A:south\n" {
		t.Fatalf("protocol channel must carry only the command: %q", h.protocol.String())
	}
	if !strings.Contains(h.diag.String(), "thinking hard") {
		t.Fatalf("decision log missing from diagnostics: %q", h.diag.String())
	}
}

func TestRunAcceptsFrameLargerThanLineFloor(t *testing.T) {
	const width, height = 1100, 1000
	var h harness
	input := fmt.Sprintf("A|%d|%d\n", width, height) + "A" + strings.Repeat(".", width*height-1) + "\n"
	loop := newLoop(t, &h, input, always(protocol.East))

	sum, err := loop.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if h.protocol.String() != "A:east\n" {
		t.Fatalf("unexpected protocol output: %q", h.protocol.String())
	}
	if sum.Turns != 1 || sum.Decided != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestRunStillBoundsFrameLines(t *testing.T) {
	var h harness
	cfg := testConfig()
	cfg.Limits.MaxLineBytes = 64
	input := "A|2|2\n" + strings.Repeat(".", 200) + "\n"
	sum, err := New(cfg, h.channels(t, input), always(protocol.East)).Run()
	if !errors.Is(err, frame.ErrLineTooLarge) {
		t.Fatalf("expected ErrLineTooLarge, got %v", err)
	}
	if sum.Turns != 0 || h.protocol.Len() != 0 {
		t.Fatalf("unexpected progress: %+v protocol=%q", sum, h.protocol.String())
	}
}

func decisionSamples(t *testing.T) uint64 {
	t.Helper()
	observability.RegisterMetrics()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == "trailctl_turn_decision_duration_seconds" {
			return mf.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	t.Fatalf("decision histogram not registered")
	return 0
}

func TestRunObservesDecisionOnlyWhenInvoked(t *testing.T) {
	var h harness
	cfg := testConfig()
	cfg.Metrics = true
	before := decisionSamples(t)

	_, err := New(cfg, h.channels(t, handshakeA+"####\n"+frameAlive), always(protocol.East)).Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := decisionSamples(t) - before; got != 1 {
		t.Fatalf("undecodable frame must not be observed: delta=%d", got)
	}
}

func TestDiagWriterForwardsCallerFd(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "diag.log"))
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	defer f.Close()

	loop := New(testConfig(), Channels{In: strings.NewReader(""), Protocol: io.Discard, Diagnostic: f}, always(protocol.East))
	if loop.diag.Fd() != f.Fd() {
		t.Fatalf("diag writer must report the caller's fd")
	}
	if loop.diag.w != io.Writer(f) {
		t.Fatalf("non-terminal file should be written directly: %T", loop.diag.w)
	}
	if (&diagWriter{w: io.Discard, src: io.Discard}).Fd() != ^uintptr(0) {
		t.Fatalf("writer without fd must report an invalid fd")
	}
}

func TestRunCommandsRoundTrip(t *testing.T) {
	for _, dir := range protocol.Directions {
		var h harness
		if _, err := newLoop(t, &h, handshakeA+frameAlive, always(dir)).Run(); err != nil {
			t.Fatalf("run: %v", err)
		}
		cmd, err := protocol.ParseCommand(h.protocol.String())
		if err != nil {
			t.Fatalf("parse %q: %v", h.protocol.String(), err)
		}
		if cmd.Identifier != 'A' || cmd.Direction != dir {
			t.Fatalf("round trip mismatch: got=%+v want=%s", cmd, dir)
		}
	}
}

func TestInvokeOutcomes(t *testing.T) {
	state, err := grid.NewState(strings.TrimSpace(frameAlive), 10, 5, 'A')
	if err != nil {
		t.Fatalf("new state: %v", err)
	}

	if out := Invoke(always(protocol.West), state); out.Kind != OutcomeDecided || out.Direction != protocol.West {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	wrapped := func(*grid.State) (protocol.Direction, error) {
		return 0, fmt.Errorf("cornered: %w", ErrNoDecision)
	}
	if out := Invoke(wrapped, state); out.Kind != OutcomeUnchanged {
		t.Fatalf("wrapped ErrNoDecision should be unchanged: %+v", out)
	}
	if out := Invoke(always(0), state); out.Kind != OutcomeFailed || !errors.Is(out.Err, ErrInvalidDirection) {
		t.Fatalf("zero direction should fail: %+v", out)
	}
	panicky := func(*grid.State) (protocol.Direction, error) { panic(errors.New("nil map")) }
	if out := Invoke(panicky, state); out.Kind != OutcomeFailed || !errors.Is(out.Err, ErrDecisionPanic) {
		t.Fatalf("panic should fail: %+v", out)
	}
}
