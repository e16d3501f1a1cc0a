package session

import (
	"io"

	"github.com/danmuck/trailctl/internal/logging"
	"github.com/danmuck/trailctl/internal/protocol/frame"
)

// Config defines session defaults.
type Config struct {
	// SessionID tags diagnostic output. Generated when empty.
	SessionID string
	Limits    frame.Limits
	Log       logging.Config
	// Metrics enables prometheus turn/session recording.
	Metrics bool
}

func DefaultConfig() Config {
	return Config{
		Limits:  frame.DefaultLimits(),
		Log:     logging.DefaultConfig(logging.ProfileRuntime),
		Metrics: true,
	}
}

// Channels are the three streams a session talks on. Protocol is reserved
// for command lines; Diagnostic receives everything else.
type Channels struct {
	In         io.Reader
	Protocol   io.Writer
	Diagnostic io.Writer
}
