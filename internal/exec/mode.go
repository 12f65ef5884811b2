// Package exec is the command execution engine: it picks an execution
// strategy for a tokenized command, invokes the store and publishes the
// formatted replies.
package exec

import "strings"

// Mode is the execution strategy of a command.
type Mode int

const (
	Simple Mode = iota
	Subscribe
	PatternSubscribe
	Monitor
)

var streamingModes = map[string]Mode{
	"subscribe":  Subscribe,
	"psubscribe": PatternSubscribe,
	"monitor":    Monitor,
}

// Classify maps a command name (any casing) to its Mode. Every name that is
// not a streaming command is Simple.
func Classify(name string) Mode {
	if m, ok := streamingModes[strings.ToLower(name)]; ok {
		return m
	}
	return Simple
}

func (m Mode) String() string {
	switch m {
	case Subscribe:
		return "subscribe"
	case PatternSubscribe:
		return "psubscribe"
	case Monitor:
		return "monitor"
	default:
		return "simple"
	}
}

// Streaming reports whether executors of this mode outlive their first reply.
func (m Mode) Streaming() bool { return m != Simple }

// Status is what Run reports about an executor once its invocation returned.
type Status int

const (
	// Completed executors have nothing more to publish and can be dropped.
	Completed Status = iota
	// StillActive executors keep publishing push events until Shutdown.
	StillActive
)

func (s Status) String() string {
	if s == StillActive {
		return "still active"
	}
	return "completed"
}
