package exec

import (
	"log/slog"

	"github.com/cosmez/rediscli-go/internal/output"
	"github.com/cosmez/rediscli-go/internal/serializer"
)

type settings struct {
	sink    output.Sink
	decoder serializer.Serializer
	log     *slog.Logger
}

// Option adjusts the Dispatcher defaults, or a single executor when passed
// to Create.
type Option func(*settings)

// WithSink publishes replies to s instead of the default sink.
func WithSink(s output.Sink) Option {
	return func(st *settings) {
		if s != nil {
			st.sink = s
		}
	}
}

// WithDecoder runs string replies through s before formatting.
func WithDecoder(s serializer.Serializer) Option {
	return func(st *settings) { st.decoder = s }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(st *settings) {
		if l != nil {
			st.log = l
		}
	}
}

// Dispatcher builds executors bound to one shared Store.
type Dispatcher struct {
	store    Store
	defaults settings
}

// NewDispatcher returns a Dispatcher publishing to sink.
func NewDispatcher(store Store, sink output.Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:    store,
		defaults: settings{sink: sink, log: slog.New(slog.DiscardHandler)},
	}
	for _, opt := range opts {
		opt(&d.defaults)
	}
	return d
}

// Create reads tokens[0] as the command name and the rest as arguments and
// returns the executor for its Mode. Only an empty token list fails; whether
// the command exists is up to the store.
func (d *Dispatcher) Create(tokens []string, opts ...Option) (Executor, error) {
	if len(tokens) == 0 {
		return nil, ErrInvalidCommand
	}

	s := d.defaults
	for _, opt := range opts {
		opt(&s)
	}

	cmd := Command{Name: tokens[0], Args: append([]string(nil), tokens[1:]...)}
	return newExecutor(cmd, Classify(cmd.Name), d.store, s), nil
}
