package exec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/cosmez/rediscli-go/internal/conn"
	"github.com/cosmez/rediscli-go/internal/output"
	"github.com/cosmez/rediscli-go/internal/resp"
	"github.com/cosmez/rediscli-go/internal/serializer"
)

// ErrInvalidCommand is returned by Create for an empty token list.
var ErrInvalidCommand = errors.New("invalid command: no tokens")

// Store is the connection an executor drives. *conn.Connection implements it.
type Store interface {
	Operation(name string) (conn.Operation, bool)
	SendCommand(ctx context.Context, name string, args ...string) (resp.RedisValue, error)
	On(ev conn.Event, h conn.Handler) (unregister func())
	UnsubscribeAll(ctx context.Context) error
}

var _ Store = (*conn.Connection)(nil)

// Command is a command name with its positional arguments.
type Command struct {
	Name string
	Args []string
}

// Executor owns the lifecycle of one command.
type Executor interface {
	// Run invokes the command and publishes its reply, or "(error) ..." when
	// the invocation fails. Streaming executors that started successfully
	// report StillActive and keep publishing until Shutdown.
	Run(ctx context.Context) Status
	// Shutdown stops a streaming executor. It is safe to call more than once
	// and is a no-op for Simple executors.
	Shutdown(ctx context.Context) error
	Mode() Mode
	Command() Command
}

// registration is a push handler an executor installs before invoking.
// Acknowledgement handlers are observed but publish nothing.
type registration struct {
	event   conn.Event
	publish bool
}

// The pattern variant installs its own handlers first and then takes the
// channel path, so message and pmessage handlers coexist.
var modeRegistrations = map[Mode][]registration{
	Subscribe: {
		{event: conn.EventSubscribe},
		{event: conn.EventMessage, publish: true},
	},
	PatternSubscribe: {
		{event: conn.EventPSubscribe},
		{event: conn.EventPMessage, publish: true},
		{event: conn.EventSubscribe},
		{event: conn.EventMessage, publish: true},
	},
	Monitor: {
		{event: conn.EventMonitor, publish: true},
	},
}

type executor struct {
	cmd     Command
	mode    Mode
	store   Store
	sink    output.Sink
	decoder serializer.Serializer
	log     *slog.Logger

	// mu also serializes publishing so push payloads never overtake the
	// reply of the invocation that started the stream.
	mu         sync.Mutex
	unregister []func()
	started    bool
	backlog    []resp.RedisValue
	stopped    atomic.Bool
}

func newExecutor(cmd Command, mode Mode, store Store, s settings) *executor {
	return &executor{
		cmd:     cmd,
		mode:    mode,
		store:   store,
		sink:    s.sink,
		decoder: s.decoder,
		log:     s.log,
	}
}

func (e *executor) Mode() Mode       { return e.mode }
func (e *executor) Command() Command { return e.cmd }

func (e *executor) Run(ctx context.Context) Status {
	e.register(modeRegistrations[e.mode])

	v, err := e.invoke(ctx)
	if err != nil {
		e.log.Debug("command failed", "name", e.cmd.Name, "mode", e.mode.String(), "err", err)
		e.sink.Publish(output.ErrorReply(err.Error()))
		e.release()
		return Completed
	}

	e.mu.Lock()
	e.publish(v)
	for _, pushed := range e.backlog {
		e.publish(pushed)
	}
	e.backlog = nil
	e.started = true
	e.mu.Unlock()

	if !e.mode.Streaming() {
		return Completed
	}
	e.log.Debug("streaming started", "name", e.cmd.Name, "mode", e.mode.String())
	return StillActive
}

func (e *executor) Shutdown(ctx context.Context) error {
	if !e.stopped.CompareAndSwap(false, true) {
		return nil
	}
	e.release()

	switch e.mode {
	case Subscribe, PatternSubscribe:
		if err := e.store.UnsubscribeAll(ctx); err != nil {
			return fmt.Errorf("failed to leave %s mode: %w", e.mode, err)
		}
		e.log.Debug("streaming stopped", "name", e.cmd.Name, "mode", e.mode.String())
	}
	return nil
}

// invoke calls the dedicated operation for the command, or the generic
// command path with every token when there is none.
func (e *executor) invoke(ctx context.Context) (resp.RedisValue, error) {
	if op, ok := e.store.Operation(e.cmd.Name); ok {
		return op(ctx, e.cmd.Args...)
	}
	return e.store.SendCommand(ctx, e.cmd.Name, e.cmd.Args...)
}

func (e *executor) register(regs []registration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, reg := range regs {
		h := e.onAck
		if reg.publish {
			h = e.onPush
		}
		e.unregister = append(e.unregister, e.store.On(reg.event, h))
	}
}

func (e *executor) release() {
	e.mu.Lock()
	fns := e.unregister
	e.unregister = nil
	e.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (e *executor) onAck(ev conn.PushEvent) {
	e.log.Debug("subscription acknowledged", "kind", string(ev.Kind),
		"channel", ev.Channel, "pattern", ev.Pattern, "count", ev.Count)
}

// onPush publishes the payload of a message, or the raw trace line of a
// monitor event. Channel, pattern, timestamp and client are not rendered.
func (e *executor) onPush(ev conn.PushEvent) {
	if e.stopped.Load() {
		return
	}
	v := ev.Payload
	if ev.Kind == conn.EventMonitor {
		v = resp.RedisString{Value: ev.Raw}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		e.backlog = append(e.backlog, v)
		return
	}
	e.publish(v)
}

func (e *executor) publish(v resp.RedisValue) {
	e.sink.Publish(output.Format(output.Decode(v, e.decoder)))
}
