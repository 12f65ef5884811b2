package conn

import (
	"context"
	"fmt"
	"strings"

	"github.com/cosmez/rediscli-go/internal/resp"
)

// Operation invokes one store command with positional arguments and waits
// for its reply.
type Operation func(ctx context.Context, args ...string) (resp.RedisValue, error)

// binding describes a command with a dedicated operation: how its reply is
// collected and how the raw reply is reshaped afterwards.
type binding struct {
	kind      requestKind
	transform func(args []string, v resp.RedisValue) resp.RedisValue
}

// pairReply turns the flat field/value array of HGETALL-like commands into
// a mapping.
func pairReply(_ []string, v resp.RedisValue) resp.RedisValue {
	if arr, ok := v.(resp.RedisArray); ok {
		return resp.PairUp(arr)
	}
	return v
}

// configReply pairs CONFIG GET replies only; other CONFIG subcommands pass.
func configReply(args []string, v resp.RedisValue) resp.RedisValue {
	if len(args) > 0 && strings.EqualFold(args[0], "get") {
		return pairReply(args, v)
	}
	return v
}

func defaultBindings() map[string]binding {
	return map[string]binding{
		"subscribe":  {kind: kindSubscribe},
		"psubscribe": {kind: kindPSubscribe},
		"monitor":    {kind: kindMonitor},
		"hgetall":    {transform: pairReply},
		"hello":      {transform: pairReply},
		"config":     {transform: configReply},
	}
}

// Bind gives each named command a dedicated operation. Names already bound
// keep their binding.
func (c *Connection) Bind(names ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, name := range names {
		name = strings.ToLower(name)
		if _, ok := c.bindings[name]; !ok {
			c.bindings[name] = binding{}
		}
	}
}

// Operation returns the dedicated operation for a command name
// (case-insensitive). ok is false when the command has no binding and
// callers should fall back to SendCommand.
func (c *Connection) Operation(name string) (op Operation, ok bool) {
	name = strings.ToLower(name)

	c.mu.Lock()
	b, ok := c.bindings[name]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}

	return func(ctx context.Context, args ...string) (resp.RedisValue, error) {
		acks := 0
		if b.kind == kindSubscribe || b.kind == kindPSubscribe {
			acks = len(args)
		}
		v, err := c.roundTrip(ctx, newRequest(b.kind, acks), append([]string{name}, args...))
		if err != nil {
			return nil, err
		}
		if b.transform != nil {
			v = b.transform(args, v)
		}
		return v, nil
	}, true
}

// UnsubscribeAll leaves every channel and every pattern subscription and
// waits until the server has acknowledged both. Calling it with no active
// subscriptions is harmless.
func (c *Connection) UnsubscribeAll(ctx context.Context) error {
	if _, err := c.roundTrip(ctx, newRequest(kindUnsubscribeAll, 0), []string{"UNSUBSCRIBE"}); err != nil {
		return fmt.Errorf("unsubscribe failed: %w", err)
	}
	if _, err := c.roundTrip(ctx, newRequest(kindPUnsubscribeAll, 0), []string{"PUNSUBSCRIBE"}); err != nil {
		return fmt.Errorf("punsubscribe failed: %w", err)
	}
	return nil
}

// Subscriptions reports the number of active channel and pattern subscriptions.
func (c *Connection) Subscriptions() (channels, patterns int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.channels), len(c.patterns)
}

// Monitoring reports whether MONITOR has been accepted on this connection.
// There is no way back; the connection must be replaced.
func (c *Connection) Monitoring() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.monitoring
}
