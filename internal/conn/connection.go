package conn

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/cosmez/rediscli-go/internal/resp"
)

// ErrClosed is returned for requests made on, or pending when, the
// connection is closed.
var ErrClosed = errors.New("connection closed")

// ReplyError is an error reply sent by the server, e.g.
// "ERR unknown command 'foo'". The message is kept verbatim.
type ReplyError struct {
	Message string
}

func (e *ReplyError) Error() string { return e.Message }

// Connection is a TCP connection to a Redis server. Requests may be issued
// from any goroutine; replies are matched to requests in FIFO order by a
// single reader goroutine, which also delivers pub/sub and monitor push
// events to registered handlers in arrival order.
type Connection struct {
	Host       string
	Port       string
	ServerInfo map[string]string

	log    *slog.Logger
	conn   net.Conn
	reader *bufio.Reader
	done   chan struct{}

	// writeMu keeps "queue request, write bytes" atomic so the pending
	// queue order always matches the wire order.
	writeMu sync.Mutex

	mu         sync.Mutex
	pending    []*request
	handlers   map[Event][]handlerEntry
	nextID     uint64
	bindings   map[string]binding
	channels   map[string]bool
	patterns   map[string]bool
	monitoring bool
	closing    bool
	err        error
}

// Option configures a Connection.
type Option func(*Connection)

// WithLogger sets the diagnostic logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(c *Connection) {
		if l != nil {
			c.log = l
		}
	}
}

// Connect dials host:port, authenticates when pass is set (ACL style when
// user is set too) and loads the INFO banner.
func Connect(ctx context.Context, host, port, user, pass string, opts ...Option) (*Connection, error) {
	address := net.JoinHostPort(host, port)

	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", address, err)
	}

	c := newConnection(nc, opts...)
	c.Host = host
	c.Port = port

	if pass != "" {
		args := []string{"AUTH", pass}
		if user != "" {
			args = []string{"AUTH", user, pass}
		}

		authCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		reply, err := c.Do(authCtx, args...)
		cancel()
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("authentication failed: %w", err)
		}
		if s, ok := reply.(resp.RedisString); !ok || s.Value != "OK" {
			c.Close()
			return nil, fmt.Errorf("unexpected AUTH response: %v", reply)
		}
	}

	// Restricted ACLs may refuse INFO; that must not fail the connection.
	if err := c.getServerInfo(ctx); err != nil {
		c.log.Warn("server info unavailable", "err", err)
		c.ServerInfo = map[string]string{"error": err.Error()}
	}

	return c, nil
}

func newConnection(nc net.Conn, opts ...Option) *Connection {
	c := &Connection{
		log:      slog.New(slog.DiscardHandler),
		conn:     nc,
		reader:   bufio.NewReader(nc),
		done:     make(chan struct{}),
		handlers: make(map[Event][]handlerEntry),
		bindings: defaultBindings(),
		channels: make(map[string]bool),
		patterns: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.readLoop()
	return c
}

// Do sends args[0] with the remaining arguments and waits for the reply.
// Error replies are returned as *ReplyError.
func (c *Connection) Do(ctx context.Context, args ...string) (resp.RedisValue, error) {
	if len(args) == 0 {
		return nil, errors.New("empty command")
	}
	return c.roundTrip(ctx, newRequest(kindReply, 0), args)
}

// SendCommand is the generic invocation for commands without a dedicated
// operation: name and args go over the wire verbatim.
func (c *Connection) SendCommand(ctx context.Context, name string, args ...string) (resp.RedisValue, error) {
	return c.Do(ctx, append([]string{name}, args...)...)
}

func (c *Connection) roundTrip(ctx context.Context, req *request, args []string) (resp.RedisValue, error) {
	c.writeMu.Lock()
	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		c.writeMu.Unlock()
		return nil, err
	}
	c.pending = append(c.pending, req)
	c.mu.Unlock()

	_, err := c.conn.Write(resp.EncodeCommand(args...))
	c.writeMu.Unlock()
	if err != nil {
		// the reader fails every pending request once the socket is gone
		c.conn.Close()
		return nil, fmt.Errorf("failed to send %s: %w", strings.ToUpper(args[0]), err)
	}

	c.log.Debug("sent command", "name", args[0], "args", len(args)-1)

	select {
	case r := <-req.result:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done is closed once the reader goroutine has stopped.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that stopped the connection, or nil while it is live.
func (c *Connection) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close terminates the TCP connection. Pending requests fail with ErrClosed.
func (c *Connection) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	c.mu.Lock()
	c.closing = true
	c.mu.Unlock()
	return c.conn.Close()
}

func (c *Connection) readLoop() {
	for {
		v, err := resp.ParseValue(c.reader)
		if err != nil {
			c.fail(fmt.Errorf("failed to read reply: %w", err))
			return
		}
		c.dispatch(v)
	}
}

// fail stops the connection and releases every waiter.
func (c *Connection) fail(err error) {
	c.mu.Lock()
	if c.closing {
		err = ErrClosed
	} else {
		c.log.Warn("connection lost", "err", err)
	}
	if c.err == nil {
		c.err = err
	}
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, req := range pending {
		req.resolve(nil, err)
	}
	close(c.done)
}

// dispatch routes one value read off the wire: pub/sub arrays and monitor
// lines become push events, everything else answers the oldest request.
func (c *Connection) dispatch(v resp.RedisValue) {
	c.mu.Lock()

	if ev, ok := c.pubSubEvent(v); ok {
		completed := c.trackSubscription(ev)
		hs := c.handlersFor(ev.Kind)
		c.mu.Unlock()

		for _, h := range hs {
			h(ev)
		}
		if completed != nil {
			completed.resolve(resp.RedisBulkString{Value: completed.ackName, Length: len(completed.ackName)}, nil)
		}
		return
	}

	if s, ok := v.(resp.RedisString); ok && c.monitoring && isMonitorLine(s.Value) {
		hs := c.handlersFor(EventMonitor)
		c.mu.Unlock()

		ev := parseMonitorLine(s.Value)
		for _, h := range hs {
			h(ev)
		}
		return
	}

	if len(c.pending) == 0 {
		c.mu.Unlock()
		c.log.Debug("dropping unsolicited reply", "type", v.Type().String(), "value", v.StringValue())
		return
	}

	req := c.pending[0]
	c.pending = c.pending[1:]
	if _, isErr := v.(resp.RedisError); !isErr && req.kind == kindMonitor {
		c.monitoring = true
	}
	c.mu.Unlock()

	if e, ok := v.(resp.RedisError); ok {
		req.resolve(nil, &ReplyError{Message: e.Value})
		return
	}
	req.resolve(v, nil)
}

// pubSubEvent recognizes pub/sub shaped arrays. Outside pub/sub mode such an
// array is an ordinary reply (e.g. LRANGE of a list holding "message"), so
// it only counts while subscriptions exist or a subscription request waits.
// c.mu must be held.
func (c *Connection) pubSubEvent(v resp.RedisValue) (PushEvent, bool) {
	arr, ok := v.(resp.RedisArray)
	if !ok || len(arr.Values) < 3 {
		return PushEvent{}, false
	}

	expecting := len(c.pending) > 0 && c.pending[0].kind != kindReply && c.pending[0].kind != kindMonitor
	if !expecting && len(c.channels) == 0 && len(c.patterns) == 0 {
		return PushEvent{}, false
	}

	return parsePubSub(arr)
}

// trackSubscription updates the subscription sets for an ack and returns the
// head request if ev completes it. c.mu must be held.
func (c *Connection) trackSubscription(ev PushEvent) *request {
	switch ev.Kind {
	case EventSubscribe:
		c.channels[ev.Channel] = true
	case EventUnsubscribe:
		delete(c.channels, ev.Channel)
	case EventPSubscribe:
		c.patterns[ev.Pattern] = true
	case EventPUnsubscribe:
		delete(c.patterns, ev.Pattern)
	default:
		return nil
	}

	if len(c.pending) == 0 {
		return nil
	}
	head := c.pending[0]
	if !head.acknowledgedBy(ev, len(c.channels), len(c.patterns)) {
		return nil
	}
	c.pending = c.pending[1:]
	return head
}
