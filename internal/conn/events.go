package conn

import (
	"strings"

	"github.com/cosmez/rediscli-go/internal/resp"
)

// Event names a kind of push notification.
type Event string

const (
	EventSubscribe    Event = "subscribe"
	EventUnsubscribe  Event = "unsubscribe"
	EventMessage      Event = "message"
	EventPSubscribe   Event = "psubscribe"
	EventPUnsubscribe Event = "punsubscribe"
	EventPMessage     Event = "pmessage"
	EventMonitor      Event = "monitor"
)

// PushEvent is a notification delivered outside the request/reply cycle.
// Which fields are set depends on Kind.
type PushEvent struct {
	Kind    Event
	Channel string          // message, pmessage, (un)subscribe acks
	Pattern string          // pmessage, p(un)subscribe acks
	Payload resp.RedisValue // message, pmessage
	Count   int64           // acks: subscriptions still active
	Time    string          // monitor: server timestamp
	Client  string          // monitor: "<db> <addr>"
	Raw     string          // monitor: the whole trace line
}

// Handler receives push events on the connection's reader goroutine. It
// must not block, or every later reply on the connection waits.
type Handler func(PushEvent)

type handlerEntry struct {
	id uint64
	fn Handler
}

// On registers h for ev. Handlers run in registration order. The returned
// function removes the registration and is safe to call more than once.
func (c *Connection) On(ev Event, h Handler) (unregister func()) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.handlers[ev] = append(c.handlers[ev], handlerEntry{id: id, fn: h})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		entries := c.handlers[ev]
		for i, e := range entries {
			if e.id == id {
				c.handlers[ev] = append(entries[:i:i], entries[i+1:]...)
				return
			}
		}
	}
}

// handlersFor snapshots the handlers for ev. c.mu must be held.
func (c *Connection) handlersFor(ev Event) []Handler {
	entries := c.handlers[ev]
	hs := make([]Handler, len(entries))
	for i, e := range entries {
		hs[i] = e.fn
	}
	return hs
}

func parsePubSub(arr resp.RedisArray) (PushEvent, bool) {
	kind := Event(strings.ToLower(arr.Values[0].StringValue()))
	switch kind {
	case EventMessage:
		return PushEvent{Kind: kind, Channel: arr.Values[1].StringValue(), Payload: arr.Values[2]}, true
	case EventPMessage:
		if len(arr.Values) < 4 {
			return PushEvent{}, false
		}
		return PushEvent{
			Kind:    kind,
			Pattern: arr.Values[1].StringValue(),
			Channel: arr.Values[2].StringValue(),
			Payload: arr.Values[3],
		}, true
	case EventSubscribe, EventUnsubscribe:
		return PushEvent{Kind: kind, Channel: arr.Values[1].StringValue(), Count: ackCount(arr.Values[2])}, true
	case EventPSubscribe, EventPUnsubscribe:
		return PushEvent{Kind: kind, Pattern: arr.Values[1].StringValue(), Count: ackCount(arr.Values[2])}, true
	}
	return PushEvent{}, false
}

func ackCount(v resp.RedisValue) int64 {
	if n, ok := v.(resp.RedisInteger); ok {
		return n.IntValue
	}
	return 0
}

// isMonitorLine matches `1339518083.107412 [0 127.0.0.1:60866] "keys" "*"`.
func isMonitorLine(s string) bool {
	ts, rest, ok := strings.Cut(s, " ")
	return ok && ts != "" && ts[0] >= '0' && ts[0] <= '9' && strings.HasPrefix(rest, "[")
}

func parseMonitorLine(s string) PushEvent {
	ev := PushEvent{Kind: EventMonitor, Raw: s}
	ts, rest, _ := strings.Cut(s, " ")
	ev.Time = ts
	if client, _, ok := strings.Cut(strings.TrimPrefix(rest, "["), "]"); ok {
		ev.Client = client
	}
	return ev
}
