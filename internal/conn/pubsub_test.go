package conn

import (
	"context"
	"testing"
	"time"

	"github.com/cosmez/rediscli-go/internal/resp"
)

func waitEvent(t *testing.T, ch <-chan PushEvent) PushEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for push event")
		return PushEvent{}
	}
}

func subscribe(t *testing.T, c *Connection, s *fakeServer, channels ...string) {
	t.Helper()
	op, ok := c.Operation("SUBSCRIBE")
	if !ok {
		t.Fatal("subscribe should have a dedicated operation")
	}
	res := async(func() (resp.RedisValue, error) { return op(context.Background(), channels...) })
	s.expect(append([]string{"subscribe"}, channels...)...)
	for i, ch := range channels {
		s.send("*3\r\n$9\r\nsubscribe\r\n" + bulkRaw(ch) + ":" + itoa(i+1) + "\r\n")
	}
	r := <-res
	if r.err != nil {
		t.Fatalf("subscribe failed: %v", r.err)
	}
	if got, want := r.value.StringValue(), channels[len(channels)-1]; got != want {
		t.Errorf("subscribe resolved with %q, want %q", got, want)
	}
}

func bulkRaw(s string) string { return "$" + itoa(len(s)) + "\r\n" + s + "\r\n" }

func itoa(n int) string { return resp.RedisInteger{IntValue: int64(n)}.StringValue() }

func TestSubscribeDeliversMessages(t *testing.T) {
	c, s := setupMockConnection(t)

	messages := make(chan PushEvent, 4)
	c.On(EventMessage, func(ev PushEvent) { messages <- ev })

	subscribe(t, c, s, "news", "sport")
	if ch, pat := c.Subscriptions(); ch != 2 || pat != 0 {
		t.Errorf("Subscriptions() = %d, %d; want 2, 0", ch, pat)
	}

	s.send("*3\r\n$7\r\nmessage\r\n$4\r\nnews\r\n$5\r\nhello\r\n")
	ev := waitEvent(t, messages)
	if ev.Channel != "news" || ev.Payload.StringValue() != "hello" {
		t.Errorf("unexpected message event %+v", ev)
	}
}

func TestSubscribeAcksReachHandlers(t *testing.T) {
	c, s := setupMockConnection(t)

	acks := make(chan PushEvent, 4)
	c.On(EventSubscribe, func(ev PushEvent) { acks <- ev })

	subscribe(t, c, s, "a", "b")
	first, second := waitEvent(t, acks), waitEvent(t, acks)
	if first.Channel != "a" || first.Count != 1 || second.Channel != "b" || second.Count != 2 {
		t.Errorf("acks = %+v, %+v", first, second)
	}
}

func TestPatternSubscribe(t *testing.T) {
	c, s := setupMockConnection(t)

	pmessages := make(chan PushEvent, 4)
	c.On(EventPMessage, func(ev PushEvent) { pmessages <- ev })

	op, ok := c.Operation("psubscribe")
	if !ok {
		t.Fatal("psubscribe should have a dedicated operation")
	}
	res := async(func() (resp.RedisValue, error) { return op(context.Background(), "news.*") })
	s.expect("psubscribe", "news.*")
	s.send("*3\r\n$10\r\npsubscribe\r\n$6\r\nnews.*\r\n:1\r\n")

	if r := <-res; r.err != nil || r.value.StringValue() != "news.*" {
		t.Fatalf("psubscribe = %v, %v", r.value, r.err)
	}

	s.send("*4\r\n$8\r\npmessage\r\n$6\r\nnews.*\r\n$9\r\nnews.tech\r\n$2\r\nhi\r\n")
	ev := waitEvent(t, pmessages)
	if ev.Pattern != "news.*" || ev.Channel != "news.tech" || ev.Payload.StringValue() != "hi" {
		t.Errorf("unexpected pmessage event %+v", ev)
	}
}

func TestUnregisterStopsDelivery(t *testing.T) {
	c, s := setupMockConnection(t)

	removed := make(chan PushEvent, 4)
	kept := make(chan PushEvent, 4)
	unregister := c.On(EventMessage, func(ev PushEvent) { removed <- ev })
	c.On(EventMessage, func(ev PushEvent) { kept <- ev })

	subscribe(t, c, s, "news")
	unregister()
	unregister()

	s.send("*3\r\n$7\r\nmessage\r\n$4\r\nnews\r\n$1\r\nx\r\n")
	waitEvent(t, kept)

	select {
	case ev := <-removed:
		t.Errorf("unregistered handler still received %+v", ev)
	default:
	}
}

func TestUnsubscribeAll(t *testing.T) {
	c, s := setupMockConnection(t)
	subscribe(t, c, s, "news")

	done := make(chan error, 1)
	go func() { done <- c.UnsubscribeAll(context.Background()) }()

	s.expect("UNSUBSCRIBE")
	s.send("*3\r\n$11\r\nunsubscribe\r\n$4\r\nnews\r\n:0\r\n")
	s.expect("PUNSUBSCRIBE")
	s.send("*3\r\n$12\r\npunsubscribe\r\n$-1\r\n:0\r\n")

	if err := <-done; err != nil {
		t.Fatalf("UnsubscribeAll failed: %v", err)
	}
	if ch, pat := c.Subscriptions(); ch != 0 || pat != 0 {
		t.Errorf("Subscriptions() = %d, %d; want 0, 0", ch, pat)
	}

	// back in normal mode, pub/sub shaped arrays are ordinary replies
	res := async(func() (resp.RedisValue, error) {
		return c.Do(context.Background(), "LRANGE", "l", "0", "-1")
	})
	s.expect("LRANGE", "l", "0", "-1")
	s.send("*3\r\n$7\r\nmessage\r\n$1\r\na\r\n$1\r\nb\r\n")

	r := <-res
	if arr, ok := r.value.(resp.RedisArray); !ok || len(arr.Values) != 3 {
		t.Errorf("LRANGE reply = %v, %v", r.value, r.err)
	}
}

func TestUnsubscribeAllWithoutSubscriptions(t *testing.T) {
	c, s := setupMockConnection(t)

	done := make(chan error, 1)
	go func() { done <- c.UnsubscribeAll(context.Background()) }()

	s.expect("UNSUBSCRIBE")
	s.send("*3\r\n$11\r\nunsubscribe\r\n$-1\r\n:0\r\n")
	s.expect("PUNSUBSCRIBE")
	s.send("*3\r\n$12\r\npunsubscribe\r\n$-1\r\n:0\r\n")

	if err := <-done; err != nil {
		t.Fatalf("UnsubscribeAll failed: %v", err)
	}
}

func TestMonitor(t *testing.T) {
	c, s := setupMockConnection(t)

	lines := make(chan PushEvent, 4)
	c.On(EventMonitor, func(ev PushEvent) { lines <- ev })

	op, ok := c.Operation("MONITOR")
	if !ok {
		t.Fatal("monitor should have a dedicated operation")
	}
	res := async(func() (resp.RedisValue, error) { return op(context.Background()) })
	s.expect("monitor")
	s.send("+OK\r\n")

	if r := <-res; r.err != nil || r.value.StringValue() != "OK" {
		t.Fatalf("monitor = %v, %v", r.value, r.err)
	}
	if !c.Monitoring() {
		t.Fatal("Monitoring() should be true after MONITOR")
	}

	line := `1339518083.107412 [0 127.0.0.1:60866] "keys" "*"`
	s.send("+" + line + "\r\n")

	ev := waitEvent(t, lines)
	if ev.Raw != line || ev.Time != "1339518083.107412" || ev.Client != "0 127.0.0.1:60866" {
		t.Errorf("unexpected monitor event %+v", ev)
	}
}

func TestMonitorRejected(t *testing.T) {
	c, s := setupMockConnection(t)

	op, _ := c.Operation("monitor")
	res := async(func() (resp.RedisValue, error) { return op(context.Background()) })
	s.expect("monitor")
	s.send("-NOPERM this user has no permissions to run the 'monitor' command\r\n")

	if r := <-res; r.err == nil {
		t.Fatal("expected an error")
	}
	if c.Monitoring() {
		t.Error("Monitoring() should stay false after a refused MONITOR")
	}
}

func TestParseMonitorLine(t *testing.T) {
	tests := []struct {
		line   string
		ok     bool
		time   string
		client string
	}{
		{`1339518083.107412 [0 127.0.0.1:60866] "keys" "*"`, true, "1339518083.107412", "0 127.0.0.1:60866"},
		{`1700000000.000001 [3 lua] "get" "k"`, true, "1700000000.000001", "3 lua"},
		{"OK", false, "", ""},
		{"PONG", false, "", ""},
		{"", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := isMonitorLine(tt.line); got != tt.ok {
				t.Fatalf("isMonitorLine(%q) = %v, want %v", tt.line, got, tt.ok)
			}
			if !tt.ok {
				return
			}
			ev := parseMonitorLine(tt.line)
			if ev.Time != tt.time || ev.Client != tt.client || ev.Raw != tt.line {
				t.Errorf("parseMonitorLine() = %+v", ev)
			}
		})
	}
}

func TestParsePubSub(t *testing.T) {
	b := func(s string) resp.RedisValue { return resp.RedisBulkString{Value: s, Length: len(s)} }

	tests := []struct {
		name  string
		value resp.RedisArray
		ok    bool
		want  PushEvent
	}{
		{
			name:  "Message",
			value: resp.RedisArray{Values: []resp.RedisValue{b("message"), b("ch"), b("hi")}},
			ok:    true,
			want:  PushEvent{Kind: EventMessage, Channel: "ch", Payload: b("hi")},
		},
		{
			name:  "Subscribe Ack",
			value: resp.RedisArray{Values: []resp.RedisValue{b("subscribe"), b("ch"), resp.RedisInteger{IntValue: 3}}},
			ok:    true,
			want:  PushEvent{Kind: EventSubscribe, Channel: "ch", Count: 3},
		},
		{
			name:  "PUnsubscribe Null Pattern",
			value: resp.RedisArray{Values: []resp.RedisValue{b("punsubscribe"), resp.RedisNull{}, resp.RedisInteger{}}},
			ok:    true,
			want:  PushEvent{Kind: EventPUnsubscribe},
		},
		{
			name:  "Short PMessage",
			value: resp.RedisArray{Values: []resp.RedisValue{b("pmessage"), b("p"), b("ch")}},
			ok:    false,
		},
		{
			name:  "Not Pub/Sub",
			value: resp.RedisArray{Values: []resp.RedisValue{b("1"), b("2"), b("3")}},
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parsePubSub(tt.value)
			if ok != tt.ok {
				t.Fatalf("parsePubSub() ok = %v, want %v", ok, tt.ok)
			}
			if ok && (got.Kind != tt.want.Kind || got.Channel != tt.want.Channel ||
				got.Pattern != tt.want.Pattern || got.Count != tt.want.Count) {
				t.Errorf("parsePubSub() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
