package conn

import (
	"context"
	"testing"

	"github.com/cosmez/rediscli-go/internal/resp"
)

func TestHGetAllReturnsMapping(t *testing.T) {
	c, s := setupMockConnection(t)

	op, ok := c.Operation("HGETALL")
	if !ok {
		t.Fatal("hgetall should have a dedicated operation")
	}
	res := async(func() (resp.RedisValue, error) { return op(context.Background(), "user:1") })
	s.expect("hgetall", "user:1")
	s.send("*4\r\n$4\r\nname\r\n$5\r\nalice\r\n$3\r\nage\r\n$2\r\n30\r\n")

	r := <-res
	m, ok := r.value.(resp.RedisMap)
	if !ok {
		t.Fatalf("expected RedisMap, got %T (%v)", r.value, r.err)
	}
	if len(m.Entries) != 2 || m.Entries[0].Key.StringValue() != "name" || m.Entries[1].Value.StringValue() != "30" {
		t.Errorf("unexpected mapping %+v", m)
	}
}

func TestConfigTransformOnlyPairsGet(t *testing.T) {
	c, s := setupMockConnection(t)
	op, _ := c.Operation("config")

	res := async(func() (resp.RedisValue, error) { return op(context.Background(), "GET", "maxmemory") })
	s.expect("config", "GET", "maxmemory")
	s.send("*2\r\n$9\r\nmaxmemory\r\n$1\r\n0\r\n")
	if r := <-res; r.value.Type() != resp.TypeMap {
		t.Errorf("CONFIG GET reply type = %v, want map", r.value.Type())
	}

	res = async(func() (resp.RedisValue, error) { return op(context.Background(), "SET", "maxmemory", "1mb") })
	s.expect("config", "SET", "maxmemory", "1mb")
	s.send("+OK\r\n")
	if r := <-res; r.value.StringValue() != "OK" {
		t.Errorf("CONFIG SET reply = %v, %v", r.value, r.err)
	}
}

func TestBind(t *testing.T) {
	c, s := setupMockConnection(t)

	if _, ok := c.Operation("ft.search"); ok {
		t.Fatal("ft.search should not be bound by default")
	}
	c.Bind("GET", "FT.SEARCH", "HGETALL")

	op, ok := c.Operation("FT.SEARCH")
	if !ok {
		t.Fatal("FT.SEARCH should be bound after Bind")
	}
	res := async(func() (resp.RedisValue, error) { return op(context.Background(), "idx", "car") })
	s.expect("ft.search", "idx", "car")
	s.send("*0\r\n")
	<-res

	// rebinding keeps the HGETALL transform
	op, _ = c.Operation("hgetall")
	res = async(func() (resp.RedisValue, error) { return op(context.Background(), "h") })
	s.expect("hgetall", "h")
	s.send("*2\r\n$1\r\nf\r\n$1\r\nv\r\n")
	if r := <-res; r.value.Type() != resp.TypeMap {
		t.Errorf("hgetall lost its transform after Bind: %v", r.value.Type())
	}
}

func TestHelloThreeKeepsConnectionUsable(t *testing.T) {
	c, s := setupMockConnection(t)
	op, _ := c.Operation("hello")

	res := async(func() (resp.RedisValue, error) { return op(context.Background(), "3") })
	s.expect("hello", "3")
	s.send("%1\r\n$5\r\nproto\r\n:3\r\n")
	if r := <-res; r.err != nil || r.value.Type() != resp.TypeMap {
		t.Fatalf("HELLO 3 = %v, %v", r.value, r.err)
	}

	tests := []struct {
		args  []string
		reply string
		want  string
	}{
		{[]string{"SMEMBERS", "k"}, "~2\r\n$1\r\na\r\n$1\r\nb\r\n", "b"},
		{[]string{"INCRBYFLOAT", "f", "0.5"}, ",1.5\r\n", "1.5"},
		{[]string{"INFO", "server"}, "=15\r\ntxt:redis_version\r\n", "redis_version"},
		{[]string{"SISMEMBER", "k", "a"}, "#t\r\n", "(true)"},
	}
	for _, tt := range tests {
		res := async(func() (resp.RedisValue, error) { return c.Do(context.Background(), tt.args...) })
		s.expect(tt.args...)
		s.send(tt.reply)

		r := <-res
		if r.err != nil {
			t.Fatalf("%s failed: %v", tt.args[0], r.err)
		}
		got := r.value.StringValue()
		if arr, ok := r.value.(resp.RedisArray); ok {
			got = arr.Values[len(arr.Values)-1].StringValue()
		}
		if got != tt.want {
			t.Errorf("%s = %q, want %q", tt.args[0], got, tt.want)
		}
	}

	if err := c.Err(); err != nil {
		t.Errorf("connection failed after RESP3 replies: %v", err)
	}
}
