package conn

import (
	"bufio"
	"net"
	"reflect"
	"testing"

	"github.com/cosmez/rediscli-go/internal/resp"
)

// fakeServer is the far end of a net.Pipe standing in for Redis.
type fakeServer struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

// setupMockConnection creates a Connection over net.Pipe so tests run
// without a real Redis server.
func setupMockConnection(t *testing.T) (*Connection, *fakeServer) {
	t.Helper()
	clientConn, serverConn := net.Pipe()
	c := newConnection(clientConn)
	c.Host, c.Port = "localhost", "6379"
	s := &fakeServer{t: t, conn: serverConn, r: bufio.NewReader(serverConn)}
	t.Cleanup(func() {
		c.Close()
		serverConn.Close()
	})
	return c, s
}

// expect reads one command and checks its arguments.
func (s *fakeServer) expect(args ...string) {
	s.t.Helper()
	v, err := resp.ParseValue(s.r)
	if err != nil {
		s.t.Errorf("server read failed: %v", err)
		return
	}
	arr, ok := v.(resp.RedisArray)
	if !ok {
		s.t.Errorf("expected command array, got %T", v)
		return
	}
	got := make([]string, len(arr.Values))
	for i, a := range arr.Values {
		got[i] = a.StringValue()
	}
	if !reflect.DeepEqual(got, args) {
		s.t.Errorf("server got command %q, want %q", got, args)
	}
}

func (s *fakeServer) send(raw string) {
	s.t.Helper()
	if _, err := s.conn.Write([]byte(raw)); err != nil {
		s.t.Errorf("server write failed: %v", err)
	}
}

type result struct {
	value resp.RedisValue
	err   error
}

// async runs fn in a goroutine and hands back its outcome.
func async(fn func() (resp.RedisValue, error)) <-chan result {
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()
	return ch
}
