package exec

import (
	"context"
	"strings"
	"sync"

	"github.com/cosmez/rediscli-go/internal/conn"
	"github.com/cosmez/rediscli-go/internal/resp"
)

type call struct {
	name string
	args []string
}

// fakeStore records invocations and lets tests emit push events.
type fakeStore struct {
	mu           sync.Mutex
	replies      map[string]resp.RedisValue
	errs         map[string]error
	bound        map[string]bool
	during       map[string]func() // runs inside the operation, before it returns
	calls        []call
	fallbacks    []call
	handlers     map[conn.Event][]*conn.Handler
	unsubscribed int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		replies:  make(map[string]resp.RedisValue),
		errs:     make(map[string]error),
		during:   make(map[string]func()),
		bound:    map[string]bool{"set": true, "get": true, "incr": true, "hgetall": true, "subscribe": true, "psubscribe": true, "monitor": true},
		handlers: make(map[conn.Event][]*conn.Handler),
	}
}

func (f *fakeStore) reply(name string) (resp.RedisValue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name = strings.ToLower(name)
	if err, ok := f.errs[name]; ok {
		return nil, err
	}
	if v, ok := f.replies[name]; ok {
		return v, nil
	}
	return resp.RedisString{Value: "OK"}, nil
}

func (f *fakeStore) Operation(name string) (conn.Operation, bool) {
	name = strings.ToLower(name)
	f.mu.Lock()
	ok := f.bound[name]
	f.mu.Unlock()
	if !ok {
		return nil, false
	}
	return func(_ context.Context, args ...string) (resp.RedisValue, error) {
		f.mu.Lock()
		f.calls = append(f.calls, call{name, args})
		hook := f.during[name]
		f.mu.Unlock()
		if hook != nil {
			hook()
		}
		return f.reply(name)
	}, true
}

func (f *fakeStore) SendCommand(_ context.Context, name string, args ...string) (resp.RedisValue, error) {
	f.mu.Lock()
	f.fallbacks = append(f.fallbacks, call{name, args})
	f.mu.Unlock()
	return f.reply(name)
}

func (f *fakeStore) On(ev conn.Event, h conn.Handler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &h
	f.handlers[ev] = append(f.handlers[ev], p)
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		hs := f.handlers[ev]
		for i, q := range hs {
			if q == p {
				f.handlers[ev] = append(hs[:i:i], hs[i+1:]...)
				return
			}
		}
	}
}

func (f *fakeStore) UnsubscribeAll(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribed++
	return nil
}

// emit delivers ev to the handlers registered for its kind.
func (f *fakeStore) emit(ev conn.PushEvent) {
	f.mu.Lock()
	hs := append([]*conn.Handler(nil), f.handlers[ev.Kind]...)
	f.mu.Unlock()
	for _, h := range hs {
		(*h)(ev)
	}
}

func (f *fakeStore) handlerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, hs := range f.handlers {
		n += len(hs)
	}
	return n
}
