package conn

import (
	"sync"

	"github.com/cosmez/rediscli-go/internal/resp"
)

type requestKind int

const (
	kindReply requestKind = iota
	kindSubscribe
	kindPSubscribe
	kindUnsubscribeAll
	kindPUnsubscribeAll
	kindMonitor
)

type reply struct {
	value resp.RedisValue
	err   error
}

// request is one command waiting for its reply. Subscription commands are
// answered by acks instead of a single reply: one ack per argument for
// (P)SUBSCRIBE, and acks until nothing is left for the unsubscribe-all forms.
type request struct {
	kind      requestKind
	remaining int
	ackName   string
	result    chan reply
	once      sync.Once
}

func newRequest(kind requestKind, acks int) *request {
	return &request{kind: kind, remaining: acks, result: make(chan reply, 1)}
}

func (r *request) resolve(v resp.RedisValue, err error) {
	r.once.Do(func() {
		r.result <- reply{value: v, err: err}
	})
}

// acknowledgedBy consumes ev if it answers r and reports whether r is now
// complete. channels and patterns are the subscription counts after ev.
func (r *request) acknowledgedBy(ev PushEvent, channels, patterns int) bool {
	switch r.kind {
	case kindSubscribe:
		if ev.Kind != EventSubscribe {
			return false
		}
		r.ackName = ev.Channel
		r.remaining--
		return r.remaining <= 0
	case kindPSubscribe:
		if ev.Kind != EventPSubscribe {
			return false
		}
		r.ackName = ev.Pattern
		r.remaining--
		return r.remaining <= 0
	case kindUnsubscribeAll:
		if ev.Kind != EventUnsubscribe {
			return false
		}
		r.ackName = ev.Channel
		return ev.Channel == "" || channels == 0
	case kindPUnsubscribeAll:
		if ev.Kind != EventPUnsubscribe {
			return false
		}
		r.ackName = ev.Pattern
		return ev.Pattern == "" || patterns == 0
	}
	return false
}
