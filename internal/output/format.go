// Package output turns RESP replies into display lines and delivers them to
// the terminal.
package output

import (
	"fmt"
	"strings"

	"github.com/cosmez/rediscli-go/internal/resp"
)

// ReplyKind tells a sink what a Reply represents so it can style it.
type ReplyKind int

const (
	KindText ReplyKind = iota
	KindNil
	KindInteger
	KindLines
	KindError
)

// Reply is one formatted store reply: either a single display string or an
// ordered list of display lines.
type Reply struct {
	Kind  ReplyKind
	Text  string
	Lines []string
}

// scalar builds a single-string reply.
func scalar(text string) Reply { return Reply{Kind: KindText, Text: text} }

// Lines builds a multi-line reply. A nil slice is kept as an empty list.
func Lines(lines []string) Reply {
	if lines == nil {
		lines = []string{}
	}
	return Reply{Kind: KindLines, Lines: lines}
}

// IsLines reports whether r carries display lines rather than a scalar.
func (r Reply) IsLines() bool { return r.Kind == KindLines }

// String renders r as it would appear on screen, without colors.
func (r Reply) String() string {
	if r.IsLines() {
		return strings.Join(r.Lines, "\n")
	}
	return r.Text
}

// Format renders a raw reply. The checks run in a fixed order: array, null,
// mapping, integer, then plain text passthrough.
func Format(v resp.RedisValue) Reply {
	if arr, ok := v.(resp.RedisArray); ok {
		return Lines(indexed(arr.Values))
	}

	if isNull(v) {
		return Reply{Kind: KindNil, Text: "(nil)"}
	}

	switch val := v.(type) {
	case resp.RedisMap:
		flat := make([]resp.RedisValue, 0, len(val.Entries)*2)
		for _, e := range val.Entries {
			flat = append(flat, e.Key, e.Value)
		}
		return Lines(indexed(flat))
	case resp.RedisInteger:
		return Reply{Kind: KindInteger, Text: "(integer) " + val.StringValue()}
	}

	return scalar(v.StringValue())
}

// indexed numbers values from 1 as "<i>) <value>".
func indexed(values []resp.RedisValue) []string {
	lines := make([]string, len(values))
	for i, v := range values {
		lines[i] = fmt.Sprintf("%d) %s", i+1, Flat(v))
	}
	return lines
}

func isNull(v resp.RedisValue) bool {
	switch val := v.(type) {
	case nil, resp.RedisNull:
		return true
	case resp.RedisBulkString:
		return val.IsNull()
	}
	return false
}

// Flat stringifies a value nested inside an array without formatting it:
// aggregates become their flat elements joined by commas and nulls become
// empty text.
func Flat(v resp.RedisValue) string {
	switch val := v.(type) {
	case nil, resp.RedisNull:
		return ""
	case resp.RedisArray:
		parts := make([]string, len(val.Values))
		for i, elem := range val.Values {
			parts[i] = Flat(elem)
		}
		return strings.Join(parts, ",")
	case resp.RedisMap:
		parts := make([]string, 0, len(val.Entries)*2)
		for _, e := range val.Entries {
			parts = append(parts, Flat(e.Key), Flat(e.Value))
		}
		return strings.Join(parts, ",")
	default:
		return v.StringValue()
	}
}
