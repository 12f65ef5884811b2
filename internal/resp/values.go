package resp

import "strconv"

// ValueType identifies the kind of a RESP value.
type ValueType int

const (
	TypeNone ValueType = iota
	TypeString
	TypeInteger
	TypeBulkString
	TypeArray
	TypeNull
	TypeError
	TypeMap
)

func (t ValueType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInteger:
		return "integer"
	case TypeBulkString:
		return "bulk"
	case TypeArray:
		return "array"
	case TypeNull:
		return "null"
	case TypeError:
		return "error"
	case TypeMap:
		return "map"
	default:
		return "none"
	}
}

// RedisValue is implemented by every value the parser can produce.
type RedisValue interface {
	Type() ValueType
	StringValue() string
}

// RedisString represents a RESP Simple String (starts with +).
type RedisString struct {
	Value string
}

func (s RedisString) Type() ValueType     { return TypeString }
func (s RedisString) StringValue() string { return s.Value }

// RedisBulkString represents a RESP Bulk String (starts with $).
// A Length of -1 marks the null bulk string.
type RedisBulkString struct {
	Value  string
	Length int
}

func (b RedisBulkString) Type() ValueType     { return TypeBulkString }
func (b RedisBulkString) StringValue() string { return b.Value }

// IsNull reports whether b is the null bulk string.
func (b RedisBulkString) IsNull() bool { return b.Length == -1 }

// RedisInteger represents a RESP Integer (starts with :).
type RedisInteger struct {
	IntValue int64
}

func (i RedisInteger) Type() ValueType { return TypeInteger }
func (i RedisInteger) StringValue() string {
	return strconv.FormatInt(i.IntValue, 10)
}

// RedisArray represents a RESP Array (starts with *).
type RedisArray struct {
	Values []RedisValue
}

func (a RedisArray) Type() ValueType { return TypeArray }

// StringValue is empty; display of arrays belongs to the output package.
func (a RedisArray) StringValue() string { return "" }

// RedisError represents a RESP Error (starts with -).
type RedisError struct {
	Value string
}

func (e RedisError) Type() ValueType     { return TypeError }
func (e RedisError) StringValue() string { return e.Value }

// RedisNull represents the null bulk string ($-1), the null array (*-1)
// and the RESP3 null (_).
type RedisNull struct{}

func (n RedisNull) Type() ValueType     { return TypeNull }
func (n RedisNull) StringValue() string { return "" }

// MapEntry is one key/value pair of a RedisMap.
type MapEntry struct {
	Key   RedisValue
	Value RedisValue
}

// RedisMap is an ordered key/value reply. It is produced by the RESP3 map
// type (%) and by reply transforms that pair up flat field/value arrays.
type RedisMap struct {
	Entries []MapEntry
}

func (m RedisMap) Type() ValueType     { return TypeMap }
func (m RedisMap) StringValue() string { return "" }

// PairUp turns a flat [k1, v1, k2, v2, ...] array into a RedisMap. A trailing
// key without a value is paired with RedisNull.
func PairUp(a RedisArray) RedisMap {
	entries := make([]MapEntry, 0, (len(a.Values)+1)/2)
	for i := 0; i < len(a.Values); i += 2 {
		e := MapEntry{Key: a.Values[i], Value: RedisNull{}}
		if i+1 < len(a.Values) {
			e.Value = a.Values[i+1]
		}
		entries = append(entries, e)
	}
	return RedisMap{Entries: entries}
}
