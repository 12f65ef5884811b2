package output

import (
	"github.com/cosmez/rediscli-go/internal/resp"
	"github.com/cosmez/rediscli-go/internal/serializer"
)

// Decode runs string values of v, including those nested in arrays and maps,
// through s. Values that fail to decode are kept as they are, since a reply
// can mix encoded and plain entries.
func Decode(v resp.RedisValue, s serializer.Serializer) resp.RedisValue {
	if s == nil {
		return v
	}

	switch val := v.(type) {
	case resp.RedisBulkString:
		if val.IsNull() {
			return val
		}
		if out, err := s.Deserialize([]byte(val.Value)); err == nil {
			return resp.RedisBulkString{Value: string(out), Length: len(out)}
		}
	case resp.RedisString:
		if out, err := s.Deserialize([]byte(val.Value)); err == nil {
			return resp.RedisString{Value: string(out)}
		}
	case resp.RedisArray:
		values := make([]resp.RedisValue, len(val.Values))
		for i, elem := range val.Values {
			values[i] = Decode(elem, s)
		}
		return resp.RedisArray{Values: values}
	case resp.RedisMap:
		entries := make([]resp.MapEntry, len(val.Entries))
		for i, e := range val.Entries {
			entries[i] = resp.MapEntry{Key: e.Key, Value: Decode(e.Value, s)}
		}
		return resp.RedisMap{Entries: entries}
	}
	return v
}
