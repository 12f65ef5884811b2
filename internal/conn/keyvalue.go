package conn

import (
	"context"
	"fmt"
	"time"

	"github.com/cosmez/rediscli-go/internal/resp"
)

// KeyType returns the TYPE of key: "string", "list", "set", "zset", "hash",
// "stream" or "none".
func (c *Connection) KeyType(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	response, err := c.Do(ctx, "TYPE", key)
	if err != nil {
		return "", fmt.Errorf("TYPE command failed: %w", err)
	}

	s, ok := response.(resp.RedisString)
	if !ok {
		return "", fmt.Errorf("expected simple string for TYPE, got %T", response)
	}
	return s.Value, nil
}

// ViewTokens returns the command that reads a whole key of the given type.
func ViewTokens(typeName, key string) ([]string, error) {
	switch typeName {
	case "string":
		return []string{"GET", key}, nil
	case "list":
		return []string{"LRANGE", key, "0", "-1"}, nil
	case "set":
		return []string{"SMEMBERS", key}, nil
	case "zset":
		return []string{"ZRANGE", key, "0", "-1", "WITHSCORES"}, nil
	case "hash":
		return []string{"HGETALL", key}, nil
	case "stream":
		return []string{"XRANGE", key, "-", "+"}, nil
	case "none":
		return nil, fmt.Errorf("key does not exist")
	default:
		return nil, fmt.Errorf("unsupported key type: %s", typeName)
	}
}
