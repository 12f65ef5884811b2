package conn

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/cosmez/rediscli-go/internal/resp"
)

// SafeKeys iterates over the keys matching pattern with SCAN, one batch of
// 100 at a time, so large keyspaces never block the server the way KEYS
// does. A failure is yielded as a RedisError and ends the sequence.
func (c *Connection) SafeKeys(ctx context.Context, pattern string) iter.Seq[resp.RedisValue] {
	return func(yield func(resp.RedisValue) bool) {
		cursor := "0"
		for {
			batchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			response, err := c.Do(batchCtx, "SCAN", cursor, "MATCH", pattern, "COUNT", "100")
			cancel()
			if err != nil {
				yield(resp.RedisError{Value: fmt.Sprintf("SCAN failed: %v", err)})
				return
			}

			array, ok := response.(resp.RedisArray)
			if !ok || len(array.Values) < 2 {
				yield(resp.RedisError{Value: "unexpected SCAN response format"})
				return
			}

			cursor = array.Values[0].StringValue()

			keys, ok := array.Values[1].(resp.RedisArray)
			if !ok {
				yield(resp.RedisError{Value: "unexpected SCAN keys array format"})
				return
			}
			for _, key := range keys.Values {
				if !yield(key) {
					return
				}
			}

			if cursor == "0" {
				return
			}
		}
	}
}
