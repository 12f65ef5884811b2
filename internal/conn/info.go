package conn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cosmez/rediscli-go/internal/command"
	"github.com/cosmez/rediscli-go/internal/resp"
)

// FetchServerCommands asks the server for its COMMAND table. A server that
// refuses COMMAND (old version, restricted ACL) yields nil, nil.
func (c *Connection) FetchServerCommands(ctx context.Context) ([]command.ServerCommand, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	response, err := c.Do(ctx, "COMMAND")
	if err != nil {
		var replyErr *ReplyError
		if errors.As(err, &replyErr) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch COMMAND: %w", err)
	}

	array, ok := response.(resp.RedisArray)
	if !ok {
		return nil, fmt.Errorf("expected array for COMMAND, got %T", response)
	}

	var cmds []command.ServerCommand
	for _, entry := range array.Values {
		sc, err := parseCommandEntry(entry)
		if err != nil {
			continue // skip malformed entries
		}
		cmds = append(cmds, sc)
	}
	return cmds, nil
}

// parseCommandEntry converts one COMMAND entry. Entries have up to 10
// elements; older servers send fewer.
func parseCommandEntry(v resp.RedisValue) (command.ServerCommand, error) {
	arr, ok := v.(resp.RedisArray)
	if !ok || len(arr.Values) < 2 {
		return command.ServerCommand{}, fmt.Errorf("expected array with >= 2 elements")
	}

	// [0] name: lowercase, "|" separates subcommands
	name := strings.ToUpper(strings.ReplaceAll(arr.Values[0].StringValue(), "|", " "))

	var arity int64
	if n, ok := arr.Values[1].(resp.RedisInteger); ok {
		arity = n.IntValue
	}

	// [6] ACL categories (Redis 7.0+)
	var aclCats []string
	if len(arr.Values) > 6 {
		aclCats = stringArray(arr.Values[6])
	}

	// [9] subcommands (Redis 7.0+)
	var subcommands []command.ServerCommand
	if len(arr.Values) > 9 {
		if subArr, ok := arr.Values[9].(resp.RedisArray); ok {
			for _, subEntry := range subArr.Values {
				if sub, err := parseCommandEntry(subEntry); err == nil {
					subcommands = append(subcommands, sub)
				}
			}
		}
	}

	return command.ServerCommand{
		Name:        name,
		Arity:       arity,
		ACLCats:     aclCats,
		Subcommands: subcommands,
	}, nil
}

func stringArray(v resp.RedisValue) []string {
	arr, ok := v.(resp.RedisArray)
	if !ok {
		return nil
	}
	strs := make([]string, 0, len(arr.Values))
	for _, elem := range arr.Values {
		strs = append(strs, elem.StringValue())
	}
	return strs
}

// getServerInfo loads INFO into ServerInfo as key/value pairs.
func (c *Connection) getServerInfo(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	response, err := c.Do(ctx, "INFO")
	if err != nil {
		return fmt.Errorf("failed to fetch INFO: %w", err)
	}

	bulk, ok := response.(resp.RedisBulkString)
	if !ok {
		return fmt.Errorf("expected bulk string for INFO, got %T", response)
	}

	c.ServerInfo = make(map[string]string)
	for _, line := range strings.Split(bulk.Value, "\r\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if key, value, ok := strings.Cut(line, ":"); ok {
			c.ServerInfo[key] = value
		}
	}
	return nil
}
