package resp

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Upper bounds on headers read off the wire. A bulk payload larger than the
// server's own proto-max-bulk-len default is treated as a protocol error.
const (
	maxBulkLength = 512 << 20
	preallocLimit = 1024
)

// ParseValue reads a single RESP value from r. RESP2 types are supported in
// full, and so are the RESP3 types a server negotiated with HELLO 3 sends.
// Sets come back as arrays; doubles, big numbers and booleans as simple
// strings; verbatim strings as bulk strings without their format prefix.
// Attributes are read and dropped.
func ParseValue(r *bufio.Reader) (RedisValue, error) {
	b, err := r.ReadByte()
	if err != nil {
		return nil, err
	}

	switch b {
	case '+':
		return parseSimpleString(r)
	case '-':
		return parseError(r)
	case '!':
		return parseBlobError(r)
	case ':':
		return parseInteger(r)
	case '$':
		return parseBulkString(r)
	case '*', '>', '~':
		return parseArray(r)
	case '=':
		return parseVerbatim(r)
	case ',', '(':
		return parseSimpleString(r)
	case '#':
		return parseBoolean(r)
	case '|':
		if _, err := parseMap(r); err != nil {
			return nil, fmt.Errorf("failed to parse attribute: %w", err)
		}
		return ParseValue(r)
	case '%':
		return parseMap(r)
	case '_':
		if _, err := readLine(r); err != nil {
			return nil, err
		}
		return RedisNull{}, nil
	default:
		return nil, fmt.Errorf("unknown RESP type byte: %q", b)
	}
}

// readLine reads up to \n and drops the trailing \r\n.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(line, "\r\n"), nil
}

func parseSimpleString(r *bufio.Reader) (RedisValue, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}
	return RedisString{Value: line}, nil
}

func parseError(r *bufio.Reader) (RedisValue, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}
	return RedisError{Value: line}, nil
}

func parseInteger(r *bufio.Reader) (RedisValue, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}
	val, err := strconv.ParseInt(line, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid integer format: %w", err)
	}
	return RedisInteger{IntValue: val}, nil
}

func parseBulkString(r *bufio.Reader) (RedisValue, error) {
	payload, ok, err := readBlob(r)
	if err != nil {
		return nil, err
	}
	if !ok {
		return RedisNull{}, nil
	}
	return RedisBulkString{Value: payload, Length: len(payload)}, nil
}

// parseVerbatim drops the three-letter format and colon, e.g. "txt:".
func parseVerbatim(r *bufio.Reader) (RedisValue, error) {
	payload, ok, err := readBlob(r)
	if err != nil {
		return nil, err
	}
	if !ok {
		return RedisNull{}, nil
	}
	if len(payload) >= 4 && payload[3] == ':' {
		payload = payload[4:]
	}
	return RedisBulkString{Value: payload, Length: len(payload)}, nil
}

func parseBlobError(r *bufio.Reader) (RedisValue, error) {
	payload, _, err := readBlob(r)
	if err != nil {
		return nil, err
	}
	return RedisError{Value: payload}, nil
}

func parseBoolean(r *bufio.Reader) (RedisValue, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}
	switch line {
	case "t":
		return RedisString{Value: "(true)"}, nil
	case "f":
		return RedisString{Value: "(false)"}, nil
	default:
		return nil, fmt.Errorf("invalid boolean: %q", line)
	}
}

// readBlob reads a length-prefixed payload. ok is false for the -1 null marker.
func readBlob(r *bufio.Reader) (payload string, ok bool, err error) {
	line, err := readLine(r)
	if err != nil {
		return "", false, err
	}

	length, err := strconv.Atoi(line)
	if err != nil {
		return "", false, fmt.Errorf("invalid bulk string length: %w", err)
	}
	if length == -1 {
		return "", false, nil
	}
	if length < -1 || length > maxBulkLength {
		return "", false, fmt.Errorf("invalid bulk string length: %d", length)
	}

	// length-prefixed, so the payload may hold any byte including CRLF
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", false, fmt.Errorf("failed to read bulk string payload: %w", err)
	}

	crlf := make([]byte, 2)
	if _, err := io.ReadFull(r, crlf); err != nil {
		return "", false, fmt.Errorf("failed to read bulk string trailing CRLF: %w", err)
	}
	if crlf[0] != '\r' || crlf[1] != '\n' {
		return "", false, fmt.Errorf("expected CRLF after bulk string payload, got %q", crlf)
	}

	return string(buf), true, nil
}

// readCount reads an aggregate header. ok is false for the -1 null marker.
func readCount(r *bufio.Reader, what string) (n int, ok bool, err error) {
	line, err := readLine(r)
	if err != nil {
		return 0, false, err
	}
	n, err = strconv.Atoi(line)
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s count: %w", what, err)
	}
	if n == -1 {
		return 0, false, nil
	}
	if n < -1 {
		return 0, false, fmt.Errorf("invalid %s count: %d", what, n)
	}
	return n, true, nil
}

func parseArray(r *bufio.Reader) (RedisValue, error) {
	count, ok, err := readCount(r, "array")
	if err != nil {
		return nil, err
	}
	if !ok {
		return RedisNull{}, nil
	}

	// the count is untrusted; the slice grows as elements actually arrive
	values := make([]RedisValue, 0, min(count, preallocLimit))
	for i := 0; i < count; i++ {
		val, err := ParseValue(r)
		if err != nil {
			return nil, fmt.Errorf("failed to parse array element %d: %w", i, err)
		}
		values = append(values, val)
	}

	return RedisArray{Values: values}, nil
}

func parseMap(r *bufio.Reader) (RedisValue, error) {
	count, ok, err := readCount(r, "map")
	if err != nil {
		return nil, err
	}
	if !ok {
		return RedisNull{}, nil
	}

	entries := make([]MapEntry, 0, min(count, preallocLimit))
	for i := 0; i < count; i++ {
		key, err := ParseValue(r)
		if err != nil {
			return nil, fmt.Errorf("failed to parse map key %d: %w", i, err)
		}
		val, err := ParseValue(r)
		if err != nil {
			return nil, fmt.Errorf("failed to parse map value %d: %w", i, err)
		}
		entries = append(entries, MapEntry{Key: key, Value: val})
	}

	return RedisMap{Entries: entries}, nil
}
