package command

import (
	"fmt"
	"strings"

	"github.com/cosmez/rediscli-go/internal/serializer"
)

// Parse strips the `| shell` and `#:codec` suffixes from input, tokenizes
// the rest and attaches documentation from reg when reg is non-nil.
// Blank input yields an empty ParsedCommand and no error.
func Parse(input string, reg *Registry) (*ParsedCommand, error) {
	if strings.TrimSpace(input) == "" {
		return &ParsedCommand{}, nil
	}

	parsed := &ParsedCommand{Text: input}

	// The pipe goes first so `GET key #:gzip | jq .` does not read
	// "gzip | jq ." as a codec name.
	if pipeIdx := strings.Index(input, " | "); pipeIdx != -1 {
		parsed.Pipe = strings.TrimSpace(input[pipeIdx+3:])
		input = input[:pipeIdx]
	}

	if codecIdx := strings.LastIndex(input, "#:"); codecIdx != -1 {
		parsed.Modifier = strings.TrimSpace(input[codecIdx+2:])
		input = input[:codecIdx]
	}

	tokens := tokenize(input)
	if len(tokens) == 0 {
		return parsed, nil
	}

	parsed.Name = strings.ToUpper(tokens[0])
	if len(tokens) > 1 {
		parsed.Args = tokens[1:]
	}

	if parsed.Modifier != "" {
		codec, err := serializer.Get(parsed.Modifier)
		if err != nil {
			return nil, fmt.Errorf("failed to get serializer %q: %w", parsed.Modifier, err)
		}
		// SET key value: only the value is stored encoded.
		if parsed.Name == "SET" && len(parsed.Args) >= 2 {
			encoded, err := codec.Serialize([]byte(parsed.Args[1]))
			if err != nil {
				return nil, fmt.Errorf("failed to serialize value: %w", err)
			}
			parsed.Args[1] = string(encoded)
		}
	}

	if reg != nil {
		parsed.Doc = reg.Get(parsed.Name)
		if len(parsed.Args) > 0 {
			if doc := reg.Get(parsed.Name + " " + parsed.Args[0]); doc != nil {
				parsed.Doc = doc
			}
		}
	}

	return parsed, nil
}
