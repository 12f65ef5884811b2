// Package serializer holds the value codecs selectable with the "#:name"
// modifier, e.g. `GET session#:gzip`.
package serializer

import (
	"fmt"
	"sort"
	"strings"
)

// Serializer encodes values before they are stored and decodes them after
// they are read back.
type Serializer interface {
	Serialize([]byte) ([]byte, error)
	Deserialize([]byte) ([]byte, error)
}

var codecs = map[string]Serializer{
	"base64": base64Codec{},
	"gzip":   gzipCodec{},
	"snappy": snappyCodec{},
}

// Get returns the codec registered under name (case-insensitive).
func Get(name string) (Serializer, error) {
	s, ok := codecs[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown serializer: %q", name)
	}
	return s, nil
}

// Names lists the registered codec names in sorted order.
func Names() []string {
	names := make([]string, 0, len(codecs))
	for name := range codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
