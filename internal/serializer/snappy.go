package serializer

import (
	"fmt"

	"github.com/golang/snappy"
)

type snappyCodec struct{}

func (snappyCodec) Serialize(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (snappyCodec) Deserialize(data []byte) ([]byte, error) {
	out, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("snappy decode failed: %w", err)
	}
	return out, nil
}
