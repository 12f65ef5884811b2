package serializer

import (
	"bytes"
	"reflect"
	"testing"
)

func TestSerializerRoundTrip(t *testing.T) {
	inputs := map[string][]byte{
		"ascii":  []byte("Hello, World! This is a test string."),
		"binary": {0x00, 0x01, 0x02, 0xFF, 0xFE, 0xFD, 0x00},
		"empty":  {},
	}

	for _, name := range Names() {
		codec, err := Get(name)
		if err != nil {
			t.Fatalf("Get(%q) failed: %v", name, err)
		}
		for label, in := range inputs {
			t.Run(name+"/"+label, func(t *testing.T) {
				enc, err := codec.Serialize(in)
				if err != nil {
					t.Fatalf("Serialize failed: %v", err)
				}
				dec, err := codec.Deserialize(enc)
				if err != nil {
					t.Fatalf("Deserialize failed: %v", err)
				}
				if !bytes.Equal(in, dec) {
					t.Errorf("round trip mismatch: got %v, want %v", dec, in)
				}
			})
		}
	}
}

func TestGet(t *testing.T) {
	if _, err := Get("GZIP"); err != nil {
		t.Errorf("Get should be case-insensitive: %v", err)
	}

	codec, err := Get("unknown")
	if err == nil {
		t.Error("Expected error for unknown serializer, got nil")
	}
	if codec != nil {
		t.Errorf("Expected nil codec for unknown serializer, got %T", codec)
	}
}

func TestNames(t *testing.T) {
	want := []string{"base64", "gzip", "snappy"}
	if got := Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestDeserializeGarbage(t *testing.T) {
	for _, name := range []string{"base64", "gzip", "snappy"} {
		codec, _ := Get(name)
		if _, err := codec.Deserialize([]byte("!!not encoded!!")); err == nil {
			t.Errorf("%s: expected error decoding garbage", name)
		}
	}
}
