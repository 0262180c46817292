package compress

import (
	"bytes"
	"strings"
	"testing"
)

func TestCodecsRoundTrip(t *testing.T) {
	payload := []byte(strings.Repeat(`{"id":"n1","title":"Groceries"}`, 50))
	for _, c := range All() {
		t.Run(c.Name(), func(t *testing.T) {
			enc, err := c.Encode(payload)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if c.Name() != None && len(enc) >= len(payload) {
				t.Errorf("encoded %d bytes, want fewer than %d", len(enc), len(payload))
			}
			dec, err := c.Decode(enc)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !bytes.Equal(dec, payload) {
				t.Error("round trip changed the payload")
			}
		})
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{"", None, Gzip, LZ4, Brotli} {
		if _, err := ByName(name); err != nil {
			t.Errorf("ByName(%q): %v", name, err)
		}
	}
	if _, err := ByName("zstd"); err == nil {
		t.Error("expected error for unknown codec")
	}
}

func TestGzipDecodeGarbage(t *testing.T) {
	c, _ := ByName(Gzip)
	if _, err := c.Decode([]byte("not gzip")); err == nil {
		t.Error("expected error")
	}
}
