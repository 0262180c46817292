// Package compress provides the codecs a vault can store note files with.
package compress

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/pierrec/lz4/v4"
)

// Codec encodes and decodes whole note files. Ext is appended to the note
// file name so a vault can hold files written with different codecs.
type Codec interface {
	Name() string
	Ext() string
	Encode(data []byte) ([]byte, error)
	Decode(data []byte) ([]byte, error)
}

// Codec names accepted in configuration.
const (
	None   = "none"
	Gzip   = "gzip"
	LZ4    = "lz4"
	Brotli = "brotli"
)

// ByName returns the codec for name; "" selects None.
func ByName(name string) (Codec, error) {
	switch name {
	case "", None:
		return nop{}, nil
	case Gzip:
		return gzipCodec{}, nil
	case LZ4:
		return lz4Codec{}, nil
	case Brotli:
		return brotliCodec{}, nil
	}
	return nil, fmt.Errorf("compress: unknown codec %q", name)
}

// All returns every codec, the uncompressed one first.
func All() []Codec {
	return []Codec{nop{}, gzipCodec{}, lz4Codec{}, brotliCodec{}}
}

type nop struct{}

func (nop) Name() string                       { return None }
func (nop) Ext() string                        { return "" }
func (nop) Encode(data []byte) ([]byte, error) { return data, nil }
func (nop) Decode(data []byte) ([]byte, error) { return data, nil }

type gzipCodec struct{}

func (gzipCodec) Name() string { return Gzip }
func (gzipCodec) Ext() string  { return ".gz" }

func (gzipCodec) Encode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	return finish(&buf, w, data, Gzip)
}

func (gzipCodec) Decode(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("compress: gzip: %w", err)
	}
	defer r.Close()
	return drain(r, Gzip)
}

type lz4Codec struct{}

func (lz4Codec) Name() string { return LZ4 }
func (lz4Codec) Ext() string  { return ".lz4" }

func (lz4Codec) Encode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	return finish(&buf, lz4.NewWriter(&buf), data, LZ4)
}

func (lz4Codec) Decode(data []byte) ([]byte, error) {
	return drain(lz4.NewReader(bytes.NewReader(data)), LZ4)
}

type brotliCodec struct{}

func (brotliCodec) Name() string { return Brotli }
func (brotliCodec) Ext() string  { return ".br" }

func (brotliCodec) Encode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	return finish(&buf, brotli.NewWriterLevel(&buf, brotli.DefaultCompression), data, Brotli)
}

func (brotliCodec) Decode(data []byte) ([]byte, error) {
	return drain(brotli.NewReader(bytes.NewReader(data)), Brotli)
}

func finish(buf *bytes.Buffer, w io.WriteCloser, data []byte, name string) ([]byte, error) {
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("compress: %s: write: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress: %s: close: %w", name, err)
	}
	return buf.Bytes(), nil
}

func drain(r io.Reader, name string) ([]byte, error) {
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("compress: %s: read: %w", name, err)
	}
	return out, nil
}
