package ingest

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"strings"
)

// UnsupportedMediaError rejects a payload that is not an embeddable image.
type UnsupportedMediaError struct {
	MIME   string
	Reason string
}

func (e *UnsupportedMediaError) Error() string {
	return fmt.Sprintf("ingest: unsupported media %q: %s", e.MIME, e.Reason)
}

// TooLargeError rejects a payload over the configured size cap.
type TooLargeError struct {
	Size  int64
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("ingest: payload too large: %d bytes (max %d)", e.Size, e.Limit)
}

var allowedImages = map[string]bool{
	"image/png":     true,
	"image/jpeg":    true,
	"image/gif":     true,
	"image/webp":    true,
	"image/bmp":     true,
	"image/svg+xml": true,
}

var mimeAliases = map[string]string{
	"image/jpg":   "image/jpeg",
	"image/pjpeg": "image/jpeg",
	"image/x-png": "image/png",
	"image/svg":   "image/svg+xml",
}

// Sniff checks that data is an image of an accepted type and agrees with the
// declared MIME type, returning the canonical type. An empty declaration
// trusts the sniffed type.
func Sniff(data []byte, declared string) (string, error) {
	mt := ""
	if declared != "" {
		parsed, _, err := mime.ParseMediaType(declared)
		if err != nil {
			return "", &UnsupportedMediaError{MIME: declared, Reason: "malformed media type"}
		}
		mt = canonical(parsed)
		if !strings.HasPrefix(mt, "image/") {
			return "", &UnsupportedMediaError{MIME: declared, Reason: "not an image"}
		}
	}
	if len(data) == 0 {
		return "", &UnsupportedMediaError{MIME: declared, Reason: "empty payload"}
	}

	detected := detect(data)
	if mt == "" {
		mt = detected
	}
	if !allowedImages[mt] {
		return "", &UnsupportedMediaError{MIME: mt, Reason: "image type not accepted"}
	}
	if detected != mt {
		return "", &UnsupportedMediaError{MIME: mt, Reason: "content looks like " + detected}
	}
	return mt, nil
}

func detect(data []byte) string {
	head := data[:min(len(data), 1024)]
	if bytes.Contains(head, []byte("<svg")) {
		return "image/svg+xml"
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return canonical(mt)
}

func canonical(mt string) string {
	mt = strings.ToLower(mt)
	if a, ok := mimeAliases[mt]; ok {
		return a
	}
	return mt
}

// EncodeDataURI embeds data as a base64 data URI.
func EncodeDataURI(data []byte, mt string) string {
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI parses a data:[<mediatype>][;base64],<data> URI.
func DecodeDataURI(uri string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, "", fmt.Errorf("ingest: not a data URI")
	}
	meta, encoded, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("ingest: invalid data URI: missing comma separator")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return nil, "", fmt.Errorf("ingest: only base64 data URIs are supported")
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", fmt.Errorf("ingest: invalid base64 data: %w", err)
		}
	}
	mt, _, _ := strings.Cut(strings.TrimSuffix(meta, ";base64"), ";")
	return data, mt, nil
}
