package checksum

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/cespare/xxhash/v2"
)

// Sum returns the hex-encoded SHA-256 digest of data. It is the stored,
// client-visible checksum used for If-Match preconditions.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Fingerprint is a fast in-process hash for change detection. It is not
// persisted.
func Fingerprint(data []byte) uint64 {
	return xxhash.Sum64(data)
}
