// Package job holds the domain logic shared by the search job services:
// identifier generation, worker handle tracking, timeout resolution and
// completion notifications.
package job

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"
)

// idRandomBytes is the entropy carried in each identifier suffix.
const idRandomBytes = 16

// NewID returns a new job identifier. The fixed-width hex timestamp prefix
// keeps identifiers sortable by submission time; the random suffix makes a
// collision possible only through duplicated entropy, so the store treats one
// as an insert conflict and the caller retries with a fresh identifier.
func NewID(now time.Time) (string, error) {
	buf := make([]byte, idRandomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate job id: %w", err)
	}
	return fmt.Sprintf("%016x-%s", uint64(now.UnixNano()), base64.RawURLEncoding.EncodeToString(buf)), nil
}
