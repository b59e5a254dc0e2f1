package template

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// checksum derives the deterministic, non-cryptographic hash used as part
// of the request fingerprint.
func checksum(data []byte) string {
	return fmt.Sprintf("%x", xxhash.Sum64(data))
}
