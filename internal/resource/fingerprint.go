package resource

import "github.com/cespare/xxhash/v2"

// Fingerprint returns a 64-bit hash of the canonical encoding of m.
// Equal records have equal fingerprints, including nil and {}.
// Records that fail to encode hash to zero.
func Fingerprint(m Metadata) uint64 {
	data, err := MarshalCanonical(m)
	if err != nil {
		return 0
	}
	return xxhash.Sum64(data)
}
