// Package keyhash produces the deterministic digests used as cache keys,
// translation keys, and storage namespaces throughout the module.
package keyhash

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
)

// shortLen is the number of hex characters kept by Short. It is long enough
// to keep distinct backend URLs from colliding while staying readable in
// storage key listings.
const shortLen = 15

// Sum returns the hex-encoded SHA-1 digest of s.
// Collision resistance at cryptographic strength is not required here; the
// digest only needs to be stable and practically unique across the hundreds
// of endpoints and parameter variations a client produces.
func Sum(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:])
}

// Short returns a truncated digest of s, used to namespace storage keys per
// backend base URL so that multiple backend configurations (dev vs prod)
// never share cache or password records.
func Short(s string) string {
	return Sum(s)[:shortLen]
}

// Params returns the digest of the canonical JSON encoding of a parameter
// set. encoding/json marshals map keys in sorted order, so two structurally
// identical parameter sets hash identically regardless of construction
// order.
func Params(params map[string]string) string {
	if params == nil {
		params = map[string]string{}
	}
	b, err := json.Marshal(params)
	if err != nil {
		// A map[string]string cannot fail to marshal; keep the fallback
		// deterministic anyway.
		return Sum("{}")
	}
	return Sum(string(b))
}
