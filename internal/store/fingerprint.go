package store

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Fingerprint is the hex SHA-256 digest identifying an (input, options) pair.
type Fingerprint = string

const fingerprintLength = sha256.Size * 2

// Compute derives the fingerprint of input and options. Option keys are sorted
// so the result does not depend on map iteration order.
func Compute(input string, options map[string]string) Fingerprint {
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+options[k])
	}

	sum := sha256.Sum256([]byte(input + "_" + strings.Join(pairs, "&")))
	return hex.EncodeToString(sum[:])
}

// ValidFingerprint reports whether s has the shape of a fingerprint. Anything
// else must never be turned into a cache path.
func ValidFingerprint(s string) bool {
	if len(s) != fingerprintLength {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
