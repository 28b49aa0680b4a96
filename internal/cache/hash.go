package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Key computes the content-addressed cache key for a snapshot.
//
// The formula is hex(SHA256(url || "\n" || varyHeaders || "\n" || mode)) and
// must stay bit-exact: it is the interoperability contract with any other
// reader of the same database. No normalization is applied here; callers
// canonicalize upstream.
func Key(url, varyHeaders, mode string) string {
	h := sha256.New()
	h.Write([]byte(url))
	h.Write([]byte("\n"))
	h.Write([]byte(varyHeaders))
	h.Write([]byte("\n"))
	h.Write([]byte(mode))
	return hex.EncodeToString(h.Sum(nil))
}
