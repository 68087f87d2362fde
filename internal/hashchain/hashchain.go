// Package hashchain seals canonical content bytes into the per-check-item
// decision chain. Pure functions only; persistence and ordering live in the
// review store.
package hashchain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// DigestPrefix identifies the hash algorithm in stored digests so the
// algorithm can evolve without ambiguity in old chains.
const DigestPrefix = "sha256:"

// GenesisPreviousHash is the previous-hash value of the first decision on a
// check item. It is persisted as NULL; in hashed content it appears as the
// empty string.
const GenesisPreviousHash = ""

// Seal computes the chain digest over content || previousHash. The previous
// hash participates in the digest so any tampering with an earlier entry
// invalidates every later link, not just its own.
func Seal(content []byte, previousHash string) string {
	h := sha256.New()
	h.Write(content)
	h.Write([]byte(previousHash))
	return DigestPrefix + hex.EncodeToString(h.Sum(nil))
}

// WellFormed reports whether d looks like a digest this package produced.
// It does not verify anything about the content.
func WellFormed(d string) bool {
	if !strings.HasPrefix(d, DigestPrefix) {
		return false
	}
	hexPart := strings.TrimPrefix(d, DigestPrefix)
	if len(hexPart) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(hexPart)
	return err == nil
}
