// Package sensekey derives the stable content identity of a (word, meaning)
// pair. Two submissions that differ only in casing or surrounding whitespace
// map to the same key, so a user's history holds at most one sense per
// distinct pairing.
package sensekey

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Separator joins the normalized word and meaning before hashing. It keeps
// ("a|b","c") and ("a","b|c") from colliding: the hash input differs even
// though the concatenated text would not.
const Separator = "|"

// Derive returns the hex-encoded SHA-256 of the normalized pair.
// Normalization is lowercasing plus trimming of leading/trailing whitespace.
// Empty strings are valid inputs and hash deterministically.
func Derive(word, meaning string) string {
	raw := normalize(word) + Separator + normalize(meaning)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
