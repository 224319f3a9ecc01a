package core

import (
	"encoding/hex"
	"strings"
	"unicode"

	"github.com/go-crypt/x/blake2b"
	"golang.org/x/text/unicode/norm"
)

// Fingerprint derives a deterministic content key from the given parts using BLAKE2b.
// Parts are length-prefixed so ("ab","c") and ("a","bc") differ.
func Fingerprint(parts ...string) string {
	h, _ := blake2b.New(16, nil) // 16 bytes = 128 bits
	for _, p := range parts {
		var n [8]byte
		l := uint64(len(p))
		for i := range n {
			n[i] = byte(l >> (8 * i))
		}
		h.Write(n[:])
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// NormalizeText applies NFKC normalization, lowercases, strips control characters
// and collapses runs of whitespace.
func NormalizeText(text string) string {
	normed := norm.NFKC.String(text)
	normed = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, normed)
	return strings.Join(strings.Fields(normed), " ")
}

// ContextHash fingerprints the conversation that surrounds a query.
func ContextHash(history []Turn) string {
	parts := make([]string, 0, len(history)*2)
	for _, t := range history {
		parts = append(parts, t.Speaker.String(), NormalizeText(t.Content))
	}
	return Fingerprint(parts...)
}
