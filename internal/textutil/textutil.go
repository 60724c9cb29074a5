package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"unicode"
)

// Hash computes a SHA-256 hex hash of a string for deduplication and cache keys.
func Hash(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// FileHash computes the SHA-256 hex hash of a file's content.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Truncate shortens a string to maxLen, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// ContainsAccented checks if a string contains Latin letters with diacritics
// (é, à, ç, ...), a strong signal for already-translated French text.
func ContainsAccented(s string) bool {
	for _, r := range s {
		if IsAccented(r) {
			return true
		}
	}
	return false
}

// IsAccented checks if r is a Latin letter outside the ASCII range.
func IsAccented(r rune) bool {
	return r > 127 && unicode.IsLetter(r) && unicode.In(r, unicode.Latin)
}

// IsPrintableASCII checks if b is in the printable ASCII range [0x20, 0x7E].
func IsPrintableASCII(b byte) bool {
	return b >= 0x20 && b <= 0x7E
}
