// Package sjis wraps Shift-JIS encoding for Persona 3 FES game files. All
// string payloads in the supported container formats are Shift-JIS encoded,
// including plain ASCII dialogue lines.
package sjis

import (
	"fmt"

	"golang.org/x/text/encoding/japanese"
)

// Decode converts Shift-JIS bytes to a UTF-8 string.
func Decode(b []byte) (string, error) {
	out, err := japanese.ShiftJIS.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decode shift-jis: %w", err)
	}
	return string(out), nil
}

// Encode converts a UTF-8 string to Shift-JIS bytes. Characters with no
// Shift-JIS mapping make the whole conversion fail; callers fall back to the
// original bytes for that span.
func Encode(s string) ([]byte, error) {
	out, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("encode shift-jis: %w", err)
	}
	return out, nil
}

// isLeadByte checks if b starts a two-byte Shift-JIS sequence.
func isLeadByte(b byte) bool {
	return (b >= 0x81 && b <= 0x9F) || (b >= 0xE0 && b <= 0xFC)
}

// BoundaryBefore returns the largest n <= max such that b[:n] ends on a
// complete Shift-JIS character. Truncating at the returned length never splits
// a two-byte sequence.
func BoundaryBefore(b []byte, max int) int {
	if max >= len(b) {
		return len(b)
	}
	if max < 0 {
		return 0
	}
	i := 0
	for i < max {
		if isLeadByte(b[i]) {
			if i+2 > max {
				break
			}
			i += 2
			continue
		}
		i++
	}
	return i
}

// ValidBoundary checks if b[:n] ends on a complete Shift-JIS character.
func ValidBoundary(b []byte, n int) bool {
	return BoundaryBefore(b, n) == n
}
