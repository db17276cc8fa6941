package fingerprint

import (
	"regexp"
	"strconv"
	"unicode/utf16"
)

// Hash is a small non-cryptographic string hash (h = h*31 + c over UTF-16
// code units with 32-bit wraparound) rendered in base 36. It must stay
// byte-for-byte compatible with the browser implementation so client and
// server derive the same key.
func Hash(s string) string {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(c)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 36)
}

var hashPattern = regexp.MustCompile(`^[0-9a-z]{1,13}-[0-9a-z]{1,13}$`)

// ValidHash reports whether s has the shape of a composite fingerprint hash.
func ValidHash(s string) bool {
	return hashPattern.MatchString(s)
}
