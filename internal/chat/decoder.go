package chat

import (
	"strings"
	"unicode/utf8"
)

// Decoder turns a byte stream into text across read boundaries.
// An incomplete trailing UTF-8 sequence is held until the next Decode.
type Decoder struct {
	pending []byte
}

// Decode returns the text that can be decoded so far.
// Invalid sequences become U+FFFD.
func (d *Decoder) Decode(p []byte) string {
	data := append(d.pending, p...)
	cut := completePrefix(data)

	d.pending = append(d.pending[:0:0], data[cut:]...)
	return strings.ToValidUTF8(string(data[:cut]), string(utf8.RuneError))
}

// Flush returns whatever is still held, replacing it if it never completed.
func (d *Decoder) Flush() string {
	if len(d.pending) == 0 {
		return ""
	}
	out := strings.ToValidUTF8(string(d.pending), string(utf8.RuneError))
	d.pending = nil
	return out
}

// completePrefix returns the length of data without a trailing partial rune.
func completePrefix(data []byte) int {
	for i := len(data) - 1; i >= 0 && i >= len(data)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(data[i]) {
			continue
		}
		if utf8.FullRune(data[i:]) {
			return len(data)
		}
		return i
	}
	return len(data)
}
