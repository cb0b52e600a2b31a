package record

import (
	"strings"
	"unicode/utf8"
)

// decodeLossyUTF8 decodes b as UTF-8, substituting the replacement
// character for any invalid sequence, while preserving the original byte
// length in the caller's *_length field for offset arithmetic.
func decodeLossyUTF8(b []byte) string {
	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}
