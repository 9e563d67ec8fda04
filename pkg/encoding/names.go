// Package encoding provides text decoding for names embedded in asset files.
package encoding

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Windows1252ToUTF8 converts Windows-1252 encoded bytes to a UTF-8 string.
// Returns the original bytes as a string if conversion fails.
func Windows1252ToUTF8(data []byte) string {
	result, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// TrimNull returns data up to its first null byte.
func TrimNull(data []byte) []byte {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		return data[:i]
	}
	return data
}

// DecodeName converts a null-terminated name to a UTF-8 string.
// Names that are not valid UTF-8 were written by older exporters in the
// Windows ANSI code page.
func DecodeName(data []byte) string {
	data = TrimNull(data)
	if utf8.Valid(data) {
		return string(data)
	}
	return Windows1252ToUTF8(data)
}

// EncodeFixedName pads name with null bytes to size, truncating if longer.
func EncodeFixedName(name string, size int) []byte {
	result := make([]byte, size)
	copy(result, name)
	return result
}
