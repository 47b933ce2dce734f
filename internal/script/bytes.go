package script

import (
	"golang.org/x/text/encoding/charmap"
)

// Script strings carry file data as Latin-1: one character per byte, codes
// 0-255. Reads never reinterpret the data as UTF-8, and read output written
// back stores the same bytes.

// byteString maps raw file bytes onto a script string.
func byteString(data []byte) string {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(out)
}

// stringBytes reverses byteString. A string carrying any character above
// 0xff cannot be a byte string and is written as UTF-8 instead.
func stringBytes(s string) []byte {
	out, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return []byte(s)
	}
	return out
}
