// Package encoding converts the EUC-KR text found in Ragnarok Online archives.
package encoding

import (
	"strings"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// EUCKRToUTF8 converts EUC-KR encoded bytes to a UTF-8 string.
// Returns the input unchanged if it does not decode.
func EUCKRToUTF8(data []byte) string {
	result, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// UTF8ToEUCKR converts a UTF-8 string to EUC-KR encoded bytes.
// Returns the original bytes if the string has no EUC-KR form.
func UTF8ToEUCKR(s string) []byte {
	result, _, err := transform.Bytes(korean.EUCKR.NewEncoder(), []byte(s))
	if err != nil {
		return []byte(s)
	}
	return result
}

// NormalizeGRFPath returns the lookup key for an archive path: forward
// slashes, lower case.
func NormalizeGRFPath(path string) string {
	return strings.ToLower(strings.ReplaceAll(path, "\\", "/"))
}
