// Package b64 wraps standard base64 with string-oriented helpers.
package b64

import "encoding/base64"

// Encode returns the standard base64 encoding of s.
func Encode(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// Decode reverses Encode. Invalid input returns an error and an empty string.
func Decode(s string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
