// Package multibase wraps github.com/multiformats/go-multibase for the one
// encoding meshcast actually uses on the wire: lowercase url-safe base64
// without padding, prefixed with 'u'.
package multibase

import (
	"fmt"

	mbase "github.com/multiformats/go-multibase"
)

// EncodeTopic encodes a UTF-8 topic or payload string for transport over the
// CAS pub/sub API.
func EncodeTopic(s string) (string, error) {
	return mbase.Encode(mbase.Base64url, []byte(s))
}

// DecodeTopic reverses EncodeTopic. It rejects anything not carrying the 'u'
// prefix, since that is the only encoding the store's current contract uses.
func DecodeTopic(encoded string) (string, error) {
	if len(encoded) == 0 || encoded[0] != 'u' {
		return "", fmt.Errorf("multibase: missing 'u' (base64url) prefix")
	}
	_, data, err := mbase.Decode(encoded)
	if err != nil {
		return "", fmt.Errorf("multibase: decode: %w", err)
	}
	return string(data), nil
}

// HasExpectedPrefix reports whether encoded carries the 'u' prefix expected
// of every pub/sub data field, without decoding it.
func HasExpectedPrefix(encoded string) bool {
	return len(encoded) > 0 && encoded[0] == 'u'
}
