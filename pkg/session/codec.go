// Package session implements the signed, stateless session codec.
//
// A session is a flat key-value mapping carried entirely by the client
// in a cookie value of the form "<payload>.<signature>", where payload
// is the compact JSON encoding of the mapping and signature is the
// hex-encoded HMAC-SHA-256 of the payload under the application secret.
// Nothing is ever stored server-side; tampering with either half of the
// value invalidates the whole session.
package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// Sign returns the hex-encoded HMAC-SHA-256 of payload under secret.
func Sign(payload string, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Encode serializes a session mapping into a signed cookie value.
//
// encoding/json emits object keys in sorted order, so two logically
// identical sessions always encode to byte-identical cookie values.
func Encode(data map[string]any, secret []byte) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return string(payload) + "." + Sign(string(payload), secret), nil
}

// Decode verifies and deserializes a cookie value produced by Encode.
//
// Decode fails soft: a missing separator, a signature mismatch, or
// malformed JSON all yield nil rather than an error, so an invalid
// cookie degrades to "no session". The payload may itself contain dots,
// so the signature is everything after the last one. Signature
// comparison is constant-time.
func Decode(value string, secret []byte) map[string]any {
	idx := strings.LastIndex(value, ".")
	if idx < 0 {
		return nil
	}
	payload, sig := value[:idx], value[idx+1:]
	if !hmac.Equal([]byte(sig), []byte(Sign(payload, secret))) {
		return nil
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return nil
	}
	return data
}
