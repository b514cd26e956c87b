// Package trailer computes and verifies the block-5 trailer of a mock FIN
// message: a truncated SHA-256 checksum and a truncated SHA-256 "MAC" that
// is deliberately not a real HMAC. It exists to let a test client and this
// mock server agree on a trailer without either side holding real SWIFT LAU
// key material.
package trailer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// DefaultKey is the mock bilateral key baked into both sides of the test
// harness. Real SWIFT keys are never this, and never this short-lived.
const DefaultKey = "MOCK_SECRET_KEY"

var (
	trailerSuffix = regexp.MustCompile(`(?s)\{5:.*?\}\}$`)
	trailerStrict = regexp.MustCompile(`(?s)\{5:\{MAC:([A-F0-9]+)\}\{CHK:([A-F0-9]+)\}\}$`)
)

// Checksum strips any trailing block-5 trailer from m, hashes the
// remainder, and returns the first 12 hex characters, uppercased.
func Checksum(m string) string {
	stripped := trailerSuffix.ReplaceAllString(m, "")
	sum := sha256.Sum256([]byte(stripped))
	return strings.ToUpper(hex.EncodeToString(sum[:])[:12])
}

// MAC hashes m concatenated with key and returns the first 16 hex
// characters, uppercased. This is SHA256(m||key), not HMAC — a deliberate
// mock, reproduced bit-exact so a test client can compute the same value.
func MAC(m, key string) string {
	sum := sha256.Sum256([]byte(m + key))
	return strings.ToUpper(hex.EncodeToString(sum[:])[:16])
}

// Validate extracts the block-5 trailer with the strict pattern
// {5:{MAC:<HEX>}{CHK:<HEX>}} and checks it against freshly computed
// values, both computed over the message with its trailer stripped. CHK
// is checked before MAC. A trailer that doesn't match the pattern at all —
// including one holding non-hex garbage — is reported as missing, matching
// the trailer's own extraction regex.
func Validate(m string) (bool, string) {
	match := trailerStrict.FindStringSubmatch(m)
	if match == nil {
		return false, "Missing Block 5 trailer"
	}
	mac, chk := match[1], match[2]

	expectedChk := Checksum(m)
	if chk != expectedChk {
		return false, fmt.Sprintf("Checksum mismatch: expected %s, got %s", expectedChk, chk)
	}

	expectedMac := MAC(trailerSuffix.ReplaceAllString(m, ""), DefaultKey)
	if mac != expectedMac {
		return false, fmt.Sprintf("MAC mismatch: expected %s, got %s", expectedMac, mac)
	}

	return true, "Valid"
}
