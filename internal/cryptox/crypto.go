// Package cryptox implements the credential hashing primitives: salt
// generation, the keyed password hash used for storage and comparison,
// deterministic identifier derivation, and verification-code tokens.
package cryptox

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/commltd/authcore/internal/common"
)

// DefaultSaltLength is the number of random bytes in a freshly generated
// salt (the hex form is twice as long).
const DefaultSaltLength = 16

// GenerateSalt returns a hex-encoded salt built from length random bytes
// drawn from the cryptographically secure source.
func GenerateSalt(length int) (string, error) {
	return common.MakeRandHexString(length)
}

// HashPassword computes the stored form of a password: a hex-encoded
// HMAC-SHA256 over password||salt keyed by the process-wide secret.
// The secret is supplied via configuration and never persisted next to
// the user record. Equality of two HashPassword results is the sole
// authentication decision; plaintext is never compared.
func HashPassword(password, salt, secretKey string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(password + salt))
	return hex.EncodeToString(mac.Sum(nil))
}

// HashEqual compares two hex digests in constant time.
func HashEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// DeriveIdentifier produces a deterministic hex identifier from a seed,
// via one-way SHA-256. Used to derive user IDs from registration inputs
// so repeated registration attempts map to the same identifier.
func DeriveIdentifier(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

// NewVerificationCode generates an opaque single-use code: the hex SHA-1
// digest of 20 secure-random bytes. The extra hash keeps the token
// fixed-length and non-reversible.
func NewVerificationCode() string {
	random := common.GenerateRandByteArray(20)
	sum := sha1.Sum([]byte(hex.EncodeToString(random)))
	return hex.EncodeToString(sum[:])
}
