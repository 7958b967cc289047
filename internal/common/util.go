package common

import (
	"crypto/rand"
	"encoding/hex"
)

// MakeRandHexString hex-encodes size bytes from the cryptographic random
// source, yielding a string of 2*size characters. Salts and verification
// codes are minted through it.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}

// GenerateRandByteArray returns size bytes from the cryptographic random
// source, panicking when the source fails. The platforms we run on only
// fail here when the OS entropy source itself is gone.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// WipeByteArray zeroes the slice in place. The admin CLI wipes password
// buffers with it once they have been hashed. Nil is a no-op.
func WipeByteArray(b []byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = 0
	}
}
