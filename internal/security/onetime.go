package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// One-time credentials sent out of band: a short numeric code for
// email verification, a long hex token for password resets.

// NewVerificationCode returns a random 6-digit numeric code.
func NewVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))

	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// NewResetToken returns 20 random bytes hex-encoded (40 chars).
func NewResetToken() (string, error) {
	buf := make([]byte, 20)

	_, err := rand.Read(buf)

	if err != nil {
		return "", err
	}

	return hex.EncodeToString(buf), nil
}
