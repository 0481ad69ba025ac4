package util

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"strings"
)

const resetTokenBytes = 32

// GenerateNumericOTP returns a uniformly random numeric code of the given
// length. Leading zeros are legal, so "007421" is a valid 6-digit code.
func GenerateNumericOTP(digits int) (string, error) {
	if digits <= 0 {
		digits = 6
	}
	var builder strings.Builder
	builder.Grow(digits)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		builder.WriteByte(byte('0' + n.Int64()))
	}
	return builder.String(), nil
}

// GenerateResetToken returns 32 bytes of randomness hex-encoded, 64 characters.
func GenerateResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
