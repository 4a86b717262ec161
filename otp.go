package signon

import (
	"errors"
	"fmt"
	"io"
	"math/big"

	cryptorand "crypto/rand"
)

var otpDigitMax = big.NewInt(10)

// newOTP draws digits uniform decimal digits from r, preserving leading
// zeros. The reader is injected so tests can pin the value.
func newOTP(r io.Reader, digits int) (string, error) {
	if digits < 6 || digits > 10 {
		return "", errors.New("invalid otp digits")
	}
	if r == nil {
		r = cryptorand.Reader
	}

	buf := make([]byte, 0, digits)
	for i := 0; i < digits; i++ {
		n, err := cryptorand.Int(r, otpDigitMax)
		if err != nil {
			return "", fmt.Errorf("otp generation: %w", err)
		}
		buf = append(buf, byte('0'+n.Int64()))
	}
	return string(buf), nil
}
