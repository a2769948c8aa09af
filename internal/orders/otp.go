package orders

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// newOTP produces a 4-digit delivery confirmation code.
func newOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}
