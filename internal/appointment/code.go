package appointment

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	confirmationCodeLen      = 6
	confirmationCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeAttempts          = 5
)

// NewConfirmationCode returns a random 6-character code over A-Z0-9.
func NewConfirmationCode() (string, error) {
	limit := big.NewInt(int64(len(confirmationCodeAlphabet)))
	buf := make([]byte, confirmationCodeLen)
	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate confirmation code: %w", err)
		}
		buf[i] = confirmationCodeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
