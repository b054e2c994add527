package otp

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"

	"github.com/wattrewards/wattrewards/pkg/crypto"
)

// CodeLength is the number of ASCII digits in a verification code.
const CodeLength = 6

// Generator produces fresh verification codes.
type Generator interface {
	Generate() (string, error)
}

// HOTPGenerator derives each code from a random secret and counter using RFC 4226.
type HOTPGenerator struct {
	digits otp.Digits
}

// NewHOTPGenerator returns a generator for six-digit codes.
func NewHOTPGenerator() *HOTPGenerator {
	return &HOTPGenerator{digits: otp.DigitsSix}
}

// Generate returns a new code.
func (g *HOTPGenerator) Generate() (string, error) {
	secret, err := crypto.GenerateBase32Secret(20)
	if err != nil {
		return "", fmt.Errorf("otp: generate secret: %w", err)
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("otp: generate counter: %w", err)
	}

	code, err := hotp.GenerateCodeCustom(secret, binary.BigEndian.Uint64(buf[:]), hotp.ValidateOpts{
		Digits:    g.digits,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("otp: generate code: %w", err)
	}
	return code, nil
}

// IsWellFormedCode reports whether code consists of exactly CodeLength ASCII digits.
func IsWellFormedCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
