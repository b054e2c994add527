package crypto

import (
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptySecret is returned when asked to hash an empty value.
var ErrEmptySecret = errors.New("crypto: empty secret")

var base32NoPad = base32.StdEncoding.WithPadding(base32.NoPadding)

// HashSecret bcrypts a short-lived secret such as a verification code.
// Costs bcrypt would reject are replaced with bcrypt.DefaultCost.
func HashSecret(secret string, cost int) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", fmt.Errorf("crypto: hash secret: %w", err)
	}
	return string(hash), nil
}

// VerifySecret reports whether candidate matches a hash from HashSecret.
func VerifySecret(hashed, candidate string) bool {
	if hashed == "" || candidate == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(candidate)) == nil
}

// GenerateBase32Secret returns n random bytes as unpadded base32, the form
// HOTP keys are exchanged in.
func GenerateBase32Secret(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("crypto: secret length must be positive, got %d", n)
	}
	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("crypto: read random: %w", err)
	}
	return base32NoPad.EncodeToString(raw), nil
}
