package otp

import (
	"context"
	"errors"
	"time"
)

// ErrCodeNotFound is returned when no code is stored for a phone number.
var ErrCodeNotFound = errors.New("otp: code not found")

// CodeRecord is the single active code for a phone number. Only the hash is kept.
type CodeRecord struct {
	PhoneNumber string    `json:"phoneNumber"`
	CodeHash    string    `json:"codeHash"`
	IssuedAt    time.Time `json:"issuedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// CodeStore persists one active code per phone number.
type CodeStore interface {
	// Save stores rec, replacing any prior code for the same number.
	Save(ctx context.Context, rec CodeRecord) error
	// Get returns the stored code or ErrCodeNotFound.
	Get(ctx context.Context, phoneNumber string) (*CodeRecord, error)
	// Consume deletes the code only if it still has the given hash, reporting whether it did.
	Consume(ctx context.Context, phoneNumber, codeHash string) (bool, error)
	// Delete removes any code for the number.
	Delete(ctx context.Context, phoneNumber string) error
}
