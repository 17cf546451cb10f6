package auth

import (
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/spec-kit/ticketflow/pkg/util/errorutil"
)

// Password length bounds. bcrypt ignores input beyond 72 bytes.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

// CheckPasswordPolicy rejects passwords bcrypt cannot hash faithfully or that
// are too short.
func CheckPasswordPolicy(password string) error {
	switch {
	case len(password) < MinPasswordLength:
		return apperrors.NewValidationError("password too short", map[string]any{"min_length": MinPasswordLength})
	case len(password) > MaxPasswordLength:
		return apperrors.NewValidationError("password too long", map[string]any{"max_length": MaxPasswordLength})
	}
	return nil
}

// HashPassword hashes password. A cost outside bcrypt's range falls back to
// bcrypt.DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
