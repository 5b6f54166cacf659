// internal/app/system/authutil/password.go
package authutil

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Password constants
const (
	MinPasswordLength = 8
	BcryptCost        = 10

	// PasswordSymbols is the set of special characters a password may
	// contain (and must contain at least one of).
	PasswordSymbols = "@$!%*?&"
)

// ErrPasswordRules is returned by ValidatePassword for any rule violation.
// The message is shown to API clients as-is.
var ErrPasswordRules = errors.New("Password must be at least 8 characters, At least one lowercase letter, one uppercase letter, one number, and one special character, No spaces allowed")

// PasswordRules returns a human-readable description of the password rules.
func PasswordRules() string {
	return ErrPasswordRules.Error()
}

// ValidatePassword checks the password format rules: at least 8 characters
// drawn only from ASCII letters, digits and PasswordSymbols, with at least
// one lowercase letter, one uppercase letter, one digit and one symbol.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordRules
	}

	var lower, upper, digit, symbol bool
	for _, c := range password {
		switch {
		case c >= 'a' && c <= 'z':
			lower = true
		case c >= 'A' && c <= 'Z':
			upper = true
		case c >= '0' && c <= '9':
			digit = true
		case strings.ContainsRune(PasswordSymbols, c):
			symbol = true
		default:
			// whitespace or a character outside the allowed set
			return ErrPasswordRules
		}
	}
	if !lower || !upper || !digit || !symbol {
		return ErrPasswordRules
	}
	return nil
}

// HashPassword hashes a password using bcrypt.
// The password should be validated with ValidatePassword first.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a plain-text password with a bcrypt hash.
// Returns true if the password matches, false otherwise.
func CheckPassword(password, hash string) bool {
	if hash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
