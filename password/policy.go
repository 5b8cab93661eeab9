package password

import (
	"errors"
	"strings"
	"unicode"
)

// PolicyMessage is shown to users whose password fails ValidateStrength.
const PolicyMessage = "Password must be at least 8 characters long and contain at least one uppercase letter, " +
	"one lowercase letter, one digit, and one special character (@#$%^&+=!)"

const specialChars = "@#$%^&+=!"

// ErrWeakPassword is returned by ValidateStrength.
var ErrWeakPassword = errors.New(PolicyMessage)

// ValidateStrength enforces the registration policy: at least 8 characters,
// no whitespace, and at least one upper-case letter, lower-case letter,
// digit, and character from @#$%^&+=!.
func ValidateStrength(pw string) error {
	if len([]rune(pw)) < 8 {
		return ErrWeakPassword
	}

	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsSpace(r):
			return ErrWeakPassword
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(specialChars, r):
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		return ErrWeakPassword
	}
	return nil
}
