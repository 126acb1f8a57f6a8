package auth

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minPasswordLength = 8
	maxEmailLength    = 254
)

// Password rules, reported in the order they are checked.
const (
	RuleTooShort         = "too_short"
	RuleMissingUppercase = "missing_uppercase"
	RuleMissingLowercase = "missing_lowercase"
	RuleMissingDigit     = "missing_digit"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// PasswordError names the first strength rule a password violates.
type PasswordError struct {
	Rule    string
	Message string
}

func (e *PasswordError) Error() string {
	return e.Message
}

// ValidatePasswordStrength returns nil for acceptable passwords.
func ValidatePasswordStrength(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return &PasswordError{Rule: RuleTooShort, Message: "password must be at least 8 characters long"}
	}

	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}

	switch {
	case !upper:
		return &PasswordError{Rule: RuleMissingUppercase, Message: "password must contain at least one uppercase letter"}
	case !lower:
		return &PasswordError{Rule: RuleMissingLowercase, Message: "password must contain at least one lowercase letter"}
	case !digit:
		return &PasswordError{Rule: RuleMissingDigit, Message: "password must contain at least one digit"}
	}
	return nil
}

// ValidateEmailSyntax is a syntactic gate only; it proves nothing about deliverability.
func ValidateEmailSyntax(email string) bool {
	return len(email) <= maxEmailLength && emailPattern.MatchString(email)
}

// NormalizeEmail trims and lowercases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
