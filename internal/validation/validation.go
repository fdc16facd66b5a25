package validation

import (
	"errors"
	"regexp"
)

var (
	ErrInvalidEmail = errors.New("invalid email format")
	ErrInvalidToken = errors.New("invalid token format")
	ErrWeakPassword = errors.New("password does not meet policy")
)

// Email rules: one local part, one @, one domain with at least one dot.
// Deliberately permissive beyond that; deliverability is the SMTP layer's
// problem, not ours.
var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Invitation and reset tokens are 256-bit values rendered as 64 lowercase
// hex characters.
var tokenRe = regexp.MustCompile(`^[a-f0-9]{64}$`)

// ValidEmail returns true if the address matches the allowed pattern and
// fits in the users.email column.
func ValidEmail(email string) bool {
	return len(email) <= 255 && emailRe.MatchString(email)
}

// ValidToken returns true if the provided secret matches the 64-hex form.
func ValidToken(token string) bool {
	return tokenRe.MatchString(token)
}

// CheckEmail is ValidEmail with a typed error for transport mapping.
func CheckEmail(email string) error {
	if !ValidEmail(email) {
		return ErrInvalidEmail
	}
	return nil
}

// CheckToken is ValidToken with a typed error for transport mapping.
func CheckToken(token string) error {
	if !ValidToken(token) {
		return ErrInvalidToken
	}
	return nil
}
