package validation

import "regexp"

// Basic email shape: local part of word chars plus + - ., at-sign, dotted
// lowercase domain. Callers lowercase the address before validating, so the
// pattern only needs the lowercase alphabet.
var emailPattern = regexp.MustCompile(`^[\w+\-.]+@[a-z\d\-.]+\.[a-z]+$`)

// ValidateEmail validates format and length. Email is optional; empty
// passes.
func ValidateEmail(email string) error {
	if email == "" {
		return nil
	}
	if len(email) > 256 {
		return fieldError("email", "is too long (max 256 characters)")
	}
	if !emailPattern.MatchString(email) {
		return fieldError("email", "is invalid")
	}
	return nil
}
