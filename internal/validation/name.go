package validation

import "strings"

// ValidateName validates the account display name.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fieldError("name", "is required")
	}
	if len(name) > 256 {
		return fieldError("name", "is too long (max 256 characters)")
	}
	return nil
}
