package validation

// ValidatePassword validates password length. Only locally managed accounts
// carry a password; federated accounts never call this.
func ValidatePassword(password string) error {
	if len(password) < 6 {
		return fieldError("password", "must be at least 6 characters")
	}

	// bcrypt silently truncates past 72 bytes, so reject instead
	if len(password) > 72 {
		return fieldError("password", "must not exceed 72 characters")
	}

	return nil
}
