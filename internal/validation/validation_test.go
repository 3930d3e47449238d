package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"empty is allowed", "", false},
		{"plain address", "jo@example.com", false},
		{"plus tag", "jo+rooms@example.com", false},
		{"dotted local", "jo.doe@example.co.uk", false},
		{"missing at", "joexample.com", true},
		{"missing domain", "jo@", true},
		{"missing tld", "jo@example", true},
		{"spaces", "jo doe@example.com", true},
		{"too long", strings.Repeat("a", 250) + "@example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEmailFieldError(t *testing.T) {
	err := ValidateEmail("not-an-email")
	require.Error(t, err)

	var vErr *Error
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "email", vErr.Field)
	assert.Equal(t, "is invalid", vErr.Rule)
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("Jo Doe"))
	assert.Error(t, ValidateName(""))
	assert.Error(t, ValidateName("   "))
	assert.Error(t, ValidateName(strings.Repeat("x", 257)))
	assert.NoError(t, ValidateName(strings.Repeat("x", 256)))
}

func TestValidatePassword(t *testing.T) {
	assert.Error(t, ValidatePassword(""))
	assert.Error(t, ValidatePassword("12345"))
	assert.NoError(t, ValidatePassword("123456"))
	assert.NoError(t, ValidatePassword("correct horse battery staple"))
	assert.Error(t, ValidatePassword(strings.Repeat("x", 73)))
}

func TestValidateImage(t *testing.T) {
	assert.NoError(t, ValidateImage(""))
	assert.NoError(t, ValidateImage("https://example.com/avatar.png"))
	assert.NoError(t, ValidateImage("https://example.com/avatar.JPG"))
	assert.NoError(t, ValidateImage("https://example.com/avatar.PNG"))
	assert.Error(t, ValidateImage("https://example.com/avatar.gif"))
	assert.Error(t, ValidateImage("https://example.com/avatar"))
}

func TestErrorString(t *testing.T) {
	err := &Error{Field: "password", Rule: "must be at least 6 characters"}
	assert.Equal(t, "password must be at least 6 characters", err.Error())
}
