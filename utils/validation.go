package utils

import (
	"regexp"
	"strings"
	"unicode"
)

var phonePattern = regexp.MustCompile(`^\+?1?\d{9,15}$`)

// ValidatePhoneNumber accepts 9 to 15 digits with an optional leading + and country code 1.
// Spaces, dashes and parentheses are ignored.
func ValidatePhoneNumber(phoneNumber string) bool {
	cleaned := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(phoneNumber)
	return phonePattern.MatchString(cleaned)
}

// ValidatePasswordStrength validates password strength
func ValidatePasswordStrength(password string) (bool, []string) {
	var errors []string

	if len(password) < 8 {
		errors = append(errors, "Password must be at least 8 characters long")
	}
	if len(password) > 128 {
		errors = append(errors, "Password must be less than 128 characters")
	}

	hasLetter := false
	hasDigit := false
	for _, char := range password {
		switch {
		case unicode.IsLetter(char):
			hasLetter = true
		case unicode.IsDigit(char):
			hasDigit = true
		}
	}

	if !hasLetter {
		errors = append(errors, "Password must contain at least one letter")
	}
	if !hasDigit {
		errors = append(errors, "Password must contain at least one digit")
	}

	return len(errors) == 0, errors
}
