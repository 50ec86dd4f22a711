package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9._\-]{3,50}$`)
	controlChars  = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
)

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

// ValidateUsername accepts 3 to 50 letters, digits, dots, dashes or underscores
func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username must be 3-50 characters of letters, digits, '.', '-' or '_'")
	}
	return nil
}

// ValidateRequired rejects blank values and values longer than max runes.
// max <= 0 disables the length check.
func ValidateRequired(value string, max int) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("is required")
	}
	if max > 0 && utf8.RuneCountInString(value) > max {
		return fmt.Errorf("must be at most %d characters", max)
	}
	return nil
}

// ValidateLatitude checks a latitude in decimal degrees
func ValidateLatitude(lat float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90: %v", lat)
	}
	return nil
}

// ValidateLongitude checks a longitude in decimal degrees
func ValidateLongitude(lon float64) error {
	if lon < -180 || lon > 180 {
		return fmt.Errorf("longitude must be between -180 and 180: %v", lon)
	}
	return nil
}

// SanitizeString trims s and removes control characters other than tab and newlines
func SanitizeString(s string) string {
	return strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
}
