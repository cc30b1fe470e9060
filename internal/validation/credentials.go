package validation

import (
	"regexp"
	"unicode/utf8"
)

var (
	emailPattern   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	upperPattern   = regexp.MustCompile(`[A-Z]`)
	lowerPattern   = regexp.MustCompile(`[a-z]`)
	digitPattern   = regexp.MustCompile(`\d`)
	specialPattern = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
)

const MinPasswordLength = 8

// PasswordRequirements is the per-rule breakdown returned to the client.
type PasswordRequirements struct {
	MinLength         bool `json:"minLength"`
	Uppercase         bool `json:"uppercase"`
	Lowercase         bool `json:"lowercase"`
	Numbers           bool `json:"numbers"`
	SpecialCharacters bool `json:"specialCharacters"`
}

type PasswordResult struct {
	IsValid      bool                 `json:"isValid"`
	Requirements PasswordRequirements `json:"requirements"`
}

// ValidateEmail matches a simple local@domain.tld shape.
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidatePassword checks every strength rule; the password is valid only
// when all of them pass.
func ValidatePassword(password string) PasswordResult {
	req := PasswordRequirements{
		MinLength:         utf8.RuneCountInString(password) >= MinPasswordLength,
		Uppercase:         upperPattern.MatchString(password),
		Lowercase:         lowerPattern.MatchString(password),
		Numbers:           digitPattern.MatchString(password),
		SpecialCharacters: specialPattern.MatchString(password),
	}
	return PasswordResult{
		IsValid:      req.MinLength && req.Uppercase && req.Lowercase && req.Numbers && req.SpecialCharacters,
		Requirements: req,
	}
}
