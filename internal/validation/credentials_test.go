package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	for _, ok := range []string{"a@b.com", "first.last@sub.example.org", "x+tag@y.io"} {
		assert.True(t, ValidateEmail(ok), ok)
	}
	for _, bad := range []string{"", "plain", "a@b", "@b.com", "a b@c.com", "a@b .com", "a@@b.com"} {
		assert.False(t, ValidateEmail(bad), bad)
	}
}

func TestValidatePasswordAccepts(t *testing.T) {
	res := ValidatePassword("Abcdef1!")
	assert.True(t, res.IsValid)
	assert.Equal(t, PasswordRequirements{true, true, true, true, true}, res.Requirements)
}

func TestValidatePasswordFlagsEachFailingRule(t *testing.T) {
	cases := []struct {
		password string
		want     PasswordRequirements
	}{
		{"Ab1!", PasswordRequirements{MinLength: false, Uppercase: true, Lowercase: true, Numbers: true, SpecialCharacters: true}},
		{"abcdef1!", PasswordRequirements{MinLength: true, Uppercase: false, Lowercase: true, Numbers: true, SpecialCharacters: true}},
		{"ABCDEF1!", PasswordRequirements{MinLength: true, Uppercase: true, Lowercase: false, Numbers: true, SpecialCharacters: true}},
		{"Abcdefg!", PasswordRequirements{MinLength: true, Uppercase: true, Lowercase: true, Numbers: false, SpecialCharacters: true}},
		{"Abcdefg1", PasswordRequirements{MinLength: true, Uppercase: true, Lowercase: true, Numbers: true, SpecialCharacters: false}},
		{"", PasswordRequirements{}},
	}
	for _, tc := range cases {
		res := ValidatePassword(tc.password)
		assert.False(t, res.IsValid, tc.password)
		assert.Equal(t, tc.want, res.Requirements, tc.password)
	}
}
