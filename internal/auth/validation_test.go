package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		password string
		rule     string
	}{
		{"short1", RuleTooShort},
		{"Ab1", RuleTooShort},
		{"nouppercase1", RuleMissingUppercase},
		{"NOLOWERCASE1", RuleMissingLowercase},
		{"NoDigitsHere", RuleMissingDigit},
		{"Abcdef12", ""},
		{"Ünïcödé1x", ""},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			err := ValidatePasswordStrength(tt.password)
			if tt.rule == "" {
				require.NoError(t, err)
				return
			}
			var pwErr *PasswordError
			require.True(t, errors.As(err, &pwErr))
			assert.Equal(t, tt.rule, pwErr.Rule)
			assert.NotEmpty(t, pwErr.Error())
		})
	}
}

func TestValidatePasswordStrength_DistinctMessages(t *testing.T) {
	seen := map[string]bool{}
	for _, pw := range []string{"short1", "nouppercase1", "NOLOWERCASE1", "NoDigitsHere"} {
		err := ValidatePasswordStrength(pw)
		require.Error(t, err)
		assert.False(t, seen[err.Error()], "duplicate message %q", err.Error())
		seen[err.Error()] = true
	}
}

func TestValidateEmailSyntax(t *testing.T) {
	for _, email := range []string{"user@example.com", "test.user@company.co.uk", "admin+tag@site.org", "a@b.com"} {
		assert.True(t, ValidateEmailSyntax(email), email)
	}
	for _, email := range []string{"notanemail", "@example.com", "user@", "user @example.com", "user@example", "", strings.Repeat("a", 250) + "@x.com"} {
		assert.False(t, ValidateEmailSyntax(email), email)
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@x.com", NormalizeEmail("  A@X.com "))
}
