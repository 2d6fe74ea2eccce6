package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Add user authentication with OAuth2 support", "add-user-authentication-with-oauth2-support"},
		{"Fix  DOUBLE   spaces", "fix-double-spaces"},
		{"(parens) & symbols!", "parens-symbols"},
		{"--leading and trailing--", "leading-and-trailing"},
		{"ALLCAPS", "allcaps"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slug(tt.in), tt.in)
	}
}
