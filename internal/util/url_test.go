package util

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRedirectSafe(t *testing.T) {
	base := "https://id.example.com"
	tests := []struct {
		name     string
		redirect string
		want     bool
	}{
		{"empty", "", true},
		{"relative path", "/connect/authorize?client_id=spa", true},
		{"protocol relative", "//evil.com", false},
		{"backslash", "/\\evil.com", false},
		{"same host", "https://id.example.com/connect/authorize", true},
		{"other host", "https://evil.com/", false},
		{"javascript scheme", "javascript:alert(1)", false},
		{"header injection", "/ok\r\nSet-Cookie: x=1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRedirectSafe(tt.redirect, base))
		})
	}
}

func TestAppendQuery(t *testing.T) {
	out, err := AppendQuery("https://app.example.com/cb?foo=bar", map[string]string{
		"code":  "abc",
		"state": "",
	})
	require.NoError(t, err)

	u, err := url.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, "bar", u.Query().Get("foo"))
	assert.Equal(t, "abc", u.Query().Get("code"))
	assert.False(t, u.Query().Has("state"))
}
