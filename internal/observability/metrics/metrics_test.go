package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"/api/v1/teams", "/api/v1/teams"},
		{"/api/v1/teams/550e8400-e29b-41d4-a716-446655440000", "/api/v1/teams/:param"},
		{"/api/v1/teams/550e8400-e29b-41d4-a716-446655440000/projects", "/api/v1/teams/:param/projects"},
		{"/invites/a3f8b2c91d4e5f60718293a4b5c6d7e8f90123456789abcdef0123456789abcd", "/invites/:param"},
		{"/api/v1/projects/42", "/api/v1/projects/:param"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizePath(tt.in), "path %q", tt.in)
	}
}
