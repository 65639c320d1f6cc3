package middleware

import "testing"

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/images", "/api/images"},
		{"/api/images/42", "/api/images/:id"},
		{"/api/images/42/extra/7", "/api/images/:id/extra/:id"},
		{"/healthz", "/healthz"},
		{"/", "/"},
	}

	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
