package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeUploadPath(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{
			name: "relative upload path",
			raw:  "uploads/2024/01/15/a.jpg",
			want: "uploads/2024/01/15/a.jpg",
			ok:   true,
		},
		{
			name: "media-root prefixed path",
			raw:  "/media/uploads/2024/01/15/a.jpg",
			want: "uploads/2024/01/15/a.jpg",
			ok:   true,
		},
		{
			name: "absolute URL with media root",
			raw:  "https://cdn.example.com/media/uploads/2024/01/15/a.jpg",
			want: "uploads/2024/01/15/a.jpg",
			ok:   true,
		},
		{
			name: "absolute URL with base path before media root",
			raw:  "https://cdn.example.com/static/media/uploads/x.png",
			want: "uploads/x.png",
			ok:   true,
		},
		{
			name: "leading slash without media root",
			raw:  "/uploads/2024/a.jpg",
			want: "uploads/2024/a.jpg",
			ok:   true,
		},
		{
			name: "query string ignored",
			raw:  "/media/uploads/a.jpg?v=2",
			want: "uploads/a.jpg",
			ok:   true,
		},
		{
			name: "non-upload site asset",
			raw:  "/static/img/logo.png",
			ok:   false,
		},
		{
			name: "external image",
			raw:  "https://other.example.com/pictures/a.jpg",
			ok:   false,
		},
		{
			name: "path escaping the namespace",
			raw:  "uploads/../secret/a.jpg",
			ok:   false,
		},
		{
			name: "empty",
			raw:  "",
			ok:   false,
		},
		{
			name: "whitespace only",
			raw:  "   ",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeUploadPath(tt.raw)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				require.Equal(t, tt.want, got)
			}
		})
	}
}

func TestNewUploadPath(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	p := NewUploadPath("Photo.JPG", now)
	require.True(t, strings.HasPrefix(p, "uploads/2024/01/15/"))
	require.True(t, strings.HasSuffix(p, ".jpg"))

	// Generated names must not collide.
	require.NotEqual(t, p, NewUploadPath("Photo.JPG", now))

	// Round-trips through normalization.
	normalized, ok := NormalizeUploadPath("/media/" + p)
	require.True(t, ok)
	require.Equal(t, p, normalized)
}

func TestNewUploadPathNoExtension(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	p := NewUploadPath("README", now)
	require.True(t, strings.HasPrefix(p, "uploads/2024/06/01/"))
	require.False(t, strings.Contains(p[len("uploads/2024/06/01/"):], "."))
}
