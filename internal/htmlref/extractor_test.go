package htmlref

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractPaths(t *testing.T) {
	tests := []struct {
		name string
		html string
		want []string
	}{
		{
			name: "single relative reference",
			html: `<p>hi</p><img src="/media/uploads/2024/01/a.jpg">`,
			want: []string{"uploads/2024/01/a.jpg"},
		},
		{
			name: "absolute URL reference",
			html: `<img src="https://cdn.example.com/media/uploads/x.png" alt="x">`,
			want: []string{"uploads/x.png"},
		},
		{
			name: "duplicates collapse",
			html: `<img src="/media/uploads/a.jpg"><img src="uploads/a.jpg">`,
			want: []string{"uploads/a.jpg"},
		},
		{
			name: "multiple references",
			html: `<div><img src="/media/uploads/a.jpg"/><p>text</p><img src="/media/uploads/b.jpg"/></div>`,
			want: []string{"uploads/a.jpg", "uploads/b.jpg"},
		},
		{
			name: "external and non-upload images discarded",
			html: `<img src="https://other.com/pic.jpg"><img src="/static/logo.png">`,
			want: nil,
		},
		{
			name: "img without src ignored",
			html: `<img alt="broken">`,
			want: nil,
		},
		{
			name: "empty html",
			html: "",
			want: nil,
		},
		{
			name: "whitespace only",
			html: "   \n\t",
			want: nil,
		},
		{
			name: "malformed html still parses",
			html: `<div><img src="/media/uploads/a.jpg"<p>broken`,
			want: []string{"uploads/a.jpg"},
		},
		{
			name: "plain text without images",
			html: "just some text, no markup",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractPaths(tt.html)
			require.Len(t, got, len(tt.want))
			for _, p := range tt.want {
				require.Contains(t, got, p)
			}
		})
	}
}

// Re-inserting a known path as an img tag must extract exactly that
// path, in both absolute and relative URL form.
func TestExtractPathsRoundTrip(t *testing.T) {
	const path = "uploads/2024/05/20/photo.jpg"

	forms := []string{
		fmt.Sprintf(`<img src="/media/%s">`, path),
		fmt.Sprintf(`<img src="%s">`, path),
		fmt.Sprintf(`<img src="https://cdn.example.com/media/%s">`, path),
	}

	for _, html := range forms {
		got := ExtractPaths(html)
		require.Len(t, got, 1, "html: %s", html)
		require.Contains(t, got, path)
	}
}

func TestExtractFromFields(t *testing.T) {
	fields := []string{
		`<img src="/media/uploads/a.jpg">`,
		``,
		`<img src="/media/uploads/b.jpg"><img src="/media/uploads/a.jpg">`,
	}

	got := ExtractFromFields(fields)
	require.Len(t, got, 2)
	require.Contains(t, got, "uploads/a.jpg")
	require.Contains(t, got, "uploads/b.jpg")
}

func TestExtractFromFieldsEmpty(t *testing.T) {
	require.Empty(t, ExtractFromFields(nil))
	require.Empty(t, ExtractFromFields([]string{"", "  "}))
}
