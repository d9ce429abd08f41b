package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplate(t *testing.T) {
	tests := []struct {
		name string
		text string
		data map[string]any
		want string
	}{
		{"no markers", "You are helpful.", nil, "You are helpful."},
		{"field", "Hello {{.user}}", map[string]any{"user": "test"}, "Hello test"},
		{"default", `Hi {{default "guest" .user}}`, map[string]any{}, "Hi guest"},
		{"upper", "{{upper .user}}", map[string]any{"user": "ab"}, "AB"},
		{"title", "{{title .user}}", map[string]any{"user": "aLICE"}, "Alice"},
		{"nested", "{{.prefs.lang}}", map[string]any{"prefs": map[string]any{"lang": "go"}}, "go"},
		{"no html escaping", "{{.q}}", map[string]any{"q": "a < b & c"}, "a < b & c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderTemplate(tt.text, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderTemplate_ParseError(t *testing.T) {
	_, err := RenderTemplate("{{.user", nil)
	assert.Error(t, err)
}

func TestRenderTemplate_UnknownHelper(t *testing.T) {
	_, err := RenderTemplate(`{{join ", " .tags}}`, map[string]any{"tags": "a"})
	assert.Error(t, err)
}
