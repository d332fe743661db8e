package sanitise

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"clean text untouched", "hello world", "hello world"},
		{"keeps whitespace controls", "a\nb\r\nc\td", "a\nb\r\nc\td"},
		{"drops NUL", "a\x00b", "ab"},
		{"drops C0 controls", "a\x01\x07\x1bb", "ab"},
		{"drops DEL and C1", "a\x7f\u0085b", "ab"},
		{"drops replacement char", "caf\uFFFD", "caf"},
		{"keeps unicode letters", "日本語 ✓", "日本語 ✓"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.in))
		})
	}
}

func TestProcessor_Process(t *testing.T) {
	p := New()
	assert.Equal(t, "sanitise", p.Name())

	doc := &domain.Document{Content: "x\x00y"}
	in := []domain.Chunk{{Index: 1}}

	out, err := p.Process(context.Background(), doc, in)
	require.NoError(t, err)
	assert.Equal(t, "xy", doc.Content)
	assert.Equal(t, in, out)
}
