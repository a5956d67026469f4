package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrompterRendersTemplates(t *testing.T) {
	p, err := NewPrompter(`Explain: {{ .Content }}`, `About "{{ .Excerpt | trim | upper }}"`)
	require.NoError(t, err)

	got, err := p.AnswerPrompt("goroutines")
	require.NoError(t, err)
	assert.Equal(t, "Explain: goroutines", got)

	got, err = p.ExcerptPrompt("  channels\n")
	require.NoError(t, err)
	assert.Equal(t, `About "CHANNELS"`, got)
}

func TestPrompterRejectsBadTemplates(t *testing.T) {
	_, err := NewPrompter(`{{ .Content`, `ok`)
	assert.Error(t, err)

	p, err := NewPrompter(`{{ .Missing }}`, `ok`)
	require.NoError(t, err)
	_, err = p.AnswerPrompt("x")
	assert.Error(t, err)
}
