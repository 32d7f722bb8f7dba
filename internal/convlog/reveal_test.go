package convlog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReveal_GrowingPrefixes(t *testing.T) {
	r := NewReveal("salam dünya", 3)

	var prefixes []string
	for {
		p, ok := r.Next()
		if !ok {
			break
		}
		prefixes = append(prefixes, p)
	}

	require.NotEmpty(t, prefixes)
	assert.Equal(t, "salam dünya", prefixes[len(prefixes)-1])
	for i := 1; i < len(prefixes); i++ {
		assert.True(t, strings.HasPrefix(prefixes[i], prefixes[i-1]),
			"each prefix extends the previous one")
	}
	assert.True(t, r.Done())

	_, ok := r.Next()
	assert.False(t, ok, "not restartable")
}

func TestReveal_MultibyteSafe(t *testing.T) {
	// Azerbaijani and Cyrillic text must never split mid-rune.
	text := "Əlbəttə, оператор bağlanır"
	r := NewReveal(text, 2)
	for {
		p, ok := r.Next()
		if !ok {
			break
		}
		assert.True(t, strings.HasPrefix(text, p))
	}
}

func TestReveal_EmptyText(t *testing.T) {
	r := NewReveal("", 3)
	_, ok := r.Next()
	assert.False(t, ok)
	assert.True(t, r.Done())
}

func TestReveal_StepClamp(t *testing.T) {
	r := NewReveal("ab", 0)
	p, ok := r.Next()
	require.True(t, ok)
	assert.Equal(t, "a", p)
}
