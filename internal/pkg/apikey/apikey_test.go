package apikey

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	key, err := Generate("vf_live_")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(key, "vf_live_"))
	assert.Len(t, key, len("vf_live_")+64)
	assert.True(t, HasPrefix(key, "vf_live_"))
}

func TestGenerate_Unique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		key, err := Generate("vf_")
		require.NoError(t, err)
		_, dup := seen[key]
		assert.False(t, dup)
		seen[key] = struct{}{}
	}
}

func TestHasPrefix(t *testing.T) {
	assert.False(t, HasPrefix("vf_live_short", "vf_live_"))
	assert.False(t, HasPrefix("eyJhbGciOiJIUzI1NiJ9", "vf_live_"))
	assert.False(t, HasPrefix("anything", ""))
}

func TestMask(t *testing.T) {
	key := "vf_live_" + strings.Repeat("a", 60) + "beef"
	masked := Mask(key, "vf_live_")

	assert.True(t, strings.HasPrefix(masked, "vf_live_"))
	assert.True(t, strings.HasSuffix(masked, "beef"))
	assert.NotContains(t, masked, "aaaa")
	assert.Equal(t, "", Mask("", "vf_live_"))
	assert.Equal(t, "vf_***", Mask("vf_abc", "vf_"))
}
