package gemini

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wilhg/relay/pkg/adapters/llm"
)

func TestGenerateConfig(t *testing.T) {
	assert.Nil(t, generateConfig(nil))

	cfg := generateConfig(map[string]any{
		llm.OptMaxTokens:   1024,
		llm.OptTemperature: 0.3,
		llm.OptStop:        []string{"User:", "\n\nUser:"},
	})
	require.NotNil(t, cfg)
	assert.EqualValues(t, 1024, cfg.MaxOutputTokens)
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.3, *cfg.Temperature, 1e-6)
	assert.Equal(t, []string{"User:", "\n\nUser:"}, cfg.StopSequences)
}

func TestFactory_MissingKey(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	_, err := Factory(context.Background(), nil)
	assert.ErrorContains(t, err, "missing API key")
}
