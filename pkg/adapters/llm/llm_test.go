package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echo struct{}

func (echo) Name() string { return "echo" }
func (echo) Generate(_ context.Context, m []Message, _ map[string]any) (GenerateResult, error) {
	return GenerateResult{Text: Prompt(m)}, nil
}

func TestRegisterAndOpen(t *testing.T) {
	require.NoError(t, Register("echo-test", func(context.Context, map[string]any) (LLM, error) { return echo{}, nil }))
	assert.Error(t, Register("echo-test", func(context.Context, map[string]any) (LLM, error) { return echo{}, nil }))
	assert.Error(t, Register("", nil))
	assert.Contains(t, Names(), "echo-test")

	m, err := Open(context.Background(), "echo-test", nil)
	require.NoError(t, err)
	res, err := m.Generate(context.Background(), []Message{{Content: "a"}, {Content: "b"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "a\nb", res.Text)

	_, err = Open(context.Background(), "nope", nil)
	assert.ErrorContains(t, err, `unknown provider "nope"`)
}

func TestOptionGetters(t *testing.T) {
	opts := map[string]any{
		OptMaxTokens:   float64(1024),
		OptTemperature: 0.3,
		OptStop:        []any{"User:", 7, "\n\nUser:"},
		OptModel:       "",
	}
	n, ok := Int(opts, OptMaxTokens)
	assert.True(t, ok)
	assert.Equal(t, 1024, n)

	f, ok := Float(opts, OptTemperature)
	assert.True(t, ok)
	assert.InDelta(t, 0.3, f, 1e-9)

	stop, ok := Strings(opts, OptStop)
	assert.True(t, ok)
	assert.Equal(t, []string{"User:", "\n\nUser:"}, stop)

	_, ok = String(opts, OptModel)
	assert.False(t, ok)
	_, ok = Int(nil, OptMaxTokens)
	assert.False(t, ok)
}
