package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranscript_AppendOnly(t *testing.T) {
	tr := NewTranscript("intro")
	tr.Append("\nanswer\n")
	tr.Append("Tool 'x' returned: y\nAssistant:")

	assert.Equal(t, "intro\nanswer\nTool 'x' returned: y\nAssistant:", tr.String())
	assert.Equal(t, len(tr.String()), tr.Len())

	entries := tr.Entries()
	assert.Len(t, entries, 3)
	entries[0] = "mutated"
	assert.Equal(t, "intro", tr.Entries()[0])
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "building", Building.String())
	assert.Equal(t, "done", Done.String())
	assert.Equal(t, "unknown", State(42).String())
}
