package agent

import "strings"

// Transcript is the append-only conversation fed to the model. Its
// concatenation is the prompt.
type Transcript struct {
	entries []string
	b       strings.Builder
}

// NewTranscript starts a transcript with the rendered preamble.
func NewTranscript(initial string) *Transcript {
	t := &Transcript{}
	t.Append(initial)
	return t
}

func (t *Transcript) Append(s string) {
	t.entries = append(t.entries, s)
	t.b.WriteString(s)
}

func (t *Transcript) String() string { return t.b.String() }

// Len is the prompt length in bytes.
func (t *Transcript) Len() int { return t.b.Len() }

// Entries returns a copy of the appended fragments in order.
func (t *Transcript) Entries() []string {
	return append([]string(nil), t.entries...)
}
