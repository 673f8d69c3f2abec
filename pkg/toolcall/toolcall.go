// Package toolcall extracts tool-call objects embedded in free-form model output.
//
// A tool call is a JSON object of the shape
//
//	{"tool": "name", "parameters": {"key": "value"}}
//
// that may appear anywhere inside otherwise plain text, zero or more times per
// model turn. Candidates are located with a character-level brace-depth scan
// and only then handed to the JSON decoder. Malformed candidates are an
// expected input and degrade to "no match"; nothing in this package returns
// an error or panics on bad text.
//
// Known limitation: the scan does not tokenize string literals, so a brace
// inside a JSON string (for example a parameter value containing "}") is
// counted as structural and can close a candidate early. The candidate then
// fails to decode and is dropped. A full tokenizing pass would be needed to
// be robust against adversarial content.
package toolcall

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrIncompleteCall reports a decoded object that lacks "tool" or "parameters".
var ErrIncompleteCall = errors.New("incomplete tool call")

// Call is a structured tool invocation extracted from model output.
type Call struct {
	Tool       string
	Parameters map[string]any

	// Raw is the decoded object as it appeared in the text.
	Raw map[string]any

	hasTool   bool
	hasParams bool
}

// Validate reports whether both "tool" and "parameters" were present.
// "tool" must be a non-empty string and "parameters" a JSON object.
func (c Call) Validate() error {
	var missing []string
	if !c.hasTool {
		missing = append(missing, "tool")
	}
	if !c.hasParams {
		missing = append(missing, "parameters")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncompleteCall, strings.Join(missing, ", "))
	}
	return nil
}

// ExtractFirst returns the first balanced object starting at the first '{'.
// The scan stops at that candidate: if it does not decode, no later object is
// considered.
func ExtractFirst(text string) (Call, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return Call{}, false
	}
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return decode(text[start : i+1])
			}
		}
	}
	return Call{}, false
}

// ExtractAll returns every top-level balanced object in textual order.
// Objects nested inside another object are not reported on their own, and
// candidates that fail to decode are skipped.
func ExtractAll(text string) []Call {
	var (
		calls []Call
		depth int
		start = -1
	)
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				// stray closer outside any candidate
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				if c, ok := decode(text[start : i+1]); ok {
					calls = append(calls, c)
				}
				start = -1
			}
		}
	}
	return calls
}

// decode keeps numbers as json.Number so integer parameters beyond 2^53 reach
// the tool unchanged.
func decode(candidate string) (Call, bool) {
	dec := json.NewDecoder(strings.NewReader(candidate))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return Call{}, false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Call{}, false
	}
	c := Call{Raw: obj}
	if name, ok := obj["tool"].(string); ok && name != "" {
		c.Tool = name
		c.hasTool = true
	}
	if params, ok := obj["parameters"].(map[string]any); ok {
		c.Parameters = params
		c.hasParams = true
	}
	return c, true
}
