// Package tokens estimates how much of a model's context window a prompt uses.
package tokens

import (
	"fmt"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Estimator estimates token usage of text content.
type Estimator func(text string) int

// Approx assumes roughly four characters per token. It needs no vocabulary
// and is the fallback when tiktoken cannot load one.
func Approx(text string) int {
	n := len([]rune(text))
	return (n + 3) / 4
}

// NewTikToken returns an Estimator backed by tiktoken-go. model is tried as
// an OpenAI model name first, then as an encoding name (e.g. "cl100k_base").
func NewTikToken(model string) (Estimator, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		var encErr error
		enc, encErr = tiktoken.GetEncoding(model)
		if encErr != nil {
			return nil, fmt.Errorf("tokens: no encoding for %q: %w", model, err)
		}
	}
	return func(text string) int {
		return len(enc.Encode(text, nil, nil))
	}, nil
}

// Budget checks prompts against a fixed context window.
type Budget struct {
	Window   int
	Estimate Estimator
}

// Check reports the estimated prompt size and whether prompt plus reserve
// output tokens fit in the window. A non-positive window always fits.
func (b Budget) Check(prompt string, reserve int) (used int, fits bool) {
	est := b.Estimate
	if est == nil {
		est = Approx
	}
	used = est(prompt)
	if b.Window <= 0 {
		return used, true
	}
	return used, used+reserve <= b.Window
}
