// Package prompt renders the instruction preamble that opens every run's
// transcript.
package prompt

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"text/template"
)

// DefaultBody teaches the model the tool-call wire format and shows one
// multi-step exchange. It ends with the user's turn; the model continues
// from there.
const DefaultBody = `You are an AI assistant that can use tools to help users.

RULES:
- To call a tool: output ONLY {"tool": "name", "parameters": {...}}
- After getting tool results, you can call another tool OR give your final answer
- Final answer: respond in plain text with NO JSON

AVAILABLE TOOLS:
{{.Tools}}

EXAMPLE - Multi-step task:
User: Search for cats then make a presentation
Assistant: {"tool": "search_web_presentation", "parameters": {"query": "cats"}}
[After getting search results...]
Assistant: {"tool": "create_presentation", "parameters": {"title": "Cats", "slides": [...]}}
[After presentation created...]
Assistant: I've created your 3-slide presentation about cats using the search results.

User: {{.Message}}`

// Preamble is a named instruction template. Body is a text/template with
// the fields of Data.
type Preamble struct {
	Name string
	Body string
}

// Data fills a preamble.
type Data struct {
	Tools   string
	Message string
}

// Default returns the built-in preamble.
func Default() Preamble { return Preamble{Name: "default", Body: DefaultBody} }

// Load reads a preamble body from path and lints it.
func Load(path string) (Preamble, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Preamble{}, fmt.Errorf("prompt: load %s: %w", path, err)
	}
	p := Preamble{Name: path, Body: string(b)}
	if issues := Lint(p); len(issues) > 0 {
		return Preamble{}, &LintError{Issues: issues}
	}
	return p, nil
}

// Render executes the preamble.
func (p Preamble) Render(d Data) (string, error) {
	t, err := template.New(p.Name).Option("missingkey=error").Parse(p.Body)
	if err != nil {
		return "", fmt.Errorf("prompt: parse %s: %w", p.Name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("prompt: render %s: %w", p.Name, err)
	}
	return buf.String(), nil
}

// Issue describes a lint finding.
type Issue struct {
	Rule    string
	Message string
}

var ErrLintFailed = errors.New("prompt failed lint checks")

// LintError carries the findings behind ErrLintFailed.
type LintError struct{ Issues []Issue }

func (e *LintError) Error() string {
	msgs := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		msgs[i] = is.Rule + ": " + is.Message
	}
	return ErrLintFailed.Error() + ": " + strings.Join(msgs, "; ")
}

func (e *LintError) Unwrap() error { return ErrLintFailed }

// Lint runs basic checks on a preamble.
func Lint(p Preamble) []Issue {
	var issues []Issue
	if strings.TrimSpace(p.Body) == "" {
		return []Issue{{Rule: "body.required", Message: "body is empty"}}
	}
	if _, err := template.New("lint").Parse(p.Body); err != nil {
		issues = append(issues, Issue{Rule: "template.parse", Message: err.Error()})
	}
	if !strings.Contains(p.Body, "{{.Tools}}") {
		issues = append(issues, Issue{Rule: "placeholder.tools", Message: "body never renders {{.Tools}}"})
	}
	if !strings.Contains(p.Body, "{{.Message}}") {
		issues = append(issues, Issue{Rule: "placeholder.message", Message: "body never renders {{.Message}}"})
	}
	if !strings.Contains(p.Body, `"tool"`) {
		issues = append(issues, Issue{Rule: "format.tool_call", Message: `body does not show the {"tool": ..., "parameters": ...} format`})
	}
	if containsSecretLike(p.Body) {
		issues = append(issues, Issue{Rule: "security.secrets", Message: "body appears to contain secrets-like content"})
	}
	return issues
}

// apiKeyPattern matches OpenAI-style keys, not words that merely end in "sk-".
var apiKeyPattern = regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{16,}`)

func containsSecretLike(s string) bool {
	ls := strings.ToLower(s)
	for _, n := range []string{"aws_secret_access_key", "begin private key"} {
		if strings.Contains(ls, n) {
			return true
		}
	}
	return apiKeyPattern.MatchString(s)
}
