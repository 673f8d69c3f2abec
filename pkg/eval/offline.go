// Package eval replays recorded model outputs through the reasoning loop and
// checks the outcome, so prompt and loop changes can be evaluated offline.
package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"sort"
	"strings"

	"github.com/wilhg/relay/pkg/agent"
)

// Fixture is one scenario: a user message, the model's replies in order,
// canned tool results, and what the run must produce.
type Fixture struct {
	Name    string            `json:"name"`
	Message string            `json:"message"`
	Outputs []string          `json:"outputs"`
	Tools   map[string]string `json:"tools,omitempty"`
	Expect  Expectation       `json:"expect"`
}

type Expectation struct {
	Contains      []string `json:"contains,omitempty"`
	NotContains   []string `json:"not_contains,omitempty"`
	Steps         int      `json:"steps,omitempty"`
	DepthExceeded *bool    `json:"depth_exceeded,omitempty"`
	Calls         []string `json:"calls,omitempty"`
}

// Report summarizes an evaluation. Score is Passed/Total, 1 when empty.
type Report struct {
	Score   float64
	Total   int
	Passed  int
	Details []string
}

// Evaluate runs every *.json fixture in dir through a fresh controller built
// with opts and scores the expectations.
func Evaluate(ctx context.Context, fsys fs.FS, dir string, opts ...agent.Option) (Report, error) {
	fixtures, err := loadFixtures(fsys, dir)
	if err != nil {
		return Report{}, err
	}
	rep := Report{Total: len(fixtures), Score: 1}
	for _, fx := range fixtures {
		problems := RunFixture(ctx, fx, opts...)
		if len(problems) == 0 {
			rep.Passed++
			continue
		}
		for _, p := range problems {
			rep.Details = append(rep.Details, fx.Name+": "+p)
		}
	}
	if rep.Total > 0 {
		rep.Score = float64(rep.Passed) / float64(rep.Total)
	}
	return rep, nil
}

// RunFixture runs one scenario and returns the unmet expectations.
func RunFixture(ctx context.Context, fx Fixture, opts ...agent.Option) []string {
	model := NewReplayModel(fx.Outputs...)
	tools := NewCannedTools(fx.Tools)
	res := agent.New(model, tools, tools, opts...).Run(ctx, fx.Message)

	var problems []string
	for _, s := range fx.Expect.Contains {
		if !strings.Contains(res.Text, s) {
			problems = append(problems, "missing contains: "+s)
		}
	}
	for _, s := range fx.Expect.NotContains {
		if strings.Contains(res.Text, s) {
			problems = append(problems, "unexpected contains: "+s)
		}
	}
	if fx.Expect.Steps > 0 && res.Steps != fx.Expect.Steps {
		problems = append(problems, fmt.Sprintf("steps: got %d, want %d", res.Steps, fx.Expect.Steps))
	}
	if want := fx.Expect.DepthExceeded; want != nil && res.DepthExceeded != *want {
		problems = append(problems, fmt.Sprintf("depth_exceeded: got %v, want %v", res.DepthExceeded, *want))
	}
	if fx.Expect.Calls != nil && !slices.Equal(tools.Calls(), fx.Expect.Calls) {
		problems = append(problems, fmt.Sprintf("calls: got %v, want %v", tools.Calls(), fx.Expect.Calls))
	}
	return problems
}

func loadFixtures(fsys fs.FS, dir string) ([]Fixture, error) {
	var out []Fixture
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		b, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		var fx Fixture
		if err := json.Unmarshal(b, &fx); err != nil {
			return nil, fmt.Errorf("eval: %s: %w", e.Name(), err)
		}
		if fx.Name == "" {
			fx.Name = strings.TrimSuffix(e.Name(), ".json")
		}
		out = append(out, fx)
	}
	return out, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
