package eval

import (
	"context"
	"testing"

	"github.com/wilhg/relay/pkg/adapters/llm"
)

func TestReplayModel(t *testing.T) {
	m := NewReplayModel("one", "two")
	ctx := context.Background()
	for _, want := range []string{"one", "two", "two"} {
		res, err := m.Generate(ctx, []llm.Message{{Content: "p"}}, nil)
		if err != nil {
			t.Fatal(err)
		}
		if res.Text != want {
			t.Fatalf("got %q, want %q", res.Text, want)
		}
	}
	if got := len(m.Prompts()); got != 3 {
		t.Fatalf("prompts=%d", got)
	}
	if _, err := NewReplayModel().Generate(ctx, nil, nil); err == nil {
		t.Fatal("empty replay model should fail")
	}
}

func TestCannedTools(t *testing.T) {
	c := NewCannedTools(map[string]string{"b": "B", "a": "!error: boom"})
	tools, _ := c.Sync(context.Background())
	if len(tools) != 2 || tools[0].Name != "a" || tools[1].Name != "b" {
		t.Fatalf("tools=%+v", tools)
	}
	if out, err := c.Invoke(context.Background(), "b", nil); err != nil || out != "B" {
		t.Fatalf("b: %q %v", out, err)
	}
	if _, err := c.Invoke(context.Background(), "a", nil); err == nil || err.Error() != "boom" {
		t.Fatalf("a: %v", err)
	}
	if _, err := c.Invoke(context.Background(), "zzz", nil); err == nil {
		t.Fatal("unknown tool should fail")
	}
	if got := c.Calls(); len(got) != 3 || got[0] != "b" {
		t.Fatalf("calls=%v", got)
	}
}
