package tokens

import (
	"strings"
	"testing"
)

func TestApprox(t *testing.T) {
	cases := map[string]int{"": 0, "a": 1, "abcd": 1, "abcde": 2, "héllo wörld!": 3}
	for in, want := range cases {
		if got := Approx(in); got != want {
			t.Errorf("Approx(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestNewTikToken(t *testing.T) {
	est, err := NewTikToken("gpt-4")
	if err != nil {
		t.Skipf("tiktoken not available for model: %v", err)
	}
	if got := est("hello world"); got <= 0 {
		t.Fatalf("got %d tokens, want > 0", got)
	}
}

func TestBudget_Check(t *testing.T) {
	b := Budget{Window: 10}
	used, fits := b.Check(strings.Repeat("x", 20), 5)
	if used != 5 || !fits {
		t.Fatalf("got used=%d fits=%v, want 5 true", used, fits)
	}
	if _, fits := b.Check(strings.Repeat("x", 24), 5); fits {
		t.Fatalf("24 chars + 5 reserve should not fit in 10")
	}
	if _, fits := (Budget{}).Check(strings.Repeat("x", 1000), 1000); !fits {
		t.Fatalf("zero window should always fit")
	}
}
