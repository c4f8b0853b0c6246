package runner

import (
	"fmt"
	"testing"
)

func TestTailKeepsMostRecentLines(t *testing.T) {
	rb := newTail(3)
	if got := rb.lines(); got != nil {
		t.Fatalf("empty tail should return nil, got %v", got)
	}

	rb.append("a")
	rb.append("b")
	if got := rb.lines(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected lines: %v", got)
	}

	for i := 0; i < 10; i++ {
		rb.append(fmt.Sprintf("line-%d", i))
	}
	got := rb.lines()
	if len(got) != 3 {
		t.Fatalf("expected capacity 3, got %d", len(got))
	}
	want := []string{"line-7", "line-8", "line-9"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
