package main

import (
	"bufio"
	"context"
	"strings"
	"testing"

	"github.com/orizon-lang/coopchan"
)

func TestDrainLines_PartialCarry(t *testing.T) {
	out := coopchan.NewChannel[string](8)
	var partial string

	r := bufio.NewReader(strings.NewReader("alpha\nbeta\ngam"))
	if err := drainLines(context.Background(), r, out, &partial); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if partial != "gam" {
		t.Fatalf("partial = %q", partial)
	}

	r = bufio.NewReader(strings.NewReader("ma\ndelta\n"))
	if err := drainLines(context.Background(), r, out, &partial); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if partial != "" {
		t.Fatalf("partial = %q", partial)
	}

	var got []string
	for v := range out.Drain() {
		got = append(got, v)
	}
	want := []string{"alpha", "beta", "gamma", "delta"}
	if len(got) != len(want) {
		t.Fatalf("lines: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}
