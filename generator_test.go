package ivsym_test

import (
	"testing"

	ivsym "github.com/ivsym/ivsym"
)

// TestExhaustiveGeneratorEnumeratesEveryPath drives a 2-bit decision
// tree (GenIndex(2) twice per run) and checks every run visits a
// distinct path before the search reports exhausted, and that it
// produces exactly the 4 combinations.
func TestExhaustiveGeneratorEnumeratesEveryPath(t *testing.T) {
	gen := ivsym.NewExhaustiveGenerator()
	seen := map[[2]int]bool{}
	for {
		a := gen.GenIndex(2)
		b := gen.GenIndex(2)
		seen[[2]int{a, b}] = true
		if !gen.NextRun() {
			break
		}
	}
	if len(seen) != 4 {
		t.Fatalf("expected 4 distinct paths, got %d: %v", len(seen), seen)
	}
	if !gen.Exhausted() {
		t.Fatalf("generator should report exhausted once every path is tried")
	}
}

func TestDecisionTreePath(t *testing.T) {
	gen := ivsym.NewExhaustiveGenerator()
	gen.GenBool()
	gen.GenIndex(3)
	if got := gen.Path(); len(got) != 2 {
		t.Fatalf("expected a 2-element path, got %v", got)
	}
}

func TestMultiGeneratorRoundRobins(t *testing.T) {
	a := ivsym.NewExhaustiveGenerator()
	b := ivsym.NewDFSGenerator()
	mg := ivsym.NewMultiGenerator(a, b)

	// First call should land on a (index 0), second on b (index 1, which
	// prefers the last alternative).
	first := mg.GenIndex(4)
	second := mg.GenIndex(4)
	if first != 0 {
		t.Fatalf("first round-robin call should hit ExhaustiveGenerator's default (0), got %d", first)
	}
	if second != 3 {
		t.Fatalf("second round-robin call should hit DFSGenerator's preferLast default (3), got %d", second)
	}
}
