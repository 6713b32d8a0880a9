package ivsym_test

import (
	"testing"

	ivsym "github.com/ivsym/ivsym"
)

// TestExtractMapConstraintsSimpleSelection checks the common case: a
// universal directly constraining one map at its bound variable,
// `forall i :: m[i] == i`, extracts to a single unguarded parametric
// constraint over m.
func TestExtractMapConstraintsSimpleSelection(t *testing.T) {
	intT := ivsym.Type{Kind: ivsym.IntType}
	mRef := &ivsym.VarExpr{Name: "m"}
	body := ivsym.NewBinary(ivsym.Pos{}, ivsym.OpEq,
		ivsym.NewMapSelect(ivsym.Pos{}, mRef, []ivsym.Expr{&ivsym.VarExpr{Name: "i"}}),
		&ivsym.VarExpr{Name: "i"})
	forall := ivsym.NewForall(ivsym.Pos{}, []ivsym.Binder{{Name: "i", Type: intT}}, body)

	out, skips := ivsym.ExtractMapConstraints(forall)
	if skips != 0 {
		t.Fatalf("expected no skolemization skips, got %d", skips)
	}
	if len(out) != 1 {
		t.Fatalf("expected exactly one extracted constraint, got %d", len(out))
	}
}

// TestExtractMapConstraintsSkipsNestedExistential exercises Open
// Question 1 (spec.md §9.1): an existential nested inside the universal
// is left opaque rather than extracted, and counted.
func TestExtractMapConstraintsSkipsNestedExistential(t *testing.T) {
	intT := ivsym.Type{Kind: ivsym.IntType}
	inner := ivsym.NewExists(ivsym.Pos{}, []ivsym.Binder{{Name: "j", Type: intT}},
		ivsym.NewBinary(ivsym.Pos{}, ivsym.OpEq, &ivsym.VarExpr{Name: "j"}, &ivsym.VarExpr{Name: "i"}))

	_, skips := ivsym.ExtractMapConstraints(inner)
	if skips != 1 {
		t.Fatalf("expected exactly one skolemization skip, got %d", skips)
	}
}
