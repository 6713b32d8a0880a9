package ivsym_test

import (
	"testing"

	ivsym "github.com/ivsym/ivsym"
)

func lit(n int64) *ivsym.LiteralExpr { return ivsym.Literal(ivsym.Pos{}, ivsym.NewInteger(n)) }
func litb(b bool) *ivsym.LiteralExpr { return ivsym.Literal(ivsym.Pos{}, ivsym.BooleanValue{B: b}) }

func TestNewBinaryConstantFolding(t *testing.T) {
	t.Run("Add", func(t *testing.T) {
		e := ivsym.NewBinary(ivsym.Pos{}, ivsym.OpAdd, lit(2), lit(3))
		v, ok := ivsym.AsLiteral(e)
		if !ok {
			t.Fatalf("expected folded literal, got %s", e)
		}
		if v.String() != "5" {
			t.Fatalf("got %s, want 5", v)
		}
	})
	t.Run("DivByZeroLeftUnfolded", func(t *testing.T) {
		e := ivsym.NewBinary(ivsym.Pos{}, ivsym.OpDiv, lit(4), lit(0))
		if _, ok := ivsym.AsLiteral(e); ok {
			t.Fatalf("division by literal zero must not fold, got %s", e)
		}
	})
	t.Run("EuclideanModAlwaysNonNegative", func(t *testing.T) {
		e := ivsym.NewBinary(ivsym.Pos{}, ivsym.OpMod, lit(-7), lit(3))
		v, ok := ivsym.AsLiteral(e)
		if !ok {
			t.Fatalf("expected folded literal, got %s", e)
		}
		if v.String() != "2" {
			t.Fatalf("got %s, want 2 (euclidean mod)", v)
		}
	})
	t.Run("BooleanShortCircuitOperators", func(t *testing.T) {
		e := ivsym.NewBinary(ivsym.Pos{}, ivsym.OpImplies, litb(false), litb(false))
		v, ok := ivsym.AsLiteral(e)
		if !ok || v.String() != "true" {
			t.Fatalf("false ==> false should fold to true, got %v %v", v, ok)
		}
	})
}

func TestNewIfConstantFolding(t *testing.T) {
	then := lit(1)
	els := lit(2)
	if got := ivsym.NewIf(ivsym.Pos{}, litb(true), then, els); got != Expr(then) {
		t.Fatalf("if true should fold to then branch")
	}
	if got := ivsym.NewIf(ivsym.Pos{}, litb(false), then, els); got != Expr(els) {
		t.Fatalf("if false should fold to else branch")
	}
}

// Expr is a local alias so the comparisons above read naturally without
// importing the interface type twice.
type Expr = ivsym.Expr

func TestFreeVars(t *testing.T) {
	// forall x :: x + y == z
	body := ivsym.NewBinary(ivsym.Pos{}, ivsym.OpEq,
		ivsym.NewBinary(ivsym.Pos{}, ivsym.OpAdd, &ivsym.VarExpr{Name: "x"}, &ivsym.VarExpr{Name: "y"}),
		&ivsym.VarExpr{Name: "z"})
	q := ivsym.NewForall(ivsym.Pos{}, []ivsym.Binder{{Name: "x", Type: ivsym.Type{Kind: ivsym.IntType}}}, body)

	free := ivsym.FreeVars(q)
	if free["x"] {
		t.Fatalf("x is bound by the quantifier, must not be free")
	}
	if !free["y"] || !free["z"] {
		t.Fatalf("y and z must be free, got %v", free)
	}
}

func TestWalkExprRebuildsTree(t *testing.T) {
	e := ivsym.NewBinary(ivsym.Pos{}, ivsym.OpAnd, &ivsym.VarExpr{Name: "a"}, &ivsym.VarExpr{Name: "b"})
	renamed := ivsym.WalkExpr(e, func(n ivsym.Expr) ivsym.Expr {
		if v, ok := n.(*ivsym.VarExpr); ok && v.Name == "a" {
			return &ivsym.VarExpr{Name: "renamed"}
		}
		return n
	})
	if renamed.String() != "(renamed && b)" {
		t.Fatalf("got %s", renamed)
	}
}
