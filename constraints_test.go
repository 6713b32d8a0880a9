package ivsym_test

import (
	"testing"

	ivsym "github.com/ivsym/ivsym"
)

func TestConstraintStoreExtendLogicalSplitsConjunctions(t *testing.T) {
	cs := ivsym.NewConstraintStore()
	a := ivsym.Literal(ivsym.Pos{}, ivsym.BooleanValue{B: true})
	b := ivsym.NewBinary(ivsym.Pos{}, ivsym.OpEq, ivsym.Literal(ivsym.Pos{}, ivsym.NewInteger(1)), &ivsym.VarExpr{Name: "x"})
	conj := ivsym.NewBinary(ivsym.Pos{}, ivsym.OpAnd, a, b)

	if o := cs.ExtendLogical(conj); o != nil {
		t.Fatalf("unexpected outcome: %v", o)
	}
	// `a` is literal true, folded away as a no-op; only `b` should remain.
	if got := len(cs.LogicalConstraints()); got != 1 {
		t.Fatalf("expected exactly 1 surviving constraint, got %d", got)
	}
}

func TestConstraintStoreExtendLogicalLiteralFalseFails(t *testing.T) {
	cs := ivsym.NewConstraintStore()
	if o := cs.ExtendLogical(ivsym.Literal(ivsym.Pos{}, ivsym.BooleanValue{B: false})); o == nil {
		t.Fatalf("expected extending with a literal false to fail")
	}
}

func TestConstraintStoreEnqueueDedupes(t *testing.T) {
	cs := ivsym.NewConstraintStore()
	args := []ivsym.Expr{ivsym.Literal(ivsym.Pos{}, ivsym.NewInteger(1))}

	cs.Enqueue(ivsym.Ref(1), args)
	cs.Enqueue(ivsym.Ref(1), args)

	_, ok := cs.Dequeue()
	if !ok {
		t.Fatalf("expected one queued point")
	}
	if _, ok := cs.Dequeue(); ok {
		t.Fatalf("expected the duplicate enqueue to have been deduped")
	}
}

func TestConstraintStoreLeastUsedCasePrefersUnusedIndex(t *testing.T) {
	cs := ivsym.NewConstraintStore()
	gen := ivsym.NewDFSGenerator()
	ref := ivsym.Ref(1)

	first := cs.LeastUsedCase(ref, []int{0, 1}, gen)
	second := cs.LeastUsedCase(ref, []int{0, 1}, gen)
	if first == second {
		t.Fatalf("expected the second call to prefer the still-unused index, got %d twice", first)
	}
}
