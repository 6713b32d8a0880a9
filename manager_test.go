package ivsym_test

import (
	"context"
	"testing"

	ivsym "github.com/ivsym/ivsym"
)

func TestManagerCheckSatNoOpWithoutWork(t *testing.T) {
	types := &fixedTypeContext{}
	gen := ivsym.NewDFSGenerator()
	ev := ivsym.NewEvaluator(ivsym.Preprocess(nil), types, gen)
	mgr := ivsym.NewManager(ivsym.NewTrivialSolver(gen, 8), ev)
	mem := ivsym.NewMemory(types)
	cs := ivsym.NewConstraintStore()

	out, o := mgr.CheckSat(context.Background(), mem, cs, ivsym.Pos{})
	if o != nil {
		t.Fatalf("unexpected outcome: %v", o)
	}
	if out != mem {
		t.Fatalf("expected CheckSat with no pending work to be a no-op")
	}
}

func TestManagerSolveAndConcretizeAssignsLogicalValues(t *testing.T) {
	types := &fixedTypeContext{}
	gen := ivsym.NewDFSGenerator()
	ev := ivsym.NewEvaluator(ivsym.Preprocess(nil), types, gen)
	mgr := ivsym.NewManager(ivsym.NewTrivialSolver(gen, 8), ev)
	mem := ivsym.NewMemory(types)
	cs := ivsym.NewConstraintStore()

	ref := mem.FreshLogical()
	vars := map[ivsym.Ref]ivsym.Type{ref: {Kind: ivsym.IntType}}

	mem, o := mgr.SolveAndConcretize(context.Background(), mem, cs, ivsym.Pos{}, vars, nil)
	if o != nil {
		t.Fatalf("unexpected outcome: %v", o)
	}
	if _, ok := mem.Logical(ref); !ok {
		t.Fatalf("expected the solver's assignment to be recorded for %v", ref)
	}
}

func TestManagerReconcretizeRewritesBoundRefsToLiterals(t *testing.T) {
	types := &fixedTypeContext{
		types:  map[string]ivsym.Type{"x": {Kind: ivsym.IntType}},
		scopes: map[string]ivsym.Scope{"x": ivsym.ScopeGlobal},
	}
	gen := ivsym.NewDFSGenerator()
	ev := ivsym.NewEvaluator(ivsym.Preprocess(nil), types, gen)
	mgr := ivsym.NewManager(ivsym.NewTrivialSolver(gen, 8), ev)
	mem := ivsym.NewMemory(types)
	cs := ivsym.NewConstraintStore()

	mem, val, o := ev.Evaluate(mem, cs, &ivsym.VarExpr{Name: "x"})
	if o != nil {
		t.Fatalf("unexpected outcome: %v", o)
	}
	ref := val.(*ivsym.RefExpr).Ref

	mem, o = mgr.SolveAndConcretize(context.Background(), mem, cs, ivsym.Pos{}, map[ivsym.Ref]ivsym.Type{ref: {Kind: ivsym.IntType}}, nil)
	if o != nil {
		t.Fatalf("unexpected outcome: %v", o)
	}

	e, _, _ := mem.LookupVar("x")
	if _, ok := ivsym.AsLiteral(e); !ok {
		t.Fatalf("expected x to be rewritten to a literal after reconcretization, got %T", e)
	}
}
