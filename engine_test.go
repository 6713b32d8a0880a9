package ivsym_test

import (
	"context"
	"testing"

	ivsym "github.com/ivsym/ivsym"
)

// stubTypeContext is the smallest TypeContext that satisfies a single
// hand-built procedure, standing in for the external type checker
// spec.md §1 assumes.
type stubTypeContext struct {
	types map[string]ivsym.Type
	sig   *ivsym.ProcedureSig
}

func (tc *stubTypeContext) TypeOf(name string) (ivsym.Type, bool) {
	t, ok := tc.types[name]
	return t, ok
}

func (tc *stubTypeContext) ScopeOf(name string) (ivsym.Scope, bool) {
	if _, ok := tc.types[name]; ok {
		return ivsym.ScopeLocal, true
	}
	return 0, false
}

func (tc *stubTypeContext) ProcedureSignature(name string) (*ivsym.ProcedureSig, bool) {
	if name != tc.sig.Name {
		return nil, false
	}
	return tc.sig, true
}

func identityProgram() (*ivsym.Program, *stubTypeContext) {
	intT := ivsym.Type{Kind: ivsym.IntType}
	formals := []ivsym.Binder{{Name: "x", Type: intT}}
	returns := []ivsym.Binder{{Name: "y", Type: intT}}

	ensures := []ivsym.Clause{{
		Expr: ivsym.NewBinary(ivsym.Pos{}, ivsym.OpEq, &ivsym.VarExpr{Name: "y"}, &ivsym.VarExpr{Name: "x"}),
		Kind: ivsym.Postcondition,
	}}

	impl := &ivsym.ImplementationBody{
		Entry: "entry",
		Blocks: map[string]*ivsym.BasicBlock{
			"entry": {
				Label: "entry",
				Stmts: []ivsym.Stmt{
					ivsym.AssignStmt{
						LHS: []ivsym.LValue{{Name: "y"}},
						RHS: []ivsym.Expr{&ivsym.VarExpr{Name: "x"}},
					},
				},
			},
		},
	}

	decl := ivsym.ProcedureDecl{
		Name: "identity", Formals: formals, Returns: returns,
		Ensures: ensures, Implementations: []*ivsym.ImplementationBody{impl},
	}
	prog := ivsym.Preprocess([]ivsym.Decl{decl})

	tc := &stubTypeContext{
		types: map[string]ivsym.Type{"x": intT, "y": intT},
		sig:   &ivsym.ProcedureSig{Name: "identity", Formals: formals, Returns: returns},
	}
	return prog, tc
}

func TestExecuteProgramIdentityPasses(t *testing.T) {
	prog, tc := identityProgram()
	gen := ivsym.NewDFSGenerator()
	solver := ivsym.NewTrivialSolver(gen, 8)

	result := ivsym.ExecuteProgram(context.Background(), prog, tc, solver, true, gen, "identity")

	if got := result.Classify(); got != "pass" {
		t.Fatalf("expected pass, got %s (failure: %v)", got, result.Failure)
	}
}

func TestExecuteProgramUnknownEntryPointIsNonexecutable(t *testing.T) {
	prog, tc := identityProgram()
	gen := ivsym.NewDFSGenerator()
	solver := ivsym.NewTrivialSolver(gen, 8)

	result := ivsym.ExecuteProgram(context.Background(), prog, tc, solver, true, gen, "nonexistent")
	if got := result.Classify(); got != "nonexecutable" {
		t.Fatalf("expected nonexecutable, got %s", got)
	}
}
