package ivsym_test

import (
	"testing"

	ivsym "github.com/ivsym/ivsym"
)

func TestPreprocessDetectsRecursiveFunctions(t *testing.T) {
	// double(n) = n + double(n) -- directly self-referential.
	body := ivsym.NewBinary(ivsym.Pos{}, ivsym.OpAdd,
		&ivsym.VarExpr{Name: "n"},
		&ivsym.CallExpr{Name: "double", Args: []ivsym.Expr{&ivsym.VarExpr{Name: "n"}}})

	decls := []ivsym.Decl{
		ivsym.FunctionDecl{Name: "double", Formals: []ivsym.Binder{{Name: "n", Type: ivsym.Type{Kind: ivsym.IntType}}}, Body: body},
		ivsym.FunctionDecl{Name: "identity", Formals: []ivsym.Binder{{Name: "n", Type: ivsym.Type{Kind: ivsym.IntType}}}, Body: &ivsym.VarExpr{Name: "n"}},
	}

	prog := ivsym.Preprocess(decls)

	if !prog.Functions["double"].Recursive {
		t.Fatalf("double must be detected as recursive")
	}
	if prog.Functions["identity"].Recursive {
		t.Fatalf("identity must not be detected as recursive")
	}
}

func TestSeedGlobalConstraintsRegistersUniqueness(t *testing.T) {
	decls := []ivsym.Decl{
		ivsym.UniqueDecl{TypeName: "Color", Names: []string{"Red", "Green", "Blue"}},
	}
	prog := ivsym.Preprocess(decls)
	cs := ivsym.NewConstraintStore()
	ivsym.SeedGlobalConstraints(prog, cs)

	// Every pairwise disequality is registered under both names, so each
	// of the 3 constants should see 2 name constraints (one per pairing).
	for _, name := range []string{"Red", "Green", "Blue"} {
		if got := len(cs.NameConstraints(name)); got != 2 {
			t.Fatalf("%s: expected 2 registered disequalities, got %d", name, got)
		}
	}
}

func TestSeedGlobalConstraintsRegistersAxiomsAndWhereClauses(t *testing.T) {
	axiom := ivsym.NewBinary(ivsym.Pos{}, ivsym.OpGt, &ivsym.VarExpr{Name: "Limit"}, ivsym.Literal(ivsym.Pos{}, ivsym.NewInteger(0)))
	decls := []ivsym.Decl{
		ivsym.AxiomDecl{Expr: axiom},
		ivsym.VarDecl{Name: "Counter", Type: ivsym.Type{Kind: ivsym.IntType}, Scope: ivsym.ScopeGlobal,
			Where: ivsym.NewBinary(ivsym.Pos{}, ivsym.OpGe, &ivsym.VarExpr{Name: "Counter"}, ivsym.Literal(ivsym.Pos{}, ivsym.NewInteger(0)))},
	}
	prog := ivsym.Preprocess(decls)
	cs := ivsym.NewConstraintStore()
	ivsym.SeedGlobalConstraints(prog, cs)

	if got := len(cs.NameConstraints("Limit")); got != 1 {
		t.Fatalf("expected the axiom registered under Limit, got %d", got)
	}
	if got := len(cs.NameConstraints("Counter")); got != 1 {
		t.Fatalf("expected the where-clause registered under Counter, got %d", got)
	}
}
