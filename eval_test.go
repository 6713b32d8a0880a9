package ivsym_test

import (
	"testing"

	ivsym "github.com/ivsym/ivsym"
)

type fixedTypeContext struct {
	types  map[string]ivsym.Type
	scopes map[string]ivsym.Scope
}

func (tc *fixedTypeContext) TypeOf(name string) (ivsym.Type, bool) {
	t, ok := tc.types[name]
	return t, ok
}

func (tc *fixedTypeContext) ScopeOf(name string) (ivsym.Scope, bool) {
	s, ok := tc.scopes[name]
	return s, ok
}

func (tc *fixedTypeContext) ProcedureSignature(name string) (*ivsym.ProcedureSig, bool) {
	return nil, false
}

func freshEval(types *fixedTypeContext, gen ivsym.Generator) (*ivsym.Evaluator, *ivsym.Memory, *ivsym.ConstraintStore) {
	prog := ivsym.Preprocess(nil)
	return ivsym.NewEvaluator(prog, types, gen), ivsym.NewMemory(types), ivsym.NewConstraintStore()
}

func TestEvalVarAllocatesFreshRefOnFirstRead(t *testing.T) {
	types := &fixedTypeContext{
		types:  map[string]ivsym.Type{"x": {Kind: ivsym.IntType}},
		scopes: map[string]ivsym.Scope{"x": ivsym.ScopeGlobal},
	}
	ev, mem, cs := freshEval(types, ivsym.NewDFSGenerator())

	mem, first, o := ev.Evaluate(mem, cs, &ivsym.VarExpr{Name: "x"})
	if o != nil {
		t.Fatalf("unexpected outcome: %v", o)
	}
	ref, ok := first.(*ivsym.RefExpr)
	if !ok {
		t.Fatalf("expected a RefExpr, got %T", first)
	}

	// A second read of the same name must hit the cache, not allocate a
	// new Ref.
	_, second, o := ev.Evaluate(mem, cs, &ivsym.VarExpr{Name: "x"})
	if o != nil {
		t.Fatalf("unexpected outcome: %v", o)
	}
	if second.(*ivsym.RefExpr).Ref != ref.Ref {
		t.Fatalf("expected the cached Ref, got a new one")
	}
}

func TestEvalBinaryDivisionByZeroYieldsFreshLogical(t *testing.T) {
	types := &fixedTypeContext{}
	ev, mem, cs := freshEval(types, ivsym.NewDFSGenerator())

	div := ivsym.NewBinary(ivsym.Pos{}, ivsym.OpDiv,
		ivsym.Literal(ivsym.Pos{}, ivsym.NewInteger(10)),
		ivsym.Literal(ivsym.Pos{}, ivsym.NewInteger(0)))

	_, result, o := ev.Evaluate(mem, cs, div)
	if o != nil {
		t.Fatalf("division by a literal zero must not fail: %v", o)
	}
	if _, ok := result.(*ivsym.RefExpr); !ok {
		t.Fatalf("expected a fresh logical Ref standing in for the result, got %T", result)
	}
}

func TestEvalMapSelectCachesOnSameArgs(t *testing.T) {
	types := &fixedTypeContext{}
	ev, mem, cs := freshEval(types, ivsym.NewDFSGenerator())

	mapType := ivsym.NewMapType([]ivsym.Type{{Kind: ivsym.IntType}}, ivsym.Type{Kind: ivsym.IntType})
	var mref ivsym.Ref
	mem, mref = mem.FreshMapRef(mapType)
	mapRefExpr := &ivsym.RefExpr{Ref: mref, T: mapType}

	sel := ivsym.NewMapSelect(ivsym.Pos{}, mapRefExpr, []ivsym.Expr{ivsym.Literal(ivsym.Pos{}, ivsym.NewInteger(3))})

	mem, first, o := ev.Evaluate(mem, cs, sel)
	if o != nil {
		t.Fatalf("unexpected outcome: %v", o)
	}
	_, second, o := ev.Evaluate(mem, cs, sel)
	if o != nil {
		t.Fatalf("unexpected outcome: %v", o)
	}
	if first.(*ivsym.RefExpr).Ref != second.(*ivsym.RefExpr).Ref {
		t.Fatalf("selecting the same args twice must hit the cached value")
	}
}

func TestEvalMapUpdateSelectAtUpdatedIndexReadsNewValue(t *testing.T) {
	types := &fixedTypeContext{}
	ev, mem, cs := freshEval(types, ivsym.NewDFSGenerator())

	mapType := ivsym.NewMapType([]ivsym.Type{{Kind: ivsym.IntType}}, ivsym.Type{Kind: ivsym.IntType})
	var mref ivsym.Ref
	mem, mref = mem.FreshMapRef(mapType)
	mapRefExpr := &ivsym.RefExpr{Ref: mref, T: mapType}

	idx := ivsym.Literal(ivsym.Pos{}, ivsym.NewInteger(1))
	newVal := ivsym.Literal(ivsym.Pos{}, ivsym.NewInteger(99))
	update := &ivsym.MapUpdateExpr{Pos: ivsym.Pos{}, Map: mapRefExpr, Args: []ivsym.Expr{idx}, New: newVal}

	mem, updated, o := ev.Evaluate(mem, cs, update)
	if o != nil {
		t.Fatalf("unexpected outcome: %v", o)
	}

	sel := ivsym.NewMapSelect(ivsym.Pos{}, updated, []ivsym.Expr{idx})
	_, got, o := ev.Evaluate(mem, cs, sel)
	if o != nil {
		t.Fatalf("unexpected outcome: %v", o)
	}
	if v, ok := ivsym.AsLiteral(got); !ok || v.(ivsym.IntegerValue).N.Int64() != 99 {
		t.Fatalf("expected 99 at the updated index, got %v", got)
	}
}

func TestEvalMapRefEqualityIdenticalRefsFoldToTrue(t *testing.T) {
	types := &fixedTypeContext{}
	ev, mem, cs := freshEval(types, ivsym.NewDFSGenerator())

	mapType := ivsym.NewMapType([]ivsym.Type{{Kind: ivsym.IntType}}, ivsym.Type{Kind: ivsym.IntType})
	var mref ivsym.Ref
	mem, mref = mem.FreshMapRef(mapType)
	m := &ivsym.RefExpr{Ref: mref, T: mapType}

	eq := ivsym.NewBinary(ivsym.Pos{}, ivsym.OpEq, m, m)
	_, result, o := ev.Evaluate(mem, cs, eq)
	if o != nil {
		t.Fatalf("unexpected outcome: %v", o)
	}
	v, ok := ivsym.AsLiteral(result)
	if !ok || !v.(ivsym.BooleanValue).B {
		t.Fatalf("expected a literal true for reference-identical maps, got %v", result)
	}
}

func TestEvalCallUnfoldsNonRecursiveFunction(t *testing.T) {
	intT := ivsym.Type{Kind: ivsym.IntType}
	fn := ivsym.FunctionDecl{
		Name:    "inc",
		Formals: []ivsym.Binder{{Name: "n", Type: intT}},
		Body:    ivsym.NewBinary(ivsym.Pos{}, ivsym.OpAdd, &ivsym.VarExpr{Name: "n"}, ivsym.Literal(ivsym.Pos{}, ivsym.NewInteger(1))),
	}
	prog := ivsym.Preprocess([]ivsym.Decl{fn})
	types := &fixedTypeContext{}
	ev := ivsym.NewEvaluator(prog, types, ivsym.NewDFSGenerator())
	mem := ivsym.NewMemory(types)
	cs := ivsym.NewConstraintStore()

	call := &ivsym.CallExpr{Name: "inc", Args: []ivsym.Expr{ivsym.Literal(ivsym.Pos{}, ivsym.NewInteger(4))}}
	_, result, o := ev.Evaluate(mem, cs, call)
	if o != nil {
		t.Fatalf("unexpected outcome: %v", o)
	}
	v, ok := ivsym.AsLiteral(result)
	if !ok || v.(ivsym.IntegerValue).N.Int64() != 5 {
		t.Fatalf("expected inc(4) to fold to 5, got %v", result)
	}
}

func TestEvalCallRejectsRecursiveFunction(t *testing.T) {
	intT := ivsym.Type{Kind: ivsym.IntType}
	body := ivsym.NewBinary(ivsym.Pos{}, ivsym.OpAdd,
		&ivsym.VarExpr{Name: "n"},
		&ivsym.CallExpr{Name: "loop", Args: []ivsym.Expr{&ivsym.VarExpr{Name: "n"}}})
	fn := ivsym.FunctionDecl{Name: "loop", Formals: []ivsym.Binder{{Name: "n", Type: intT}}, Body: body}
	prog := ivsym.Preprocess([]ivsym.Decl{fn})
	types := &fixedTypeContext{}
	ev := ivsym.NewEvaluator(prog, types, ivsym.NewDFSGenerator())
	mem := ivsym.NewMemory(types)
	cs := ivsym.NewConstraintStore()

	call := &ivsym.CallExpr{Name: "loop", Args: []ivsym.Expr{ivsym.Literal(ivsym.Pos{}, ivsym.NewInteger(1))}}
	_, _, o := ev.Evaluate(mem, cs, call)
	if o == nil {
		t.Fatalf("expected calling a recursive function to be unsupported")
	}
}
