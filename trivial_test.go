package ivsym_test

import (
	"context"
	"testing"

	ivsym "github.com/ivsym/ivsym"
)

func TestTrivialSolverCheckAlwaysReportsSAT(t *testing.T) {
	solver := ivsym.NewTrivialSolver(ivsym.NewDFSGenerator(), 8)
	result, _, err := solver.Check(context.Background(), []ivsym.Expr{
		ivsym.Literal(ivsym.Pos{}, ivsym.BooleanValue{B: false}),
	}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != ivsym.SAT {
		t.Fatalf("expected the trivial solver to always report SAT, got %v", result)
	}
}

func TestTrivialSolverPickAssignsEveryRequestedVar(t *testing.T) {
	solver := ivsym.NewTrivialSolver(ivsym.NewDFSGenerator(), 4)
	x, y := ivsym.Ref(1), ivsym.Ref(2)
	vars := map[ivsym.Ref]ivsym.Type{
		x: {Kind: ivsym.IntType},
		y: {Kind: ivsym.BoolType},
	}

	it, err := solver.Pick(context.Background(), nil, 0, vars, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer it.Close()

	sol, err := it.Next(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol == nil {
		t.Fatalf("expected a solution")
	}
	if _, ok := sol.Assignment[x]; !ok {
		t.Fatalf("expected an assignment for x")
	}
	if _, ok := sol.Assignment[y]; !ok {
		t.Fatalf("expected an assignment for y")
	}

	if second, err := it.Next(context.Background()); err != nil || second != nil {
		t.Fatalf("expected the iterator to exhaust after one solution, got %v, %v", second, err)
	}
}
