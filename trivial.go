package ivsym

import "context"

// TrivialSolver is the C9 non-SMT fallback from §4.9: given a bound B,
// it enumerates integers in [-B, +B] (order 0, 1, -1, 2, -2, ...) and
// booleans in {false, true}, via the Generator rather than its own
// randomness, so a caller driving it with an ExhaustiveGenerator still
// gets deterministic, reproducible enumeration.
//
// Check always reports SAT regardless of the constraint set (§9 Open
// Question 2) — this is deliberately unsound as a decision procedure
// and is safe only when paired with Pick over an empty or
// already-believed-satisfiable constraint set. Callers that need a real
// UNSAT answer must use a real Solver (z3solver.Solver); TrivialSolver
// exists for settings where no SMT backend is available and arbitrary
// (not necessarily constraint-respecting) witnesses suffice.
type TrivialSolver struct {
	Gen   Generator
	Bound int // 0 means no explicit bound: GenInteger gets nil, which the Generators here bound at defaultIntegerBound (64).
}

func NewTrivialSolver(gen Generator, bound int) *TrivialSolver {
	return &TrivialSolver{Gen: gen, Bound: bound}
}

func (s *TrivialSolver) Check(ctx context.Context, constraints []Expr, scopes int) (SATResult, int, error) {
	return SAT, scopes, nil
}

func (s *TrivialSolver) Pick(ctx context.Context, constraints []Expr, scopes int, vars map[Ref]Type, bound *int, minimal bool) (SolutionIterator, error) {
	assignment := make(map[Ref]Value, len(vars))
	for ref, t := range vars {
		assignment[ref] = s.genValue(t)
	}
	return &trivialIterator{sol: &Solution{Assignment: assignment}}, nil
}

func (s *TrivialSolver) genValue(t Type) Value {
	switch t.Kind {
	case BoolType:
		return BooleanValue{B: s.Gen.GenBool()}
	case CustomTypeKind:
		// Opaque types have no intrinsic range; an arbitrary tag
		// integer stands for "some value of this type", matching §4.8's
		// total-projection-to-Integer contract at the solver boundary.
		return CustomValue{Tag: int64(s.Gen.GenInteger(nil)), CustomType: t}
	case MapTypeKind:
		// A map reference denotes a live entry in the caller's map heap;
		// the Trivial Solver owns no heap to allocate one into, so a
		// map-typed var here would mean a caller asked it to invent a
		// map out of nothing. That never happens in this engine — every
		// map-typed Ref reaching Pick's vars is already backed by a heap
		// entry before solve_and_concretize runs.
		assert(false, "trivial solver asked to pick a map-typed value for %s", t)
		return nil
	default:
		b := s.Bound
		var bound *int
		if b > 0 {
			bound = &b
		}
		return NewInteger(int64(s.Gen.GenInteger(bound)))
	}
}

// trivialIterator yields exactly one Solution, then exhausts — the
// Trivial Solver makes no enumeration guarantee beyond "arbitrary
// values", per §4.9.
type trivialIterator struct {
	sol  *Solution
	done bool
}

func (it *trivialIterator) Next(ctx context.Context) (*Solution, error) {
	if it.done {
		return nil, nil
	}
	it.done = true
	return it.sol, nil
}

func (it *trivialIterator) Close() error { return nil }
