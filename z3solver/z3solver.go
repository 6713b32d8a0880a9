// Package z3solver implements the Solver Facade (§4.8) over
// github.com/aclements/go-z3/z3. It is the production backend; the root
// package's TrivialSolver (trivial.go) is the fallback for settings
// without a real SMT install.
package z3solver

import (
	"context"
	"fmt"

	"github.com/aclements/go-z3/z3"

	ivsym "github.com/ivsym/ivsym"
)

var _ ivsym.Solver = (*Solver)(nil)

// Solver wraps one long-lived z3.Context and z3.Solver. Grounded on the
// teacher's z3.Solver, which also owns a single Context for its whole
// lifetime — but built over the aclements/go-z3 binding's typed Value
// wrappers (z3.Int/z3.Bool/z3.Uninterpreted/z3.Array) rather than the
// teacher's raw cgo calls into z3.h, the way the pack's own
// go-z3 consumers (Slava0135-gobber, borzacchiello-gosmt) use it.
type Solver struct {
	ctx    *z3.Context
	solver *z3.Solver

	customSorts map[string]*customSort // keyed by Type.Name
	mapSorts    map[string]*mapSort    // keyed by Type.String()
}

// customSort pairs an opaque type's uninterpreted sort with the
// injective projection function to Int that §4.8 requires ("a total
// projection to Integer, making each custom value denotable by an
// integer tag").
type customSort struct {
	sort z3.Sort
	proj z3.FuncDecl
}

// mapSort carries the array sort backing a map type, plus the tuple
// constructor needed to combine multiple selection arguments into the
// array's single index sort ("tuple-indexed keys for multi-argument
// maps", §4.8). ctor is nil when the map has exactly one domain type,
// since no tupling is needed.
type mapSort struct {
	array  z3.Sort
	domain z3.Sort
	ctor   z3.FuncDecl // nil if len(Domain) == 1
	rng    z3.Sort
}

func NewSolver() *Solver {
	cfg := z3.NewContextConfig()
	ctx := z3.NewContext(cfg)
	return &Solver{
		ctx:         ctx,
		solver:      z3.NewSolver(ctx),
		customSorts: map[string]*customSort{},
		mapSorts:    map[string]*mapSort{},
	}
}

// Close releases nothing explicit beyond what the context's finalizer
// already handles; kept so callers can treat Solver as a Closer the way
// the teacher's z3.Solver.Close is used in cmd/glee/main.go.
func (s *Solver) Close() error { return nil }

// Check implements the Solver Facade's check (§4.8). Each call resets
// the underlying solver and reasserts the full constraint set from
// scratch rather than tracking incremental push/pop state across calls
// — simpler than matching the teacher's own incremental scope counting,
// and correct since the Constraint Manager always passes the complete
// current constraint set (buildConstraintSet), never a delta.
func (s *Solver) Check(ctx context.Context, constraints []ivsym.Expr, scopes int) (ivsym.SATResult, int, error) {
	s.solver.Reset()
	cache := newConvCache()
	for _, c := range constraints {
		b, err := s.convBool(c, cache)
		if err != nil {
			return ivsym.Unknown, scopes, err
		}
		s.solver.Assert(b)
	}
	sat, err := s.solver.Check()
	if err != nil {
		return ivsym.Unknown, scopes, err
	}
	if !sat {
		return ivsym.UNSAT, scopes, nil
	}
	return ivsym.SAT, scopes, nil
}

// Pick implements the Solver Facade's pick (§4.8/§6): the returned
// iterator's successive Next calls each exclude every model already
// returned, via the blocking-clause construction below.
func (s *Solver) Pick(ctx context.Context, constraints []ivsym.Expr, scopes int, vars map[ivsym.Ref]ivsym.Type, bound *int, minimal bool) (ivsym.SolutionIterator, error) {
	s.solver.Reset()
	cache := newConvCache()
	for _, c := range constraints {
		b, err := s.convBool(c, cache)
		if err != nil {
			return nil, err
		}
		s.solver.Assert(b)
	}
	// Register a const for every requested var up front, even ones the
	// constraint set never mentions, so the model still reports a value
	// for an otherwise-unconstrained return formal.
	for ref, t := range vars {
		if _, err := s.refValue(ref, t, cache); err != nil {
			return nil, err
		}
	}
	return &solutionIterator{s: s, cache: cache, vars: vars}, nil
}

type solutionIterator struct {
	s     *Solver
	cache *convCache
	vars  map[ivsym.Ref]ivsym.Type
	done  bool
}

func (it *solutionIterator) Next(ctx context.Context) (*ivsym.Solution, error) {
	if it.done {
		return nil, nil
	}
	sat, err := it.s.solver.Check()
	if err != nil {
		return nil, err
	}
	if !sat {
		it.done = true
		return nil, nil
	}
	model := it.s.solver.Model()
	assignment, facts, err := it.s.evalModel(model, it.vars, it.cache)
	if err != nil {
		return nil, err
	}
	if len(facts) == 0 {
		// Nothing to distinguish a next model from this one by — the
		// caller asked for no vars, or only map-typed ones, neither of
		// which Pick can usefully enumerate over.
		it.done = true
	} else {
		neg := facts[0].Not()
		for _, f := range facts[1:] {
			neg = neg.Or(f.Not())
		}
		it.s.solver.Assert(neg)
	}
	return &ivsym.Solution{Assignment: assignment}, nil
}

func (it *solutionIterator) Close() error { return nil }

// evalModel reads every requested var out of model, grouping opaque
// (custom) refs by their model-assigned projection tag so the blocking
// clause can encode the §4.8 equality/disequality-class facts exactly:
// within a class, chained equalities between successive refs; between
// distinct classes, a disequality between one representative of each.
func (s *Solver) evalModel(model *z3.Model, vars map[ivsym.Ref]ivsym.Type, cache *convCache) (map[ivsym.Ref]ivsym.Value, []z3.Bool, error) {
	assignment := make(map[ivsym.Ref]ivsym.Value, len(vars))
	var facts []z3.Bool

	type customEntry struct {
		ref ivsym.Ref
		typ ivsym.Type
		con z3.Uninterpreted
		tag int64
	}
	byType := map[string][]customEntry{}

	for ref, t := range vars {
		switch t.Kind {
		case ivsym.BoolType:
			con, err := s.refValue(ref, t, cache)
			if err != nil {
				return nil, nil, err
			}
			b := model.Eval(con, true).(z3.Bool)
			bv, ok := b.AsBool()
			if !ok {
				return nil, nil, fmt.Errorf("z3solver: model left ref %d unassigned", ref)
			}
			assignment[ref] = ivsym.BooleanValue{B: bv}
			facts = append(facts, con.(z3.Bool).Eq(b))
		case ivsym.IntType:
			con, err := s.refValue(ref, t, cache)
			if err != nil {
				return nil, nil, err
			}
			iv := model.Eval(con, true).(z3.Int)
			big, ok := iv.AsBigInt()
			if !ok {
				return nil, nil, fmt.Errorf("z3solver: model left ref %d unassigned", ref)
			}
			assignment[ref] = ivsym.NewBigInteger(big)
			facts = append(facts, con.(z3.Int).Eq(iv))
		case ivsym.CustomTypeKind:
			cs := s.customSortFor(t)
			con, err := s.refValue(ref, t, cache)
			if err != nil {
				return nil, nil, err
			}
			u := con.(z3.Uninterpreted)
			projVal := model.Eval(cs.proj.Apply(u), true).(z3.Int)
			tag, ok := projVal.AsInt64()
			if !ok {
				return nil, nil, fmt.Errorf("z3solver: model left ref %d unassigned", ref)
			}
			byType[t.Name] = append(byType[t.Name], customEntry{ref: ref, typ: t, con: u, tag: tag})
		case ivsym.MapTypeKind:
			// A map-typed var names a heap entry the engine already
			// owns; Pick has no business inventing map contents, only
			// scalar witnesses.
			return nil, nil, fmt.Errorf("z3solver: cannot pick a map-typed value for ref %d", ref)
		}
	}

	for _, entries := range byType {
		classes := map[int64][]customEntry{}
		for _, e := range entries {
			classes[e.tag] = append(classes[e.tag], e)
			assignment[e.ref] = ivsym.CustomValue{Tag: e.tag, CustomType: e.typ}
		}
		var reps []customEntry
		for _, class := range classes {
			reps = append(reps, class[0])
			for i := 1; i < len(class); i++ {
				facts = append(facts, class[i-1].con.Eq(class[i].con))
			}
		}
		for i := 0; i < len(reps); i++ {
			for j := i + 1; j < len(reps); j++ {
				facts = append(facts, reps[i].con.Eq(reps[j].con).Not())
			}
		}
	}

	return assignment, facts, nil
}

// convBool translates e and asserts it is a z3.Bool, the shape every
// top-level constraint in the Solver Facade's input must have.
func (s *Solver) convBool(e ivsym.Expr, cache *convCache) (z3.Bool, error) {
	v, err := s.conv(e, cache)
	if err != nil {
		return z3.Bool{}, err
	}
	b, ok := v.(z3.Bool)
	if !ok {
		return z3.Bool{}, fmt.Errorf("z3solver: constraint %s is not boolean", e)
	}
	return b, nil
}
