package ivsym

import (
	"context"
	"time"
)

// Manager is C7, the Constraint Manager: it drives check_sat and
// solve_and_concretize over a Memory/ConstraintStore pair, the engine's
// only caller of the Solver Facade.
type Manager struct {
	Solver Solver
	Eval   *Evaluator
	Scopes int
	Stats  Stats
}

func NewManager(solver Solver, eval *Evaluator) *Manager {
	return &Manager{Solver: solver, Eval: eval}
}

// buildConstraintSet implements §4.7's "build the current constraint set
// (logical constraints ∪ instance constraints derived from the current
// map cache ∪ per-name constraints in scope)": the logical list already
// has every fired name-axiom and applied guarded-map constraint folded
// into it by ExtendLogical (both `evalVar` and `applyPoint` call it
// directly), so the only thing left to re-derive here is the map cache
// itself — one equality fact per materialized `(ref, args) -> val` pair,
// so the solver sees the current selections even if their defining
// constraint never happened to mention that exact tuple.
func buildConstraintSet(mem *Memory, cs *ConstraintStore) []Expr {
	out := append([]Expr(nil), cs.LogicalConstraints()...)
	for ref, inst := range mem.mapHeapSnapshot() {
		for u := inst.head; u != nil; u = u.next {
			sel := NewMapSelect(Pos{}, &RefExpr{Ref: ref, T: inst.MapType}, u.args)
			out = append(out, NewBinary(Pos{}, OpEq, sel, u.val))
		}
	}
	return out
}

// CheckSat implements §4.7 check_sat: if there's no pending work, it's a
// no-op. Otherwise it calls the solver; UNSAT (or a timed-out Unknown,
// per §5's conservative policy) raises Unreachable at pos. On SAT, the
// dirty flag clears and one queued point is applied and the whole check
// repeats, since applying a point's constraints may enqueue more work or
// dirty the store again.
func (mgr *Manager) CheckSat(ctx context.Context, mem *Memory, cs *ConstraintStore, pos Pos) (*Memory, *outcome) {
	for cs.HasWork() {
		constraints := buildConstraintSet(mem, cs)
		start := time.Now()
		result, newScopes, err := mgr.Solver.Check(ctx, constraints, mgr.Scopes)
		mgr.Stats.recordSolve(time.Since(start))
		if err != nil {
			return mem, unsupportedAt(pos, "solver check failed: "+err.Error())
		}
		mgr.Scopes = newScopes
		if result == UNSAT || result == Unknown {
			return mem, unreachableAt(pos)
		}
		cs.ClearChanged()
		if p, ok := cs.Dequeue(); ok {
			var o *outcome
			mem, o = mgr.applyPoint(mem, cs, p)
			if o != nil {
				return mem, o
			}
		}
	}
	return mem, nil
}

// applyPoint implements §4.4's "guarded application": unguarded
// constraints are evaluated at args and assumed unconditionally; guarded
// constraints are visited in least-used-first order (ties broken by the
// Generator) and each is nondeterministically enabled or disabled.
func (mgr *Manager) applyPoint(mem *Memory, cs *ConstraintStore, p Point) (*Memory, *outcome) {
	pcs := cs.ConstraintsFor(p.MapRef)
	var guarded []int
	for i, pc := range pcs {
		if pc.isUnguarded() {
			body := substituteFormals(pc.Body, pc.Formals, p.Args)
			var bodyThunk Expr
			var o *outcome
			mem, bodyThunk, o = mgr.Eval.Evaluate(mem, cs, body)
			if o != nil {
				return mem, o
			}
			if o := cs.ExtendLogical(bodyThunk); o != nil {
				return mem, o
			}
			continue
		}
		guarded = append(guarded, i)
	}

	remaining := append([]int(nil), guarded...)
	for len(remaining) > 0 {
		idx := cs.LeastUsedCase(p.MapRef, remaining, mgr.Eval.Gen)
		pc := pcs[idx]
		guard := substituteFormals(pc.Guard, pc.Formals, p.Args)
		var guardThunk Expr
		var o *outcome
		mem, guardThunk, o = mgr.Eval.Evaluate(mem, cs, guard)
		if o != nil {
			return mem, o
		}
		if mgr.Eval.Gen.GenBool() {
			if o := cs.ExtendLogical(guardThunk); o != nil {
				return mem, o
			}
			body := substituteFormals(pc.Body, pc.Formals, p.Args)
			var bodyThunk Expr
			mem, bodyThunk, o = mgr.Eval.Evaluate(mem, cs, body)
			if o != nil {
				return mem, o
			}
			if o := cs.ExtendLogical(bodyThunk); o != nil {
				return mem, o
			}
		} else {
			negated := NewUnary(guard.Position(), OpNot, guardThunk)
			if o := cs.ExtendLogical(negated); o != nil {
				return mem, o
			}
		}
		for i, r := range remaining {
			if r == idx {
				remaining = append(remaining[:i], remaining[i+1:]...)
				break
			}
		}
	}
	return mem, nil
}

// substituteFormals replaces each formal's name with its corresponding
// actual throughout e — the "instantiate at args" step both unguarded
// and guarded application need.
func substituteFormals(e Expr, formals []Binder, args []Expr) Expr {
	for i, f := range formals {
		if i < len(args) {
			e = substituteVar(e, f.Name, args[i])
		}
	}
	return e
}

// collectAllRefs gathers every Ref still reachable from the visible store
// (mem.CollectRefs) together with every Ref mentioned only inside an
// already-fired logical constraint — e.g. a quantifier counterexample
// witness that evalQuant deliberately forgets from every region via
// ForgetVar before asserting its negation. Without the latter, a Ref live
// only in cs.LogicalConstraints() would never reach the Solver Facade.
func collectAllRefs(mem *Memory, cs *ConstraintStore) map[Ref]Type {
	out := mem.CollectRefs()
	for _, c := range cs.LogicalConstraints() {
		WalkExpr(c, func(n Expr) Expr {
			if r, ok := n.(*RefExpr); ok {
				if _, ok := out[r.Ref]; !ok {
					out[r.Ref] = r.T
				}
			}
			return n
		})
	}
	return out
}

// SolveAndConcretize implements §4.7 solve_and_concretize: check_sat,
// then request a model, merge it into memLogical, and re-evaluate every
// visible store entry and map-constraint body so logical Refs resolve to
// concrete values (P5: round-trip concretization).
//
// vars is merged on top of every Ref the store and constraint set still
// reference (collectAllRefs) rather than used on its own: every caller in
// this engine passes vars as nil, and a solve_and_concretize that only
// asked the Solver Facade to assign the refs its caller already happened
// to know about would leave the rest of the visible store symbolic.
func (mgr *Manager) SolveAndConcretize(ctx context.Context, mem *Memory, cs *ConstraintStore, pos Pos, vars map[Ref]Type, bound *int) (*Memory, *outcome) {
	mem, o := mgr.CheckSat(ctx, mem, cs, pos)
	if o != nil {
		return mem, o
	}
	constraints := buildConstraintSet(mem, cs)
	allVars := collectAllRefs(mem, cs)
	for ref, t := range vars {
		allVars[ref] = t
	}
	it, err := mgr.Solver.Pick(ctx, constraints, mgr.Scopes, allVars, bound, false)
	if err != nil {
		return mem, unsupportedAt(pos, "solver pick failed: "+err.Error())
	}
	defer it.Close()
	sol, err := it.Next(ctx)
	if err != nil {
		return mem, unsupportedAt(pos, "solver pick failed: "+err.Error())
	}
	if sol == nil {
		return mem, unreachableAt(pos)
	}
	for ref, v := range sol.Assignment {
		mem = mem.SetLogical(ref, v)
	}
	return mgr.reconcretize(mem, cs), nil
}

// reconcretize re-evaluates every name binding, every cached map point and
// every map constraint's guard and body through concretizeExpr, which
// rewrites `RefExpr`s with a known logical solution into literals — it
// never calls back into Evaluate (the store is meant to settle, not
// allocate further fresh Refs at this point).
func (mgr *Manager) reconcretize(mem *Memory, cs *ConstraintStore) *Memory {
	mem = reconcretizeRegion(mem, Locals)
	mem = reconcretizeRegion(mem, Globals)
	mem = reconcretizeRegion(mem, Old)
	mem = reconcretizeRegion(mem, Constants)
	mem = reconcretizeMaps(mem)
	for r, pcs := range cs.mapConstraints {
		out := make([]*ParametricConstraint, len(pcs))
		for i, pc := range pcs {
			out[i] = &ParametricConstraint{Formals: pc.Formals, Guard: concretizeExpr(mem, pc.Guard), Body: concretizeExpr(mem, pc.Body)}
		}
		cs.mapConstraints[r] = out
	}
	return mem
}

func reconcretizeRegion(mem *Memory, region Region) *Memory {
	rm := mem.regionMap(region)
	itr := rm.Iterator()
	for !itr.Done() {
		name, e, _ := itr.Next()
		rm = rm.Set(name, concretizeExpr(mem, e))
	}
	return mem.withRegion(region, rm)
}

func reconcretizeMaps(mem *Memory) *Memory {
	clone := mem.Clone()
	itr := clone.mapHeap.Iterator()
	nm := clone.mapHeap
	for !itr.Done() {
		ref, inst, _ := itr.Next()
		nm = nm.Set(ref, inst.mapValues(func(e Expr) Expr { return concretizeExpr(mem, e) }))
	}
	clone.mapHeap = nm
	return clone
}

// concretizeExpr rewrites every RefExpr with a known logical solution
// into a LiteralExpr, leaving anything else (including Refs the solver
// never assigned, e.g. ones only relevant to an infeasible branch) as-is.
func concretizeExpr(mem *Memory, e Expr) Expr {
	return WalkExpr(e, func(n Expr) Expr {
		r, ok := n.(*RefExpr)
		if !ok {
			return n
		}
		if v, ok := mem.Logical(r.Ref); ok {
			return Literal(r.Pos, v)
		}
		return n
	})
}
