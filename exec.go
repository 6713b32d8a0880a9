package ivsym

import "context"

// Executor is C5, the Statement Executor: it walks a procedure's basic
// block graph statement by statement, calling into the Evaluator for
// expressions and the Constraint Manager after every statement, per
// §4.5's "evaluate → mutate memory/constraints → check_sat" ordering
// (§5 "Ordering").
type Executor struct {
	Prog *Program
	Eval *Evaluator
	Mgr  *Manager

	// Coverage accumulates block-label visit counts across the whole
	// run — the supplemented TestCase.Coverage feature (SPEC_FULL.md),
	// grounded on the teacher's own block-visit bookkeeping in
	// executor.go used for its test fixtures.
	Coverage map[string]int
}

func NewExecutor(prog *Program, eval *Evaluator, mgr *Manager) *Executor {
	return &Executor{Prog: prog, Eval: eval, Mgr: mgr, Coverage: map[string]int{}}
}

// ExecBlocks runs the block graph starting at entry until a Return (a
// block with no successors) or a failure. jumpCounts is scoped to one
// procedure activation, matching the label-uniqueness-within-a-procedure
// assumption the block graph is built under (§4.10).
func (ex *Executor) ExecBlocks(ctx context.Context, mem *Memory, cs *ConstraintStore, blocks map[string]*BasicBlock, entry string, jumpCounts map[string]int) (*Memory, Pos, *outcome) {
	label := entry
	var lastPos Pos
	for {
		block, ok := blocks[label]
		if !ok {
			return mem, lastPos, unsupportedAt(lastPos, "unknown block label "+label)
		}
		ex.Coverage[label]++

		for _, stmt := range block.Stmts {
			var o *outcome
			mem, lastPos, o = ex.execStmt(ctx, mem, cs, stmt)
			if o != nil {
				return mem, lastPos, o
			}
			mem, o = ex.Mgr.CheckSat(ctx, mem, cs, lastPos)
			if o != nil {
				return mem, lastPos, o
			}
		}

		if len(block.Succs) == 0 {
			return mem, lastPos, nil
		}
		label = ex.selectSuccessor(block.Succs, jumpCounts)
	}
}

// selectSuccessor implements §4.5's "Goto selection": sort successors by
// ascending jump-count (least-visited first), ask the Generator for an
// index, increment the chosen label's count.
func (ex *Executor) selectSuccessor(succs []string, jumpCounts map[string]int) string {
	ordered := append([]string(nil), succs...)
	sortByJumpCount(ordered, jumpCounts)
	idx := ex.Eval.Gen.GenIndex(len(ordered))
	chosen := ordered[idx]
	jumpCounts[chosen]++
	return chosen
}

// sortByJumpCount is a small stable insertion sort — the successor lists
// here are tiny (basic blocks rarely branch more than a handful of
// ways), so there's no reason to reach for sort.Slice's overhead.
func sortByJumpCount(labels []string, counts map[string]int) {
	for i := 1; i < len(labels); i++ {
		j := i
		for j > 0 && counts[labels[j-1]] > counts[labels[j]] {
			labels[j-1], labels[j] = labels[j], labels[j-1]
			j--
		}
	}
}

func (ex *Executor) execStmt(ctx context.Context, mem *Memory, cs *ConstraintStore, stmt Stmt) (*Memory, Pos, *outcome) {
	switch s := stmt.(type) {
	case PredicateStmt:
		return ex.execPredicate(ctx, mem, cs, s)
	case HavocStmt:
		return ex.execHavoc(mem, s)
	case AssignStmt:
		return ex.execAssign(mem, cs, s)
	case CallStmt:
		return ex.execCall(ctx, mem, cs, s)
	case CallForallStmt:
		return ex.execCallForall(mem, s)
	}
	return mem, Pos{}, unsupportedAt(Pos{}, "unknown statement kind")
}

// execPredicate implements §4.5's Predicate statement: a `free`
// (assume) clause is assumed unconditionally. Otherwise, if the
// evaluated clause is literal True, execution proceeds; literal False
// fails with an assertion violation; anything symbolic is resolved by a
// nondeterministic pick between assuming it and continuing, or assuming
// its negation and failing (after a solve_and_concretize, so the failure
// carries a concrete witness, per §7).
func (ex *Executor) execPredicate(ctx context.Context, mem *Memory, cs *ConstraintStore, s PredicateStmt) (*Memory, Pos, *outcome) {
	pos := s.Clause.DefinedAt
	mem, val, o := ex.Eval.Evaluate(mem, cs, s.Clause.Expr)
	if o != nil {
		return mem, pos, o
	}

	if s.Clause.Free {
		if o := cs.ExtendLogical(val); o != nil {
			return mem, pos, o
		}
		return mem, pos, nil
	}

	if v, ok := AsLiteral(val); ok {
		b := v.(BooleanValue)
		if b.B {
			return mem, pos, nil
		}
		return mem, pos, assertionViolated(s.Clause.Expr, s.Clause.Kind, s.Clause.DefinedAt, pos)
	}

	if ex.Eval.Gen.GenBool() {
		if o := cs.ExtendLogical(val); o != nil {
			return mem, pos, o
		}
		return mem, pos, nil
	}

	negated := NewUnary(pos, OpNot, val)
	if o := cs.ExtendLogical(negated); o != nil {
		return mem, pos, o
	}
	mem, o = ex.Mgr.SolveAndConcretize(ctx, mem, cs, pos, nil, nil)
	if o != nil {
		return mem, pos, o
	}
	return mem, pos, assertionViolated(s.Clause.Expr, s.Clause.Kind, s.Clause.DefinedAt, pos).withSnapshot(mem)
}

// execHavoc implements §4.5 Havoc: forget bindings (next read
// re-allocates fresh) and mark as modified.
func (ex *Executor) execHavoc(mem *Memory, s HavocStmt) (*Memory, Pos, *outcome) {
	for _, name := range s.Names {
		scope, ok := ex.Eval.Types.ScopeOf(name)
		if !ok {
			return mem, s.Pos, unsupportedAt(s.Pos, "havoc of unbound name "+name)
		}
		mem = mem.ForgetVar(name, scope)
	}
	return mem, s.Pos, nil
}

// execAssign implements §4.5 Assign: map-selection left-hand sides are
// normalized into a MapUpdateExpr on the right (so `m[i] := v` becomes
// `m := m[i := v]`), then every right-hand side is evaluated and bound,
// marking each target modified.
func (ex *Executor) execAssign(mem *Memory, cs *ConstraintStore, s AssignStmt) (*Memory, Pos, *outcome) {
	rhs := make([]Expr, len(s.RHS))
	for i, lv := range s.LHS {
		r := s.RHS[i]
		if lv.Args != nil {
			r = &MapUpdateExpr{Pos: s.Pos, Map: &VarExpr{Pos: s.Pos, Name: lv.Name}, Args: lv.Args, New: r}
		}
		rhs[i] = r
	}
	values := make([]Expr, len(rhs))
	for i, r := range rhs {
		var o *outcome
		mem, values[i], o = ex.Eval.Evaluate(mem, cs, r)
		if o != nil {
			return mem, s.Pos, o
		}
	}
	for i, lv := range s.LHS {
		scope, ok := ex.Eval.Types.ScopeOf(lv.Name)
		if !ok {
			return mem, s.Pos, unsupportedAt(s.Pos, "assignment to unbound name "+lv.Name)
		}
		mem = mem.SetVar(lv.Name, scope, values[i])
	}
	return mem, s.Pos, nil
}

// execCall implements §4.5 Call: look up the procedure's implementations,
// pick one via the Generator, execute it, and push a stack frame on
// failure.
func (ex *Executor) execCall(ctx context.Context, mem *Memory, cs *ConstraintStore, s CallStmt) (*Memory, Pos, *outcome) {
	proc, ok := ex.Prog.Procedures[s.Proc]
	if !ok {
		return mem, s.Pos, unsupportedAt(s.Pos, "unknown procedure "+s.Proc)
	}
	impl := proc.Implementations[ex.Eval.Gen.GenIndex(len(proc.Implementations))]

	args := make([]Expr, len(s.Args))
	for i, a := range s.Args {
		var o *outcome
		mem, args[i], o = ex.Eval.Evaluate(mem, cs, a)
		if o != nil {
			return mem, s.Pos, o
		}
	}

	mem, results, o := ex.ExecProcedure(ctx, mem, cs, proc, impl, args, false)
	if o != nil {
		return mem, s.Pos, o.pushFrame(s.Pos, proc.Name)
	}
	for i, name := range s.Results {
		if i >= len(results) {
			break
		}
		scope, ok := ex.Eval.Types.ScopeOf(name)
		if !ok {
			return mem, s.Pos, unsupportedAt(s.Pos, "call result to unbound name "+name)
		}
		mem = mem.SetVar(name, scope, results[i])
	}
	return mem, s.Pos, nil
}

// execCallForall implements §4.5 CallForall: modeled as a no-op when no
// body is supplied to reason about, via a havoc of the procedure's
// modifies set — the dummy-definition behavior spec.md calls for.
func (ex *Executor) execCallForall(mem *Memory, s CallForallStmt) (*Memory, Pos, *outcome) {
	proc, ok := ex.Prog.Procedures[s.Proc]
	if !ok {
		return mem, s.Pos, unsupportedAt(s.Pos, "unknown procedure "+s.Proc)
	}
	for _, name := range proc.Modifies {
		scope, ok := ex.Eval.Types.ScopeOf(name)
		if !ok {
			continue
		}
		mem = mem.ForgetVar(name, scope)
	}
	return mem, s.Pos, nil
}
