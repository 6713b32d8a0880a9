package ivsym

import "context"

// ExecProcedure is C6, the Procedure Engine: the 7-step call flow from
// §4.6. callerMem is the memory exactly as it stood before the call, kept
// around so the final step can restore the caller's own local scope and
// modified-set rather than leaking the callee's.
//
// isEntry distinguishes the program's entry procedure from an ordinary
// `call` statement: the entry procedure's requires are assumed (the
// caller is the harness itself, free to pick any satisfying input), but a
// real call statement must assert them — a caller that violates a
// callee's precondition fails with AssertionViolated(kind=Precondition)
// rather than quietly pruning the branch as unreachable.
func (ex *Executor) ExecProcedure(ctx context.Context, mem *Memory, cs *ConstraintStore, proc *Procedure, impl *ImplementationBody, args []Expr, isEntry bool) (*Memory, []Expr, *outcome) {
	callerMem := mem

	// Step 1: save Globals into Old, clear the modified-set.
	mem = mem.SnapshotGlobalsToOld()
	mem = mem.ClearModified()

	// Step 2: install formals as a fresh local scope, assign actuals.
	mem = mem.ClearLocals()
	for i, f := range proc.Formals {
		if i < len(args) {
			mem = mem.SetVar(f.Name, ScopeLocal, args[i])
		}
	}

	// Step 3: register where-clauses of formals and locals into
	// name_constraints[Locals]. Formals are already bound to their
	// actuals as of step 2 (so the cache-miss-triggered assumption
	// evalVar fires for an ordinary local read never happens for them);
	// their where-clause is assumed directly here instead, substituting
	// the actual for the formal's name. Locals have no value yet, so
	// registering is enough — their first read allocates a fresh Ref and
	// fires this constraint exactly the way any other name constraint
	// does.
	for i, f := range proc.Formals {
		if f.Where == nil || i >= len(args) {
			continue
		}
		assumed := substituteVar(f.Where, f.Name, args[i])
		var val Expr
		var o *outcome
		mem, val, o = ex.Eval.Evaluate(mem, cs, assumed)
		if o != nil {
			return mem, nil, o
		}
		if o := cs.ExtendLogical(val); o != nil {
			return mem, nil, o
		}
	}
	for _, l := range impl.Locals {
		if l.Where != nil {
			cs.ExtendName(Locals, l.Where)
		}
	}

	// Step 4: at the entry procedure, assume requires unconditionally; at
	// a real call site, assert them through the same nondeterministic
	// assume/fail split execPredicate uses for ordinary assertions.
	for _, req := range proc.Requires {
		body := req.Expr
		for i, f := range proc.Formals {
			if i < len(args) {
				body = substituteVar(body, f.Name, args[i])
			}
		}
		if isEntry {
			var val Expr
			var o *outcome
			mem, val, o = ex.Eval.Evaluate(mem, cs, body)
			if o != nil {
				return mem, nil, o
			}
			if o := cs.ExtendLogical(val); o != nil {
				return mem, nil, o
			}
			continue
		}
		stmt := PredicateStmt{Clause: Clause{Expr: body, Kind: req.Kind, DefinedAt: req.DefinedAt, Free: false}}
		var o *outcome
		mem, _, o = ex.execPredicate(ctx, mem, cs, stmt)
		if o != nil {
			return mem, nil, o
		}
	}

	// Step 5: execute the block graph until Return.
	jumpCounts := map[string]int{}
	var exitPos Pos
	var o *outcome
	mem, exitPos, o = ex.ExecBlocks(ctx, mem, cs, impl.Blocks, impl.Entry, jumpCounts)
	if o != nil {
		return mem, nil, o
	}

	// Step 6: assert ensures at the exit.
	for _, ens := range proc.Ensures {
		var val Expr
		mem, val, o = ex.Eval.Evaluate(mem, cs, ens.Expr)
		if o != nil {
			return mem, nil, o
		}
		if v, ok := AsLiteral(val); ok {
			if v.(BooleanValue).B {
				continue
			}
			return mem, nil, assertionViolated(ens.Expr, ens.Kind, ens.DefinedAt, exitPos)
		}
		if ex.Eval.Gen.GenBool() {
			if o := cs.ExtendLogical(val); o != nil {
				return mem, nil, o
			}
			continue
		}
		negated := NewUnary(exitPos, OpNot, val)
		if o := cs.ExtendLogical(negated); o != nil {
			return mem, nil, o
		}
		mem, o = ex.Mgr.SolveAndConcretize(ctx, mem, cs, exitPos, nil, nil)
		if o != nil {
			return mem, nil, o
		}
		return mem, nil, assertionViolated(ens.Expr, ens.Kind, ens.DefinedAt, exitPos).withSnapshot(mem)
	}

	// Step 7: read out return formals, pop the caller's local scope and
	// modified-set back, restoring Old but merging clean-olds.
	results := make([]Expr, len(proc.Returns))
	for i, r := range proc.Returns {
		if e, _, ok := mem.LookupVar(r.Name); ok {
			results[i] = e
		} else {
			results[i] = &RefExpr{Ref: mem.FreshLogical(), T: r.Type}
		}
	}

	popped := mem.MergeCleanOld(callerMem).Clone()
	popped.locals = callerMem.locals
	popped.modified = callerMem.modified
	return popped, results, nil
}
