package ivsym

import "context"

// ExecuteProgram is the Engine API entry point from §6:
// `execute_program(program, type_context, solver, solve_passing,
// generator, entry_point) → TestCase`. Entry formals are bound to fresh
// logical values (there is no caller to supply actuals for the test
// entry point), and the whole run goes through the ordinary Procedure
// Engine call flow so entry behaves exactly like any other call.
func ExecuteProgram(ctx context.Context, prog *Program, types TypeContext, solver Solver, solvePassing bool, gen Generator, entryPoint string) *TestCase {
	sig, ok := types.ProcedureSignature(entryPoint)
	if !ok {
		return &TestCase{Failure: unsupportedAt(Pos{}, "unknown entry point "+entryPoint)}
	}
	proc, ok := prog.Procedures[entryPoint]
	if !ok || len(proc.Implementations) == 0 {
		return &TestCase{EntrySignature: sig, Failure: unsupportedAt(Pos{}, "no implementation for "+entryPoint)}
	}

	mem := NewMemory(types)
	cs := NewConstraintStore()
	SeedGlobalConstraints(prog, cs)

	eval := NewEvaluator(prog, types, gen)
	mgr := NewManager(solver, eval)
	ex := NewExecutor(prog, eval, mgr)

	impl := proc.Implementations[gen.GenIndex(len(proc.Implementations))]

	args := make([]Expr, len(proc.Formals))
	for i, f := range proc.Formals {
		if f.Type.Kind == MapTypeKind {
			var r Ref
			mem, r = mem.FreshMapRef(f.Type)
			args[i] = &RefExpr{Ref: r, T: f.Type}
		} else {
			args[i] = &RefExpr{Ref: mem.FreshLogical(), T: f.Type}
		}
	}

	finalMem, _, failure := ex.ExecProcedure(ctx, mem, cs, proc, impl, args, true)

	if failure == nil && solvePassing {
		var o *outcome
		finalMem, o = mgr.SolveAndConcretize(ctx, finalMem, cs, Pos{}, nil, nil)
		if o != nil {
			failure = o
		}
	}

	return &TestCase{
		EntrySignature:       sig,
		FinalMemory:          finalMem,
		FinalConstraintStore: cs,
		Failure:              failure,
		Stats:                mgr.Stats,
		Coverage:             ex.Coverage,
		SkolemizationTODOs:   cs.SkolemSkips,
	}
}
