package ivsym

// Evaluator is C3, the Expression Evaluator. It is stateless itself;
// every call threads the Memory/ConstraintStore it operates on through
// its arguments and return values, the same way the teacher's
// ExecutionState methods never hold engine state beyond what's passed
// in — only Program/TypeContext/Generator are fixed for an execution.
type Evaluator struct {
	Prog  *Program
	Types TypeContext
	Gen   Generator
}

func NewEvaluator(prog *Program, types TypeContext, gen Generator) *Evaluator {
	return &Evaluator{Prog: prog, Types: types, Gen: gen}
}

// Evaluate implements §4.3's `eval(expr) → Thunk` contract: it returns
// the possibly-updated Memory, the evaluated Thunk, and a non-nil
// outcome exactly when evaluation hit a failure (Unreachable from a
// refuted assumption, or Unsupported for a construct it cannot model).
func (ev *Evaluator) Evaluate(mem *Memory, cs *ConstraintStore, e Expr) (*Memory, Expr, *outcome) {
	switch n := e.(type) {
	case *LiteralExpr:
		return mem, n, nil // P1: literal idempotence.

	case *VarExpr:
		return ev.evalVar(mem, cs, n)

	case *RefExpr:
		return mem, n, nil

	case *MapSelectExpr:
		return ev.evalMapSelect(mem, cs, n)

	case *MapUpdateExpr:
		return ev.evalMapUpdate(mem, cs, n)

	case *IfExpr:
		return ev.evalIf(mem, cs, n)

	case *UnaryExpr:
		return ev.evalUnary(mem, cs, n)

	case *BinaryExpr:
		return ev.evalBinary(mem, cs, n)

	case *QuantExpr:
		return ev.evalQuant(mem, cs, n)

	case *LambdaExpr:
		return ev.evalLambda(mem, cs, n)

	case *CallExpr:
		return ev.evalCall(mem, cs, n)
	}
	return mem, e, unsupportedAt(e.Position(), "unknown expression kind")
}

// evalVar implements §4.3 "Variables": on cache miss, allocate a fresh
// logical Ref of the declared type (a fresh empty map for map types),
// store it, install Old if this is the first read of an initial global,
// and for constants additionally assume where-clauses and uniqueness
// axioms — all driven uniformly through ExtendName/NameConstraints so
// this is the only place those axioms ever fire, naturally, on first
// touch rather than via a separate special case.
func (ev *Evaluator) evalVar(mem *Memory, cs *ConstraintStore, n *VarExpr) (*Memory, Expr, *outcome) {
	if cached, _, ok := mem.LookupVar(n.Name); ok {
		return mem, cached, nil
	}

	scope, ok := ev.Types.ScopeOf(n.Name)
	if !ok {
		return mem, n, unsupportedAt(n.Pos, "unbound name "+n.Name)
	}
	typ, ok := ev.Types.TypeOf(n.Name)
	if !ok {
		return mem, n, unsupportedAt(n.Pos, "untyped name "+n.Name)
	}

	var thunk Expr
	if typ.Kind == MapTypeKind {
		var r Ref
		mem, r = mem.FreshMapRef(typ)
		thunk = &RefExpr{Pos: n.Pos, Ref: r, T: typ}
	} else {
		r := mem.FreshLogical()
		thunk = &RefExpr{Pos: n.Pos, Ref: r, T: typ}
	}

	mem = mem.SetVar(n.Name, scope, thunk)
	if scope == ScopeGlobal {
		mem = mem.InstallOldIfAbsent(n.Name, thunk)
	}

	// Fire every standing name constraint registered for this name
	// (where-clauses, axioms, uniqueness disequalities — whatever
	// SeedGlobalConstraints/ExecProcedure's step 3 registered). The
	// substituted instance is run back through Evaluate, not just
	// appended raw: an axiom commonly mentions more than one free name
	// (a uniqueness pair, a multi-variable axiom), and any name besides
	// the one just read still needs its own fresh-Ref allocation before
	// the result is a constraint the Solver Facade can accept (§4.8: no
	// bare program variables). Evaluating a name already cached during
	// this cascade just hits the fast cache-read path, so this always
	// terminates.
	for _, axiom := range cs.NameConstraints(n.Name) {
		substituted := substituteVar(axiom, n.Name, thunk)
		var val Expr
		var o *outcome
		mem, val, o = ev.Evaluate(mem, cs, substituted)
		if o != nil {
			return mem, thunk, o
		}
		if o := cs.ExtendLogical(val); o != nil {
			return mem, thunk, o
		}
	}
	return mem, thunk, nil
}

// substituteVar replaces every free occurrence of name in e with
// replacement, without descending past a binder that shadows it.
func substituteVar(e Expr, name string, replacement Expr) Expr {
	return WalkExpr(e, func(n Expr) Expr {
		if v, ok := n.(*VarExpr); ok && v.Name == name {
			return replacement
		}
		return n
	})
}

// evalMapSelect implements §4.3 "Map selection": evaluate the map
// sub-expression to a MapReference, evaluate args eagerly, and on a
// cache miss allocate a fresh symbolic value, cache it, and enqueue the
// point so its map constraints get applied by the Constraint Manager.
func (ev *Evaluator) evalMapSelect(mem *Memory, cs *ConstraintStore, n *MapSelectExpr) (*Memory, Expr, *outcome) {
	mem, mapThunk, o := ev.Evaluate(mem, cs, n.Map)
	if o != nil {
		return mem, n, o
	}
	ref, rangeType, o := ev.resolveMapRef(mem, mapThunk)
	if o != nil {
		return mem, n, o
	}
	args := make([]Expr, len(n.Args))
	for i, a := range n.Args {
		var ao *outcome
		mem, args[i], ao = ev.Evaluate(mem, cs, a)
		if ao != nil {
			return mem, n, ao
		}
	}
	inst, _ := mem.GetMapInstance(ref)
	if v, ok := inst.Select(args); ok {
		return mem, v, nil
	}
	var thunk Expr
	if rangeType.Kind == MapTypeKind {
		var r Ref
		mem, r = mem.FreshMapRef(rangeType)
		thunk = &RefExpr{Pos: n.Pos, Ref: r, T: rangeType}
	} else {
		thunk = &RefExpr{Pos: n.Pos, Ref: mem.FreshLogical(), T: rangeType}
	}
	mem = mem.SetMapValue(ref, args, thunk)
	cs.Enqueue(ref, args)
	return mem, thunk, nil
}

// resolveMapRef pulls the Ref and declared range type out of an
// evaluated map Thunk, which is always either a RefExpr (freshly
// allocated, range unknown to the Thunk itself — looked up from the
// map's stored type) or a literal MapReferenceValue.
func (ev *Evaluator) resolveMapRef(mem *Memory, thunk Expr) (Ref, Type, *outcome) {
	if r, ok := thunk.(*RefExpr); ok {
		if inst, ok := mem.GetMapInstance(r.Ref); ok {
			return r.Ref, *inst.MapType.Range, nil
		}
		return r.Ref, *r.T.Range, nil
	}
	if v, ok := AsLiteral(thunk); ok {
		if mv, ok := v.(MapReferenceValue); ok {
			return mv.Ref, *mv.MapType.Range, nil
		}
	}
	return 0, Type{}, unsupportedAt(thunk.Position(), "map-select on non-map thunk")
}

// evalMapUpdate implements §4.3 "Map update": allocate a fresh map r'
// of the same type, store new at args in r', and attach to both r and
// r' the parametric "untouched points agree" constraint.
func (ev *Evaluator) evalMapUpdate(mem *Memory, cs *ConstraintStore, n *MapUpdateExpr) (*Memory, Expr, *outcome) {
	mem, mapThunk, o := ev.Evaluate(mem, cs, n.Map)
	if o != nil {
		return mem, n, o
	}
	ref, rangeType, o := ev.resolveMapRef(mem, mapThunk)
	if o != nil {
		return mem, n, o
	}
	args := make([]Expr, len(n.Args))
	for i, a := range n.Args {
		var ao *outcome
		mem, args[i], ao = ev.Evaluate(mem, cs, a)
		if ao != nil {
			return mem, n, ao
		}
	}
	mem, newVal, o := ev.Evaluate(mem, cs, n.New)
	if o != nil {
		return mem, n, o
	}

	var mapType Type
	if inst, ok := mem.GetMapInstance(ref); ok {
		mapType = inst.MapType
	} else {
		mapType = NewMapType(domainTypes(args, rangeType), rangeType)
	}
	var newRef Ref
	mem, newRef = mem.FreshMapRef(mapType)
	mem = mem.SetMapValue(newRef, args, newVal)

	formals := make([]Binder, len(args))
	var disjunct Expr = Literal(n.Pos, BooleanValue{B: false})
	for i := range args {
		formals[i] = Binder{Name: bvName(i), Type: domainTypeOf(mapType, i)}
		neq := NewBinary(n.Pos, OpNeq, &VarExpr{Pos: n.Pos, Name: bvName(i)}, args[i])
		if i == 0 {
			disjunct = neq
		} else {
			disjunct = NewBinary(n.Pos, OpOr, disjunct, neq)
		}
	}
	bvExprs := make([]Expr, len(formals))
	for i, f := range formals {
		bvExprs[i] = &VarExpr{Pos: n.Pos, Name: f.Name}
	}
	body := NewBinary(n.Pos, OpEq,
		NewMapSelect(n.Pos, &RefExpr{Pos: n.Pos, Ref: ref, T: mapType}, bvExprs),
		NewMapSelect(n.Pos, &RefExpr{Pos: n.Pos, Ref: newRef, T: mapType}, bvExprs))
	pc := &ParametricConstraint{Formals: formals, Guard: disjunct, Body: body}

	instOld, _ := mem.GetMapInstance(ref)
	instNew, _ := mem.GetMapInstance(newRef)
	cs.ExtendMap(ref, pc, instOld)
	cs.ExtendMap(newRef, pc, instNew)

	return mem, &RefExpr{Pos: n.Pos, Ref: newRef, T: mapType}, nil
}

func bvName(i int) string {
	names := "abcdefgh"
	if i < len(names) {
		return "$bv_" + string(names[i])
	}
	return "$bv_extra"
}

// domainTypes derives each domain slot's Type from its evaluated arg
// thunk — a RefExpr carries its own Type, a LiteralExpr's Value knows its
// Type, and anything else (a thunk that never folded) falls back to
// fallback, the map's range type, rather than assuming IntType.
func domainTypes(args []Expr, fallback Type) []Type {
	out := make([]Type, len(args))
	for i, a := range args {
		switch e := a.(type) {
		case *RefExpr:
			out[i] = e.T
		case *LiteralExpr:
			out[i] = e.Value.Type()
		default:
			out[i] = fallback
		}
	}
	return out
}

func domainTypeOf(mapType Type, i int) Type {
	if i < len(mapType.Domain) {
		return mapType.Domain[i]
	}
	return Type{Kind: IntType}
}

// evalIf implements §4.3 "If-then-else".
func (ev *Evaluator) evalIf(mem *Memory, cs *ConstraintStore, n *IfExpr) (*Memory, Expr, *outcome) {
	mem, cond, o := ev.Evaluate(mem, cs, n.Cond)
	if o != nil {
		return mem, n, o
	}
	if v, ok := AsLiteral(cond); ok {
		if b, ok := v.(BooleanValue); ok {
			if b.B {
				return ev.Evaluate(mem, cs, n.Then)
			}
			return ev.Evaluate(mem, cs, n.Else)
		}
	}
	mem, then, o := ev.Evaluate(mem, cs, n.Then)
	if o != nil {
		return mem, n, o
	}
	mem, els, o := ev.Evaluate(mem, cs, n.Else)
	if o != nil {
		return mem, n, o
	}
	return mem, &IfExpr{Pos: n.Pos, Cond: cond, Then: then, Else: els}, nil
}

func (ev *Evaluator) evalUnary(mem *Memory, cs *ConstraintStore, n *UnaryExpr) (*Memory, Expr, *outcome) {
	mem, x, o := ev.Evaluate(mem, cs, n.X)
	if o != nil {
		return mem, n, o
	}
	return mem, NewUnary(n.Pos, n.Op, x), nil
}

// evalBinary implements §4.3 "Unary/Binary", including short-circuit
// evaluation order and the division/modulo-by-zero special case (a
// fresh logical Integer rather than a failure) and map-reference
// equality unfolding to a universal.
func (ev *Evaluator) evalBinary(mem *Memory, cs *ConstraintStore, n *BinaryExpr) (*Memory, Expr, *outcome) {
	mem, x, o := ev.Evaluate(mem, cs, n.X)
	if o != nil {
		return mem, n, o
	}

	if n.Op.IsShortCircuit() {
		if v, ok := AsLiteral(x); ok {
			b := v.(BooleanValue).B
			switch n.Op {
			case OpAnd:
				if !b {
					return mem, Literal(n.Pos, BooleanValue{B: false}), nil
				}
			case OpOr:
				if b {
					return mem, Literal(n.Pos, BooleanValue{B: true}), nil
				}
			case OpImplies:
				if !b {
					return mem, Literal(n.Pos, BooleanValue{B: true}), nil
				}
			case OpExplies:
				if b {
					return mem, Literal(n.Pos, BooleanValue{B: true}), nil
				}
			}
		}
	}

	mem, y, o := ev.Evaluate(mem, cs, n.Y)
	if o != nil {
		return mem, n, o
	}

	if n.Op == OpEq || n.Op == OpNeq {
		if isMapThunk(x) && isMapThunk(y) {
			return ev.evalMapRefEquality(mem, cs, n, x, y)
		}
	}

	if n.Op == OpDiv || n.Op == OpMod {
		if yv, ok := AsLiteral(y); ok {
			if yi, ok := yv.(IntegerValue); ok && yi.N.Sign() == 0 {
				// §4.3 "Division/modulo by zero": unspecified-but-
				// deterministic, modeled as a fresh logical Integer.
				r := mem.FreshLogical()
				return mem, &RefExpr{Pos: n.Pos, Ref: r, T: Type{Kind: IntType}}, nil
			}
		}
	}

	return mem, NewBinary(n.Pos, n.Op, x, y), nil
}

func isMapThunk(e Expr) bool {
	if r, ok := e.(*RefExpr); ok {
		return r.T.Kind == MapTypeKind
	}
	if v, ok := AsLiteral(e); ok {
		_, ok := v.(MapReferenceValue)
		return ok
	}
	return false
}

func thunkMapRefAndType(e Expr) (Ref, Type) {
	if r, ok := e.(*RefExpr); ok {
		return r.Ref, r.T
	}
	v, _ := AsLiteral(e)
	mv := v.(MapReferenceValue)
	return mv.Ref, mv.MapType
}

// evalMapRefEquality implements §4.3 "Equality on map references":
// identical refs are literally equal; differing map types are literally
// unequal; otherwise unfold to a bound universal and evaluate that.
func (ev *Evaluator) evalMapRefEquality(mem *Memory, cs *ConstraintStore, n *BinaryExpr, x, y Expr) (*Memory, Expr, *outcome) {
	rx, tx := thunkMapRefAndType(x)
	ry, ty := thunkMapRefAndType(y)
	if rx == ry {
		return mem, Literal(n.Pos, BooleanValue{B: n.Op == OpEq}), nil
	}
	if !tx.Equal(ty) {
		return mem, Literal(n.Pos, BooleanValue{B: n.Op == OpNeq}), nil
	}
	formals := make([]Binder, len(tx.Domain))
	args := make([]Expr, len(tx.Domain))
	for i, d := range tx.Domain {
		formals[i] = Binder{Name: bvName(i), Type: d}
		args[i] = &VarExpr{Pos: n.Pos, Name: bvName(i)}
	}
	body := NewBinary(n.Pos, OpEq, NewMapSelect(n.Pos, x, args), NewMapSelect(n.Pos, y, args))
	forall := NewForall(n.Pos, formals, body)
	mem, result, o := ev.Evaluate(mem, cs, forall)
	if o != nil {
		return mem, n, o
	}
	if n.Op == OpNeq {
		return mem, NewUnary(n.Pos, OpNot, result), nil
	}
	return mem, result, nil
}

// evalQuant implements §4.3 "Forall"/"Exists". NewExists in ast.go keeps
// Exists as its own node; this function rewrites it to ¬∀¬ and evaluates
// that, so only Forall is handled directly.
func (ev *Evaluator) evalQuant(mem *Memory, cs *ConstraintStore, n *QuantExpr) (*Memory, Expr, *outcome) {
	if n.Kind == Exists {
		rewritten := NewUnary(n.Pos, OpNot, NewForall(n.Pos, n.Vars, NewUnary(n.Pos, OpNot, n.Body)))
		return ev.Evaluate(mem, cs, rewritten)
	}

	if ev.Gen.GenBool() {
		extracted, skipped := ExtractMapConstraints(n)
		cs.SkolemSkips += skipped
		for _, ec := range extracted {
			var mapThunk Expr
			var o *outcome
			mem, mapThunk, o = ev.Evaluate(mem, cs, ec.MapExpr)
			if o != nil {
				return mem, n, o
			}
			ref, _ := thunkMapRefAndType(mapThunk)
			inst, _ := mem.GetMapInstance(ref)
			cs.ExtendMap(ref, ec.PC, inst)
		}
		return mem, Literal(n.Pos, BooleanValue{B: true}), nil
	}

	// False branch: bind a counterexample. In a nested local scope,
	// evaluate ¬body and assume that instantiation — modeled here by
	// havocking fresh locals for the bound variables (so they read as
	// fresh logical values, standing in for the counterexample witness)
	// before evaluating the negation.
	saved := mem
	for _, v := range n.Vars {
		var r Ref
		if v.Type.Kind == MapTypeKind {
			mem, r = mem.FreshMapRef(v.Type)
		} else {
			r = mem.FreshLogical()
		}
		mem = mem.SetVar(v.Name, ScopeLocal, &RefExpr{Pos: n.Pos, Ref: r, T: v.Type})
	}
	mem, negated, o := ev.Evaluate(mem, cs, NewUnary(n.Pos, OpNot, n.Body))
	if o != nil {
		return mem, n, o
	}
	for _, v := range n.Vars {
		mem = mem.ForgetVar(v.Name, ScopeLocal)
	}
	_ = saved
	if o := cs.ExtendLogical(negated); o != nil {
		return mem, n, o
	}
	return mem, Literal(n.Pos, BooleanValue{B: false}), nil
}

// evalLambda implements §4.3 "Lambda": allocate a fresh map and
// constrain it pointwise to the body.
func (ev *Evaluator) evalLambda(mem *Memory, cs *ConstraintStore, n *LambdaExpr) (*Memory, Expr, *outcome) {
	var mapRef Ref
	mem, mapRef = mem.FreshMapRef(n.FuncType)

	args := make([]Expr, len(n.Vars))
	for i, v := range n.Vars {
		args[i] = &VarExpr{Pos: n.Pos, Name: v.Name}
	}
	body := NewBinary(n.Pos, OpEq, NewMapSelect(n.Pos, &RefExpr{Pos: n.Pos, Ref: mapRef, T: n.FuncType}, args), n.Body)
	pc := &ParametricConstraint{Formals: n.Vars, Guard: Literal(n.Pos, BooleanValue{B: true}), Body: body}
	inst, _ := mem.GetMapInstance(mapRef)
	cs.ExtendMap(mapRef, pc, inst)

	return mem, &RefExpr{Pos: n.Pos, Ref: mapRef, T: n.FuncType}, nil
}

// evalCall unfolds a non-recursive macro function in place: substitute
// evaluated actuals for formals in its body, then evaluate that.
// Recursive macros are never unfolded (§4.10); calling one is beyond
// what this engine models.
func (ev *Evaluator) evalCall(mem *Memory, cs *ConstraintStore, n *CallExpr) (*Memory, Expr, *outcome) {
	fn, ok := ev.Prog.Functions[n.Name]
	if !ok {
		return mem, n, unsupportedAt(n.Pos, "unknown function "+n.Name)
	}
	if fn.Recursive {
		return mem, n, unsupportedAt(n.Pos, "recursive function "+n.Name)
	}
	if fn.Body == nil {
		return mem, n, unsupportedAt(n.Pos, "uninterpreted function "+n.Name)
	}
	args := make([]Expr, len(n.Args))
	for i, a := range n.Args {
		var o *outcome
		mem, args[i], o = ev.Evaluate(mem, cs, a)
		if o != nil {
			return mem, n, o
		}
	}
	body := fn.Body
	for i, f := range fn.Formals {
		body = substituteVar(body, f.Name, args[i])
	}
	return ev.Evaluate(mem, cs, body)
}
