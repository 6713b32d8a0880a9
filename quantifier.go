package ivsym

import "fmt"

// extractedConstraint pairs a parametric constraint with the syntactic
// map expression it must be attached to (its Ref is only known once
// that expression is evaluated, which the caller — eval.go's
// evalQuant — does after extraction finishes).
type extractedConstraint struct {
	MapExpr Expr
	PC      *ParametricConstraint
}

// ExtractMapConstraints implements §4.4's extraction contract: given a
// closed Boolean formula (a decided-True universal, binders included, so
// its bound variables become the constraints' formals), produce
// one parametric constraint per map reference it constrains. The second
// return value counts existentials skipped under Open Question 1 (§9.1),
// surfaced to the driver via TestCase.SkolemizationTODOs.
func ExtractMapConstraints(body Expr) ([]extractedConstraint, int) {
	skolemSkips = 0
	out := extract(negationPrenex(body), map[string]Type{}, trueExpr())
	return out, skolemSkips
}

// skolemSkips is reset at the start of every ExtractMapConstraints call;
// extraction is not reentrant/concurrent (§5 "single-threaded
// cooperative"), so a package-level counter is safe and avoids
// threading an extra return value through every recursive call.
var skolemSkips int

func trueExpr() Expr { return Literal(Pos{}, BooleanValue{B: true}) }

func negate(e Expr) Expr {
	if u, ok := e.(*UnaryExpr); ok && u.Op == OpNot {
		return u.X
	}
	return NewUnary(e.Position(), OpNot, e)
}

// negationPrenex pushes negations inward (De Morgan, quantifier flip,
// comparison flip) — step 1 of §4.4. Quantifiers are not moved to the
// front: each stays where it occurs, and extract descends into a
// universal wherever it finds one. Existentials are left as Exists
// nodes (never rewritten to ¬∀¬ here) so the "opaque under a universal"
// rule in step 2 can still recognize them.
func negationPrenex(e Expr) Expr {
	switch n := e.(type) {
	case *UnaryExpr:
		if n.Op != OpNot {
			return e
		}
		switch inner := n.X.(type) {
		case *UnaryExpr:
			if inner.Op == OpNot {
				return negationPrenex(inner.X)
			}
		case *BinaryExpr:
			switch inner.Op {
			case OpAnd:
				return NewBinary(n.Pos, OpOr, negationPrenex(negate(inner.X)), negationPrenex(negate(inner.Y)))
			case OpOr:
				return NewBinary(n.Pos, OpAnd, negationPrenex(negate(inner.X)), negationPrenex(negate(inner.Y)))
			case OpImplies:
				return NewBinary(n.Pos, OpAnd, negationPrenex(inner.X), negationPrenex(negate(inner.Y)))
			case OpEq:
				return NewBinary(n.Pos, OpNeq, inner.X, inner.Y)
			case OpNeq:
				return NewBinary(n.Pos, OpEq, inner.X, inner.Y)
			case OpLt:
				return NewBinary(n.Pos, OpGe, inner.X, inner.Y)
			case OpLe:
				return NewBinary(n.Pos, OpGt, inner.X, inner.Y)
			case OpGt:
				return NewBinary(n.Pos, OpLe, inner.X, inner.Y)
			case OpGe:
				return NewBinary(n.Pos, OpLt, inner.X, inner.Y)
			}
		case *QuantExpr:
			flipped := Exists
			if inner.Kind == Exists {
				flipped = Forall
			}
			return &QuantExpr{Pos: n.Pos, Kind: flipped, Vars: inner.Vars, Body: negationPrenex(negate(inner.Body))}
		}
		return e
	case *BinaryExpr:
		if n.Op == OpAnd || n.Op == OpOr {
			return NewBinary(n.Pos, n.Op, negationPrenex(n.X), negationPrenex(n.Y))
		}
		return e
	case *QuantExpr:
		return &QuantExpr{Pos: n.Pos, Kind: n.Kind, Vars: n.Vars, Body: negationPrenex(n.Body)}
	default:
		return e
	}
}

func extract(e Expr, bound map[string]Type, guard Expr) []extractedConstraint {
	switch n := e.(type) {
	case *QuantExpr:
		if n.Kind == Exists {
			// Open Question 1 (spec.md §9.1): existentials nested inside
			// a universal's extraction are left opaque.
			skolemSkips++
			return nil
		}
		inner := cloneTypeSet(bound)
		for _, v := range n.Vars {
			inner[v.Name] = v.Type
		}
		return extract(n.Body, inner, guard)
	case *BinaryExpr:
		if n.Op == OpAnd {
			out := extract(n.X, bound, guard)
			return append(out, extract(n.Y, bound, guard)...)
		}
		if n.Op == OpOr {
			out := extract(n.X, bound, NewBinary(n.Pos, OpAnd, guard, negate(n.Y)))
			return append(out, extract(n.Y, bound, NewBinary(n.Pos, OpAnd, guard, negate(n.X)))...)
		}
	}
	return extractLeaf(e, bound, guard)
}

func cloneTypeSet(m map[string]Type) map[string]Type {
	out := make(map[string]Type, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// extractLeaf implements §4.4 step 5: for each map-selection subterm
// r[arg1..argk] in the leaf, try to simplicize the arguments. If every
// map-selection in the leaf simplicizes, the leaf contributes one
// constraint per distinct map expression referenced; a leaf with even
// one non-simplicizable map-selection contributes nothing.
func extractLeaf(leaf Expr, bound map[string]Type, guard Expr) []extractedConstraint {
	var out []extractedConstraint
	seen := map[string]bool{}
	ok := true
	fresh := 0
	WalkExpr(leaf, func(n Expr) Expr {
		sel, isSel := n.(*MapSelectExpr)
		if !isSel {
			return n
		}
		key := sel.Map.String()
		if seen[key] {
			return n
		}
		seen[key] = true
		formals, sideGuard, bodyArgs, good := simplicizeArgs(sel.Args, bound, &fresh)
		if !good {
			ok = false
			return n
		}
		fullGuard := guard
		if sideGuard != nil {
			fullGuard = NewBinary(leaf.Position(), OpAnd, guard, sideGuard)
		}
		out = append(out, extractedConstraint{
			MapExpr: sel.Map,
			PC:      &ParametricConstraint{Formals: formals, Guard: fullGuard, Body: substituteSelects(leaf, sel, bodyArgs)},
		})
		return n
	})
	if !ok {
		return nil
	}
	return out
}

// substituteSelects rewrites every occurrence of sel (by identity of its
// Map sub-expression string) in leaf so its Args become newArgs —
// turning free-variable arguments and fixed-expression arguments alike
// into references to the constraint's own formals.
func substituteSelects(leaf Expr, sel *MapSelectExpr, newArgs []Expr) Expr {
	return WalkExpr(leaf, func(n Expr) Expr {
		if s, ok := n.(*MapSelectExpr); ok && s.Map.String() == sel.Map.String() {
			return &MapSelectExpr{Pos: s.Pos, Map: s.Map, Args: newArgs}
		}
		return n
	})
}

// simplicizeArgs implements §4.4 step 5's per-argument classification.
// Each bound-variable argument becomes a formal of the same name/type.
// Each argument whose free variables are all already fixed (none from
// bound) is replaced by a fresh formal, with an equality side-guard
// `freshFormal == arg`. Any argument mixing a bound variable into a
// larger expression makes the whole leaf non-simplicizable.
func simplicizeArgs(args []Expr, bound map[string]Type, freshCounter *int) (formals []Binder, sideGuard Expr, rewritten []Expr, ok bool) {
	rewritten = make([]Expr, len(args))
	for i, a := range args {
		if v, isVar := a.(*VarExpr); isVar {
			if t, isBound := bound[v.Name]; isBound {
				formals = append(formals, Binder{Name: v.Name, Type: t})
				rewritten[i] = a
				continue
			}
		}
		free := FreeVars(a)
		mixesBound := false
		for name := range free {
			if _, isBound := bound[name]; isBound {
				mixesBound = true
				break
			}
		}
		if mixesBound {
			return nil, nil, nil, false
		}
		name := fmt.Sprintf("$fml%d", *freshCounter)
		*freshCounter++
		formals = append(formals, Binder{Name: name, Type: Type{Kind: IntType}})
		eq := NewBinary(a.Position(), OpEq, &VarExpr{Pos: a.Position(), Name: name}, a)
		if sideGuard == nil {
			sideGuard = eq
		} else {
			sideGuard = NewBinary(a.Position(), OpAnd, sideGuard, eq)
		}
		rewritten[i] = &VarExpr{Pos: a.Position(), Name: name}
	}
	return formals, sideGuard, rewritten, true
}
