package z3solver

import (
	"fmt"
	"math/big"

	"github.com/aclements/go-z3/z3"

	ivsym "github.com/ivsym/ivsym"
)

// convCache keeps one z3 const per logical Ref for the lifetime of a
// single Check/Pick call, so repeated mentions of the same Ref inside one
// constraint set resolve to the same z3 value rather than a fresh,
// unrelated one each time. Its maps field is never filled: mapValue
// keeps no cache.
type convCache struct {
	refs map[ivsym.Ref]z3.Value
	maps map[ivsym.Ref]z3.Value
}

func newConvCache() *convCache {
	return &convCache{refs: map[ivsym.Ref]z3.Value{}, maps: map[ivsym.Ref]z3.Value{}}
}

// conv translates one engine Expr into a z3 Value. By the time an Expr
// reaches the Solver Facade it has already been evaluated (§4.3's
// Evaluate never leaves a VarExpr, QuantExpr, LambdaExpr or CallExpr
// standing in anything handed to ExtendLogical), so conv only needs to
// handle the logical-variable-only shapes §4.8 documents: literals,
// Refs, map selects over a Ref, and the usual operator tree.
func (s *Solver) conv(e ivsym.Expr, cache *convCache) (z3.Value, error) {
	switch n := e.(type) {
	case *ivsym.LiteralExpr:
		return s.convLiteral(n)
	case *ivsym.RefExpr:
		return s.refValue(n.Ref, n.T, cache)
	case *ivsym.MapSelectExpr:
		return s.convMapSelect(n, cache)
	case *ivsym.IfExpr:
		cond, err := s.convBool(n.Cond, cache)
		if err != nil {
			return nil, err
		}
		then, err := s.conv(n.Then, cache)
		if err != nil {
			return nil, err
		}
		els, err := s.conv(n.Else, cache)
		if err != nil {
			return nil, err
		}
		return cond.IfThenElse(then, els), nil
	case *ivsym.UnaryExpr:
		return s.convUnary(n, cache)
	case *ivsym.BinaryExpr:
		return s.convBinary(n, cache)
	default:
		return nil, fmt.Errorf("z3solver: cannot translate %T (%s) — expression was not fully evaluated before reaching the solver", e, e)
	}
}

func (s *Solver) convLiteral(n *ivsym.LiteralExpr) (z3.Value, error) {
	switch v := n.Value.(type) {
	case ivsym.IntegerValue:
		return s.ctx.FromBigInt(v.N, s.ctx.IntSort()), nil
	case ivsym.BooleanValue:
		return s.ctx.FromBool(v.B), nil
	case ivsym.CustomValue:
		return s.customLiteral(v)
	case ivsym.MapReferenceValue:
		return s.mapValue(v.Ref, v.MapType)
	default:
		return nil, fmt.Errorf("z3solver: unhandled literal value %T", v)
	}
}

// customLiteral materializes a concrete CustomValue as a fresh named
// const of its opaque sort, tagged via an asserted equality on the
// sort's projection function — the mechanism that makes the projection
// "total": every custom value this backend ever sees, literal or
// symbolic, gets a provable Integer tag.
func (s *Solver) customLiteral(v ivsym.CustomValue) (z3.Value, error) {
	cs := s.customSortFor(v.CustomType)
	name := fmt.Sprintf("%s#tag%d", v.CustomType.Name, v.Tag)
	con := s.ctx.Const(name, cs.sort).(z3.Uninterpreted)
	tag := s.ctx.FromBigInt(big.NewInt(v.Tag), s.ctx.IntSort())
	s.solver.Assert(cs.proj.Apply(con).(z3.Int).Eq(tag.(z3.Int)))
	return con, nil
}

func (s *Solver) convUnary(n *ivsym.UnaryExpr, cache *convCache) (z3.Value, error) {
	x, err := s.conv(n.X, cache)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case ivsym.OpNot:
		b, ok := x.(z3.Bool)
		if !ok {
			return nil, fmt.Errorf("z3solver: ! applied to non-boolean %s", n.X)
		}
		return b.Not(), nil
	case ivsym.OpNeg:
		i, ok := x.(z3.Int)
		if !ok {
			return nil, fmt.Errorf("z3solver: - applied to non-integer %s", n.X)
		}
		return i.Neg(), nil
	default:
		return nil, fmt.Errorf("z3solver: unhandled unary op %v", n.Op)
	}
}

func (s *Solver) convBinary(n *ivsym.BinaryExpr, cache *convCache) (z3.Value, error) {
	// Map-reference (in)equality never reaches here: evalMapRefEquality
	// (eval.go) always unfolds it into a quantified pointwise comparison
	// before a BinaryExpr is built, so OpEq/OpNeq on two MapSelectExpr
	// operands is the only map-flavored binary shape left, handled
	// uniformly below alongside Int/Bool comparisons.
	x, err := s.conv(n.X, cache)
	if err != nil {
		return nil, err
	}
	y, err := s.conv(n.Y, cache)
	if err != nil {
		return nil, err
	}

	if n.Op == ivsym.OpEq || n.Op == ivsym.OpNeq {
		eq := x.Eq(y)
		if n.Op == ivsym.OpNeq {
			return eq.Not(), nil
		}
		return eq, nil
	}

	if n.Op.IsArithmetic() || (n.Op.IsCompare() && n.Op != ivsym.OpEq && n.Op != ivsym.OpNeq) {
		xi, xok := x.(z3.Int)
		yi, yok := y.(z3.Int)
		if !xok || !yok {
			return nil, fmt.Errorf("z3solver: %v applied to non-integer operands", n.Op)
		}
		switch n.Op {
		case ivsym.OpAdd:
			return xi.Add(yi), nil
		case ivsym.OpSub:
			return xi.Sub(yi), nil
		case ivsym.OpMul:
			return xi.Mul(yi), nil
		case ivsym.OpDiv:
			return euclideanQuotient(xi, yi), nil
		case ivsym.OpMod:
			return euclideanRemainder(xi, yi), nil
		case ivsym.OpLt:
			return xi.LT(yi), nil
		case ivsym.OpLe:
			return xi.LE(yi), nil
		case ivsym.OpGt:
			return xi.GT(yi), nil
		case ivsym.OpGe:
			return xi.GE(yi), nil
		}
	}

	xb, xok := x.(z3.Bool)
	yb, yok := y.(z3.Bool)
	if !xok || !yok {
		return nil, fmt.Errorf("z3solver: %v applied to non-boolean operands", n.Op)
	}
	switch n.Op {
	case ivsym.OpAnd:
		return xb.And(yb), nil
	case ivsym.OpOr:
		return xb.Or(yb), nil
	case ivsym.OpXor:
		return xb.Xor(yb), nil
	case ivsym.OpImplies:
		return xb.Implies(yb), nil
	case ivsym.OpExplies:
		return yb.Implies(xb), nil
	default:
		return nil, fmt.Errorf("z3solver: unhandled binary op %v", n.Op)
	}
}

// euclideanQuotient/euclideanRemainder mirror euclidean.go's
// euclideanDivMod over z3.Int terms instead of *big.Int, via the
// standard SMT-LIB encoding (Z3's Int div/mod are already Euclidean —
// the remainder is never negative, whatever the divisor's sign),
// matching the spec's division semantics at the solver boundary too.
func euclideanQuotient(x, y z3.Int) z3.Int { return x.Div(y) }
func euclideanRemainder(x, y z3.Int) z3.Int { return x.Mod(y) }

func (s *Solver) convMapSelect(n *ivsym.MapSelectExpr, cache *convCache) (z3.Value, error) {
	ref, mapType, err := mapRefOf(n.Map)
	if err != nil {
		return nil, err
	}
	arrVal, err := s.mapValue(ref, mapType)
	if err != nil {
		return nil, err
	}
	arr := arrVal.(z3.Array)
	idx, err := s.convIndex(mapType, n.Args, cache)
	if err != nil {
		return nil, err
	}
	return arr.Select(idx), nil
}

// convIndex builds the single index Value an array Select/Store call
// needs: the argument itself when the map has one domain type, or an
// application of the tuple constructor when it has several (§4.8
// "tuple-indexed keys for multi-argument maps").
func (s *Solver) convIndex(mapType ivsym.Type, args []ivsym.Expr, cache *convCache) (z3.Value, error) {
	ms := s.mapSortFor(mapType)
	vals := make([]z3.Value, len(args))
	for i, a := range args {
		v, err := s.conv(a, cache)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	if ms.ctor == nil {
		return vals[0], nil
	}
	return ms.ctor.Apply(vals...), nil
}

func mapRefOf(e ivsym.Expr) (ivsym.Ref, ivsym.Type, error) {
	switch m := e.(type) {
	case *ivsym.RefExpr:
		return m.Ref, m.T, nil
	case *ivsym.LiteralExpr:
		if v, ok := ivsym.AsLiteral(m); ok {
			if mr, ok := v.(ivsym.MapReferenceValue); ok {
				return mr.Ref, mr.MapType, nil
			}
		}
	}
	return 0, ivsym.Type{}, fmt.Errorf("z3solver: map selection target %s is not a resolved map reference", e)
}

// refValue returns (creating and caching on first use) the z3 const
// standing for a logical scalar Ref.
func (s *Solver) refValue(ref ivsym.Ref, t ivsym.Type, cache *convCache) (z3.Value, error) {
	if v, ok := cache.refs[ref]; ok {
		return v, nil
	}
	name := fmt.Sprintf("ref#%d", ref)
	var v z3.Value
	switch t.Kind {
	case ivsym.IntType:
		v = s.ctx.Const(name, s.ctx.IntSort())
	case ivsym.BoolType:
		v = s.ctx.Const(name, s.ctx.BoolSort())
	case ivsym.CustomTypeKind:
		v = s.ctx.Const(name, s.customSortFor(t).sort)
	case ivsym.MapTypeKind:
		return s.mapValue(ref, t)
	default:
		return nil, fmt.Errorf("z3solver: unhandled ref type %s", t)
	}
	cache.refs[ref] = v
	return v, nil
}

// mapValue returns the z3 array const standing for a map Ref. It keeps no
// cache: each call names the const after the Ref, and Z3 treats consts
// with the same name and sort as the same const.
func (s *Solver) mapValue(ref ivsym.Ref, t ivsym.Type) (z3.Value, error) {
	s.mapSortFor(t) // ensure the sort exists before naming a const over it
	name := fmt.Sprintf("map#%d", ref)
	return s.ctx.Const(name, s.mapSortFor(t).array), nil
}

// customSortFor returns (creating on first use) the uninterpreted sort
// and Integer projection function for an opaque type, keyed by name —
// the §4.8 "uninterpreted sorts for each opaque type paired with a
// total projection to Integer" requirement.
func (s *Solver) customSortFor(t ivsym.Type) *customSort {
	if cs, ok := s.customSorts[t.Name]; ok {
		return cs
	}
	sort := s.ctx.UninterpretedSort(t.Name)
	proj := s.ctx.FuncDecl(t.Name+"$proj", []z3.Sort{sort}, s.ctx.IntSort())
	cs := &customSort{sort: sort, proj: proj}
	s.customSorts[t.Name] = cs
	return cs
}

// mapSortFor returns (creating on first use) the array sort backing a
// map type, tupling multiple domain types into one index sort via
// z3.TupleSort when needed.
func (s *Solver) mapSortFor(t ivsym.Type) *mapSort {
	key := t.String()
	if ms, ok := s.mapSorts[key]; ok {
		return ms
	}
	rng := s.valueSort(*t.Range)
	var domain z3.Sort
	var ctor z3.FuncDecl
	if len(t.Domain) == 1 {
		domain = s.valueSort(t.Domain[0])
	} else {
		fieldNames := make([]string, len(t.Domain))
		fieldSorts := make([]z3.Sort, len(t.Domain))
		for i, d := range t.Domain {
			fieldNames[i] = fmt.Sprintf("arg%d", i)
			fieldSorts[i] = s.valueSort(d)
		}
		tupleSort, tupleCtor, _ := s.ctx.TupleSort(key+"$tuple", fieldNames, fieldSorts)
		domain = tupleSort
		ctor = tupleCtor
	}
	ms := &mapSort{array: s.ctx.ArraySort(domain, rng), domain: domain, ctor: ctor, rng: rng}
	s.mapSorts[key] = ms
	return ms
}

// valueSort maps an engine Type onto the z3 Sort that represents it,
// creating an opaque type's uninterpreted sort on demand.
func (s *Solver) valueSort(t ivsym.Type) z3.Sort {
	switch t.Kind {
	case ivsym.IntType:
		return s.ctx.IntSort()
	case ivsym.BoolType:
		return s.ctx.BoolSort()
	case ivsym.CustomTypeKind:
		return s.customSortFor(t).sort
	case ivsym.MapTypeKind:
		return s.mapSortFor(t).array
	default:
		return s.ctx.IntSort()
	}
}
