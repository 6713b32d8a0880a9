package ivsym

import (
	"fmt"
	"math/big"
)

// Pos is a source position, carried by every thunk for error reporting.
type Pos struct {
	File string
	Line int
	Col  int
}

func (p Pos) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Col)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}

// Expr is the closed tagged union of guest-language AST nodes. The
// evaluator dispatches by type switch; prefer exhaustive switches over
// virtual dispatch, matching the teacher's ExprVisitor/WalkExpr style.
type Expr interface {
	Position() Pos
	String() string
	expr()
}

// Binder names one bound variable of a quantifier, lambda, procedure
// formal, or local declaration. Where is non-nil only for a procedure
// formal/local carrying a `where` clause (§4.6 step 3); quantifier and
// lambda binders leave it nil.
type Binder struct {
	Name  string
	Type  Type
	Where Expr
}

// LiteralExpr wraps a concrete Value. A Thunk is "literal" exactly when
// its root node is a LiteralExpr.
type LiteralExpr struct {
	Pos   Pos
	Value Value
}

func (e *LiteralExpr) expr()            {}
func (e *LiteralExpr) Position() Pos    { return e.Pos }
func (e *LiteralExpr) String() string   { return e.Value.String() }

func Literal(pos Pos, v Value) *LiteralExpr { return &LiteralExpr{Pos: pos, Value: v} }

func AsLiteral(e Expr) (Value, bool) {
	if l, ok := e.(*LiteralExpr); ok {
		return l.Value, true
	}
	return nil, false
}

// VarExpr names a variable; region resolution happens at evaluation time
// per the region-selection rule (§4.1).
type VarExpr struct {
	Pos  Pos
	Name string
}

func (e *VarExpr) expr()          {}
func (e *VarExpr) Position() Pos  { return e.Pos }
func (e *VarExpr) String() string { return e.Name }

// RefExpr denotes an already-allocated logical Ref directly (produced
// internally once a variable has been resolved, and reused when
// re-evaluating stores during solve_and_concretize).
type RefExpr struct {
	Pos Pos
	Ref Ref
	T   Type
}

func (e *RefExpr) expr()          {}
func (e *RefExpr) Position() Pos  { return e.Pos }
func (e *RefExpr) String() string { return fmt.Sprintf("ref#%d", e.Ref) }

// MapSelectExpr is `m[args]`.
type MapSelectExpr struct {
	Pos  Pos
	Map  Expr
	Args []Expr
}

func (e *MapSelectExpr) expr()         {}
func (e *MapSelectExpr) Position() Pos { return e.Pos }
func (e *MapSelectExpr) String() string {
	return fmt.Sprintf("%s%v", e.Map, e.Args)
}

func NewMapSelect(pos Pos, m Expr, args []Expr) *MapSelectExpr {
	return &MapSelectExpr{Pos: pos, Map: m, Args: args}
}

// MapUpdateExpr is `m[args := new]`.
type MapUpdateExpr struct {
	Pos  Pos
	Map  Expr
	Args []Expr
	New  Expr
}

func (e *MapUpdateExpr) expr()         {}
func (e *MapUpdateExpr) Position() Pos { return e.Pos }
func (e *MapUpdateExpr) String() string {
	return fmt.Sprintf("%s[%v := %s]", e.Map, e.Args, e.New)
}

// IfExpr is a ternary conditional.
type IfExpr struct {
	Pos              Pos
	Cond, Then, Else Expr
}

func (e *IfExpr) expr()         {}
func (e *IfExpr) Position() Pos { return e.Pos }
func (e *IfExpr) String() string {
	return fmt.Sprintf("if %s then %s else %s", e.Cond, e.Then, e.Else)
}

func NewIf(pos Pos, cond, then, els Expr) Expr {
	if v, ok := AsLiteral(cond); ok {
		if b, ok := v.(BooleanValue); ok {
			if b.B {
				return then
			}
			return els
		}
	}
	return &IfExpr{Pos: pos, Cond: cond, Then: then, Else: els}
}

// UnaryOp enumerates unary operators.
type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNeg
)

type UnaryExpr struct {
	Pos Pos
	Op  UnaryOp
	X   Expr
}

func (e *UnaryExpr) expr()         {}
func (e *UnaryExpr) Position() Pos { return e.Pos }
func (e *UnaryExpr) String() string {
	sym := map[UnaryOp]string{OpNot: "!", OpNeg: "-"}[e.Op]
	return sym + e.X.String()
}

// NewUnary applies constant folding the way the teacher's newXxxExpr
// smart constructors do for every fixed-width op; here there is exactly
// one width (arbitrary precision) so the switch is flat.
func NewUnary(pos Pos, op UnaryOp, x Expr) Expr {
	if v, ok := AsLiteral(x); ok {
		switch op {
		case OpNot:
			if b, ok := v.(BooleanValue); ok {
				return Literal(pos, BooleanValue{B: !b.B})
			}
		case OpNeg:
			if n, ok := v.(IntegerValue); ok {
				return Literal(pos, IntegerValue{N: new(big.Int).Neg(n.N)})
			}
		}
	}
	return &UnaryExpr{Pos: pos, Op: op, X: x}
}

// BinaryOp enumerates binary operators. IsArithmetic/IsCompare mirror the
// teacher's BinaryOp helper methods.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAnd
	OpOr
	OpXor
	OpImplies
	OpExplies
	OpEq
	OpNeq
	OpLt
	OpLe
	OpGt
	OpGe
)

func (op BinaryOp) IsArithmetic() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		return true
	}
	return false
}

func (op BinaryOp) IsCompare() bool {
	switch op {
	case OpEq, OpNeq, OpLt, OpLe, OpGt, OpGe:
		return true
	}
	return false
}

func (op BinaryOp) IsShortCircuit() bool {
	switch op {
	case OpAnd, OpOr, OpImplies, OpExplies:
		return true
	}
	return false
}

var binaryOpSymbols = map[BinaryOp]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "div", OpMod: "mod",
	OpAnd: "&&", OpOr: "||", OpXor: "xor", OpImplies: "==>", OpExplies: "<==",
	OpEq: "==", OpNeq: "!=", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
}

type BinaryExpr struct {
	Pos  Pos
	Op   BinaryOp
	X, Y Expr
}

// NewBinary applies the same constant-folding discipline as the
// teacher's newAddExpr/newMulExpr/... family: if both operands are
// already literal, compute the result directly instead of building a
// node. Division/modulo by a literal zero is deliberately left
// unfolded — the caller (Evaluate, in eval.go) has the memory context
// needed to allocate the fresh unconstrained logical value spec.md
// §4.3 calls for, which this pure constructor does not.
func NewBinary(pos Pos, op BinaryOp, x, y Expr) Expr {
	xv, xok := AsLiteral(x)
	yv, yok := AsLiteral(y)
	if xok && yok {
		if folded, ok := foldBinary(pos, op, xv, yv); ok {
			return folded
		}
	}
	return &BinaryExpr{Pos: pos, Op: op, X: x, Y: y}
}

func foldBinary(pos Pos, op BinaryOp, xv, yv Value) (Expr, bool) {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpLt, OpLe, OpGt, OpGe:
		xi, xok := xv.(IntegerValue)
		yi, yok := yv.(IntegerValue)
		if !xok || !yok {
			return nil, false
		}
		switch op {
		case OpAdd:
			return Literal(pos, IntegerValue{N: newBig().Add(xi.N, yi.N)}), true
		case OpSub:
			return Literal(pos, IntegerValue{N: newBig().Sub(xi.N, yi.N)}), true
		case OpMul:
			return Literal(pos, IntegerValue{N: newBig().Mul(xi.N, yi.N)}), true
		case OpDiv:
			if yi.N.Sign() == 0 {
				return nil, false
			}
			q, _ := euclideanDivMod(xi.N, yi.N)
			return Literal(pos, IntegerValue{N: q}), true
		case OpMod:
			if yi.N.Sign() == 0 {
				return nil, false
			}
			_, r := euclideanDivMod(xi.N, yi.N)
			return Literal(pos, IntegerValue{N: r}), true
		case OpLt:
			return Literal(pos, BooleanValue{B: xi.N.Cmp(yi.N) < 0}), true
		case OpLe:
			return Literal(pos, BooleanValue{B: xi.N.Cmp(yi.N) <= 0}), true
		case OpGt:
			return Literal(pos, BooleanValue{B: xi.N.Cmp(yi.N) > 0}), true
		case OpGe:
			return Literal(pos, BooleanValue{B: xi.N.Cmp(yi.N) >= 0}), true
		}
	case OpAnd, OpOr, OpXor, OpImplies, OpExplies:
		xb, xok := xv.(BooleanValue)
		yb, yok := yv.(BooleanValue)
		if !xok || !yok {
			return nil, false
		}
		switch op {
		case OpAnd:
			return Literal(pos, BooleanValue{B: xb.B && yb.B}), true
		case OpOr:
			return Literal(pos, BooleanValue{B: xb.B || yb.B}), true
		case OpXor:
			return Literal(pos, BooleanValue{B: xb.B != yb.B}), true
		case OpImplies:
			return Literal(pos, BooleanValue{B: !xb.B || yb.B}), true
		case OpExplies:
			return Literal(pos, BooleanValue{B: xb.B || !yb.B}), true
		}
	case OpEq:
		return Literal(pos, BooleanValue{B: valuesEqual(xv, yv)}), true
	case OpNeq:
		return Literal(pos, BooleanValue{B: !valuesEqual(xv, yv)}), true
	}
	return nil, false
}

func newBig() *big.Int { return new(big.Int) }

func (e *BinaryExpr) expr()         {}
func (e *BinaryExpr) Position() Pos { return e.Pos }
func (e *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.X, binaryOpSymbols[e.Op], e.Y)
}

// QuantKind tags Forall vs Exists.
type QuantKind int

const (
	Forall QuantKind = iota
	Exists
)

type QuantExpr struct {
	Pos   Pos
	Kind  QuantKind
	Vars  []Binder
	Body  Expr
}

func (e *QuantExpr) expr()         {}
func (e *QuantExpr) Position() Pos { return e.Pos }
func (e *QuantExpr) String() string {
	k := "forall"
	if e.Kind == Exists {
		k = "exists"
	}
	return fmt.Sprintf("%s %v :: %s", k, e.Vars, e.Body)
}

func NewForall(pos Pos, vars []Binder, body Expr) *QuantExpr {
	return &QuantExpr{Pos: pos, Kind: Forall, Vars: vars, Body: body}
}

// NewExists builds an Exists node as is, with no desugaring, so error
// messages and extraction can still report "exists" to the user;
// Evaluate rewrites it to ¬∀¬ on the fly (§4.3).
func NewExists(pos Pos, vars []Binder, body Expr) *QuantExpr {
	return &QuantExpr{Pos: pos, Kind: Exists, Vars: vars, Body: body}
}

// LambdaExpr allocates a fresh map and constrains it pointwise (§4.3
// "Lambda").
type LambdaExpr struct {
	Pos      Pos
	Vars     []Binder
	Body     Expr
	FuncType Type
}

func (e *LambdaExpr) expr()         {}
func (e *LambdaExpr) Position() Pos { return e.Pos }
func (e *LambdaExpr) String() string {
	return fmt.Sprintf("lambda %v :: %s", e.Vars, e.Body)
}

// CallExpr invokes a user-defined (non-recursive) macro function.
type CallExpr struct {
	Pos  Pos
	Name string
	Args []Expr
}

func (e *CallExpr) expr()         {}
func (e *CallExpr) Position() Pos { return e.Pos }
func (e *CallExpr) String() string {
	return fmt.Sprintf("%s%v", e.Name, e.Args)
}

// WalkExpr applies fn to every node in the tree in pre-order, rebuilding
// the tree with fn's replacements (teacher's expr.go WalkExpr pattern).
func WalkExpr(e Expr, fn func(Expr) Expr) Expr {
	e = fn(e)
	switch n := e.(type) {
	case *MapSelectExpr:
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = WalkExpr(a, fn)
		}
		return &MapSelectExpr{Pos: n.Pos, Map: WalkExpr(n.Map, fn), Args: args}
	case *MapUpdateExpr:
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = WalkExpr(a, fn)
		}
		return &MapUpdateExpr{Pos: n.Pos, Map: WalkExpr(n.Map, fn), Args: args, New: WalkExpr(n.New, fn)}
	case *IfExpr:
		return &IfExpr{Pos: n.Pos, Cond: WalkExpr(n.Cond, fn), Then: WalkExpr(n.Then, fn), Else: WalkExpr(n.Else, fn)}
	case *UnaryExpr:
		return &UnaryExpr{Pos: n.Pos, Op: n.Op, X: WalkExpr(n.X, fn)}
	case *BinaryExpr:
		return &BinaryExpr{Pos: n.Pos, Op: n.Op, X: WalkExpr(n.X, fn), Y: WalkExpr(n.Y, fn)}
	case *QuantExpr:
		return &QuantExpr{Pos: n.Pos, Kind: n.Kind, Vars: n.Vars, Body: WalkExpr(n.Body, fn)}
	case *LambdaExpr:
		return &LambdaExpr{Pos: n.Pos, Vars: n.Vars, Body: WalkExpr(n.Body, fn), FuncType: n.FuncType}
	case *CallExpr:
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = WalkExpr(a, fn)
		}
		return &CallExpr{Pos: n.Pos, Name: n.Name, Args: args}
	default:
		return e
	}
}

// FreeVars collects the set of VarExpr names free in e (not bound by an
// enclosing quantifier/lambda reached during the walk).
func FreeVars(e Expr) map[string]bool {
	out := map[string]bool{}
	var walk func(Expr, map[string]bool)
	walk = func(e Expr, bound map[string]bool) {
		switch n := e.(type) {
		case *VarExpr:
			if !bound[n.Name] {
				out[n.Name] = true
			}
		case *MapSelectExpr:
			walk(n.Map, bound)
			for _, a := range n.Args {
				walk(a, bound)
			}
		case *MapUpdateExpr:
			walk(n.Map, bound)
			for _, a := range n.Args {
				walk(a, bound)
			}
			walk(n.New, bound)
		case *IfExpr:
			walk(n.Cond, bound)
			walk(n.Then, bound)
			walk(n.Else, bound)
		case *UnaryExpr:
			walk(n.X, bound)
		case *BinaryExpr:
			walk(n.X, bound)
			walk(n.Y, bound)
		case *QuantExpr:
			inner := cloneSet(bound)
			for _, v := range n.Vars {
				inner[v.Name] = true
			}
			walk(n.Body, inner)
		case *LambdaExpr:
			inner := cloneSet(bound)
			for _, v := range n.Vars {
				inner[v.Name] = true
			}
			walk(n.Body, inner)
		case *CallExpr:
			for _, a := range n.Args {
				walk(a, bound)
			}
		}
	}
	walk(e, map[string]bool{})
	return out
}

func cloneSet(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// FindMapRefs collects, structurally, every VarExpr/RefExpr name that
// appears in map-selection position within e (teacher's FindArrays,
// generalized from byte arrays to map references).
func FindMapRefs(e Expr) []Expr {
	var out []Expr
	seen := map[string]bool{}
	WalkExpr(e, func(n Expr) Expr {
		if sel, ok := n.(*MapSelectExpr); ok {
			key := sel.Map.String()
			if !seen[key] {
				seen[key] = true
				out = append(out, sel.Map)
			}
		}
		return n
	})
	return out
}
