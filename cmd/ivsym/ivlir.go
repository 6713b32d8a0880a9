package main

// The engine's input boundary (spec.md §1) is "already parsed and
// type-checked IVL", produced by an external front end. This file is
// that front end's stand-in for the reference driver: a JSON
// intermediate representation that decodes one-for-one into
// ivsym.Decl/ivsym.Expr/ivsym.Type, mirroring the shape the teacher's
// generate.go instead got for free from go/ssa. It is not a parser for
// any surface syntax, only a wire format for an already-resolved AST.

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/pkg/errors"

	ivsym "github.com/ivsym/ivsym"
)

type irType struct {
	Kind   string   `json:"kind"`
	Domain []irType `json:"domain,omitempty"`
	Range  *irType  `json:"range,omitempty"`
	Name   string   `json:"name,omitempty"`
}

func (t irType) decode() (ivsym.Type, error) {
	switch t.Kind {
	case "int":
		return ivsym.Type{Kind: ivsym.IntType}, nil
	case "bool":
		return ivsym.Type{Kind: ivsym.BoolType}, nil
	case "map":
		if t.Range == nil {
			return ivsym.Type{}, errors.New("map type missing range")
		}
		domain := make([]ivsym.Type, len(t.Domain))
		for i, d := range t.Domain {
			dt, err := d.decode()
			if err != nil {
				return ivsym.Type{}, err
			}
			domain[i] = dt
		}
		rng, err := t.Range.decode()
		if err != nil {
			return ivsym.Type{}, err
		}
		return ivsym.NewMapType(domain, rng), nil
	case "custom":
		if t.Name == "" {
			return ivsym.Type{}, errors.New("custom type missing name")
		}
		return ivsym.NewCustomType(t.Name), nil
	default:
		return ivsym.Type{}, errors.Errorf("unknown type kind %q", t.Kind)
	}
}

type irPos struct {
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
	Col  int    `json:"col,omitempty"`
}

func (p irPos) decode() ivsym.Pos {
	return ivsym.Pos{File: p.File, Line: p.Line, Col: p.Col}
}

type irBinder struct {
	Name  string   `json:"name"`
	Type  irType   `json:"type"`
	Where *irExpr  `json:"where,omitempty"`
}

func (b irBinder) decode() (ivsym.Binder, error) {
	t, err := b.Type.decode()
	if err != nil {
		return ivsym.Binder{}, errors.Wrapf(err, "binder %s", b.Name)
	}
	var where ivsym.Expr
	if b.Where != nil {
		where, err = b.Where.decode()
		if err != nil {
			return ivsym.Binder{}, err
		}
	}
	return ivsym.Binder{Name: b.Name, Type: t, Where: where}, nil
}

func decodeBinders(bs []irBinder) ([]ivsym.Binder, error) {
	out := make([]ivsym.Binder, len(bs))
	for i, b := range bs {
		d, err := b.decode()
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

// irExpr is a tagged-union JSON node for ivsym.Expr. Only the fields
// relevant to Kind are populated by the producer.
type irExpr struct {
	Kind string `json:"kind"`
	Pos  irPos  `json:"pos,omitempty"`

	// lit_int / lit_bool / lit_custom
	IntValue    string `json:"int,omitempty"` // decimal, via math/big
	BoolValue   bool   `json:"bool,omitempty"`
	CustomTag   int64  `json:"tag,omitempty"`
	CustomType  *irType `json:"type,omitempty"`

	// var
	Name string `json:"name,omitempty"`

	// select / update
	Map  *irExpr  `json:"map,omitempty"`
	Args []irExpr `json:"args,omitempty"`
	New  *irExpr  `json:"new,omitempty"`

	// if
	Cond *irExpr `json:"cond,omitempty"`
	Then *irExpr `json:"then,omitempty"`
	Else *irExpr `json:"else,omitempty"`

	// unary / binary
	Op string  `json:"op,omitempty"`
	X  *irExpr `json:"x,omitempty"`
	Y  *irExpr `json:"y,omitempty"`

	// forall / exists / lambda
	Vars      []irBinder `json:"vars,omitempty"`
	Body      *irExpr    `json:"body,omitempty"`
	RangeType *irType    `json:"rangeType,omitempty"` // lambda only

	// call
	Call string   `json:"call,omitempty"`
	CallArgs []irExpr `json:"callArgs,omitempty"`
}

var unaryOps = map[string]ivsym.UnaryOp{"not": ivsym.OpNot, "neg": ivsym.OpNeg}

var binaryOps = map[string]ivsym.BinaryOp{
	"+": ivsym.OpAdd, "-": ivsym.OpSub, "*": ivsym.OpMul, "div": ivsym.OpDiv, "mod": ivsym.OpMod,
	"&&": ivsym.OpAnd, "||": ivsym.OpOr, "xor": ivsym.OpXor, "==>": ivsym.OpImplies, "<==": ivsym.OpExplies,
	"==": ivsym.OpEq, "!=": ivsym.OpNeq, "<": ivsym.OpLt, "<=": ivsym.OpLe, ">": ivsym.OpGt, ">=": ivsym.OpGe,
}

func (e *irExpr) decode() (ivsym.Expr, error) {
	if e == nil {
		return nil, nil
	}
	pos := e.Pos.decode()
	switch e.Kind {
	case "lit_int":
		n, ok := new(big.Int).SetString(e.IntValue, 10)
		if !ok {
			return nil, errors.Errorf("%s: invalid integer literal %q", pos, e.IntValue)
		}
		return ivsym.Literal(pos, ivsym.IntegerValue{N: n}), nil
	case "lit_bool":
		return ivsym.Literal(pos, ivsym.BooleanValue{B: e.BoolValue}), nil
	case "lit_custom":
		if e.CustomType == nil {
			return nil, errors.Errorf("%s: custom literal missing type", pos)
		}
		t, err := e.CustomType.decode()
		if err != nil {
			return nil, err
		}
		return ivsym.Literal(pos, ivsym.CustomValue{Tag: e.CustomTag, CustomType: t}), nil
	case "var":
		return &ivsym.VarExpr{Pos: pos, Name: e.Name}, nil
	case "select":
		m, err := e.Map.decode()
		if err != nil {
			return nil, err
		}
		args, err := decodeExprs(e.Args)
		if err != nil {
			return nil, err
		}
		return ivsym.NewMapSelect(pos, m, args), nil
	case "update":
		m, err := e.Map.decode()
		if err != nil {
			return nil, err
		}
		args, err := decodeExprs(e.Args)
		if err != nil {
			return nil, err
		}
		nv, err := e.New.decode()
		if err != nil {
			return nil, err
		}
		return &ivsym.MapUpdateExpr{Pos: pos, Map: m, Args: args, New: nv}, nil
	case "if":
		c, err := e.Cond.decode()
		if err != nil {
			return nil, err
		}
		t, err := e.Then.decode()
		if err != nil {
			return nil, err
		}
		el, err := e.Else.decode()
		if err != nil {
			return nil, err
		}
		return ivsym.NewIf(pos, c, t, el), nil
	case "unary":
		op, ok := unaryOps[e.Op]
		if !ok {
			return nil, errors.Errorf("%s: unknown unary op %q", pos, e.Op)
		}
		x, err := e.X.decode()
		if err != nil {
			return nil, err
		}
		return ivsym.NewUnary(pos, op, x), nil
	case "binary":
		op, ok := binaryOps[e.Op]
		if !ok {
			return nil, errors.Errorf("%s: unknown binary op %q", pos, e.Op)
		}
		x, err := e.X.decode()
		if err != nil {
			return nil, err
		}
		y, err := e.Y.decode()
		if err != nil {
			return nil, err
		}
		return ivsym.NewBinary(pos, op, x, y), nil
	case "forall", "exists":
		vars, err := decodeBinders(e.Vars)
		if err != nil {
			return nil, err
		}
		body, err := e.Body.decode()
		if err != nil {
			return nil, err
		}
		if e.Kind == "forall" {
			return ivsym.NewForall(pos, vars, body), nil
		}
		return ivsym.NewExists(pos, vars, body), nil
	case "lambda":
		vars, err := decodeBinders(e.Vars)
		if err != nil {
			return nil, err
		}
		body, err := e.Body.decode()
		if err != nil {
			return nil, err
		}
		if e.RangeType == nil {
			return nil, errors.Errorf("%s: lambda missing rangeType", pos)
		}
		rng, err := e.RangeType.decode()
		if err != nil {
			return nil, err
		}
		domain := make([]ivsym.Type, len(vars))
		for i, v := range vars {
			domain[i] = v.Type
		}
		return &ivsym.LambdaExpr{Pos: pos, Vars: vars, Body: body, FuncType: ivsym.NewMapType(domain, rng)}, nil
	case "call":
		args, err := decodeExprs(e.CallArgs)
		if err != nil {
			return nil, err
		}
		return &ivsym.CallExpr{Pos: pos, Name: e.Call, Args: args}, nil
	default:
		return nil, errors.Errorf("%s: unknown expr kind %q", pos, e.Kind)
	}
}

func decodeExprs(es []irExpr) ([]ivsym.Expr, error) {
	out := make([]ivsym.Expr, len(es))
	for i := range es {
		d, err := es[i].decode()
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

type irClause struct {
	Expr irExpr `json:"expr"`
	Kind string `json:"kind"` // "inline", "precondition", "postcondition", "invariant"
	Pos  irPos  `json:"pos,omitempty"`
	Free bool   `json:"free,omitempty"`
}

var clauseKinds = map[string]ivsym.ClauseKind{
	"inline": ivsym.Inline, "precondition": ivsym.Precondition,
	"postcondition": ivsym.Postcondition, "invariant": ivsym.LoopInvariant,
}

func (c irClause) decode() (ivsym.Clause, error) {
	e, err := c.Expr.decode()
	if err != nil {
		return ivsym.Clause{}, err
	}
	k, ok := clauseKinds[c.Kind]
	if !ok {
		return ivsym.Clause{}, errors.Errorf("unknown clause kind %q", c.Kind)
	}
	return ivsym.Clause{Expr: e, Kind: k, DefinedAt: c.Pos.decode(), Free: c.Free}, nil
}

func decodeClauses(cs []irClause) ([]ivsym.Clause, error) {
	out := make([]ivsym.Clause, len(cs))
	for i, c := range cs {
		d, err := c.decode()
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

type irLValue struct {
	Name string   `json:"name"`
	Args []irExpr `json:"args,omitempty"`
}

func (l irLValue) decode() (ivsym.LValue, error) {
	if len(l.Args) == 0 {
		return ivsym.LValue{Name: l.Name}, nil
	}
	args, err := decodeExprs(l.Args)
	if err != nil {
		return ivsym.LValue{}, err
	}
	return ivsym.LValue{Name: l.Name, Args: args}, nil
}

type irStmt struct {
	Kind string `json:"kind"` // "predicate", "havoc", "assign", "call", "call_forall"

	Clause *irClause `json:"clause,omitempty"`

	Pos   irPos    `json:"pos,omitempty"`
	Names []string `json:"names,omitempty"`

	LHS []irLValue `json:"lhs,omitempty"`
	RHS []irExpr   `json:"rhs,omitempty"`

	Proc    string   `json:"proc,omitempty"`
	Args    []irExpr `json:"args,omitempty"`
	Results []string `json:"results,omitempty"`
}

func (s irStmt) decode() (ivsym.Stmt, error) {
	pos := s.Pos.decode()
	switch s.Kind {
	case "predicate":
		if s.Clause == nil {
			return nil, errors.Errorf("%s: predicate statement missing clause", pos)
		}
		c, err := s.Clause.decode()
		if err != nil {
			return nil, err
		}
		return ivsym.PredicateStmt{Clause: c}, nil
	case "havoc":
		return ivsym.HavocStmt{Pos: pos, Names: s.Names}, nil
	case "assign":
		lhs := make([]ivsym.LValue, len(s.LHS))
		for i, l := range s.LHS {
			d, err := l.decode()
			if err != nil {
				return nil, err
			}
			lhs[i] = d
		}
		rhs, err := decodeExprs(s.RHS)
		if err != nil {
			return nil, err
		}
		return ivsym.AssignStmt{Pos: pos, LHS: lhs, RHS: rhs}, nil
	case "call":
		args, err := decodeExprs(s.Args)
		if err != nil {
			return nil, err
		}
		return ivsym.CallStmt{Pos: pos, Proc: s.Proc, Args: args, Results: s.Results}, nil
	case "call_forall":
		args, err := decodeExprs(s.Args)
		if err != nil {
			return nil, err
		}
		return ivsym.CallForallStmt{Pos: pos, Proc: s.Proc, Args: args}, nil
	default:
		return nil, errors.Errorf("%s: unknown stmt kind %q", pos, s.Kind)
	}
}

type irBlock struct {
	Label string   `json:"label"`
	Stmts []irStmt `json:"stmts,omitempty"`
	Succs []string `json:"succs,omitempty"`
}

type irImpl struct {
	Locals []irBinder `json:"locals,omitempty"`
	Blocks []irBlock  `json:"blocks"`
	Entry  string     `json:"entry"`
}

func (im irImpl) decode() (*ivsym.ImplementationBody, error) {
	locals, err := decodeBinders(im.Locals)
	if err != nil {
		return nil, err
	}
	blocks := make(map[string]*ivsym.BasicBlock, len(im.Blocks))
	for _, b := range im.Blocks {
		stmts := make([]ivsym.Stmt, len(b.Stmts))
		for i, s := range b.Stmts {
			d, err := s.decode()
			if err != nil {
				return nil, err
			}
			stmts[i] = d
		}
		blocks[b.Label] = &ivsym.BasicBlock{Label: b.Label, Stmts: stmts, Succs: b.Succs}
	}
	return &ivsym.ImplementationBody{Locals: locals, Blocks: blocks, Entry: im.Entry}, nil
}

type irFunction struct {
	Name    string     `json:"name"`
	Formals []irBinder `json:"formals"`
	Body    *irExpr    `json:"body,omitempty"`
}

type irProcedure struct {
	Name            string     `json:"name"`
	Formals         []irBinder `json:"formals"`
	Returns         []irBinder `json:"returns"`
	Modifies        []string   `json:"modifies,omitempty"`
	Requires        []irClause `json:"requires,omitempty"`
	Ensures         []irClause `json:"ensures,omitempty"`
	Implementations []irImpl   `json:"implementations"`
}

type irVar struct {
	Name  string  `json:"name"`
	Type  irType  `json:"type"`
	Scope string  `json:"scope"` // "local", "global", "constant"
	Where *irExpr `json:"where,omitempty"`
}

type irUnique struct {
	TypeName string   `json:"type"`
	Names    []string `json:"names"`
}

// irFile is the top-level JSON document a program file decodes from.
type irFile struct {
	Functions  []irFunction `json:"functions,omitempty"`
	Procedures []irProcedure `json:"procedures,omitempty"`
	Axioms     []irExpr     `json:"axioms,omitempty"`
	Vars       []irVar      `json:"vars,omitempty"`
	Unique     []irUnique   `json:"unique,omitempty"`

	// EntryPoint names the procedure ExecuteProgram should run; the
	// reference driver's convenience, not part of the engine's Decl set.
	EntryPoint string `json:"entryPoint"`
}

var scopeNames = map[string]ivsym.Scope{
	"local": ivsym.ScopeLocal, "global": ivsym.ScopeGlobal, "constant": ivsym.ScopeConstant,
}

// decodeProgram parses raw as an irFile and converts it into the Decl
// slice Preprocess consumes, plus the entry point it names.
func decodeProgram(raw []byte) ([]ivsym.Decl, string, error) {
	var f irFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, "", errors.Wrap(err, "decoding program")
	}

	var decls []ivsym.Decl

	for _, fn := range f.Functions {
		formals, err := decodeBinders(fn.Formals)
		if err != nil {
			return nil, "", errors.Wrapf(err, "function %s", fn.Name)
		}
		body, err := fn.Body.decode()
		if err != nil {
			return nil, "", errors.Wrapf(err, "function %s", fn.Name)
		}
		decls = append(decls, ivsym.FunctionDecl{Name: fn.Name, Formals: formals, Body: body})
	}

	for _, p := range f.Procedures {
		formals, err := decodeBinders(p.Formals)
		if err != nil {
			return nil, "", errors.Wrapf(err, "procedure %s", p.Name)
		}
		returns, err := decodeBinders(p.Returns)
		if err != nil {
			return nil, "", errors.Wrapf(err, "procedure %s", p.Name)
		}
		requires, err := decodeClauses(p.Requires)
		if err != nil {
			return nil, "", errors.Wrapf(err, "procedure %s", p.Name)
		}
		ensures, err := decodeClauses(p.Ensures)
		if err != nil {
			return nil, "", errors.Wrapf(err, "procedure %s", p.Name)
		}
		impls := make([]*ivsym.ImplementationBody, len(p.Implementations))
		for i, im := range p.Implementations {
			d, err := im.decode()
			if err != nil {
				return nil, "", errors.Wrapf(err, "procedure %s implementation %d", p.Name, i)
			}
			impls[i] = d
		}
		decls = append(decls, ivsym.ProcedureDecl{
			Name: p.Name, Formals: formals, Returns: returns, Modifies: p.Modifies,
			Requires: requires, Ensures: ensures, Implementations: impls,
		})
	}

	for _, a := range f.Axioms {
		e, err := a.decode()
		if err != nil {
			return nil, "", errors.Wrap(err, "axiom")
		}
		decls = append(decls, ivsym.AxiomDecl{Expr: e})
	}

	for _, v := range f.Vars {
		t, err := v.Type.decode()
		if err != nil {
			return nil, "", errors.Wrapf(err, "var %s", v.Name)
		}
		scope, ok := scopeNames[v.Scope]
		if !ok {
			return nil, "", errors.Errorf("var %s: unknown scope %q", v.Name, v.Scope)
		}
		where, err := v.Where.decode()
		if err != nil {
			return nil, "", errors.Wrapf(err, "var %s", v.Name)
		}
		decls = append(decls, ivsym.VarDecl{Name: v.Name, Type: t, Scope: scope, Where: where})
	}

	for _, u := range f.Unique {
		decls = append(decls, ivsym.UniqueDecl{TypeName: u.TypeName, Names: u.Names})
	}

	if f.EntryPoint == "" {
		return nil, "", fmt.Errorf("program file does not name an entryPoint")
	}

	return decls, f.EntryPoint, nil
}
