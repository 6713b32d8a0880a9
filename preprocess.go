package ivsym

// Decl is the closed union of top-level declarations the Preprocessor
// consumes — the boundary spec.md §1 draws between "already parsed and
// type-checked IVL" (out of scope) and the engine itself. The engine
// never parses source text; whatever produced these Decls (a separate
// front end) is assumed to have already resolved names and types.
type Decl interface{ decl() }

type FunctionDecl struct {
	Name    string
	Formals []Binder
	Body    Expr // nil for an uninterpreted (bodyless) function
}

func (FunctionDecl) decl() {}

type ProcedureDecl struct {
	Name            string
	Formals         []Binder
	Returns         []Binder
	Modifies        []string
	Requires        []Clause
	Ensures         []Clause
	Implementations []*ImplementationBody
}

func (ProcedureDecl) decl() {}

type AxiomDecl struct{ Expr Expr }

func (AxiomDecl) decl() {}

type VarDecl struct {
	Name  string
	Type  Type
	Scope Scope
	Where Expr
}

func (VarDecl) decl() {}

// UniqueDecl declares a set of distinct constants of a single type —
// spec.md §4.10's "unique constants of a type" registration.
type UniqueDecl struct {
	TypeName string
	Names    []string
}

func (UniqueDecl) decl() {}

// Preprocess implements C10's single pass over declarations, producing
// the Program the rest of the engine executes against.
func Preprocess(decls []Decl) *Program {
	prog := &Program{
		Procedures:      map[string]*Procedure{},
		Functions:       map[string]*MacroFunc{},
		GlobalWhere:     map[string]Expr{},
		UniqueConstants: map[string][]string{},
	}

	for _, d := range decls {
		switch n := d.(type) {
		case FunctionDecl:
			prog.Functions[n.Name] = &MacroFunc{
				Name:      n.Name,
				Formals:   n.Formals,
				Body:      n.Body,
				Recursive: n.Body != nil && callsDirectly(n.Body, n.Name),
			}
		case ProcedureDecl:
			prog.Procedures[n.Name] = &Procedure{
				Name:            n.Name,
				Formals:         n.Formals,
				Returns:         n.Returns,
				Modifies:        n.Modifies,
				Requires:        n.Requires,
				Ensures:         n.Ensures,
				Implementations: n.Implementations,
			}
		case AxiomDecl:
			prog.Axioms = append(prog.Axioms, n.Expr)
		case VarDecl:
			prog.GlobalVars = append(prog.GlobalVars, Binder{Name: n.Name, Type: n.Type, Where: n.Where})
			if n.Where != nil {
				prog.GlobalWhere[n.Name] = n.Where
			}
		case UniqueDecl:
			prog.UniqueConstants[n.TypeName] = append(prog.UniqueConstants[n.TypeName], n.Names...)
		}
	}

	return prog
}

// callsDirectly reports whether body contains a direct (non-transitive)
// call to name — enough to catch the common self-recursive macro case
// without needing a full call-graph analysis, which would belong to the
// external type checker's job (§1) rather than this engine's.
func callsDirectly(body Expr, name string) bool {
	found := false
	WalkExpr(body, func(n Expr) Expr {
		if c, ok := n.(*CallExpr); ok && c.Name == name {
			found = true
		}
		return n
	})
	return found
}

// SeedGlobalConstraints implements the rest of C10's "register as a
// name constraint" steps, run once per ExecuteProgram call against a
// fresh ConstraintStore: axioms and where-clauses are both registered
// under every name they mention free, exactly as evalVar later expects
// to find them on first read.
//
// Function declarations with a body are deliberately NOT also emitted
// as a `∀ formals. name(formals) = body` axiom here: evalCall already
// unfolds a non-recursive macro by direct substitution at the call
// site (§4.3), so there is never a standing CallExpr term left for the
// solver to see such an axiom about. A bodyless (uninterpreted)
// function has no body to unfold or axiomatize either — calling one is
// Unsupported, raised by evalCall.
func SeedGlobalConstraints(prog *Program, cs *ConstraintStore) {
	for _, axiom := range prog.Axioms {
		cs.ExtendName(Globals, axiom)
	}
	for _, where := range prog.GlobalWhere {
		cs.ExtendName(Globals, where)
	}
	for _, names := range prog.UniqueConstants {
		registerUniqueness(cs, names)
	}
}

// registerUniqueness emits the pairwise disequality axioms a `unique`
// declaration implies: every distinct pair of named constants is
// registered as a standing name constraint under both names, so it
// fires (substituted and re-evaluated, per evalVar) the first time
// either constant is read.
func registerUniqueness(cs *ConstraintStore, names []string) {
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			a, b := names[i], names[j]
			neq := NewBinary(Pos{}, OpNeq, &VarExpr{Name: a}, &VarExpr{Name: b})
			cs.ExtendName(Globals, neq)
		}
	}
}
