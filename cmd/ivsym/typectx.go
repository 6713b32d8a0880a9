package main

import (
	ivsym "github.com/ivsym/ivsym"
)

// flatTypeContext is the reference driver's TypeContext: a flat name
// table built once from the decoded program file, standing in for the
// real type checker's resolution service (spec.md §1's "is this
// variable in scope X", already solved externally in practice). Every
// name in a program handed to this driver is assumed already unique
// across its procedure, matching the same assumption the engine itself
// makes when it asks ScopeOf/TypeOf by bare name.
type flatTypeContext struct {
	types      map[string]ivsym.Type
	scopes     map[string]ivsym.Scope
	signatures map[string]*ivsym.ProcedureSig
}

func newFlatTypeContext(f irFile) (*flatTypeContext, error) {
	tc := &flatTypeContext{
		types:      map[string]ivsym.Type{},
		scopes:     map[string]ivsym.Scope{},
		signatures: map[string]*ivsym.ProcedureSig{},
	}

	for _, v := range f.Vars {
		t, err := v.Type.decode()
		if err != nil {
			return nil, err
		}
		scope, ok := scopeNames[v.Scope]
		if !ok {
			scope = ivsym.ScopeGlobal
		}
		tc.types[v.Name] = t
		tc.scopes[v.Name] = scope
	}

	for _, u := range f.Unique {
		ct, err := (irType{Kind: "custom", Name: u.TypeName}).decode()
		if err != nil {
			return nil, err
		}
		for _, name := range u.Names {
			tc.types[name] = ct
			tc.scopes[name] = ivsym.ScopeConstant
		}
	}

	for _, p := range f.Procedures {
		formals, err := decodeBinders(p.Formals)
		if err != nil {
			return nil, err
		}
		returns, err := decodeBinders(p.Returns)
		if err != nil {
			return nil, err
		}
		for _, b := range formals {
			tc.types[b.Name] = b.Type
			tc.scopes[b.Name] = ivsym.ScopeLocal
		}
		for _, b := range returns {
			tc.types[b.Name] = b.Type
			tc.scopes[b.Name] = ivsym.ScopeLocal
		}
		for _, im := range p.Implementations {
			locals, err := decodeBinders(im.Locals)
			if err != nil {
				return nil, err
			}
			for _, b := range locals {
				tc.types[b.Name] = b.Type
				tc.scopes[b.Name] = ivsym.ScopeLocal
			}
		}
		tc.signatures[p.Name] = &ivsym.ProcedureSig{
			Name: p.Name, Formals: formals, Returns: returns, Modifies: p.Modifies,
		}
	}

	return tc, nil
}

func (tc *flatTypeContext) TypeOf(name string) (ivsym.Type, bool) {
	t, ok := tc.types[name]
	return t, ok
}

func (tc *flatTypeContext) ScopeOf(name string) (ivsym.Scope, bool) {
	s, ok := tc.scopes[name]
	return s, ok
}

func (tc *flatTypeContext) ProcedureSignature(name string) (*ivsym.ProcedureSig, bool) {
	sig, ok := tc.signatures[name]
	return sig, ok
}
