package main

import (
	"encoding/json"
	"testing"

	ivsym "github.com/ivsym/ivsym"
)

const identityProgramJSON = `{
	"entryPoint": "identity",
	"procedures": [{
		"name": "identity",
		"formals": [{"name": "x", "type": {"kind": "int"}}],
		"returns": [{"name": "y", "type": {"kind": "int"}}],
		"ensures": [{
			"kind": "postcondition",
			"expr": {"kind": "binary", "op": "==", "x": {"kind": "var", "name": "y"}, "y": {"kind": "var", "name": "x"}}
		}],
		"implementations": [{
			"entry": "entry",
			"blocks": [{
				"label": "entry",
				"stmts": [{
					"kind": "assign",
					"lhs": [{"name": "y"}],
					"rhs": [{"kind": "var", "name": "x"}]
				}]
			}]
		}]
	}]
}`

func TestDecodeProgram(t *testing.T) {
	decls, entry, err := decodeProgram([]byte(identityProgramJSON))
	if err != nil {
		t.Fatalf("decodeProgram: %v", err)
	}
	if entry != "identity" {
		t.Fatalf("got entry point %q", entry)
	}
	if len(decls) != 1 {
		t.Fatalf("expected 1 decl, got %d", len(decls))
	}
	proc, ok := decls[0].(ivsym.ProcedureDecl)
	if !ok {
		t.Fatalf("expected a ProcedureDecl, got %T", decls[0])
	}
	if proc.Name != "identity" || len(proc.Formals) != 1 || len(proc.Returns) != 1 {
		t.Fatalf("unexpected procedure shape: %+v", proc)
	}
	if len(proc.Implementations) != 1 || proc.Implementations[0].Entry != "entry" {
		t.Fatalf("unexpected implementation shape: %+v", proc.Implementations)
	}
}

func TestDecodeProgramMissingEntryPoint(t *testing.T) {
	if _, _, err := decodeProgram([]byte(`{"procedures": []}`)); err == nil {
		t.Fatalf("expected an error for a missing entryPoint")
	}
}

func TestFlatTypeContextFromDecodedFile(t *testing.T) {
	var f irFile
	decls, _, err := decodeProgram([]byte(identityProgramJSON))
	if err != nil {
		t.Fatalf("decodeProgram: %v", err)
	}
	_ = decls
	if err := json.Unmarshal([]byte(identityProgramJSON), &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	tc, err := newFlatTypeContext(f)
	if err != nil {
		t.Fatalf("newFlatTypeContext: %v", err)
	}
	if typ, ok := tc.TypeOf("x"); !ok || typ.Kind != ivsym.IntType {
		t.Fatalf("expected x to be a known Int local, got %v %v", typ, ok)
	}
	if scope, ok := tc.ScopeOf("x"); !ok || scope != ivsym.ScopeLocal {
		t.Fatalf("expected x to be ScopeLocal, got %v %v", scope, ok)
	}
	if _, ok := tc.ProcedureSignature("identity"); !ok {
		t.Fatalf("expected a signature for identity")
	}
}
