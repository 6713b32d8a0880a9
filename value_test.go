package ivsym_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	ivsym "github.com/ivsym/ivsym"
)

func TestTypeEqual(t *testing.T) {
	int1 := ivsym.Type{Kind: ivsym.IntType}
	int2 := ivsym.Type{Kind: ivsym.IntType}
	if !int1.Equal(int2) {
		t.Fatalf("two Int types must be equal")
	}

	m1 := ivsym.NewMapType([]ivsym.Type{int1}, ivsym.Type{Kind: ivsym.BoolType})
	m2 := ivsym.NewMapType([]ivsym.Type{int2}, ivsym.Type{Kind: ivsym.BoolType})
	if !m1.Equal(m2) {
		t.Fatalf("structurally identical map types must be equal")
	}

	c1 := ivsym.NewCustomType("Color")
	c2 := ivsym.NewCustomType("Shape")
	if c1.Equal(c2) {
		t.Fatalf("custom types with different names must not be equal")
	}

	// Nested map domains compared through cmp.Diff. cmp defers to a type's
	// own Equal method when it has one, so this exercises Type.Equal on a
	// map type whose domain is itself a map type.
	nested1 := ivsym.NewMapType([]ivsym.Type{m1}, int1)
	nested2 := ivsym.NewMapType([]ivsym.Type{m2}, int2)
	if diff := cmp.Diff(nested1, nested2); diff != "" {
		t.Fatalf("nested map types differ (-want +got):\n%s", diff)
	}
}

func TestValueStrings(t *testing.T) {
	if got := ivsym.NewInteger(42).String(); got != "42" {
		t.Fatalf("got %s", got)
	}
	if got := (ivsym.BooleanValue{B: true}).String(); got != "true" {
		t.Fatalf("got %s", got)
	}
	mv := ivsym.MapReferenceValue{Ref: 7, MapType: ivsym.NewMapType([]ivsym.Type{{Kind: ivsym.IntType}}, ivsym.Type{Kind: ivsym.IntType})}
	if got := mv.String(); got != "map#7" {
		t.Fatalf("got %s", got)
	}
}
