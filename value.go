package ivsym

import (
	"fmt"
	"math/big"
)

// Ref is a monotonically allocated placeholder id. It is used both for
// logical (scalar) symbolic values and as a key into the map heap. Each
// NewMemory starts its own allocator at 1, shared by every Memory derived
// from it, so ids are unique within one execution but not across
// executions. Once a Ref is handed out it is never reused and never
// removed; callers that want a fresh one call refAllocator.alloc (via
// Memory.FreshLogical or Memory.FreshMapRef).
type Ref uint64

type refAllocator struct {
	next uint64
}

func newRefAllocator() *refAllocator {
	return &refAllocator{next: 1}
}

func (a *refAllocator) alloc() Ref {
	r := Ref(a.next)
	a.next++
	return r
}

// TypeKind tags the closed Type union.
type TypeKind int

const (
	IntType TypeKind = iota
	BoolType
	MapTypeKind
	CustomTypeKind
)

// Type is a closed tagged union: Int, Bool, Map{Domain, Range} or a named
// opaque Custom type. The real type checker is the source of truth for
// anything richer; the engine only needs enough to allocate fresh values
// and tell maps apart from scalars.
type Type struct {
	Kind   TypeKind
	Domain []Type // MapTypeKind only
	Range  *Type  // MapTypeKind only
	Name   string // CustomTypeKind only
}

func NewMapType(domain []Type, rng Type) Type {
	return Type{Kind: MapTypeKind, Domain: domain, Range: &rng}
}

func NewCustomType(name string) Type {
	return Type{Kind: CustomTypeKind, Name: name}
}

func (t Type) Equal(u Type) bool {
	if t.Kind != u.Kind {
		return false
	}
	switch t.Kind {
	case MapTypeKind:
		if len(t.Domain) != len(u.Domain) || !t.Range.Equal(*u.Range) {
			return false
		}
		for i := range t.Domain {
			if !t.Domain[i].Equal(u.Domain[i]) {
				return false
			}
		}
		return true
	case CustomTypeKind:
		return t.Name == u.Name
	default:
		return true
	}
}

func (t Type) String() string {
	switch t.Kind {
	case IntType:
		return "int"
	case BoolType:
		return "bool"
	case MapTypeKind:
		return fmt.Sprintf("map%v->%s", t.Domain, t.Range)
	case CustomTypeKind:
		return t.Name
	default:
		return "?"
	}
}

// Value is the closed tagged union of run-time/symbolic-literal values:
// Integer, Boolean, MapReference, CustomValue. Values are immutable;
// every "update" produces a new Value.
type Value interface {
	Type() Type
	String() string
	value() // unexported marker, closes the union
}

type IntegerValue struct {
	N *big.Int
}

func NewInteger(n int64) IntegerValue   { return IntegerValue{N: big.NewInt(n)} }
func NewBigInteger(n *big.Int) IntegerValue { return IntegerValue{N: new(big.Int).Set(n)} }

func (IntegerValue) value()       {}
func (IntegerValue) Type() Type   { return Type{Kind: IntType} }
func (v IntegerValue) String() string { return v.N.String() }

type BooleanValue struct{ B bool }

func (BooleanValue) value()     {}
func (BooleanValue) Type() Type { return Type{Kind: BoolType} }
func (v BooleanValue) String() string {
	if v.B {
		return "true"
	}
	return "false"
}

// MapReferenceValue is a type-tagged id into the map heap (C1's "Map
// instance" arena). Two map references are equal iff the ids match;
// equality of their *contents* is a logical question handled in eval.go.
type MapReferenceValue struct {
	Ref     Ref
	MapType Type
}

func (MapReferenceValue) value()         {}
func (v MapReferenceValue) Type() Type   { return v.MapType }
func (v MapReferenceValue) String() string {
	return fmt.Sprintf("map#%d", v.Ref)
}

// CustomValue denotes a value of an opaque, user-defined type. Two
// customs are equal iff their tag integers match; the tag has no meaning
// beyond identity (the Solver Facade projects it onto Integer, per
// spec's uninterpreted-sort contract).
type CustomValue struct {
	Tag        int64
	CustomType Type
}

func (CustomValue) value()         {}
func (v CustomValue) Type() Type   { return v.CustomType }
func (v CustomValue) String() string {
	return fmt.Sprintf("%s#%d", v.CustomType.Name, v.Tag)
}

func valuesEqual(a, b Value) bool {
	switch av := a.(type) {
	case IntegerValue:
		bv, ok := b.(IntegerValue)
		return ok && av.N.Cmp(bv.N) == 0
	case BooleanValue:
		bv, ok := b.(BooleanValue)
		return ok && av.B == bv.B
	case MapReferenceValue:
		bv, ok := b.(MapReferenceValue)
		return ok && av.Ref == bv.Ref
	case CustomValue:
		bv, ok := b.(CustomValue)
		return ok && av.Tag == bv.Tag && av.CustomType.Equal(bv.CustomType)
	default:
		return false
	}
}
