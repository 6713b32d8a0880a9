package ivsym_test

import (
	"testing"

	ivsym "github.com/ivsym/ivsym"
)

func TestMapInstanceStoreShadowsEarlierEntry(t *testing.T) {
	mapType := ivsym.NewMapType([]ivsym.Type{{Kind: ivsym.IntType}}, ivsym.Type{Kind: ivsym.IntType})
	mi := ivsym.NewMapInstance(mapType)

	idx := []ivsym.Expr{ivsym.Literal(ivsym.Pos{}, ivsym.NewInteger(5))}
	mi = mi.Store(idx, ivsym.Literal(ivsym.Pos{}, ivsym.NewInteger(1)))
	mi = mi.Store(idx, ivsym.Literal(ivsym.Pos{}, ivsym.NewInteger(2)))

	v, ok := mi.Select(idx)
	if !ok {
		t.Fatalf("expected a stored value at the updated index")
	}
	lit, _ := ivsym.AsLiteral(v)
	if lit.(ivsym.IntegerValue).N.Int64() != 2 {
		t.Fatalf("expected the later Store to shadow the earlier one, got %v", v)
	}
}

func TestMapInstanceSelectMissIsNotFound(t *testing.T) {
	mapType := ivsym.NewMapType([]ivsym.Type{{Kind: ivsym.IntType}}, ivsym.Type{Kind: ivsym.IntType})
	mi := ivsym.NewMapInstance(mapType)

	_, ok := mi.Select([]ivsym.Expr{ivsym.Literal(ivsym.Pos{}, ivsym.NewInteger(0))})
	if ok {
		t.Fatalf("expected a miss on an empty map instance")
	}
}

func TestMapInstancePointsReturnsEveryMaterializedTuple(t *testing.T) {
	mapType := ivsym.NewMapType([]ivsym.Type{{Kind: ivsym.IntType}}, ivsym.Type{Kind: ivsym.IntType})
	mi := ivsym.NewMapInstance(mapType)

	mi = mi.Store([]ivsym.Expr{ivsym.Literal(ivsym.Pos{}, ivsym.NewInteger(1))}, ivsym.Literal(ivsym.Pos{}, ivsym.NewInteger(10)))
	mi = mi.Store([]ivsym.Expr{ivsym.Literal(ivsym.Pos{}, ivsym.NewInteger(2))}, ivsym.Literal(ivsym.Pos{}, ivsym.NewInteger(20)))

	points := mi.Points()
	if len(points) != 2 {
		t.Fatalf("expected 2 materialized points, got %d", len(points))
	}
}
