package ivsym

import (
	"github.com/benbjohnson/immutable"
)

// Region names one of the four name stores (§3 "Memory").
type Region int

const (
	Locals Region = iota
	Globals
	Old
	Constants
)

// Scope mirrors the type checker's notion of where a name lives, so
// Memory can apply the region-selection rule from §4.1 without owning
// any type information itself.
type Scope int

const (
	ScopeLocal Scope = iota
	ScopeGlobal
	ScopeConstant
)

// Memory is the four-region store plus map heap, modified-set and
// logical solution, per §3. It is built on benbjohnson/immutable so
// that Fork/Clone (execution_state.go's pattern in the teacher) are
// O(1) structural shares rather than deep copies.
type Memory struct {
	refs *refAllocator

	locals    *immutable.Map[string, Expr]
	globals   *immutable.Map[string, Expr]
	old       *immutable.Map[string, Expr]
	constants *immutable.Map[string, Expr]

	mapHeap  *immutable.Map[Ref, *MapInstance]
	logical  *immutable.Map[Ref, Value]
	modified *immutable.Map[string, bool]

	types TypeContext
}

func NewMemory(types TypeContext) *Memory {
	return &Memory{
		refs:      newRefAllocator(),
		locals:    immutable.NewMap[string, Expr](nil),
		globals:   immutable.NewMap[string, Expr](nil),
		old:       immutable.NewMap[string, Expr](nil),
		constants: immutable.NewMap[string, Expr](nil),
		mapHeap:   immutable.NewMap[Ref, *MapInstance](nil),
		logical:   immutable.NewMap[Ref, Value](nil),
		modified:  immutable.NewMap[string, bool](nil),
		types:     types,
	}
}

// Clone shares every persistent structure with the receiver; callers
// that mutate the clone get a new *Memory back from each setter, so the
// original is never observed to change. This is the Fork/Clone idiom
// from the teacher's ExecutionState.Clone, generalized from one heap
// field to the whole region set.
func (m *Memory) Clone() *Memory {
	clone := *m
	return &clone
}

func (m *Memory) regionMap(r Region) *immutable.Map[string, Expr] {
	switch r {
	case Locals:
		return m.locals
	case Globals:
		return m.globals
	case Old:
		return m.old
	default:
		return m.constants
	}
}

func (m *Memory) withRegion(r Region, nm *immutable.Map[string, Expr]) *Memory {
	clone := m.Clone()
	switch r {
	case Locals:
		clone.locals = nm
	case Globals:
		clone.globals = nm
	case Old:
		clone.old = nm
	default:
		clone.constants = nm
	}
	return clone
}

// resolveRegion implements §4.1's region-selection rule: local scope
// wins, then global, then constant.
func resolveRegion(scope Scope) Region {
	switch scope {
	case ScopeLocal:
		return Locals
	case ScopeGlobal:
		return Globals
	default:
		return Constants
	}
}

// SetVar writes a Thunk into the appropriate region for name, per the
// region-selection rule, returning the updated Memory.
func (m *Memory) SetVar(name string, scope Scope, e Expr) *Memory {
	region := resolveRegion(scope)
	nm := m.regionMap(region).Set(name, e)
	out := m.withRegion(region, nm)
	if region == Globals {
		out = out.markModified(name)
	}
	return out
}

// ForgetVar implements Havoc's "forget bindings" step: it removes the
// cached thunk so the next read re-allocates (and, for constants/globals,
// re-assumes where-clauses), and marks globals modified.
func (m *Memory) ForgetVar(name string, scope Scope) *Memory {
	region := resolveRegion(scope)
	nm := m.regionMap(region).Delete(name)
	out := m.withRegion(region, nm)
	if region == Globals {
		out = out.markModified(name)
	}
	return out
}

// LookupVar reads shadowing Locals, then Globals, then Constants — the
// same order as writes, per §4.1.
func (m *Memory) LookupVar(name string) (Expr, Region, bool) {
	if e, ok := m.locals.Get(name); ok {
		return e, Locals, true
	}
	if e, ok := m.globals.Get(name); ok {
		return e, Globals, true
	}
	if e, ok := m.constants.Get(name); ok {
		return e, Constants, true
	}
	return nil, Locals, false
}

func (m *Memory) markModified(name string) *Memory {
	clone := m.Clone()
	clone.modified = clone.modified.Set(name, true)
	return clone
}

func (m *Memory) IsModified(name string) bool {
	v, _ := m.modified.Get(name)
	return v
}

// ClearModified empties the modified-set, done on procedure entry (§3
// Lifecycle, §4.6 step 1).
func (m *Memory) ClearModified() *Memory {
	clone := m.Clone()
	clone.modified = immutable.NewMap[string, bool](nil)
	return clone
}

// ClearLocals empties the Locals region, done on procedure entry.
func (m *Memory) ClearLocals() *Memory {
	return m.withRegion(Locals, immutable.NewMap[string, Expr](nil))
}

// SnapshotGlobalsToOld copies the current Globals region into Old,
// without sharing mutable state between "current" and "old" (§9
// "Old-values mechanism"). Because the underlying map is itself
// persistent and immutable, the "copy" is just handing out the same
// pointer — further writes to either region produce new maps rather
// than mutating shared structure, so the no-aliasing invariant holds
// for free.
func (m *Memory) SnapshotGlobalsToOld() *Memory {
	return m.withRegion(Old, m.globals)
}

// MergeCleanOld restores the caller's Old on return, except that every
// name the caller had not marked modified keeps the callee's "pre" value
// (the callee's Old entry) — the "clean old" merge from §4.6 step 7 / §9.
// Globals keep the callee's final values.
func (m *Memory) MergeCleanOld(callerOld *Memory) *Memory {
	merged := callerOld.old
	itr := m.old.Iterator()
	for !itr.Done() {
		name, e, _ := itr.Next()
		if !callerOld.IsModified(name) {
			merged = merged.Set(name, e)
		}
	}
	clone := m.Clone()
	clone.old = merged
	return clone
}

// LookupOld reads a name directly out of the Old region, bypassing the
// Locals/Globals/Constants shadowing order LookupVar applies — callers
// that specifically need the pre-call snapshot (old(x) expressions, a
// driver inspecting what changed) read through this instead.
func (m *Memory) LookupOld(name string) (Expr, bool) {
	return m.old.Get(name)
}

// InstallOldIfAbsent seeds Old[name] the first time a global is read,
// per §4.3 "also install Old value if we are in the initial global
// region" — later procedure entries overwrite Old wholesale via
// SnapshotGlobalsToOld, so this only matters before the first call.
func (m *Memory) InstallOldIfAbsent(name string, e Expr) *Memory {
	if _, ok := m.old.Get(name); ok {
		return m
	}
	return m.withRegion(Old, m.old.Set(name, e))
}

// FreshLogical allocates a fresh Ref of the given type (§4.1
// fresh_logical).
func (m *Memory) FreshLogical() Ref {
	return m.refs.alloc()
}

// FreshMapRef allocates a fresh map Ref and seeds the heap with an empty
// instance of the given map type (§4.1 fresh_map_ref).
func (m *Memory) FreshMapRef(mapType Type) (*Memory, Ref) {
	r := m.refs.alloc()
	clone := m.Clone()
	clone.mapHeap = clone.mapHeap.Set(r, NewMapInstance(mapType))
	return clone, r
}

func (m *Memory) GetMapInstance(r Ref) (*MapInstance, bool) {
	return m.mapHeap.Get(r)
}

// CollectRefs walks every region and the whole map heap (each
// materialized point's argument and value thunks, plus the map ref
// itself) to find every logical Ref still reachable from the visible
// store, paired with its Type. This is the full set solve_and_concretize
// (manager.go) asks the Solver Facade to assign a model for when a
// caller doesn't narrow it to a specific vars set of its own — without
// it, a Ref that is live in the store but never mentioned in a
// constraint would never get concretized (P5).
func (m *Memory) CollectRefs() map[Ref]Type {
	out := map[Ref]Type{}
	collect := func(e Expr) {
		WalkExpr(e, func(n Expr) Expr {
			if r, ok := n.(*RefExpr); ok {
				out[r.Ref] = r.T
			}
			return n
		})
	}
	for _, rm := range [...]*immutable.Map[string, Expr]{m.locals, m.globals, m.old, m.constants} {
		itr := rm.Iterator()
		for !itr.Done() {
			_, e, _ := itr.Next()
			collect(e)
		}
	}
	itr := m.mapHeap.Iterator()
	for !itr.Done() {
		ref, inst, _ := itr.Next()
		if _, ok := out[ref]; !ok {
			out[ref] = inst.MapType
		}
		for u := inst.head; u != nil; u = u.next {
			for _, a := range u.args {
				collect(a)
			}
			collect(u.val)
		}
	}
	return out
}

// mapHeapSnapshot flattens the persistent map heap into a plain Go map
// for callers (manager.go's buildConstraintSet/reconcretizeMaps) that
// need to range over every materialized map instance at once.
func (m *Memory) mapHeapSnapshot() map[Ref]*MapInstance {
	out := make(map[Ref]*MapInstance, m.mapHeap.Len())
	itr := m.mapHeap.Iterator()
	for !itr.Done() {
		ref, inst, _ := itr.Next()
		out[ref] = inst
	}
	return out
}

func (m *Memory) SetMapValue(r Ref, args []Expr, thunk Expr) *Memory {
	inst, ok := m.mapHeap.Get(r)
	if !ok {
		panicInvariant("SetMapValue: unknown map ref %d", r)
	}
	clone := m.Clone()
	clone.mapHeap = clone.mapHeap.Set(r, inst.Store(args, thunk))
	return clone
}

// SetLogical records the solver's assignment for a Ref (memLogical in
// §4.7's solve_and_concretize).
func (m *Memory) SetLogical(r Ref, v Value) *Memory {
	clone := m.Clone()
	clone.logical = clone.logical.Set(r, v)
	return clone
}

func (m *Memory) Logical(r Ref) (Value, bool) {
	return m.logical.Get(r)
}

func panicInvariant(format string, args ...interface{}) {
	assert(false, format, args...)
}
