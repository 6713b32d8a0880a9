package ivsym

// Point is a materialized `(map_ref, arg_tuple)` selection awaiting
// propagation of its map constraints (§3 glossary "Point").
type Point struct {
	MapRef Ref
	Args   []Expr
}

// ParametricConstraint is `λ formals. guard ⇒ body`, attached to a map
// Ref by the Quantifier & Constraint Extractor (§4.4). An unguarded
// constraint carries a Guard that is the literal `true`.
type ParametricConstraint struct {
	Formals []Binder
	Guard   Expr
	Body    Expr
}

func (pc *ParametricConstraint) isUnguarded() bool {
	v, ok := AsLiteral(pc.Guard)
	if !ok {
		return false
	}
	b, ok := v.(BooleanValue)
	return ok && b.B
}

type mapCaseKey struct {
	Ref   Ref
	Index int
}

// ConstraintStore holds everything described in §3 "Constraint Store":
// logical constraints, per-name constraints split {Globals, Locals},
// per-map parametric constraints, the point queue and its case-use
// counters, plus the `changed` dirty flag.
//
// The engine keeps one store for a whole execution and does not clone
// it; Clone is there for callers that want an independent copy. Slices
// are always extended through a full slice expression so appends on a
// clone never
// alias a sibling's backing array (the append-only discipline spec.md
// §9 "Lazy constraints" calls for).
type ConstraintStore struct {
	logical []Expr

	nameGlobals map[string][]Expr
	nameLocals  map[string][]Expr

	mapConstraints map[Ref][]*ParametricConstraint

	pointQueue []Point
	queuedSet  map[Ref]map[string]bool // dedupe key: args formatted

	changed bool

	mapCaseCounts map[mapCaseKey]int

	// SkolemSkips counts existentials left opaque during extraction
	// (Open Question 1, spec.md §9.1), surfaced as TestCase.SkolemizationTODOs.
	SkolemSkips int
}

func NewConstraintStore() *ConstraintStore {
	return &ConstraintStore{
		nameGlobals:    map[string][]Expr{},
		nameLocals:     map[string][]Expr{},
		mapConstraints: map[Ref][]*ParametricConstraint{},
		queuedSet:      map[Ref]map[string]bool{},
		mapCaseCounts:  map[mapCaseKey]int{},
	}
}

// Clone copies every map/slice shallowly-but-safely: maps are copied
// key-by-key (Go maps always alias otherwise) and slices are re-sliced
// to their own length so a later append on either fork reallocates.
func (cs *ConstraintStore) Clone() *ConstraintStore {
	clone := &ConstraintStore{
		logical:       cloneExprSlice(cs.logical),
		nameGlobals:   cloneExprMap(cs.nameGlobals),
		nameLocals:    cloneExprMap(cs.nameLocals),
		pointQueue:    clonePoints(cs.pointQueue),
		changed:       cs.changed,
		mapCaseCounts: make(map[mapCaseKey]int, len(cs.mapCaseCounts)),
		SkolemSkips:   cs.SkolemSkips,
	}
	clone.mapConstraints = make(map[Ref][]*ParametricConstraint, len(cs.mapConstraints))
	for r, pcs := range cs.mapConstraints {
		clone.mapConstraints[r] = append([]*ParametricConstraint(nil), pcs...)
	}
	clone.queuedSet = make(map[Ref]map[string]bool, len(cs.queuedSet))
	for r, set := range cs.queuedSet {
		inner := make(map[string]bool, len(set))
		for k, v := range set {
			inner[k] = v
		}
		clone.queuedSet[r] = inner
	}
	for k, v := range cs.mapCaseCounts {
		clone.mapCaseCounts[k] = v
	}
	return clone
}

func cloneExprSlice(s []Expr) []Expr {
	return append([]Expr(nil), s...)
}

func cloneExprMap(m map[string][]Expr) map[string][]Expr {
	out := make(map[string][]Expr, len(m))
	for k, v := range m {
		out[k] = append([]Expr(nil), v...)
	}
	return out
}

func clonePoints(s []Point) []Point {
	return append([]Point(nil), s...)
}

// ExtendLogical implements §4.2 extend_logical: a literal True is a
// no-op, a literal False raises Unreachable at its position, anything
// else is appended and marks the store dirty. AND-conjunctions are
// split into separate entries so check_sat's incremental re-assertion
// stays fine-grained, matching the teacher's ExecutionState.AddConstraint.
func (cs *ConstraintStore) ExtendLogical(e Expr) *outcome {
	if bin, ok := e.(*BinaryExpr); ok && bin.Op == OpAnd {
		if o := cs.ExtendLogical(bin.X); o != nil {
			return o
		}
		return cs.ExtendLogical(bin.Y)
	}
	if v, ok := AsLiteral(e); ok {
		if b, ok := v.(BooleanValue); ok {
			if b.B {
				return nil
			}
			return unreachableAt(e.Position())
		}
	}
	cs.logical = append(cs.logical[:len(cs.logical):len(cs.logical)], e)
	cs.changed = true
	return nil
}

// ExtendName implements §4.2 extend_name: register thunk under every
// free variable's entry in name_constraints[scope].
func (cs *ConstraintStore) ExtendName(scope Region, e Expr) {
	bucket := cs.nameLocals
	if scope == Globals || scope == Constants || scope == Old {
		bucket = cs.nameGlobals
	}
	for name := range FreeVars(e) {
		bucket[name] = append(bucket[name][:len(bucket[name]):len(bucket[name])], e)
	}
}

func (cs *ConstraintStore) NameConstraints(name string) []Expr {
	out := append([]Expr(nil), cs.nameLocals[name]...)
	out = append(out, cs.nameGlobals[name]...)
	return out
}

// ExtendMap implements §4.2 extend_map: append the constraint, then
// re-enqueue every already-materialized point of ref not currently
// queued, so the new constraint gets applied retroactively.
func (cs *ConstraintStore) ExtendMap(ref Ref, pc *ParametricConstraint, instance *MapInstance) {
	cs.mapConstraints[ref] = append(cs.mapConstraints[ref][:len(cs.mapConstraints[ref]):len(cs.mapConstraints[ref])], pc)
	for _, args := range instance.Points() {
		cs.Enqueue(ref, args)
	}
}

func pointKey(args []Expr) string {
	s := ""
	for _, a := range args {
		s += a.String() + "|"
	}
	return s
}

// Enqueue adds (ref, args) to the point queue unless already present.
func (cs *ConstraintStore) Enqueue(ref Ref, args []Expr) {
	set, ok := cs.queuedSet[ref]
	if !ok {
		set = map[string]bool{}
		cs.queuedSet[ref] = set
	}
	key := pointKey(args)
	if set[key] {
		return
	}
	set[key] = true
	cs.pointQueue = append(cs.pointQueue[:len(cs.pointQueue):len(cs.pointQueue)], Point{MapRef: ref, Args: args})
}

// Dequeue removes and returns the oldest queued point, FIFO, matching
// "queue" semantics in §4.7 check_sat.
func (cs *ConstraintStore) Dequeue() (Point, bool) {
	if len(cs.pointQueue) == 0 {
		return Point{}, false
	}
	p := cs.pointQueue[0]
	cs.pointQueue = cs.pointQueue[1:]
	delete(cs.queuedSet[p.MapRef], pointKey(p.Args))
	return p, true
}

func (cs *ConstraintStore) HasWork() bool {
	return cs.changed || len(cs.pointQueue) > 0
}

func (cs *ConstraintStore) ClearChanged() {
	cs.changed = false
}

// ConstraintsFor returns the parametric constraints attached to ref, in
// registration order (unguarded constraints first is not guaranteed —
// callers that need to separate them use isUnguarded per entry).
func (cs *ConstraintStore) ConstraintsFor(ref Ref) []*ParametricConstraint {
	return cs.mapConstraints[ref]
}

// LogicalConstraints returns every top-level logical constraint
// accumulated so far (§3 "Constraint Store").
func (cs *ConstraintStore) LogicalConstraints() []Expr {
	return cs.logical
}

// LeastUsedCase picks, among the candidate constraint indices for ref,
// the one with the smallest map_case_counts entry, ties broken by the
// Generator — §4.4 "Guarded application". The chosen index's counter is
// then incremented.
func (cs *ConstraintStore) LeastUsedCase(ref Ref, candidates []int, gen Generator) int {
	best := candidates[0]
	bestCount := cs.mapCaseCounts[mapCaseKey{ref, best}]
	var tied []int
	for _, idx := range candidates {
		c := cs.mapCaseCounts[mapCaseKey{ref, idx}]
		if c < bestCount {
			bestCount = c
			best = idx
			tied = []int{best}
		} else if c == bestCount {
			tied = append(tied, idx)
		}
	}
	if len(tied) > 1 {
		best = tied[gen.GenIndex(len(tied))]
	}
	cs.mapCaseCounts[mapCaseKey{ref, best}]++
	return best
}
