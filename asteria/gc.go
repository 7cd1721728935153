package asteria

// GarbageCollector allocates Variable cells, classifies them into
// generations, and periodically reclaims cells participating in
// unreachable reference cycles that plain reference counting cannot free
// (spec §4.3). The tracing algorithm below is a direct port of the
// classical Python cycle-collection scheme used by the original
// implementation's do_collect_generation (asteria/src/runtime/garbage_collector.cpp);
// only the container types differ (Go maps keyed by pointer identity in
// place of the source's intrusive hash sets).
type GarbageCollector struct {
	recur   int
	pool    []*Variable
	tracked [generationCount]map[*Variable]struct{}
	counts  [generationCount]int
	thres   [generationCount]int

	staged      map[*Variable]struct{}
	temp1       map[*Variable]struct{}
	temp2       map[*Variable]struct{}
	unreachable map[*Variable]struct{}
	reachable   map[*Variable]struct{}
}

// NewGarbageCollector returns a collector with the default thresholds
// {10, 70, 500} for {youngest, middle, oldest} (spec §3.4).
func NewGarbageCollector() *GarbageCollector {
	gc := &GarbageCollector{
		thres: [generationCount]int{10, 70, 500},
	}
	for g := range gc.tracked {
		gc.tracked[g] = make(map[*Variable]struct{})
	}
	return gc
}

// GetThreshold and SetThreshold expose per-generation tuning (spec §6.3).
func (gc *GarbageCollector) GetThreshold(gen Generation) int {
	return gc.thres[gen]
}

func (gc *GarbageCollector) SetThreshold(gen Generation, n int) {
	gc.thres[gen] = n
}

// CountTracked returns the number of cells currently tracked in gen.
func (gc *GarbageCollector) CountTracked(gen Generation) int {
	return len(gc.tracked[gen])
}

// CountPooled returns the number of cells sitting in the reuse pool.
func (gc *GarbageCollector) CountPooled() int {
	return len(gc.pool)
}

// CreateVariable allocates a Variable, running any collections whose
// threshold has been reached (youngest to oldest, per spec §4.3 step 1),
// then tracks the returned cell under genHint.
func (gc *GarbageCollector) CreateVariable(genHint Generation) *Variable {
	for g := GenYoungest; g <= GenOldest; g++ {
		if gc.counts[g] >= gc.thres[g] {
			gc.doCollectGeneration(g)
		}
	}

	var v *Variable
	if n := len(gc.pool); n > 0 {
		v = gc.pool[n-1]
		gc.pool = gc.pool[:n-1]
		*v = Variable{mutable: true}
	} else {
		v = newVariable()
	}

	v.generation = genHint
	gc.tracked[genHint][v] = struct{}{}
	gc.counts[genHint]++
	return v
}

// Retain increments v's reference count. Every place that stores a
// Variable pointer into a container slot (array element, object member,
// closure capture, stack/environment binding) must call this exactly once
// per stored reference (spec §3.3: refcount counts "stack slots, array
// slots, object slots, closure slots, root references").
func (gc *GarbageCollector) Retain(v *Variable) {
	if v == nil {
		return
	}
	v.refcount++
}

// Release decrements v's reference count. When it reaches zero and v is
// not reachable from another live cell, the cell is destroyed immediately
// per spec §3.3(a); this is the non-cyclic fast path. Cyclic garbage is
// left for a traced collection (spec §3.3(b), doCollectGeneration).
func (gc *GarbageCollector) Release(v *Variable) {
	if v == nil {
		return
	}
	v.refcount--
	if v.refcount > 0 {
		return
	}
	gc.destroy(v)
}

// destroy tears down a cell whose refcount has reached zero outside of any
// tracked-set reference, releasing every Variable it in turn owned.
func (gc *GarbageCollector) destroy(v *Variable) {
	var owned []*Variable
	v.forEachReferencedVariable(func(c *Variable) { owned = append(owned, c) })
	v.uninitialize()
	delete(gc.tracked[v.generation], v)
	gc.pool = append(gc.pool, v)
	for _, c := range owned {
		gc.Release(c)
	}
}

// doCollectGeneration runs one generational tracing pass over gen (spec
// §4.3), following the shape of the original's do_collect_generation:
//
//	0. re-entry guard
//	1. copy refcounts into scratch, seeded from the tracked set
//	2. discover internal references by draining temp_1, counting every
//	   reference into scratch with multiplicity as it is found (staged
//	   only dedups which cells still need their own outgoing edges walked)
//	3. partition into reachable / unreachable, propagating reachability
//	4. reclaim unreachable cells
//	5. promote survivors to the next generation
//	6. reset the generation's counter, but only on normal completion
//
// A cell is unreachable once every reference to it is accounted for by
// scratch: scratch starts at 1 for being in the traced set at all, plus one
// more for each reference to it originating from a cell transitively
// reachable from the traced set, so a cell with no hold from outside the
// trace satisfies gcScratch == refcount + 1. A cell referenced twice from
// within the trace (two array slots or two object members pointing at the
// same cell, a diamond, a self-reference) must count both of those
// references, not just the first — counting distinct *cells* that point to
// it instead of distinct *references* undercounts gcScratch for any cell
// with internal in-degree above 1 and wrongly keeps it reachable forever.
// CreateVariable does not itself Retain a cell just for being tracked,
// unlike the source's owning-map insert, so the seed carries no extra
// baseline to subtract.
func (gc *GarbageCollector) doCollectGeneration(gen Generation) int {
	if gc.recur > 0 {
		return 0
	}
	gc.recur++
	defer func() { gc.recur-- }()

	tracked := gc.tracked[gen]
	gc.staged = make(map[*Variable]struct{})
	gc.temp1 = make(map[*Variable]struct{})
	gc.temp2 = make(map[*Variable]struct{})
	gc.unreachable = make(map[*Variable]struct{})
	gc.reachable = make(map[*Variable]struct{})

	// Step 1: every cell directly in `tracked` is referenced once by the
	// tracked set itself. Seeding `staged` with the same cells marks them
	// as already queued for their own scan, so a tracked cell that is also
	// pointed to by another tracked cell (any cycle among two or more
	// generation members, including a self-reference) doesn't get walked
	// a second time in step 2 below.
	for v := range tracked {
		v.gcScratch = 1
		gc.staged[v] = struct{}{}
		gc.temp1[v] = struct{}{}
	}

	// Step 2: discover everything transitively reachable from `tracked`,
	// counting every reference into gcScratch with multiplicity as it is
	// found. `staged` dedups which cells still need their own outgoing
	// edges walked — each cell's edges are walked exactly once — but plays
	// no part in the count itself, so a cell referenced twice from within
	// the trace (two slots of the same array, two members of the same
	// object, a self-reference) is counted twice, matching spec §4.3 step
	// 3's "number of references... counted with multiplicity."
	for len(gc.temp1) > 0 {
		var v *Variable
		for v = range gc.temp1 {
			break
		}
		delete(gc.temp1, v)

		v.forEachReferencedVariable(func(u *Variable) {
			u.gcScratch++
			if _, seen := gc.staged[u]; !seen {
				gc.staged[u] = struct{}{}
				gc.temp1[u] = struct{}{}
			}
		})
	}

	// Step 3: partition `tracked` ∪ `staged` into reachable/unreachable.
	all := make(map[*Variable]struct{}, len(tracked)+len(gc.staged))
	for v := range tracked {
		all[v] = struct{}{}
	}
	for v := range gc.staged {
		all[v] = struct{}{}
	}
	for v := range all {
		if v.gcScratch == v.refcount+1 {
			gc.unreachable[v] = struct{}{}
			continue
		}
		gc.markReachable(v)
	}

	// Step 4: reclaim unreachable cells. Collect each one's referents
	// before uninitializing, mirroring destroy: uninitializing every
	// unreachable cell first breaks all outgoing references before any
	// cell in the cycle is freed, so no observer ever sees a partially
	// destroyed cycle. Referents outside the unreachable set are then
	// released — a cell the cycle referenced but that also survives on
	// its own (an externally-held cell one of the doomed cells pointed
	// at) had its refcount inflated by that reference, and uninitialize
	// never touches refcounts, so without this the survivor's refcount
	// can never reach zero again.
	nvars := 0
	referents := make(map[*Variable][]*Variable, len(gc.unreachable))
	for v := range gc.unreachable {
		var owned []*Variable
		v.forEachReferencedVariable(func(c *Variable) { owned = append(owned, c) })
		referents[v] = owned
	}
	for v := range gc.unreachable {
		v.uninitialize()
		delete(tracked, v)
		gc.pool = append(gc.pool, v)
		nvars++
	}
	for _, owned := range referents {
		for _, c := range owned {
			if _, dying := gc.unreachable[c]; !dying {
				gc.Release(c)
			}
		}
	}

	// Step 5: promote survivors to the next generation, if any.
	if gen < GenOldest {
		next := gen + 1
		for v := range gc.reachable {
			if _, wasTracked := tracked[v]; wasTracked {
				delete(tracked, v)
				v.generation = next
				gc.tracked[next][v] = struct{}{}
				gc.counts[next]++
			}
		}
	}

	// Step 6: reset the counter only on normal completion.
	gc.counts[gen] = 0
	return nvars
}

// markReachable implements the inner reachability-propagation loop of step
// 3: v and everything transitively reachable from it is moved out of
// `unreachable` (if present) and into `reachable`, with its scratch
// counter cleared.
func (gc *GarbageCollector) markReachable(v *Variable) {
	gc.temp2[v] = struct{}{}
	for len(gc.temp2) > 0 {
		var cur *Variable
		for cur = range gc.temp2 {
			break
		}
		delete(gc.temp2, cur)

		cur.gcScratch = 0
		delete(gc.unreachable, cur)
		if _, already := gc.reachable[cur]; already {
			continue
		}
		gc.reachable[cur] = struct{}{}

		cur.forEachReferencedVariable(func(u *Variable) {
			gc.temp2[u] = struct{}{}
		})
	}
}

// Collect runs doCollectGeneration for every generation up to and
// including genLimit, then clears the reuse pool, returning the total
// number of reclaimed cells (spec §6.3 collect_variables).
func (gc *GarbageCollector) Collect(genLimit Generation) int {
	nvars := 0
	for g := GenYoungest; g <= genLimit; g++ {
		nvars += gc.doCollectGeneration(g)
	}
	gc.pool = nil
	return nvars
}

// Finalize wipes every tracked generation and the reuse pool, returning
// the total number of cells observed. It aborts (spec §7 stratum 2,
// programmer error) if called while a collection is in progress.
func (gc *GarbageCollector) Finalize() int {
	if gc.recur > 0 {
		panic("asteria: garbage collector not finalizable while in use")
	}
	nvars := 0
	for g := GenYoungest; g <= GenOldest; g++ {
		tracked := gc.tracked[g]
		nvars += len(tracked)
		for v := range tracked {
			v.uninitialize()
		}
		gc.tracked[g] = make(map[*Variable]struct{})
	}
	nvars += len(gc.pool)
	gc.pool = nil
	return nvars
}
