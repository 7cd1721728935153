package asteria

// Memory-quota estimation, grounded on the teacher's memoryEstimator: walk
// the live environment graph, summing rough per-kind byte costs and
// de-duplicating shared containers/strings by identity so aliasing isn't
// double-charged.

import "github.com/dustin/go-humanize"

const (
	estimatedCellBytes  = 32
	estimatedValueBytes = 24
	estimatedEnvBytes   = 16
	estimatedSliceBytes = 24
	estimatedMapBytes   = 48
	estimatedEntryBytes = 32
)

type memoryEstimator struct {
	seenEnvs   map[*Env]struct{}
	seenCells  map[*Variable]struct{}
	seenArrays map[*Array]struct{}
	seenObjs   map[*Object]struct{}
}

func newMemoryEstimator() *memoryEstimator {
	return &memoryEstimator{
		seenEnvs:   make(map[*Env]struct{}),
		seenCells:  make(map[*Variable]struct{}),
		seenArrays: make(map[*Array]struct{}),
		seenObjs:   make(map[*Object]struct{}),
	}
}

// checkMemory enforces exec.memoryQuota, if any, against the current
// environment stack's estimated footprint.
func (exec *Execution) checkMemory(pos Position) error {
	if exec.memoryQuota <= 0 {
		return nil
	}
	est := newMemoryEstimator()
	total := 0
	for _, env := range exec.envStack {
		total += est.env(env)
	}
	if total > exec.memoryQuota {
		return exec.fault(pos, "memory quota exceeded: using %s, limit %s",
			humanize.Bytes(uint64(total)), humanize.Bytes(uint64(exec.memoryQuota)))
	}
	return nil
}

func (est *memoryEstimator) env(e *Env) int {
	if e == nil {
		return 0
	}
	if _, seen := est.seenEnvs[e]; seen {
		return 0
	}
	est.seenEnvs[e] = struct{}{}

	size := estimatedEnvBytes + estimatedMapBytes + len(e.names)*estimatedEntryBytes
	for name, cell := range e.names {
		size += estimatedValueBytes + len(name)
		size += est.cell(cell)
	}
	size += est.env(e.parent)
	return size
}

func (est *memoryEstimator) cell(v *Variable) int {
	if v == nil {
		return 0
	}
	if _, seen := est.seenCells[v]; seen {
		return 0
	}
	est.seenCells[v] = struct{}{}
	return estimatedCellBytes + est.value(v.value)
}

func (est *memoryEstimator) value(v Value) int {
	size := estimatedValueBytes
	switch v.Kind() {
	case KindString:
		size += len(v.AsString())
	case KindArray:
		size += est.array(v.AsArray())
	case KindObject:
		size += est.object(v.AsObject())
	case KindFunction:
		if fn := v.AsFunction(); fn != nil {
			for _, cell := range fn.Captured {
				size += est.cell(cell)
			}
		}
	}
	return size
}

func (est *memoryEstimator) array(a *Array) int {
	if a == nil {
		return 0
	}
	if _, seen := est.seenArrays[a]; seen {
		return 0
	}
	est.seenArrays[a] = struct{}{}
	size := estimatedSliceBytes + len(a.slots)*8
	for _, cell := range a.slots {
		size += est.cell(cell)
	}
	return size
}

func (est *memoryEstimator) object(o *Object) int {
	if o == nil {
		return 0
	}
	if _, seen := est.seenObjs[o]; seen {
		return 0
	}
	est.seenObjs[o] = struct{}{}
	size := estimatedMapBytes + len(o.slots)*estimatedEntryBytes
	for i, key := range o.order {
		size += len(key)
		size += est.cell(o.slots[i])
	}
	return size
}
