package asteria

import "fmt"

// ValueKind identifies which alternative of the tagged sum a Value holds
// (spec §3.2).
type ValueKind int

const (
	KindNull ValueKind = iota
	KindBool
	KindInt
	KindReal
	KindString
	KindArray
	KindObject
	KindFunction
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindInt:
		return "integer"
	case KindReal:
		return "real"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindFunction:
		return "function"
	default:
		return "invalid"
	}
}

// Value is a tagged union over the eight kinds in spec §3.2. Composite
// kinds (array, object, function) never embed another Value directly: they
// hold Variable references, so a cell's contents can be mutated in place
// and observed through every alias.
type Value struct {
	kind ValueKind
	data any // nil, bool, int64, float64, string, *Array, *Object, *Function
}

func Null() Value                 { return Value{kind: KindNull} }
func Bool(b bool) Value           { return Value{kind: KindBool, data: b} }
func Int(i int64) Value           { return Value{kind: KindInt, data: i} }
func Real(f float64) Value        { return Value{kind: KindReal, data: f} }
func String(s string) Value       { return Value{kind: KindString, data: s} }
func ArrayValue(a *Array) Value   { return Value{kind: KindArray, data: a} }
func ObjectValue(o *Object) Value { return Value{kind: KindObject, data: o} }
func FunctionValue(f *Function) Value {
	return Value{kind: KindFunction, data: f}
}

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsNull() bool    { return v.kind == KindNull }

func (v Value) AsBool() bool         { b, _ := v.data.(bool); return b }
func (v Value) AsInt() int64         { i, _ := v.data.(int64); return i }
func (v Value) AsReal() float64      { f, _ := v.data.(float64); return f }
func (v Value) AsString() string     { s, _ := v.data.(string); return s }
func (v Value) AsArray() *Array      { a, _ := v.data.(*Array); return a }
func (v Value) AsObject() *Object    { o, _ := v.data.(*Object); return o }
func (v Value) AsFunction() *Function {
	f, _ := v.data.(*Function)
	return f
}

// String renders v for display: strings print verbatim, everything else
// prints its kind name (composite values have no canonical textual form
// in the core language, per spec §3.2).
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.AsString()
	case KindNull:
		return "null"
	case KindBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case KindInt:
		return fmt.Sprintf("%d", v.AsInt())
	case KindReal:
		return fmt.Sprintf("%g", v.AsReal())
	default:
		return v.kind.String()
	}
}

// Truthy applies Asteria's boolean-coercion rule: null and false are
// falsy, everything else (including 0, 0.0, "" and empty containers) is
// truthy — only null and boolean false are ever implicitly coerced.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.AsBool()
	default:
		return true
	}
}

// ForEachReferencedVariable is the visitor contract of spec §4.2/§6.4: for
// composite values it invokes fn once per owned Variable reference; for
// null/boolean/integer/real/string it visits nothing. The visitor must be
// side-effect-free and idempotent, since the GC may run it more than once
// per collection pass.
func (v Value) ForEachReferencedVariable(fn func(*Variable)) {
	switch v.kind {
	case KindArray:
		if a := v.AsArray(); a != nil {
			for _, cell := range a.slots {
				fn(cell)
			}
		}
	case KindObject:
		if o := v.AsObject(); o != nil {
			for _, cell := range o.slots {
				fn(cell)
			}
		}
	case KindFunction:
		if f := v.AsFunction(); f != nil {
			for _, cell := range f.Captured {
				fn(cell)
			}
		}
	}
}

// Array is an ordered sequence of Variable references (spec §3.2).
type Array struct {
	slots []*Variable
}

func NewArray(cap int) *Array {
	return &Array{slots: make([]*Variable, 0, cap)}
}

func (a *Array) Len() int             { return len(a.slots) }
func (a *Array) At(i int) *Variable   { return a.slots[i] }
func (a *Array) Append(v *Variable)   { a.slots = append(a.slots, v) }
func (a *Array) Slots() []*Variable   { return a.slots }
func (a *Array) Set(i int, v *Variable) *Variable {
	old := a.slots[i]
	a.slots[i] = v
	return old
}

// Truncate drops elements at and beyond i, returning the dropped cells so
// the caller can release them.
func (a *Array) Truncate(i int) []*Variable {
	dropped := a.slots[i:]
	a.slots = a.slots[:i]
	return dropped
}

// Object is an insertion-ordered mapping from unique string keys to
// Variable references (spec §3.2). No third-party ordered-map dependency
// appears anywhere in the retrieved example pack, so this keeps the
// standard-library slice-plus-map idiom the pack itself uses for ordered
// records (see [[teacher-ordered-collections]] in the design ledger).
type Object struct {
	order []string
	index map[string]int
	slots []*Variable
}

func NewObject() *Object {
	return &Object{index: make(map[string]int)}
}

func (o *Object) Len() int { return len(o.order) }

func (o *Object) Get(key string) (*Variable, bool) {
	i, ok := o.index[key]
	if !ok {
		return nil, false
	}
	return o.slots[i], true
}

// Set inserts or replaces the cell for key, returning the previous cell (if
// any) so the caller can release it.
func (o *Object) Set(key string, v *Variable) (*Variable, bool) {
	if i, ok := o.index[key]; ok {
		old := o.slots[i]
		o.slots[i] = v
		return old, true
	}
	o.index[key] = len(o.order)
	o.order = append(o.order, key)
	o.slots = append(o.slots, v)
	return nil, false
}

// Delete removes key, returning its cell for release (used by `unset`).
func (o *Object) Delete(key string) (*Variable, bool) {
	i, ok := o.index[key]
	if !ok {
		return nil, false
	}
	removed := o.slots[i]
	o.order = append(o.order[:i], o.order[i+1:]...)
	o.slots = append(o.slots[:i], o.slots[i+1:]...)
	delete(o.index, key)
	for k := i; k < len(o.order); k++ {
		o.index[o.order[k]] = k
	}
	return removed, true
}

func (o *Object) Keys() []string      { return o.order }
func (o *Object) Slots() []*Variable  { return o.slots }
