package asteria

// Array stdlib bindings, exposed the same way every other module is
// (spec §1's "etc." collaborator, generalized): a plain object of native
// functions bound into the Engine's globals. Array literals and index
// assignment are fixed-length (spec §3.2's reference-container slots are
// bounds-checked, not auto-growing), so growth and shrink live here
// instead of as parser-level syntax.
func arrayModuleFns() map[string]NativeFunc {
	return map[string]NativeFunc{
		"push": func(exec *Execution, args []Value) (Value, error) {
			v := argAt(args, 0)
			if v.Kind() != KindArray {
				return Value{}, &RuntimeError{Message: "array.push: expected an array argument"}
			}
			arr := v.AsArray()
			for _, elem := range args[1:] {
				cell := exec.gc.CreateVariable(GenYoungest)
				cell.Assign(elem)
				exec.gc.Retain(cell)
				arr.Append(cell)
			}
			return Int(int64(arr.Len())), nil
		},
		"pop": func(exec *Execution, args []Value) (Value, error) {
			v := argAt(args, 0)
			if v.Kind() != KindArray {
				return Value{}, &RuntimeError{Message: "array.pop: expected an array argument"}
			}
			arr := v.AsArray()
			if arr.Len() == 0 {
				return Value{}, &RuntimeError{Message: "array.pop: array is empty"}
			}
			dropped := arr.Truncate(arr.Len() - 1)
			last := dropped[0].Get()
			exec.gc.Release(dropped[0])
			return last, nil
		},
		"slice": func(exec *Execution, args []Value) (Value, error) {
			v := argAt(args, 0)
			if v.Kind() != KindArray {
				return Value{}, &RuntimeError{Message: "array.slice: expected an array argument"}
			}
			arr := v.AsArray()
			start, err := argInt("array.slice", args, 1)
			if err != nil {
				return Value{}, err
			}
			end := int64(arr.Len())
			if len(args) > 2 {
				end, err = argInt("array.slice", args, 2)
				if err != nil {
					return Value{}, err
				}
			}
			if start < 0 || end < start || end > int64(arr.Len()) {
				return Value{}, &RuntimeError{Message: "array.slice: index out of range"}
			}
			out := NewArray(int(end - start))
			for _, cell := range arr.Slots()[start:end] {
				fresh := exec.gc.CreateVariable(GenYoungest)
				fresh.Assign(cell.Get())
				exec.gc.Retain(fresh)
				out.Append(fresh)
			}
			return ArrayValue(out), nil
		},
	}
}
