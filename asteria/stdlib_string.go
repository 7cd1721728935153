package asteria

import "strings"

// String stdlib bindings (spec §1's "string" collaborator).
func stringModuleFns() map[string]NativeFunc {
	return map[string]NativeFunc{
		"upper": func(_ *Execution, args []Value) (Value, error) {
			s, err := argString("string.upper", args, 0)
			if err != nil {
				return Value{}, err
			}
			return String(strings.ToUpper(s)), nil
		},
		"lower": func(_ *Execution, args []Value) (Value, error) {
			s, err := argString("string.lower", args, 0)
			if err != nil {
				return Value{}, err
			}
			return String(strings.ToLower(s)), nil
		},
		"trim": func(_ *Execution, args []Value) (Value, error) {
			s, err := argString("string.trim", args, 0)
			if err != nil {
				return Value{}, err
			}
			return String(strings.TrimSpace(s)), nil
		},
		"split": func(exec *Execution, args []Value) (Value, error) {
			s, err := argString("string.split", args, 0)
			if err != nil {
				return Value{}, err
			}
			sep, err := argString("string.split", args, 1)
			if err != nil {
				return Value{}, err
			}
			parts := strings.Split(s, sep)
			arr := NewArray(len(parts))
			for _, p := range parts {
				cell := exec.gc.CreateVariable(GenYoungest)
				cell.Assign(String(p))
				exec.gc.Retain(cell)
				arr.Append(cell)
			}
			return ArrayValue(arr), nil
		},
		"join": func(_ *Execution, args []Value) (Value, error) {
			v := argAt(args, 0)
			sep, err := argString("string.join", args, 1)
			if err != nil {
				return Value{}, err
			}
			if v.Kind() != KindArray {
				return Value{}, &RuntimeError{Message: "string.join: expected an array argument"}
			}
			parts := make([]string, 0, v.AsArray().Len())
			for _, cell := range v.AsArray().Slots() {
				parts = append(parts, describeValue(cell.Get()))
			}
			return String(strings.Join(parts, sep)), nil
		},
		"contains": func(_ *Execution, args []Value) (Value, error) {
			s, err := argString("string.contains", args, 0)
			if err != nil {
				return Value{}, err
			}
			sub, err := argString("string.contains", args, 1)
			if err != nil {
				return Value{}, err
			}
			return Bool(strings.Contains(s, sub)), nil
		},
		"replace": func(_ *Execution, args []Value) (Value, error) {
			s, err := argString("string.replace", args, 0)
			if err != nil {
				return Value{}, err
			}
			old, err := argString("string.replace", args, 1)
			if err != nil {
				return Value{}, err
			}
			newv, err := argString("string.replace", args, 2)
			if err != nil {
				return Value{}, err
			}
			return String(strings.ReplaceAll(s, old, newv)), nil
		},
	}
}
