package asteria

import (
	json "github.com/goccy/go-json"
)

// JSON stdlib bindings (spec §1's "json" collaborator), using goccy/go-json
// as a drop-in for encoding/json (grounded on chazu-maggie's go.mod).
func jsonModuleFns() map[string]NativeFunc {
	return map[string]NativeFunc{
		"stringify": func(_ *Execution, args []Value) (Value, error) {
			v := argAt(args, 0)
			out, err := json.Marshal(valueToJSON(v))
			if err != nil {
				return Value{}, &RuntimeError{Message: "json.stringify: " + err.Error()}
			}
			return String(string(out)), nil
		},
		"parse": func(exec *Execution, args []Value) (Value, error) {
			s, err := argString("json.parse", args, 0)
			if err != nil {
				return Value{}, err
			}
			var decoded any
			if err := json.Unmarshal([]byte(s), &decoded); err != nil {
				return Value{}, &RuntimeError{Message: "json.parse: " + err.Error()}
			}
			return jsonToValue(exec, decoded), nil
		},
	}
}

// valueToJSON converts an Asteria Value into a plain Go value that
// encoding/json-compatible marshalers understand.
func valueToJSON(v Value) any {
	switch v.Kind() {
	case KindNull:
		return nil
	case KindBool:
		return v.AsBool()
	case KindInt:
		return v.AsInt()
	case KindReal:
		return v.AsReal()
	case KindString:
		return v.AsString()
	case KindArray:
		arr := v.AsArray()
		out := make([]any, arr.Len())
		for i, cell := range arr.Slots() {
			out[i] = valueToJSON(cell.Get())
		}
		return out
	case KindObject:
		obj := v.AsObject()
		out := make(map[string]any, obj.Len())
		for _, key := range obj.Keys() {
			cell, _ := obj.Get(key)
			out[key] = valueToJSON(cell.Get())
		}
		return out
	default:
		return nil
	}
}

// jsonToValue converts a decoded JSON tree (float64/string/bool/nil/
// []any/map[string]any, per encoding/json's default decode shape) into
// GC-tracked Asteria Values, retaining every newly allocated cell.
func jsonToValue(exec *Execution, decoded any) Value {
	switch d := decoded.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(d)
	case float64:
		if d == float64(int64(d)) {
			return Int(int64(d))
		}
		return Real(d)
	case string:
		return String(d)
	case []any:
		arr := NewArray(len(d))
		for _, elem := range d {
			cell := exec.gc.CreateVariable(GenYoungest)
			cell.Assign(jsonToValue(exec, elem))
			exec.gc.Retain(cell)
			arr.Append(cell)
		}
		return ArrayValue(arr)
	case map[string]any:
		obj := NewObject()
		for key, elem := range d {
			cell := exec.gc.CreateVariable(GenYoungest)
			cell.Assign(jsonToValue(exec, elem))
			exec.gc.Retain(cell)
			obj.Set(key, cell)
		}
		return ObjectValue(obj)
	default:
		return Null()
	}
}
