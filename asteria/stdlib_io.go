package asteria

import (
	"bytes"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/gzip"
)

// IO stdlib bindings (spec §1's "io" collaborator): binary serialization
// via CBOR (grounded on chazu-maggie's go.mod) and gzip compression
// (grounded on daios-ai-msg's builtin_compression.go, retargeted to
// klauspost/compress's drop-in gzip package).
func ioModuleFns() map[string]NativeFunc {
	return map[string]NativeFunc{
		"encode": func(_ *Execution, args []Value) (Value, error) {
			out, err := cbor.Marshal(valueToJSON(argAt(args, 0)))
			if err != nil {
				return Value{}, &RuntimeError{Message: "io.encode: " + err.Error()}
			}
			return String(string(out)), nil
		},
		"decode": func(exec *Execution, args []Value) (Value, error) {
			s, err := argString("io.decode", args, 0)
			if err != nil {
				return Value{}, err
			}
			var decoded any
			if err := cbor.Unmarshal([]byte(s), &decoded); err != nil {
				return Value{}, &RuntimeError{Message: "io.decode: " + err.Error()}
			}
			return jsonToValue(exec, cborToJSONShape(decoded)), nil
		},
		"compress": func(_ *Execution, args []Value) (Value, error) {
			s, err := argString("io.compress", args, 0)
			if err != nil {
				return Value{}, err
			}
			var buf bytes.Buffer
			zw := gzip.NewWriter(&buf)
			if _, err := zw.Write([]byte(s)); err != nil {
				return Value{}, &RuntimeError{Message: "io.compress: " + err.Error()}
			}
			if err := zw.Close(); err != nil {
				return Value{}, &RuntimeError{Message: "io.compress: " + err.Error()}
			}
			return String(buf.String()), nil
		},
		"decompress": func(_ *Execution, args []Value) (Value, error) {
			s, err := argString("io.decompress", args, 0)
			if err != nil {
				return Value{}, err
			}
			zr, err := gzip.NewReader(bytes.NewReader([]byte(s)))
			if err != nil {
				return Value{}, &RuntimeError{Message: "io.decompress: " + err.Error()}
			}
			defer zr.Close()
			out, err := io.ReadAll(zr)
			if err != nil {
				return Value{}, &RuntimeError{Message: "io.decompress: " + err.Error()}
			}
			return String(string(out)), nil
		},
	}
}

// cborToJSONShape normalizes cbor.Unmarshal's decode shape (map[any]any
// for object-like maps, []byte for byte strings) to the map[string]any/
// []any/string shape jsonToValue expects.
func cborToJSONShape(v any) any {
	switch d := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(d))
		for k, val := range d {
			ks, _ := k.(string)
			out[ks] = cborToJSONShape(val)
		}
		return out
	case []any:
		out := make([]any, len(d))
		for i, elem := range d {
			out[i] = cborToJSONShape(elem)
		}
		return out
	case []byte:
		return string(d)
	default:
		return d
	}
}
