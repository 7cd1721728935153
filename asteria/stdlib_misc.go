package asteria

import (
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// Misc stdlib bindings (spec §1's "etc." collaborator): uuid generation
// (grounded on chazu-maggie's go.mod) and human-readable formatting of
// numbers/byte counts, useful for scripts producing diagnostic output.
func miscModuleFns() map[string]NativeFunc {
	return map[string]NativeFunc{
		"uuid": func(_ *Execution, _ []Value) (Value, error) {
			return String(uuid.NewString()), nil
		},
		"humanize_bytes": func(_ *Execution, args []Value) (Value, error) {
			n, err := argInt("misc.humanize_bytes", args, 0)
			if err != nil {
				return Value{}, err
			}
			return String(humanize.Bytes(uint64(n))), nil
		},
		"humanize_int": func(_ *Execution, args []Value) (Value, error) {
			n, err := argInt("misc.humanize_int", args, 0)
			if err != nil {
				return Value{}, err
			}
			return String(humanize.Comma(n)), nil
		},
	}
}
