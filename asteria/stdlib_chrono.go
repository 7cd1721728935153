package asteria

import (
	"time"

	"github.com/ncruces/go-strftime"
)

// Chrono stdlib bindings (spec §1's "chrono" collaborator). `format` uses
// go-strftime (already pulled in transitively by modernc.org/sqlite) for
// C-style format strings rather than Go's reference-date layout, since a
// scripting language's users are far more likely to know `%Y-%m-%d` than
// `2006-01-02`.
func chronoModuleFns() map[string]NativeFunc {
	return map[string]NativeFunc{
		"now": func(_ *Execution, _ []Value) (Value, error) {
			return Real(float64(time.Now().UnixNano()) / 1e9), nil
		},
		"format": func(_ *Execution, args []Value) (Value, error) {
			epoch := argAt(args, 0)
			if epoch.Kind() != KindInt && epoch.Kind() != KindReal {
				return Value{}, &RuntimeError{Message: "chrono.format: expected a numeric timestamp"}
			}
			layout, err := argString("chrono.format", args, 1)
			if err != nil {
				return Value{}, err
			}
			secs := epoch.AsReal()
			if epoch.Kind() == KindInt {
				secs = float64(epoch.AsInt())
			}
			t := time.Unix(0, int64(secs*1e9)).UTC()
			out := strftime.Format(layout, t)
			return String(out), nil
		},
		"elapsed_ms": func(_ *Execution, args []Value) (Value, error) {
			startSecs := argAt(args, 0)
			if startSecs.Kind() != KindReal && startSecs.Kind() != KindInt {
				return Value{}, &RuntimeError{Message: "chrono.elapsed_ms: expected a numeric timestamp"}
			}
			start := startSecs.AsReal()
			if startSecs.Kind() == KindInt {
				start = float64(startSecs.AsInt())
			}
			now := float64(time.Now().UnixNano()) / 1e9
			return Real((now - start) * 1000), nil
		},
	}
}
