package asteria

import (
	"database/sql"
	"os"

	_ "modernc.org/sqlite"
)

// Filesystem stdlib bindings (spec §1's "filesystem" collaborator).
// `fs.open_db` is grounded on the teacher's capability_db.go pattern
// (a host-backed data-access capability exposed to scripts as bound
// functions), collapsed from the teacher's job-queue/contract-scanner
// machinery down to one concrete binding backed by a real embedded
// database (modernc.org/sqlite, a pure-Go SQLite driver) instead of the
// teacher's interface-adapter abstraction, since Asteria has no
// host-authorization boundary to mediate.
func fsModuleFns() map[string]NativeFunc {
	return map[string]NativeFunc{
		"read": func(_ *Execution, args []Value) (Value, error) {
			path, err := argString("fs.read", args, 0)
			if err != nil {
				return Value{}, err
			}
			data, ioErr := os.ReadFile(path)
			if ioErr != nil {
				return Value{}, &RuntimeError{Message: "fs.read: " + ioErr.Error()}
			}
			return String(string(data)), nil
		},
		"write": func(_ *Execution, args []Value) (Value, error) {
			path, err := argString("fs.write", args, 0)
			if err != nil {
				return Value{}, err
			}
			data, err := argString("fs.write", args, 1)
			if err != nil {
				return Value{}, err
			}
			if ioErr := os.WriteFile(path, []byte(data), 0o644); ioErr != nil {
				return Value{}, &RuntimeError{Message: "fs.write: " + ioErr.Error()}
			}
			return Bool(true), nil
		},
		"exists": func(_ *Execution, args []Value) (Value, error) {
			path, err := argString("fs.exists", args, 0)
			if err != nil {
				return Value{}, err
			}
			_, statErr := os.Stat(path)
			return Bool(statErr == nil), nil
		},
		"open_db": func(exec *Execution, args []Value) (Value, error) {
			path, err := argString("fs.open_db", args, 0)
			if err != nil {
				return Value{}, err
			}
			db, sqlErr := sql.Open("sqlite", path)
			if sqlErr != nil {
				return Value{}, &RuntimeError{Message: "fs.open_db: " + sqlErr.Error()}
			}
			if pingErr := db.Ping(); pingErr != nil {
				return Value{}, &RuntimeError{Message: "fs.open_db: " + pingErr.Error()}
			}
			return newDBHandle(exec, db), nil
		},
	}
}

// newDBHandle wraps an open *sql.DB as an object of bound native
// functions (exec/query), the shape every capability adapter in the
// teacher exposes to script code.
func newDBHandle(exec *Execution, db *sql.DB) Value {
	fns := map[string]NativeFunc{
		"exec": func(_ *Execution, args []Value) (Value, error) {
			stmt, err := argString("db.exec", args, 0)
			if err != nil {
				return Value{}, err
			}
			res, sqlErr := db.Exec(stmt)
			if sqlErr != nil {
				return Value{}, &RuntimeError{Message: "db.exec: " + sqlErr.Error()}
			}
			n, _ := res.RowsAffected()
			return Int(n), nil
		},
		"query": func(exec *Execution, args []Value) (Value, error) {
			stmt, err := argString("db.query", args, 0)
			if err != nil {
				return Value{}, err
			}
			rows, sqlErr := db.Query(stmt)
			if sqlErr != nil {
				return Value{}, &RuntimeError{Message: "db.query: " + sqlErr.Error()}
			}
			defer rows.Close()
			cols, _ := rows.Columns()
			result := NewArray(0)
			for rows.Next() {
				vals := make([]any, len(cols))
				ptrs := make([]any, len(cols))
				for i := range vals {
					ptrs[i] = &vals[i]
				}
				if scanErr := rows.Scan(ptrs...); scanErr != nil {
					return Value{}, &RuntimeError{Message: "db.query: " + scanErr.Error()}
				}
				rowObj := NewObject()
				for i, col := range cols {
					cell := exec.gc.CreateVariable(GenYoungest)
					cell.Assign(sqlValueToValue(vals[i]))
					exec.gc.Retain(cell)
					rowObj.Set(col, cell)
				}
				rowCell := exec.gc.CreateVariable(GenYoungest)
				rowCell.Assign(ObjectValue(rowObj))
				exec.gc.Retain(rowCell)
				result.Append(rowCell)
			}
			return ArrayValue(result), nil
		},
		"close": func(_ *Execution, _ []Value) (Value, error) {
			return Bool(db.Close() == nil), nil
		},
	}
	return newModule(exec.gc, fns)
}

func sqlValueToValue(v any) Value {
	switch d := v.(type) {
	case nil:
		return Null()
	case int64:
		return Int(d)
	case float64:
		return Real(d)
	case string:
		return String(d)
	case []byte:
		return String(string(d))
	case bool:
		return Bool(d)
	default:
		return Null()
	}
}
