package asteria

// Standard library bindings (spec §1's illustrative external
// collaborators: "string, json, io, filesystem, chrono, etc."),
// grounded on the teacher's capability-object pattern
// (`capability_db.go` et al.): each module is exposed to scripts as a
// plain object of native functions bound into the Engine's globals,
// rather than a bespoke host-capability interface, since Asteria has
// no host-authorization boundary to mediate the way the teacher's
// capability system does.

func registerStdlib(e *Engine) {
	e.Bind("string", newModule(e.gc, stringModuleFns()))
	e.Bind("json", newModule(e.gc, jsonModuleFns()))
	e.Bind("io", newModule(e.gc, ioModuleFns()))
	e.Bind("fs", newModule(e.gc, fsModuleFns()))
	e.Bind("chrono", newModule(e.gc, chronoModuleFns()))
	e.Bind("misc", newModule(e.gc, miscModuleFns()))
	e.Bind("array", newModule(e.gc, arrayModuleFns()))
}

// newModule builds an Object whose members are native FunctionValues,
// each retained into the object's slot the way any composite-container
// mutation must be (spec §3.3).
func newModule(gc *GarbageCollector, fns map[string]NativeFunc) Value {
	obj := NewObject()
	for name, fn := range fns {
		cell := gc.CreateVariable(GenOldest)
		f := &Function{Name: name, Native: fn}
		cell.Assign(FunctionValue(f))
		cell.SetMutable(false)
		gc.Retain(cell)
		obj.Set(name, cell)
	}
	return ObjectValue(obj)
}

// argString/argInt/argAt provide the small amount of argument-shape
// checking every native binding below needs, grounded on the teacher's
// ctx.MustArg-style strict argument validation.
func argAt(args []Value, i int) Value {
	if i < 0 || i >= len(args) {
		return Null()
	}
	return args[i]
}

func argString(fname string, args []Value, i int) (string, error) {
	v := argAt(args, i)
	if v.Kind() != KindString {
		return "", &RuntimeError{Message: fname + ": expected a string argument"}
	}
	return v.AsString(), nil
}

func argInt(fname string, args []Value, i int) (int64, error) {
	v := argAt(args, i)
	if v.Kind() != KindInt {
		return 0, &RuntimeError{Message: fname + ": expected an integer argument"}
	}
	return v.AsInt(), nil
}
