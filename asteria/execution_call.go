package asteria

func (exec *Execution) evalCallExpr(ex *CallExpr) (Value, error) {
	var receiver Value
	var callee Value
	var err error
	if member, ok := ex.Callee.(*MemberExpr); ok {
		receiver, err = exec.evalExpr(member.Object)
		if err != nil {
			return Value{}, err
		}
		if receiver.Kind() != KindObject {
			return Value{}, exec.fault(ex.Pos(), "method call requires an object receiver, got %s", receiver.Kind())
		}
		cell, ok := receiver.AsObject().Get(member.Name)
		if !ok {
			return Value{}, exec.fault(ex.Pos(), "no member %q on object", member.Name)
		}
		callee = cell.Get()
	} else {
		callee, err = exec.evalExpr(ex.Callee)
		if err != nil {
			return Value{}, err
		}
	}

	if callee.Kind() != KindFunction {
		return Value{}, exec.fault(ex.Pos(), "call target is not a function, got %s", callee.Kind())
	}
	fn := callee.AsFunction()

	args := make([]Value, len(ex.Args))
	for i, a := range ex.Args {
		v, err := exec.evalExpr(a)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}

	return exec.callFunction(fn, receiver, args, ex.Pos())
}

// callFunction invokes fn, pushing a call frame and a fresh lexical scope
// parented at the closure's defining environment (not the caller's), then
// binding parameters positionally, with any trailing arguments collected
// into an array when the function is variadic.
func (exec *Execution) callFunction(fn *Function, receiver Value, args []Value, pos Position) (Value, error) {
	if fn.Native != nil {
		return fn.Native(exec, args)
	}

	if exec.recursionCap > 0 && exec.recursion >= exec.recursionCap {
		return Value{}, exec.fault(pos, "recursion depth exceeded")
	}
	exec.recursion++
	defer func() { exec.recursion-- }()

	name := fn.Name
	if name == "" {
		name = "<anonymous>"
	}
	exec.callStack = append(exec.callStack, callFrame{Function: name, Pos: pos})
	defer func() { exec.callStack = exec.callStack[:len(exec.callStack)-1] }()

	callEnv := newEnv(fn.Closure, exec.gc)
	exec.envStack = append(exec.envStack, callEnv)
	exec.deferStack = append(exec.deferStack, nil)
	defer exec.popEnv()

	if !receiver.IsNull() {
		callEnv.Declare("this", false, receiver)
	}

	fixed := fn.Params
	if fn.Variadic {
		for i, p := range fixed {
			var v Value
			if i < len(args) {
				v = args[i]
			}
			callEnv.Declare(p, true, v)
		}
		rest := NewArray(0)
		for i := len(fixed); i < len(args); i++ {
			cell := exec.gc.CreateVariable(GenYoungest)
			cell.Assign(args[i])
			exec.gc.Retain(cell)
			rest.Append(cell)
		}
		callEnv.Declare("__args__", true, ArrayValue(rest))
	} else {
		for i, p := range fixed {
			var v Value
			if i < len(args) {
				v = args[i]
			}
			callEnv.Declare(p, true, v)
		}
	}

	for _, s := range fn.Body.Body {
		if err := exec.execStmt(s); err != nil {
			if rs, ok := err.(returnSignal); ok {
				return rs.Value, nil
			}
			return Value{}, err
		}
	}
	return Null(), nil
}
