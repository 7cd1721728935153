package asteria

import "math"

func (exec *Execution) evalExpr(e Expression) (Value, error) {
	if err := exec.checkStep(e.Pos()); err != nil {
		return Value{}, err
	}
	switch ex := e.(type) {
	case *NullExpr:
		return Null(), nil
	case *BoolExpr:
		return Bool(ex.Value), nil
	case *IntExpr:
		return Int(ex.Value), nil
	case *RealExpr:
		return Real(ex.Value), nil
	case *StringExpr:
		return String(ex.Value), nil
	case *IdentExpr:
		cell, ok := exec.currentEnv().Lookup(ex.Name)
		if !ok {
			return Value{}, exec.fault(ex.Pos(), "undeclared reference to %q", ex.Name)
		}
		return cell.Get(), nil
	case *ThisExpr:
		cell, ok := exec.currentEnv().Lookup("this")
		if !ok {
			return Null(), nil
		}
		return cell.Get(), nil
	case *ArrayExpr:
		return exec.evalArrayExpr(ex)
	case *ObjectExpr:
		return exec.evalObjectExpr(ex)
	case *FuncExpr:
		return exec.evalFuncExpr(ex)
	case *UnaryExpr:
		return exec.evalUnaryExpr(ex)
	case *IntrinsicExpr:
		return exec.evalIntrinsic(ex)
	case *LengthofExpr:
		return exec.evalLengthof(ex)
	case *TypeofExpr:
		v, err := exec.evalExpr(ex.Operand)
		if err != nil {
			return Value{}, err
		}
		return String(v.Kind().String()), nil
	case *BinaryExpr:
		return exec.evalBinaryExpr(ex)
	case *LogicalExpr:
		return exec.evalLogicalExpr(ex)
	case *TernaryExpr:
		cond, err := exec.evalExpr(ex.Cond)
		if err != nil {
			return Value{}, err
		}
		if cond.Truthy() {
			return exec.evalExpr(ex.Then)
		}
		return exec.evalExpr(ex.Else)
	case *AssignExpr:
		return exec.evalAssignExpr(ex)
	case *IndexExpr:
		return exec.evalIndexExpr(ex)
	case *MemberExpr:
		return exec.evalMemberExpr(ex)
	case *CallExpr:
		return exec.evalCallExpr(ex)
	default:
		return Value{}, exec.fault(e.Pos(), "unsupported expression")
	}
}

func (exec *Execution) evalArrayExpr(ex *ArrayExpr) (Value, error) {
	arr := NewArray(len(ex.Elements))
	for _, elExpr := range ex.Elements {
		v, err := exec.evalExpr(elExpr)
		if err != nil {
			return Value{}, err
		}
		cell := exec.gc.CreateVariable(GenYoungest)
		cell.Assign(v)
		exec.gc.Retain(cell)
		arr.Append(cell)
	}
	return ArrayValue(arr), nil
}

func (exec *Execution) evalObjectExpr(ex *ObjectExpr) (Value, error) {
	obj := NewObject()
	for _, entry := range ex.Entries {
		v, err := exec.evalExpr(entry.Value)
		if err != nil {
			return Value{}, err
		}
		cell := exec.gc.CreateVariable(GenYoungest)
		cell.Assign(v)
		exec.gc.Retain(cell)
		if old, replaced := obj.Set(entry.Key, cell); replaced {
			exec.gc.Release(old)
		}
	}
	return ObjectValue(obj), nil
}

func collectEnvCells(env *Env) []*Variable {
	var cells []*Variable
	for e := env; e != nil; e = e.parent {
		for _, v := range e.names {
			cells = append(cells, v)
		}
	}
	return cells
}

func (exec *Execution) evalFuncExpr(ex *FuncExpr) (Value, error) {
	fn := &Function{
		Params:   ex.Params,
		Variadic: ex.Variadic,
		Body:     ex.Body,
		Closure:  exec.currentEnv(),
	}
	for _, cell := range collectEnvCells(exec.currentEnv()) {
		exec.gc.Retain(cell)
		fn.Captured = append(fn.Captured, cell)
	}
	return FunctionValue(fn), nil
}

func (exec *Execution) evalUnaryExpr(ex *UnaryExpr) (Value, error) {
	if ex.Op == PPlusPlus || ex.Op == PMinusMinus {
		return exec.evalIncDec(ex)
	}
	v, err := exec.evalExpr(ex.Operand)
	if err != nil {
		return Value{}, err
	}
	switch ex.Op {
	case PBang:
		return Bool(!v.Truthy()), nil
	case PMinus:
		switch v.Kind() {
		case KindInt:
			return Int(-v.AsInt()), nil
		case KindReal:
			return Real(-v.AsReal()), nil
		}
		return Value{}, exec.fault(ex.Pos(), "unary - requires a number, got %s", v.Kind())
	case PPlus:
		if v.Kind() == KindInt || v.Kind() == KindReal {
			return v, nil
		}
		return Value{}, exec.fault(ex.Pos(), "unary + requires a number, got %s", v.Kind())
	case PTilde:
		if v.Kind() == KindInt {
			return Int(^v.AsInt()), nil
		}
		return Value{}, exec.fault(ex.Pos(), "~ requires an integer, got %s", v.Kind())
	}
	return Value{}, exec.fault(ex.Pos(), "unsupported unary operator")
}

func (exec *Execution) evalIncDec(ex *UnaryExpr) (Value, error) {
	cell, err := exec.resolveCell(ex.Operand)
	if err != nil {
		return Value{}, err
	}
	cur := cell.Get()
	var next Value
	delta := int64(1)
	if ex.Op == PMinusMinus {
		delta = -1
	}
	switch cur.Kind() {
	case KindInt:
		next = Int(cur.AsInt() + delta)
	case KindReal:
		next = Real(cur.AsReal() + float64(delta))
	default:
		return Value{}, exec.fault(ex.Pos(), "++/-- requires a number, got %s", cur.Kind())
	}
	if err := cell.Assign(next); err != nil {
		return Value{}, exec.fault(ex.Pos(), "%s", err)
	}
	return cur, nil
}

func (exec *Execution) evalLengthof(ex *LengthofExpr) (Value, error) {
	v, err := exec.evalExpr(ex.Operand)
	if err != nil {
		return Value{}, err
	}
	switch v.Kind() {
	case KindString:
		return Int(int64(len(v.AsString()))), nil
	case KindArray:
		return Int(int64(v.AsArray().Len())), nil
	case KindObject:
		return Int(int64(v.AsObject().Len())), nil
	default:
		return Value{}, exec.fault(ex.Pos(), "lengthof requires a string, array, or object, got %s", v.Kind())
	}
}

func (exec *Execution) evalLogicalExpr(ex *LogicalExpr) (Value, error) {
	left, err := exec.evalExpr(ex.Left)
	if err != nil {
		return Value{}, err
	}
	isOr := ex.Op == KwOr || (ex.IsPunct && ex.PunctOp == PPipePipe)
	isCoalesce := ex.IsPunct && ex.PunctOp == PCoalesce
	if isCoalesce {
		if !left.IsNull() {
			return left, nil
		}
		return exec.evalExpr(ex.Right)
	}
	if isOr {
		if left.Truthy() {
			return left, nil
		}
		return exec.evalExpr(ex.Right)
	}
	// logical and
	if !left.Truthy() {
		return left, nil
	}
	return exec.evalExpr(ex.Right)
}

func (exec *Execution) evalBinaryExpr(ex *BinaryExpr) (Value, error) {
	left, err := exec.evalExpr(ex.Left)
	if err != nil {
		return Value{}, err
	}
	right, err := exec.evalExpr(ex.Right)
	if err != nil {
		return Value{}, err
	}
	return applyBinaryOp(exec, ex.Op, left, right, ex.Pos())
}

func applyBinaryOp(exec *Execution, op Punctuator, left, right Value, pos Position) (Value, error) {
	switch op {
	case PPlus:
		if left.Kind() == KindString || right.Kind() == KindString {
			if left.Kind() != KindString || right.Kind() != KindString {
				return Value{}, exec.fault(pos, "+ requires both operands to be strings when either is a string")
			}
			return String(left.AsString() + right.AsString()), nil
		}
		return numericBinOp(exec, pos, left, right, func(a, b int64) (int64, bool) { return a + b, true }, func(a, b float64) float64 { return a + b })
	case PMinus:
		return numericBinOp(exec, pos, left, right, func(a, b int64) (int64, bool) { return a - b, true }, func(a, b float64) float64 { return a - b })
	case PStar:
		return numericBinOp(exec, pos, left, right, func(a, b int64) (int64, bool) { return a * b, true }, func(a, b float64) float64 { return a * b })
	case PSlash:
		return numericBinOp(exec, pos, left, right, func(a, b int64) (int64, bool) {
			if b == 0 {
				return 0, false
			}
			return a / b, true
		}, func(a, b float64) float64 { return a / b })
	case PPercent:
		return numericBinOp(exec, pos, left, right, func(a, b int64) (int64, bool) {
			if b == 0 {
				return 0, false
			}
			return a % b, true
		}, func(a, b float64) float64 { return math.Mod(a, b) })
	case PEq:
		return Bool(valuesEqual(left, right)), nil
	case PNotEq:
		return Bool(!valuesEqual(left, right)), nil
	case PLt, PLe, PGt, PGe, PSpaceship:
		return compareOp(exec, op, left, right, pos)
	case PAmp, PPipe, PCaret, PShl, PShr, PShl3, PShr3:
		return bitwiseOp(exec, op, left, right, pos)
	default:
		return Value{}, exec.fault(pos, "unsupported binary operator")
	}
}

func numericBinOp(exec *Execution, pos Position, left, right Value, intOp func(a, b int64) (int64, bool), realOp func(a, b float64) float64) (Value, error) {
	if left.Kind() == KindInt && right.Kind() == KindInt {
		r, ok := intOp(left.AsInt(), right.AsInt())
		if !ok {
			return Value{}, exec.fault(pos, "division by zero")
		}
		return Int(r), nil
	}
	lf, lok := toFloat(left)
	rf, rok := toFloat(right)
	if !lok || !rok {
		return Value{}, exec.fault(pos, "arithmetic requires numbers, got %s and %s", left.Kind(), right.Kind())
	}
	return Real(realOp(lf, rf)), nil
}

func toFloat(v Value) (float64, bool) {
	switch v.Kind() {
	case KindInt:
		return float64(v.AsInt()), true
	case KindReal:
		return v.AsReal(), true
	default:
		return 0, false
	}
}

func compareOp(exec *Execution, op Punctuator, left, right Value, pos Position) (Value, error) {
	lf, lok := toFloat(left)
	rf, rok := toFloat(right)
	if lok && rok {
		return compareResult(op, cmpFloat(lf, rf)), nil
	}
	if left.Kind() == KindString && right.Kind() == KindString {
		a, b := left.AsString(), right.AsString()
		switch {
		case a < b:
			return compareResult(op, -1), nil
		case a > b:
			return compareResult(op, 1), nil
		default:
			return compareResult(op, 0), nil
		}
	}
	return Value{}, exec.fault(pos, "comparison requires two numbers or two strings, got %s and %s", left.Kind(), right.Kind())
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareResult(op Punctuator, c int) Value {
	switch op {
	case PLt:
		return Bool(c < 0)
	case PLe:
		return Bool(c <= 0)
	case PGt:
		return Bool(c > 0)
	case PGe:
		return Bool(c >= 0)
	case PSpaceship:
		return Int(int64(c))
	}
	return Null()
}

func bitwiseOp(exec *Execution, op Punctuator, left, right Value, pos Position) (Value, error) {
	if left.Kind() != KindInt || right.Kind() != KindInt {
		return Value{}, exec.fault(pos, "bitwise operator requires two integers, got %s and %s", left.Kind(), right.Kind())
	}
	a, b := left.AsInt(), right.AsInt()
	switch op {
	case PAmp:
		return Int(a & b), nil
	case PPipe:
		return Int(a | b), nil
	case PCaret:
		return Int(a ^ b), nil
	case PShl, PShl3:
		return Int(a << uint(b)), nil
	case PShr:
		return Int(a >> uint(b)), nil
	case PShr3:
		return Int(int64(uint64(a) >> uint(b))), nil
	}
	return Value{}, exec.fault(pos, "unsupported bitwise operator")
}

func valuesEqual(a, b Value) bool {
	if a.Kind() != b.Kind() {
		af, aok := toFloat(a)
		bf, bok := toFloat(b)
		if aok && bok {
			return af == bf
		}
		return false
	}
	switch a.Kind() {
	case KindNull:
		return true
	case KindBool:
		return a.AsBool() == b.AsBool()
	case KindInt:
		return a.AsInt() == b.AsInt()
	case KindReal:
		return a.AsReal() == b.AsReal()
	case KindString:
		return a.AsString() == b.AsString()
	case KindArray:
		return a.AsArray() == b.AsArray()
	case KindObject:
		return a.AsObject() == b.AsObject()
	case KindFunction:
		return a.AsFunction() == b.AsFunction()
	default:
		return false
	}
}

// resolveCell resolves an lvalue expression to the Variable cell it names,
// used by assignment, compound assignment, and ++/--.
func (exec *Execution) resolveCell(target Expression) (*Variable, error) {
	switch t := target.(type) {
	case *IdentExpr:
		cell, ok := exec.currentEnv().Lookup(t.Name)
		if !ok {
			return nil, exec.fault(t.Pos(), "undeclared reference to %q", t.Name)
		}
		return cell, nil
	case *IndexExpr:
		objVal, err := exec.evalExpr(t.Object)
		if err != nil {
			return nil, err
		}
		idxVal, err := exec.evalExpr(t.Index)
		if err != nil {
			return nil, err
		}
		return exec.resolveContainerCell(objVal, idxVal, t.Pos())
	case *MemberExpr:
		objVal, err := exec.evalExpr(t.Object)
		if err != nil {
			return nil, err
		}
		return exec.resolveContainerCell(objVal, String(t.Name), t.Pos())
	default:
		return nil, exec.fault(target.Pos(), "invalid assignment target")
	}
}

func (exec *Execution) resolveContainerCell(objVal, key Value, pos Position) (*Variable, error) {
	switch objVal.Kind() {
	case KindArray:
		if key.Kind() != KindInt {
			return nil, exec.fault(pos, "array index must be an integer")
		}
		arr := objVal.AsArray()
		i := key.AsInt()
		if i < 0 || i >= int64(arr.Len()) {
			return nil, exec.fault(pos, "array index %d out of range [0, %d)", i, arr.Len())
		}
		return arr.At(int(i)), nil
	case KindObject:
		obj := objVal.AsObject()
		k := key.AsString()
		if cell, ok := obj.Get(k); ok {
			return cell, nil
		}
		cell := exec.gc.CreateVariable(GenYoungest)
		exec.gc.Retain(cell)
		obj.Set(k, cell)
		return cell, nil
	default:
		return nil, exec.fault(pos, "cannot index into %s", objVal.Kind())
	}
}

func (exec *Execution) evalAssignExpr(ex *AssignExpr) (Value, error) {
	cell, err := exec.resolveCell(ex.Target)
	if err != nil {
		return Value{}, err
	}
	rhs, err := exec.evalExpr(ex.Value)
	if err != nil {
		return Value{}, err
	}
	next := rhs
	switch ex.Op {
	case PAssign:
		// direct assignment
	case PCoalesceEq:
		if !cell.Get().IsNull() {
			return cell.Get(), nil
		}
	case PQuestionEq:
		if cell.IsInitialized() {
			return cell.Get(), nil
		}
	case PAmpAmpEq:
		if !cell.Get().Truthy() {
			return cell.Get(), nil
		}
	case PPipePipeEq:
		if cell.Get().Truthy() {
			return cell.Get(), nil
		}
	default:
		baseOp, ok := compoundBase[ex.Op]
		if !ok {
			return Value{}, exec.fault(ex.Pos(), "unsupported compound assignment")
		}
		next, err = applyBinaryOp(exec, baseOp, cell.Get(), rhs, ex.Pos())
		if err != nil {
			return Value{}, err
		}
	}
	if err := cell.Assign(next); err != nil {
		return Value{}, exec.fault(ex.Pos(), "%s", err)
	}
	if next.Kind() == KindArray || next.Kind() == KindObject {
		if err := exec.checkMemory(ex.Pos()); err != nil {
			return Value{}, err
		}
	}
	return next, nil
}

var compoundBase = map[Punctuator]Punctuator{
	PPlusEq: PPlus, PMinusEq: PMinus, PStarEq: PStar, PSlashEq: PSlash, PPercentEq: PPercent,
	PAmpEq: PAmp, PPipeEq: PPipe, PCaretEq: PCaret,
	PShlEq: PShl, PShrEq: PShr, PShl3Eq: PShl3, PShr3Eq: PShr3,
}

func (exec *Execution) evalIndexExpr(ex *IndexExpr) (Value, error) {
	objVal, err := exec.evalExpr(ex.Object)
	if err != nil {
		return Value{}, err
	}
	idxVal, err := exec.evalExpr(ex.Index)
	if err != nil {
		return Value{}, err
	}
	switch objVal.Kind() {
	case KindArray:
		arr := objVal.AsArray()
		if idxVal.Kind() != KindInt {
			return Value{}, exec.fault(ex.Pos(), "array index must be an integer")
		}
		i := idxVal.AsInt()
		if i < 0 || i >= int64(arr.Len()) {
			return Null(), nil
		}
		return arr.At(int(i)).Get(), nil
	case KindObject:
		obj := objVal.AsObject()
		cell, ok := obj.Get(idxVal.AsString())
		if !ok {
			return Null(), nil
		}
		return cell.Get(), nil
	case KindString:
		s := objVal.AsString()
		if idxVal.Kind() != KindInt {
			return Value{}, exec.fault(ex.Pos(), "string index must be an integer")
		}
		i := idxVal.AsInt()
		if i < 0 || i >= int64(len(s)) {
			return Null(), nil
		}
		return Int(int64(s[i])), nil
	default:
		return Value{}, exec.fault(ex.Pos(), "cannot index into %s", objVal.Kind())
	}
}

func (exec *Execution) evalMemberExpr(ex *MemberExpr) (Value, error) {
	objVal, err := exec.evalExpr(ex.Object)
	if err != nil {
		return Value{}, err
	}
	if objVal.Kind() != KindObject {
		return Value{}, exec.fault(ex.Pos(), "member access requires an object, got %s", objVal.Kind())
	}
	cell, ok := objVal.AsObject().Get(ex.Name)
	if !ok {
		return Null(), nil
	}
	return cell.Get(), nil
}

func (exec *Execution) evalIntrinsic(ex *IntrinsicExpr) (Value, error) {
	args := make([]float64, len(ex.Args))
	for i, a := range ex.Args {
		v, err := exec.evalExpr(a)
		if err != nil {
			return Value{}, err
		}
		f, ok := toFloat(v)
		if !ok {
			return Value{}, exec.fault(a.Pos(), "%s requires a number argument", ex.Kw)
		}
		args[i] = f
	}
	switch ex.Kw {
	case KwAbs:
		return Real(math.Abs(args[0])), nil
	case KwCeil:
		return Real(math.Ceil(args[0])), nil
	case KwFloor:
		return Real(math.Floor(args[0])), nil
	case KwRound:
		return Real(math.Round(args[0])), nil
	case KwTrunc:
		return Real(math.Trunc(args[0])), nil
	case KwSqrt:
		return Real(math.Sqrt(args[0])), nil
	case KwIsinf:
		return Bool(math.IsInf(args[0], 0)), nil
	case KwIsnan:
		return Bool(math.IsNaN(args[0])), nil
	case KwSignb:
		return Bool(math.Signbit(args[0])), nil
	case KwIceil:
		return Int(int64(math.Ceil(args[0]))), nil
	case KwIfloor:
		return Int(int64(math.Floor(args[0]))), nil
	case KwIround:
		return Int(int64(math.Round(args[0]))), nil
	case KwItrunc:
		return Int(int64(math.Trunc(args[0]))), nil
	case KwFma:
		return Real(math.FMA(args[0], args[1], args[2])), nil
	default:
		return Value{}, exec.fault(ex.Pos(), "unsupported intrinsic %s", ex.Kw)
	}
}
