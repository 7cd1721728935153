package asteria

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// StackFrame identifies one activation record in a RuntimeError's
// backtrace (grounded on the teacher's StackFrame/callFrame split).
type StackFrame struct {
	Function string
	Pos      Position
}

// RuntimeError is a runtime failure: either an uncaught `throw`ed Value or
// an internal fault (step/memory quota exceeded, immutable write, wrong
// argument count). It carries the call stack captured at the failure site.
type RuntimeError struct {
	Message string
	Value   Value // the thrown Value; Null() for internal faults
	Frames  []StackFrame
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for _, f := range e.Frames {
		fmt.Fprintf(&b, "\n  at %s (line %d)", f.Function, f.Pos.Line)
	}
	return b.String()
}

// Sentinel control-flow errors: propagated up through execStmt exactly
// like the teacher's errLoopBreak/errLoopNext, caught by the nearest loop
// or catch/defer handler.
var (
	errBreak              = errors.New("break")
	errContinue           = errors.New("continue")
	errStepQuotaExceeded  = errors.New("step quota exceeded")
	errMemoryQuotaExceeded = errors.New("memory quota exceeded")
)

// returnSignal carries a `return` value up to the enclosing call frame.
type returnSignal struct{ Value Value }

func (returnSignal) Error() string { return "return" }

// thrownValue wraps a script-level `throw`n Value as it propagates toward
// the nearest `try`/`catch`.
type thrownValue struct{ Value Value }

func (thrownValue) Error() string { return "thrown value" }

type callFrame struct {
	Function string
	Pos      Position
}

// Execution is one script activation: its GC-backed environment chain,
// call stack, and resource quotas (grounded on the teacher's Execution
// struct, generalized to Asteria's Value/Variable/GC model).
type Execution struct {
	gc          *GarbageCollector
	root        *Env
	callStack   []callFrame
	deferStack  [][]Statement // one slice per call frame, LIFO within a frame
	envStack    []*Env
	steps       int
	stepQuota   int
	memoryQuota int
	recursion   int
	recursionCap int
}

// NewExecution creates a fresh top-level activation with its own root
// scope. Zero quota disables the corresponding check.
func NewExecution(gc *GarbageCollector, stepQuota, memoryQuota, recursionCap int) *Execution {
	return NewExecutionIn(gc, newEnv(nil, gc), stepQuota, memoryQuota, recursionCap)
}

// NewExecutionIn creates a top-level activation rooted at an existing
// scope, letting an Engine share one set of global bindings across runs.
func NewExecutionIn(gc *GarbageCollector, root *Env, stepQuota, memoryQuota, recursionCap int) *Execution {
	return &Execution{
		gc:           gc,
		root:         root,
		envStack:     []*Env{root},
		deferStack:   [][]Statement{nil},
		stepQuota:    stepQuota,
		memoryQuota:  memoryQuota,
		recursionCap: recursionCap,
	}
}

func (exec *Execution) currentEnv() *Env {
	return exec.envStack[len(exec.envStack)-1]
}

func (exec *Execution) pushEnv() *Env {
	e := newEnv(exec.currentEnv(), exec.gc)
	exec.envStack = append(exec.envStack, e)
	exec.deferStack = append(exec.deferStack, nil)
	return e
}

// popEnv closes the innermost scope, running any statements registered
// with `defer` in it (LIFO), then releasing its bindings.
func (exec *Execution) popEnv() error {
	n := len(exec.envStack) - 1
	e := exec.envStack[n]
	exec.envStack = exec.envStack[:n]

	var deferred []Statement
	if len(exec.deferStack) > 0 {
		m := len(exec.deferStack) - 1
		deferred = exec.deferStack[m]
		exec.deferStack = exec.deferStack[:m]
	}

	var firstErr error
	for i := len(deferred) - 1; i >= 0; i-- {
		if err := exec.execStmt(deferred[i]); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	e.Close()
	return firstErr
}

func (exec *Execution) checkStep(pos Position) error {
	if exec.stepQuota <= 0 {
		return nil
	}
	exec.steps++
	if exec.steps > exec.stepQuota {
		return exec.fault(pos, "step quota exceeded after %s steps", humanize.Comma(int64(exec.steps)))
	}
	return nil
}

func (exec *Execution) fault(pos Position, format string, args ...any) *RuntimeError {
	frames := make([]StackFrame, len(exec.callStack))
	for i, f := range exec.callStack {
		frames[len(exec.callStack)-1-i] = StackFrame{Function: f.Function, Pos: f.Pos}
	}
	return &RuntimeError{Message: fmt.Sprintf(format, args...), Frames: frames}
}

// Run executes a parsed Program in the root scope and returns the value of
// its last expression statement, if any.
func (exec *Execution) Run(prog *Program) (Value, error) {
	exec.hoistFuncs(prog.Statements)
	var last Value
	for _, s := range prog.Statements {
		var stmtErr error
		if es, ok := s.(*ExprStmt); ok {
			if stmtErr = exec.checkStep(s.Pos()); stmtErr == nil {
				var v Value
				v, stmtErr = exec.evalExpr(es.Expr)
				if stmtErr == nil {
					last = v
				}
			}
		} else {
			stmtErr = exec.execStmt(s)
		}
		if stmtErr != nil {
			if rs, ok := stmtErr.(returnSignal); ok {
				return rs.Value, nil
			}
			if tv, ok := stmtErr.(thrownValue); ok {
				return Value{}, exec.fault(s.Pos(), "uncaught exception: %s", describeValue(tv.Value))
			}
			return Value{}, stmtErr
		}
	}
	return last, nil
}

// hoistFuncs registers every `func` declaration directly in stmts before
// any of them run, so mutual recursion and forward references work within
// one block. Nested blocks hoist their own functions independently when
// execBlock runs.
func (exec *Execution) hoistFuncs(stmts []Statement) {
	env := exec.currentEnv()
	for _, s := range stmts {
		if fs, ok := s.(*FuncStmt); ok {
			fn := &Function{
				Name:     fs.Name,
				Params:   fs.Params,
				Variadic: fs.Variadic,
				Body:     fs.Body,
				Closure:  env,
			}
			cell := env.Declare(fs.Name, false, FunctionValue(fn))
			fn.Captured = append(fn.Captured, cell)
		}
	}
}

func (exec *Execution) execBlock(b *BlockStmt) error {
	exec.pushEnv()
	defer exec.popEnv()
	exec.hoistFuncs(b.Body)
	for _, s := range b.Body {
		if err := exec.execStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (exec *Execution) execStmt(s Statement) error {
	if err := exec.checkStep(s.Pos()); err != nil {
		return err
	}
	switch st := s.(type) {
	case *VarStmt:
		return exec.execVarStmt(st)
	case *ExprStmt:
		_, err := exec.evalExpr(st.Expr)
		return err
	case *BlockStmt:
		return exec.execBlock(st)
	case *IfStmt:
		return exec.execIfStmt(st)
	case *WhileStmt:
		return exec.execWhileStmt(st)
	case *DoWhileStmt:
		return exec.execDoWhileStmt(st)
	case *ForStmt:
		return exec.execForStmt(st)
	case *ForEachStmt:
		return exec.execForEachStmt(st)
	case *BreakStmt:
		return errBreak
	case *ContinueStmt:
		return errContinue
	case *ReturnStmt:
		var v Value
		if st.Value != nil {
			var err error
			v, err = exec.evalExpr(st.Value)
			if err != nil {
				return err
			}
		}
		return returnSignal{Value: v}
	case *ThrowStmt:
		v, err := exec.evalExpr(st.Value)
		if err != nil {
			return err
		}
		return thrownValue{Value: v}
	case *TryStmt:
		return exec.execTryStmt(st)
	case *DeferStmt:
		if len(exec.deferStack) == 0 {
			return exec.fault(st.Pos(), "defer used outside of a scope")
		}
		n := len(exec.deferStack) - 1
		exec.deferStack[n] = append(exec.deferStack[n], st.Body)
		return nil
	case *UnsetStmt:
		return exec.execUnsetStmt(st)
	case *AssertStmt:
		v, err := exec.evalExpr(st.Cond)
		if err != nil {
			return err
		}
		if !v.Truthy() {
			msg := st.Message
			if msg == "" {
				msg = "assertion failed"
			}
			return exec.fault(st.Pos(), "%s", msg)
		}
		return nil
	case *FuncStmt:
		return nil // already hoisted
	case *SwitchStmt:
		return exec.execSwitchStmt(st)
	default:
		return exec.fault(s.Pos(), "unsupported statement")
	}
}

func (exec *Execution) execVarStmt(st *VarStmt) error {
	for i, name := range st.Names {
		var v Value
		if st.Values[i] != nil {
			var err error
			v, err = exec.evalExpr(st.Values[i])
			if err != nil {
				return err
			}
		}
		cell := exec.currentEnv().Declare(name, true, v)
		if st.Consts[i] {
			cell.SetMutable(false)
		}
	}
	return exec.checkMemory(st.Pos())
}

func (exec *Execution) execIfStmt(st *IfStmt) error {
	cond, err := exec.evalExpr(st.Cond)
	if err != nil {
		return err
	}
	if cond.Truthy() {
		return exec.execStmt(st.Then)
	}
	if st.Else != nil {
		return exec.execStmt(st.Else)
	}
	return nil
}

func (exec *Execution) execWhileStmt(st *WhileStmt) error {
	for {
		cond, err := exec.evalExpr(st.Cond)
		if err != nil {
			return err
		}
		if !cond.Truthy() {
			return nil
		}
		if err := exec.execStmt(st.Body); err != nil {
			if err == errBreak {
				return nil
			}
			if err == errContinue {
				continue
			}
			return err
		}
	}
}

func (exec *Execution) execDoWhileStmt(st *DoWhileStmt) error {
	for {
		if err := exec.execStmt(st.Body); err != nil {
			if err == errBreak {
				return nil
			}
			if err != errContinue {
				return err
			}
		}
		cond, err := exec.evalExpr(st.Cond)
		if err != nil {
			return err
		}
		if !cond.Truthy() {
			return nil
		}
	}
}

func (exec *Execution) execForStmt(st *ForStmt) error {
	exec.pushEnv()
	defer exec.popEnv()
	if st.Init != nil {
		if err := exec.execStmt(st.Init); err != nil {
			return err
		}
	}
	for {
		if st.Cond != nil {
			cond, err := exec.evalExpr(st.Cond)
			if err != nil {
				return err
			}
			if !cond.Truthy() {
				return nil
			}
		}
		if err := exec.execStmt(st.Body); err != nil {
			if err == errBreak {
				return nil
			}
			if err != nil && err != errContinue {
				return err
			}
		}
		if st.Post != nil {
			if _, err := exec.evalExpr(st.Post); err != nil {
				return err
			}
		}
	}
}

func (exec *Execution) execForEachStmt(st *ForEachStmt) error {
	rangeVal, err := exec.evalExpr(st.Range)
	if err != nil {
		return err
	}
	switch rangeVal.Kind() {
	case KindArray:
		arr := rangeVal.AsArray()
		for i, cell := range arr.Slots() {
			if err := exec.runForEachBody(st, Int(int64(i)), cell); err != nil {
				if err == errBreak {
					return nil
				}
				if err != errContinue {
					return err
				}
			}
		}
	case KindObject:
		obj := rangeVal.AsObject()
		for _, key := range obj.Keys() {
			cell, _ := obj.Get(key)
			if err := exec.runForEachBody(st, String(key), cell); err != nil {
				if err == errBreak {
					return nil
				}
				if err != errContinue {
					return err
				}
			}
		}
	default:
		return exec.fault(st.Pos(), "for each requires an array or object, got %s", rangeVal.Kind())
	}
	return nil
}

func (exec *Execution) runForEachBody(st *ForEachStmt, key Value, valCell *Variable) error {
	exec.pushEnv()
	defer exec.popEnv()
	if st.KeyName != "" {
		exec.currentEnv().Declare(st.KeyName, false, key)
	}
	exec.currentEnv().DeclareCell(st.ValName, valCell)
	return exec.execStmt(st.Body)
}

func (exec *Execution) execTryStmt(st *TryStmt) error {
	err := exec.execStmt(st.Try)
	tv, isThrown := err.(thrownValue)
	if err == nil {
		return nil
	}
	if !isThrown {
		return err
	}
	exec.pushEnv()
	defer exec.popEnv()
	if st.CatchVar != "" {
		exec.currentEnv().Declare(st.CatchVar, true, tv.Value)
	}
	return exec.execStmt(st.Catch)
}

func (exec *Execution) execUnsetStmt(st *UnsetStmt) error {
	switch t := st.Target.(type) {
	case *IdentExpr:
		if !exec.currentEnv().Unset(t.Name) {
			return exec.fault(st.Pos(), "unset: %q is not bound in this scope", t.Name)
		}
		return nil
	case *IndexExpr:
		objVal, err := exec.evalExpr(t.Object)
		if err != nil {
			return err
		}
		idxVal, err := exec.evalExpr(t.Index)
		if err != nil {
			return err
		}
		if objVal.Kind() == KindObject {
			removed, ok := objVal.AsObject().Delete(idxVal.AsString())
			if ok {
				exec.gc.Release(removed)
			}
			return nil
		}
		return exec.fault(st.Pos(), "unset: index target must be an object")
	default:
		return exec.fault(st.Pos(), "unset: unsupported target")
	}
}

func (exec *Execution) execSwitchStmt(st *SwitchStmt) error {
	subject, err := exec.evalExpr(st.Subject)
	if err != nil {
		return err
	}
	matched := -1
	defaultIdx := -1
	for i, c := range st.Cases {
		if len(c.Values) == 0 {
			defaultIdx = i
			continue
		}
		for _, ve := range c.Values {
			v, err := exec.evalExpr(ve)
			if err != nil {
				return err
			}
			if valuesEqual(subject, v) {
				matched = i
				break
			}
		}
		if matched >= 0 {
			break
		}
	}
	if matched < 0 {
		matched = defaultIdx
	}
	if matched < 0 {
		return nil
	}
	exec.pushEnv()
	defer exec.popEnv()
	for i := matched; i < len(st.Cases); i++ {
		for _, s := range st.Cases[i].Body {
			if err := exec.execStmt(s); err != nil {
				if err == errBreak {
					return nil
				}
				return err
			}
		}
	}
	return nil
}

func describeValue(v Value) string {
	return v.String()
}
