package asteria

import "testing"

func parseSource(t *testing.T, source string) *Program {
	t.Helper()
	ts, err := Lex([]byte(source), "<test>", LexOptions{})
	if err != nil {
		t.Fatalf("Lex(%q) failed: %v", source, err)
	}
	prog, perr := Parse(ts, "<test>")
	if perr != nil {
		t.Fatalf("Parse(%q) failed: %v", source, perr)
	}
	return prog
}

func parseSourceExpectError(t *testing.T, source string) error {
	t.Helper()
	ts, err := Lex([]byte(source), "<test>", LexOptions{})
	if err != nil {
		t.Fatalf("Lex(%q) failed: %v", source, err)
	}
	_, perr := Parse(ts, "<test>")
	if perr == nil {
		t.Fatalf("Parse(%q) unexpectedly succeeded", source)
	}
	return perr
}

func TestParseVarStmtWithMultipleDeclarations(t *testing.T) {
	prog := parseSource(t, "var a = 1, b = 2, c")
	if len(prog.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(prog.Statements))
	}
	v, ok := prog.Statements[0].(*VarStmt)
	if !ok {
		t.Fatalf("expected *VarStmt, got %T", prog.Statements[0])
	}
	if len(v.Names) != 3 || v.Names[0] != "a" || v.Names[1] != "b" || v.Names[2] != "c" {
		t.Fatalf("unexpected declared names: %v", v.Names)
	}
	if v.Values[2] != nil {
		t.Fatalf("expected c's initializer to be nil, got %#v", v.Values[2])
	}
}

func TestParseFuncStmtWithVariadicParams(t *testing.T) {
	prog := parseSource(t, `func f(a, b, ...) { return a }`)
	fn, ok := prog.Statements[0].(*FuncStmt)
	if !ok {
		t.Fatalf("expected *FuncStmt, got %T", prog.Statements[0])
	}
	if fn.Name != "f" {
		t.Fatalf("unexpected function name: %q", fn.Name)
	}
	if !fn.Variadic {
		t.Fatalf("expected function to be marked variadic")
	}
	if len(fn.Params) != 2 {
		t.Fatalf("expected 2 fixed params, got %d", len(fn.Params))
	}
}

func TestParseIfElseChain(t *testing.T) {
	prog := parseSource(t, `if (x) { y } else if (z) { w } else { v }`)
	ifStmt, ok := prog.Statements[0].(*IfStmt)
	if !ok {
		t.Fatalf("expected *IfStmt, got %T", prog.Statements[0])
	}
	if ifStmt.Else == nil {
		t.Fatalf("expected an else branch")
	}
	if _, ok := ifStmt.Else.(*IfStmt); !ok {
		t.Fatalf("expected else-if to parse as a nested *IfStmt, got %T", ifStmt.Else)
	}
}

func TestParseForEachWithAndWithoutKey(t *testing.T) {
	prog := parseSource(t, `each (k, v : obj) { k }
each (v : arr) { v }`)
	if len(prog.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(prog.Statements))
	}
	withKey, ok := prog.Statements[0].(*ForEachStmt)
	if !ok {
		t.Fatalf("expected *ForEachStmt, got %T", prog.Statements[0])
	}
	if withKey.KeyName != "k" || withKey.ValName != "v" {
		t.Fatalf("unexpected bindings: key=%q value=%q", withKey.KeyName, withKey.ValName)
	}
	withoutKey, ok := prog.Statements[1].(*ForEachStmt)
	if !ok {
		t.Fatalf("expected *ForEachStmt, got %T", prog.Statements[1])
	}
	if withoutKey.KeyName != "" || withoutKey.ValName != "v" {
		t.Fatalf("unexpected bindings: key=%q value=%q", withoutKey.KeyName, withoutKey.ValName)
	}
}

func TestParseTryCatchWithAndWithoutBinding(t *testing.T) {
	prog := parseSource(t, `try { x } catch (e) { y }
try { x } catch { y }`)
	bound, ok := prog.Statements[0].(*TryStmt)
	if !ok {
		t.Fatalf("expected *TryStmt, got %T", prog.Statements[0])
	}
	if bound.CatchVar != "e" {
		t.Fatalf("expected catch binding %q, got %q", "e", bound.CatchVar)
	}
	unbound, ok := prog.Statements[1].(*TryStmt)
	if !ok {
		t.Fatalf("expected *TryStmt, got %T", prog.Statements[1])
	}
	if unbound.CatchVar != "" {
		t.Fatalf("expected no catch binding, got %q", unbound.CatchVar)
	}
}

func TestParseSwitchWithFallthroughCases(t *testing.T) {
	prog := parseSource(t, `switch (n) {
case 1, 2:
  a
case 3:
  b
  break
default:
  c
}`)
	sw, ok := prog.Statements[0].(*SwitchStmt)
	if !ok {
		t.Fatalf("expected *SwitchStmt, got %T", prog.Statements[0])
	}
	if len(sw.Cases) != 3 {
		t.Fatalf("expected 3 case clauses (including default), got %d", len(sw.Cases))
	}
	if len(sw.Cases[0].Values) != 2 {
		t.Fatalf("expected the first case to list 2 values, got %d", len(sw.Cases[0].Values))
	}
	if len(sw.Cases[2].Values) != 0 {
		t.Fatalf("expected the final clause to be the default case (no values)")
	}
}

func TestParseTernaryAndLogicalPrecedence(t *testing.T) {
	prog := parseSource(t, `a and b or c ? d : e`)
	exprStmt, ok := prog.Statements[0].(*ExprStmt)
	if !ok {
		t.Fatalf("expected *ExprStmt, got %T", prog.Statements[0])
	}
	if _, ok := exprStmt.Expr.(*TernaryExpr); !ok {
		t.Fatalf("expected top-level expression to be a *TernaryExpr, got %T", exprStmt.Expr)
	}
}

func TestParseObjectAndArrayLiterals(t *testing.T) {
	prog := parseSource(t, `var o = { a: 1, b: [2, 3] }`)
	v := prog.Statements[0].(*VarStmt)
	obj, ok := v.Values[0].(*ObjectExpr)
	if !ok {
		t.Fatalf("expected *ObjectExpr, got %T", v.Values[0])
	}
	if len(obj.Entries) != 2 {
		t.Fatalf("expected 2 object entries, got %d", len(obj.Entries))
	}
	if _, ok := obj.Entries[1].Value.(*ArrayExpr); !ok {
		t.Fatalf("expected the second entry's value to be an *ArrayExpr, got %T", obj.Entries[1].Value)
	}
}

func TestParseUnsetStmtTargets(t *testing.T) {
	prog := parseSource(t, `unset x
unset arr[0]`)
	if _, ok := prog.Statements[0].(*UnsetStmt); !ok {
		t.Fatalf("expected *UnsetStmt, got %T", prog.Statements[0])
	}
	if _, ok := prog.Statements[1].(*UnsetStmt); !ok {
		t.Fatalf("expected *UnsetStmt, got %T", prog.Statements[1])
	}
}

func TestParseDeferAndAssertStmts(t *testing.T) {
	prog := parseSource(t, `defer x()
assert x: "message"`)
	if _, ok := prog.Statements[0].(*DeferStmt); !ok {
		t.Fatalf("expected *DeferStmt, got %T", prog.Statements[0])
	}
	assertStmt, ok := prog.Statements[1].(*AssertStmt)
	if !ok {
		t.Fatalf("expected *AssertStmt, got %T", prog.Statements[1])
	}
	if assertStmt.Message != "message" {
		t.Fatalf("expected assert message %q, got %q", "message", assertStmt.Message)
	}
}

func TestParseSemicolonsAreOptional(t *testing.T) {
	prog := parseSource(t, "var a = 1;\nvar b = 2")
	if len(prog.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(prog.Statements))
	}
}

func TestParseFuncExprAsClosureValue(t *testing.T) {
	prog := parseSource(t, `var f = func(x) { return x }`)
	v := prog.Statements[0].(*VarStmt)
	if _, ok := v.Values[0].(*FuncExpr); !ok {
		t.Fatalf("expected *FuncExpr, got %T", v.Values[0])
	}
}

func TestParseMissingClosingBraceFails(t *testing.T) {
	parseSourceExpectError(t, `func f(x) { return x`)
}

func TestParseMissingConditionParensFails(t *testing.T) {
	parseSourceExpectError(t, `if x { y }`)
}

func TestParseDanglingOperatorFails(t *testing.T) {
	parseSourceExpectError(t, `var x = 1 +`)
}
