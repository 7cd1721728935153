package asteria

import "testing"

func mustRun(t *testing.T, source string) Value {
	t.Helper()
	engine, err := NewEngine(Config{})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	v, err := engine.Run("<test>", []byte(source))
	if err != nil {
		t.Fatalf("Run(%q) failed: %v", source, err)
	}
	return v
}

func mustFail(t *testing.T, source string) error {
	t.Helper()
	engine, err := NewEngine(Config{})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	_, err = engine.Run("<test>", []byte(source))
	if err == nil {
		t.Fatalf("Run(%q) unexpectedly succeeded", source)
	}
	return err
}

func TestArithmeticAndPrecedence(t *testing.T) {
	v := mustRun(t, "1 + 2 * 3 - 4 / 2")
	if v.Kind() != KindInt || v.AsInt() != 5 {
		t.Fatalf("unexpected result: %#v", v)
	}
}

func TestStringConcatenation(t *testing.T) {
	v := mustRun(t, `"foo" + "bar"`)
	if v.Kind() != KindString || v.AsString() != "foobar" {
		t.Fatalf("unexpected result: %#v", v)
	}
}

func TestArrayLiteralAndIndexing(t *testing.T) {
	v := mustRun(t, `var a = [1, 2, 3]
a[1]`)
	if v.Kind() != KindInt || v.AsInt() != 2 {
		t.Fatalf("unexpected result: %#v", v)
	}
}

func TestObjectLiteralAndMemberAccess(t *testing.T) {
	v := mustRun(t, `var o = { name: "asteria", stable: true }
o.name`)
	if v.Kind() != KindString || v.AsString() != "asteria" {
		t.Fatalf("unexpected result: %#v", v)
	}
}

func TestClosureCapturesEnclosingScope(t *testing.T) {
	v := mustRun(t, `func makeCounter() {
  var n = 0
  return func() {
    n = n + 1
    return n
  }
}
var counter = makeCounter()
counter()
counter()
counter()`)
	if v.Kind() != KindInt || v.AsInt() != 3 {
		t.Fatalf("unexpected result: %#v", v)
	}
}

func TestRecursiveFunctionCall(t *testing.T) {
	v := mustRun(t, `func fib(n) {
  if (n < 2) {
    return n
  }
  return fib(n - 1) + fib(n - 2)
}
fib(10)`)
	if v.Kind() != KindInt || v.AsInt() != 55 {
		t.Fatalf("unexpected result: %#v", v)
	}
}

func TestVariadicFunctionCollectsTrailingArgs(t *testing.T) {
	v := mustRun(t, `func sum(first, ...) {
  var total = first
  each (a : __args__) {
    total = total + a
  }
  return total
}
sum(1, 2, 3, 4)`)
	if v.Kind() != KindInt || v.AsInt() != 10 {
		t.Fatalf("unexpected result: %#v", v)
	}
}

func TestTryCatchRecoversFromThrow(t *testing.T) {
	v := mustRun(t, `var result = "unset"
try {
  throw "boom"
} catch (e) {
  result = "caught: " + e
}
result`)
	if v.Kind() != KindString || v.AsString() != "caught: boom" {
		t.Fatalf("unexpected result: %#v", v)
	}
}

func TestUncaughtThrowFails(t *testing.T) {
	err := mustFail(t, `throw "boom"`)
	if err == nil {
		t.Fatalf("expected an uncaught throw to fail Run")
	}
}

func TestDeferRunsOnScopeExitInLIFOOrder(t *testing.T) {
	v := mustRun(t, `func f() {
  var log = []
  defer array.push(log, "first")
  defer array.push(log, "second")
  array.push(log, "body")
  return log
}
f()`)
	if v.Kind() != KindArray {
		t.Fatalf("expected an array result, got %#v", v)
	}
	arr := v.AsArray()
	want := []string{"body", "second", "first"}
	if arr.Len() != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), arr.Len())
	}
	for i, w := range want {
		if got := arr.At(i).Get().AsString(); got != w {
			t.Fatalf("entry %d: got %q, want %q", i, got, w)
		}
	}
}

func TestSwitchFallsThroughWithoutBreak(t *testing.T) {
	v := mustRun(t, `var log = []
switch (2) {
case 1:
  array.push(log, "one")
case 2:
  array.push(log, "two")
case 3:
  array.push(log, "three")
  break
default:
  array.push(log, "default")
}
log`)
	arr := v.AsArray()
	want := []string{"two", "three"}
	if arr.Len() != len(want) {
		t.Fatalf("expected fallthrough to accumulate %d entries, got %d", len(want), arr.Len())
	}
	for i, w := range want {
		if got := arr.At(i).Get().AsString(); got != w {
			t.Fatalf("entry %d: got %q, want %q", i, got, w)
		}
	}
}

func TestForEachOverArrayBindsIndexAndValue(t *testing.T) {
	v := mustRun(t, `var out = []
each (i, x : [10, 20, 30]) {
  array.push(out, json.stringify(i) + ":" + json.stringify(x))
}
out`)
	arr := v.AsArray()
	if arr.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", arr.Len())
	}
	if got := arr.At(1).Get().AsString(); got != "1:20" {
		t.Fatalf("unexpected entry: %q", got)
	}
}

func TestForEachOverObjectBindsKeyAndValue(t *testing.T) {
	v := mustRun(t, `var out = []
each (k, val : { a: 1, b: 2 }) {
  array.push(out, k)
}
out`)
	arr := v.AsArray()
	if arr.Len() != 2 {
		t.Fatalf("expected 2 keys, got %d", arr.Len())
	}
}

func TestTernaryExpression(t *testing.T) {
	v := mustRun(t, `var x = 5
x > 3 ? "big" : "small"`)
	if v.AsString() != "big" {
		t.Fatalf("unexpected result: %#v", v)
	}
}

func TestLogicalAndShortCircuitsRightOperand(t *testing.T) {
	v := mustRun(t, `func boom() {
  throw "should not run"
}
false and boom()`)
	if v.Kind() != KindBool || v.AsBool() != false {
		t.Fatalf("unexpected result: %#v", v)
	}
}

func TestLogicalOrShortCircuitsRightOperand(t *testing.T) {
	v := mustRun(t, `func boom() {
  throw "should not run"
}
true or boom()`)
	if v.Kind() != KindBool || v.AsBool() != true {
		t.Fatalf("unexpected result: %#v", v)
	}
}

func TestUnsetRemovesBinding(t *testing.T) {
	err := mustFail(t, `var x = 1
unset x
x`)
	if err == nil {
		t.Fatalf("expected referencing an unset variable to fail")
	}
}

func TestAssertFailureRaisesFault(t *testing.T) {
	err := mustFail(t, `assert 1 == 2`)
	if err == nil {
		t.Fatalf("expected assert to fail")
	}
}

func TestMethodCallBindsThis(t *testing.T) {
	v := mustRun(t, `var o = { value: 41, bump: func() { return this.value + 1 } }
o.bump()`)
	if v.Kind() != KindInt || v.AsInt() != 42 {
		t.Fatalf("unexpected result: %#v", v)
	}
}

func TestConstReassignmentFails(t *testing.T) {
	err := mustFail(t, `const x = 1
x = 2`)
	if err == nil {
		t.Fatalf("expected reassigning a const binding to fail")
	}
}

func TestEngineGlobalsExposesTopLevelBindings(t *testing.T) {
	engine, err := NewEngine(Config{})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	if _, err := engine.Run("<test>", []byte("var x = 10")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	globals := engine.Globals()
	x, ok := globals["x"]
	if !ok || x.AsInt() != 10 {
		t.Fatalf("expected x=10 in globals, got %#v", globals)
	}
}

func TestEngineResetClearsGlobals(t *testing.T) {
	engine, err := NewEngine(Config{})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	if _, err := engine.Run("<test>", []byte("var x = 10")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	engine.Reset()
	if _, ok := engine.Globals()["x"]; ok {
		t.Fatalf("expected Reset to clear prior bindings")
	}
	// stdlib bindings must survive a reset.
	if _, ok := engine.Globals()["string"]; !ok {
		t.Fatalf("expected stdlib modules to be re-registered after Reset")
	}
}

func TestFinalExpressionStatementEvaluatesExactlyOnce(t *testing.T) {
	v := mustRun(t, `var calls = 0
func track() {
  calls = calls + 1
  return calls
}
track()`)
	if v.Kind() != KindInt || v.AsInt() != 1 {
		t.Fatalf("expected the trailing call to run exactly once, got %#v", v)
	}
}
