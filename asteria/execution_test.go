package asteria

import (
	"strings"
	"testing"
)

func runWithConfig(t *testing.T, cfg Config, source string) (Value, error) {
	t.Helper()
	engine, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return engine.Run("<test>", []byte(source))
}

func TestStepQuotaAbortsRunawayLoop(t *testing.T) {
	_, err := runWithConfig(t, Config{StepQuota: 100}, `var i = 0
while (true) {
  i = i + 1
}
i`)
	if err == nil {
		t.Fatalf("expected the step quota to abort an infinite loop")
	}
	if !strings.Contains(err.Error(), "step quota") {
		t.Fatalf("expected a step-quota error, got: %v", err)
	}
}

func TestStepQuotaAllowsBoundedWork(t *testing.T) {
	v, err := runWithConfig(t, Config{StepQuota: 100000}, `var i = 0
while (i < 1000) {
  i = i + 1
}
i`)
	if err != nil {
		t.Fatalf("bounded loop unexpectedly hit the step quota: %v", err)
	}
	if v.Kind() != KindInt || v.AsInt() != 1000 {
		t.Fatalf("unexpected result: %#v", v)
	}
}

func TestRecursionLimitFaults(t *testing.T) {
	_, err := runWithConfig(t, Config{RecursionLimit: 8}, `func recurse(n) {
  return recurse(n + 1)
}
recurse(0)`)
	if err == nil {
		t.Fatalf("expected unbounded recursion to fault")
	}
	if !strings.Contains(err.Error(), "recursion") {
		t.Fatalf("expected a recursion error, got: %v", err)
	}
}

func TestRecursionWithinLimitSucceeds(t *testing.T) {
	v, err := runWithConfig(t, Config{RecursionLimit: 64}, `func countdown(n) {
  if (n <= 0) {
    return 0
  }
  return countdown(n - 1)
}
countdown(10)`)
	if err != nil {
		t.Fatalf("recursion within the configured limit failed: %v", err)
	}
	if v.Kind() != KindInt || v.AsInt() != 0 {
		t.Fatalf("unexpected result: %#v", v)
	}
}

func TestMemoryQuotaFaultsOnLargeAllocation(t *testing.T) {
	_, err := runWithConfig(t, Config{MemoryQuotaBytes: 512}, `var big = []
var i = 0
while (i < 10000) {
  array.push(big, i)
  i = i + 1
}
big = big`)
	if err == nil {
		t.Fatalf("expected a tiny memory quota to fault on a large allocation")
	}
}

func TestUnsetStepQuotaFallsBackToDefaultBudget(t *testing.T) {
	v, err := runWithConfig(t, Config{StepQuota: -1}, `var i = 0
while (i < 5000) {
  i = i + 1
}
i`)
	if err != nil {
		t.Fatalf("a non-positive step quota should fall back to the default budget, got: %v", err)
	}
	if v.Kind() != KindInt || v.AsInt() != 5000 {
		t.Fatalf("unexpected result: %#v", v)
	}
}

// TestStackFramesRecordedOnInternalFault checks that a fault raised while
// still deep in the call chain (unlike an uncaught throw, which is only
// converted to a RuntimeError after the chain has already unwound) carries
// the frames that were live at the moment it fired.
func TestStackFramesRecordedOnInternalFault(t *testing.T) {
	_, err := runWithConfig(t, Config{RecursionLimit: 8}, `func recurse(n) {
  return recurse(n + 1)
}
recurse(0)`)
	if err == nil {
		t.Fatalf("expected unbounded recursion to fault")
	}
	rtErr, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("expected *RuntimeError, got %T", err)
	}
	if len(rtErr.Frames) == 0 {
		t.Fatalf("expected the error to carry call-stack frames")
	}
}

func TestUncaughtThrowReportsUnwoundFrames(t *testing.T) {
	_, err := runWithConfig(t, Config{}, `func inner() {
  throw "deep failure"
}
func outer() {
  inner()
}
outer()`)
	if err == nil {
		t.Fatalf("expected the throw to propagate uncaught")
	}
	rtErr, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("expected *RuntimeError, got %T", err)
	}
	// by the time an uncaught throw reaches the top level the call stack
	// has already unwound, so no frames survive to attach to the fault.
	if len(rtErr.Frames) != 0 {
		t.Fatalf("expected no frames on an unwound uncaught throw, got %d", len(rtErr.Frames))
	}
	if !strings.Contains(rtErr.Message, "deep failure") {
		t.Fatalf("expected the message to describe the thrown value, got %q", rtErr.Message)
	}
}
