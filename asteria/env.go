package asteria

// Env is a lexical scope backed by GC-owned Variable cells (grounded on the
// teacher's parent-linked Env, generalized so bindings are cells the
// collector can trace rather than plain Values).
type Env struct {
	parent *Env
	names  map[string]*Variable
	gc     *GarbageCollector
}

func newEnv(parent *Env, gc *GarbageCollector) *Env {
	return &Env{parent: parent, names: make(map[string]*Variable), gc: gc}
}

// Lookup resolves name to its cell, searching outward through parent scopes.
func (e *Env) Lookup(name string) (*Variable, bool) {
	for s := e; s != nil; s = s.parent {
		if v, ok := s.names[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Declare binds name to a freshly allocated cell in this scope, replacing
// any existing binding of the same name in this scope only (shadowing an
// outer one is legal; redeclaring within the same scope releases the old
// cell).
func (e *Env) Declare(name string, mutable bool, val Value) *Variable {
	v := e.gc.CreateVariable(GenYoungest)
	v.mutable = mutable
	v.Assign(val)
	e.gc.Retain(v)
	if old, existed := e.names[name]; existed {
		e.gc.Release(old)
	}
	e.names[name] = v
	return v
}

// DeclareCell binds name directly to an existing cell (used for function
// parameters and for `for each` loop variables, which already hold a live
// cell from the caller).
func (e *Env) DeclareCell(name string, v *Variable) {
	e.gc.Retain(v)
	if old, existed := e.names[name]; existed {
		e.gc.Release(old)
	}
	e.names[name] = v
}

// Unset removes name from this scope (and only this scope), releasing the
// cell it held. Reports whether a binding was found here.
func (e *Env) Unset(name string) bool {
	v, ok := e.names[name]
	if !ok {
		return false
	}
	delete(e.names, name)
	e.gc.Release(v)
	return true
}

// Names returns the bindings local to this scope only, for host tooling
// (REPL variable panels, LSP hover/completion) that wants to inspect a
// scope without walking parent chains.
func (e *Env) Names() map[string]*Variable {
	return e.names
}

// Close releases every binding local to this scope; called when a block
// exits.
func (e *Env) Close() {
	for _, v := range e.names {
		e.gc.Release(v)
	}
	e.names = nil
}
