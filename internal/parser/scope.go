package parser

import "github.com/schemec/schemec/internal/ir"

// scope is one open lexical level: the global frame, or one currently-open
// lambda body. Resolution walks the enclosing chain exactly the way a
// closure compiler resolves upvalues — a miss in the current scope asks the
// enclosing scope, and a hit on one of the enclosing scope's own locals (or
// on something the enclosing scope itself had to capture) is recorded as a
// newly captured free variable here. That recursive recording is what makes
// capture propagate outward through any number of nested lambdas without a
// separate fixpoint pass.
type scope struct {
	enclosing *scope
	global    bool

	byName []scopeEntry // declaration order; small enough that linear scan beats a map
	locals []*ir.Binding

	freeVars []*ir.Binding
}

type scopeEntry struct {
	name    string
	binding *ir.Binding
}

func newGlobalScope() *scope {
	return &scope{global: true}
}

func newLambdaScope(enclosing *scope) *scope {
	return &scope{enclosing: enclosing}
}

func (s *scope) findOwn(name string) (*ir.Binding, bool) {
	for _, e := range s.byName {
		if e.name == name {
			return e.binding, true
		}
	}
	return nil, false
}

func (s *scope) declareGlobal(name string) *ir.Binding {
	b := &ir.Binding{Global: true, Name: name}
	s.byName = append(s.byName, scopeEntry{name, b})
	return b
}

func (s *scope) declareLocal(name string) *ir.Binding {
	b := &ir.Binding{Name: name, Index: len(s.locals)}
	s.locals = append(s.locals, b)
	s.byName = append(s.byName, scopeEntry{name, b})
	return b
}

// resolve finds the binding a name refers to, capturing it into every
// intervening lambda scope's FreeVars along the way. The second result is
// false when the name is unbound anywhere in the chain.
func (s *scope) resolve(name string) (*ir.Binding, bool) {
	if b, ok := s.findOwn(name); ok {
		return b, true
	}
	if s.enclosing == nil {
		return nil, false
	}

	outer, ok := s.enclosing.resolve(name)
	if !ok {
		return nil, false
	}
	if outer.Global {
		// Globals are addressed directly via their symbol; they never
		// occupy a frame slot, so no capture bookkeeping is needed.
		return outer, true
	}

	for _, fv := range s.freeVars {
		if fv == outer {
			return outer, true
		}
	}
	outer.Captured = true
	s.freeVars = append(s.freeVars, outer)
	return outer, true
}
