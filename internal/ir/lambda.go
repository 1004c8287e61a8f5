package ir

// Lambda is the record produced for one `lambda` form encountered during
// parsing. Lambdas are identified by their index in emission order; Label
// is always "_<index>".
type Lambda struct {
	Label string

	// Locals holds every binding native to this lambda's own frame, in
	// declaration/encounter order: parameters first (Arity of them), then
	// local `define`s. Binding.Index is that binding's position in this
	// slice.
	Locals []*Binding
	Arity  int

	// FreeVars is the ordered, name-deduplicated set of bindings captured
	// from an enclosing frame. Iteration order fixes both the stack slots
	// reserved at the front of this lambda's frame and the closure-cell
	// order used when a Proc expression referencing this lambda is
	// constructed.
	FreeVars []*Binding

	Body []Node
}

// LocalCount is the total number of frame slots this lambda's own locals
// occupy (parameters plus local `define`s), not counting captured-free
// slots.
func (l *Lambda) LocalCount() int { return len(l.Locals) }

// FreeCount is the number of captured-free slots reserved at the front of
// this lambda's frame.
func (l *Lambda) FreeCount() int { return len(l.FreeVars) }

// Program is the parser's complete output: every lifted lambda plus the
// sequence of top-level nodes.
type Program struct {
	Lambdas []*Lambda
	Top     []Node
}
