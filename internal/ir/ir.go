// Package ir defines the intermediate representation produced by the parser
// and consumed by the code emitter: bindings, expressions, definitions, and
// lifted lambda records.
package ir

// Binding is a variable binding shared between the environment frame that
// introduced it and every IR node that references it. Mutating Captured
// through the shared pointer is how the parser records, after the fact,
// that an inner lambda reached across a frame boundary to read it.
type Binding struct {
	Global   bool
	Name     string
	Index    int // position within its own frame's Locals slice; unused when Global
	Captured bool
}

// Expr is the tagged union of expression forms.
type Expr interface{ exprNode() }

// Bool is a boolean literal.
type Bool struct{ Value bool }

// Int is a 32-bit signed integer literal.
type Int struct{ Value int32 }

// Var references a previously resolved Binding.
type Var struct{ Binding *Binding }

// Proc names a closure construction site: either a lifted lambda (Label is
// "_<i>") or a canonical primitive routine. FreeVars is the ordered,
// name-deduplicated set of bindings that must be captured from the
// enclosing frame at this use site.
type Proc struct {
	Label    string
	FreeVars []*Binding
}

// Call applies Proc to Args, left to right in source order.
type Call struct {
	Proc Expr
	Args []Expr
}

// If is a three-armed conditional; all three arms are mandatory.
type If struct {
	Test, Then, Else Expr
}

func (Bool) exprNode() {}
func (Int) exprNode()  {}
func (Var) exprNode()  {}
func (Proc) exprNode() {}
func (Call) exprNode() {}
func (If) exprNode()   {}

// Node is the tagged union of top-level and lambda-body forms.
type Node interface{ irNode() }

// Defn installs the value of Value into Binding's storage.
type Defn struct {
	Binding *Binding
	Value   Expr
}

// ExprStmt is an expression evaluated for its value (and, at top level or as
// the final body form, left on the stack for the caller).
type ExprStmt struct{ Expr Expr }

func (Defn) irNode()     {}
func (ExprStmt) irNode() {}
