package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/schemec/schemec/internal/ir"
)

func mustParse(t *testing.T, source string) *ir.Program {
	t.Helper()
	program, err := Parse(source)
	require.NoError(t, err)
	return program
}

func TestParseIntLiteral(t *testing.T) {
	program := mustParse(t, "5")
	require.Len(t, program.Top, 1)
	require.Equal(t, ir.ExprStmt{Expr: ir.Int{Value: 5}}, program.Top[0])
}

func TestParsePrimitiveCall(t *testing.T) {
	program := mustParse(t, "(+ 2 3)")
	require.Len(t, program.Top, 1)

	want := ir.ExprStmt{Expr: ir.Call{
		Proc: ir.Proc{Label: "add"},
		Args: []ir.Expr{ir.Int{Value: 2}, ir.Int{Value: 3}},
	}}
	require.Equal(t, want, program.Top[0])
}

func TestParseGlobalDefineAndReference(t *testing.T) {
	program := mustParse(t, "(define x 7) x")
	require.Len(t, program.Top, 2)

	defn, ok := program.Top[0].(ir.Defn)
	require.True(t, ok)
	require.True(t, defn.Binding.Global)
	require.Equal(t, "x", defn.Binding.Name)
	require.Equal(t, ir.Int{Value: 7}, defn.Value)

	ref, ok := program.Top[1].(ir.ExprStmt)
	require.True(t, ok)
	varExpr, ok := ref.Expr.(ir.Var)
	require.True(t, ok)
	require.Same(t, defn.Binding, varExpr.Binding)
}

func TestParseLambdaLiftsOneRecord(t *testing.T) {
	program := mustParse(t, "((lambda (x) (+ x 1)) 41)")
	require.Len(t, program.Lambdas, 1)

	lam := program.Lambdas[0]
	require.Equal(t, "_0", lam.Label)
	require.Equal(t, 1, lam.Arity)
	require.Len(t, lam.Locals, 1)
	require.Equal(t, "x", lam.Locals[0].Name)
	require.Empty(t, lam.FreeVars)
	require.False(t, lam.Locals[0].Captured)
}

func TestParseClosureCapturesOuterParameter(t *testing.T) {
	program := mustParse(t, "(define add3 (lambda (x) (lambda (y) (+ x y))))")
	require.Len(t, program.Lambdas, 2)

	outer := program.Lambdas[1] // the outer "(lambda (x) ...)" finishes parsing last
	inner := program.Lambdas[0] // the inner "(lambda (y) (+ x y))" finishes first

	require.Equal(t, 1, outer.Arity)
	require.Equal(t, "x", outer.Locals[0].Name)
	require.True(t, outer.Locals[0].Captured)

	require.Equal(t, 1, inner.Arity)
	require.Len(t, inner.FreeVars, 1)
	require.Same(t, outer.Locals[0], inner.FreeVars[0])
}

func TestParseFreeVariablePropagatesThroughTwoLevels(t *testing.T) {
	// The innermost lambda captures x from two frames out; the
	// intermediate lambda must also list x in its own FreeVars, per the
	// outward-propagation invariant.
	program := mustParse(t, `
		(define f (lambda (x)
			(lambda (y)
				(lambda (z) (+ x (+ y z))))))`)
	require.Len(t, program.Lambdas, 3)

	outer := program.Lambdas[2]  // (lambda (x) ...)
	middle := program.Lambdas[1] // (lambda (y) ...)
	innermost := program.Lambdas[0] // (lambda (z) ...)

	require.Len(t, middle.FreeVars, 1)
	require.Same(t, outer.Locals[0], middle.FreeVars[0])

	require.Len(t, innermost.FreeVars, 2)
	require.Same(t, outer.Locals[0], innermost.FreeVars[0])
	require.Same(t, middle.Locals[0], innermost.FreeVars[1])
}

func TestParseIfProducesThreeArms(t *testing.T) {
	program := mustParse(t, "(if (< 1 2) 10 20)")
	want := ir.If{
		Test: ir.Call{Proc: ir.Proc{Label: "lth"}, Args: []ir.Expr{ir.Int{Value: 1}, ir.Int{Value: 2}}},
		Then: ir.Int{Value: 10},
		Else: ir.Int{Value: 20},
	}
	require.Len(t, program.Top, 1)
	stmt := program.Top[0].(ir.ExprStmt)

	diff := cmp.Diff(want, stmt.Expr, cmpopts.IgnoreUnexported())
	require.Empty(t, diff)
}

func TestParseUndefinedVariableIsFatal(t *testing.T) {
	_, err := Parse("nosuchname")
	require.Error(t, err)
}

func TestParseUnbalancedParensIsFatal(t *testing.T) {
	_, err := Parse("(+ 1 2")
	require.Error(t, err)
}

func TestParseDefineOfNonIdentifierIsFatal(t *testing.T) {
	_, err := Parse("(define 5 6)")
	require.Error(t, err)
}

func TestParseLambdaFormalsMustBeParenthesized(t *testing.T) {
	_, err := Parse("(lambda x (x))")
	require.Error(t, err)
}

func TestParseGlobalDefineCollidingWithPrimitiveLabelIsFatal(t *testing.T) {
	// "add" isn't itself primitive surface syntax (only "+" is), but it is
	// the runtime label "+" rewrites to, and a global of that name would
	// collide with the prelude's "add:" routine label.
	for _, name := range []string{"add", "sub", "mul", "div", "cons", "car", "cdr", "rem"} {
		_, err := Parse("(define " + name + " 5)")
		require.Errorf(t, err, "expected (define %s 5) to be rejected", name)
	}
}

func TestParseLocalDefineMayReuseAPrimitiveLabelName(t *testing.T) {
	// Local bindings never become assembly labels, so no collision is
	// possible; only global scope is restricted.
	program := mustParse(t, "((lambda () (define add 5) add))")
	require.Len(t, program.Lambdas, 1)
	require.Equal(t, "add", program.Lambdas[0].Locals[0].Name)
}
