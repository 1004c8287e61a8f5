// Package parser is a recursive-descent parser that performs scope
// resolution, variable classification, lambda lifting, and free-variable
// computation in the same pass as it builds the IR. There is no separate
// resolve step: every Var node it produces already carries a resolved
// *ir.Binding, and every lambda it lifts already carries its final
// FreeVars set.
package parser

import (
	"fmt"

	"github.com/schemec/schemec/internal/errors"
	"github.com/schemec/schemec/internal/ir"
	"github.com/schemec/schemec/internal/lexer"
)

var primitives = map[string]string{
	"=": "equal", "!=": "neq", "<": "lth", "<=": "leq", ">": "gth", ">=": "geq",
	"+": "add", "-": "sub", "*": "mul", "/": "div",
	"cons": "cons", "car": "car", "cdr": "cdr", "rem": "rem",
}

// reservedGlobalNames is the set of runtime routine labels the emitter's
// prelude defines in .text (the distinct values of primitives, e.g. "add"
// alongside its surface spelling "+"). A `define` at global scope reusing
// one of these would emit a second, colliding ".data"/label of the same
// name.
var reservedGlobalNames = func() map[string]bool {
	m := make(map[string]bool, len(primitives))
	for _, label := range primitives {
		m[label] = true
	}
	return m
}()

// Parser consumes a token sequence and produces an *ir.Program.
type Parser struct {
	tokens  []lexer.Token
	pos     int
	global  *scope
	lambdas []*ir.Lambda
}

// New returns a Parser over an already-tokenized source.
func New(tokens []lexer.Token) *Parser {
	return &Parser{tokens: tokens, global: newGlobalScope()}
}

// Parse tokenizes and parses source in one call.
func Parse(source string) (*ir.Program, error) {
	return New(lexer.Tokenize(source)).ParseProgram()
}

func (p *Parser) cur() lexer.Token {
	return p.tokens[p.pos]
}

func (p *Parser) peek() lexer.Token {
	if p.pos+1 >= len(p.tokens) {
		return lexer.Token{Type: lexer.EOF}
	}
	return p.tokens[p.pos+1]
}

func (p *Parser) advance() lexer.Token {
	t := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) expect(tt lexer.TokenType) (lexer.Token, error) {
	if p.cur().Type != tt {
		return lexer.Token{}, errors.Parse("expected %s, got %s %q", tt, p.cur().Type, p.cur().Literal)
	}
	return p.advance(), nil
}

func (p *Parser) isDefineForm() bool {
	return p.cur().Type == lexer.LPAREN &&
		p.peek().Type == lexer.IDENT && p.peek().Literal == "define"
}

// ParseProgram consumes the full token stream, returning the lifted
// lambdas and the top-level node sequence.
func (p *Parser) ParseProgram() (*ir.Program, error) {
	var top []ir.Node
	for p.cur().Type != lexer.EOF {
		node, err := p.parseTopLevelForm()
		if err != nil {
			return nil, err
		}
		top = append(top, node)
	}
	return &ir.Program{Lambdas: p.lambdas, Top: top}, nil
}

func (p *Parser) parseTopLevelForm() (ir.Node, error) {
	if p.isDefineForm() {
		return p.parseDefine(p.global, true)
	}
	expr, err := p.parseExpr(p.global)
	if err != nil {
		return nil, err
	}
	return ir.ExprStmt{Expr: expr}, nil
}

func (p *Parser) parseBodyForm(s *scope) (ir.Node, error) {
	if p.isDefineForm() {
		return p.parseDefine(s, false)
	}
	expr, err := p.parseExpr(s)
	if err != nil {
		return nil, err
	}
	return ir.ExprStmt{Expr: expr}, nil
}

func (p *Parser) parseDefine(s *scope, global bool) (ir.Node, error) {
	p.advance() // (
	p.advance() // define

	nameTok, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, errors.Parse("define requires an identifier: %v", err)
	}

	if global && reservedGlobalNames[nameTok.Literal] {
		return nil, errors.Resolve("%q collides with a runtime primitive and cannot be a global name", nameTok.Literal)
	}

	var binding *ir.Binding
	if global {
		binding = p.global.declareGlobal(nameTok.Literal)
	} else {
		binding = s.declareLocal(nameTok.Literal)
	}

	value, err := p.parseExpr(s)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return ir.Defn{Binding: binding, Value: value}, nil
}

func (p *Parser) parseExpr(s *scope) (ir.Expr, error) {
	tok := p.cur()
	switch tok.Type {
	case lexer.INT:
		p.advance()
		return ir.Int{Value: tok.Int}, nil
	case lexer.BOOLEAN:
		p.advance()
		return ir.Bool{Value: tok.Bool}, nil
	case lexer.IDENT:
		p.advance()
		return p.resolveIdentifier(s, tok.Literal)
	case lexer.LPAREN:
		return p.parseParenForm(s)
	default:
		return nil, errors.Parse("unexpected token %s %q", tok.Type, tok.Literal)
	}
}

func (p *Parser) resolveIdentifier(s *scope, name string) (ir.Expr, error) {
	if label, ok := primitives[name]; ok {
		return ir.Proc{Label: label}, nil
	}
	binding, ok := s.resolve(name)
	if !ok {
		return nil, errors.Resolve("undefined variable %q", name)
	}
	return ir.Var{Binding: binding}, nil
}

func (p *Parser) parseParenForm(s *scope) (ir.Expr, error) {
	p.advance() // (

	if p.cur().Type == lexer.IDENT {
		switch p.cur().Literal {
		case "lambda":
			return p.parseLambda(s)
		case "if":
			return p.parseIf(s)
		}
	}
	return p.parseCall(s)
}

func (p *Parser) parseLambda(s *scope) (ir.Expr, error) {
	p.advance() // lambda

	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, errors.Parse("lambda formals must be wrapped in (): %v", err)
	}

	lambdaScope := newLambdaScope(s)
	for p.cur().Type == lexer.IDENT {
		lambdaScope.declareLocal(p.advance().Literal)
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	arity := len(lambdaScope.locals)

	var body []ir.Node
	for p.cur().Type != lexer.RPAREN {
		if p.cur().Type == lexer.EOF {
			return nil, errors.Parse("unterminated lambda body")
		}
		node, err := p.parseBodyForm(lambdaScope)
		if err != nil {
			return nil, err
		}
		body = append(body, node)
	}
	p.advance() // )

	label := fmt.Sprintf("_%d", len(p.lambdas))
	lambda := &ir.Lambda{
		Label:    label,
		Locals:   lambdaScope.locals,
		Arity:    arity,
		FreeVars: lambdaScope.freeVars,
		Body:     body,
	}
	p.lambdas = append(p.lambdas, lambda)

	return ir.Proc{Label: label, FreeVars: lambdaScope.freeVars}, nil
}

func (p *Parser) parseIf(s *scope) (ir.Expr, error) {
	p.advance() // if

	test, err := p.parseExpr(s)
	if err != nil {
		return nil, err
	}
	then, err := p.parseExpr(s)
	if err != nil {
		return nil, err
	}
	alt, err := p.parseExpr(s)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return ir.If{Test: test, Then: then, Else: alt}, nil
}

func (p *Parser) parseCall(s *scope) (ir.Expr, error) {
	proc, err := p.parseExpr(s)
	if err != nil {
		return nil, err
	}

	var args []ir.Expr
	for p.cur().Type != lexer.RPAREN {
		if p.cur().Type == lexer.EOF {
			return nil, errors.Parse("unterminated call, expected )")
		}
		arg, err := p.parseExpr(s)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	p.advance() // )
	return ir.Call{Proc: proc, Args: args}, nil
}
