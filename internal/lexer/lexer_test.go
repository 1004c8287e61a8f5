package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextTokenBasic(t *testing.T) {
	input := `(define add3 (lambda (x) (+ x 1)))`

	want := []Token{
		{Type: LPAREN, Literal: "("},
		{Type: IDENT, Literal: "define"},
		{Type: IDENT, Literal: "add3"},
		{Type: LPAREN, Literal: "("},
		{Type: IDENT, Literal: "lambda"},
		{Type: LPAREN, Literal: "("},
		{Type: IDENT, Literal: "x"},
		{Type: RPAREN, Literal: ")"},
		{Type: LPAREN, Literal: "("},
		{Type: IDENT, Literal: "+"},
		{Type: IDENT, Literal: "x"},
		{Type: INT, Literal: "1", Int: 1},
		{Type: RPAREN, Literal: ")"},
		{Type: RPAREN, Literal: ")"},
		{Type: RPAREN, Literal: ")"},
		{Type: EOF},
	}

	got := Tokenize(input)
	require.Equal(t, want, got)
}

func TestNextTokenOperatorsDoNotMixWithLetters(t *testing.T) {
	got := Tokenize("<= !=x1")
	require.Equal(t, []Token{
		{Type: IDENT, Literal: "<="},
		{Type: IDENT, Literal: "!="},
		{Type: IDENT, Literal: "x1"},
		{Type: EOF},
	}, got)
}

func TestNextTokenBooleans(t *testing.T) {
	got := Tokenize("#t #f")
	require.Equal(t, []Token{
		{Type: BOOLEAN, Literal: "#t", Bool: true},
		{Type: BOOLEAN, Literal: "#f", Bool: false},
		{Type: EOF},
	}, got)
}

func TestNextTokenUnknownCharactersAreSkipped(t *testing.T) {
	got := Tokenize("1 @ 2")
	require.Equal(t, []Token{
		{Type: INT, Literal: "1", Int: 1},
		{Type: INT, Literal: "2", Int: 2},
		{Type: EOF},
	}, got)
}

func TestNextTokenPeriod(t *testing.T) {
	got := Tokenize("a . b")
	require.Equal(t, []Token{
		{Type: IDENT, Literal: "a"},
		{Type: PERIOD, Literal: "."},
		{Type: IDENT, Literal: "b"},
		{Type: EOF},
	}, got)
}
