// Package compiler wires the lexer, parser, and code emitter into the
// single entry point the CLI (and its tests) call.
package compiler

import (
	"github.com/schemec/schemec/internal/codegen"
	"github.com/schemec/schemec/internal/parser"
)

// CompileSource runs the full pipeline over source and returns the
// generated x86-64 assembly text. Any lex, parse, resolve, or emit failure
// aborts the whole compilation; there is no partial output on error.
func CompileSource(source string) (string, error) {
	program, err := parser.Parse(source)
	if err != nil {
		return "", err
	}
	return codegen.Emit(program)
}
