// Package codegen lowers an *ir.Program into x86-64 assembly (Intel syntax,
// GNU `as` dialect). It is the only pipeline stage that knows about stack
// layout, the calloc-backed runtime representation, and label naming.
package codegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/schemec/schemec/internal/errors"
	"github.com/schemec/schemec/internal/ir"
)

// Emitter walks a parsed *ir.Program and produces its assembly text.
type Emitter struct {
	out strings.Builder

	labelCounter int // advances by 2 per `if`, shared by nothing else
	loopCounter  int // one pair of begin<n>/end<n> labels per closure call
}

// Emit lowers program to a complete assembly file, intel-syntax, ready to
// hand to `as`/`ld` alongside libc for `calloc`.
func Emit(program *ir.Program) (string, error) {
	e := &Emitter{}
	return e.emitProgram(program)
}

func (e *Emitter) emitProgram(program *ir.Program) (string, error) {
	e.writeln(".intel_syntax noprefix")
	e.writeln(".global main")
	e.writeln("")

	e.writeln(".data")
	for _, name := range globalNames(program) {
		e.writeln("%s:", name)
		e.writeln("    .zero 8")
	}
	e.writeln("")

	e.writeln(".text")
	e.out.WriteString(runtimePrelude)
	e.writeln("")

	lambdaLabels := make(map[string]bool, len(program.Lambdas))
	for _, lam := range program.Lambdas {
		lambdaLabels[lam.Label] = true
	}
	if err := validateLabels(program.Top, lambdaLabels); err != nil {
		return "", err
	}
	for _, lam := range program.Lambdas {
		if err := validateLabels(lam.Body, lambdaLabels); err != nil {
			return "", err
		}
	}

	for _, lam := range program.Lambdas {
		if err := e.emitLambda(lam); err != nil {
			return "", err
		}
	}

	if err := e.emitMain(program); err != nil {
		return "", err
	}

	return e.out.String(), nil
}

// globalNames returns every global binding's symbol name once, sorted
// alphabetically, so `.data` lists each exactly once.
func globalNames(program *ir.Program) []string {
	var names []string
	seen := make(map[string]bool)
	for _, node := range program.Top {
		defn, ok := node.(ir.Defn)
		if !ok || !defn.Binding.Global {
			continue
		}
		if seen[defn.Binding.Name] {
			continue
		}
		seen[defn.Binding.Name] = true
		names = append(names, defn.Binding.Name)
	}
	sort.Strings(names) // deterministic .data order independent of define order
	return names
}

// validateLabels walks every Proc node reachable from nodes and confirms
// its label names either a known runtime primitive or a lambda actually
// lifted by the parser. A mismatch is an invariant failure (§7, class e):
// the IR claims to reference a routine that doesn't exist.
func validateLabels(nodes []ir.Node, lambdaLabels map[string]bool) error {
	var walkExpr func(ir.Expr) error
	walkExpr = func(expr ir.Expr) error {
		switch x := expr.(type) {
		case ir.Proc:
			if !isPrimitiveLabel(x.Label) && !lambdaLabels[x.Label] {
				return errors.Emit("internal: Proc references unknown label %q", x.Label)
			}
		case ir.Call:
			if err := walkExpr(x.Proc); err != nil {
				return err
			}
			for _, arg := range x.Args {
				if err := walkExpr(arg); err != nil {
					return err
				}
			}
		case ir.If:
			if err := walkExpr(x.Test); err != nil {
				return err
			}
			if err := walkExpr(x.Then); err != nil {
				return err
			}
			if err := walkExpr(x.Else); err != nil {
				return err
			}
		}
		return nil
	}

	for _, node := range nodes {
		switch n := node.(type) {
		case ir.Defn:
			if err := walkExpr(n.Value); err != nil {
				return err
			}
		case ir.ExprStmt:
			if err := walkExpr(n.Expr); err != nil {
				return err
			}
		}
	}
	return nil
}

// frame resolves, within one lambda's (or main's) body, where a non-global
// binding lives: free-captured slots occupy the low end of the frame in
// FreeVars order, native locals (parameters then local defines) follow in
// Locals order. A binding whose Captured flag is set stores a pointer to a
// one-cell heap box rather than its raw value, so every inner lambda that
// captures it shares the same storage.
type frame struct {
	slot map[*ir.Binding]int
}

func newFrame(freeVars, locals []*ir.Binding) *frame {
	f := &frame{slot: make(map[*ir.Binding]int, len(freeVars)+len(locals))}
	for i, b := range freeVars {
		f.slot[b] = i
	}
	for _, b := range locals {
		f.slot[b] = len(freeVars) + b.Index
	}
	return f
}

// offset returns the `rbp`-relative byte offset (negative) of b's slot.
func (f *frame) offset(b *ir.Binding) (int, bool) {
	s, ok := f.slot[b]
	if !ok {
		return 0, false
	}
	return -8 * (s + 1), true
}

func (e *Emitter) writeln(format string, args ...any) {
	fmt.Fprintf(&e.out, format, args...)
	e.out.WriteByte('\n')
}

func (e *Emitter) emitLambda(lam *ir.Lambda) error {
	f := newFrame(lam.FreeVars, lam.Locals)
	frameBytes := 8 * (len(lam.FreeVars) + len(lam.Locals))

	e.writeln("%s:", lam.Label)
	e.writeln("    push rbp")
	e.writeln("    mov rbp, rsp")
	if frameBytes > 0 {
		e.writeln("    sub rsp, %d", frameBytes)
	}

	// Incoming words sit at [rbp+16], [rbp+24], ... . The closure-unwind
	// loop in emitCall pushes free values in chain (FreeVars) order, and
	// since each push lands at a lower address than the last, they arrive
	// here in REVERSED order: FreeVars[n-1] at [rbp+16], ..., FreeVars[0]
	// at [rbp+16+8*(n-1)]. Parameters are unaffected (args are pushed
	// right-to-left by index, which already yields forward order) and
	// follow directly above the free-var region.
	nFree := len(lam.FreeVars)
	for i := range lam.FreeVars {
		e.writeln("    mov rax, [rbp+%d]", 16+8*(nFree-1-i))
		e.writeln("    mov [rbp-%d], rax", 8*(i+1))
	}
	incoming := nFree
	for j := 0; j < lam.Arity; j++ {
		param := lam.Locals[j]
		dst, _ := f.offset(param)
		if param.Captured {
			e.writeln("    mov r12, [rbp+%d]", 16+8*incoming)
			e.writeln("    mov rdi, 1")
			e.writeln("    mov rsi, 8")
			e.writeln("    call calloc")
			e.writeln("    mov [rax], r12")
			e.writeln("    mov [rbp%d], rax", dst)
		} else {
			e.writeln("    mov rax, [rbp+%d]", 16+8*incoming)
			e.writeln("    mov [rbp%d], rax", dst)
		}
		incoming++
	}

	if err := e.emitBody(lam.Body, f); err != nil {
		return err
	}

	e.writeln("    pop rax")
	e.writeln("    mov rsp, rbp")
	e.writeln("    pop rbp")
	// The captured values emitCall pushed sit just above the return
	// address; `ret n` releases them, and the caller's `add rsp` releases
	// the arguments.
	if nFree > 0 {
		e.writeln("    ret %d", 8*nFree)
	} else {
		e.writeln("    ret")
	}
	e.writeln("")
	return nil
}

func (e *Emitter) emitMain(program *ir.Program) error {
	e.writeln("main:")
	e.writeln("    push rbp")
	e.writeln("    mov rbp, rsp")
	e.writeln("    sub rsp, 200")

	if err := e.emitBody(program.Top, newFrame(nil, nil)); err != nil {
		return err
	}

	e.writeln("    pop rax")
	e.writeln("    mov rsp, rbp")
	e.writeln("    pop rbp")
	e.writeln("    ret")
	return nil
}

// emitBody lowers a sequence of body/top-level nodes; every node leaves
// exactly one 8-byte value on the stack.
func (e *Emitter) emitBody(nodes []ir.Node, f *frame) error {
	for _, node := range nodes {
		switch n := node.(type) {
		case ir.Defn:
			if err := e.emitDefn(n, f); err != nil {
				return err
			}
		case ir.ExprStmt:
			if err := e.emitExpr(n.Expr, f); err != nil {
				return err
			}
		default:
			return errors.Emit("unrecognized IR node %T", node)
		}
	}
	return nil
}

// emitDefn installs d.Value into d.Binding's storage, then re-pushes the
// defined value so the body's uniform push/pop discipline still holds (a
// Defn is a Node, not a bare statement, and every Node leaves one word).
func (e *Emitter) emitDefn(d ir.Defn, f *frame) error {
	if err := e.emitExpr(d.Value, f); err != nil {
		return err
	}

	switch {
	case d.Binding.Global:
		e.writeln("    pop rax")
		e.writeln("    mov [rip+%s], rax", d.Binding.Name)
		e.writeln("    push rax")
		return nil
	case d.Binding.Captured:
		e.writeln("    pop r12")
		e.writeln("    mov rdi, 1")
		e.writeln("    mov rsi, 8")
		e.writeln("    call calloc")
		e.writeln("    mov [rax], r12")
		dst, ok := f.offset(d.Binding)
		if !ok {
			return errors.Emit("internal: no frame slot for local %q", d.Binding.Name)
		}
		e.writeln("    mov [rbp%d], rax", dst)
		e.writeln("    push r12")
		return nil
	default:
		dst, ok := f.offset(d.Binding)
		if !ok {
			return errors.Emit("internal: no frame slot for local %q", d.Binding.Name)
		}
		e.writeln("    mov rax, [rsp]")
		e.writeln("    mov [rbp%d], rax", dst)
		return nil
	}
}

func (e *Emitter) emitExpr(expr ir.Expr, f *frame) error {
	switch x := expr.(type) {
	case ir.Bool:
		if x.Value {
			e.writeln("    push 1")
		} else {
			e.writeln("    push 0")
		}
	case ir.Int:
		e.writeln("    push %d", x.Value)
	case ir.Var:
		return e.emitVar(x, f)
	case ir.Proc:
		return e.emitProc(x, f)
	case ir.Call:
		return e.emitCall(x, f)
	case ir.If:
		return e.emitIf(x, f)
	default:
		return errors.Emit("unrecognized IR expression %T", expr)
	}
	return nil
}

func (e *Emitter) emitVar(v ir.Var, f *frame) error {
	if v.Binding.Global {
		e.writeln("    mov rax, [rip+%s]", v.Binding.Name)
		e.writeln("    push rax")
		return nil
	}
	if _, ok := f.offset(v.Binding); !ok {
		return errors.Emit("internal: unresolved variable %q at emission", v.Binding.Name)
	}
	e.emitLoadLocal(v.Binding, f)
	return nil
}

// emitLoadLocal pushes the current value of a non-global binding. A
// captured binding's slot holds a box pointer and must be dereferenced
// once more to reach the value.
func (e *Emitter) emitLoadLocal(b *ir.Binding, f *frame) {
	off, _ := f.offset(b)
	e.writeln("    mov rax, [rbp%d]", off)
	if b.Captured {
		e.writeln("    mov rax, [rax]")
	}
	e.writeln("    push rax")
}

// emitProc constructs the closure value for a procedure reference: a
// calloc'd head cell (function pointer, next) followed by one calloc'd
// cell per captured free variable, each holding that variable's current
// slot content (already a box pointer, since every FreeVars entry is
// Captured by construction) and a pointer to the next cell.
func (e *Emitter) emitProc(p ir.Proc, f *frame) error {
	e.writeln("    mov rdi, 2")
	e.writeln("    mov rsi, 8")
	e.writeln("    call calloc")
	e.writeln("    mov r12, rax")
	e.writeln("    lea rax, [rip+%s]", p.Label)
	e.writeln("    mov [r12], rax")
	e.writeln("    mov qword ptr [r12+8], 0")

	tail := "r12"
	for _, fv := range p.FreeVars {
		off, ok := f.offset(fv)
		if !ok {
			// Every Proc's FreeVars must resolve in its enclosing frame;
			// this is the "invariant failure" class of §7 and should be
			// unreachable for parser-produced IR.
			return errors.Emit("internal: captured variable %q has no slot in the enclosing frame", fv.Name)
		}
		e.writeln("    mov r14, [rbp%d]", off)
		e.writeln("    mov rdi, 2")
		e.writeln("    mov rsi, 8")
		e.writeln("    call calloc")
		e.writeln("    mov [rax], r14")
		e.writeln("    mov qword ptr [rax+8], 0")
		e.writeln("    mov [%s+8], rax", tail)
		e.writeln("    mov r13, rax")
		tail = "r13"
	}

	e.writeln("    push r12")
	return nil
}

// emitCall evaluates parameters right-to-left, evaluates the callee to a
// closure pointer, unspools its captured values onto the stack, and calls
// the function pointer found in the closure's head cell.
func (e *Emitter) emitCall(c ir.Call, f *frame) error {
	for i := len(c.Args) - 1; i >= 0; i-- {
		if err := e.emitExpr(c.Args[i], f); err != nil {
			return err
		}
	}
	if err := e.emitExpr(c.Proc, f); err != nil {
		return err
	}

	n := e.loopCounter
	e.loopCounter++

	e.writeln("    pop r11")
	e.writeln("    mov r10, [r11]")
	e.writeln("    mov r11, [r11+8]")
	e.writeln("begin%d:", n)
	e.writeln("    cmp r11, 0")
	e.writeln("    je end%d", n)
	e.writeln("    push qword ptr [r11]")
	e.writeln("    mov r11, [r11+8]")
	e.writeln("    jmp begin%d", n)
	e.writeln("end%d:", n)
	e.writeln("    call r10")
	e.writeln("    add rsp, %d", 8*len(c.Args))
	e.writeln("    push rax")
	return nil
}

func (e *Emitter) emitIf(n ir.If, f *frame) error {
	label := e.labelCounter
	e.labelCounter += 2

	if err := e.emitExpr(n.Test, f); err != nil {
		return err
	}
	e.writeln("    pop rax")
	e.writeln("    cmp rax, 0")
	e.writeln("    je .L%d", label)

	if err := e.emitExpr(n.Then, f); err != nil {
		return err
	}
	e.writeln("    jmp .L%d", label+1)

	e.writeln(".L%d:", label)
	if err := e.emitExpr(n.Else, f); err != nil {
		return err
	}
	e.writeln(".L%d:", label+1)
	return nil
}
