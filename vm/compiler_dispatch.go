package vm

import (
	"fmt"

	"github.com/chazu/strict/ast"
)

// ---------------------------------------------------------------------------
// Compiler hook for Invoke
// ---------------------------------------------------------------------------

// CompileFunc is the signature for compilation functions.
// This is used to inject the compiler without creating import cycles.
type CompileFunc func(inv *Invocation) ([]Statement, error)

// Invocation is what an Invoke statement hands the compiler: the call, the
// values bound for it at run time, and the caller's register allocator.
type Invocation struct {
	Call     *ast.MethodCall
	Bindings []Binding
	Registry *Registry
}

// Binding names a value the callee body sees as a variable.
type Binding struct {
	Name  string
	Value Instance
}

// UseCompiler installs the function Invoke uses to compile callees.
// The function is typically compiler.CompileInvocation.
func (vm *VirtualMachine) UseCompiler(compile CompileFunc) {
	vm.compile = compile
}

// Compile compiles an invocation with the installed compiler.
func (vm *VirtualMachine) Compile(inv *Invocation) ([]Statement, error) {
	if vm.compile == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoCompiler, inv.Call)
	}
	return vm.compile(inv)
}
