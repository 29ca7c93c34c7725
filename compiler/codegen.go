// Package compiler turns type-checked Strict method bodies into vm
// statement sequences.
package compiler

import (
	"errors"
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/strict/ast"
	"github.com/chazu/strict/vm"
)

var log = commonlog.GetLogger("strict.compiler")

// ---------------------------------------------------------------------------
// Generator: flatten expression trees into statements
// ---------------------------------------------------------------------------

// Generator flattens one method body. Registers come from a Registry shared
// with any methods the body invokes; conditional ids come from a counter and
// a stack so nested ifs close in the right order.
type Generator struct {
	body     []ast.Expression
	registry *vm.Registry

	statements []vm.Statement
	idStack    []int
	nextID     int
	hidden     int
	errors     []error
}

// New creates a generator for body. Bindings are emitted first as variable
// stores. A nil registry starts a fresh one.
func New(body []ast.Expression, bindings []vm.Binding, registry *vm.Registry) *Generator {
	if registry == nil {
		registry = vm.NewRegistry()
	}
	g := &Generator{body: body, registry: registry}
	for _, b := range bindings {
		g.emit(&vm.StoreVariableStatement{Identifier: b.Name, Value: b.Value})
	}
	return g
}

// Generate walks the body and returns its statements. A body ends in a
// Return of its last expression when that expression has a value.
func (g *Generator) Generate() ([]vm.Statement, error) {
	for i, e := range g.body {
		if _, ok := e.(*ast.Return); ok {
			g.generate(e)
			continue
		}
		if i == len(g.body)-1 && producesValue(e) {
			g.emit(&vm.ReturnStatement{Register: g.value(e)})
			continue
		}
		g.generate(e)
	}
	if err := errors.Join(g.errors...); err != nil {
		return nil, err
	}
	log.Debugf("generated %d statements from %d expressions", len(g.statements), len(g.body))
	return g.statements, nil
}

// GenerateCall generates a top-level call such as
// ArithmeticFunction(10, 5).Calculate("add"). Constructor arguments of the
// receiver become member variables and call arguments become parameter
// variables; all of them must be constants.
func GenerateCall(call *ast.MethodCall) ([]vm.Statement, error) {
	if call == nil || call.Method == nil {
		return nil, fmt.Errorf("%w: call without method", ErrUnsupportedExpression)
	}
	method := call.Method
	if method.Body == nil {
		return nil, fmt.Errorf("%w: %s has no body", ErrUnsupportedExpression, method)
	}

	var bindings []vm.Binding
	switch recv := call.Instance.(type) {
	case nil, *ast.TypeRef:
	case *ast.MethodCall:
		if !recv.Method.IsConstructor() {
			return nil, fmt.Errorf("%w: receiver %s is not a constructor call", ErrInstanceNameNotFound, recv)
		}
		members := recv.Method.Owner.Members
		if len(recv.Arguments) > len(members) {
			return nil, fmt.Errorf("%w: %s has %d members, got %d arguments", ErrUnsupportedExpression, recv.Method.Owner, len(members), len(recv.Arguments))
		}
		for i, arg := range recv.Arguments {
			inst, err := constant(arg)
			if err != nil {
				return nil, err
			}
			inst.IsMember = true
			bindings = append(bindings, vm.Binding{Name: members[i].Name, Value: inst})
		}
	default:
		return nil, fmt.Errorf("%w: receiver %s is not a constructor call", ErrInstanceNameNotFound, recv)
	}

	if len(call.Arguments) != len(method.Parameters) {
		return nil, fmt.Errorf("%w: %s takes %d arguments, got %d", ErrUnsupportedExpression, method, len(method.Parameters), len(call.Arguments))
	}
	for i, arg := range call.Arguments {
		inst, err := constant(arg)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, vm.Binding{Name: method.Parameters[i].Name, Value: inst})
	}
	return New(method.Body, bindings, vm.NewRegistry()).Generate()
}

// CompileInvocation generates the callee of an Invoke statement. It is the
// vm.CompileFunc the CLI installs with UseCompiler.
func CompileInvocation(inv *vm.Invocation) ([]vm.Statement, error) {
	method := inv.Call.Method
	if method.Body == nil && !method.IsConstructor() {
		return nil, fmt.Errorf("%w: %s has no body", ErrUnsupportedExpression, method)
	}
	return New(method.Body, inv.Bindings, inv.Registry).Generate()
}

func constant(arg ast.Expression) (vm.Instance, error) {
	inst, ok := vm.FromLiteral(arg)
	if !ok {
		return vm.Instance{}, fmt.Errorf("%w: argument %s is not a constant", ErrUnresolvedReference, arg)
	}
	return inst, nil
}

// ---------------------------------------------------------------------------
// Emission helpers
// ---------------------------------------------------------------------------

// emit appends stmt and returns its index.
func (g *Generator) emit(stmt vm.Statement) int {
	g.statements = append(g.statements, stmt)
	return len(g.statements) - 1
}

func (g *Generator) errorf(sentinel error, format string, args ...any) {
	g.errors = append(g.errors, fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...)))
}

func (g *Generator) pushID() int {
	id := g.nextID
	g.nextID++
	g.idStack = append(g.idStack, id)
	return id
}

func (g *Generator) popID() int {
	n := len(g.idStack) - 1
	id := g.idStack[n]
	g.idStack = g.idStack[:n]
	return id
}

// guard emits a conditional id jump over the statements body emits, closed
// by the matching JumpEnd. The jump records the JumpEnd's index.
func (g *Generator) guard(op vm.Instruction, body func()) {
	jump := &vm.JumpToIDStatement{Op: op, ID: g.pushID()}
	g.emit(jump)
	body()
	jump.Target = g.emit(&vm.JumpToIDStatement{Op: vm.JumpEnd, ID: g.popID()})
}

// hiddenName names a compiler-introduced variable. The angle brackets keep
// it apart from source identifiers.
func (g *Generator) hiddenName(kind string) string {
	name := fmt.Sprintf("<%s%d>", kind, g.hidden)
	g.hidden++
	return name
}

// ---------------------------------------------------------------------------
// Expression generation
// ---------------------------------------------------------------------------

// generate emits e in statement position.
func (g *Generator) generate(e ast.Expression) {
	switch n := e.(type) {
	case nil:
		g.errorf(ErrUnsupportedExpression, "nil expression")
	case *ast.ListLiteral:
		g.generateList(n)
	case ast.Literal:
		inst, _ := vm.FromLiteral(n)
		g.emit(&vm.LoadConstantStatement{Register: g.registry.Allocate(), Value: inst})
	case *ast.VariableRef, *ast.ParameterRef:
		g.emit(&vm.LoadVariableStatement{Register: g.registry.Allocate(), Identifier: n.String()})
	case *ast.MemberRef:
		g.generateMember(n)
	case *ast.Binary:
		g.generateBinary(n)
	case *ast.If:
		g.generateIf(n)
	case *ast.For:
		g.generateFor(n)
	case *ast.ConstantDeclaration:
		g.generateStore(n.Name, n.Value)
	case *ast.MutableDeclaration:
		g.generateStore(n.Name, n.Value)
	case *ast.MutableAssignment:
		g.generateStore(n.Name, n.Value)
	case *ast.Return:
		g.emit(&vm.ReturnStatement{Register: g.value(n.Value)})
	case *ast.MethodCall:
		g.generateCall(n)
	default:
		g.errorf(ErrUnsupportedExpression, "%T %s", e, e)
	}
}

// value emits e and returns the register holding its result.
func (g *Generator) value(e ast.Expression) vm.Register {
	if !producesValue(e) {
		g.errorf(ErrInstanceNameNotFound, "%s has no value", describe(e))
		return g.registry.Previous()
	}
	g.generate(e)
	return g.registry.Previous()
}

// producesValue reports whether generating e leaves a result in the most
// recently allocated register.
func producesValue(e ast.Expression) bool {
	switch n := e.(type) {
	case ast.Literal, *ast.VariableRef, *ast.ParameterRef, *ast.MemberRef, *ast.Binary:
		return true
	case *ast.MethodCall:
		if n.Method == nil || n.Method.IsConstructor() || isCollectionWrite(n) {
			return false
		}
		return n.Method.ReturnType != nil && n.Method.ReturnType != ast.None
	}
	return false
}

func describe(e ast.Expression) string {
	if e == nil {
		return "<nil>"
	}
	return e.String()
}

// nameOf returns the variable an expression reads when it is a plain name.
func nameOf(e ast.Expression) (string, bool) {
	switch n := e.(type) {
	case *ast.VariableRef:
		return n.Name, true
	case *ast.ParameterRef:
		return n.Parameter.Name, true
	case *ast.MemberRef:
		if n.Instance == nil {
			return n.Member.Name, true
		}
	}
	return "", false
}

func kindOf(e ast.Expression) ast.Kind {
	if t := e.ReturnType(); t != nil {
		return t.Kind
	}
	return ast.KindNone
}

// generateList builds a list whose elements are not all constants in a
// hidden variable, one WriteToList per element.
func (g *Generator) generateList(n *ast.ListLiteral) {
	if inst, ok := vm.FromLiteral(n); ok {
		g.emit(&vm.LoadConstantStatement{Register: g.registry.Allocate(), Value: inst})
		return
	}
	name := g.hiddenName("list")
	g.emit(&vm.StoreVariableStatement{Identifier: name, Value: vm.NewList(n.Type)})
	for _, element := range n.Elements {
		g.emit(&vm.WriteToListStatement{Register: g.value(element), Identifier: name})
	}
	g.emit(&vm.LoadVariableStatement{Register: g.registry.Allocate(), Identifier: name})
}

// generateMember loads an own member by name and a member read through a
// type, such as Days.Monday, as its constant.
func (g *Generator) generateMember(n *ast.MemberRef) {
	if n.Instance == nil {
		g.emit(&vm.LoadVariableStatement{Register: g.registry.Allocate(), Identifier: n.Member.Name})
		return
	}
	if ref, ok := vm.FromLiteral(n); ok {
		if inst, ok := ref.Resolve(); ok {
			g.emit(&vm.LoadConstantStatement{Register: g.registry.Allocate(), Value: inst})
			return
		}
	}
	g.errorf(ErrUnresolvedReference, "%s has no constant value", n)
}

// ---------------------------------------------------------------------------
// Operators
// ---------------------------------------------------------------------------

var arithmeticInstructions = map[string]vm.Instruction{
	ast.Plus:     vm.Add,
	ast.Minus:    vm.Subtract,
	ast.Multiply: vm.Multiply,
	ast.Divide:   vm.Divide,
	ast.Modulate: vm.Modulo,
}

var comparisonInstructions = map[string]vm.Instruction{
	ast.Greater:        vm.GreaterThan,
	ast.Smaller:        vm.LessThan,
	ast.GreaterOrEqual: vm.GreaterOrEqual,
	ast.SmallerOrEqual: vm.LessOrEqual,
	ast.Is:             vm.Equal,
	ast.IsNot:          vm.NotEqual,
}

// generateBinary emits both operands, then the operation into a fresh
// result register. A comparison used as a value materializes true or false
// into one register.
func (g *Generator) generateBinary(n *ast.Binary) {
	if ast.IsComparison(n.Operator) {
		g.condition(n)
		result := g.registry.Allocate()
		g.guard(vm.JumpToIdIfFalse, func() {
			g.emit(&vm.LoadConstantStatement{Register: result, Value: vm.NewBoolean(true)})
		})
		g.guard(vm.JumpToIdIfTrue, func() {
			g.emit(&vm.LoadConstantStatement{Register: result, Value: vm.NewBoolean(false)})
		})
		return
	}
	op, ok := arithmeticInstructions[n.Operator]
	if !ok {
		g.errorf(ErrUnsupportedExpression, "operator %q", n.Operator)
		return
	}
	left, right := g.operands(n.Left, n.Right)
	g.emit(&vm.BinaryStatement{Op: op, Registers: []vm.Register{left, right, g.registry.Allocate()}})
}

// operands emits left then right and returns their registers. When right
// invokes a method, left is parked in a hidden variable across the call and
// reloaded into a fresh register.
func (g *Generator) operands(left, right ast.Expression) (vm.Register, vm.Register) {
	l := g.value(left)
	if !invokes(right) {
		return l, g.value(right)
	}
	name := g.hiddenName("operand")
	g.emit(&vm.StoreFromRegisterStatement{Register: l, Identifier: name})
	r := g.value(right)
	l = g.registry.Allocate()
	g.emit(&vm.LoadVariableStatement{Register: l, Identifier: name})
	return l, r
}

// condition emits a comparison that sets the condition flag. Anything other
// than a comparison is compared against true.
func (g *Generator) condition(e ast.Expression) {
	if b, ok := e.(*ast.Binary); ok && ast.IsComparison(b.Operator) {
		left, right := g.operands(b.Left, b.Right)
		g.emit(&vm.BinaryStatement{Op: comparisonInstructions[b.Operator], Registers: []vm.Register{left, right}})
		return
	}
	left := g.value(e)
	right := g.registry.Allocate()
	g.emit(&vm.LoadConstantStatement{Register: right, Value: vm.NewBoolean(true)})
	g.emit(&vm.BinaryStatement{Op: vm.Equal, Registers: []vm.Register{left, right}})
}

// ---------------------------------------------------------------------------
// Control flow
// ---------------------------------------------------------------------------

func (g *Generator) generateIf(n *ast.If) {
	g.condition(n.Condition)
	g.guard(vm.JumpToIdIfFalse, func() { g.generateBlock(n.Then) })
	if len(n.Else) > 0 {
		g.guard(vm.JumpToIdIfTrue, func() { g.generateBlock(n.Else) })
	}
}

func (g *Generator) generateBlock(body []ast.Expression) {
	for _, e := range body {
		g.generate(e)
	}
}

// generateFor emits LoopBegin, the body and an IterationEnd counting the
// body statements. An iterable that is not a plain name is evaluated into a
// hidden variable first.
func (g *Generator) generateFor(n *ast.For) {
	name, ok := nameOf(n.Iterable)
	if !ok {
		name = g.hiddenName("iterable")
		g.emit(&vm.StoreFromRegisterStatement{Register: g.value(n.Iterable), Identifier: name})
	}
	begin := &vm.LoopBeginStatement{Identifier: name}
	g.emit(begin)
	start := len(g.statements)
	g.generateBlock(n.Body)
	begin.End = g.emit(&vm.IterationEndStatement{Steps: len(g.statements) - start})
}

// generateStore emits a declaration or assignment: literals are stored
// directly, anything else through a register.
func (g *Generator) generateStore(name string, value ast.Expression) {
	if _, ok := value.(ast.Literal); ok {
		if inst, ok := vm.FromLiteral(value); ok {
			g.emit(&vm.StoreVariableStatement{Identifier: name, Value: inst})
			return
		}
	}
	g.emit(&vm.StoreFromRegisterStatement{Register: g.value(value), Identifier: name})
}

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

// isCollectionWrite reports whether call is an Add the generator turns into
// WriteToList or WriteToTable.
func isCollectionWrite(call *ast.MethodCall) bool {
	if call.Method == nil || call.Method.Name != "Add" || call.Instance == nil {
		return false
	}
	if _, ok := nameOf(call.Instance); !ok {
		return false
	}
	switch kindOf(call.Instance) {
	case ast.KindList:
		return len(call.Arguments) == 1
	case ast.KindDictionary:
		return len(call.Arguments) == 2
	}
	return false
}

func (g *Generator) generateCall(n *ast.MethodCall) {
	if n.Method == nil {
		g.errorf(ErrUnsupportedExpression, "call without method")
		return
	}
	if isCollectionWrite(n) {
		name, _ := nameOf(n.Instance)
		if len(n.Arguments) == 2 {
			key, value := g.operands(n.Arguments[0], n.Arguments[1])
			g.emit(&vm.WriteToTableStatement{Key: key, Value: value, Identifier: name})
			return
		}
		g.emit(&vm.WriteToListStatement{Register: g.value(n.Arguments[0]), Identifier: name})
		return
	}
	if n.Method.IsConstructor() {
		g.errorf(ErrUnsupportedExpression, "constructor call %s outside a receiver", n)
		return
	}

	invoke := &vm.InvokeStatement{Call: n, Registry: g.registry}
	switch recv := n.Instance.(type) {
	case nil, *ast.TypeRef:
	case *ast.MethodCall:
		if recv.Method != nil && recv.Method.IsConstructor() {
			invoke.ReceiverArguments = g.nameArguments(recv.Arguments)
		} else {
			invoke.Receiver = g.nameExpression("receiver", recv)
		}
	default:
		if name, ok := nameOf(recv); ok {
			invoke.Receiver = name
		} else {
			invoke.Receiver = g.nameExpression("receiver", recv)
		}
	}
	invoke.Arguments = g.nameArguments(n.Arguments)
	invoke.Register = g.registry.Allocate()
	g.emit(invoke)
}

// nameArguments returns the variable Invoke reads for each argument: "" for
// a constant, the name itself for a plain name, and a hidden variable
// holding anything else.
func (g *Generator) nameArguments(args []ast.Expression) []string {
	names := make([]string, len(args))
	for i, arg := range args {
		if _, ok := vm.FromLiteral(arg); ok {
			continue
		}
		if name, ok := nameOf(arg); ok {
			names[i] = name
			continue
		}
		names[i] = g.nameExpression("argument", arg)
	}
	return names
}

func (g *Generator) nameExpression(kind string, e ast.Expression) string {
	name := g.hiddenName(kind)
	g.emit(&vm.StoreFromRegisterStatement{Register: g.value(e), Identifier: name})
	return name
}

// invokes reports whether generating e emits an Invoke. A callee is
// compiled at run time from the shared registry and may overwrite any
// register the caller still holds.
func invokes(e ast.Expression) bool {
	switch n := e.(type) {
	case *ast.MethodCall:
		return n.Method != nil && !isCollectionWrite(n) && !n.Method.IsConstructor()
	case *ast.Binary:
		return invokes(n.Left) || invokes(n.Right)
	case *ast.ListLiteral:
		for _, element := range n.Elements {
			if invokes(element) {
				return true
			}
		}
	}
	return false
}
