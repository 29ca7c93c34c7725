package vm

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/strict/ast"
)

// ---------------------------------------------------------------------------
// Invoke: nested compilation and execution
// ---------------------------------------------------------------------------

// invoke runs the call of s. Builtin collection methods are answered
// directly; other callees are compiled and executed in a child execution
// sharing this register map. Child failures are returned unchanged.
func (e *execution) invoke(s *InvokeStatement) error {
	if s.Call == nil || s.Call.Method == nil || s.Registry == nil {
		return fmt.Errorf("%w: %s", ErrMalformedInvoke, s)
	}
	method := s.Call.Method
	args, err := e.arguments(s.Call.Arguments, s.Arguments)
	if err != nil {
		return err
	}

	if method.IsBuiltin() {
		if s.Call.Instance == nil {
			return fmt.Errorf("%w: builtin %s without receiver", ErrMalformedInvoke, method)
		}
		receiver, err := e.memory.Variable(s.receiverName())
		if err != nil {
			return err
		}
		result, err := callBuiltin(method.Name, normalize(receiver), args)
		if err != nil {
			return err
		}
		e.memory.SetRegister(s.Register, result)
		return nil
	}

	bindings, err := e.bindings(s, args)
	if err != nil {
		return err
	}
	statements, err := e.vm.Compile(&Invocation{Call: s.Call, Bindings: bindings, Registry: s.Registry})
	if err != nil {
		return err
	}
	if err := Validate(statements); err != nil {
		return err
	}

	if e.vm.Trace && log.AllowLevel(commonlog.Debug) {
		log.Debugf("[%s/%d] invoke %s (%d statements)", e.runID, e.depth, s.Call, len(statements))
	}
	child := &execution{
		vm:         e.vm,
		runID:      e.runID,
		depth:      e.depth + 1,
		statements: statements,
		memory:     e.memory.Derive(),
	}
	result, err := child.run()
	if err != nil {
		return err
	}
	if result.Returns != nil {
		e.memory.SetRegister(s.Register, *result.Returns)
	}
	return nil
}

// arguments evaluates call arguments: constants directly, anything else by
// the variable names assigns it, or else the variable named after the
// argument's text.
func (e *execution) arguments(exprs []ast.Expression, names []string) ([]Instance, error) {
	if len(names) > 0 && len(names) != len(exprs) {
		return nil, fmt.Errorf("%w: %d argument names for %d arguments", ErrMalformedInvoke, len(names), len(exprs))
	}
	args := make([]Instance, 0, len(exprs))
	for i, arg := range exprs {
		name := arg.String()
		if len(names) > 0 && names[i] != "" {
			name = names[i]
		} else if inst, ok := FromLiteral(arg); ok {
			args = append(args, inst)
			continue
		}
		inst, err := e.memory.Variable(name)
		if err != nil {
			return nil, err
		}
		inst.IsMember = false
		args = append(args, inst)
	}
	return args, nil
}

// bindings pairs the callee's receiver members and parameters with values.
// A constructor receiver binds every member; a variable receiver binds the
// owner's first member.
func (e *execution) bindings(s *InvokeStatement, args []Instance) ([]Binding, error) {
	call := s.Call
	method := call.Method
	var bindings []Binding

	switch recv := call.Instance.(type) {
	case nil, *ast.TypeRef:
	case *ast.MethodCall:
		if !recv.Method.IsConstructor() {
			inst, err := e.memory.Variable(s.receiverName())
			if err != nil {
				return nil, err
			}
			bindings = appendReceiver(bindings, method.Owner, inst)
			break
		}
		values, err := e.arguments(recv.Arguments, s.ReceiverArguments)
		if err != nil {
			return nil, err
		}
		members := recv.Method.Owner.Members
		if len(values) > len(members) {
			return nil, fmt.Errorf("%w: %s takes %d members, got %d", ErrMalformedInvoke, recv.Method.Owner, len(members), len(values))
		}
		for i, value := range values {
			value.IsMember = true
			bindings = append(bindings, Binding{Name: members[i].Name, Value: value})
		}
	default:
		inst, err := e.memory.Variable(s.receiverName())
		if err != nil {
			return nil, err
		}
		bindings = appendReceiver(bindings, method.Owner, inst)
	}

	if len(args) != len(method.Parameters) {
		return nil, fmt.Errorf("%w: %s takes %d arguments, got %d", ErrMalformedInvoke, method, len(method.Parameters), len(args))
	}
	for i, p := range method.Parameters {
		bindings = append(bindings, Binding{Name: p.Name, Value: args[i]})
	}
	return bindings, nil
}

func appendReceiver(bindings []Binding, owner *ast.Type, receiver Instance) []Binding {
	if owner == nil || len(owner.Members) == 0 {
		return bindings
	}
	receiver.IsMember = true
	return append(bindings, Binding{Name: owner.Members[0].Name, Value: receiver})
}

func (s *InvokeStatement) receiverName() string {
	if s.Receiver != "" {
		return s.Receiver
	}
	return s.Call.Instance.String()
}
