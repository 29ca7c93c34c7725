package vm

import (
	"fmt"

	"github.com/chazu/strict/ast"
)

// Validate checks the structural invariants of a statement sequence:
// instructions match their statement kinds, binary statements carry two or
// three registers, relative jumps stay in range, resolved targets point
// at their matching markers, and invokes carry a call, a registry and one
// name per argument.
func Validate(statements []Statement) error {
	for pc, stmt := range statements {
		if err := validateStatement(statements, pc, stmt); err != nil {
			return err
		}
		for _, r := range registersOf(stmt) {
			if !r.Valid() {
				return invalid(pc, stmt, "register %d out of range", uint8(r))
			}
		}
	}
	return nil
}

func validateStatement(statements []Statement, pc int, stmt Statement) error {
	switch s := stmt.(type) {
	case nil:
		return fmt.Errorf("%w: %04d nil statement", ErrInvalidStatement, pc)

	case *BinaryStatement:
		if !s.Op.IsBinary() {
			return invalid(pc, stmt, "%s is not a binary instruction", s.Op)
		}
		if n := len(s.Registers); n < 2 {
			return fmt.Errorf("%w: %04d %s", ErrOperandsRequired, pc, stmt)
		} else if n > 3 {
			return invalid(pc, stmt, "%d registers", n)
		}

	case *JumpStatement:
		if s.Op != JumpIfTrue && s.Op != JumpIfFalse {
			return invalid(pc, stmt, "%s is not a relative jump", s.Op)
		}
		if !inRange(statements, pc+1+s.Steps) {
			return invalid(pc, stmt, "jump leaves the sequence")
		}

	case *JumpIfNotZeroStatement:
		if !inRange(statements, pc+1+s.Steps) {
			return invalid(pc, stmt, "jump leaves the sequence")
		}

	case *JumpToIDStatement:
		switch s.Op {
		case JumpEnd:
		case JumpToIdIfFalse, JumpToIdIfTrue:
			if s.Target == 0 {
				break
			}
			end, ok := at[*JumpToIDStatement](statements, s.Target)
			if s.Target <= pc || !ok || end.Op != JumpEnd || end.ID != s.ID {
				return invalid(pc, stmt, "target %04d is not JUMP_END %d", s.Target, s.ID)
			}
		default:
			return invalid(pc, stmt, "%s is not an id jump", s.Op)
		}

	case *LoopBeginStatement:
		if s.End == 0 {
			break
		}
		if _, ok := at[*IterationEndStatement](statements, s.End); !ok || s.End <= pc {
			return invalid(pc, stmt, "end %04d is not ITERATION_END", s.End)
		}

	case *InvokeStatement:
		if s.Call == nil || s.Call.Method == nil || s.Registry == nil {
			return fmt.Errorf("%w: %04d %s", ErrMalformedInvoke, pc, stmt)
		}
		if n := len(s.Arguments); n > 0 && n != len(s.Call.Arguments) {
			return fmt.Errorf("%w: %04d %s: %d argument names for %d arguments", ErrMalformedInvoke, pc, stmt, n, len(s.Call.Arguments))
		}
		if recv, ok := s.Call.Instance.(*ast.MethodCall); ok {
			if recv.Method == nil {
				return fmt.Errorf("%w: %04d %s: receiver without method", ErrMalformedInvoke, pc, stmt)
			}
			if n := len(s.ReceiverArguments); n > 0 && n != len(recv.Arguments) {
				return fmt.Errorf("%w: %04d %s: %d receiver argument names for %d arguments", ErrMalformedInvoke, pc, stmt, n, len(recv.Arguments))
			}
		}

	case *IterationEndStatement:
		if _, ok := at[*LoopBeginStatement](statements, pc-s.Steps-1); !ok || s.Steps < 0 {
			return invalid(pc, stmt, "no LOOP_BEGIN %d statements back", s.Steps+1)
		}
	}
	return nil
}

func at[T Statement](statements []Statement, i int) (T, bool) {
	var zero T
	if i < 0 || i >= len(statements) {
		return zero, false
	}
	s, ok := statements[i].(T)
	return s, ok
}

// inRange reports whether i is a valid instruction pointer; the length
// itself means the end of the sequence.
func inRange(statements []Statement, i int) bool {
	return i >= 0 && i <= len(statements)
}

func registersOf(stmt Statement) []Register {
	switch s := stmt.(type) {
	case *SetStatement:
		return []Register{s.Register}
	case *StoreFromRegisterStatement:
		return []Register{s.Register}
	case *LoadVariableStatement:
		return []Register{s.Register}
	case *LoadConstantStatement:
		return []Register{s.Register}
	case *BinaryStatement:
		return s.Registers
	case *JumpIfNotZeroStatement:
		return []Register{s.Register}
	case *ReturnStatement:
		return []Register{s.Register}
	case *InvokeStatement:
		return []Register{s.Register}
	case *WriteToListStatement:
		return []Register{s.Register}
	case *WriteToTableStatement:
		return []Register{s.Key, s.Value}
	}
	return nil
}

func invalid(pc int, stmt Statement, format string, args ...any) error {
	return fmt.Errorf("%w: %04d %s: %s", ErrInvalidStatement, pc, stmt, fmt.Sprintf(format, args...))
}
