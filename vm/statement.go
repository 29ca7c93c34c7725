package vm

import (
	"strconv"
	"strings"

	"github.com/chazu/strict/ast"
)

// ---------------------------------------------------------------------------
// Statements: the bytecode vocabulary
// ---------------------------------------------------------------------------

// Statement is one bytecode instruction together with its operands.
// The set of implementations is closed; the VM switches over it exhaustively.
type Statement interface {
	Instruction() Instruction
	String() string
}

// SetStatement writes a constant into a register.
type SetStatement struct {
	Register Register
	Value    Instance
}

// StoreVariableStatement writes a constant into a variable.
type StoreVariableStatement struct {
	Identifier string
	Value      Instance
}

// StoreFromRegisterStatement copies a register into a variable.
type StoreFromRegisterStatement struct {
	Register   Register
	Identifier string
}

// LoadVariableStatement copies a variable into a register.
type LoadVariableStatement struct {
	Register   Register
	Identifier string
}

// LoadConstantStatement copies a constant into a register.
type LoadConstantStatement struct {
	Register Register
	Value    Instance
}

// BinaryStatement applies an arithmetic or comparison instruction to the
// first two registers. Arithmetic writes to the last register, which is the
// second input when only two are given.
type BinaryStatement struct {
	Op        Instruction
	Registers []Register
}

// JumpStatement moves the instruction pointer by Steps when the condition
// flag matches: true for JumpIfTrue, false for JumpIfFalse.
type JumpStatement struct {
	Op    Instruction
	Steps int
}

// JumpIfNotZeroStatement moves the instruction pointer by Steps when the
// register holds a non-zero number.
type JumpIfNotZeroStatement struct {
	Register Register
	Steps    int
}

// JumpToIDStatement is a forward jump to the JumpEnd with the same ID, or
// that JumpEnd itself. Target is the absolute index of the JumpEnd; zero
// means unresolved and the VM scans for it.
type JumpToIDStatement struct {
	Op     Instruction
	ID     int
	Target int
}

// LoopBeginStatement starts a loop over the named variable. End is the
// absolute index of the matching IterationEnd; zero means unresolved.
type LoopBeginStatement struct {
	Identifier string
	End        int
}

// IterationEndStatement closes a loop whose body is Steps statements long.
type IterationEndStatement struct {
	Steps int
}

// ReturnStatement ends execution with the register's value.
type ReturnStatement struct {
	Register Register
}

// InvokeStatement compiles and runs Call in a child VM and writes its
// result to Register. Registry is the caller's allocator.
//
// Arguments names the variable holding each call argument, "" for a
// constant. Receiver names the variable holding a computed receiver and
// ReceiverArguments the arguments of a constructor receiver. When they are
// empty, arguments are read from variables named after their source text.
type InvokeStatement struct {
	Register Register
	Call     *ast.MethodCall
	Registry *Registry

	Arguments         []string
	Receiver          string
	ReceiverArguments []string
}

// WriteToListStatement appends the register's value to a list variable.
type WriteToListStatement struct {
	Register   Register
	Identifier string
}

// WriteToTableStatement adds a key/value pair to a table variable.
type WriteToTableStatement struct {
	Key        Register
	Value      Register
	Identifier string
}

func (s *SetStatement) Instruction() Instruction               { return Set }
func (s *StoreVariableStatement) Instruction() Instruction     { return StoreVariable }
func (s *StoreFromRegisterStatement) Instruction() Instruction { return StoreFromRegister }
func (s *LoadVariableStatement) Instruction() Instruction      { return LoadVariable }
func (s *LoadConstantStatement) Instruction() Instruction      { return LoadConstant }
func (s *BinaryStatement) Instruction() Instruction            { return s.Op }
func (s *JumpStatement) Instruction() Instruction              { return s.Op }
func (s *JumpIfNotZeroStatement) Instruction() Instruction     { return JumpIfNotZero }
func (s *JumpToIDStatement) Instruction() Instruction          { return s.Op }
func (s *LoopBeginStatement) Instruction() Instruction         { return LoopBegin }
func (s *IterationEndStatement) Instruction() Instruction      { return IterationEnd }
func (s *ReturnStatement) Instruction() Instruction            { return Return }
func (s *InvokeStatement) Instruction() Instruction            { return Invoke }
func (s *WriteToListStatement) Instruction() Instruction       { return WriteToList }
func (s *WriteToTableStatement) Instruction() Instruction      { return WriteToTable }

func (s *SetStatement) String() string {
	return format(Set, s.Register.String(), s.Value.String())
}

func (s *StoreVariableStatement) String() string {
	return format(StoreVariable, s.Identifier, s.Value.String())
}

func (s *StoreFromRegisterStatement) String() string {
	return format(StoreFromRegister, s.Register.String(), s.Identifier)
}

func (s *LoadVariableStatement) String() string {
	return format(LoadVariable, s.Register.String(), s.Identifier)
}

func (s *LoadConstantStatement) String() string {
	return format(LoadConstant, s.Register.String(), s.Value.String())
}

func (s *BinaryStatement) String() string {
	operands := make([]string, len(s.Registers))
	for i, r := range s.Registers {
		operands[i] = r.String()
	}
	return format(s.Op, operands...)
}

func (s *JumpStatement) String() string {
	return format(s.Op, strconv.Itoa(s.Steps))
}

func (s *JumpIfNotZeroStatement) String() string {
	return format(JumpIfNotZero, s.Register.String(), strconv.Itoa(s.Steps))
}

func (s *JumpToIDStatement) String() string {
	return format(s.Op, strconv.Itoa(s.ID))
}

func (s *LoopBeginStatement) String() string {
	return format(LoopBegin, s.Identifier)
}

func (s *IterationEndStatement) String() string {
	return format(IterationEnd, strconv.Itoa(s.Steps))
}

func (s *ReturnStatement) String() string {
	return format(Return, s.Register.String())
}

func (s *InvokeStatement) String() string {
	call := "<nil>"
	if s.Call != nil {
		call = s.Call.String()
	}
	return format(Invoke, s.Register.String(), call)
}

func (s *WriteToListStatement) String() string {
	return format(WriteToList, s.Register.String(), s.Identifier)
}

func (s *WriteToTableStatement) String() string {
	return format(WriteToTable, s.Key.String(), s.Value.String(), s.Identifier)
}

func format(i Instruction, operands ...string) string {
	if len(operands) == 0 {
		return i.String()
	}
	return i.String() + " " + strings.Join(operands, " ")
}
