package vm

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("strict.vm")

// ---------------------------------------------------------------------------
// VirtualMachine: register-based statement interpreter
// ---------------------------------------------------------------------------

// VirtualMachine executes statement sequences. A VirtualMachine keeps no
// state between Execute calls other than its configuration.
type VirtualMachine struct {
	// Trace logs every executed statement at debug level.
	Trace bool

	compile CompileFunc
}

// New creates a virtual machine without a compiler. Install one with
// UseCompiler before executing Invoke statements.
func New() *VirtualMachine {
	return &VirtualMachine{}
}

// Result is the outcome of one Execute call.
type Result struct {
	RunID   string
	Memory  *Memory
	Returns *Instance // nil when the statements ended without a Return
}

// Execute runs statements against a fresh Memory until a Return or the end
// of the sequence.
func (vm *VirtualMachine) Execute(statements []Statement) (*Result, error) {
	if err := Validate(statements); err != nil {
		return nil, err
	}
	e := &execution{
		vm:         vm,
		runID:      uuid.NewString(),
		statements: statements,
		memory:     NewMemory(),
	}
	return e.run()
}

// execution is the transient state of one run: instruction pointer,
// condition flag and loop frames. Invoked methods get their own execution
// over a derived Memory.
type execution struct {
	vm         *VirtualMachine
	runID      string
	depth      int
	statements []Statement
	memory     *Memory

	ip        int
	condition bool
	loops     []loopFrame
	returns   *Instance
}

// loopFrame tracks one active loop, keyed by the index of its LoopBegin.
type loopFrame struct {
	begin    int
	iterable Instance
	runes    []rune
	index    int
	count    int
}

func (e *execution) run() (*Result, error) {
	for e.ip < len(e.statements) {
		pc := e.ip
		stmt := e.statements[pc]
		e.ip++

		if e.vm.Trace && log.AllowLevel(commonlog.Debug) {
			log.Debugf("[%s/%d] %04d %s", e.runID, e.depth, pc, stmt)
		}

		done, err := e.step(pc, stmt)
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}
	return &Result{RunID: e.runID, Memory: e.memory, Returns: e.returns}, nil
}

// step executes one statement and reports whether execution has returned.
func (e *execution) step(pc int, stmt Statement) (bool, error) {
	switch s := stmt.(type) {
	// ============ Storage ============
	case *SetStatement:
		e.memory.SetRegister(s.Register, s.Value)

	case *StoreVariableStatement:
		e.memory.SetVariable(s.Identifier, s.Value)

	case *StoreFromRegisterStatement:
		inst, err := e.memory.Register(s.Register)
		if err != nil {
			return false, err
		}
		inst.IsMember = false
		if old, ok := e.memory.Variables[s.Identifier]; ok {
			inst.IsMember = old.IsMember
		}
		e.memory.SetVariable(s.Identifier, inst)

	case *LoadVariableStatement:
		inst, err := e.memory.Variable(s.Identifier)
		if err != nil {
			return false, err
		}
		e.memory.SetRegister(s.Register, inst)

	case *LoadConstantStatement:
		e.memory.SetRegister(s.Register, s.Value)

	// ============ Arithmetic and comparison ============
	case *BinaryStatement:
		return false, e.binary(s)

	// ============ Jumps ============
	case *JumpStatement:
		if (s.Op == JumpIfTrue && e.condition) || (s.Op == JumpIfFalse && !e.condition) {
			e.ip += s.Steps
		}

	case *JumpIfNotZeroStatement:
		inst, err := e.memory.Register(s.Register)
		if err != nil {
			return false, err
		}
		if inst.Value.Kind() != KindNumber {
			return false, fmt.Errorf("%w: %s holds %s", ErrUnsupportedOperands, s.Register, inst.Value.Kind())
		}
		if inst.Value.Number() > 0 {
			e.ip += s.Steps
		}

	case *JumpToIDStatement:
		return false, e.jumpToID(pc, s)

	// ============ Control ============
	case *LoopBeginStatement:
		return false, e.loopBegin(pc, s)

	case *IterationEndStatement:
		return false, e.iterationEnd(pc, s)

	case *InvokeStatement:
		return false, e.invoke(s)

	case *WriteToListStatement:
		inst, err := e.memory.Register(s.Register)
		if err != nil {
			return false, err
		}
		return false, e.memory.AppendToList(s.Identifier, inst)

	case *WriteToTableStatement:
		key, err := e.memory.Register(s.Key)
		if err != nil {
			return false, err
		}
		value, err := e.memory.Register(s.Value)
		if err != nil {
			return false, err
		}
		return false, e.memory.AppendToTable(s.Identifier, key, value)

	case *ReturnStatement:
		inst, err := e.memory.Register(s.Register)
		if err != nil {
			return false, err
		}
		resolved, ok := inst.Resolve()
		if !ok {
			return false, fmt.Errorf("%w: %s", ErrUnresolvedReturn, inst.Value)
		}
		e.returns = &resolved
		return true, nil

	default:
		return false, fmt.Errorf("%w: %04d %T", ErrInvalidStatement, pc, stmt)
	}
	return false, nil
}

func (e *execution) binary(s *BinaryStatement) error {
	if len(s.Registers) < 2 || len(e.memory.Registers) < 2 {
		return fmt.Errorf("%w: %s", ErrOperandsRequired, s)
	}
	left, lok := e.memory.Registers[s.Registers[0]]
	right, rok := e.memory.Registers[s.Registers[1]]
	if !lok || !rok {
		return fmt.Errorf("%w: %s", ErrOperandsRequired, s)
	}
	left, right = normalize(left), normalize(right)

	if s.Op.IsComparison() {
		condition, err := compare(s.Op, left, right)
		if err != nil {
			return err
		}
		e.condition = condition
		return nil
	}
	result, err := arithmetic(s.Op, left, right)
	if err != nil {
		return err
	}
	e.memory.SetRegister(s.Registers[len(s.Registers)-1], result)
	return nil
}

// normalize resolves member references so operations see constant payloads.
func normalize(inst Instance) Instance {
	if resolved, ok := inst.Resolve(); ok {
		return resolved
	}
	return inst
}

// jumpToID continues after the matching JumpEnd when the condition flag
// selects the jump. A JumpEnd is only reached by falling through its guarded
// branch, so it marks that branch as taken; the JumpToIdIfTrue guarding the
// else branch then skips it.
func (e *execution) jumpToID(pc int, s *JumpToIDStatement) error {
	switch s.Op {
	case JumpEnd:
		e.condition = true
		return nil
	case JumpToIdIfFalse:
		if e.condition {
			return nil
		}
	case JumpToIdIfTrue:
		if !e.condition {
			return nil
		}
	}
	target := s.Target
	if target <= pc {
		target = e.findJumpEnd(pc, s.ID)
		if target < 0 {
			return fmt.Errorf("%w: %04d no JUMP_END %d", ErrInvalidStatement, pc, s.ID)
		}
	}
	e.ip = target + 1
	return nil
}

func (e *execution) findJumpEnd(from, id int) int {
	for i := from + 1; i < len(e.statements); i++ {
		if j, ok := e.statements[i].(*JumpToIDStatement); ok && j.Op == JumpEnd && j.ID == id {
			return i
		}
	}
	return -1
}

// ---------------------------------------------------------------------------
// Loops
// ---------------------------------------------------------------------------

const (
	indexVariable = "index"
	valueVariable = "value"
)

func (e *execution) loopBegin(pc int, s *LoopBeginStatement) error {
	if n := len(e.loops); n > 0 && e.loops[n-1].begin == pc {
		frame := &e.loops[n-1]
		frame.index++
		e.bindLoopVariables(frame)
		return nil
	}

	iterable, err := e.memory.Variable(s.Identifier)
	if err != nil {
		return err
	}
	frame := loopFrame{begin: pc, iterable: normalize(iterable)}
	if err := frame.init(); err != nil {
		return fmt.Errorf("%w: %s", err, s.Identifier)
	}
	if frame.count == 0 {
		end := s.End
		if end <= pc {
			end = e.findIterationEnd(pc)
		}
		e.ip = end + 1
		return nil
	}
	e.loops = append(e.loops, frame)
	e.bindLoopVariables(&e.loops[len(e.loops)-1])
	return nil
}

// iterationEnd rewinds to the LoopBegin Steps+1 statements back while
// iterations remain.
func (e *execution) iterationEnd(pc int, s *IterationEndStatement) error {
	n := len(e.loops)
	if n == 0 {
		return fmt.Errorf("%w: %04d ITERATION_END outside a loop", ErrInvalidStatement, pc)
	}
	frame := &e.loops[n-1]
	if frame.index+1 < frame.count {
		e.ip = pc - s.Steps - 1
		return nil
	}
	e.loops = e.loops[:n-1]
	if n > 1 {
		e.bindLoopVariables(&e.loops[n-2])
	}
	return nil
}

func (e *execution) findIterationEnd(begin int) int {
	depth := 0
	for i := begin + 1; i < len(e.statements); i++ {
		switch e.statements[i].(type) {
		case *LoopBeginStatement:
			depth++
		case *IterationEndStatement:
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return len(e.statements) - 1
}

func (e *execution) bindLoopVariables(frame *loopFrame) {
	e.memory.SetVariable(indexVariable, NewNumber(float64(frame.index)))
	e.memory.SetVariable(valueVariable, frame.current())
}

func (f *loopFrame) init() error {
	v := f.iterable.Value
	switch v.Kind() {
	case KindNumber:
		f.count = max(int(v.Number()), 0)
	case KindText:
		f.runes = []rune(v.Text())
		f.count = len(f.runes)
	case KindList:
		f.count = len(v.List())
	case KindTable:
		f.count = v.Table().Len()
	case KindNone, KindBoolean, KindReference:
		return fmt.Errorf("%w: %s", ErrNotIterable, v.Kind())
	}
	return nil
}

func (f *loopFrame) current() Instance {
	v := f.iterable.Value
	switch v.Kind() {
	case KindText:
		return NewText(string(f.runes[f.index]))
	case KindList:
		return v.List()[f.index]
	case KindTable:
		return v.Table().Entries()[f.index].Key
	}
	return NewNumber(float64(f.index))
}
