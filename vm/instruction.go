package vm

import "fmt"

// Instruction is the operation a Statement performs. Instructions are
// organized into bands separated by sentinel values so a category can be
// tested with a single comparison.
type Instruction uint16

const (
	// ========================================================================
	// Storage (0-99)
	// ========================================================================

	Set               Instruction = 0 // Set <register> <constant>
	StoreVariable     Instruction = 1 // StoreVariable <name> <constant>
	StoreFromRegister Instruction = 2 // StoreFromRegister <register> <name>
	LoadVariable      Instruction = 3 // LoadVariable <register> <name>
	LoadConstant      Instruction = 4 // LoadConstant <register> <constant>

	StorageSeparator Instruction = 100

	// ========================================================================
	// Arithmetic (101-199)
	// ========================================================================

	Add      Instruction = 101
	Subtract Instruction = 102
	Multiply Instruction = 103
	Divide   Instruction = 104
	Modulo   Instruction = 105

	ArithmeticSeparator Instruction = 200

	// ========================================================================
	// Comparison (201-299): set the condition flag
	// ========================================================================

	GreaterThan    Instruction = 201
	LessThan       Instruction = 202
	GreaterOrEqual Instruction = 203
	LessOrEqual    Instruction = 204
	Equal          Instruction = 205
	NotEqual       Instruction = 206

	ComparisonSeparator Instruction = 300

	// ========================================================================
	// Jumps (301-399)
	// ========================================================================

	JumpIfTrue      Instruction = 301 // relative, on condition flag
	JumpIfFalse     Instruction = 302 // relative, on condition flag
	JumpIfNotZero   Instruction = 303 // relative, on a register's number
	JumpEnd         Instruction = 304 // target marker of an id jump
	JumpToIdIfFalse Instruction = 305
	JumpToIdIfTrue  Instruction = 306

	JumpsSeparator Instruction = 400

	// ========================================================================
	// Control (401-)
	// ========================================================================

	LoopBegin    Instruction = 401
	IterationEnd Instruction = 402
	Invoke       Instruction = 403
	WriteToList  Instruction = 404
	WriteToTable Instruction = 405
	Return       Instruction = 406
)

// InstructionInfo provides metadata about each instruction for the
// disassembler and statement validation.
type InstructionInfo struct {
	Name     string // Human-readable name
	Operands int    // Number of operands the statement carries (-1 = variable)
}

// instructionInfoTable maps instructions to their metadata.
var instructionInfoTable = map[Instruction]InstructionInfo{
	// Storage
	Set:               {"SET", 2},
	StoreVariable:     {"STORE_VARIABLE", 2},
	StoreFromRegister: {"STORE_FROM_REGISTER", 2},
	LoadVariable:      {"LOAD_VARIABLE", 2},
	LoadConstant:      {"LOAD_CONSTANT", 2},

	// Arithmetic: two inputs and an optional result register
	Add:      {"ADD", -1},
	Subtract: {"SUBTRACT", -1},
	Multiply: {"MULTIPLY", -1},
	Divide:   {"DIVIDE", -1},
	Modulo:   {"MODULO", -1},

	// Comparison
	GreaterThan:    {"GREATER_THAN", -1},
	LessThan:       {"LESS_THAN", -1},
	GreaterOrEqual: {"GREATER_OR_EQUAL", -1},
	LessOrEqual:    {"LESS_OR_EQUAL", -1},
	Equal:          {"EQUAL", -1},
	NotEqual:       {"NOT_EQUAL", -1},

	// Jumps
	JumpIfTrue:      {"JUMP_IF_TRUE", 1},
	JumpIfFalse:     {"JUMP_IF_FALSE", 1},
	JumpIfNotZero:   {"JUMP_IF_NOT_ZERO", 2},
	JumpEnd:         {"JUMP_END", 1},
	JumpToIdIfFalse: {"JUMP_TO_ID_IF_FALSE", 1},
	JumpToIdIfTrue:  {"JUMP_TO_ID_IF_TRUE", 1},

	// Control
	LoopBegin:    {"LOOP_BEGIN", 1},
	IterationEnd: {"ITERATION_END", 1},
	Invoke:       {"INVOKE", 2}, // register + callee
	WriteToList:  {"WRITE_TO_LIST", 2},
	WriteToTable: {"WRITE_TO_TABLE", 3},
	Return:       {"RETURN", 1},
}

// GetInstructionInfo returns metadata for an instruction.
// Returns an InstructionInfo named "UNKNOWN(n)" if the instruction is not recognized.
func GetInstructionInfo(i Instruction) InstructionInfo {
	if info, ok := instructionInfoTable[i]; ok {
		return info
	}
	return InstructionInfo{Name: fmt.Sprintf("UNKNOWN(%d)", uint16(i))}
}

// String returns the human-readable name of an instruction.
func (i Instruction) String() string {
	return GetInstructionInfo(i).Name
}

// IsStorage returns true for store and load instructions.
func (i Instruction) IsStorage() bool {
	return i < StorageSeparator
}

// IsArithmetic returns true if the instruction computes a value.
func (i Instruction) IsArithmetic() bool {
	return i > StorageSeparator && i < ArithmeticSeparator
}

// IsComparison returns true if the instruction sets the condition flag.
func (i Instruction) IsComparison() bool {
	return i > ArithmeticSeparator && i < ComparisonSeparator
}

// IsBinary returns true if the instruction belongs on a BinaryStatement.
func (i Instruction) IsBinary() bool {
	return i.IsArithmetic() || i.IsComparison()
}

// IsJump returns true if the instruction can move the instruction pointer.
func (i Instruction) IsJump() bool {
	return i > ComparisonSeparator && i < JumpsSeparator
}

// IsControl returns true for loop, invoke, collection and return instructions.
func (i Instruction) IsControl() bool {
	return i > JumpsSeparator
}

// AllInstructions returns every defined instruction.
func AllInstructions() []Instruction {
	instructions := make([]Instruction, 0, len(instructionInfoTable))
	for i := range instructionInfoTable {
		instructions = append(instructions, i)
	}
	return instructions
}
