package vm

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of statements.
func Disassemble(statements []Statement) string {
	return DisassembleWithName(statements, "")
}

// DisassembleWithName returns a human-readable listing with a name header.
// Jumps and loop markers are annotated with the index they transfer to.
func DisassembleWithName(statements []Statement, name string) string {
	var sb strings.Builder

	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; %d statements\n", len(statements)))

	var constants, variables int
	for _, stmt := range statements {
		switch stmt.(type) {
		case *LoadConstantStatement, *SetStatement:
			constants++
		case *StoreVariableStatement, *StoreFromRegisterStatement:
			variables++
		}
	}
	if constants > 0 || variables > 0 {
		sb.WriteString(fmt.Sprintf("; Constants loaded: %d, variable stores: %d\n", constants, variables))
	}
	sb.WriteString("\n")

	for pc, stmt := range statements {
		sb.WriteString(fmt.Sprintf("%04d  %s", pc, stmt))
		if target, ok := transferTarget(statements, pc, stmt); ok {
			sb.WriteString(fmt.Sprintf("  ; -> %04d", target))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// transferTarget returns where control goes when stmt transfers it.
func transferTarget(statements []Statement, pc int, stmt Statement) (int, bool) {
	switch s := stmt.(type) {
	case *JumpStatement:
		return pc + 1 + s.Steps, true
	case *JumpIfNotZeroStatement:
		return pc + 1 + s.Steps, true
	case *JumpToIDStatement:
		if s.Op == JumpEnd {
			return 0, false
		}
		if s.Target > pc {
			return s.Target + 1, true
		}
		for i := pc + 1; i < len(statements); i++ {
			if end, ok := statements[i].(*JumpToIDStatement); ok && end.Op == JumpEnd && end.ID == s.ID {
				return i + 1, true
			}
		}
	case *LoopBeginStatement:
		if s.End > pc {
			return s.End + 1, true
		}
	case *IterationEndStatement:
		return pc - s.Steps - 1, true
	}
	return 0, false
}
