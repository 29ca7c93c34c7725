package vm

import "errors"

// ---------------------------------------------------------------------------
// Execution errors
// ---------------------------------------------------------------------------

var (
	ErrOperandsRequired    = errors.New("operands required")
	ErrVariableNotFound    = errors.New("variable not found in memory")
	ErrMalformedInvoke     = errors.New("malformed invoke")
	ErrNoCompiler          = errors.New("no compiler configured for invoke")
	ErrRegisterEmpty       = errors.New("register empty")
	ErrUnsupportedOperands = errors.New("unsupported operands")
	ErrNotIterable         = errors.New("value is not iterable")
	ErrNotCollection       = errors.New("variable is not a collection")
	ErrUnresolvedReturn    = errors.New("return value is an unresolved reference")
	ErrUnknownBuiltin      = errors.New("unknown builtin method")
	ErrInvalidStatement    = errors.New("invalid statement")
)
