package vm

import "strconv"

// Register names one of the fixed scratch slots of a Memory.
type Register uint8

const (
	R0 Register = iota
	R1
	R2
	R3
	R4
	R5
	R6
	R7
)

// RegisterCount is the number of registers.
const RegisterCount = 8

func (r Register) String() string {
	return "R" + strconv.Itoa(int(r))
}

// Valid reports whether r names an existing register.
func (r Register) Valid() bool {
	return r < RegisterCount
}

// Registry hands out registers in cyclic order and remembers the last one
// issued. One Registry serves one generated method; InvokeStatement carries
// it so callee generation continues from the same cursor.
type Registry struct {
	next     Register
	previous Register
}

// NewRegistry returns a registry positioned at R0.
func NewRegistry() *Registry {
	return &Registry{}
}

// Allocate returns the next register and advances the cursor.
func (r *Registry) Allocate() Register {
	reg := r.next
	r.previous = reg
	r.next = (r.next + 1) % RegisterCount
	return reg
}

// Previous returns the register most recently allocated.
func (r *Registry) Previous() Register {
	return r.previous
}

// Next returns the register Allocate will hand out next.
func (r *Registry) Next() Register {
	return r.next
}
