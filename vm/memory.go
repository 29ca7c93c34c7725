package vm

import "fmt"

// Memory is the state one execution works on: a sparse register file and a
// variable store. Invoked methods run against a derived Memory that shares
// the register map but sees only member variables.
type Memory struct {
	Registers map[Register]Instance
	Variables map[string]Instance
}

// NewMemory returns an empty Memory.
func NewMemory() *Memory {
	return &Memory{
		Registers: make(map[Register]Instance),
		Variables: make(map[string]Instance),
	}
}

// Register returns the instance held in r.
func (m *Memory) Register(r Register) (Instance, error) {
	inst, ok := m.Registers[r]
	if !ok {
		return Instance{}, fmt.Errorf("%w: %s", ErrRegisterEmpty, r)
	}
	return inst, nil
}

// SetRegister overwrites r.
func (m *Memory) SetRegister(r Register, inst Instance) {
	m.Registers[r] = inst
}

// Variable returns the named variable.
func (m *Memory) Variable(name string) (Instance, error) {
	inst, ok := m.Variables[name]
	if !ok {
		return Instance{}, fmt.Errorf("%w: %s", ErrVariableNotFound, name)
	}
	return inst, nil
}

// SetVariable overwrites the named variable.
func (m *Memory) SetVariable(name string, inst Instance) {
	m.Variables[name] = inst
}

// AppendToList appends item to the list held in the named variable.
func (m *Memory) AppendToList(name string, item Instance) error {
	list, err := m.Variable(name)
	if err != nil {
		return err
	}
	if list.Value.Kind() != KindList {
		return fmt.Errorf("%w: %s holds %s", ErrNotCollection, name, list.Value.Kind())
	}
	items := make([]Instance, 0, len(list.Value.List())+1)
	items = append(items, list.Value.List()...)
	list.Value = ListValue(append(items, item))
	m.Variables[name] = list
	return nil
}

// AppendToTable sets key to value in the table held in the named variable.
func (m *Memory) AppendToTable(name string, key, value Instance) error {
	table, err := m.Variable(name)
	if err != nil {
		return err
	}
	if table.Value.Kind() != KindTable {
		return fmt.Errorf("%w: %s holds %s", ErrNotCollection, name, table.Value.Kind())
	}
	table.Value = TableValue(table.Value.Table().With(key, value))
	m.Variables[name] = table
	return nil
}

// Derive returns the Memory an invoked method runs against: the same
// register map and a new variable map holding only member variables.
func (m *Memory) Derive() *Memory {
	vars := make(map[string]Instance)
	for name, inst := range m.Variables {
		if inst.IsMember {
			vars[name] = inst
		}
	}
	return &Memory{Registers: m.Registers, Variables: vars}
}
