package vm

import (
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"
)

// ---------------------------------------------------------------------------
// Snapshots: deterministic, serializable views of execution state
// ---------------------------------------------------------------------------

// Snapshot captures registers, variables and the returned value of a run.
// Registers are ordered by register, variables by name.
type Snapshot struct {
	RunID     string             `cbor:"1,keyasint,omitempty"`
	Registers []RegisterSnapshot `cbor:"2,keyasint,omitempty"`
	Variables []VariableSnapshot `cbor:"3,keyasint,omitempty"`
	Returns   *ValueSnapshot     `cbor:"4,keyasint,omitempty"`
}

// RegisterSnapshot is one populated register.
type RegisterSnapshot struct {
	Register string        `cbor:"1,keyasint"`
	Value    ValueSnapshot `cbor:"2,keyasint"`
}

// VariableSnapshot is one variable.
type VariableSnapshot struct {
	Name  string        `cbor:"1,keyasint"`
	Value ValueSnapshot `cbor:"2,keyasint"`
}

// ValueSnapshot is an Instance flattened to plain data. References keep
// their source text.
type ValueSnapshot struct {
	Type    string          `cbor:"1,keyasint,omitempty"`
	Kind    string          `cbor:"2,keyasint"`
	Number  float64         `cbor:"3,keyasint,omitempty"`
	Text    string          `cbor:"4,keyasint,omitempty"`
	Boolean bool            `cbor:"5,keyasint,omitempty"`
	Items   []ValueSnapshot `cbor:"6,keyasint,omitempty"`
	Entries []EntrySnapshot `cbor:"7,keyasint,omitempty"`
	Member  bool            `cbor:"8,keyasint,omitempty"`
}

// EntrySnapshot is one table entry.
type EntrySnapshot struct {
	Key   ValueSnapshot `cbor:"1,keyasint"`
	Value ValueSnapshot `cbor:"2,keyasint"`
}

// Snapshot returns the current registers and variables.
func (m *Memory) Snapshot() *Snapshot {
	s := &Snapshot{}

	registers := make([]Register, 0, len(m.Registers))
	for r := range m.Registers {
		registers = append(registers, r)
	}
	sort.Slice(registers, func(i, j int) bool { return registers[i] < registers[j] })
	for _, r := range registers {
		s.Registers = append(s.Registers, RegisterSnapshot{Register: r.String(), Value: snapshotOf(m.Registers[r])})
	}

	names := make([]string, 0, len(m.Variables))
	for name := range m.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s.Variables = append(s.Variables, VariableSnapshot{Name: name, Value: snapshotOf(m.Variables[name])})
	}
	return s
}

// Snapshot returns the final memory of the run together with its id and
// returned value.
func (r *Result) Snapshot() *Snapshot {
	s := r.Memory.Snapshot()
	s.RunID = r.RunID
	if r.Returns != nil {
		v := snapshotOf(*r.Returns)
		s.Returns = &v
	}
	return s
}

func snapshotOf(inst Instance) ValueSnapshot {
	v := ValueSnapshot{Kind: inst.Value.Kind().String(), Member: inst.IsMember}
	if inst.Type != nil {
		v.Type = inst.Type.Name
	}
	switch inst.Value.Kind() {
	case KindNone:
	case KindNumber:
		v.Number = inst.Value.Number()
	case KindText:
		v.Text = inst.Value.Text()
	case KindBoolean:
		v.Boolean = inst.Value.Boolean()
	case KindList:
		for _, item := range inst.Value.List() {
			v.Items = append(v.Items, snapshotOf(item))
		}
	case KindTable:
		for _, e := range inst.Value.Table().Entries() {
			v.Entries = append(v.Entries, EntrySnapshot{Key: snapshotOf(e.Key), Value: snapshotOf(e.Value)})
		}
	case KindReference:
		v.Text = inst.Value.Reference().String()
	}
	return v
}

// cborEncMode uses canonical encoding so equal snapshots encode to equal bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalSnapshot serializes a Snapshot to CBOR bytes.
func MarshalSnapshot(s *Snapshot) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// UnmarshalSnapshot deserializes a Snapshot from CBOR bytes.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("vm: unmarshal snapshot: %w", err)
	}
	return &s, nil
}
