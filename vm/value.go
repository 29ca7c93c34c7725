package vm

import (
	"strconv"
	"strings"

	"github.com/chazu/strict/ast"
)

// ValueKind tags the payload carried by a Value.
type ValueKind uint8

const (
	KindNone ValueKind = iota
	KindNumber
	KindText
	KindBoolean
	KindList
	KindTable
	KindReference
)

var valueKindNames = [...]string{
	KindNone:      "None",
	KindNumber:    "Number",
	KindText:      "Text",
	KindBoolean:   "Boolean",
	KindList:      "List",
	KindTable:     "Table",
	KindReference: "Reference",
}

func (k ValueKind) String() string {
	if int(k) < len(valueKindNames) {
		return valueKindNames[k]
	}
	return "Unknown"
}

// Value is the raw payload of an Instance. Exactly one payload field is
// meaningful, selected by kind. The zero Value is None.
type Value struct {
	kind    ValueKind
	number  float64
	text    string
	boolean bool
	list    []Instance
	table   *Table
	ref     *ast.MemberRef
}

// NumberValue returns a numeric payload.
func NumberValue(n float64) Value { return Value{kind: KindNumber, number: n} }

// TextValue returns a text payload.
func TextValue(s string) Value { return Value{kind: KindText, text: s} }

// BooleanValue returns a boolean payload.
func BooleanValue(b bool) Value { return Value{kind: KindBoolean, boolean: b} }

// ListValue returns a list payload. The slice is owned by the Value.
func ListValue(items []Instance) Value { return Value{kind: KindList, list: items} }

// TableValue returns a table payload.
func TableValue(t *Table) Value { return Value{kind: KindTable, table: t} }

// ReferenceValue returns an unresolved member reference.
func ReferenceValue(ref *ast.MemberRef) Value { return Value{kind: KindReference, ref: ref} }

func (v Value) Kind() ValueKind           { return v.kind }
func (v Value) Number() float64           { return v.number }
func (v Value) Text() string              { return v.text }
func (v Value) Boolean() bool             { return v.boolean }
func (v Value) List() []Instance          { return v.list }
func (v Value) Table() *Table             { return v.table }
func (v Value) Reference() *ast.MemberRef { return v.ref }
func (v Value) IsNone() bool              { return v.kind == KindNone }

// Equal reports payload equality. Values of different kinds are never equal.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNone:
		return true
	case KindNumber:
		return v.number == other.number
	case KindText:
		return v.text == other.text
	case KindBoolean:
		return v.boolean == other.boolean
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Value.Equal(other.list[i].Value) {
				return false
			}
		}
		return true
	case KindTable:
		return v.table.equal(other.table)
	case KindReference:
		return v.ref.Member == other.ref.Member
	}
	return false
}

func (v Value) String() string {
	switch v.kind {
	case KindNone:
		return "None"
	case KindNumber:
		return strconv.FormatFloat(v.number, 'f', -1, 64)
	case KindText:
		return v.text
	case KindBoolean:
		return strconv.FormatBool(v.boolean)
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.Value.String()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case KindTable:
		return v.table.String()
	case KindReference:
		return v.ref.String()
	}
	return "Unknown"
}

// ---------------------------------------------------------------------------
// Instance: a typed runtime value
// ---------------------------------------------------------------------------

// Instance is a value tagged with its static type. IsMember marks values that
// belong to the receiver and therefore survive into invoked methods.
type Instance struct {
	Type     *ast.Type
	Value    Value
	IsMember bool
}

func NewNumber(n float64) Instance { return Instance{Type: ast.Number, Value: NumberValue(n)} }
func NewText(s string) Instance    { return Instance{Type: ast.Text, Value: TextValue(s)} }
func NewBoolean(b bool) Instance   { return Instance{Type: ast.Boolean, Value: BooleanValue(b)} }

// NewList returns a list instance of type t.
func NewList(t *ast.Type, items ...Instance) Instance {
	return Instance{Type: t, Value: ListValue(items)}
}

// NewDictionary returns a dictionary instance of type t backed by table.
func NewDictionary(t *ast.Type, table *Table) Instance {
	return Instance{Type: t, Value: TableValue(table)}
}

// NewReference returns an instance that stands for ref until resolved.
func NewReference(ref *ast.MemberRef) Instance {
	return Instance{Type: ref.ReturnType(), Value: ReferenceValue(ref)}
}

// Equal compares type identity, membership and payload.
func (i Instance) Equal(other Instance) bool {
	return i.Type == other.Type && i.IsMember == other.IsMember && i.Value.Equal(other.Value)
}

func (i Instance) String() string {
	if i.Value.kind == KindText && i.Type != nil && i.Type.Kind == ast.KindText {
		return strconv.Quote(i.Value.text)
	}
	return i.Value.String()
}

// maxReferenceDepth bounds reference chains such as a member whose constant
// value is itself a member reference.
const maxReferenceDepth = 16

// Resolve replaces a reference payload with the constant value of the
// referenced member. It reports false when the reference has no constant.
func (i Instance) Resolve() (Instance, bool) {
	for depth := 0; i.Value.kind == KindReference; depth++ {
		member := i.Value.ref.Member
		if member.Value == nil || depth >= maxReferenceDepth {
			return i, false
		}
		next, ok := FromLiteral(member.Value)
		if !ok {
			return i, false
		}
		next.IsMember = i.IsMember
		i = next
	}
	return i, true
}

// FromLiteral converts a constant expression into an Instance. Member
// references that carry a constant become unresolved references; anything
// else reports false.
func FromLiteral(e ast.Expression) (Instance, bool) {
	switch n := e.(type) {
	case *ast.NumberLiteral:
		return NewNumber(n.Value), true
	case *ast.TextLiteral:
		return NewText(n.Value), true
	case *ast.BooleanLiteral:
		return NewBoolean(n.Value), true
	case *ast.ListLiteral:
		items := make([]Instance, 0, len(n.Elements))
		for _, element := range n.Elements {
			item, ok := FromLiteral(element)
			if !ok {
				return Instance{}, false
			}
			items = append(items, item)
		}
		return NewList(n.Type, items...), true
	case *ast.DictionaryLiteral:
		return NewDictionary(n.Type, NewTable()), true
	case *ast.MemberRef:
		if n.Member.Value != nil {
			return NewReference(n), true
		}
	}
	return Instance{}, false
}

// ---------------------------------------------------------------------------
// Table: insertion-ordered dictionary payload
// ---------------------------------------------------------------------------

// TableEntry is one key/value pair of a Table.
type TableEntry struct {
	Key   Instance
	Value Instance
}

// Table is an insertion-ordered dictionary. Tables are treated as immutable
// once shared; With returns an updated copy.
type Table struct {
	entries []TableEntry
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{}
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Entries returns the entries in insertion order. Callers must not modify
// the returned slice.
func (t *Table) Entries() []TableEntry {
	if t == nil {
		return nil
	}
	return t.entries
}

// Get looks up key by payload equality.
func (t *Table) Get(key Value) (Instance, bool) {
	for _, e := range t.Entries() {
		if e.Key.Value.Equal(key) {
			return e.Value, true
		}
	}
	return Instance{}, false
}

// With returns a copy of t with key set to value. An existing key keeps its
// position.
func (t *Table) With(key, value Instance) *Table {
	entries := make([]TableEntry, 0, t.Len()+1)
	replaced := false
	for _, e := range t.Entries() {
		if !replaced && e.Key.Value.Equal(key.Value) {
			e.Value = value
			replaced = true
		}
		entries = append(entries, e)
	}
	if !replaced {
		entries = append(entries, TableEntry{Key: key, Value: value})
	}
	return &Table{entries: entries}
}

func (t *Table) equal(other *Table) bool {
	if t.Len() != other.Len() {
		return false
	}
	for _, e := range t.Entries() {
		v, ok := other.Get(e.Key.Value)
		if !ok || !v.Value.Equal(e.Value.Value) {
			return false
		}
	}
	return true
}

func (t *Table) String() string {
	parts := make([]string, 0, t.Len())
	for _, e := range t.Entries() {
		parts = append(parts, e.Key.Value.String()+": "+e.Value.Value.String())
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
