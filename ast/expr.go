package ast

import (
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expression is the interface for all expression nodes. The set of
// implementations is closed; the compiler switches over it exhaustively.
type Expression interface {
	ReturnType() *Type
	String() string
	expr() // marker method
}

// Literal is implemented by constant value nodes.
type Literal interface {
	Expression
	literal() // marker method
}

// NumberLiteral is a numeric literal.
type NumberLiteral struct {
	Value float64
}

// TextLiteral is a text literal.
type TextLiteral struct {
	Value string
}

// BooleanLiteral is true or false.
type BooleanLiteral struct {
	Value bool
}

// ListLiteral is a list literal such as (1, 2, 3).
type ListLiteral struct {
	Type     *Type
	Elements []Expression
}

// DictionaryLiteral is an empty dictionary construction, Dictionary(Number, Text).
type DictionaryLiteral struct {
	Type *Type
}

func (n *NumberLiteral) ReturnType() *Type     { return Number }
func (n *NumberLiteral) String() string        { return strconv.FormatFloat(n.Value, 'f', -1, 64) }
func (n *NumberLiteral) expr()                 {}
func (n *NumberLiteral) literal()              {}
func (n *TextLiteral) ReturnType() *Type       { return Text }
func (n *TextLiteral) String() string          { return strconv.Quote(n.Value) }
func (n *TextLiteral) expr()                   {}
func (n *TextLiteral) literal()                {}
func (n *BooleanLiteral) ReturnType() *Type    { return Boolean }
func (n *BooleanLiteral) String() string       { return strconv.FormatBool(n.Value) }
func (n *BooleanLiteral) expr()                {}
func (n *BooleanLiteral) literal()             {}
func (n *ListLiteral) ReturnType() *Type       { return n.Type }
func (n *ListLiteral) expr()                   {}
func (n *ListLiteral) literal()                {}
func (n *DictionaryLiteral) ReturnType() *Type { return n.Type }
func (n *DictionaryLiteral) String() string    { return n.Type.Name }
func (n *DictionaryLiteral) expr()             {}
func (n *DictionaryLiteral) literal()          {}

func (n *ListLiteral) String() string {
	parts := make([]string, len(n.Elements))
	for i, e := range n.Elements {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// NewList builds a list literal typed after its first element.
func NewList(elements ...Expression) *ListLiteral {
	elem := None
	if len(elements) > 0 {
		elem = elements[0].ReturnType()
	}
	return &ListLiteral{Type: ListOf(elem), Elements: elements}
}

// Binary is an operator application, left <op> right.
type Binary struct {
	Operator string
	Left     Expression
	Right    Expression
}

func (n *Binary) ReturnType() *Type {
	if IsComparison(n.Operator) {
		return Boolean
	}
	return n.Left.ReturnType()
}

func (n *Binary) String() string {
	return n.Left.String() + " " + n.Operator + " " + n.Right.String()
}

func (n *Binary) expr() {}

// If is a conditional. Else is nil when there is no else branch; an
// "else if" chain is an Else holding a single nested If.
type If struct {
	Condition Expression
	Then      []Expression
	Else      []Expression
}

func (n *If) ReturnType() *Type { return blockType(n.Then) }
func (n *If) String() string    { return "if " + n.Condition.String() }
func (n *If) expr()             {}

// For iterates over a text, number, list or dictionary.
type For struct {
	Iterable Expression
	Body     []Expression
}

func (n *For) ReturnType() *Type { return n.Iterable.ReturnType() }
func (n *For) String() string    { return "for " + n.Iterable.String() }
func (n *For) expr()             {}

// VariableRef references a local constant or mutable.
type VariableRef struct {
	Name string
	Type *Type
}

func (n *VariableRef) ReturnType() *Type { return n.Type }
func (n *VariableRef) String() string    { return n.Name }
func (n *VariableRef) expr()             {}

// ParameterRef references a method parameter.
type ParameterRef struct {
	Parameter *Parameter
}

func (n *ParameterRef) ReturnType() *Type { return n.Parameter.Type }
func (n *ParameterRef) String() string    { return n.Parameter.Name }
func (n *ParameterRef) expr()             {}

// MemberRef references a member. Instance is nil for the enclosing type's
// own members; otherwise it is the expression the member is read from,
// e.g. the type reference in Days.Monday.
type MemberRef struct {
	Instance Expression
	Member   *Member
}

func (n *MemberRef) ReturnType() *Type { return n.Member.Type }
func (n *MemberRef) expr()             {}

func (n *MemberRef) String() string {
	if n.Instance != nil {
		return n.Instance.String() + "." + n.Member.Name
	}
	return n.Member.Name
}

// TypeRef names a type used as a value, such as the receiver in Days.Monday.
type TypeRef struct {
	Type *Type
}

func (n *TypeRef) ReturnType() *Type { return n.Type }
func (n *TypeRef) String() string    { return n.Type.Name }
func (n *TypeRef) expr()             {}

// ConstantDeclaration declares an immutable local.
type ConstantDeclaration struct {
	Name  string
	Value Expression
}

func (n *ConstantDeclaration) ReturnType() *Type { return n.Value.ReturnType() }
func (n *ConstantDeclaration) String() string    { return "constant " + n.Name + " = " + n.Value.String() }
func (n *ConstantDeclaration) expr()             {}

// MutableDeclaration declares a mutable local.
type MutableDeclaration struct {
	Name  string
	Value Expression
}

func (n *MutableDeclaration) ReturnType() *Type { return n.Value.ReturnType() }
func (n *MutableDeclaration) String() string    { return "mutable " + n.Name + " = " + n.Value.String() }
func (n *MutableDeclaration) expr()             {}

// MutableAssignment reassigns a mutable local or member.
type MutableAssignment struct {
	Name  string
	Value Expression
}

func (n *MutableAssignment) ReturnType() *Type { return n.Value.ReturnType() }
func (n *MutableAssignment) String() string    { return n.Name + " = " + n.Value.String() }
func (n *MutableAssignment) expr()             {}

// Return leaves the method with a value.
type Return struct {
	Value Expression
}

func (n *Return) ReturnType() *Type { return n.Value.ReturnType() }
func (n *Return) String() string    { return "return " + n.Value.String() }
func (n *Return) expr()             {}

// MethodCall calls Method on Instance (nil for the enclosing type). A call of
// a constructor method instantiates the owner type with Arguments as members.
type MethodCall struct {
	Instance  Expression
	Method    *Method
	Arguments []Expression
}

func (n *MethodCall) ReturnType() *Type {
	if n.Method.ReturnType == nil {
		return None
	}
	return n.Method.ReturnType
}

func (n *MethodCall) String() string {
	args := make([]string, len(n.Arguments))
	for i, a := range n.Arguments {
		args[i] = a.String()
	}
	call := n.Method.Name
	if n.Method.IsConstructor() {
		call = n.Method.Owner.Name
	}
	if len(args) > 0 || n.Method.IsConstructor() {
		call += "(" + strings.Join(args, ", ") + ")"
	}
	if n.Instance != nil {
		return n.Instance.String() + "." + call
	}
	return call
}

func (n *MethodCall) expr() {}

// Call builds a call of m on instance.
func Call(instance Expression, m *Method, args ...Expression) *MethodCall {
	return &MethodCall{Instance: instance, Method: m, Arguments: args}
}

// New builds a constructor call of t.
func New(t *Type, args ...Expression) *MethodCall {
	return &MethodCall{Method: t.Constructor(), Arguments: args}
}

func blockType(body []Expression) *Type {
	if len(body) == 0 {
		return None
	}
	return body[len(body)-1].ReturnType()
}
