package ast

// ---------------------------------------------------------------------------
// Types: the resolved static types the front-end hands to the compiler
// ---------------------------------------------------------------------------

// Kind classifies a Type for value dispatch.
type Kind uint8

const (
	KindCustom Kind = iota
	KindNumber
	KindText
	KindBoolean
	KindList
	KindDictionary
	KindNone
)

var kindNames = [...]string{
	KindCustom:     "Custom",
	KindNumber:     "Number",
	KindText:       "Text",
	KindBoolean:    "Boolean",
	KindList:       "List",
	KindDictionary: "Dictionary",
	KindNone:       "None",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Type is a named type with members and methods.
type Type struct {
	Name    string
	Kind    Kind
	Members []*Member
	Methods []*Method

	// Generic arguments: Element for lists, Key and Value for dictionaries.
	Element *Type
	Key     *Type
	Value   *Type

	constructor *Method
}

// Builtin primitive types.
var (
	Number  = &Type{Name: "Number", Kind: KindNumber}
	Text    = &Type{Name: "Text", Kind: KindText}
	Boolean = &Type{Name: "Boolean", Kind: KindBoolean}
	None    = &Type{Name: "None", Kind: KindNone}
)

func init() {
	// Text is iterable and answers the same builtin queries as a list.
	Text.Methods = builtinMethods(Text, "Contains", "Length")
}

// NewType creates a custom type. Members and methods are attached afterwards.
func NewType(name string) *Type {
	return &Type{Name: name, Kind: KindCustom}
}

// ListOf returns a list type over elem with the builtin collection methods.
func ListOf(elem *Type) *Type {
	t := &Type{Name: "List(" + elem.Name + ")", Kind: KindList, Element: elem}
	t.Methods = builtinMethods(t, "Add", "Contains", "Get", "Length")
	t.Methods[0].Parameters = []*Parameter{{Name: "element", Type: elem}}
	return t
}

// DictionaryOf returns a dictionary type with the builtin collection methods.
func DictionaryOf(key, value *Type) *Type {
	t := &Type{
		Name:  "Dictionary(" + key.Name + ", " + value.Name + ")",
		Kind:  KindDictionary,
		Key:   key,
		Value: value,
	}
	t.Methods = builtinMethods(t, "Add", "Contains", "Get", "Length")
	t.Methods[0].Parameters = []*Parameter{{Name: "key", Type: key}, {Name: "value", Type: value}}
	return t
}

// builtinMethods creates body-less methods; the VM answers them natively.
func builtinMethods(owner *Type, names ...string) []*Method {
	methods := make([]*Method, 0, len(names))
	for _, name := range names {
		m := &Method{Name: name, Owner: owner, ReturnType: None}
		switch name {
		case "Contains":
			m.Parameters = []*Parameter{{Name: "other", Type: owner.elementType()}}
			m.ReturnType = Boolean
		case "Get":
			m.Parameters = []*Parameter{{Name: "index", Type: Number}}
			m.ReturnType = owner.elementType()
		case "Length":
			m.ReturnType = Number
		}
		methods = append(methods, m)
	}
	return methods
}

func (t *Type) elementType() *Type {
	switch t.Kind {
	case KindList:
		return t.Element
	case KindDictionary:
		return t.Value
	case KindText:
		return Text
	}
	return None
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.Name
}

// IsPrimitive reports whether values of the type are plain payloads.
func (t *Type) IsPrimitive() bool {
	return t.Kind == KindNumber || t.Kind == KindText || t.Kind == KindBoolean
}

// IsIterable reports whether a for loop can walk values of the type.
func (t *Type) IsIterable() bool {
	switch t.Kind {
	case KindNumber, KindText, KindList, KindDictionary:
		return true
	}
	return false
}

// IsEnum reports whether the type is a set of named constants, e.g. Days.Monday.
func (t *Type) IsEnum() bool {
	if t.Kind != KindCustom || len(t.Members) == 0 || len(t.Methods) > 0 {
		return false
	}
	for _, m := range t.Members {
		if m.Value == nil {
			return false
		}
	}
	return true
}

// FindMember returns the member with the given name, or nil.
func (t *Type) FindMember(name string) *Member {
	for _, m := range t.Members {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// FindMethod returns the first method with the given name, or nil.
func (t *Type) FindMethod(name string) *Method {
	for _, m := range t.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// AddMember appends a member and returns it.
func (t *Type) AddMember(name string, typ *Type, value Expression) *Member {
	m := &Member{Name: name, Type: typ, Value: value}
	t.Members = append(t.Members, m)
	return m
}

// AddMethod appends a method owned by t and returns it.
func (t *Type) AddMethod(name string, returns *Type, params ...*Parameter) *Method {
	m := &Method{Name: name, Owner: t, Parameters: params, ReturnType: returns}
	t.Methods = append(t.Methods, m)
	return m
}

// Constructor returns the synthesized "from" method whose parameters mirror
// the members of t, in declaration order.
func (t *Type) Constructor() *Method {
	if t.constructor == nil {
		params := make([]*Parameter, 0, len(t.Members))
		for _, m := range t.Members {
			params = append(params, &Parameter{Name: m.Name, Type: m.Type})
		}
		t.constructor = &Method{Name: ConstructorName, Owner: t, Parameters: params, ReturnType: t}
	}
	return t.constructor
}

// Member is a named slot of a type, optionally carrying a constant value.
type Member struct {
	Name  string
	Type  *Type
	Value Expression
}

// Parameter is a named method parameter.
type Parameter struct {
	Name string
	Type *Type
}

// ConstructorName is the method name of type constructors.
const ConstructorName = "from"

// Method is a resolved method with its parsed body. Builtin collection
// methods have a nil Body.
type Method struct {
	Name       string
	Owner      *Type
	Parameters []*Parameter
	ReturnType *Type
	Body       []Expression
}

// IsConstructor reports whether calling m instantiates its owner type.
func (m *Method) IsConstructor() bool {
	return m.Name == ConstructorName
}

// IsBuiltin reports whether m has no body and is answered by the runtime.
func (m *Method) IsBuiltin() bool {
	return m.Body == nil && !m.IsConstructor()
}

// FindParameter returns the parameter with the given name, or nil.
func (m *Method) FindParameter(name string) *Parameter {
	for _, p := range m.Parameters {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func (m *Method) String() string {
	if m.Owner != nil {
		return m.Owner.Name + "." + m.Name
	}
	return m.Name
}
