package program

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/strict/ast"
)

// builder turns the decoded file into ast nodes. Errors are collected so one
// load reports every problem in the file.
type builder struct {
	types map[string]*ast.Type
	where string
	errs  []error
}

// scope is what names inside one method body can refer to.
type scope struct {
	owner  *ast.Type
	method *ast.Method
	locals map[string]*ast.Type
}

type declared struct {
	file *typeFile
	typ  *ast.Type
}

func (raw *programFile) build() (*Program, error) {
	b := &builder{types: map[string]*ast.Type{
		ast.Number.Name:  ast.Number,
		ast.Text.Name:    ast.Text,
		ast.Boolean.Name: ast.Boolean,
		ast.None.Name:    ast.None,
	}}

	// Types first so members and signatures can refer to any of them.
	var decls []declared
	for i := range raw.Types {
		tf := &raw.Types[i]
		if tf.Name == "" {
			b.errorf(ErrMalformedExpression, "types[%d] has no name", i)
			continue
		}
		if _, ok := b.types[tf.Name]; ok {
			b.errorf(ErrDuplicate, "type %s", tf.Name)
			continue
		}
		t := ast.NewType(tf.Name)
		b.types[tf.Name] = t
		decls = append(decls, declared{file: tf, typ: t})
	}

	bodies := make(map[*ast.Method][]exprFile)
	for _, d := range decls {
		b.declareMembers(d)
		for _, mf := range d.file.Methods {
			if m := b.declareMethod(d.typ, mf); m != nil {
				bodies[m] = mf.Body
			}
		}
	}

	for _, d := range decls {
		for _, m := range d.typ.Methods {
			files, ok := bodies[m]
			if !ok {
				continue
			}
			b.where = m.String()
			s := &scope{owner: d.typ, method: m, locals: make(map[string]*ast.Type)}
			m.Body = b.block(s, files)
		}
	}

	p := &Program{Types: b.types}
	seen := make(map[string]bool)
	for i, cf := range raw.Calls {
		b.where = fmt.Sprintf("calls[%d]", i)
		c := b.call(cf)
		if c == nil {
			continue
		}
		if seen[c.Name] {
			b.errorf(ErrDuplicate, "call %s", c.Name)
			continue
		}
		seen[c.Name] = true
		p.Calls = append(p.Calls, c)
	}

	if err := errors.Join(b.errs...); err != nil {
		return nil, err
	}
	return p, nil
}

func (b *builder) errorf(sentinel error, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if b.where != "" {
		msg = b.where + ": " + msg
	}
	b.errs = append(b.errs, fmt.Errorf("%w: %s", sentinel, msg))
}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

func (b *builder) declareMembers(d declared) {
	b.where = d.typ.Name
	constants := &scope{locals: map[string]*ast.Type{}}
	for _, mf := range d.file.Members {
		if mf.Name == "" {
			b.errorf(ErrMalformedExpression, "member without name")
			continue
		}
		if d.typ.FindMember(mf.Name) != nil {
			b.errorf(ErrDuplicate, "member %s", mf.Name)
			continue
		}
		var value ast.Expression
		if mf.Value != nil {
			value = b.expression(constants, *mf.Value)
		}
		var typ *ast.Type
		switch {
		case mf.Type != "":
			typ = b.resolveType(mf.Type)
		case value != nil:
			typ = value.ReturnType()
		default:
			b.errorf(ErrUnknownType, "member %s has neither type nor value", mf.Name)
		}
		if typ != nil {
			d.typ.AddMember(mf.Name, typ, value)
		}
	}
}

func (b *builder) declareMethod(owner *ast.Type, mf methodFile) *ast.Method {
	b.where = owner.Name
	if mf.Name == "" {
		b.errorf(ErrMalformedExpression, "method without name")
		return nil
	}
	returns := ast.None
	if mf.Returns != "" {
		returns = b.resolveType(mf.Returns)
	}
	params := make([]*ast.Parameter, 0, len(mf.Parameters))
	for _, pf := range mf.Parameters {
		params = append(params, &ast.Parameter{Name: pf.Name, Type: b.resolveType(pf.Type)})
	}
	return owner.AddMethod(mf.Name, returns, params...)
}

// resolveType looks up a type by name. List(T) and Dictionary(K, V) are
// instantiated on first use and cached under their canonical name.
func (b *builder) resolveType(name string) *ast.Type {
	name = strings.TrimSpace(name)
	if t, ok := b.types[name]; ok {
		return t
	}
	var t *ast.Type
	switch {
	case strings.HasPrefix(name, "List(") && strings.HasSuffix(name, ")"):
		t = ast.ListOf(b.resolveType(name[len("List(") : len(name)-1]))
	case strings.HasPrefix(name, "Dictionary(") && strings.HasSuffix(name, ")"):
		key, value, ok := splitArguments(name[len("Dictionary(") : len(name)-1])
		if !ok {
			b.errorf(ErrUnknownType, "%s needs a key and a value type", name)
			return ast.None
		}
		t = ast.DictionaryOf(b.resolveType(key), b.resolveType(value))
	default:
		b.errorf(ErrUnknownType, "%q", name)
		return ast.None
	}
	if existing, ok := b.types[t.Name]; ok {
		t = existing
	}
	b.types[t.Name] = t
	b.types[name] = t
	return t
}

// splitArguments splits "K, V" at its top-level comma.
func splitArguments(s string) (string, string, bool) {
	depth := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				return s[:i], s[i+1:], true
			}
		}
	}
	return "", "", false
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (b *builder) block(s *scope, files []exprFile) []ast.Expression {
	body := make([]ast.Expression, 0, len(files))
	for _, f := range files {
		if e := b.expression(s, f); e != nil {
			body = append(body, e)
		}
	}
	return body
}

// kinds counts the node kinds set on f.
func (f *exprFile) kinds() int {
	n := 0
	for _, set := range []bool{
		f.Number != nil, f.Text != nil, f.Boolean != nil, f.List != nil,
		f.Dictionary != nil, f.Name != "", f.Enum != nil, f.Binary != nil,
		f.If != nil, f.For != nil, f.Constant != nil, f.Mutable != nil,
		f.Assign != nil, f.Return != nil, f.Call != nil, f.New != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

func (b *builder) expression(s *scope, f exprFile) ast.Expression {
	if n := f.kinds(); n != 1 {
		b.errorf(ErrMalformedExpression, "expression sets %d node kinds, want 1", n)
		return nil
	}
	switch {
	case f.Number != nil:
		return &ast.NumberLiteral{Value: *f.Number}
	case f.Text != nil:
		return &ast.TextLiteral{Value: *f.Text}
	case f.Boolean != nil:
		return &ast.BooleanLiteral{Value: *f.Boolean}
	case f.List != nil:
		return ast.NewList(b.block(s, *f.List)...)
	case f.Dictionary != nil:
		return &ast.DictionaryLiteral{Type: b.resolveType("Dictionary(" + f.Dictionary.Key + ", " + f.Dictionary.Value + ")")}
	case f.Name != "":
		return b.name(s, f.Name)
	case f.Enum != nil:
		return b.enum(f.Enum)
	case f.Binary != nil:
		return b.binary(s, f.Binary)
	case f.If != nil:
		return b.conditional(s, f.If)
	case f.For != nil:
		return b.loop(s, f.For)
	case f.Constant != nil:
		if value := b.store(s, f.Constant, true); value != nil {
			return &ast.ConstantDeclaration{Name: f.Constant.Name, Value: value}
		}
	case f.Mutable != nil:
		if value := b.store(s, f.Mutable, true); value != nil {
			return &ast.MutableDeclaration{Name: f.Mutable.Name, Value: value}
		}
	case f.Assign != nil:
		if value := b.store(s, f.Assign, false); value != nil {
			return &ast.MutableAssignment{Name: f.Assign.Name, Value: value}
		}
	case f.Return != nil:
		if value := b.expression(s, *f.Return); value != nil {
			return &ast.Return{Value: value}
		}
	case f.Call != nil:
		return b.invoke(s, f.Call)
	case f.New != nil:
		return b.construct(s, f.New)
	}
	return nil
}

// name resolves a plain name to a parameter, a local or a member of the
// enclosing type, in that order.
func (b *builder) name(s *scope, name string) ast.Expression {
	if s.method != nil {
		if p := s.method.FindParameter(name); p != nil {
			return &ast.ParameterRef{Parameter: p}
		}
	}
	if t, ok := s.locals[name]; ok {
		return &ast.VariableRef{Name: name, Type: t}
	}
	if s.owner != nil {
		if m := s.owner.FindMember(name); m != nil {
			return &ast.MemberRef{Member: m}
		}
	}
	b.errorf(ErrUnknownName, "%q", name)
	return nil
}

func (b *builder) enum(f *enumFile) ast.Expression {
	t := b.resolveType(f.Type)
	m := t.FindMember(f.Member)
	if m == nil {
		b.errorf(ErrUnknownName, "%s has no member %q", t.Name, f.Member)
		return nil
	}
	return &ast.MemberRef{Instance: &ast.TypeRef{Type: t}, Member: m}
}

func (b *builder) binary(s *scope, f *binaryFile) ast.Expression {
	if !ast.IsArithmetic(f.Operator) && !ast.IsComparison(f.Operator) {
		b.errorf(ErrMalformedExpression, "operator %q", f.Operator)
		return nil
	}
	left := b.expression(s, f.Left)
	right := b.expression(s, f.Right)
	if left == nil || right == nil {
		return nil
	}
	return &ast.Binary{Operator: f.Operator, Left: left, Right: right}
}

func (b *builder) conditional(s *scope, f *ifFile) ast.Expression {
	condition := b.expression(s, f.Condition)
	if condition == nil {
		return nil
	}
	n := &ast.If{Condition: condition, Then: b.block(s, f.Then)}
	if len(f.Else) > 0 {
		n.Else = b.block(s, f.Else)
	}
	return n
}

// loop binds the index and value pseudo-variables for the body and restores
// the enclosing loop's afterwards.
func (b *builder) loop(s *scope, f *forFile) ast.Expression {
	iterable := b.expression(s, f.Iterable)
	if iterable == nil {
		return nil
	}
	t := iterable.ReturnType()
	if !t.IsIterable() {
		b.errorf(ErrMalformedExpression, "cannot iterate over %s", t)
		return nil
	}

	saved := make(map[string]*ast.Type, 2)
	for _, name := range []string{"index", "value"} {
		if old, ok := s.locals[name]; ok {
			saved[name] = old
		}
	}
	s.locals["index"] = ast.Number
	s.locals["value"] = elementOf(t)
	body := b.block(s, f.Body)
	delete(s.locals, "index")
	delete(s.locals, "value")
	for name, old := range saved {
		s.locals[name] = old
	}
	return &ast.For{Iterable: iterable, Body: body}
}

func elementOf(t *ast.Type) *ast.Type {
	switch t.Kind {
	case ast.KindList:
		return t.Element
	case ast.KindDictionary:
		return t.Key
	}
	return t
}

// store builds the value of a declaration or assignment. Declarations add a
// local; assignments need an existing local or member.
func (b *builder) store(s *scope, f *storeFile, declare bool) ast.Expression {
	if f.Name == "" {
		b.errorf(ErrMalformedExpression, "store without name")
		return nil
	}
	value := b.expression(s, f.Value)
	if value == nil {
		return nil
	}
	if declare {
		s.locals[f.Name] = value.ReturnType()
		return value
	}
	_, local := s.locals[f.Name]
	if !local && (s.owner == nil || s.owner.FindMember(f.Name) == nil) {
		b.errorf(ErrUnknownName, "assignment to undeclared %q", f.Name)
		return nil
	}
	return value
}

func (b *builder) arguments(s *scope, files []exprFile) ([]ast.Expression, bool) {
	args := make([]ast.Expression, 0, len(files))
	ok := true
	for _, f := range files {
		arg := b.expression(s, f)
		if arg == nil {
			ok = false
			continue
		}
		args = append(args, arg)
	}
	return args, ok
}

func (b *builder) invoke(s *scope, f *invokeFile) ast.Expression {
	var receiver ast.Expression
	owner := s.owner
	switch {
	case f.Receiver != nil:
		receiver = b.expression(s, *f.Receiver)
		if receiver == nil {
			return nil
		}
		owner = receiver.ReturnType()
	case f.Type != "":
		owner = b.resolveType(f.Type)
		receiver = &ast.TypeRef{Type: owner}
	}
	if owner == nil {
		b.errorf(ErrUnknownMethod, "%s called outside a type", f.Method)
		return nil
	}
	method := owner.FindMethod(f.Method)
	if method == nil {
		b.errorf(ErrUnknownMethod, "%s.%s", owner.Name, f.Method)
		return nil
	}
	args, ok := b.arguments(s, f.Arguments)
	if !ok {
		return nil
	}
	if len(args) != len(method.Parameters) {
		b.errorf(ErrMalformedExpression, "%s takes %d arguments, got %d", method, len(method.Parameters), len(args))
		return nil
	}
	return ast.Call(receiver, method, args...)
}

func (b *builder) construct(s *scope, f *newFile) ast.Expression {
	t := b.resolveType(f.Type)
	args, ok := b.arguments(s, f.Arguments)
	if !ok {
		return nil
	}
	if len(args) > len(t.Members) {
		b.errorf(ErrMalformedExpression, "%s has %d members, got %d arguments", t.Name, len(t.Members), len(args))
		return nil
	}
	return ast.New(t, args...)
}

// call builds a top-level call. Members, when given, construct the receiver.
func (b *builder) call(f callFile) *Call {
	t := b.resolveType(f.Type)
	s := &scope{locals: map[string]*ast.Type{}}
	var receiver ast.Expression
	if len(f.Members) > 0 {
		receiver = b.construct(s, &newFile{Type: f.Type, Arguments: f.Members})
		if receiver == nil {
			return nil
		}
	}
	method := t.FindMethod(f.Method)
	if method == nil {
		b.errorf(ErrUnknownMethod, "%s.%s", t.Name, f.Method)
		return nil
	}
	args, ok := b.arguments(s, f.Arguments)
	if !ok {
		return nil
	}
	if len(args) != len(method.Parameters) {
		b.errorf(ErrMalformedExpression, "%s takes %d arguments, got %d", method, len(method.Parameters), len(args))
		return nil
	}
	name := f.Name
	if name == "" {
		name = method.String()
	}
	return &Call{Name: name, Call: ast.Call(receiver, method, args...)}
}
