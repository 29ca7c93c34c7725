package vm

import (
	"errors"
	"testing"

	"github.com/chazu/strict/ast"
)

func execute(t *testing.T, statements ...Statement) *Result {
	t.Helper()
	result, err := New().Execute(statements)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	return result
}

func returned(t *testing.T, result *Result) Instance {
	t.Helper()
	if result.Returns == nil {
		t.Fatal("expected a return value")
	}
	return *result.Returns
}

func TestExecuteArithmetic(t *testing.T) {
	tests := []struct {
		name        string
		op          Instruction
		left, right Instance
		want        Value
	}{
		{"add", Add, NewNumber(5), NewNumber(5), NumberValue(10)},
		{"subtract", Subtract, NewNumber(8), NewNumber(3), NumberValue(5)},
		{"multiply", Multiply, NewNumber(2), NewNumber(3), NumberValue(6)},
		{"divide", Divide, NewNumber(7.5), NewNumber(2.5), NumberValue(3)},
		{"modulo", Modulo, NewNumber(10), NewNumber(3), NumberValue(1)},
		{"concatenate", Add, NewText("5"), NewNumber(10), TextValue("510")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := execute(t,
				&LoadConstantStatement{Register: R0, Value: tt.left},
				&LoadConstantStatement{Register: R1, Value: tt.right},
				&BinaryStatement{Op: tt.op, Registers: []Register{R0, R1, R2}},
				&ReturnStatement{Register: R2},
			)
			if got := returned(t, result).Value; !got.Equal(tt.want) {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestTwoRegisterBinaryWritesSecondRegister(t *testing.T) {
	result := execute(t,
		&SetStatement{Register: R0, Value: NewNumber(4)},
		&SetStatement{Register: R1, Value: NewNumber(6)},
		&BinaryStatement{Op: Add, Registers: []Register{R0, R1}},
	)
	if got := result.Memory.Registers[R1].Value; !got.Equal(NumberValue(10)) {
		t.Errorf("R1 = %s, want 10", got)
	}
	if result.Returns != nil {
		t.Errorf("no Return executed, got %s", result.Returns)
	}
}

func TestOperandsRequired(t *testing.T) {
	tests := []struct {
		name       string
		statements []Statement
	}{
		{"empty register file", []Statement{
			&BinaryStatement{Op: Add, Registers: []Register{R0, R1}},
		}},
		{"one populated register", []Statement{
			&LoadConstantStatement{Register: R0, Value: NewNumber(5)},
			&BinaryStatement{Op: Multiply, Registers: []Register{R0, R1, R2}},
		}},
		{"operand register not populated", []Statement{
			&LoadConstantStatement{Register: R0, Value: NewNumber(5)},
			&LoadConstantStatement{Register: R3, Value: NewNumber(5)},
			&BinaryStatement{Op: GreaterThan, Registers: []Register{R0, R1}},
		}},
		{"single register operand", []Statement{
			&LoadConstantStatement{Register: R0, Value: NewNumber(5)},
			&LoadConstantStatement{Register: R1, Value: NewNumber(5)},
			&BinaryStatement{Op: Add, Registers: []Register{R0}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Execute(tt.statements)
			if !errors.Is(err, ErrOperandsRequired) {
				t.Errorf("err = %v, want ErrOperandsRequired", err)
			}
		})
	}
}

func TestVariableNotFound(t *testing.T) {
	_, err := New().Execute([]Statement{&LoadVariableStatement{Register: R0, Identifier: "missing"}})
	if !errors.Is(err, ErrVariableNotFound) {
		t.Fatalf("err = %v, want ErrVariableNotFound", err)
	}
}

func TestReduceButGrowLoop(t *testing.T) {
	result := execute(t,
		&StoreVariableStatement{Identifier: "number", Value: NewNumber(10)},
		&StoreVariableStatement{Identifier: "result", Value: NewNumber(1)},
		&StoreVariableStatement{Identifier: "multiplier", Value: NewNumber(2)},
		&LoopBeginStatement{Identifier: "number"},
		&LoadVariableStatement{Register: R2, Identifier: "result"},
		&LoadVariableStatement{Register: R3, Identifier: "multiplier"},
		&BinaryStatement{Op: Multiply, Registers: []Register{R2, R3, R4}},
		&StoreFromRegisterStatement{Register: R4, Identifier: "result"},
		&IterationEndStatement{Steps: 4},
		&LoadVariableStatement{Register: R5, Identifier: "result"},
		&ReturnStatement{Register: R5},
	)
	if got := returned(t, result).Value; !got.Equal(NumberValue(1024)) {
		t.Errorf("got %s, want 1024", got)
	}
}

func TestAddFiveTimes(t *testing.T) {
	result := execute(t,
		&LoadConstantStatement{Register: R0, Value: NewNumber(5)},
		&LoadConstantStatement{Register: R1, Value: NewNumber(1)},
		&LoadConstantStatement{Register: R2, Value: NewNumber(0)},
		&LoadConstantStatement{Register: R3, Value: NewNumber(5)},
		&BinaryStatement{Op: Add, Registers: []Register{R2, R3, R2}},
		&BinaryStatement{Op: Subtract, Registers: []Register{R0, R1, R0}},
		&JumpIfNotZeroStatement{Register: R0, Steps: -3},
		&ReturnStatement{Register: R2},
	)
	if got := returned(t, result).Value; !got.Equal(NumberValue(25)) {
		t.Errorf("got %s, want 25", got)
	}
}

func TestConditionalJump(t *testing.T) {
	tests := []struct {
		name string
		op   Instruction
		want string
	}{
		{"jump if true taken", JumpIfTrue, "greater"},
		{"jump if false not taken", JumpIfFalse, "fallthrough"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := execute(t,
				&LoadConstantStatement{Register: R0, Value: NewNumber(5)},
				&LoadConstantStatement{Register: R1, Value: NewNumber(1)},
				&BinaryStatement{Op: GreaterThan, Registers: []Register{R0, R1}},
				&JumpStatement{Op: tt.op, Steps: 2},
				&LoadConstantStatement{Register: R2, Value: NewText("fallthrough")},
				&ReturnStatement{Register: R2},
				&LoadConstantStatement{Register: R2, Value: NewText("greater")},
				&ReturnStatement{Register: R2},
			)
			if got := returned(t, result).Value.Text(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

// ifElse assembles: if left > right then "then" else "else", counting how
// many branch bodies ran in the "ran" variable.
func ifElse(left, right float64, resolved bool) []Statement {
	statements := []Statement{
		&StoreVariableStatement{Identifier: "ran", Value: NewNumber(0)},
		&LoadConstantStatement{Register: R0, Value: NewNumber(left)},
		&LoadConstantStatement{Register: R1, Value: NewNumber(right)},
		&BinaryStatement{Op: GreaterThan, Registers: []Register{R0, R1}},
		&JumpToIDStatement{Op: JumpToIdIfFalse, ID: 0},
		&LoadConstantStatement{Register: R2, Value: NewText("then")},
		&StoreFromRegisterStatement{Register: R2, Identifier: "branch"},
		&JumpToIDStatement{Op: JumpEnd, ID: 0},
		&JumpToIDStatement{Op: JumpToIdIfTrue, ID: 1},
		&LoadConstantStatement{Register: R2, Value: NewText("else")},
		&StoreFromRegisterStatement{Register: R2, Identifier: "branch"},
		&JumpToIDStatement{Op: JumpEnd, ID: 1},
	}
	if resolved {
		statements[4].(*JumpToIDStatement).Target = 7
		statements[8].(*JumpToIDStatement).Target = 11
	}
	return statements
}

func TestIfElseExclusivity(t *testing.T) {
	tests := []struct {
		name        string
		left, right float64
		want        string
	}{
		{"then", 5, 1, "then"},
		{"else", 1, 5, "else"},
		{"equal takes else", 3, 3, "else"},
	}
	for _, tt := range tests {
		for _, resolved := range []bool{true, false} {
			result := execute(t, ifElse(tt.left, tt.right, resolved)...)
			branch, err := result.Memory.Variable("branch")
			if err != nil {
				t.Fatalf("%s (resolved=%v): %v", tt.name, resolved, err)
			}
			if got := branch.Value.Text(); got != tt.want {
				t.Errorf("%s (resolved=%v): branch = %q, want %q", tt.name, resolved, got, tt.want)
			}
		}
	}
}

func TestThenBranchComparisonDoesNotReachElse(t *testing.T) {
	// The then branch leaves the condition flag false; the else must still
	// be skipped.
	statements := []Statement{
		&LoadConstantStatement{Register: R0, Value: NewNumber(5)},
		&LoadConstantStatement{Register: R1, Value: NewNumber(1)},
		&BinaryStatement{Op: GreaterThan, Registers: []Register{R0, R1}},
		&JumpToIDStatement{Op: JumpToIdIfFalse, ID: 0, Target: 6},
		&BinaryStatement{Op: LessThan, Registers: []Register{R0, R1}},
		&StoreVariableStatement{Identifier: "branch", Value: NewText("then")},
		&JumpToIDStatement{Op: JumpEnd, ID: 0},
		&JumpToIDStatement{Op: JumpToIdIfTrue, ID: 1, Target: 9},
		&StoreVariableStatement{Identifier: "branch", Value: NewText("else")},
		&JumpToIDStatement{Op: JumpEnd, ID: 1},
	}
	result := execute(t, statements...)
	if got := result.Memory.Variables["branch"].Value.Text(); got != "then" {
		t.Errorf("branch = %q, want then", got)
	}
}

// loopOver assembles a loop over iterable accumulating value into "result"
// and index into "indexes".
func loopOver(iterable Instance, initial Instance) []Statement {
	return []Statement{
		&StoreVariableStatement{Identifier: "iterable", Value: iterable},
		&StoreVariableStatement{Identifier: "result", Value: initial},
		&StoreVariableStatement{Identifier: "indexes", Value: NewNumber(0)},
		&StoreVariableStatement{Identifier: "count", Value: NewNumber(0)},
		&LoadConstantStatement{Register: R7, Value: NewNumber(1)},
		&LoopBeginStatement{Identifier: "iterable", End: 18},
		&LoadVariableStatement{Register: R0, Identifier: "result"},
		&LoadVariableStatement{Register: R1, Identifier: "value"},
		&BinaryStatement{Op: Add, Registers: []Register{R0, R1, R2}},
		&StoreFromRegisterStatement{Register: R2, Identifier: "result"},
		&LoadVariableStatement{Register: R3, Identifier: "indexes"},
		&LoadVariableStatement{Register: R4, Identifier: "index"},
		&BinaryStatement{Op: Add, Registers: []Register{R3, R4, R5}},
		&StoreFromRegisterStatement{Register: R5, Identifier: "indexes"},
		&LoadVariableStatement{Register: R6, Identifier: "count"},
		&LoadConstantStatement{Register: R7, Value: NewNumber(1)},
		&BinaryStatement{Op: Add, Registers: []Register{R6, R7, R6}},
		&StoreFromRegisterStatement{Register: R6, Identifier: "count"},
		&IterationEndStatement{Steps: 12},
	}
}

func TestLoopIterations(t *testing.T) {
	tests := []struct {
		name        string
		iterable    Instance
		initial     Instance
		wantResult  Value
		wantCount   float64
		wantIndexes float64
	}{
		{"text", NewText("abcd"), NewText(""), TextValue("abcd"), 4, 6},
		{"list", NewList(ast.ListOf(ast.Number), NewNumber(2), NewNumber(4), NewNumber(6)), NewNumber(0), NumberValue(12), 3, 3},
		{"number", NewNumber(5), NewNumber(0), NumberValue(10), 5, 10},
		{"empty text", NewText(""), NewText("untouched"), TextValue("untouched"), 0, 0},
		{"zero", NewNumber(0), NewNumber(7), NumberValue(7), 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := execute(t, loopOver(tt.iterable, tt.initial)...)
			vars := result.Memory.Variables
			if got := vars["result"].Value; !got.Equal(tt.wantResult) {
				t.Errorf("result = %s, want %s", got, tt.wantResult)
			}
			if got := vars["count"].Value.Number(); got != tt.wantCount {
				t.Errorf("count = %v, want %v", got, tt.wantCount)
			}
			if got := vars["indexes"].Value.Number(); got != tt.wantIndexes {
				t.Errorf("sum of indexes = %v, want %v", got, tt.wantIndexes)
			}
		})
	}
}

func TestLoopOverTableYieldsKeys(t *testing.T) {
	dict := ast.DictionaryOf(ast.Text, ast.Number)
	table := NewTable().With(NewText("a"), NewNumber(1)).With(NewText("b"), NewNumber(2))
	result := execute(t, loopOver(NewDictionary(dict, table), NewText(""))...)
	if got := result.Memory.Variables["result"].Value.Text(); got != "ab" {
		t.Errorf("result = %q, want ab", got)
	}
}

func TestZeroIterationLoopWithoutResolvedEnd(t *testing.T) {
	statements := loopOver(NewNumber(0), NewNumber(7))
	statements[5].(*LoopBeginStatement).End = 0
	result := execute(t, statements...)
	if got := result.Memory.Variables["count"].Value.Number(); got != 0 {
		t.Errorf("count = %v, want 0", got)
	}
}

func TestNestedLoops(t *testing.T) {
	result := execute(t,
		&StoreVariableStatement{Identifier: "outer", Value: NewNumber(3)},
		&StoreVariableStatement{Identifier: "inner", Value: NewNumber(4)},
		&StoreVariableStatement{Identifier: "count", Value: NewNumber(0)},
		&LoadConstantStatement{Register: R1, Value: NewNumber(1)},
		&LoopBeginStatement{Identifier: "outer"},
		&LoopBeginStatement{Identifier: "inner"},
		&LoadVariableStatement{Register: R0, Identifier: "count"},
		&BinaryStatement{Op: Add, Registers: []Register{R0, R1, R2}},
		&StoreFromRegisterStatement{Register: R2, Identifier: "count"},
		&IterationEndStatement{Steps: 3},
		&IterationEndStatement{Steps: 5},
		&LoadVariableStatement{Register: R3, Identifier: "count"},
		&ReturnStatement{Register: R3},
	)
	if got := returned(t, result).Value; !got.Equal(NumberValue(12)) {
		t.Errorf("count = %s, want 12", got)
	}
}

func TestLoopOverNonIterable(t *testing.T) {
	_, err := New().Execute([]Statement{
		&StoreVariableStatement{Identifier: "flag", Value: NewBoolean(true)},
		&LoopBeginStatement{Identifier: "flag"},
		&IterationEndStatement{Steps: 0},
	})
	if !errors.Is(err, ErrNotIterable) {
		t.Fatalf("err = %v, want ErrNotIterable", err)
	}

	_, err = New().Execute([]Statement{
		&LoopBeginStatement{Identifier: "missing"},
		&IterationEndStatement{Steps: 0},
	})
	if !errors.Is(err, ErrVariableNotFound) {
		t.Fatalf("err = %v, want ErrVariableNotFound", err)
	}
}

func days() (*ast.Type, *ast.Member) {
	t := ast.NewType("Days")
	monday := t.AddMember("Monday", ast.Number, &ast.NumberLiteral{Value: 1})
	t.AddMember("Tuesday", ast.Number, &ast.NumberLiteral{Value: 2})
	return t, monday
}

func TestComparisonNormalizesReferences(t *testing.T) {
	daysType, monday := days()
	ref := NewReference(&ast.MemberRef{Instance: &ast.TypeRef{Type: daysType}, Member: monday})
	result := execute(t,
		&StoreVariableStatement{Identifier: "day", Value: ref},
		&LoadVariableStatement{Register: R0, Identifier: "day"},
		&LoadConstantStatement{Register: R1, Value: NewNumber(1)},
		&BinaryStatement{Op: Equal, Registers: []Register{R0, R1}},
		&JumpToIDStatement{Op: JumpToIdIfFalse, ID: 0},
		&StoreVariableStatement{Identifier: "matched", Value: NewBoolean(true)},
		&JumpToIDStatement{Op: JumpEnd, ID: 0},
	)
	if _, ok := result.Memory.Variables["matched"]; !ok {
		t.Error("reference to Days.Monday should compare equal to 1")
	}
	if got := result.Memory.Variables["day"].Value.Kind(); got != KindReference {
		t.Errorf("stored variable kind = %s, normalization must not rewrite memory", got)
	}
}

func TestReturnResolvesReference(t *testing.T) {
	daysType, monday := days()
	ref := NewReference(&ast.MemberRef{Instance: &ast.TypeRef{Type: daysType}, Member: monday})
	result := execute(t,
		&LoadConstantStatement{Register: R0, Value: ref},
		&ReturnStatement{Register: R0},
		&LoadConstantStatement{Register: R0, Value: NewNumber(99)},
	)
	if got := returned(t, result).Value; !got.Equal(NumberValue(1)) {
		t.Errorf("got %s, want 1", got)
	}
	if got := result.Memory.Registers[R0].Value; got.Kind() != KindReference {
		t.Errorf("statements after Return ran: R0 = %s", got)
	}
}

func TestReturnUnresolvedReference(t *testing.T) {
	person := ast.NewType("Person")
	name := person.AddMember("Name", ast.Text, nil)
	ref := ReferenceValue(&ast.MemberRef{Member: name})
	_, err := New().Execute([]Statement{
		&LoadConstantStatement{Register: R0, Value: Instance{Type: ast.Text, Value: ref}},
		&ReturnStatement{Register: R0},
	})
	if !errors.Is(err, ErrUnresolvedReturn) {
		t.Fatalf("err = %v, want ErrUnresolvedReturn", err)
	}
}

func TestCollectionWrites(t *testing.T) {
	list := ast.ListOf(ast.Number)
	dict := ast.DictionaryOf(ast.Number, ast.Number)
	result := execute(t,
		&StoreVariableStatement{Identifier: "numbers", Value: NewList(list, NewNumber(1))},
		&StoreVariableStatement{Identifier: "values", Value: NewDictionary(dict, NewTable())},
		&LoadConstantStatement{Register: R0, Value: NewNumber(5)},
		&WriteToListStatement{Register: R0, Identifier: "numbers"},
		&LoadConstantStatement{Register: R1, Value: NewNumber(10)},
		&WriteToTableStatement{Key: R0, Value: R1, Identifier: "values"},
		&LoadConstantStatement{Register: R1, Value: NewNumber(20)},
		&WriteToTableStatement{Key: R0, Value: R1, Identifier: "values"},
	)
	numbers := result.Memory.Variables["numbers"].Value
	if !numbers.Equal(ListValue([]Instance{NewNumber(1), NewNumber(5)})) {
		t.Errorf("numbers = %s, want (1, 5)", numbers)
	}
	values := result.Memory.Variables["values"].Value.Table()
	if values.Len() != 1 {
		t.Fatalf("values has %d entries, want 1", values.Len())
	}
	if v, ok := values.Get(NumberValue(5)); !ok || !v.Value.Equal(NumberValue(20)) {
		t.Errorf("values[5] = %s, want 20", v.Value)
	}
}

func TestWriteToNonCollection(t *testing.T) {
	_, err := New().Execute([]Statement{
		&StoreVariableStatement{Identifier: "n", Value: NewNumber(1)},
		&LoadConstantStatement{Register: R0, Value: NewNumber(5)},
		&WriteToListStatement{Register: R0, Identifier: "n"},
	})
	if !errors.Is(err, ErrNotCollection) {
		t.Fatalf("err = %v, want ErrNotCollection", err)
	}
}

func TestExecuteStartsFresh(t *testing.T) {
	machine := New()
	first, err := machine.Execute([]Statement{
		&StoreVariableStatement{Identifier: "leftover", Value: NewNumber(1)},
		&LoadConstantStatement{Register: R0, Value: NewNumber(1)},
	})
	if err != nil {
		t.Fatal(err)
	}
	second, err := machine.Execute([]Statement{&LoadVariableStatement{Register: R1, Identifier: "leftover"}})
	if !errors.Is(err, ErrVariableNotFound) {
		t.Fatalf("second run saw the first run's variables: %v", err)
	}
	if second != nil {
		t.Error("failed run should not return a result")
	}
	if _, ok := first.Memory.Variables["leftover"]; !ok {
		t.Error("first result memory was disturbed by the second run")
	}
	if first.RunID == "" {
		t.Error("missing run id")
	}
}

func TestInvokeWithoutCompiler(t *testing.T) {
	calc := ast.NewType("Calculator")
	method := calc.AddMethod("Zero", ast.Number)
	method.Body = []ast.Expression{&ast.NumberLiteral{Value: 0}}
	_, err := New().Execute([]Statement{
		&InvokeStatement{Register: R0, Call: ast.Call(nil, method), Registry: NewRegistry()},
	})
	if !errors.Is(err, ErrNoCompiler) {
		t.Fatalf("err = %v, want ErrNoCompiler", err)
	}
}

func TestMalformedInvoke(t *testing.T) {
	calc := ast.NewType("Calculator")
	method := calc.AddMethod("Zero", ast.Number)
	tests := []struct {
		name string
		stmt *InvokeStatement
	}{
		{"missing call", &InvokeStatement{Register: R0, Registry: NewRegistry()}},
		{"missing registry", &InvokeStatement{Register: R0, Call: ast.Call(nil, method)}},
	}
	for _, tt := range tests {
		_, err := New().Execute([]Statement{tt.stmt})
		if !errors.Is(err, ErrMalformedInvoke) {
			t.Errorf("%s: err = %v, want ErrMalformedInvoke", tt.name, err)
		}
	}
}

func TestInvokeSharesRegistersButNotLocals(t *testing.T) {
	calc := ast.NewType("Calculator")
	calc.AddMember("base", ast.Number, nil)
	method := calc.AddMethod("Answer", ast.Number, &ast.Parameter{Name: "offset", Type: ast.Number})
	method.Body = []ast.Expression{&ast.NumberLiteral{Value: 42}}

	var got *Invocation
	machine := New()
	machine.UseCompiler(func(inv *Invocation) ([]Statement, error) {
		got = inv
		statements := make([]Statement, 0, len(inv.Bindings)+3)
		for _, b := range inv.Bindings {
			statements = append(statements, &StoreVariableStatement{Identifier: b.Name, Value: b.Value})
		}
		return append(statements,
			&StoreVariableStatement{Identifier: "local", Value: NewNumber(1)},
			&LoadConstantStatement{Register: R5, Value: NewNumber(42)},
			&ReturnStatement{Register: R5},
		), nil
	})

	registry := NewRegistry()
	result, err := machine.Execute([]Statement{
		&StoreVariableStatement{Identifier: "base", Value: Instance{Type: ast.Number, Value: NumberValue(3), IsMember: true}},
		&StoreVariableStatement{Identifier: "parentLocal", Value: NewNumber(9)},
		&InvokeStatement{Register: R3, Call: ast.Call(nil, method, &ast.NumberLiteral{Value: 7}), Registry: registry},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Registry != registry {
		t.Fatal("compiler did not receive the caller's registry")
	}
	if len(got.Bindings) != 1 || got.Bindings[0].Name != "offset" || !got.Bindings[0].Value.Value.Equal(NumberValue(7)) {
		t.Errorf("bindings = %+v, want offset=7", got.Bindings)
	}
	if v := result.Memory.Registers[R3].Value; !v.Equal(NumberValue(42)) {
		t.Errorf("target register R3 = %s, want 42", v)
	}
	if v := result.Memory.Registers[R5].Value; !v.Equal(NumberValue(42)) {
		t.Errorf("callee register R5 = %s, want 42 (registers are shared)", v)
	}
	for _, leaked := range []string{"local", "offset"} {
		if _, ok := result.Memory.Variables[leaked]; ok {
			t.Errorf("callee variable %q leaked into the caller", leaked)
		}
	}
}

func TestInvokeReadsNamedArguments(t *testing.T) {
	calc := ast.NewType("Calculator")
	calc.AddMember("base", ast.Number, nil)
	a := &ast.Parameter{Name: "a", Type: ast.Number}
	b := &ast.Parameter{Name: "b", Type: ast.Number}
	method := calc.AddMethod("Pair", ast.Number, a, b)
	method.Body = []ast.Expression{&ast.NumberLiteral{Value: 0}}
	x := &ast.VariableRef{Name: "x", Type: ast.Number}
	sum := &ast.Binary{Operator: ast.Plus, Left: x, Right: &ast.NumberLiteral{Value: 1}}

	var got []Binding
	machine := New()
	machine.UseCompiler(func(inv *Invocation) ([]Statement, error) {
		got = inv.Bindings
		return nil, nil
	})
	_, err := machine.Execute([]Statement{
		&StoreVariableStatement{Identifier: "x + 1", Value: NewNumber(100)},
		&StoreVariableStatement{Identifier: "<argument0>", Value: NewNumber(5)},
		&StoreVariableStatement{Identifier: "<argument1>", Value: NewNumber(6)},
		&InvokeStatement{
			Register:          R0,
			Call:              ast.Call(ast.New(calc, sum), method, sum, sum),
			Registry:          NewRegistry(),
			Arguments:         []string{"<argument0>", "<argument1>"},
			ReceiverArguments: []string{"<argument1>"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]float64{"base": 6, "a": 5, "b": 6}
	if len(got) != len(want) {
		t.Fatalf("bindings = %+v, want %v", got, want)
	}
	for _, binding := range got {
		if !binding.Value.Value.Equal(NumberValue(want[binding.Name])) {
			t.Errorf("%s = %s, want %v", binding.Name, binding.Value.Value, want[binding.Name])
		}
	}
}

func TestInvokeChildSeesOnlyMembers(t *testing.T) {
	calc := ast.NewType("Calculator")
	method := calc.AddMethod("Peek", ast.Number)
	method.Body = []ast.Expression{&ast.NumberLiteral{Value: 0}}

	machine := New()
	machine.UseCompiler(func(inv *Invocation) ([]Statement, error) {
		return []Statement{&LoadVariableStatement{Register: R0, Identifier: "parentLocal"}}, nil
	})
	_, err := machine.Execute([]Statement{
		&StoreVariableStatement{Identifier: "parentLocal", Value: NewNumber(9)},
		&InvokeStatement{Register: R3, Call: ast.Call(nil, method), Registry: NewRegistry()},
	})
	if !errors.Is(err, ErrVariableNotFound) {
		t.Fatalf("err = %v, want the child's ErrVariableNotFound", err)
	}
}

func TestInvokeCompileErrorPropagatesUnchanged(t *testing.T) {
	calc := ast.NewType("Calculator")
	method := calc.AddMethod("Broken", ast.Number)
	method.Body = []ast.Expression{}
	sentinel := errors.New("cannot compile")

	machine := New()
	machine.UseCompiler(func(*Invocation) ([]Statement, error) { return nil, sentinel })
	_, err := machine.Execute([]Statement{
		&InvokeStatement{Register: R0, Call: ast.Call(nil, method), Registry: NewRegistry()},
	})
	if err != sentinel {
		t.Fatalf("err = %v, want the compiler's error unchanged", err)
	}
}

func TestInvokeBuiltins(t *testing.T) {
	list := ast.ListOf(ast.Number)
	dict := ast.DictionaryOf(ast.Text, ast.Number)
	numbers := &ast.VariableRef{Name: "numbers", Type: list}
	values := &ast.VariableRef{Name: "values", Type: dict}
	word := &ast.VariableRef{Name: "word", Type: ast.Text}

	tests := []struct {
		name string
		call *ast.MethodCall
		want Value
	}{
		{"list length", ast.Call(numbers, list.FindMethod("Length")), NumberValue(3)},
		{"list contains", ast.Call(numbers, list.FindMethod("Contains"), &ast.NumberLiteral{Value: 4}), BooleanValue(true)},
		{"list get", ast.Call(numbers, list.FindMethod("Get"), &ast.NumberLiteral{Value: 2}), NumberValue(6)},
		{"table get", ast.Call(values, dict.FindMethod("Get"), &ast.TextLiteral{Value: "b"}), NumberValue(2)},
		{"table contains", ast.Call(values, dict.FindMethod("Contains"), &ast.TextLiteral{Value: "z"}), BooleanValue(false)},
		{"text length", ast.Call(word, ast.Text.FindMethod("Length")), NumberValue(5)},
		{"text contains", ast.Call(word, ast.Text.FindMethod("Contains"), &ast.TextLiteral{Value: "ll"}), BooleanValue(true)},
	}
	table := NewTable().With(NewText("a"), NewNumber(1)).With(NewText("b"), NewNumber(2))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := execute(t,
				&StoreVariableStatement{Identifier: "numbers", Value: NewList(list, NewNumber(2), NewNumber(4), NewNumber(6))},
				&StoreVariableStatement{Identifier: "values", Value: NewDictionary(dict, table)},
				&StoreVariableStatement{Identifier: "word", Value: NewText("hello")},
				&InvokeStatement{Register: R4, Call: tt.call, Registry: NewRegistry()},
				&ReturnStatement{Register: R4},
			)
			if got := returned(t, result).Value; !got.Equal(tt.want) {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestInvokeBuiltinOutOfRange(t *testing.T) {
	list := ast.ListOf(ast.Number)
	numbers := &ast.VariableRef{Name: "numbers", Type: list}
	_, err := New().Execute([]Statement{
		&StoreVariableStatement{Identifier: "numbers", Value: NewList(list, NewNumber(1))},
		&InvokeStatement{Register: R0, Call: ast.Call(numbers, list.FindMethod("Get"), &ast.NumberLiteral{Value: 3}), Registry: NewRegistry()},
	})
	if !errors.Is(err, ErrUnsupportedOperands) {
		t.Fatalf("err = %v, want ErrUnsupportedOperands", err)
	}
}
