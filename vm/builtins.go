package vm

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/chazu/strict/ast"
)

// ---------------------------------------------------------------------------
// Builtin collection methods
// ---------------------------------------------------------------------------

// callBuiltin answers a body-less collection method on receiver.
func callBuiltin(name string, receiver Instance, args []Instance) (Instance, error) {
	switch receiver.Value.Kind() {
	case KindList:
		return listBuiltin(name, receiver, args)
	case KindTable:
		return tableBuiltin(name, receiver, args)
	case KindText:
		return textBuiltin(name, receiver, args)
	}
	return Instance{}, fmt.Errorf("%w: %s on %s", ErrNotCollection, name, receiver.Value.Kind())
}

func listBuiltin(name string, receiver Instance, args []Instance) (Instance, error) {
	items := receiver.Value.List()
	switch name {
	case "Length":
		return NewNumber(float64(len(items))), nil
	case "Contains":
		if err := arity(name, args, 1); err != nil {
			return Instance{}, err
		}
		return NewBoolean(containsValue(items, args[0].Value)), nil
	case "Get":
		if err := arity(name, args, 1); err != nil {
			return Instance{}, err
		}
		index, err := position(args[0], len(items))
		if err != nil {
			return Instance{}, err
		}
		return items[index], nil
	case "Add":
		if err := arity(name, args, 1); err != nil {
			return Instance{}, err
		}
		return add(receiver, args[0])
	}
	return Instance{}, fmt.Errorf("%w: %s.%s", ErrUnknownBuiltin, receiver.Type, name)
}

func tableBuiltin(name string, receiver Instance, args []Instance) (Instance, error) {
	table := receiver.Value.Table()
	switch name {
	case "Length":
		return NewNumber(float64(table.Len())), nil
	case "Contains":
		if err := arity(name, args, 1); err != nil {
			return Instance{}, err
		}
		_, ok := table.Get(args[0].Value)
		return NewBoolean(ok), nil
	case "Get":
		if err := arity(name, args, 1); err != nil {
			return Instance{}, err
		}
		value, ok := table.Get(args[0].Value)
		if !ok {
			return Instance{}, fmt.Errorf("%w: key %s not in table", ErrUnsupportedOperands, args[0].Value)
		}
		return value, nil
	case "Add":
		if err := arity(name, args, 2); err != nil {
			return Instance{}, err
		}
		return NewDictionary(receiver.Type, table.With(args[0], args[1])), nil
	}
	return Instance{}, fmt.Errorf("%w: %s.%s", ErrUnknownBuiltin, receiver.Type, name)
}

func textBuiltin(name string, receiver Instance, args []Instance) (Instance, error) {
	text := receiver.Value.Text()
	switch name {
	case "Length":
		return NewNumber(float64(utf8.RuneCountInString(text))), nil
	case "Contains":
		if err := arity(name, args, 1); err != nil {
			return Instance{}, err
		}
		return NewBoolean(strings.Contains(text, args[0].Value.String())), nil
	}
	return Instance{}, fmt.Errorf("%w: %s.%s", ErrUnknownBuiltin, ast.Text, name)
}

func arity(name string, args []Instance, want int) error {
	if len(args) != want {
		return fmt.Errorf("%w: %s takes %d arguments, got %d", ErrMalformedInvoke, name, want, len(args))
	}
	return nil
}

func position(index Instance, length int) (int, error) {
	if index.Value.Kind() != KindNumber {
		return 0, fmt.Errorf("%w: index is %s", ErrUnsupportedOperands, index.Value.Kind())
	}
	i := int(index.Value.Number())
	if i < 0 || i >= length {
		return 0, fmt.Errorf("%w: index %d out of range [0, %d)", ErrUnsupportedOperands, i, length)
	}
	return i, nil
}
