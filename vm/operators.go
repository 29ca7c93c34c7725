package vm

import (
	"fmt"
	"math"

	"github.com/chazu/strict/ast"
)

// ---------------------------------------------------------------------------
// Binary operations on instances
// ---------------------------------------------------------------------------

// arithmetic computes left <op> right. Add and Subtract keep the left
// operand's type; Multiply, Divide and Modulo take the right operand's type.
func arithmetic(op Instruction, left, right Instance) (Instance, error) {
	switch op {
	case Add:
		return add(left, right)
	case Subtract:
		return subtract(left, right)
	case Multiply, Divide, Modulo:
		if left.Value.Kind() != KindNumber || right.Value.Kind() != KindNumber {
			return Instance{}, unsupported(op, left, right)
		}
		l, r := left.Value.Number(), right.Value.Number()
		var n float64
		switch op {
		case Multiply:
			n = l * r
		case Divide:
			n = l / r
		default:
			n = math.Mod(l, r)
		}
		return Instance{Type: typeOr(right.Type, ast.Number), Value: NumberValue(n)}, nil
	}
	return Instance{}, fmt.Errorf("%w: %s is not arithmetic", ErrInvalidStatement, op)
}

func add(left, right Instance) (Instance, error) {
	lk, rk := left.Value.Kind(), right.Value.Kind()
	switch {
	case lk == KindList:
		items := make([]Instance, 0, len(left.Value.List())+1)
		items = append(items, left.Value.List()...)
		if rk == KindList {
			items = append(items, right.Value.List()...)
		} else {
			items = append(items, right)
		}
		return Instance{Type: left.Type, Value: ListValue(items)}, nil
	case lk == KindText || rk == KindText:
		return NewText(left.Value.String() + right.Value.String()), nil
	case lk == KindNumber && rk == KindNumber:
		n := left.Value.Number() + right.Value.Number()
		return Instance{Type: typeOr(left.Type, ast.Number), Value: NumberValue(n)}, nil
	}
	return Instance{}, unsupported(Add, left, right)
}

func subtract(left, right Instance) (Instance, error) {
	lk, rk := left.Value.Kind(), right.Value.Kind()
	switch {
	case lk == KindList:
		remove := []Instance{right}
		if rk == KindList {
			remove = right.Value.List()
		}
		items := make([]Instance, 0, len(left.Value.List()))
		for _, item := range left.Value.List() {
			if !containsValue(remove, item.Value) {
				items = append(items, item)
			}
		}
		return Instance{Type: left.Type, Value: ListValue(items)}, nil
	case lk == KindNumber && rk == KindNumber:
		n := left.Value.Number() - right.Value.Number()
		return Instance{Type: typeOr(left.Type, ast.Number), Value: NumberValue(n)}, nil
	}
	return Instance{}, unsupported(Subtract, left, right)
}

// compare evaluates a comparison instruction. Ordering works on two numbers
// or two texts; equality on any payloads.
func compare(op Instruction, left, right Instance) (bool, error) {
	switch op {
	case Equal:
		return left.Value.Equal(right.Value), nil
	case NotEqual:
		return !left.Value.Equal(right.Value), nil
	case GreaterThan, LessThan, GreaterOrEqual, LessOrEqual:
		c, ok := order(left.Value, right.Value)
		if !ok {
			return false, unsupported(op, left, right)
		}
		switch op {
		case GreaterThan:
			return c > 0, nil
		case LessThan:
			return c < 0, nil
		case GreaterOrEqual:
			return c >= 0, nil
		default:
			return c <= 0, nil
		}
	}
	return false, fmt.Errorf("%w: %s is not a comparison", ErrInvalidStatement, op)
}

func order(l, r Value) (int, bool) {
	switch {
	case l.Kind() == KindNumber && r.Kind() == KindNumber:
		switch {
		case l.Number() < r.Number():
			return -1, true
		case l.Number() > r.Number():
			return 1, true
		}
		return 0, true
	case l.Kind() == KindText && r.Kind() == KindText:
		switch {
		case l.Text() < r.Text():
			return -1, true
		case l.Text() > r.Text():
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func containsValue(items []Instance, v Value) bool {
	for _, item := range items {
		if item.Value.Equal(v) {
			return true
		}
	}
	return false
}

func typeOr(t, fallback *ast.Type) *ast.Type {
	if t == nil {
		return fallback
	}
	return t
}

func unsupported(op Instruction, left, right Instance) error {
	return fmt.Errorf("%w: %s %s %s", ErrUnsupportedOperands, left.Value.Kind(), op, right.Value.Kind())
}
