package ast

// Binary operators as they appear on Binary nodes.
const (
	Plus           = "+"
	Minus          = "-"
	Multiply       = "*"
	Divide         = "/"
	Modulate       = "%"
	Greater        = ">"
	Smaller        = "<"
	GreaterOrEqual = ">="
	SmallerOrEqual = "<="
	Is             = "is"
	IsNot          = "is not"
)

// IsArithmetic reports whether op produces a value of its operand type.
func IsArithmetic(op string) bool {
	switch op {
	case Plus, Minus, Multiply, Divide, Modulate:
		return true
	}
	return false
}

// IsComparison reports whether op produces a Boolean.
func IsComparison(op string) bool {
	switch op {
	case Greater, Smaller, GreaterOrEqual, SmallerOrEqual, Is, IsNot:
		return true
	}
	return false
}
