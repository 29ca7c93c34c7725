package compiler

import "errors"

// Generation errors. Each indicates a tree the front-end should have
// rejected; generation stops at the end of the walk and reports all of them.
var (
	ErrInstanceNameNotFound  = errors.New("instance name not found")
	ErrUnresolvedReference   = errors.New("unresolved member reference")
	ErrUnsupportedExpression = errors.New("unsupported expression")
)
