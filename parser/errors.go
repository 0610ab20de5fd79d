package parser

import "fmt"

// UndefinedReferenceError is returned when a bare back-reference such as
// "(7)" is used before its table has seen a "(7) name" definition.
type UndefinedReferenceError struct {
	Table string
	Ref   string
}

func (e *UndefinedReferenceError) Error() string {
	return fmt.Sprintf("%s not found in %s table", e.Ref, e.Table)
}
