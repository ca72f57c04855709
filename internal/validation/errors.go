package validation

import "fmt"

// Error is a fatal configuration error. Option names the offending setting and
// Requires names the option or execution kind it depends on or conflicts with.
type Error struct {
	Option   string
	Requires string
	Message  string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(option, requires, format string, args ...any) *Error {
	return &Error{Option: option, Requires: requires, Message: fmt.Sprintf(format, args...)}
}
