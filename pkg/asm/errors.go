package asm

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrUnknownOpcode           = errors.New("unknown opcode")
	ErrInvalidImmediate        = errors.New("invalid immediate")
	ErrInvalidOperand          = errors.New("invalid operand")
	ErrUndefinedSymbol         = errors.New("undefined symbol")
	ErrSymbolRedefinition      = errors.New("symbol redefinition")
	ErrMissingArrow            = errors.New("missing output arrow")
	ErrTrailingTokens          = errors.New("trailing tokens")
	ErrInvalidMemorySyntax     = errors.New("invalid memory access syntax")
	ErrMemoryAddressOutOfRange = errors.New("memory address out of range")
)

// Error is a compile error tied to a source line. Line is 0-based.
type Error struct {
	Line int
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("line %d: %v", e.Line+1, e.Kind)
	}
	return fmt.Sprintf("line %d: %v: %s", e.Line+1, e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func errorf(line int, kind error, format string, args ...any) error {
	return &Error{Line: line, Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
