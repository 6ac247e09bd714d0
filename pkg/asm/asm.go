package asm

import (
	"strconv"
	"strings"

	"limit/pkg/cpu"
)

const (
	commentMarker = "#"
	arrow         = "->"
)

type lineKind uint8

const (
	lineBlank lineKind = iota
	lineLabel
	lineConstant
	lineInstruction
)

type parsedLine struct {
	index  int
	kind   lineKind
	name   string   // label or constant name
	value  string   // constant right-hand side
	fields []string // instruction fields
}

// Assembler turns Limit source text into a cpu.Program. An Assembler may be
// reused; every call to Assemble starts from an empty symbol table.
type Assembler struct {
	symbols map[string]cpu.Value
}

func NewAssembler() *Assembler {
	return &Assembler{
		symbols: make(map[string]cpu.Value),
	}
}

// Assemble compiles source into a program. It stops at the first error.
func Assemble(source string) (*cpu.Program, error) {
	return NewAssembler().Assemble(source)
}

func (a *Assembler) Assemble(source string) (*cpu.Program, error) {
	a.symbols = make(map[string]cpu.Value)

	lines := strings.Split(source, "\n")
	parsed := make([]parsedLine, 0, len(lines))
	for i, raw := range lines {
		p, err := parseLine(raw, i)
		if err != nil {
			return nil, err
		}
		if p.kind != lineBlank {
			parsed = append(parsed, p)
		}
	}

	if err := a.pass1(parsed); err != nil {
		return nil, err
	}
	instructions, err := a.pass2(parsed)
	if err != nil {
		return nil, err
	}

	return &cpu.Program{
		Instructions: instructions,
		Symbols:      a.symbols,
	}, nil
}

// pass1 registers labels and constants. Labels are bound to the number of
// instructions seen so far; constants are parsed against the symbols defined
// above them.
func (a *Assembler) pass1(lines []parsedLine) error {
	count := 0
	for _, p := range lines {
		switch p.kind {
		case lineInstruction:
			count++
		case lineLabel:
			if err := a.define(p, cpu.Index(count)); err != nil {
				return err
			}
		case lineConstant:
			v, err := a.parseValue(p.value, p.index, 0)
			if err != nil {
				return err
			}
			if err := a.define(p, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *Assembler) define(p parsedLine, v cpu.Value) error {
	if _, exists := a.symbols[p.name]; exists {
		return errorf(p.index, ErrSymbolRedefinition, "'%s'", p.name)
	}
	a.symbols[p.name] = v
	return nil
}

func (a *Assembler) pass2(lines []parsedLine) ([]cpu.Instruction, error) {
	instructions := make([]cpu.Instruction, 0, len(lines))
	for _, p := range lines {
		if p.kind != lineInstruction {
			continue
		}
		ins, err := a.parseInstruction(p)
		if err != nil {
			return nil, err
		}
		instructions = append(instructions, ins)
	}
	return instructions, nil
}

func (a *Assembler) parseInstruction(p parsedLine) (cpu.Instruction, error) {
	fields := p.fields
	line := p.index

	op, ok := cpu.LookupOpcode(fields[0])
	if !ok {
		return cpu.Instruction{}, errorf(line, ErrUnknownOpcode, "'%s'", fields[0])
	}
	if len(fields) < 3 {
		return cpu.Instruction{}, errorf(line, ErrInvalidOperand, "%s expects 2 arguments", op)
	}

	arg1, err := a.parseArg(fields[1], line, "arg1")
	if err != nil {
		return cpu.Instruction{}, err
	}
	arg2, err := a.parseArg(fields[2], line, "arg2")
	if err != nil {
		return cpu.Instruction{}, err
	}

	if len(fields) < 4 || fields[3] != arrow {
		return cpu.Instruction{}, errorf(line, ErrMissingArrow, "expected '%s' after arguments", arrow)
	}
	if len(fields) < 5 {
		return cpu.Instruction{}, errorf(line, ErrInvalidOperand, "%s requires a destination", op)
	}
	if len(fields) > 5 {
		return cpu.Instruction{}, errorf(line, ErrTrailingTokens, "'%s'", strings.Join(fields[5:], " "))
	}

	dest, err := a.parseValue(fields[4], line, 0)
	if err != nil {
		return cpu.Instruction{}, err
	}
	if op.IsControl() {
		if dest.Kind != cpu.InstructionIndex {
			return cpu.Instruction{}, errorf(line, ErrInvalidOperand, "%s requires a label destination", op)
		}
	} else {
		switch dest.Kind {
		case cpu.InstructionIndex:
			return cpu.Instruction{}, errorf(line, ErrInvalidOperand, "%s cannot write to a label", op)
		case cpu.Immediate:
			// bare N is the direct-address form of [N]
			if dest.N >= cpu.AddressSpace {
				return cpu.Instruction{}, errorf(line, ErrMemoryAddressOutOfRange, "'%s'", fields[4])
			}
		}
	}

	return cpu.Instruction{Line: line, Op: op, Arg1: arg1, Arg2: arg2, Dest: dest}, nil
}

func (a *Assembler) parseArg(token string, line int, name string) (cpu.Value, error) {
	v, err := a.parseValue(token, line, 0)
	if err != nil {
		return cpu.Value{}, err
	}
	if v.Kind == cpu.InstructionIndex {
		return cpu.Value{}, errorf(line, ErrInvalidOperand, "%s cannot be a label", name)
	}
	return v, nil
}

// parseValue parses an operand: [X] for memory access, a number for an
// immediate, anything else as a symbol.
func (a *Assembler) parseValue(token string, line int, depth int) (cpu.Value, error) {
	switch {
	case strings.HasPrefix(token, "["):
		return a.parseMemoryAccess(token, line, depth)
	case isDigit(token[0]) || token[0] == '-':
		n, err := parseImmediate(token, line)
		if err != nil {
			return cpu.Value{}, err
		}
		return cpu.Imm(n), nil
	}

	if v, ok := a.symbols[token]; ok {
		return v, nil
	}
	if !isSymbolName(token) {
		return cpu.Value{}, errorf(line, ErrUndefinedSymbol, "'%s' is not a valid symbol name", token)
	}
	return cpu.Value{}, errorf(line, ErrUndefinedSymbol, "'%s'", token)
}

func (a *Assembler) parseMemoryAccess(token string, line int, depth int) (cpu.Value, error) {
	if len(token) < 3 || !strings.HasSuffix(token, "]") {
		return cpu.Value{}, errorf(line, ErrInvalidMemorySyntax, "'%s'", token)
	}
	if depth >= cpu.MaxNesting {
		return cpu.Value{}, errorf(line, ErrInvalidMemorySyntax, "'%s' nests deeper than %d", token, cpu.MaxNesting)
	}

	inner, err := a.parseValue(token[1:len(token)-1], line, depth+1)
	if err != nil {
		return cpu.Value{}, err
	}
	switch inner.Kind {
	case cpu.InstructionIndex:
		return cpu.Value{}, errorf(line, ErrInvalidOperand, "memory address cannot be a label in '%s'", token)
	case cpu.Immediate:
		if inner.N >= cpu.AddressSpace {
			return cpu.Value{}, errorf(line, ErrMemoryAddressOutOfRange, "'%s'", token)
		}
	}

	v := cpu.Mem(inner)
	if v.Depth() > cpu.MaxNesting {
		return cpu.Value{}, errorf(line, ErrInvalidMemorySyntax, "'%s' nests deeper than %d", token, cpu.MaxNesting)
	}
	return v, nil
}

// parseImmediate accepts signed decimal in the int32 range, or 0x/0b
// prefixed unsigned values in the uint32 range.
func parseImmediate(token string, line int) (uint32, error) {
	digits := strings.TrimPrefix(token, "-")
	neg := len(digits) != len(token)

	base := 10
	switch {
	case strings.HasPrefix(digits, "0x"):
		base = 16
	case strings.HasPrefix(digits, "0b"):
		base = 2
	}

	if base != 10 {
		if neg {
			return 0, errorf(line, ErrInvalidImmediate, "'-' is only valid for decimal immediates: '%s'", token)
		}
		v, err := strconv.ParseUint(digits[2:], base, 32)
		if err != nil {
			return 0, errorf(line, ErrInvalidImmediate, "'%s'", token)
		}
		return uint32(v), nil
	}

	v, err := strconv.ParseInt(token, 10, 32)
	if err != nil {
		return 0, errorf(line, ErrInvalidImmediate, "'%s'", token)
	}
	return uint32(int32(v)), nil
}

func parseLine(raw string, index int) (parsedLine, error) {
	p := parsedLine{index: index}

	line := strings.TrimSpace(stripComments(raw))
	if line == "" {
		return p, nil
	}

	// NAME = value, with or without spaces around '='
	if eq := strings.IndexByte(line, '='); eq > 0 {
		name := strings.TrimSpace(line[:eq])
		if isSymbolName(name) {
			p.kind = lineConstant
			p.name = name
			rhs := strings.Fields(line[eq+1:])
			if len(rhs) == 0 {
				return p, errorf(index, ErrInvalidOperand, "constant '%s' requires a value", name)
			}
			if len(rhs) > 1 {
				return p, errorf(index, ErrTrailingTokens, "'%s'", strings.Join(rhs[1:], " "))
			}
			p.value = rhs[0]
			return p, nil
		}
	}

	fields := strings.Fields(line)
	if isSymbolName(fields[0]) {
		if len(fields) > 1 {
			return p, errorf(index, ErrTrailingTokens, "'%s' after label '%s'", strings.Join(fields[1:], " "), fields[0])
		}
		p.kind = lineLabel
		p.name = fields[0]
		return p, nil
	}

	p.kind = lineInstruction
	p.fields = fields
	return p, nil
}

func stripComments(line string) string {
	if i := strings.Index(line, commentMarker); i >= 0 {
		return line[:i]
	}
	return line
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// isSymbolName reports whether s matches [A-Z_][0-9A-Z_]*.
func isSymbolName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c == '_':
		case isDigit(c) && i > 0:
		default:
			return false
		}
	}
	return true
}
