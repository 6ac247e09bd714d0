package cpu

import "fmt"

type Opcode uint8

const (
	OpAdd Opcode = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpLsh
	OpRsh
	OpAnd
	OpOr
	OpXor

	OpJeq
	OpJne
	OpJgt
	OpJlt

	opCount
)

var opcodeNames = [opCount]string{
	OpAdd: "add",
	OpSub: "sub",
	OpMul: "mul",
	OpDiv: "div",
	OpMod: "mod",
	OpLsh: "lsh",
	OpRsh: "rsh",
	OpAnd: "and",
	OpOr:  "or",
	OpXor: "xor",
	OpJeq: "jeq",
	OpJne: "jne",
	OpJgt: "jgt",
	OpJlt: "jlt",
}

var opcodesByName = func() map[string]Opcode {
	m := make(map[string]Opcode, opCount)
	for op, name := range opcodeNames {
		m[name] = Opcode(op)
	}
	return m
}()

// LookupOpcode returns the opcode for a mnemonic. Mnemonics are lower case.
func LookupOpcode(name string) (Opcode, bool) {
	op, ok := opcodesByName[name]
	return op, ok
}

func (op Opcode) String() string {
	if op < opCount {
		return opcodeNames[op]
	}
	return fmt.Sprintf("Opcode(%d)", uint8(op))
}

// Valid reports whether op is one of the defined opcodes.
func (op Opcode) Valid() bool {
	return op < opCount
}

// IsControl reports whether op is a conditional jump whose destination
// must be a label.
func (op Opcode) IsControl() bool {
	switch op {
	case OpJeq, OpJne, OpJgt, OpJlt:
		return true
	}
	return false
}
