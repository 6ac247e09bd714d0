package cpu

import (
	"fmt"
	"sort"
)

const (
	// AddressSpace is the number of addressable words (24-bit addresses).
	AddressSpace = 1 << 24

	// MaxNesting bounds how deeply memory accesses may nest, e.g. [[[0]]].
	MaxNesting = 16
)

type ValueKind uint8

const (
	Immediate ValueKind = iota
	MemoryAccess
	InstructionIndex
)

func (k ValueKind) String() string {
	switch k {
	case Immediate:
		return "immediate"
	case MemoryAccess:
		return "memory-access"
	case InstructionIndex:
		return "instruction-index"
	}
	return fmt.Sprintf("ValueKind(%d)", uint8(k))
}

// Value is an operand. Immediates hold the two's-complement bit pattern in N,
// instruction indexes hold the target in N, and memory accesses hold the
// address expression in Addr.
type Value struct {
	Kind ValueKind
	N    uint32
	Addr *Value
}

func Imm(n uint32) Value {
	return Value{Kind: Immediate, N: n}
}

func Mem(addr Value) Value {
	return Value{Kind: MemoryAccess, Addr: &addr}
}

func Index(i int) Value {
	return Value{Kind: InstructionIndex, N: uint32(i)}
}

// Depth returns the number of nested memory accesses in v.
func (v Value) Depth() int {
	d := 0
	for v.Kind == MemoryAccess && v.Addr != nil {
		d++
		v = *v.Addr
	}
	return d
}

func (v Value) String() string {
	switch v.Kind {
	case Immediate:
		return fmt.Sprintf("%d", int32(v.N))
	case MemoryAccess:
		if v.Addr == nil {
			return "[?]"
		}
		return "[" + v.Addr.String() + "]"
	case InstructionIndex:
		return fmt.Sprintf("@%d", v.N)
	}
	return "?"
}

type Instruction struct {
	Line int // 0-based source line
	Op   Opcode
	Arg1 Value
	Arg2 Value
	Dest Value
}

func (i Instruction) String() string {
	return fmt.Sprintf("%s %s %s -> %s", i.Op, i.Arg1, i.Arg2, i.Dest)
}

// Program is the output of the assembler. It is not modified after assembly
// and may be executed any number of times against different memories.
type Program struct {
	Instructions []Instruction
	Symbols      map[string]Value
}

func (p *Program) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Instructions)
}

func (p *Program) Symbol(name string) (Value, bool) {
	if p == nil {
		return Value{}, false
	}
	v, ok := p.Symbols[name]
	return v, ok
}

// Labels returns the names of all symbols bound to instruction indexes,
// sorted by name.
func (p *Program) Labels() []string {
	return p.symbolNames(func(v Value) bool { return v.Kind == InstructionIndex })
}

// Constants returns the names of all other symbols, sorted by name.
func (p *Program) Constants() []string {
	return p.symbolNames(func(v Value) bool { return v.Kind != InstructionIndex })
}

func (p *Program) symbolNames(keep func(Value) bool) []string {
	if p == nil {
		return nil
	}
	names := make([]string, 0, len(p.Symbols))
	for name, v := range p.Symbols {
		if keep(v) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
