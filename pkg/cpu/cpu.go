package cpu

import (
	"errors"
	"fmt"
)

// DefaultStepLimit bounds the number of instructions a single Execute call
// may run before it gives up.
const DefaultStepLimit = 1_000_000

// DivideByZero is stored by div and mod when the divisor is zero.
const DivideByZero uint32 = 0xFFFFFFFF

var (
	ErrMemoryOutOfRange   = errors.New("memory access out of range")
	ErrInvalidInstruction = errors.New("invalid instruction")
)

// RuntimeError reports a fault that aborted an Execute call.
type RuntimeError struct {
	PC   int
	Line int
	Addr uint32
	Err  error
}

func (e *RuntimeError) Error() string {
	if errors.Is(e.Err, ErrMemoryOutOfRange) {
		return fmt.Sprintf("line %d (pc %d): %v: address 0x%X", e.Line+1, e.PC, e.Err, e.Addr)
	}
	return fmt.Sprintf("line %d (pc %d): %v", e.Line+1, e.PC, e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// Result describes how an Execute call ended.
type Result struct {
	Steps int
	PC    int
	// Exhausted is set when the step limit stopped the program before the
	// program counter left the instruction list.
	Exhausted bool
}

type Option func(*CPU)

// WithStepLimit overrides DefaultStepLimit. Values below 1 are ignored.
func WithStepLimit(n int) Option {
	return func(c *CPU) {
		if n > 0 {
			c.StepLimit = n
		}
	}
}

// WithTrace installs a hook called before each instruction executes.
func WithTrace(fn func(pc int, ins Instruction)) Option {
	return func(c *CPU) {
		c.trace = fn
	}
}

// CPU holds the state of one execution pass. The program counter is the only
// register; everything else lives in Memory.
type CPU struct {
	Program *Program
	Memory  Memory

	PC        int
	Steps     int
	StepLimit int

	trace func(pc int, ins Instruction)
}

func NewCPU(prog *Program, mem Memory, opts ...Option) *CPU {
	c := &CPU{
		Program:   prog,
		Memory:    mem,
		StepLimit: DefaultStepLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute runs prog from instruction 0 against mem until the program counter
// leaves the instruction list, the step limit is reached, or a memory access
// faults. Writes made before a fault are kept.
func Execute(prog *Program, mem Memory, opts ...Option) (Result, error) {
	return NewCPU(prog, mem, opts...).Run()
}

// Halted reports whether the program counter is outside the program.
func (c *CPU) Halted() bool {
	return c.PC < 0 || c.PC >= c.Program.Len()
}

// Run resets the program counter and steps until the program halts.
func (c *CPU) Run() (Result, error) {
	c.PC = 0
	c.Steps = 0
	for !c.Halted() {
		if c.Steps >= c.StepLimit {
			return Result{Steps: c.Steps, PC: c.PC, Exhausted: true}, nil
		}
		if err := c.Step(); err != nil {
			return Result{Steps: c.Steps, PC: c.PC}, err
		}
	}
	return Result{Steps: c.Steps, PC: c.PC}, nil
}

// Step executes the instruction at PC.
func (c *CPU) Step() error {
	if c.Halted() {
		return nil
	}
	ins := c.Program.Instructions[c.PC]
	if c.trace != nil {
		c.trace(c.PC, ins)
	}
	c.Steps++

	a, err := c.resolve(ins.Arg1, 0)
	if err != nil {
		return c.fault(ins, err)
	}
	b, err := c.resolve(ins.Arg2, 0)
	if err != nil {
		return c.fault(ins, err)
	}

	if ins.Op.IsControl() {
		if ins.Dest.Kind != InstructionIndex {
			return c.fault(ins, ErrInvalidInstruction)
		}
		if compare(ins.Op, int32(a), int32(b)) {
			c.PC = int(ins.Dest.N)
		} else {
			c.PC++
		}
		return nil
	}

	addr, err := c.target(ins.Dest)
	if err != nil {
		return c.fault(ins, err)
	}

	var result uint32
	switch ins.Op {
	case OpAdd:
		result = a + b
	case OpSub:
		result = a - b
	case OpMul:
		result = a * b
	case OpDiv:
		result = floorDiv(int32(a), int32(b))
	case OpMod:
		result = truncMod(int32(a), int32(b))
	case OpLsh:
		result = a << (b % 32)
	case OpRsh:
		result = a >> (b % 32)
	case OpAnd:
		result = a & b
	case OpOr:
		result = a | b
	case OpXor:
		result = a ^ b
	default:
		return c.fault(ins, ErrInvalidInstruction)
	}

	c.Memory[addr] = result
	c.PC++
	return nil
}

// resolve evaluates v to a number, reading memory for memory accesses.
func (c *CPU) resolve(v Value, depth int) (uint32, error) {
	switch v.Kind {
	case Immediate, InstructionIndex:
		return v.N, nil
	case MemoryAccess:
		if depth >= MaxNesting || v.Addr == nil {
			return 0, ErrInvalidInstruction
		}
		addr, err := c.resolve(*v.Addr, depth+1)
		if err != nil {
			return 0, err
		}
		if err := c.checkAddr(addr); err != nil {
			return 0, err
		}
		return c.Memory[addr], nil
	}
	return 0, ErrInvalidInstruction
}

// target returns the word address a memory instruction writes to. [X]
// writes to the address X evaluates to; a bare immediate N writes to word N.
func (c *CPU) target(dest Value) (uint32, error) {
	var addr uint32
	switch dest.Kind {
	case Immediate:
		addr = dest.N
	case MemoryAccess:
		if dest.Addr == nil {
			return 0, ErrInvalidInstruction
		}
		a, err := c.resolve(*dest.Addr, 1)
		if err != nil {
			return 0, err
		}
		addr = a
	default:
		return 0, ErrInvalidInstruction
	}
	if err := c.checkAddr(addr); err != nil {
		return 0, err
	}
	return addr, nil
}

func (c *CPU) checkAddr(addr uint32) error {
	if addr >= AddressSpace || uint64(addr) >= uint64(len(c.Memory)) {
		return &addrError{addr: addr}
	}
	return nil
}

type addrError struct {
	addr uint32
}

func (e *addrError) Error() string { return ErrMemoryOutOfRange.Error() }
func (e *addrError) Unwrap() error { return ErrMemoryOutOfRange }

func (c *CPU) fault(ins Instruction, err error) error {
	re := &RuntimeError{PC: c.PC, Line: ins.Line, Err: err}
	var ae *addrError
	if errors.As(err, &ae) {
		re.Addr = ae.addr
		re.Err = ErrMemoryOutOfRange
	}
	return re
}

func compare(op Opcode, a, b int32) bool {
	switch op {
	case OpJeq:
		return a == b
	case OpJne:
		return a != b
	case OpJgt:
		return a > b
	case OpJlt:
		return a < b
	}
	return false
}

// floorDiv rounds the quotient toward negative infinity.
func floorDiv(a, b int32) uint32 {
	if b == 0 {
		return DivideByZero
	}
	x, y := int64(a), int64(b)
	q := x / y
	if (x%y != 0) && ((x < 0) != (y < 0)) {
		q--
	}
	return uint32(q)
}

// truncMod returns the remainder with the sign of the dividend.
func truncMod(a, b int32) uint32 {
	if b == 0 {
		return DivideByZero
	}
	return uint32(int64(a) % int64(b))
}
