// Package limit ties the assembler and the execution engine together behind
// the load/execute interface used by hosts.
package limit

import (
	"io"

	"github.com/sirupsen/logrus"

	"limit/pkg/asm"
	"limit/pkg/cpu"
)

type Option func(*VM)

// WithLogger sets where load and execution diagnostics are written.
func WithLogger(log logrus.FieldLogger) Option {
	return func(vm *VM) {
		if log != nil {
			vm.log = log
		}
	}
}

// WithStepLimit sets the per-Execute instruction ceiling.
func WithStepLimit(n int) Option {
	return func(vm *VM) {
		if n > 0 {
			vm.stepLimit = n
		}
	}
}

// VM holds the currently loaded program. It is not safe for concurrent use.
type VM struct {
	prog      *cpu.Program
	stepLimit int
	log       logrus.FieldLogger
}

func New(opts ...Option) *VM {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	vm := &VM{
		stepLimit: cpu.DefaultStepLimit,
		log:       discard,
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// Load compiles source and makes it the current program. On error the
// previously loaded program stays in place.
func (vm *VM) Load(source string) error {
	prog, err := asm.Assemble(source)
	if err != nil {
		vm.log.WithError(err).Error("load failed")
		return err
	}
	vm.prog = prog
	vm.log.WithFields(logrus.Fields{
		"instructions": len(prog.Instructions),
		"symbols":      len(prog.Symbols),
	}).Debug("program loaded")
	return nil
}

// Program returns the current program, or nil if nothing has been loaded.
func (vm *VM) Program() *cpu.Program {
	return vm.prog
}

// Execute runs the current program once against mem. Hitting the step
// limit is not an error; it is logged and reported in the result.
func (vm *VM) Execute(mem cpu.Memory) (cpu.Result, error) {
	if vm.prog == nil {
		return cpu.Result{}, nil
	}

	res, err := cpu.Execute(vm.prog, mem, cpu.WithStepLimit(vm.stepLimit))
	if err != nil {
		vm.log.WithError(err).WithField("steps", res.Steps).Error("execution aborted")
		return res, err
	}
	if res.Exhausted {
		vm.log.WithFields(logrus.Fields{
			"steps": res.Steps,
			"pc":    res.PC,
		}).Warn("instruction budget exhausted")
	}
	return res, nil
}
