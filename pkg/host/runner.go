package host

import (
	"time"

	"github.com/algorand/go-deadlock"

	"limit/pkg/cpu"
	"limit/pkg/limit"
)

// Runner drives a VM at a fixed tick rate and publishes the framebuffer.
// Memory is only touched while the runner's lock is held, so Pixels and
// Peek may be called from a render goroutine.
type Runner struct {
	VM      *limit.VM
	Memory  cpu.Memory
	Ticker  *Ticker
	Display Display

	mu        deadlock.Mutex
	ticks     uint64
	exhausted uint64
}

func NewRunner(vm *limit.VM, mem cpu.Memory, display Display) *Runner {
	return &Runner{
		VM:      vm,
		Memory:  mem,
		Ticker:  DefaultTicker(),
		Display: display,
	}
}

// Tick runs one Execute pass.
func (r *Runner) Tick() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.VM.Execute(r.Memory)
	if err != nil {
		return err
	}
	r.ticks++
	if res.Exhausted {
		r.exhausted++
	}
	return nil
}

// Frame runs the ticks due after dt of wall-clock time, then pushes the
// framebuffer to the display. A runtime error skips the remaining ticks of
// the frame; the display is still updated.
func (r *Runner) Frame(dt time.Duration) (int, error) {
	steps := r.Ticker.Advance(dt)

	var tickErr error
	ran := 0
	for ; ran < steps; ran++ {
		if tickErr = r.Tick(); tickErr != nil {
			break
		}
	}

	if r.Display != nil {
		w, h := r.Display.Size()
		if err := r.Display.UpdateFrame(r.Pixels(w, h)); err != nil && tickErr == nil {
			return ran, err
		}
	}
	return ran, tickErr
}

// Pixels copies the framebuffer prefix of memory.
func (r *Runner) Pixels(width, height int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Memory.FramebufferRGBA(width, height)
}

// Peek reads a word, returning false if addr is outside memory.
func (r *Runner) Peek(addr int) (uint32, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if addr < 0 || addr >= len(r.Memory) {
		return 0, false
	}
	return r.Memory[addr], true
}

// Ticks returns the number of successful Execute passes.
func (r *Runner) Ticks() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ticks
}

// Exhausted returns how many passes stopped at the step limit.
func (r *Runner) Exhausted() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exhausted
}
