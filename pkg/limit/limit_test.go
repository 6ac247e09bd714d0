package limit

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"limit/pkg/asm"
	"limit/pkg/cpu"
)

const counter = `
COUNT = [16]
add COUNT 1 -> COUNT
`

func TestExecuteBeforeLoad(t *testing.T) {
	vm := New()
	mem := cpu.NewMemory(4)
	mem[0] = 7

	res, err := vm.Execute(mem)
	require.NoError(t, err)
	assert.Equal(t, cpu.Result{}, res)
	assert.Equal(t, cpu.Memory{7, 0, 0, 0}, mem)
	assert.Nil(t, vm.Program())
}

func TestExecuteRepeatedly(t *testing.T) {
	vm := New()
	require.NoError(t, vm.Load(counter))

	mem := cpu.NewMemory(32)
	for i := 0; i < 5; i++ {
		_, err := vm.Execute(mem)
		require.NoError(t, err)
	}
	assert.Equal(t, uint32(5), mem[16])
}

func TestFailedLoadKeepsProgram(t *testing.T) {
	logger, hook := test.NewNullLogger()
	vm := New(WithLogger(logger))
	require.NoError(t, vm.Load(counter))
	before := vm.Program()

	err := vm.Load("add 1 1 -> [0]\nbogus 1 2 -> [3]")
	require.ErrorIs(t, err, asm.ErrUnknownOpcode)

	var aerr *asm.Error
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, 1, aerr.Line)

	assert.Same(t, before, vm.Program())
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)

	// the old program still runs
	mem := cpu.NewMemory(32)
	_, err = vm.Execute(mem)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), mem[16])
}

func TestReloadIsIdempotent(t *testing.T) {
	vm := New()
	require.NoError(t, vm.Load(counter))
	first := vm.Program()
	require.NoError(t, vm.Load(counter))
	second := vm.Program()

	assert.NotSame(t, first, second)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("reload produced a different program (-first +second):\n%s", diff)
	}
}

func TestReloadReplacesProgram(t *testing.T) {
	vm := New()
	require.NoError(t, vm.Load(counter))
	require.NoError(t, vm.Load("add 0 0 -> [16]"))

	mem := cpu.NewMemory(32)
	mem[16] = 9
	_, err := vm.Execute(mem)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), mem[16])
}

func TestExhaustionIsLogged(t *testing.T) {
	logger, hook := test.NewNullLogger()
	vm := New(WithLogger(logger), WithStepLimit(1000))
	require.NoError(t, vm.Load("SPIN\nadd [0] 1 -> [0]\njeq 0 0 -> SPIN"))

	mem := cpu.NewMemory(4)
	res, err := vm.Execute(mem)
	require.NoError(t, err)
	assert.True(t, res.Exhausted)
	assert.Equal(t, 1000, res.Steps)
	assert.Equal(t, uint32(500), mem[0])

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, 1000, entry.Data["steps"])
}

func TestRuntimeFault(t *testing.T) {
	logger, hook := test.NewNullLogger()
	vm := New(WithLogger(logger))
	require.NoError(t, vm.Load("add 1 0 -> [0]\nadd [100] 0 -> [1]"))

	mem := cpu.NewMemory(8)
	_, err := vm.Execute(mem)
	require.ErrorIs(t, err, cpu.ErrMemoryOutOfRange)
	assert.Equal(t, uint32(1), mem[0])
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}
