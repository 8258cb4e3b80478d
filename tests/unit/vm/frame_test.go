package vm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lookbusy1344/arm-emulator/encoder"
	"github.com/lookbusy1344/arm-emulator/loader"
	"github.com/lookbusy1344/arm-emulator/vm"
)

func TestVM_PushPop_RoundTrips(t *testing.T) {
	machine := vm.NewVM()
	machine.Reset(1024, 0, 512, vm.ImageWidth4)

	spBefore := machine.CPU.R[vm.RSP]
	require.NoError(t, machine.Push(0xDEADBEEF))
	require.Equal(t, spBefore-vm.NativeWordSize, machine.CPU.R[vm.RSP])

	v, err := machine.Pop()
	require.NoError(t, err)
	require.Equal(t, uint64(0xDEADBEEF), v)
	require.Equal(t, spBefore, machine.CPU.R[vm.RSP])
}

func TestVM_Push_IsLIFO(t *testing.T) {
	machine := vm.NewVM()
	machine.Reset(1024, 0, 512, vm.ImageWidth4)

	require.NoError(t, machine.Push(1))
	require.NoError(t, machine.Push(2))
	require.NoError(t, machine.Push(3))

	v, err := machine.Pop()
	require.NoError(t, err)
	require.Equal(t, uint64(3), v)

	v, err = machine.Pop()
	require.NoError(t, err)
	require.Equal(t, uint64(2), v)

	v, err = machine.Pop()
	require.NoError(t, err)
	require.Equal(t, uint64(1), v)
}

// TestCall_EstablishesFrameAndReturns drives a full call/ret cycle through an
// assembled program rather than poking unexported frame helpers directly,
// since callPrologue/doRet are only reachable via the call/ret opcodes.
func TestCall_EstablishesFrameAndReturns(t *testing.T) {
	code := `.entry start
start:
	ldiw RRES, #1
	call [callee]
	ldiw RRES, #3
	halt
callee:
	ldiw RRES, #2
	ret
`
	image, _, err := encoder.Assemble(code, "test.oi")
	require.NoError(t, err)

	machine := vm.NewVM()
	machine.MaxCycles = 1000
	_, err = loader.LoadImage(machine, image)
	require.NoError(t, err)

	spEntry := machine.CPU.R[vm.RSP]

	_, err = machine.Run()
	require.NoError(t, err)

	require.Equal(t, uint64(3), machine.CPU.R[vm.RRES])
	require.Equal(t, spEntry, machine.CPU.R[vm.RSP], "call/ret must leave RSP balanced")
}

func TestCall_NestedCallsReturnInOrder(t *testing.T) {
	code := `.entry start
start:
	call [outer]
	halt
outer:
	inc RRES
	call [inner]
	inc RRES
	ret
inner:
	inc RRES
	ret
`
	image, _, err := encoder.Assemble(code, "test.oi")
	require.NoError(t, err)

	machine := vm.NewVM()
	machine.MaxCycles = 1000
	_, err = loader.LoadImage(machine, image)
	require.NoError(t, err)

	_, err = machine.Run()
	require.NoError(t, err)

	require.Equal(t, uint64(3), machine.CPU.R[vm.RRES])
	require.Equal(t, vm.StateHalted, machine.State)
}
