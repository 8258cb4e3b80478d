package integration_test

import (
	"testing"

	"github.com/lookbusy1344/arm-emulator/vm"
)

// TestStack_MultipleValuesRoundTripInOrder pushes several distinct values and
// pops them back, checking that each one survives the round trip and that
// pop returns values in LIFO order. Regression coverage for stack storage
// bugs that only show up once more than one slot is in use.
func TestStack_MultipleValuesRoundTripInOrder(t *testing.T) {
	code := `.entry start
start:
	ldiw RRES, #100
	push RRES
	ldiw RRES, #200
	push RRES
	ldiw RRES, #300
	push RRES
	ldiw RRES, #400
	push RRES

	pop RARG1
	pop RARG2
	pop RTMP
	pop RRES
	halt
`
	_, machine := runSyscallProgram(t, code, "")

	if machine.CPU.R[vm.RARG1] != 400 {
		t.Errorf("expected last-pushed value 400 popped first, got %d", machine.CPU.R[vm.RARG1])
	}
	if machine.CPU.R[vm.RARG2] != 300 {
		t.Errorf("expected 300 popped second, got %d", machine.CPU.R[vm.RARG2])
	}
	if machine.CPU.R[vm.RTMP] != 200 {
		t.Errorf("expected 200 popped third, got %d", machine.CPU.R[vm.RTMP])
	}
	if machine.CPU.R[vm.RRES] != 100 {
		t.Errorf("expected first-pushed value 100 popped last, got %d", machine.CPU.R[vm.RRES])
	}
}

// TestStack_InterleavedPushPop checks that push/pop stay balanced across
// several interleaved operations rather than only at a final drain.
func TestStack_InterleavedPushPop(t *testing.T) {
	code := `.entry start
start:
	ldiw RRES, #1
	push RRES
	ldiw RRES, #2
	push RRES
	pop RARG1
	ldiw RRES, #3
	push RRES
	pop RARG2
	pop RTMP
	halt
`
	_, machine := runSyscallProgram(t, code, "")

	if machine.CPU.R[vm.RARG1] != 2 {
		t.Errorf("expected 2 popped first, got %d", machine.CPU.R[vm.RARG1])
	}
	if machine.CPU.R[vm.RARG2] != 3 {
		t.Errorf("expected 3 popped second, got %d", machine.CPU.R[vm.RARG2])
	}
	if machine.CPU.R[vm.RTMP] != 1 {
		t.Errorf("expected the original 1 popped last, got %d", machine.CPU.R[vm.RTMP])
	}
}
