package integration

import (
	"strings"
	"testing"

	"github.com/lookbusy1344/arm-emulator/parser"
	"github.com/lookbusy1344/arm-emulator/service"
	"github.com/lookbusy1344/arm-emulator/vm"
)

// TestRestartWithBreakpoint exercises the restart-with-breakpoint scenario
// end to end:
//  1. Load program
//  2. Step a few times
//  3. Set breakpoint at current RPC
//  4. Restart (should reset RPC to entry point but preserve program and breakpoints)
//  5. RunUntilHalt (should execute until hitting the breakpoint)
//  6. Verify RPC stopped at the breakpoint, not at the entry point
func TestRestartWithBreakpoint(t *testing.T) {
	machine := vm.NewVM()
	svc := service.NewDebuggerService(machine)

	source := `.entry start
start:
	ldiw RARG1, #10
	zero RRES
loop:
	inc RRES
	j.lt RRES, RARG1, [loop]
	halt
`
	p := parser.NewParser(source, "test.oi")
	program, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if err := svc.LoadProgram(program); err != nil {
		t.Fatalf("LoadProgram failed: %v", err)
	}

	entryPoint := svc.GetRegisterState().Registers[vm.RPC]
	state := svc.GetRegisterState()
	if state.Registers[vm.RPC] != entryPoint {
		t.Fatalf("After load, RPC=0x%X, expected 0x%X", state.Registers[vm.RPC], entryPoint)
	}
	t.Logf("after load: RPC=0x%X (entry point)", state.Registers[vm.RPC])

	for i := 0; i < 3; i++ {
		if err := svc.Step(); err != nil {
			t.Fatalf("Step %d failed: %v", i+1, err)
		}
	}

	state = svc.GetRegisterState()
	breakpointAddr := state.Registers[vm.RPC]
	t.Logf("after 3 steps: RPC=0x%X (breakpoint location)", breakpointAddr)

	if breakpointAddr == entryPoint {
		t.Fatalf("after 3 steps, RPC still at entry point - program didn't execute")
	}

	if err := svc.AddBreakpoint(breakpointAddr); err != nil {
		t.Fatalf("AddBreakpoint failed: %v", err)
	}
	t.Logf("breakpoint set at 0x%X", breakpointAddr)

	if err := svc.ResetToEntryPoint(); err != nil {
		t.Fatalf("ResetToEntryPoint failed: %v", err)
	}

	state = svc.GetRegisterState()
	if state.Registers[vm.RPC] != entryPoint {
		t.Fatalf("after restart, RPC=0x%X, expected 0x%X (entry point)", state.Registers[vm.RPC], entryPoint)
	}
	t.Logf("after restart: RPC=0x%X (back at entry point)", state.Registers[vm.RPC])

	breakpoints := svc.GetBreakpoints()
	if len(breakpoints) != 1 {
		t.Fatalf("after restart, found %d breakpoints, expected 1", len(breakpoints))
	}
	if breakpoints[0].Address != breakpointAddr {
		t.Fatalf("breakpoint address changed from 0x%X to 0x%X", breakpointAddr, breakpoints[0].Address)
	}
	t.Logf("breakpoint preserved at 0x%X", breakpointAddr)

	svc.SetRunning(true)
	err = svc.RunUntilHalt()
	if err != nil && !strings.Contains(err.Error(), "breakpoint") {
		t.Logf("RunUntilHalt error (may be normal): %v", err)
	}

	execState := svc.GetExecutionState()
	t.Logf("after RunUntilHalt: execution state=%s", execState)

	state = svc.GetRegisterState()
	t.Logf("final RPC=0x%X, expected 0x%X (breakpoint)", state.Registers[vm.RPC], breakpointAddr)

	if state.Registers[vm.RPC] == entryPoint {
		t.Fatalf("FAILURE: RPC=0x%X (entry point), program never executed! expected RPC=0x%X (breakpoint)",
			state.Registers[vm.RPC], breakpointAddr)
	}

	if state.Registers[vm.RPC] != breakpointAddr {
		t.Fatalf("FAILURE: RPC=0x%X, expected 0x%X (breakpoint)", state.Registers[vm.RPC], breakpointAddr)
	}

	if execState != service.StateBreakpoint {
		t.Fatalf("FAILURE: execution state=%s, expected %s", execState, service.StateBreakpoint)
	}

	t.Logf("stopped at breakpoint 0x%X with state=%s", state.Registers[vm.RPC], execState)
}
