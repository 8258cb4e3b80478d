package integration_test

import (
	"os"
	"strings"
	"testing"
)

func TestRegisterTrace_Basic(t *testing.T) {
	code := `.entry start
start:
    ldiw RRES, #1
    ldiw RARG1, #10
    ldiw RARG2, #20
    math.add RTMP, RARG1, RARG2
    zero RRES
    halt
`

	progPath := createTestProgram(t, code)
	defer os.Remove(progPath)

	traceFile, err := os.CreateTemp("", "register_trace_*.txt")
	if err != nil {
		t.Fatalf("failed to create trace file: %v", err)
	}
	traceFile.Close()
	tracePath := traceFile.Name()
	defer os.Remove(tracePath)

	_, stderr, exitCode := runEmulatorWithFlags(t, progPath,
		"--register-trace",
		"--register-trace-file", tracePath)

	if exitCode != 0 {
		t.Errorf("expected exit code 0, got %d\nstderr: %s", exitCode, stderr)
	}

	traceData, err := os.ReadFile(tracePath)
	if err != nil {
		t.Fatalf("failed to read trace file: %v", err)
	}

	output := string(traceData)

	if !strings.Contains(output, "Register Access Pattern Analysis") {
		t.Error("missing header in trace output")
	}
	if !strings.Contains(output, "Total Reads:") {
		t.Error("missing total reads in trace output")
	}
	if !strings.Contains(output, "Total Writes:") {
		t.Error("missing total writes in trace output")
	}
	if !strings.Contains(output, "Hot Registers") {
		t.Error("missing hot registers section in trace output")
	}

	for _, reg := range []string{"RRES", "RARG1", "RARG2", "RTMP"} {
		if !strings.Contains(output, reg) {
			t.Errorf("%s should appear in trace output", reg)
		}
	}
}

// TestRegisterTrace_UntouchedRegisterIsUnused checks that a register never
// written during the run shows up in the unused-registers section. It does
// not assert anything about read counts: the CLI only wires RecordWrite
// into the execution loop (see vm/executor.go Step()), so RegisterTrace's
// read-side statistics never accumulate and "read before write" can never
// fire — a pre-existing gap, not something this test should depend on.
func TestRegisterTrace_UntouchedRegisterIsUnused(t *testing.T) {
	code := `.entry start
start:
    ldiw RRES, #1
    halt
`

	progPath := createTestProgram(t, code)
	defer os.Remove(progPath)

	traceFile, err := os.CreateTemp("", "register_trace_*.txt")
	if err != nil {
		t.Fatalf("failed to create trace file: %v", err)
	}
	traceFile.Close()
	tracePath := traceFile.Name()
	defer os.Remove(tracePath)

	_, stderr, exitCode := runEmulatorWithFlags(t, progPath,
		"--register-trace",
		"--register-trace-file", tracePath)

	if exitCode != 0 {
		t.Errorf("expected exit code 0, got %d\nstderr: %s", exitCode, stderr)
	}

	traceData, err := os.ReadFile(tracePath)
	if err != nil {
		t.Fatalf("failed to read trace file: %v", err)
	}

	output := string(traceData)
	if !strings.Contains(output, "Unused Registers") {
		t.Error("expected an unused registers section since most registers are never touched")
	}
	if !strings.Contains(output, "RARG1") {
		t.Error("expected RARG1 to be listed as unused")
	}
}
