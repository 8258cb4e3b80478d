package integration_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// createTestProgram writes source to a temp file and returns its path.
func createTestProgram(t *testing.T, code string) string {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "test_*.oi")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}

	if _, err := tmpFile.WriteString(code); err != nil {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to write to temp file: %v", err)
	}

	tmpFile.Close()
	return tmpFile.Name()
}

// runEmulatorWithFlags runs the built oivm binary against an assembled file.
func runEmulatorWithFlags(t *testing.T, progPath string, flags ...string) (stdout, stderr string, exitCode int) {
	t.Helper()

	binaryPath := filepath.Join("..", "..", "oivm")

	args := append(flags, progPath)
	cmd := exec.Command(binaryPath, args...)

	var outBuf, errBuf strings.Builder
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err := cmd.Run()

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			t.Fatalf("failed to run emulator: %v", err)
		}
	}

	return outBuf.String(), errBuf.String(), exitCode
}

// TestCoverageFlag tests the --coverage / --coverage-file flags.
func TestCoverageFlag(t *testing.T) {
	code := `.entry start
start:
    ldiw RRES, #10
    ldiw RARG1, #20
    j.eq RRES, RARG1, [skip]
    math.add RARG2, RRES, RARG1
skip:
    halt
`

	progPath := createTestProgram(t, code)
	defer os.Remove(progPath)

	coverageFile, err := os.CreateTemp("", "coverage_*.txt")
	if err != nil {
		t.Fatalf("failed to create coverage file: %v", err)
	}
	coverageFile.Close()
	coveragePath := coverageFile.Name()
	defer os.Remove(coveragePath)

	_, stderr, exitCode := runEmulatorWithFlags(t, progPath,
		"--coverage",
		"--coverage-file", coveragePath)

	if exitCode != 0 {
		t.Errorf("expected exit code 0, got %d\nstderr: %s", exitCode, stderr)
	}

	coverageData, err := os.ReadFile(coveragePath)
	if err != nil {
		t.Fatalf("failed to read coverage file: %v", err)
	}

	coverageOutput := string(coverageData)
	if coverageOutput == "" {
		t.Fatal("coverage file is empty")
	}
	if !strings.Contains(coverageOutput, "Code Coverage Report") {
		t.Error("coverage output should contain 'Code Coverage Report'")
	}
	if !strings.Contains(coverageOutput, "%") {
		t.Error("coverage output should show a percentage")
	}
	if !strings.Contains(coverageOutput, "Executed Addresses") {
		t.Error("coverage output should show executed addresses")
	}
}

// TestStackTraceFlag tests the --stack-trace / --stack-trace-file flags.
func TestStackTraceFlag(t *testing.T) {
	code := `.entry start
start:
    ldiw RRES, #100
    push RRES
    push RRES
    pop RARG1
    pop RARG2
    halt
`

	progPath := createTestProgram(t, code)
	defer os.Remove(progPath)

	stackTraceFile, err := os.CreateTemp("", "stack_trace_*.txt")
	if err != nil {
		t.Fatalf("failed to create stack trace file: %v", err)
	}
	stackTraceFile.Close()
	stackTracePath := stackTraceFile.Name()
	defer os.Remove(stackTracePath)

	_, stderr, exitCode := runEmulatorWithFlags(t, progPath,
		"--stack-trace",
		"--stack-trace-file", stackTracePath)

	if exitCode != 0 {
		t.Errorf("expected exit code 0, got %d\nstderr: %s", exitCode, stderr)
	}

	stackTraceData, err := os.ReadFile(stackTracePath)
	if err != nil {
		t.Fatalf("failed to read stack trace file: %v", err)
	}

	stackTraceOutput := string(stackTraceData)
	if stackTraceOutput == "" {
		t.Fatal("stack trace file is empty")
	}
	if !strings.Contains(stackTraceOutput, "Stack Trace Report") {
		t.Error("stack trace output should contain 'Stack Trace Report'")
	}
	if !strings.Contains(stackTraceOutput, "Total Pushes:") {
		t.Error("stack trace should report total pushes")
	}
	if !strings.Contains(stackTraceOutput, "Total Pops:") {
		t.Error("stack trace should report total pops")
	}
}

// TestMultipleDiagnosticFlags tests using coverage, stack-trace, and
// register-trace together in a single run.
func TestMultipleDiagnosticFlags(t *testing.T) {
	code := `.entry start
start:
    ldiw RRES, #25
    push RRES
    math.sub RARG1, RRES, RARG2
    pop RARG2
    halt
`

	progPath := createTestProgram(t, code)
	defer os.Remove(progPath)

	coverageFile, _ := os.CreateTemp("", "cov_*.txt")
	coverageFile.Close()
	coveragePath := coverageFile.Name()
	defer os.Remove(coveragePath)

	stackTraceFile, _ := os.CreateTemp("", "stack_*.txt")
	stackTraceFile.Close()
	stackTracePath := stackTraceFile.Name()
	defer os.Remove(stackTracePath)

	registerTraceFile, _ := os.CreateTemp("", "regs_*.txt")
	registerTraceFile.Close()
	registerTracePath := registerTraceFile.Name()
	defer os.Remove(registerTracePath)

	_, stderr, exitCode := runEmulatorWithFlags(t, progPath,
		"--coverage", "--coverage-file", coveragePath,
		"--stack-trace", "--stack-trace-file", stackTracePath,
		"--register-trace", "--register-trace-file", registerTracePath)

	if exitCode != 0 {
		t.Errorf("expected exit code 0, got %d\nstderr: %s", exitCode, stderr)
	}

	files := map[string]string{
		"coverage":       coveragePath,
		"stack trace":    stackTracePath,
		"register trace": registerTracePath,
	}

	for name, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Errorf("failed to read %s file: %v", name, err)
			continue
		}
		if len(data) == 0 {
			t.Errorf("%s file is empty", name)
		}
	}
}
