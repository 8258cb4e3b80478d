package service_test

import (
	"testing"

	"github.com/lookbusy1344/arm-emulator/parser"
	"github.com/lookbusy1344/arm-emulator/service"
	"github.com/lookbusy1344/arm-emulator/vm"
)

func TestNewDebuggerService(t *testing.T) {
	machine := vm.NewVM()
	svc := service.NewDebuggerService(machine)

	if svc == nil {
		t.Fatal("expected service instance, got nil")
	}

	if svc.GetVM() != machine {
		t.Error("service VM mismatch")
	}
}

func TestDebuggerService_LoadProgram(t *testing.T) {
	machine := vm.NewVM()
	svc := service.NewDebuggerService(machine)

	p := parser.NewParser(".entry start\nstart:\nldiw RRES, #42\nhalt\n", "test.oi")
	program, err := p.Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if err := svc.LoadProgram(program); err != nil {
		t.Fatalf("LoadProgram failed: %v", err)
	}

	regs := svc.GetRegisterState()
	if regs.Registers[vm.RPC] != 0 {
		t.Errorf("expected RPC=0 (start is the program's first address), got 0x%X", regs.Registers[vm.RPC])
	}
}
