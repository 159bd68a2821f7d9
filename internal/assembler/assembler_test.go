package assembler

import (
	"errors"
	"testing"

	"github.com/haasonsaas/nexus/internal/agent"
)

func TestAssembleSplitDeltas(t *testing.T) {
	asm := New()
	asm.Start("call-1", "read")
	for _, frag := range []string{`{"pa`, `th":`, ` "/tm`, `p/work`, `/a.txt"`, `}`} {
		asm.AddDelta("call-1", frag)
	}
	call, asmErr := asm.End("call-1")
	if asmErr != nil {
		t.Fatalf("unexpected assembler error: %v", asmErr)
	}
	if call.Name != "read" || call.ID != "call-1" {
		t.Fatalf("unexpected call: %+v", call)
	}
	if string(call.Input) != `{"path": "/tmp/work/a.txt"}` {
		t.Fatalf("unexpected assembled input: %s", call.Input)
	}
}

func TestAssembleInvalidJSONFails(t *testing.T) {
	asm := New()
	asm.Start("call-1", "bash")
	asm.AddDelta("call-1", `{"command": `) // never closed
	call, asmErr := asm.End("call-1")
	if call != nil {
		t.Fatalf("expected nil call on failure, got %+v", call)
	}
	if asmErr == nil {
		t.Fatal("expected an assembler error")
	}
	if !errors.Is(asmErr, agent.ErrAssemblerIncomplete) {
		t.Fatalf("expected errors.Is match against agent.ErrAssemblerIncomplete, got %v", asmErr)
	}
}

func TestUnknownIDCreatesUnknownCall(t *testing.T) {
	asm := New()
	asm.AddDelta("ghost", `{"x":1}`)
	call, asmErr := asm.End("ghost")
	if asmErr != nil {
		t.Fatalf("unexpected error: %v", asmErr)
	}
	if call.Name != unknownCallName {
		t.Fatalf("expected name %q, got %q", unknownCallName, call.Name)
	}
}

func TestFailIncompleteConvertsOpenCalls(t *testing.T) {
	asm := New()
	asm.Start("call-1", "read")
	asm.AddDelta("call-1", `{"path"`)
	asm.Start("call-2", "bash")
	asm.AddDelta("call-2", `{"command":"ls"}`)
	if _, asmErr := asm.End("call-2"); asmErr != nil {
		t.Fatalf("call-2 should assemble cleanly: %v", asmErr)
	}

	errs := asm.FailIncomplete("stream cancelled")
	if len(errs) != 1 {
		t.Fatalf("expected exactly one incomplete call, got %d", len(errs))
	}
	if errs[0].ID != "call-1" {
		t.Fatalf("expected call-1 to be incomplete, got %s", errs[0].ID)
	}
}

func TestEndIsTerminal(t *testing.T) {
	asm := New()
	asm.Start("call-1", "read")
	asm.AddDelta("call-1", `{}`)
	if _, asmErr := asm.End("call-1"); asmErr != nil {
		t.Fatalf("unexpected error: %v", asmErr)
	}
	// A second End on an already-closed call must fail rather than
	// re-parse or re-execute.
	if _, asmErr := asm.End("call-1"); asmErr == nil {
		t.Fatal("expected error ending an already-closed call")
	}
}

func TestStartResetsBufferOnRestart(t *testing.T) {
	asm := New()
	asm.Start("call-1", "read")
	asm.AddDelta("call-1", `garbage`)
	asm.Start("call-1", "read") // provider restarted the same ID
	asm.AddDelta("call-1", `{"path":"/a"}`)
	call, asmErr := asm.End("call-1")
	if asmErr != nil {
		t.Fatalf("unexpected error: %v", asmErr)
	}
	if string(call.Input) != `{"path":"/a"}` {
		t.Fatalf("expected reset buffer, got %s", call.Input)
	}
}
