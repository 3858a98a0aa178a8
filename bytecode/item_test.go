package bytecode

import (
	"testing"

	"github.com/F-OS/OpenDream/opcodes"
)

func TestTargetLabelConditional(t *testing.T) {
	it := Instruction(opcodes.JumpIfFalse, LabelArg("L1"))
	got, ok := it.TargetLabel()
	if !ok || got != "L1" {
		t.Fatalf("TargetLabel() = (%q, %v), want (\"L1\", true)", got, ok)
	}
}

func TestTargetLabelArg1(t *testing.T) {
	it := Instruction(opcodes.Enumerate, ReferenceArg("r0"), LabelArg("L2"))
	got, ok := it.TargetLabel()
	if !ok || got != "L2" {
		t.Fatalf("TargetLabel() = (%q, %v), want (\"L2\", true)", got, ok)
	}
}

func TestTargetLabelTry(t *testing.T) {
	it := Instruction(opcodes.Try, LabelArg("CATCH"))
	got, ok := it.TargetLabel()
	if !ok || got != "CATCH" {
		t.Fatalf("TargetLabel() = (%q, %v), want (\"CATCH\", true)", got, ok)
	}
}

func TestTargetLabelSwitchOnFloat(t *testing.T) {
	// SwitchOnFloat's schema is [ArgFloat, ArgLabel]: the label follows
	// the compared value, unlike the plain conditional jumps.
	it := Instruction(opcodes.SwitchOnFloat, FloatArg(1.5), LabelArg("case1"))
	got, ok := it.TargetLabel()
	if !ok || got != "case1" {
		t.Fatalf("TargetLabel() = (%q, %v), want (\"case1\", true)", got, ok)
	}
}

func TestTargetLabelJumpIfReferenceFalse(t *testing.T) {
	it := Instruction(opcodes.JumpIfReferenceFalse, ReferenceArg("r0"), LabelArg("L3"))
	got, ok := it.TargetLabel()
	if !ok || got != "L3" {
		t.Fatalf("TargetLabel() = (%q, %v), want (\"L3\", true)", got, ok)
	}
}

func TestTargetLabelNone(t *testing.T) {
	it := Instruction(opcodes.Pop)
	if _, ok := it.TargetLabel(); ok {
		t.Fatalf("TargetLabel() ok = true for a non-jump instruction")
	}
}

func TestSetTargetLabelRewrites(t *testing.T) {
	it := Instruction(opcodes.Jump, LabelArg("old"))
	it.SetTargetLabel("new")
	got, _ := it.TargetLabel()
	if got != "new" {
		t.Fatalf("after SetTargetLabel: TargetLabel() = %q, want %q", got, "new")
	}
}

func TestLocationCarryOver(t *testing.T) {
	src := Instruction(opcodes.PushFloat, FloatArg(1)).WithLocation(Location{File: "f.dm", Line: 3, Valid: true})
	dst := Instruction(opcodes.Pop)
	dst.SetLocation(src)
	if dst.Location() != src.Location() {
		t.Fatalf("SetLocation did not copy: got %+v, want %+v", dst.Location(), src.Location())
	}
}

func TestLocalVariablePassesThroughKind(t *testing.T) {
	v := LocalVariableItem("x", "num", 0)
	if v.Kind != KindLocalVariable {
		t.Fatalf("LocalVariableItem Kind = %v, want KindLocalVariable", v.Kind)
	}
}
