package peephole

import (
	"testing"

	"github.com/F-OS/OpenDream/bytecode"
	"github.com/F-OS/OpenDream/opcodes"
	"github.com/stretchr/testify/require"
)

func TestGreedyFloatFusion(t *testing.T) {
	stream := []bytecode.Item{
		bytecode.Instruction(opcodes.PushFloat, bytecode.FloatArg(1.0)),
		bytecode.Instruction(opcodes.PushFloat, bytecode.FloatArg(2.0)),
		bytecode.Instruction(opcodes.PushFloat, bytecode.FloatArg(3.0)),
		bytecode.Instruction(opcodes.Pop),
	}
	out, stats := Run(stream)
	require.Len(t, out, 2)
	require.True(t, out[0].IsInstruction(opcodes.PushNFloats))
	require.EqualValues(t, 3, out[0].Args[0].Int)
	require.Equal(t, 1.0, out[0].Args[1].Float)
	require.Equal(t, 2.0, out[0].Args[2].Float)
	require.Equal(t, 3.0, out[0].Args[3].Float)
	require.True(t, out[1].IsInstruction(opcodes.Pop))
	require.Equal(t, 1, stats.FiredByPattern["PushNFloats"])
}

func TestBooleanNotFolding(t *testing.T) {
	stream := []bytecode.Item{
		bytecode.Instruction(opcodes.BooleanNot),
		bytecode.Instruction(opcodes.JumpIfFalse, bytecode.LabelArg("L")),
		bytecode.LabelItem("L"),
	}
	out, _ := Run(stream)
	require.Len(t, out, 2)
	require.True(t, out[0].IsInstruction(opcodes.JumpIfTrue))
	target, ok := out[0].TargetLabel()
	require.True(t, ok)
	require.Equal(t, "L", target)
	require.Equal(t, bytecode.KindLabel, out[1].Kind)
}

func TestDeadJumpRemoval(t *testing.T) {
	stream := []bytecode.Item{
		bytecode.Instruction(opcodes.Jump, bytecode.LabelArg("A")),
		bytecode.Instruction(opcodes.Jump, bytecode.LabelArg("B")),
		bytecode.LabelItem("A"),
		bytecode.Instruction(opcodes.Return),
	}
	out, _ := Run(stream)
	require.Len(t, out, 3)
	require.True(t, out[0].IsInstruction(opcodes.Jump))
	target, _ := out[0].TargetLabel()
	require.Equal(t, "A", target)
	require.Equal(t, bytecode.KindLabel, out[1].Kind)
	require.True(t, out[2].IsInstruction(opcodes.Return))
}

func TestCreateListNFloatsPrecondition(t *testing.T) {
	stream := []bytecode.Item{
		bytecode.Instruction(opcodes.PushFloat, bytecode.FloatArg(1)),
		bytecode.Instruction(opcodes.PushFloat, bytecode.FloatArg(2)),
		bytecode.Instruction(opcodes.CreateList, bytecode.ListSizeArg(2)),
	}
	out, _ := Run(stream)
	require.Len(t, out, 1)
	require.True(t, out[0].IsInstruction(opcodes.CreateListNFloats))
	require.EqualValues(t, 2, out[0].Args[0].Int)
}

func TestCreateListPreconditionMismatchDoesNotFuse(t *testing.T) {
	stream := []bytecode.Item{
		bytecode.Instruction(opcodes.PushFloat, bytecode.FloatArg(1)),
		bytecode.Instruction(opcodes.PushFloat, bytecode.FloatArg(2)),
		bytecode.Instruction(opcodes.CreateList, bytecode.ListSizeArg(3)),
	}
	out, _ := Run(stream)
	require.Len(t, out, 2)
	require.True(t, out[0].IsInstruction(opcodes.PushNFloats))
	require.True(t, out[1].IsInstruction(opcodes.CreateList))
}

func TestIdempotence(t *testing.T) {
	stream := []bytecode.Item{
		bytecode.Instruction(opcodes.PushString, bytecode.StringArg("a")),
		bytecode.Instruction(opcodes.PushString, bytecode.StringArg("b")),
		bytecode.Instruction(opcodes.CreateList, bytecode.ListSizeArg(2)),
		bytecode.Instruction(opcodes.PushType, bytecode.TypeArg(7)),
		bytecode.Instruction(opcodes.IsType),
	}
	once, _ := Run(stream)
	twice, _ := Run(append([]bytecode.Item{}, once...))
	require.Equal(t, once, twice)
}

func TestLocationCarryOverFromMatchedWindow(t *testing.T) {
	stream := []bytecode.Item{
		bytecode.Instruction(opcodes.Assign, bytecode.ReferenceArg("r")).WithLocation(bytecode.Location{File: "f.dm", Line: 10, Valid: true}),
		bytecode.Instruction(opcodes.Pop),
	}
	out, _ := Run(stream)
	require.Len(t, out, 1)
	require.True(t, out[0].Location().Valid)
	require.Equal(t, 10, out[0].Location().Line)
}
