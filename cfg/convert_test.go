package cfg

import (
	"testing"

	"github.com/F-OS/OpenDream/bytecode"
	"github.com/F-OS/OpenDream/opcodes"
	"github.com/stretchr/testify/require"
)

func TestDeadJumpRemovalScenario(t *testing.T) {
	// A block ending in a jump straight to the label starting the next
	// block: the jump is redundant once the two blocks are adjacent.
	stream := []bytecode.Item{
		bytecode.Instruction(opcodes.Jump, bytecode.LabelArg("A")),
		bytecode.LabelItem("A"),
		bytecode.Instruction(opcodes.Return),
	}
	blocks, _, err := Convert(stream, "test")
	require.NoError(t, err)
	require.Len(t, blocks, 2)

	entry, target := blocks[0], blocks[1]
	require.True(t, entry.Items[len(entry.Items)-1].IsInstruction(opcodes.Jump))
	lbl, ok := target.leadingLabel()
	require.True(t, ok)
	require.Equal(t, "A", lbl)

	require.Equal(t, []int{1}, entry.Successors())
	require.Equal(t, []int{0}, target.Predecessors())
	require.Empty(t, entry.Predecessors())
	require.Empty(t, target.Successors())
}

func TestAliasCollapse(t *testing.T) {
	// Adjacent labels at the same position must collapse to one alias.
	stream := []bytecode.Item{
		bytecode.Instruction(opcodes.Jump, bytecode.LabelArg("Y")),
		bytecode.LabelItem("X"),
		bytecode.LabelItem("Y"),
		bytecode.Instruction(opcodes.PushFloat, bytecode.FloatArg(0)),
		bytecode.Instruction(opcodes.Return),
	}
	blocks, _, err := Convert(stream, "test")
	require.NoError(t, err)

	var sawX, sawY bool
	for _, b := range blocks {
		if lbl, ok := b.leadingLabel(); ok {
			if lbl == "X" {
				sawX = true
			}
			if lbl == "Y" {
				sawY = true
			}
		}
	}
	require.True(t, sawX, "canonical label X must survive")
	require.False(t, sawY, "alias label Y must not survive")

	entry := blocks[0]
	target, ok := entry.lastInstruction()
	require.True(t, ok)
	name, ok := target.TargetLabel()
	require.True(t, ok)
	require.Equal(t, "X", name, "Jump Y must be rewritten to Jump X")
}

func TestJumpForwarding(t *testing.T) {
	// Shaped so B2 starts with the forwarded-away label and nothing
	// else references it once forwarding completes.
	stream := []bytecode.Item{
		bytecode.Instruction(opcodes.JumpIfTrue, bytecode.LabelArg("L1")),
		bytecode.Instruction(opcodes.Return), // only reached when JumpIfTrue is false
		bytecode.LabelItem("L1"),
		bytecode.Instruction(opcodes.Jump, bytecode.LabelArg("L2")),
		bytecode.LabelItem("L2"),
		bytecode.Instruction(opcodes.Return),
	}
	blocks, _, err := Convert(stream, "test")
	require.NoError(t, err)

	entry := blocks[0]
	last, ok := entry.lastInstruction()
	require.True(t, ok)
	require.True(t, last.IsInstruction(opcodes.JumpIfTrue))
	target, ok := last.TargetLabel()
	require.True(t, ok)
	require.Equal(t, "L2", target, "JumpIfTrue should forward past the trivial Jump L1->L2")

	for _, b := range blocks {
		lbl, ok := b.leadingLabel()
		require.False(t, ok && lbl == "L1", "L1 must not survive once it is unreferenced")
	}
}

func TestTryThrowRouting(t *testing.T) {
	// Split across two blocks so the call's speculative catch edge and
	// the fallthrough it keeps are visibly distinct from the throw's
	// catch-only edge.
	stream := []bytecode.Item{
		bytecode.Instruction(opcodes.Try, bytecode.LabelArg("CATCH")),
		bytecode.Instruction(opcodes.Call, bytecode.ResourceArg(1), bytecode.ListSizeArg(0)),
		bytecode.Instruction(opcodes.Jump, bytecode.LabelArg("NEXT")),
		bytecode.LabelItem("NEXT"),
		bytecode.Instruction(opcodes.Throw),
		bytecode.LabelItem("CATCH"),
		bytecode.Instruction(opcodes.Return),
	}
	blocks, _, err := Convert(stream, "test")
	require.NoError(t, err)
	require.Len(t, blocks, 3)

	callBlock, throwBlock, catchBlock := blocks[0], blocks[1], blocks[2]

	require.ElementsMatch(t, []int{1, 2}, callBlock.Successors(),
		"the call block keeps its fallthrough and gains a speculative catch edge")
	require.Equal(t, []int{2}, throwBlock.Successors(),
		"the throw block has only the catch edge, no fallthrough")
	require.ElementsMatch(t, []int{0, 1}, catchBlock.Predecessors())
}

func TestEveryNonEntryBlockHasAPredecessor(t *testing.T) {
	stream := []bytecode.Item{
		bytecode.Instruction(opcodes.JumpIfFalse, bytecode.LabelArg("L")),
		bytecode.Instruction(opcodes.Pop),
		bytecode.LabelItem("L"),
		bytecode.Instruction(opcodes.Return),
	}
	blocks, _, err := Convert(stream, "test")
	require.NoError(t, err)
	for i, b := range blocks {
		if i == 0 {
			continue
		}
		require.NotEmpty(t, b.Predecessors(), "block %d has no predecessors", b.ID)
	}
}

func TestMissingLabelIsFatal(t *testing.T) {
	stream := []bytecode.Item{
		bytecode.Instruction(opcodes.Jump, bytecode.LabelArg("nowhere")),
		bytecode.Instruction(opcodes.Return),
	}
	_, _, err := Convert(stream, "test")
	require.Error(t, err)
	var structErr *StructuralError
	require.ErrorAs(t, err, &structErr)
}

func TestDuplicateLabelIsFatal(t *testing.T) {
	stream := []bytecode.Item{
		bytecode.LabelItem("L"),
		bytecode.Instruction(opcodes.Return),
		bytecode.LabelItem("L"),
		bytecode.Instruction(opcodes.Return),
	}
	_, _, err := Convert(stream, "test")
	require.Error(t, err)
	var structErr *StructuralError
	require.ErrorAs(t, err, &structErr)
}

func TestLocalVariablePassesThroughUnchanged(t *testing.T) {
	stream := []bytecode.Item{
		bytecode.LocalVariableItem("x", "num", 0),
		bytecode.Instruction(opcodes.Return),
	}
	blocks, _, err := Convert(stream, "test")
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	require.Equal(t, bytecode.KindLocalVariable, blocks[0].Items[0].Kind)
}
