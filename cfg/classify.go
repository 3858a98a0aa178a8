package cfg

import (
	"github.com/F-OS/OpenDream/bytecode"
	"github.com/F-OS/OpenDream/opcodes"
)

func splitsBlock(item bytecode.Item) bool {
	if item.Kind != bytecode.KindInstruction {
		return false
	}
	return opcodes.SplitsBasicBlock(item.Op)
}

// jumpCategory classifies the control-flow-splitting opcodes for
// resolveJumps: how each one edits the edge set and its own label
// argument when the block graph is rebuilt.
type jumpCategory int

const (
	catNone jumpCategory = iota
	catConditionalArg0
	catConditionalArg1
	catUnconditionalJump
	catReturn
	catThrow
	catCall
	catTry
	catEndTry
)

func categorize(op opcodes.Opcode) jumpCategory {
	switch op {
	case opcodes.JumpIfFalse, opcodes.JumpIfTrue, opcodes.JumpIfNull, opcodes.JumpIfNullNoPop,
		opcodes.BooleanAnd, opcodes.BooleanOr, opcodes.SwitchCase, opcodes.SwitchCaseRange,
		opcodes.EnumerateNoAssign, opcodes.Spawn:
		return catConditionalArg0
	case opcodes.Enumerate, opcodes.JumpIfFalseReference, opcodes.JumpIfTrueReference,
		opcodes.JumpIfReferenceFalse, opcodes.SwitchOnFloat, opcodes.SwitchOnString:
		return catConditionalArg1
	case opcodes.Jump:
		return catUnconditionalJump
	case opcodes.Return:
		return catReturn
	case opcodes.Throw:
		return catThrow
	case opcodes.Call, opcodes.DereferenceCall, opcodes.CallStatement:
		return catCall
	case opcodes.Try, opcodes.TryNoValue:
		return catTry
	case opcodes.EndTry:
		return catEndTry
	default:
		return catNone
	}
}
