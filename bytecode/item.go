// Package bytecode defines the annotated-item data model that flows
// between the front end, the peephole rewriter, and the CFG builder:
// a linear stream of Instruction, Label and LocalVariable items, each
// optionally carrying a source location.
package bytecode

import (
	"fmt"

	"github.com/F-OS/OpenDream/opcodes"
)

// Kind tags which case of the Item variant a value holds.
type Kind int

const (
	KindInstruction Kind = iota
	KindLabel
	KindLocalVariable
)

// Location is an optional source position carried by an Item.
type Location struct {
	File   string
	Line   int
	Column int
	Valid  bool
}

// ArgValue is one typed instruction argument. Exactly one of the
// fields is meaningful, selected by Kind.
type ArgValue struct {
	Kind opcodes.ArgKind

	Int   int64
	Float float64
	Str   string
	Label string
}

func IntArg(v int64) ArgValue       { return ArgValue{Kind: opcodes.ArgInt, Int: v} }
func FloatArg(v float64) ArgValue   { return ArgValue{Kind: opcodes.ArgFloat, Float: v} }
func StringArg(v string) ArgValue   { return ArgValue{Kind: opcodes.ArgString, Str: v} }
func ResourceArg(v int64) ArgValue  { return ArgValue{Kind: opcodes.ArgResource, Int: v} }
func TypeArg(v int64) ArgValue      { return ArgValue{Kind: opcodes.ArgType, Int: v} }
func ReferenceArg(v string) ArgValue { return ArgValue{Kind: opcodes.ArgReference, Str: v} }
func LabelArg(name string) ArgValue { return ArgValue{Kind: opcodes.ArgLabel, Label: name} }
func ListSizeArg(n int64) ArgValue  { return ArgValue{Kind: opcodes.ArgListSize, Int: n} }

func (a ArgValue) String() string {
	switch a.Kind {
	case opcodes.ArgFloat:
		return fmt.Sprintf("%g", a.Float)
	case opcodes.ArgLabel:
		return a.Label
	case opcodes.ArgString, opcodes.ArgReference:
		return a.Str
	default:
		return fmt.Sprintf("%d", a.Int)
	}
}

// Item is the tagged variant over Instruction, Label, and
// LocalVariable. It is a plain struct rather than an interface
// hierarchy: every transform in this module pattern-matches on Kind
// instead of dispatching through method sets.
type Item struct {
	Kind Kind

	// Instruction fields, valid when Kind == KindInstruction.
	Op         opcodes.Opcode
	Args       []ArgValue
	StackDelta int32
	HasDelta   bool

	// Label fields, valid when Kind == KindLabel.
	Label string

	// LocalVariable fields, valid when Kind == KindLocalVariable.
	VarName string
	VarType string
	VarSlot int

	loc Location
}

// Instruction builds an Instruction item.
func Instruction(op opcodes.Opcode, args ...ArgValue) Item {
	return Item{Kind: KindInstruction, Op: op, Args: args}
}

// LabelItem builds a Label item naming the given target.
func LabelItem(name string) Item {
	return Item{Kind: KindLabel, Label: name}
}

// LocalVariableItem builds a LocalVariable declaration pseudo-instruction.
// It passes through every transform in this module unchanged: neither
// the peephole rewriter nor the CFG builder has any reason to touch a
// local's declaration.
func LocalVariableItem(name, typ string, slot int) Item {
	return Item{Kind: KindLocalVariable, VarName: name, VarType: typ, VarSlot: slot}
}

// Location returns the item's source location, if any.
func (it Item) Location() Location { return it.loc }

// SetLocation copies another item's location onto it, so a rewritten
// or fused instruction keeps reporting the source position of the
// code it replaced.
func (it *Item) SetLocation(from Item) {
	it.loc = from.loc
}

// WithLocation returns a copy of it carrying the given location.
func (it Item) WithLocation(loc Location) Item {
	it.loc = loc
	return it
}

// IsInstruction reports whether it is an Instruction with the given
// opcode.
func (it Item) IsInstruction(op opcodes.Opcode) bool {
	return it.Kind == KindInstruction && it.Op == op
}

// LabelArgIndex returns the index of the argument carrying a jump
// target for it's opcode: arg[0] for most conditional jumps, arg[1]
// for opcodes whose schema puts a compared or dereferenced value
// ahead of the label (Enumerate, JumpIfFalseReference,
// JumpIfTrueReference, JumpIfReferenceFalse, SwitchOnFloat,
// SwitchOnString). ok is false if it is not a jump-carrying
// instruction.
func (it Item) LabelArgIndex() (idx int, ok bool) {
	if it.Kind != KindInstruction {
		return 0, false
	}
	switch it.Op {
	case opcodes.Enumerate, opcodes.JumpIfFalseReference, opcodes.JumpIfTrueReference,
		opcodes.JumpIfReferenceFalse, opcodes.SwitchOnFloat, opcodes.SwitchOnString:
		// These opcodes carry a value argument before the label, so
		// the label sits at index 1.
		return 1, len(it.Args) > 1
	case opcodes.Jump, opcodes.JumpIfFalse, opcodes.JumpIfTrue, opcodes.JumpIfNull,
		opcodes.JumpIfNullNoPop, opcodes.BooleanAnd, opcodes.BooleanOr,
		opcodes.SwitchCase, opcodes.SwitchCaseRange, opcodes.EnumerateNoAssign,
		opcodes.Spawn, opcodes.Try, opcodes.TryNoValue:
		return 0, len(it.Args) > 0
	default:
		return 0, false
	}
}

// TargetLabel returns the label name this item jumps to, if it carries
// one.
func (it Item) TargetLabel() (string, bool) {
	idx, ok := it.LabelArgIndex()
	if !ok {
		return "", false
	}
	arg := it.Args[idx]
	if arg.Kind != opcodes.ArgLabel {
		return "", false
	}
	return arg.Label, true
}

// SetTargetLabel rewrites the jump-target argument in place to name.
func (it *Item) SetTargetLabel(name string) {
	idx, ok := it.LabelArgIndex()
	if !ok {
		panic("bytecode: SetTargetLabel called on a non-jump item")
	}
	it.Args[idx] = LabelArg(name)
}
