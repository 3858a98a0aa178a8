package peephole

import (
	"fmt"

	"github.com/F-OS/OpenDream/bytecode"
	"github.com/F-OS/OpenDream/opcodes"
)

// opcodeSeqKey is one element of the tuple used to key the pattern
// index; it exists only to keep peephole.go's scan loop free of a
// direct opcodes import cycle concern and to make the key-building
// call sites read as "sequence of opcodes", not "sequence of ints".
type opcodeSeqKey opcodes.Opcode

// Pattern is a registered rewrite rule: a fixed-width opcode
// signature, an optional precondition, and an in-place-splicing
// Apply. Apply returns the rewritten stream and the number of
// original items it consumed — which may exceed Length for the
// greedy-run families.
type Pattern struct {
	Name    string
	Length  int
	Opcodes []opcodes.Opcode
	Check   func(stream []bytecode.Item, i int) bool
	Apply   func(stream []bytecode.Item, i int) (newStream []bytecode.Item, consumed int)
}

// AllPatterns is the registered catalog, in registration order — the
// tie-break for patterns that would otherwise share a window.
var AllPatterns = []Pattern{
	{
		Name:    "AssignPop",
		Length:  2,
		Opcodes: []opcodes.Opcode{opcodes.Assign, opcodes.Pop},
		Apply: func(s []bytecode.Item, i int) ([]bytecode.Item, int) {
			r := s[i].Args[0]
			return splice(s, i, 2, bytecode.Instruction(opcodes.AssignPop, r))
		},
	},
	{
		Name:    "NullRef",
		Length:  2,
		Opcodes: []opcodes.Opcode{opcodes.PushNull, opcodes.AssignPop},
		Apply: func(s []bytecode.Item, i int) ([]bytecode.Item, int) {
			r := s[i+1].Args[0]
			return splice(s, i, 2, bytecode.Instruction(opcodes.NullRef, r))
		},
	},
	{
		Name:    "PushRefAndDereferenceField",
		Length:  2,
		Opcodes: []opcodes.Opcode{opcodes.PushReferenceValue, opcodes.DereferenceField},
		Apply: func(s []bytecode.Item, i int) ([]bytecode.Item, int) {
			r, f := s[i].Args[0], s[i+1].Args[0]
			return splice(s, i, 2, bytecode.Instruction(opcodes.PushRefAndDereferenceField, r, f))
		},
	},
	{
		Name:    "JumpIfTrue",
		Length:  2,
		Opcodes: []opcodes.Opcode{opcodes.BooleanNot, opcodes.JumpIfFalse},
		Apply: func(s []bytecode.Item, i int) ([]bytecode.Item, int) {
			l := s[i+1].Args[0]
			return splice(s, i, 2, bytecode.Instruction(opcodes.JumpIfTrue, l))
		},
	},
	{
		Name:    "JumpIfReferenceFalse",
		Length:  2,
		Opcodes: []opcodes.Opcode{opcodes.PushReferenceValue, opcodes.JumpIfFalse},
		Apply: func(s []bytecode.Item, i int) ([]bytecode.Item, int) {
			r, l := s[i].Args[0], s[i+1].Args[0]
			return splice(s, i, 2, bytecode.Instruction(opcodes.JumpIfReferenceFalse, r, l))
		},
	},
	{
		Name:    "PushNStrings",
		Length:  2,
		Opcodes: []opcodes.Opcode{opcodes.PushString, opcodes.PushString},
		Apply:   greedyPushRun(opcodes.PushString, opcodes.PushNStrings),
	},
	{
		Name:    "PushNFloats",
		Length:  2,
		Opcodes: []opcodes.Opcode{opcodes.PushFloat, opcodes.PushFloat},
		Apply:   greedyPushRun(opcodes.PushFloat, opcodes.PushNFloats),
	},
	{
		Name:    "PushNRefs",
		Length:  2,
		Opcodes: []opcodes.Opcode{opcodes.PushReferenceValue, opcodes.PushReferenceValue},
		Apply:   greedyPushRun(opcodes.PushReferenceValue, opcodes.PushNRefs),
	},
	{
		Name:    "PushNResources",
		Length:  2,
		Opcodes: []opcodes.Opcode{opcodes.PushResource, opcodes.PushResource},
		Apply:   greedyPushRun(opcodes.PushResource, opcodes.PushNResources),
	},
	{
		Name:    "PushStringFloat",
		Length:  2,
		Opcodes: []opcodes.Opcode{opcodes.PushString, opcodes.PushFloat},
		Apply: func(s []bytecode.Item, i int) ([]bytecode.Item, int) {
			str, f := s[i].Args[0], s[i+1].Args[0]
			return splice(s, i, 2, bytecode.Instruction(opcodes.PushStringFloat, str, f))
		},
	},
	{
		Name:    "PushNOfStringFloats",
		Length:  2,
		Opcodes: []opcodes.Opcode{opcodes.PushStringFloat, opcodes.PushStringFloat},
		Apply: func(s []bytecode.Item, i int) ([]bytecode.Item, int) {
			j := i
			args := []bytecode.ArgValue{}
			for j < len(s) && s[j].Kind == bytecode.KindInstruction && s[j].Op == opcodes.PushStringFloat {
				args = append(args, s[j].Args[0], s[j].Args[1])
				j++
			}
			consumed := j - i
			args = append([]bytecode.ArgValue{bytecode.ListSizeArg(int64(consumed))}, args...)
			return splice(s, i, consumed, bytecode.Instruction(opcodes.PushNOfStringFloats, args...))
		},
	},
	{
		Name:    "SwitchOnFloat",
		Length:  2,
		Opcodes: []opcodes.Opcode{opcodes.PushFloat, opcodes.SwitchCase},
		Apply: func(s []bytecode.Item, i int) ([]bytecode.Item, int) {
			f, l := s[i].Args[0], s[i+1].Args[0]
			return splice(s, i, 2, bytecode.Instruction(opcodes.SwitchOnFloat, f, l))
		},
	},
	{
		Name:    "SwitchOnString",
		Length:  2,
		Opcodes: []opcodes.Opcode{opcodes.PushString, opcodes.SwitchCase},
		Apply: func(s []bytecode.Item, i int) ([]bytecode.Item, int) {
			str, l := s[i].Args[0], s[i+1].Args[0]
			return splice(s, i, 2, bytecode.Instruction(opcodes.SwitchOnString, str, l))
		},
	},
	{
		Name:    "CreateListNFloats",
		Length:  2,
		Opcodes: []opcodes.Opcode{opcodes.PushNFloats, opcodes.CreateList},
		Check:   createListNCheck,
		Apply:   fuseCreateListN(opcodes.CreateListNFloats),
	},
	{
		Name:    "CreateListNStrings",
		Length:  2,
		Opcodes: []opcodes.Opcode{opcodes.PushNStrings, opcodes.CreateList},
		Check:   createListNCheck,
		Apply:   fuseCreateListN(opcodes.CreateListNStrings),
	},
	{
		Name:    "CreateListNResources",
		Length:  2,
		Opcodes: []opcodes.Opcode{opcodes.PushNResources, opcodes.CreateList},
		Check:   createListNCheck,
		Apply:   fuseCreateListN(opcodes.CreateListNResources),
	},
	{
		Name:    "CreateListNRefs",
		Length:  2,
		Opcodes: []opcodes.Opcode{opcodes.PushNRefs, opcodes.CreateList},
		Check:   createListNCheck,
		Apply:   fuseCreateListN(opcodes.CreateListNRefs),
	},
	{
		Name:    "DeadJump",
		Length:  2,
		Opcodes: []opcodes.Opcode{opcodes.Jump, opcodes.Jump},
		Apply: func(s []bytecode.Item, i int) ([]bytecode.Item, int) {
			l := s[i].Args[0]
			return splice(s, i, 2, bytecode.Instruction(opcodes.Jump, l))
		},
	},
	{
		Name:    "IsTypeDirect",
		Length:  2,
		Opcodes: []opcodes.Opcode{opcodes.PushType, opcodes.IsType},
		Apply: func(s []bytecode.Item, i int) ([]bytecode.Item, int) {
			t := s[i].Args[0]
			return splice(s, i, 2, bytecode.Instruction(opcodes.IsTypeDirect, t))
		},
	},
}

// index is built once from AllPatterns, keyed by "<length>:<op0>,<op1>,...".
// Lookup is exact-opcode-sequence, registration order preserved for
// patterns that would otherwise tie (none currently share a key, but
// the catalog is built to make adding one safe).
var index map[string]*Pattern

func init() {
	index = make(map[string]*Pattern, len(AllPatterns))
	for k := range AllPatterns {
		p := &AllPatterns[k]
		key := patternKey(p.Length, p.Opcodes)
		if _, exists := index[key]; !exists {
			index[key] = p
		}
	}
}

func patternKey(length int, ops []opcodes.Opcode) string {
	key := fmt.Sprintf("%d:", length)
	for _, op := range ops {
		key += fmt.Sprintf("%d,", op)
	}
	return key
}

func lookup(width int, ops []opcodeSeqKey) (Pattern, bool) {
	raw := make([]opcodes.Opcode, len(ops))
	for i, o := range ops {
		raw[i] = opcodes.Opcode(o)
	}
	p, ok := index[patternKey(width, raw)]
	if !ok {
		return Pattern{}, false
	}
	return *p, true
}

func splice(stream []bytecode.Item, i, consumed int, replacement ...bytecode.Item) ([]bytecode.Item, int) {
	out := make([]bytecode.Item, 0, len(stream)-consumed+len(replacement))
	out = append(out, stream[:i]...)
	out = append(out, replacement...)
	out = append(out, stream[i+consumed:]...)
	return out, consumed
}

// greedyPushRun builds an Apply function for the "Push<Kind> × N"
// family: it consumes every contiguous instruction with opcode `from`
// starting at i, regardless of the pattern's nominal width, folding
// an entire run of single pushes into one N-ary push.
func greedyPushRun(from, to opcodes.Opcode) func([]bytecode.Item, int) ([]bytecode.Item, int) {
	return func(s []bytecode.Item, i int) ([]bytecode.Item, int) {
		j := i
		args := []bytecode.ArgValue{}
		for j < len(s) && s[j].Kind == bytecode.KindInstruction && s[j].Op == from {
			args = append(args, s[j].Args[0])
			j++
		}
		consumed := j - i
		args = append([]bytecode.ArgValue{bytecode.ListSizeArg(int64(consumed))}, args...)
		return splice(s, i, consumed, bytecode.Instruction(to, args...))
	}
}

// createListNCheck is the shared precondition for every CreateListN*
// fusion: the PushN* count must equal CreateList's own operand, or the
// two instructions are pushing and building lists of different sizes
// and must not be fused.
func createListNCheck(stream []bytecode.Item, i int) bool {
	n := stream[i].Args[0].Int
	k := stream[i+1].Args[0].Int
	return n == k
}

func fuseCreateListN(to opcodes.Opcode) func([]bytecode.Item, int) ([]bytecode.Item, int) {
	return func(s []bytecode.Item, i int) ([]bytecode.Item, int) {
		args := s[i].Args
		return splice(s, i, 2, bytecode.Instruction(to, args...))
	}
}
