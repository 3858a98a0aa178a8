package opcodes

// ArgKind classifies one positional argument of an Instruction.
type ArgKind int

const (
	ArgInt ArgKind = iota
	ArgFloat
	ArgString
	ArgResource
	ArgType
	ArgReference
	ArgLabel
	ArgListSize
)

func (k ArgKind) String() string {
	switch k {
	case ArgInt:
		return "int"
	case ArgFloat:
		return "float"
	case ArgString:
		return "string"
	case ArgResource:
		return "resource"
	case ArgType:
		return "type"
	case ArgReference:
		return "reference"
	case ArgLabel:
		return "label"
	case ArgListSize:
		return "list-size"
	default:
		return "arg(?)"
	}
}

// Meta is the static, read-only record consulted by both the peephole
// rewriter and the CFG builder.
type Meta struct {
	// SplitsBasicBlock is true for every opcode that must end a basic
	// block: all jumps, Return, Throw, Spawn, and the enumerate
	// variants.
	SplitsBasicBlock bool
	// StackEffect is a hint: the net change in stack depth this
	// opcode produces, ignoring operand-dependent variance (e.g. the
	// PushN* family, CreateList and the CreateListN* family report 0;
	// callers that need the true effect of such an instruction read
	// its argument count instead).
	StackEffect int32
	// ArgSchema enumerates the expected argument kinds in order.
	ArgSchema []ArgKind
}

func meta(splits bool, stackEffect int32, schema ...ArgKind) Meta {
	return Meta{SplitsBasicBlock: splits, StackEffect: stackEffect, ArgSchema: schema}
}

// table is the static opcode metadata registry. It must be total over
// the opcode enumeration. Metadata panics on an opcode outside the
// enumeration; an opcode left out of this table is not detected and
// reads as a zero Meta (no split, no stack effect, no arguments).
var table = [NumOpcodes]Meta{
	Nop: meta(false, 0),

	Assign:    meta(false, 0, ArgReference),
	AssignPop: meta(false, -1, ArgReference),
	Pop:       meta(false, -1),

	PushNull: meta(false, 1),
	NullRef:  meta(false, 0, ArgReference),

	PushFloat:           meta(false, 1, ArgFloat),
	PushString:          meta(false, 1, ArgString),
	PushResource:        meta(false, 1, ArgResource),
	PushReferenceValue:  meta(false, 1, ArgReference),
	PushType:            meta(false, 1, ArgType),
	PushStringFloat:     meta(false, 2, ArgString, ArgFloat),
	PushNFloats:         meta(false, 0, ArgListSize),
	PushNStrings:        meta(false, 0, ArgListSize),
	PushNResources:      meta(false, 0, ArgListSize),
	PushNRefs:           meta(false, 0, ArgListSize),
	PushNOfStringFloats: meta(false, 0, ArgListSize),

	DereferenceField:           meta(false, 0, ArgString),
	PushRefAndDereferenceField: meta(false, 1, ArgReference, ArgString),

	CreateList:           meta(false, 0, ArgListSize),
	CreateListNFloats:    meta(false, 0, ArgListSize),
	CreateListNStrings:   meta(false, 0, ArgListSize),
	CreateListNResources: meta(false, 0, ArgListSize),
	CreateListNRefs:      meta(false, 0, ArgListSize),

	IsType:       meta(false, 0),
	IsTypeDirect: meta(false, 0, ArgType),

	BooleanNot: meta(false, 0),
	BooleanAnd: meta(true, -1, ArgLabel),
	BooleanOr:  meta(true, -1, ArgLabel),

	Jump:                 meta(true, 0, ArgLabel),
	JumpIfFalse:          meta(true, -1, ArgLabel),
	JumpIfTrue:           meta(true, -1, ArgLabel),
	JumpIfNull:           meta(true, -1, ArgLabel),
	JumpIfNullNoPop:      meta(true, 0, ArgLabel),
	JumpIfFalseReference: meta(true, 0, ArgReference, ArgLabel),
	JumpIfTrueReference:  meta(true, 0, ArgReference, ArgLabel),
	JumpIfReferenceFalse: meta(true, 0, ArgReference, ArgLabel),

	SwitchCase:      meta(true, -1, ArgLabel),
	SwitchCaseRange: meta(true, -1, ArgLabel),
	SwitchOnFloat:   meta(true, -1, ArgFloat, ArgLabel),
	SwitchOnString:  meta(true, -1, ArgString, ArgLabel),

	Enumerate:         meta(true, 0, ArgReference, ArgLabel),
	EnumerateNoAssign: meta(true, 0, ArgLabel),

	Call:            meta(false, 0, ArgResource, ArgListSize),
	DereferenceCall: meta(false, -1, ArgString, ArgListSize),
	CallStatement:   meta(false, -1, ArgResource, ArgListSize),
	Return:          meta(true, -1),
	Spawn:           meta(true, 0, ArgLabel),

	Try:        meta(false, 0, ArgLabel),
	TryNoValue: meta(false, 0, ArgLabel),
	EndTry:     meta(false, 0),
	Throw:      meta(true, -1),
}

// Metadata returns the static record for op. It panics on an opcode
// outside the enumeration: the registry must be total, and querying it
// with an unknown opcode is a programmer error.
func Metadata(op Opcode) Meta {
	if op >= NumOpcodes {
		panic("opcodes: metadata requested for unknown opcode " + op.String())
	}
	return table[op]
}

// SplitsBasicBlock reports whether op must be the last instruction of
// its basic block.
func SplitsBasicBlock(op Opcode) bool {
	return Metadata(op).SplitsBasicBlock
}
