package cfg

import "fmt"

// StructuralError reports a fatal structural problem with the input
// stream: duplicate labels, a missing jump target, or a
// control-flow-splitting opcode that is not the last instruction of
// its block. The optimizer aborts the procedure named by Origin;
// there is no recoverable handling for this class.
type StructuralError struct {
	Origin string
	Detail string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("cfg: structural error in %q: %s", e.Origin, e.Detail)
}

func structuralf(origin, format string, args ...interface{}) *StructuralError {
	return &StructuralError{Origin: origin, Detail: fmt.Sprintf(format, args...)}
}

// InvariantError reports an internal invariant violation: a bug in
// this package, never expected on well-formed input. It carries
// enough context (block id, item index) to diagnose.
type InvariantError struct {
	Origin  string
	BlockID int
	Index   int
	Detail  string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("cfg: invariant violated in %q (block %d, index %d): %s",
		e.Origin, e.BlockID, e.Index, e.Detail)
}
