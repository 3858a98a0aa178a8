package cfg

import "github.com/F-OS/OpenDream/bytecode"

// maxIterations bounds the Phase B fixpoint loop. Convergence is
// guaranteed by strictly decreasing work each changed iteration; this
// cap only guards against a coverage bug in this package reintroducing
// a cycle, which would otherwise hang Convert forever on malformed
// input that should have been rejected earlier.
const maxIterations = 10000

// Stats counts the structural work Convert performed, for diagnostics
// and for tests that want to assert "exactly one block was removed"
// without walking the graph by hand.
type Stats struct {
	Iterations         int
	BlocksRemoved      int
	LabelsRemoved      int
	JumpsForwarded     int
	JumpsCanonicalized int
}

// Convert builds the basic-block graph for one procedure's annotated
// item stream. originName is used only in error messages. The
// returned slice's index 0 is always the entry block.
func Convert(stream []bytecode.Item, originName string) ([]*Block, *Stats, error) {
	bd := newBuilder(originName)
	stats := &Stats{}

	if err := bd.splitBlocks(stream); err != nil {
		return nil, nil, err
	}

	for iter := 0; ; iter++ {
		if iter >= maxIterations {
			return nil, nil, &InvariantError{
				Origin: originName,
				Detail: "Phase B fixpoint did not converge within the iteration bound",
			}
		}
		stats.Iterations++

		changed, rebuildRequired, err := bd.phaseBOnce()
		if err != nil {
			return nil, nil, err
		}
		if !changed {
			break
		}

		restart := bd.prepareNextIteration(rebuildRequired)
		if restart {
			logger.Printf("%s: restarting from Phase A after iteration %d", originName, iter)
			flat := bd.flatten()
			if err := bd.splitBlocks(flat); err != nil {
				return nil, nil, err
			}
		}
	}

	if err := bd.checkInvariants(); err != nil {
		return nil, nil, err
	}

	stats.BlocksRemoved = bd.blocksRemoved
	stats.LabelsRemoved = bd.labelsRemoved
	stats.JumpsForwarded = bd.jumpsForwarded
	stats.JumpsCanonicalized = bd.jumpsCanonicalized

	out := make([]*Block, len(bd.order))
	for i, id := range bd.order {
		out[i] = bd.blocks[id]
	}
	return out, stats, nil
}

// checkInvariants re-validates the properties that must hold of any
// well-formed graph Convert produces: every non-entry block has at
// least one predecessor, edges are symmetric, and every surviving
// label has at least one reference. Jump resolution is not re-checked
// here; resolveJumps has already rejected any unresolved jump during
// the final, unchanged Phase B pass.
func (bd *builder) checkInvariants() error {
	for i, id := range bd.order {
		b := bd.blocks[id]
		if i != 0 && len(b.preds) == 0 {
			return &InvariantError{Origin: bd.origin, BlockID: b.ID, Detail: "non-entry block has no predecessors"}
		}
		for s := range b.succs {
			succ, ok := bd.blocks[s]
			if !ok {
				return &InvariantError{Origin: bd.origin, BlockID: b.ID, Detail: "successor references a nonexistent block"}
			}
			if _, ok := succ.preds[b.ID]; !ok {
				return &InvariantError{Origin: bd.origin, BlockID: b.ID, Detail: "successor edge is not mirrored by a predecessor edge"}
			}
		}
		for p := range b.preds {
			pred, ok := bd.blocks[p]
			if !ok {
				return &InvariantError{Origin: bd.origin, BlockID: b.ID, Detail: "predecessor references a nonexistent block"}
			}
			if _, ok := pred.succs[b.ID]; !ok {
				return &InvariantError{Origin: bd.origin, BlockID: b.ID, Detail: "predecessor edge is not mirrored by a successor edge"}
			}
		}
	}
	for name, refs := range bd.labelRefs {
		if refs == 0 {
			return &InvariantError{Origin: bd.origin, Detail: "label " + name + " survived with zero references"}
		}
	}
	return nil
}
