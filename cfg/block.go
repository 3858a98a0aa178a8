// Package cfg reconstructs a basic-block control-flow graph from a
// linear annotated-bytecode stream, resolves label aliases, and
// iterates a cleanup fixpoint that prunes dead blocks, forwards
// chained jumps, and drops unreferenced labels.
package cfg

import (
	"log"
	"os"
	"sort"

	"github.com/F-OS/OpenDream/bytecode"
)

// PrintDebugInfo gates the package logger, mirroring peephole's and
// wagon's wasm/log.go gated-logger idiom. The flag is read on every
// write, so flipping it at run time takes effect immediately.
var PrintDebugInfo = false

var logger *log.Logger

// debugWriter forwards to stderr while PrintDebugInfo is set and
// discards otherwise.
type debugWriter struct{}

func (debugWriter) Write(p []byte) (int, error) {
	if !PrintDebugInfo {
		return len(p), nil
	}
	return os.Stderr.Write(p)
}

func init() {
	logger = log.New(debugWriter{}, "cfg: ", log.Lshortfile)
}

// Block is a maximal straight-line run of items plus its edges in the
// block graph. ID is stable for the lifetime of one Convert call
// between renumbering passes; it exists for debug output only.
type Block struct {
	ID    int
	Items []bytecode.Item

	preds map[int]struct{}
	succs map[int]struct{}
}

func newBlock(id int) *Block {
	return &Block{ID: id, preds: map[int]struct{}{}, succs: map[int]struct{}{}}
}

// Predecessors returns the ids of this block's predecessors, sorted
// for deterministic iteration.
func (b *Block) Predecessors() []int { return sortedKeys(b.preds) }

// Successors returns the ids of this block's successors, sorted for
// deterministic iteration.
func (b *Block) Successors() []int { return sortedKeys(b.succs) }

func sortedKeys(m map[int]struct{}) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

// Empty reports whether the block carries no items at all.
func (b *Block) Empty() bool { return len(b.Items) == 0 }

// leadingLabel returns the Label name at Items[0], if the block starts
// with one. A block's first item is its only Label, enforced by
// splitBlocks.
func (b *Block) leadingLabel() (string, bool) {
	if len(b.Items) == 0 || b.Items[0].Kind != bytecode.KindLabel {
		return "", false
	}
	return b.Items[0].Label, true
}

// lastInstruction returns the block's last item if it is an
// Instruction.
func (b *Block) lastInstruction() (bytecode.Item, bool) {
	if len(b.Items) == 0 {
		return bytecode.Item{}, false
	}
	last := b.Items[len(b.Items)-1]
	if last.Kind != bytecode.KindInstruction {
		return bytecode.Item{}, false
	}
	return last, true
}

func (b *Block) addPred(id int) { b.preds[id] = struct{}{} }
func (b *Block) addSucc(id int) { b.succs[id] = struct{}{} }
func (b *Block) delPred(id int) { delete(b.preds, id) }
func (b *Block) delSucc(id int) { delete(b.succs, id) }
