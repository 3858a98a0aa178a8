package cfg

import (
	"github.com/F-OS/OpenDream/bytecode"
	"github.com/F-OS/OpenDream/opcodes"
)

// phaseBOnce runs Phase B steps 1-8 exactly once. changed reports
// whether anything in this pass moved the graph toward fixpoint;
// rebuildRequired reports whether step 8 removed at least one Label
// item, which forces a structural rebuild per step 9.
func (bd *builder) phaseBOnce() (changed bool, rebuildRequired bool, err error) {
	if bd.removeEmptyBlocks() {
		changed = true
	}
	bd.linearConnect()
	jumpChanged, err := bd.resolveJumps()
	if err != nil {
		return false, false, err
	}
	changed = changed || jumpChanged

	bd.renumber()

	if bd.jumpForwarding() {
		changed = true
	}

	if bd.removeNoPredBlocks() {
		changed = true
	}

	bd.renumber()

	removedLabel, err := bd.removeUnreferencedLabels()
	if err != nil {
		return false, false, err
	}
	if removedLabel {
		changed = true
		rebuildRequired = true
	}

	return changed, rebuildRequired, nil
}

// removeEmptyBlocks is Phase B step 1.
func (bd *builder) removeEmptyBlocks() bool {
	changed := false
	newOrder := make([]int, 0, len(bd.order))
	for i, id := range bd.order {
		if i == 0 {
			newOrder = append(newOrder, id) // entry is never removed
			continue
		}
		b := bd.blocks[id]
		if !b.Empty() {
			newOrder = append(newOrder, id)
			continue
		}
		changed = true
		bd.blocksRemoved++
		var nextID int
		hasNext := i+1 < len(bd.order)
		if hasNext {
			nextID = bd.order[i+1]
		}
		for name, bid := range bd.labels {
			if bid != id {
				continue
			}
			if hasNext {
				bd.labels[name] = nextID
			} else {
				delete(bd.labels, name)
			}
		}
		delete(bd.blocks, id)
	}
	bd.order = newOrder
	return changed
}

// linearConnect is Phase B step 2: the speculative naive CFG, refined
// by resolveJumps immediately after.
func (bd *builder) linearConnect() {
	for i := 0; i+1 < len(bd.order); i++ {
		a := bd.blocks[bd.order[i]]
		b := bd.blocks[bd.order[i+1]]
		a.addSucc(b.ID)
		b.addPred(a.ID)
	}
}

func (bd *builder) orderIndex(id int) int {
	for i, v := range bd.order {
		if v == id {
			return i
		}
	}
	return -1
}

func (bd *builder) removeFallthrough(b *Block) {
	idx := bd.orderIndex(b.ID)
	if idx < 0 || idx+1 >= len(bd.order) {
		return
	}
	nextID := bd.order[idx+1]
	if _, ok := b.succs[nextID]; ok {
		b.delSucc(nextID)
		bd.blocks[nextID].delPred(b.ID)
	}
}

// resolveJumps is Phase B step 3: it walks every item of every block,
// in layout order, classifying control-flow-splitting opcodes and the
// Call family, maintaining the try stack across block boundaries the
// way a single flattened pass over the procedure would.
func (bd *builder) resolveJumps() (changed bool, err error) {
	bd.tryStack = nil
	for _, blockID := range bd.order {
		b := bd.blocks[blockID]
		for i := range b.Items {
			item := b.Items[i]
			if item.Kind != bytecode.KindInstruction {
				continue
			}
			cat := categorize(item.Op)
			last := i == len(b.Items)-1

			switch cat {
			case catConditionalArg0, catConditionalArg1:
				if !last {
					return changed, structuralf(bd.origin,
						"opcode %s must be the last instruction of block %d", item.Op, b.ID)
				}
				rewrote, e := bd.resolveJumpArg(b, i)
				if e != nil {
					return changed, e
				}
				changed = changed || rewrote

			case catUnconditionalJump:
				if !last {
					return changed, structuralf(bd.origin,
						"opcode %s must be the last instruction of block %d", item.Op, b.ID)
				}
				bd.removeFallthrough(b)
				rewrote, e := bd.resolveJumpArg(b, i)
				if e != nil {
					return changed, e
				}
				changed = changed || rewrote

			case catReturn:
				if !last {
					return changed, structuralf(bd.origin,
						"Return must be the last instruction of block %d", b.ID)
				}
				bd.removeFallthrough(b)

			case catThrow:
				if !last {
					return changed, structuralf(bd.origin,
						"Throw must be the last instruction of block %d", b.ID)
				}
				bd.removeFallthrough(b)
				if len(bd.tryStack) > 0 {
					top := bd.tryStack[len(bd.tryStack)-1]
					b.addSucc(top)
					bd.blocks[top].addPred(b.ID)
				}

			case catCall:
				if len(bd.tryStack) > 0 {
					top := bd.tryStack[len(bd.tryStack)-1]
					b.addSucc(top)
					bd.blocks[top].addPred(b.ID)
				}

			case catTry:
				target, ok := item.TargetLabel()
				if !ok {
					return changed, structuralf(bd.origin, "Try/TryNoValue without a label argument in block %d", b.ID)
				}
				canon := bd.canonical(target)
				targetID, ok := bd.labels[canon]
				if !ok {
					return changed, structuralf(bd.origin, "Try/TryNoValue names undefined label %q", canon)
				}
				if target != canon {
					b.Items[i].SetTargetLabel(canon)
					changed = true
				}
				bd.labelRefs[canon]++
				bd.tryStack = append(bd.tryStack, targetID)

			case catEndTry:
				if len(bd.tryStack) == 0 {
					return changed, structuralf(bd.origin, "EndTry with no matching Try in block %d", b.ID)
				}
				bd.tryStack = bd.tryStack[:len(bd.tryStack)-1]

			default:
				if splitsBlock(item) {
					return changed, &InvariantError{
						Origin: bd.origin, BlockID: b.ID, Index: i,
						Detail: "opcode " + item.Op.String() + " splits a block but has no resolveJumps case",
					}
				}
			}
		}
	}
	return changed, nil
}

// resolveJumpArg resolves item b.Items[i]'s label argument through the
// alias table, adds the corresponding edge, rewrites the argument to
// the canonical name if it changed, and counts the reference.
func (bd *builder) resolveJumpArg(b *Block, i int) (rewrote bool, err error) {
	item := b.Items[i]
	target, ok := item.TargetLabel()
	if !ok {
		return false, structuralf(bd.origin, "opcode %s missing its label argument in block %d", item.Op, b.ID)
	}
	canon := bd.canonical(target)
	targetID, ok := bd.labels[canon]
	if !ok {
		return false, structuralf(bd.origin, "jump to undefined label %q in block %d", canon, b.ID)
	}
	if target != canon {
		b.Items[i].SetTargetLabel(canon)
		rewrote = true
		bd.jumpsCanonicalized++
	}
	bd.labelRefs[canon]++
	b.addSucc(targetID)
	bd.blocks[targetID].addPred(b.ID)
	return rewrote, nil
}

// renumber is Phase B steps 4 and 7: sequential ids from the entry.
func (bd *builder) renumber() {
	remap := make(map[int]int, len(bd.order))
	for i, id := range bd.order {
		remap[id] = i
	}

	newBlocks := make(map[int]*Block, len(bd.blocks))
	for _, id := range bd.order {
		b := bd.blocks[id]
		newSuccs := make(map[int]struct{}, len(b.succs))
		for s := range b.succs {
			newSuccs[remap[s]] = struct{}{}
		}
		newPreds := make(map[int]struct{}, len(b.preds))
		for p := range b.preds {
			newPreds[remap[p]] = struct{}{}
		}
		b.succs = newSuccs
		b.preds = newPreds
		b.ID = remap[id]
		newBlocks[b.ID] = b
	}

	for name, id := range bd.labels {
		bd.labels[name] = remap[id]
	}
	for idx := range bd.tryStack {
		bd.tryStack[idx] = remap[bd.tryStack[idx]]
	}

	bd.blocks = newBlocks
	newOrder := make([]int, len(bd.order))
	for i := range bd.order {
		newOrder[i] = i
	}
	bd.order = newOrder
	bd.nextID = len(bd.order)
}

// jumpForwarding is Phase B step 5. It only rewrites label arguments;
// the edges those arguments imply are reconciled by the next
// iteration's resolveJumps, once edges are cleared per step 9 — which
// is also why forwarding alone is enough to guarantee eventual
// progress without maintaining edges incrementally here.
func (bd *builder) jumpForwarding() bool {
	changed := false
	for _, blockID := range bd.order {
		b := bd.blocks[blockID]
		last, ok := b.lastInstruction()
		if !ok {
			continue
		}
		targetLabel, ok := last.TargetLabel()
		if !ok {
			continue
		}
		targetID, ok := bd.labels[targetLabel]
		if !ok {
			continue
		}
		target := bd.blocks[targetID]

		pos := 0
		for pos < len(target.Items) && target.Items[pos].Kind == bytecode.KindLabel {
			pos++
		}
		if pos >= len(target.Items) {
			continue
		}
		inner := target.Items[pos]
		if inner.Kind != bytecode.KindInstruction || inner.Op != opcodes.Jump {
			continue
		}
		innerTarget, ok := inner.TargetLabel()
		if !ok || innerTarget == targetLabel {
			continue
		}
		b.Items[len(b.Items)-1].SetTargetLabel(innerTarget)
		changed = true
		bd.jumpsForwarded++
	}
	return changed
}

// removeNoPredBlocks is Phase B step 6.
func (bd *builder) removeNoPredBlocks() bool {
	changed := false
	newOrder := make([]int, 0, len(bd.order))
	for i, id := range bd.order {
		if i == 0 {
			newOrder = append(newOrder, id)
			continue
		}
		b := bd.blocks[id]
		if len(b.preds) == 0 {
			changed = true
			bd.blocksRemoved++
			for s := range b.succs {
				bd.blocks[s].delPred(id)
			}
			delete(bd.blocks, id)
			continue
		}
		newOrder = append(newOrder, id)
	}
	bd.order = newOrder
	return changed
}

// removeUnreferencedLabels is Phase B step 8.
func (bd *builder) removeUnreferencedLabels() (removed bool, err error) {
	for _, id := range bd.order {
		b := bd.blocks[id]
		name, ok := b.leadingLabel()
		if !ok {
			continue
		}
		if bd.labelRefs[name] == 0 {
			b.Items = b.Items[1:]
			removed = true
			bd.labelsRemoved++
		}
	}
	return removed, nil
}

// prepareNextIteration is Phase B step 9: clear scratch state, rebuild
// the label table from the blocks themselves, and report whether a
// full restart from Phase A is required.
func (bd *builder) prepareNextIteration(rebuildRequired bool) bool {
	bd.labels = map[string]int{}
	bd.labelRefs = map[string]int{}
	bd.aliases = map[string]string{}
	for _, id := range bd.order {
		b := bd.blocks[id]
		b.preds = map[int]struct{}{}
		b.succs = map[int]struct{}{}
		for idx, item := range b.Items {
			if item.Kind != bytecode.KindLabel {
				continue
			}
			if idx != 0 {
				rebuildRequired = true
				continue
			}
			bd.labels[item.Label] = id
			bd.labelRefs[item.Label] = 0
		}
	}
	return rebuildRequired
}

// flatten concatenates every block's items in layout order, the input
// step 9's restart re-splits.
func (bd *builder) flatten() []bytecode.Item {
	var out []bytecode.Item
	for _, id := range bd.order {
		out = append(out, bd.blocks[id].Items...)
	}
	return out
}
