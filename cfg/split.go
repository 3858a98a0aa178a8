package cfg

import "github.com/F-OS/OpenDream/bytecode"

// builder holds the per-Convert scratch state: all of it is created by
// splitBlocks and released when Convert returns. Nothing here outlives
// one procedure's conversion.
type builder struct {
	origin string

	blocks map[int]*Block
	order  []int

	labels    map[string]int // canonical label name -> block id
	aliases   map[string]string
	labelRefs map[string]int

	tryStack []int // block ids of currently open Try/TryNoValue scopes

	nextID int

	blocksRemoved      int
	labelsRemoved      int
	jumpsForwarded     int
	jumpsCanonicalized int
}

func newBuilder(origin string) *builder {
	return &builder{
		origin:    origin,
		blocks:    map[int]*Block{},
		labels:    map[string]int{},
		aliases:   map[string]string{},
		labelRefs: map[string]int{},
	}
}

func (bd *builder) freshBlock() *Block {
	id := bd.nextID
	bd.nextID++
	b := newBlock(id)
	bd.blocks[id] = b
	bd.order = append(bd.order, id)
	return b
}

// canonical resolves a label name through the alias table to its
// canonical name.
func (bd *builder) canonical(name string) string {
	seen := map[string]bool{}
	for {
		target, ok := bd.aliases[name]
		if !ok || seen[name] {
			return name
		}
		seen[name] = true
		name = target
	}
}

// splitBlocks performs the initial linear split of stream into basic
// blocks, replacing any prior block/label/alias state on bd. It is
// also the re-entry point when the cleanup fixpoint in cleanup.go
// needs a full structural rebuild after removing labels or blocks.
func (bd *builder) splitBlocks(stream []bytecode.Item) error {
	bd.blocks = map[int]*Block{}
	bd.order = nil
	bd.labels = map[string]int{}
	bd.aliases = map[string]string{}
	bd.labelRefs = map[string]int{}
	bd.tryStack = nil
	bd.nextID = 0

	cur := bd.freshBlock()
	declaredLabels := map[string]bool{}
	var prevWasLabel bool
	var pendingAliasSource string

	for idx := 0; idx < len(stream); idx++ {
		item := stream[idx]

		switch item.Kind {
		case bytecode.KindLabel:
			name := item.Label
			if prevWasLabel {
				// Adjacent-label collapse: this label gets no block of
				// its own; it aliases the previous label and is
				// discarded from the stream.
				if declaredLabels[name] {
					return structuralf(bd.origin, "duplicate label definition %q", name)
				}
				declaredLabels[name] = true
				bd.aliases[name] = pendingAliasSource
				continue
			}
			if declaredLabels[name] {
				return structuralf(bd.origin, "duplicate label definition %q", name)
			}
			declaredLabels[name] = true

			if !cur.Empty() {
				cur = bd.freshBlock()
			}
			cur.Items = append(cur.Items, item)
			bd.labels[name] = cur.ID
			bd.labelRefs[name] = 0
			prevWasLabel = true
			pendingAliasSource = name
			continue

		case bytecode.KindLocalVariable:
			cur.Items = append(cur.Items, item)
			prevWasLabel = false
			continue

		case bytecode.KindInstruction:
			cur.Items = append(cur.Items, item)
			prevWasLabel = false
			if splitsBlock(item) {
				cur = bd.freshBlock()
			}
			continue
		}
	}

	// A trailing fresh block with nothing in it yet (e.g. after a
	// final Return) is pruned by Phase B's "remove empty blocks" step;
	// leaving it here keeps Phase A a pure, one-pass split.
	_ = cur

	return nil
}
