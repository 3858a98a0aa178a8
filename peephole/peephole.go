// Package peephole fuses short windows of a linear annotated-bytecode
// stream into denser superinstructions. It scans with descending
// window widths against a static pattern catalog, the same
// table-driven shape used for instruction-level peephole optimization
// elsewhere in the bytecode-VM ecosystem, generalized here to greedy
// N-ary fusions and CreateListN*-style preconditions.
package peephole

import (
	"log"
	"os"

	"github.com/F-OS/OpenDream/bytecode"
)

// PrintDebugInfo gates the package logger, in the spirit of
// wasm/log.go's gate on wagon's disassembly logger: discard by default,
// stderr when a caller flips this on for diagnosis. The flag is read on
// every write, so flipping it at run time takes effect immediately.
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
	logger = log.New(debugWriter{}, "peephole: ", log.Lshortfile)
}

// windowWidths is the descending scan order: widest patterns get first
// crack at a position before narrower ones are tried.
var windowWidths = [...]int{5, 4, 3, 2}

// Stats counts rewrites applied, keyed by the pattern's Name, plus the
// number of outer fixpoint iterations taken. Collected passively, in
// the spirit of wagon's Disassembly.MaxDepth counter.
type Stats struct {
	FiredByPattern map[string]int
	Iterations     int
}

func newStats() *Stats {
	return &Stats{FiredByPattern: make(map[string]int)}
}

// Run rewrites stream until no registered pattern applies: an outer
// fixpoint loop, and within each outer iteration four inner passes at
// widths 5, 4, 3, 2 in that order. It returns the rewritten stream
// (which may be shorter than the input) and the stats collected along
// the way.
func Run(stream []bytecode.Item) ([]bytecode.Item, *Stats) {
	stats := newStats()
	for {
		stats.Iterations++
		changedThisIteration := false
		for _, w := range windowWidths {
			var changed bool
			stream, changed = scanPass(stream, w, stats)
			changedThisIteration = changedThisIteration || changed
		}
		if !changedThisIteration {
			break
		}
	}
	return stream, stats
}

// scanPass runs a single left-to-right scan at the given window width,
// applying the first matching pattern at each position. A greedy-run
// pattern may consume more than width items; the scan resumes at the
// item following the spliced replacement.
func scanPass(stream []bytecode.Item, width int, stats *Stats) ([]bytecode.Item, bool) {
	changed := false
	i := 0
	for i+width <= len(stream) {
		if !windowIsAllInstructions(stream, i, width) {
			i++
			continue
		}
		pat, ok := lookup(width, opcodesAt(stream, i, width))
		if !ok {
			i++
			continue
		}
		if pat.Check != nil && !pat.Check(stream, i) {
			i++
			continue
		}

		newStream, consumed := pat.Apply(stream, i)
		if consumed <= 0 {
			panic("peephole: pattern " + pat.Name + " applied but consumed no items")
		}
		// A greedy-run pattern may consume more than pat.Length items;
		// the location search covers the whole matched window.
		loc := firstLocation(stream, i, consumed)
		if len(newStream) > i {
			item := newStream[i]
			if loc.Valid {
				item = item.WithLocation(loc)
			}
			newStream[i] = item
		}
		stream = newStream
		stats.FiredByPattern[pat.Name]++
		changed = true
		logger.Printf("fired %s at %d (consumed %d)", pat.Name, i, consumed)
		// Move past the replacement. A match the freshly-spliced item
		// starts with its neighbour (e.g. PushN* immediately followed by
		// CreateList) is picked up by the next outer fixpoint iteration.
		i++
	}
	return stream, changed
}

func windowIsAllInstructions(stream []bytecode.Item, i, width int) bool {
	for k := 0; k < width; k++ {
		if stream[i+k].Kind != bytecode.KindInstruction {
			return false
		}
	}
	return true
}

func opcodesAt(stream []bytecode.Item, i, width int) []opcodeSeqKey {
	keys := make([]opcodeSeqKey, width)
	for k := 0; k < width; k++ {
		keys[k] = opcodeSeqKey(stream[i+k].Op)
	}
	return keys
}

func firstLocation(stream []bytecode.Item, i, width int) bytecode.Location {
	for k := 0; k < width && i+k < len(stream); k++ {
		if loc := stream[i+k].Location(); loc.Valid {
			return loc
		}
	}
	return stream[i].Location()
}
