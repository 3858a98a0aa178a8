// Package dump implements an optional debug-dump interface: writing a
// textual CFG listing and a flattened instruction listing to disk.
// Neither function is ever called by peephole or cfg themselves —
// callers opt in explicitly, the same way wagon's own debug dumps
// (wasm/validate.go's PrintDebugInfo gate) are never on by default.
package dump

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/edsrzf/mmap-go"

	"github.com/F-OS/OpenDream/bytecode"
	"github.com/F-OS/OpenDream/cfg"
)

// sanitize replaces forward slashes in name with underscores so a
// procedure name can never escape the dump directory it's written
// into.
func sanitize(name string) string {
	return strings.ReplaceAll(name, "/", "_")
}

// WriteCFG writes a textual listing of each block's items, successors
// and predecessors to ./cfg/<sanitized name>, and a flattened
// instruction listing to the sibling file <path>_insts.
func WriteCFG(blocks []*cfg.Block, name string) error {
	dir := "cfg"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("dump: creating %s: %w", dir, err)
	}
	path := filepath.Join(dir, sanitize(name))

	var body strings.Builder
	for _, b := range blocks {
		fmt.Fprintf(&body, "block %d: preds=%v succs=%v\n", b.ID, b.Predecessors(), b.Successors())
		for _, it := range b.Items {
			fmt.Fprintf(&body, "  %s\n", formatItem(it))
		}
	}
	if err := writeMapped(path, body.String()); err != nil {
		return err
	}

	var flat strings.Builder
	for _, b := range blocks {
		for _, it := range b.Items {
			fmt.Fprintf(&flat, "%s\n", formatItem(it))
		}
	}
	return writeMapped(path+"_insts", flat.String())
}

// WriteInstructions writes a flattened instruction listing for a raw
// item stream, without any block structure — useful for dumping the
// peephole rewriter's output before cfg.Convert ever runs.
func WriteInstructions(stream []bytecode.Item, name string) error {
	dir := "cfg"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("dump: creating %s: %w", dir, err)
	}
	path := filepath.Join(dir, sanitize(name)) + "_insts"

	var body strings.Builder
	for _, it := range stream {
		fmt.Fprintf(&body, "%s\n", formatItem(it))
	}
	return writeMapped(path, body.String())
}

func formatItem(it bytecode.Item) string {
	switch it.Kind {
	case bytecode.KindLabel:
		return "Label " + it.Label
	case bytecode.KindLocalVariable:
		return fmt.Sprintf("Local %s:%s @%d", it.VarName, it.VarType, it.VarSlot)
	default:
		var args []string
		for _, a := range it.Args {
			args = append(args, a.String())
		}
		if len(args) == 0 {
			return it.Op.String()
		}
		return fmt.Sprintf("%s %s", it.Op, strings.Join(args, ", "))
	}
}

// writeMapped creates (or truncates) path, sizes it to len(content),
// memory-maps it, and writes through the mapping — the same
// "size the file, map it, write through the mapping" idiom wagon's
// wired-but-unexercised mmap-go dependency implies for its linear
// memory, applied here to a dump artifact instead.
func writeMapped(path, content string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("dump: opening %s: %w", path, err)
	}
	defer f.Close()

	if len(content) == 0 {
		return nil
	}
	if err := f.Truncate(int64(len(content))); err != nil {
		return fmt.Errorf("dump: sizing %s: %w", path, err)
	}

	m, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		return fmt.Errorf("dump: mapping %s: %w", path, err)
	}
	copy(m, content)
	if err := m.Flush(); err != nil {
		m.Unmap()
		return fmt.Errorf("dump: flushing %s: %w", path, err)
	}
	return m.Unmap()
}
