package dump

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/F-OS/OpenDream/bytecode"
	"github.com/F-OS/OpenDream/cfg"
	"github.com/F-OS/OpenDream/opcodes"
)

func TestSanitizeReplacesSlashes(t *testing.T) {
	require.Equal(t, "proc_on_click", sanitize("proc/on_click"))
}

func TestWriteCFGWritesBothFiles(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(cwd)

	stream := []bytecode.Item{
		bytecode.Instruction(opcodes.Jump, bytecode.LabelArg("A")),
		bytecode.LabelItem("A"),
		bytecode.Instruction(opcodes.Return),
	}
	blocks, _, err := cfg.Convert(stream, "dump/test")
	require.NoError(t, err)

	require.NoError(t, WriteCFG(blocks, "dump/test"))

	main := filepath.Join(dir, "cfg", "dump_test")
	insts := main + "_insts"

	mainBody, err := os.ReadFile(main)
	require.NoError(t, err)
	require.Contains(t, string(mainBody), "block 0")
	require.Contains(t, string(mainBody), "Jump A")

	instBody, err := os.ReadFile(insts)
	require.NoError(t, err)
	require.Contains(t, string(instBody), "Return")
}

func TestWriteInstructionsRawStream(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(cwd)

	stream := []bytecode.Item{
		bytecode.Instruction(opcodes.PushFloat, bytecode.FloatArg(1)),
		bytecode.Instruction(opcodes.Return),
	}
	require.NoError(t, WriteInstructions(stream, "raw"))

	body, err := os.ReadFile(filepath.Join(dir, "cfg", "raw_insts"))
	require.NoError(t, err)
	require.Contains(t, string(body), "PushFloat")
}
