package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/F-OS/OpenDream/bytecode"
	"github.com/F-OS/OpenDream/opcodes"
)

func TestParseListingBasic(t *testing.T) {
	src := `
# a comment
Local x:num@0
PushFloat 1.5
Label top
JumpIfFalse top
Return
`
	items, err := parseListing(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, items, 5)

	require.Equal(t, bytecode.KindLocalVariable, items[0].Kind)
	require.Equal(t, "x", items[0].VarName)
	require.Equal(t, "num", items[0].VarType)
	require.Equal(t, 0, items[0].VarSlot)

	require.True(t, items[1].IsInstruction(opcodes.PushFloat))
	require.Equal(t, 1.5, items[1].Args[0].Float)

	require.Equal(t, bytecode.KindLabel, items[2].Kind)
	require.Equal(t, "top", items[2].Label)

	require.True(t, items[3].IsInstruction(opcodes.JumpIfFalse))
	target, ok := items[3].TargetLabel()
	require.True(t, ok)
	require.Equal(t, "top", target)
}

func TestParseListingUnknownOpcode(t *testing.T) {
	_, err := parseListing(strings.NewReader("Frobnicate 1"))
	require.Error(t, err)
}

func TestParseListingWrongArgCount(t *testing.T) {
	_, err := parseListing(strings.NewReader("PushFloat 1, 2"))
	require.Error(t, err)
}

func TestParseListingSwitchOnFloatArgOrder(t *testing.T) {
	items, err := parseListing(strings.NewReader("SwitchOnFloat 1.5, case1"))
	require.NoError(t, err)
	require.Len(t, items, 1)
	target, ok := items[0].TargetLabel()
	require.True(t, ok)
	require.Equal(t, "case1", target)
}
