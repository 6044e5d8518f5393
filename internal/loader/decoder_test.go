package loader

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reefwasm/reef/internal/leb128"
	"github.com/reefwasm/reef/internal/wasm"
)

func header() []byte {
	return []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
}

func section(id byte, payload []byte) []byte {
	out := []byte{id}
	out = append(out, leb128.EncodeUint32(uint32(len(payload)))...)
	return append(out, payload...)
}

func vec(n int) []byte { return leb128.EncodeUint32(uint32(n)) }

// buildAddTwo builds a minimal module exporting a function "add" of type
// (i32, i32) -> i32 computing local.get 0 + local.get 1.
func buildAddTwo(t *testing.T) []byte {
	t.Helper()
	bin := header()

	typeSec := vec(1)
	typeSec = append(typeSec, 0x60)
	typeSec = append(typeSec, vec(2)...)
	typeSec = append(typeSec, byte(wasm.ValTypeI32), byte(wasm.ValTypeI32))
	typeSec = append(typeSec, vec(1)...)
	typeSec = append(typeSec, byte(wasm.ValTypeI32))
	bin = append(bin, section(1, typeSec)...)

	funcSec := vec(1)
	funcSec = append(funcSec, 0x00)
	bin = append(bin, section(3, funcSec)...)

	exportSec := vec(1)
	exportSec = append(exportSec, byte(len("add")))
	exportSec = append(exportSec, []byte("add")...)
	exportSec = append(exportSec, 0x00, 0x00)
	bin = append(bin, section(7, exportSec)...)

	body := []byte{0x00} // no local declarations
	body = append(body, 0x20, 0x00) // local.get 0
	body = append(body, 0x20, 0x01) // local.get 1
	body = append(body, 0x6A)       // i32.add
	body = append(body, 0x0B)       // end
	codeEntry := vec(len(body))
	codeEntry = append(codeEntry, body...)
	codeSec := vec(1)
	codeSec = append(codeSec, codeEntry...)
	bin = append(bin, section(10, codeSec)...)

	return bin
}

func TestDecode_AddTwo(t *testing.T) {
	bin := buildAddTwo(t)
	m, err := decode(bin)
	require.NoError(t, err)
	require.Len(t, m.Types, 1)
	require.Len(t, m.Functions, 1)
	require.Equal(t, "add", m.Exports[0].Name)

	instrs := m.Functions[0].Instructions
	require.Equal(t, wasm.OpLocalGet, instrs[0].Op)
	require.Equal(t, uint32(0), instrs[0].Index)
	require.Equal(t, wasm.OpLocalGet, instrs[1].Op)
	require.Equal(t, uint32(1), instrs[1].Index)
	require.Equal(t, wasm.OpI32Add, instrs[2].Op)
	require.Equal(t, wasm.OpEnd, instrs[3].Op)
}

func TestDecode_BadMagic(t *testing.T) {
	bin := []byte{1, 2, 3, 4, 1, 0, 0, 0}
	_, err := decode(bin)
	require.Error(t, err)
	var pe *wasm.ParseError
	require.ErrorAs(t, err, &pe)
}

func TestDecode_DuplicateSection(t *testing.T) {
	bin := header()
	typeSec := vec(0)
	bin = append(bin, section(1, typeSec)...)
	bin = append(bin, section(1, typeSec)...)
	_, err := decode(bin)
	require.Error(t, err)
	var de *wasm.DuplicateSectionError
	require.ErrorAs(t, err, &de)
}

func TestDecode_BlockLowering(t *testing.T) {
	bin := header()

	typeSec := vec(1)
	typeSec = append(typeSec, 0x60, 0x00, 0x00)
	bin = append(bin, section(1, typeSec)...)

	funcSec := vec(1)
	funcSec = append(funcSec, 0x00)
	bin = append(bin, section(3, funcSec)...)

	body := []byte{0x00}
	body = append(body, 0x02, 0x40) // block (empty)
	body = append(body, 0x0C, 0x00) // br 0
	body = append(body, 0x0B)       // end (block)
	body = append(body, 0x0B)       // end (function)
	codeEntry := vec(len(body))
	codeEntry = append(codeEntry, body...)
	codeSec := vec(1)
	codeSec = append(codeSec, codeEntry...)
	bin = append(bin, section(10, codeSec)...)

	m, err := decode(bin)
	require.NoError(t, err)
	instrs := m.Functions[0].Instructions
	require.Equal(t, wasm.OpBlock, instrs[0].Op)
	require.EqualValues(t, 2, instrs[0].EndTarget)
	require.Equal(t, wasm.OpEnd, instrs[3].Op)
}
