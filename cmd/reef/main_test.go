package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reefwasm/reef/internal/leb128"
)

func header() []byte { return []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00} }

func section(id byte, payload []byte) []byte {
	out := []byte{id}
	out = append(out, leb128.EncodeUint32(uint32(len(payload)))...)
	return append(out, payload...)
}

func vec(n int) []byte { return leb128.EncodeUint32(uint32(n)) }

// buildAddModule mirrors the root package's own test fixture: exports
// "add": (i32,i32)->i32 computing local.get 0 + local.get 1.
func buildAddModule() []byte {
	bin := header()

	typeSec := vec(1)
	typeSec = append(typeSec, 0x60)
	typeSec = append(typeSec, vec(2)...)
	typeSec = append(typeSec, 0x7f, 0x7f)
	typeSec = append(typeSec, vec(1)...)
	typeSec = append(typeSec, 0x7f)
	bin = append(bin, section(1, typeSec)...)

	funcSec := append(vec(1), 0x00)
	bin = append(bin, section(3, funcSec)...)

	exportSec := vec(1)
	exportSec = append(exportSec, byte(len("add")))
	exportSec = append(exportSec, []byte("add")...)
	exportSec = append(exportSec, 0x00, 0x00)
	bin = append(bin, section(7, exportSec)...)

	body := []byte{0x00, 0x20, 0x00, 0x20, 0x01, 0x6A, 0x0B}
	codeSec := vec(1)
	codeSec = append(codeSec, append(vec(len(body)), body...)...)
	bin = append(bin, section(10, codeSec)...)

	return bin
}

func TestDoMain_CallsExportedFuncAndPrintsResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "add.wasm")
	require.NoError(t, os.WriteFile(path, buildAddModule(), 0o644))

	var stdOut, stdErr bytes.Buffer
	code := doMain(&stdOut, &stdErr, []string{path, "add", "19", "23"})
	require.Equal(t, 0, code)
	require.Empty(t, stdErr.String())
	require.Equal(t, "42", strings.TrimSpace(stdOut.String()))
}

func TestDoMain_MissingArgsPrintsUsage(t *testing.T) {
	var stdOut, stdErr bytes.Buffer
	code := doMain(&stdOut, &stdErr, []string{"onlyone"})
	require.Equal(t, 1, code)
	require.Contains(t, stdErr.String(), "usage")
}

func TestDoMain_UnknownExportReportsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "add.wasm")
	require.NoError(t, os.WriteFile(path, buildAddModule(), 0o644))

	var stdOut, stdErr bytes.Buffer
	code := doMain(&stdOut, &stdErr, []string{path, "nope"})
	require.Equal(t, 1, code)
	require.NotEmpty(t, stdErr.String())
}
