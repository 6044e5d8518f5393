package snapshot

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reefwasm/reef/internal/interp"
	"github.com/reefwasm/reef/internal/leb128"
	"github.com/reefwasm/reef/internal/loader"
	"github.com/reefwasm/reef/internal/wasm"
)

func header() []byte { return []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00} }

func section(id byte, payload []byte) []byte {
	out := []byte{id}
	out = append(out, leb128.EncodeUint32(uint32(len(payload)))...)
	return append(out, payload...)
}

func vec(n int) []byte { return leb128.EncodeUint32(uint32(n)) }

func i32const(v int32) []byte {
	return append([]byte{0x41}, leb128.EncodeInt32(v)...)
}

// buildCountdownModule builds a module exporting "run": (i32)->i32 that
// loops decrementing a local until it reaches zero, so tests can suspend it
// mid-flight at a deterministic cycle count.
func buildCountdownModule() []byte {
	bin := header()

	typeSec := vec(1)
	typeSec = append(typeSec, 0x60)
	typeSec = append(typeSec, vec(1)...)
	typeSec = append(typeSec, 0x7f)
	typeSec = append(typeSec, vec(1)...)
	typeSec = append(typeSec, 0x7f)
	bin = append(bin, section(1, typeSec)...)

	funcSec := append(vec(1), 0x00)
	bin = append(bin, section(3, funcSec)...)

	exportSec := vec(1)
	exportSec = append(exportSec, byte(len("run")))
	exportSec = append(exportSec, []byte("run")...)
	exportSec = append(exportSec, 0x00, 0x00)
	bin = append(bin, section(7, exportSec)...)

	var body []byte
	body = append(body, 0x00) // no declared locals beyond the param

	body = append(body, 0x02, 0x40) // block
	body = append(body, 0x03, 0x40) // loop
	body = append(body, 0x20, 0x00) // local.get 0
	body = append(body, 0x45)       // i32.eqz
	body = append(body, 0x0D, 0x01) // br_if 1 (exit block)
	body = append(body, 0x20, 0x00) // local.get 0
	body = append(body, i32const(1)...)
	body = append(body, 0x6B)       // i32.sub
	body = append(body, 0x21, 0x00) // local.set 0
	body = append(body, 0x0C, 0x00) // br 0 (loop again)
	body = append(body, 0x0B)       // end loop
	body = append(body, 0x0B)       // end block
	body = append(body, 0x20, 0x00) // local.get 0
	body = append(body, 0x0B)       // end func

	codeSec := vec(1)
	codeSec = append(codeSec, append(vec(len(body)), body...)...)
	bin = append(bin, section(10, codeSec)...)

	return bin
}

func instantiate(t *testing.T, bin []byte) (*wasm.Store, uint32) {
	t.Helper()
	module, err := loader.ParseBytes(bin)
	require.NoError(t, err)
	store := wasm.NewStore(interp.NewEngine())
	inst, err := wasm.Instantiate(store, module, wasm.NewImports())
	require.NoError(t, err)
	addr, _, err := inst.ExportedFuncAddr("run")
	require.NoError(t, err)
	return store, addr
}

// Serializing mid-run and restoring against a freshly instantiated store
// with the same module must resume to the same final result as an
// uninterrupted run.
func TestSerializeRestoreResumesToSameResult(t *testing.T) {
	bin := buildCountdownModule()

	store, addr := instantiate(t, bin)
	h, err := interp.NewExecHandle(store, addr, []wasm.Value{1000})
	require.NoError(t, err)
	status, err := h.Run(50)
	require.NoError(t, err)
	require.Equal(t, interp.Incomplete, status)

	blob, err := Serialize(store, h)
	require.NoError(t, err)
	require.NotEmpty(t, blob)

	store2, _ := instantiate(t, bin)
	restored, err := Restore(store2, blob)
	require.NoError(t, err)

	for status != interp.Done {
		status, err = restored.Run(50)
		require.NoError(t, err)
	}
	require.Equal(t, []wasm.Value{0}, restored.Results())
}

// A restore against a store whose function count doesn't match the blob's
// metadata fails rather than silently misinterpreting frames.
func TestRestoreRejectsFunctionCountMismatch(t *testing.T) {
	bin := buildCountdownModule()
	store, addr := instantiate(t, bin)
	h, err := interp.NewExecHandle(store, addr, []wasm.Value{1000})
	require.NoError(t, err)
	_, err = h.Run(10)
	require.NoError(t, err)

	blob, err := Serialize(store, h)
	require.NoError(t, err)

	// An empty store has zero functions, memories and globals: metadata
	// checking must reject it before touching any frame data.
	emptyStore := wasm.NewStore(interp.NewEngine())
	_, err = Restore(emptyStore, blob)
	require.Error(t, err)
}

// A truncated blob is rejected, not silently zero-filled.
func TestRestoreRejectsTruncatedBlob(t *testing.T) {
	bin := buildCountdownModule()
	store, addr := instantiate(t, bin)
	h, err := interp.NewExecHandle(store, addr, []wasm.Value{1000})
	require.NoError(t, err)
	_, err = h.Run(10)
	require.NoError(t, err)

	blob, err := Serialize(store, h)
	require.NoError(t, err)

	store2, _ := instantiate(t, bin)
	_, err = Restore(store2, blob[:len(blob)-4])
	require.Error(t, err)
}

// Restoring a blob against a freshly instantiated store of the same module
// succeeds and yields a handle. The countdown module declares no memory or
// globals, so no memory or global contents are checked here.
func TestRestoreAgainstFreshStoreReturnsHandle(t *testing.T) {
	bin := buildCountdownModule()
	store, addr := instantiate(t, bin)
	h, err := interp.NewExecHandle(store, addr, []wasm.Value{1000})
	require.NoError(t, err)
	_, err = h.Run(10)
	require.NoError(t, err)

	blob, err := Serialize(store, h)
	require.NoError(t, err)

	store2, _ := instantiate(t, bin)
	restored, err := Restore(store2, blob)
	require.NoError(t, err)
	require.NotNil(t, restored)
}
