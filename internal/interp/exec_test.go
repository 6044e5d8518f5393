package interp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reefwasm/reef/internal/loader"
	"github.com/reefwasm/reef/internal/wasm"
)

// The helpers below hand-assemble tiny Wasm binaries byte-by-byte, the way
// internal/loader's own decoder_test.go does, to exercise the interpreter
// directly without going through the root façade.

func header() []byte { return []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00} }

func section(id byte, payload []byte) []byte {
	out := []byte{id}
	out = append(out, encodeLEB(uint32(len(payload)))...)
	return append(out, payload...)
}

func vec(n int) []byte { return encodeLEB(uint32(n)) }

func encodeLEB(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			break
		}
	}
	return out
}

func buildFunc(sigParams, sigResults []byte, body []byte) ([]byte, string) {
	bin := header()

	typeSec := vec(1)
	typeSec = append(typeSec, 0x60)
	typeSec = append(typeSec, vec(len(sigParams))...)
	typeSec = append(typeSec, sigParams...)
	typeSec = append(typeSec, vec(len(sigResults))...)
	typeSec = append(typeSec, sigResults...)
	bin = append(bin, section(1, typeSec)...)

	funcSec := append(vec(1), 0x00)
	bin = append(bin, section(3, funcSec)...)

	const name = "f"
	exportSec := vec(1)
	exportSec = append(exportSec, byte(len(name)))
	exportSec = append(exportSec, []byte(name)...)
	exportSec = append(exportSec, 0x00, 0x00)
	bin = append(bin, section(7, exportSec)...)

	codeSec := vec(1)
	codeSec = append(codeSec, append(vec(len(body)), body...)...)
	bin = append(bin, section(10, codeSec)...)

	return bin, name
}

func instantiate(t *testing.T, bin []byte) (*wasm.Store, *wasm.Instance, uint32) {
	t.Helper()
	module, err := loader.ParseBytes(bin)
	require.NoError(t, err)
	store := wasm.NewStore(NewEngine())
	inst, err := wasm.Instantiate(store, module, wasm.NewImports())
	require.NoError(t, err)
	addr, _, err := inst.ExportedFuncAddr("f")
	require.NoError(t, err)
	return store, inst, addr
}

// A call that pushes no values beyond its declared result count must leave
// the value stack at exactly that height once it's Done: nothing from a
// callee's locals or scratch work should leak onto the caller's view.
func TestValueStackConservation(t *testing.T) {
	body := []byte{0x00} // no locals
	body = append(body, 0x20, 0x00) // local.get 0
	body = append(body, 0x20, 0x01) // local.get 1
	body = append(body, 0x6A)       // i32.add
	body = append(body, 0x0B)       // end
	bin, _ := buildFunc([]byte{0x7f, 0x7f}, []byte{0x7f}, body)

	store, _, addr := instantiate(t, bin)
	h, err := NewExecHandle(store, addr, []wasm.Value{10, 32})
	require.NoError(t, err)

	status, err := h.Run(16)
	require.NoError(t, err)
	require.Equal(t, Done, status)
	require.Equal(t, []wasm.Value{42}, h.Results())
	require.Len(t, h.stack, 1, "value stack must hold exactly the one declared result once the call is done")
}

// After a br out of a block with result arity r, only the top r cells at
// branch time survive; everything else pushed earlier inside the block is
// discarded.
func TestLabelArgumentCorrectness(t *testing.T) {
	body := []byte{0x00}
	body = append(body, 0x02, 0x7f) // block (i32)
	body = append(body, 0x41, 1)    // i32.const 1
	body = append(body, 0x41, 2)    // i32.const 2
	body = append(body, 0x41, 3)    // i32.const 3
	body = append(body, 0x0C, 0x00) // br 0
	body = append(body, 0x0B)       // end block
	body = append(body, 0x0B)       // end func
	bin, _ := buildFunc(nil, []byte{0x7f}, body)

	store, _, addr := instantiate(t, bin)
	h, err := NewExecHandle(store, addr, nil)
	require.NoError(t, err)

	status, err := h.Run(32)
	require.NoError(t, err)
	require.Equal(t, Done, status)
	require.Equal(t, []wasm.Value{3}, h.Results())
}

// i32.div_s(INT_MIN, -1) traps IntegerOverflow, not IntegerDivByZero or a
// silently wrapped result.
func TestDivSIntegerOverflowTrap(t *testing.T) {
	body := []byte{0x00}
	body = append(body, 0x20, 0x00) // local.get 0
	body = append(body, 0x20, 0x01) // local.get 1
	body = append(body, 0x6D)       // i32.div_s
	body = append(body, 0x0B)
	bin, _ := buildFunc([]byte{0x7f, 0x7f}, []byte{0x7f}, body)

	store, _, addr := instantiate(t, bin)
	h, err := NewExecHandle(store, addr, []wasm.Value{wasm.EncodeI32(-2147483648), wasm.EncodeI32(-1)})
	require.NoError(t, err)

	_, err = h.Run(16)
	require.Error(t, err)
	var trap *wasm.TrapError
	require.ErrorAs(t, err, &trap)
	require.Equal(t, wasm.TrapIntegerOverflow, trap.Kind)
}

// i32.div_s(x, 0) traps IntegerDivByZero for any dividend.
func TestDivSByZeroTrap(t *testing.T) {
	body := []byte{0x00}
	body = append(body, 0x20, 0x00)
	body = append(body, 0x20, 0x01)
	body = append(body, 0x6D)
	body = append(body, 0x0B)
	bin, _ := buildFunc([]byte{0x7f, 0x7f}, []byte{0x7f}, body)

	store, _, addr := instantiate(t, bin)
	h, err := NewExecHandle(store, addr, []wasm.Value{wasm.EncodeI32(10), wasm.EncodeI32(0)})
	require.NoError(t, err)

	_, err = h.Run(16)
	require.Error(t, err)
	var trap *wasm.TrapError
	require.ErrorAs(t, err, &trap)
	require.Equal(t, wasm.TrapIntegerDivByZero, trap.Kind)
}

// A trap leaves the ExecHandle permanently Done; it never resumes into more
// cycles after panicking.
func TestRunIsDoneAfterTrap(t *testing.T) {
	bin, _ := buildFunc(nil, nil, []byte{0x00, 0x00, 0x0B}) // unreachable; end
	store, _, addr := instantiate(t, bin)
	h, err := NewExecHandle(store, addr, nil)
	require.NoError(t, err)

	status, err := h.Run(16)
	require.Equal(t, Done, status)
	require.Error(t, err)

	status2, err2 := h.Run(16)
	require.Equal(t, Done, status2)
	require.Equal(t, err, err2)
}

// A budget of maxCycles=0 dispatches nothing and reports Incomplete for any
// non-trivial call still in progress.
func TestRunZeroCyclesIsIncomplete(t *testing.T) {
	body := []byte{0x00}
	body = append(body, 0x20, 0x00)
	body = append(body, 0x20, 0x01)
	body = append(body, 0x6A)
	body = append(body, 0x0B)
	bin, _ := buildFunc([]byte{0x7f, 0x7f}, []byte{0x7f}, body)

	store, _, addr := instantiate(t, bin)
	h, err := NewExecHandle(store, addr, []wasm.Value{1, 2})
	require.NoError(t, err)

	status, err := h.Run(0)
	require.NoError(t, err)
	require.Equal(t, Incomplete, status)
}
