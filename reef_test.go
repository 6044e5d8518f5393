package reef_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reefwasm/reef"
	"github.com/reefwasm/reef/internal/wasm"
)

// Scenario 1 (spec.md §8): add.wasm exports add(i32,i32)->i32; calling with
// (1,2) with max_cycles=16 returns Done(3).
func TestEndToEnd_Add(t *testing.T) {
	module, err := reef.ParseBytes(buildAddModule())
	require.NoError(t, err)

	store := reef.NewStore()
	inst, err := reef.Instantiate(store, module, reef.NewImports())
	require.NoError(t, err)

	fn, err := reef.ExportedFunc(inst, "add")
	require.NoError(t, err)

	handle, err := fn.Call([]reef.Value{1, 2})
	require.NoError(t, err)

	status, err := handle.Run(16)
	require.NoError(t, err)
	require.Equal(t, reef.Done, status)
	require.Equal(t, []reef.Value{3}, handle.Results())
}

// Scenario 2 (spec.md §8): a module whose start function writes "Hello
// World!" at offset 0 and calls host import reef.log(ptr, len); the host
// captures the string.
func TestEndToEnd_StartFunctionLogsHello(t *testing.T) {
	module, err := reef.ParseBytes(buildHelloModule())
	require.NoError(t, err)

	var captured string
	store := reef.NewStore()
	imports := reef.NewImports()
	sig := &reef.FunctionType{Params: []reef.ValType{reef.ValTypeI32, reef.ValTypeI32}}
	imports.Define("reef", "log", reef.NewFuncImport(sig, func(ctx *reef.FuncContext, args []reef.Value) ([]reef.Value, error) {
		ptr, length := uint32(args[0]), uint32(args[1])
		s, err := ctx.LoadString(ptr, length)
		if err != nil {
			return nil, err
		}
		captured = s
		return nil, nil
	}))

	_, err = reef.Instantiate(store, module, imports)
	require.NoError(t, err)
	require.Equal(t, "Hello World!", captured)
}

// Scenario 3 (spec.md §8): a fibonacci module computing fib(30) with
// max_cycles=200; the first run returns Incomplete, repeated run calls
// eventually return Done(832040).
func TestEndToEnd_FibResumable(t *testing.T) {
	module, err := reef.ParseBytes(buildFibModule())
	require.NoError(t, err)

	store := reef.NewStore()
	inst, err := reef.Instantiate(store, module, reef.NewImports())
	require.NoError(t, err)

	fn, err := reef.ExportedFunc(inst, "fib")
	require.NoError(t, err)

	handle, err := fn.Call([]reef.Value{30})
	require.NoError(t, err)

	status, err := handle.Run(200)
	require.NoError(t, err)
	require.Equal(t, reef.Incomplete, status, "fib(30) should not finish within the first 200-cycle budget")

	var totalRuns int
	for status != reef.Done {
		totalRuns++
		status, err = handle.Run(200)
		require.NoError(t, err)
		require.Less(t, totalRuns, 1000, "fib(30) should finish well within 1000 chunks of 200 cycles")
	}
	require.Equal(t, []reef.Value{832040}, handle.Results())
}

// Scenario 4 (spec.md §8): memory.grow 100 when max=64 returns Done(-1) and
// memory.size still returns 1.
func TestEndToEnd_MemoryGrowBeyondMax(t *testing.T) {
	module, err := reef.ParseBytes(buildMemoryGrowModule())
	require.NoError(t, err)

	store := reef.NewStore()
	inst, err := reef.Instantiate(store, module, reef.NewImports())
	require.NoError(t, err)

	growFn, err := reef.ExportedFunc(inst, "grow100")
	require.NoError(t, err)
	handle, err := growFn.Call(nil)
	require.NoError(t, err)
	status, err := handle.Run(16)
	require.NoError(t, err)
	require.Equal(t, reef.Done, status)
	require.Equal(t, []reef.Value{reef.Value(uint32(0xFFFFFFFF))}, handle.Results())

	sizeFn, err := reef.ExportedFunc(inst, "size")
	require.NoError(t, err)
	sizeHandle, err := sizeFn.Call(nil)
	require.NoError(t, err)
	status, err = sizeHandle.Run(16)
	require.NoError(t, err)
	require.Equal(t, reef.Done, status)
	require.Equal(t, []reef.Value{1}, sizeHandle.Results())

	mem := reef.Memory(inst)
	require.NotNil(t, mem)
	require.Equal(t, uint32(1), mem.Size())
}

// Scenario 5 (spec.md §8): a module calling unreachable traps; a subsequent
// fresh FuncHandle::call on the same Instance succeeds.
func TestEndToEnd_TrapThenFreshCallSucceeds(t *testing.T) {
	module, err := reef.ParseBytes(buildUnreachableModule())
	require.NoError(t, err)

	store := reef.NewStore()
	inst, err := reef.Instantiate(store, module, reef.NewImports())
	require.NoError(t, err)

	fn, err := reef.ExportedFunc(inst, "boom")
	require.NoError(t, err)

	handle, err := fn.Call(nil)
	require.NoError(t, err)
	status, err := handle.Run(16)
	require.Equal(t, reef.Done, status)
	require.Error(t, err)
	var trap *reef.TrapError
	require.ErrorAs(t, err, &trap)
	require.Equal(t, wasmTrapUnreachable(trap), true)

	// A fresh call on the same Instance must still work.
	handle2, err := fn.Call(nil)
	require.NoError(t, err)
	status2, err := handle2.Run(16)
	require.NoError(t, err)
	require.Equal(t, reef.Done, status2)
}

func wasmTrapUnreachable(t *reef.TrapError) bool {
	return t.Kind.String() == "unreachable"
}

// Scenario 6 (spec.md §8): run the fibonacci scenario for exactly 500
// cycles, serialize, drop the handle, reparse the module, instantiate with
// state, resume, and expect Done(832040).
func TestEndToEnd_SnapshotRestoreFib(t *testing.T) {
	bin := buildFibModule()

	module, err := reef.ParseBytes(bin)
	require.NoError(t, err)
	store := reef.NewStore()
	inst, err := reef.Instantiate(store, module, reef.NewImports())
	require.NoError(t, err)
	fn, err := reef.ExportedFunc(inst, "fib")
	require.NoError(t, err)

	handle, err := fn.Call([]reef.Value{30})
	require.NoError(t, err)
	status, err := handle.Run(500)
	require.NoError(t, err)
	require.Equal(t, reef.Incomplete, status)

	blob, err := handle.Serialize()
	require.NoError(t, err)
	require.NotEmpty(t, blob)

	// Drop the handle (simulated by simply not referencing it again), reparse
	// the module fresh, and instantiate against the preserved state.
	module2, err := reef.ParseBytes(bin)
	require.NoError(t, err)
	store2 := reef.NewStore()
	_, resumed, err := reef.InstantiateWithState(store2, module2, reef.NewImports(), blob)
	require.NoError(t, err)

	for status != reef.Done {
		status, err = resumed.Run(200)
		require.NoError(t, err)
	}
	require.Equal(t, []reef.Value{832040}, resumed.Results())
}

// Label-argument correctness (spec.md §8): after br to a block with result
// arity r, the top r cells equal those on top at br time, in order, and
// nothing below them survives.
func TestEndToEnd_LabelArgumentCorrectness(t *testing.T) {
	module, err := reef.ParseBytes(buildLabelArgModule())
	require.NoError(t, err)

	store := reef.NewStore()
	inst, err := reef.Instantiate(store, module, reef.NewImports())
	require.NoError(t, err)

	fn, err := reef.ExportedFunc(inst, "labelarg")
	require.NoError(t, err)
	handle, err := fn.Call(nil)
	require.NoError(t, err)
	status, err := handle.Run(32)
	require.NoError(t, err)
	require.Equal(t, reef.Done, status)
	require.Equal(t, []reef.Value{3}, handle.Results())
}

// Import typing (spec.md §8): linking a function import whose signature
// differs in any value type returns IncompatibleImportType.
func TestEndToEnd_ImportSignatureMismatch(t *testing.T) {
	module, err := reef.ParseBytes(buildHelloModule())
	require.NoError(t, err)

	store := reef.NewStore()
	imports := reef.NewImports()
	// Declare reef.log with an incompatible signature: (i64,i32)->() instead
	// of the module's declared (i32,i32)->().
	badSig := &reef.FunctionType{Params: []reef.ValType{reef.ValTypeI64, reef.ValTypeI32}}
	imports.Define("reef", "log", reef.NewFuncImport(badSig, func(*reef.FuncContext, []reef.Value) ([]reef.Value, error) {
		return nil, nil
	}))

	_, err = reef.Instantiate(store, module, imports)
	require.Error(t, err)
	var linkErr *reef.LinkError
	require.ErrorAs(t, err, &linkErr)
	require.Equal(t, wasm.LinkErrorIncompatibleImportType, linkErr.Kind)
}

// UnknownImport (spec.md §7): instantiating without satisfying a declared
// import fails with LinkErrorUnknownImport.
func TestEndToEnd_UnknownImport(t *testing.T) {
	module, err := reef.ParseBytes(buildHelloModule())
	require.NoError(t, err)

	store := reef.NewStore()
	_, err = reef.Instantiate(store, module, reef.NewImports())
	require.Error(t, err)
	var linkErr *reef.LinkError
	require.ErrorAs(t, err, &linkErr)
	require.Equal(t, wasm.LinkErrorUnknownImport, linkErr.Kind)
}

// Division traps (spec.md §8): i32.div_s(INT_MIN, -1) traps IntegerOverflow;
// any x/0 traps IntegerDivByZero.
func TestEndToEnd_DivisionTraps(t *testing.T) {
	store := reef.NewStore()
	module, err := reef.ParseBytes(buildDivModule())
	require.NoError(t, err)
	inst, err := reef.Instantiate(store, module, reef.NewImports())
	require.NoError(t, err)

	divS, err := reef.ExportedFunc(inst, "div_s")
	require.NoError(t, err)

	h, err := divS.Call([]reef.Value{reef.Value(uint32(1 << 31)), reef.Value(uint32(0xFFFFFFFF))})
	require.NoError(t, err)
	_, err = h.Run(16)
	require.Error(t, err)
	var trap *reef.TrapError
	require.ErrorAs(t, err, &trap)
	require.Equal(t, "integer overflow", trap.Kind.String())

	h2, err := divS.Call([]reef.Value{10, 0})
	require.NoError(t, err)
	_, err = h2.Run(16)
	require.Error(t, err)
	require.ErrorAs(t, err, &trap)
	require.Equal(t, "integer divide by zero", trap.Kind.String())
}
