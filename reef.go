// Package reef is a small WebAssembly 1.0 (MVP) runtime: bounded-cycle,
// resumable execution with snapshot/restore of interpreter state across
// suspensions. This file is the embedder-facing façade (spec §6); the
// subsystems it wires together — loader, validator, store/instance,
// interpreter, snapshot codec — each live in their own internal/ package.
package reef

import (
	"fmt"

	"github.com/reefwasm/reef/internal/interp"
	"github.com/reefwasm/reef/internal/loader"
	"github.com/reefwasm/reef/internal/snapshot"
	"github.com/reefwasm/reef/internal/wasm"
)

// Re-exported data-model types, so callers never need to import
// internal/wasm directly.
type (
	Module       = wasm.Module
	Store        = wasm.Store
	Instance     = wasm.Instance
	Imports      = wasm.Imports
	Extern       = wasm.Extern
	Value        = wasm.Value
	FunctionType = wasm.FunctionType
	GlobalType   = wasm.GlobalType
	MemoryType   = wasm.MemoryType
	TableType    = wasm.TableType
	ValType      = wasm.ValType
	TrapError    = wasm.TrapError
	TrapKind     = wasm.TrapKind
	LinkError    = wasm.LinkError
	FuncContext  = wasm.FuncContext
)

const (
	ValTypeI32       = wasm.ValTypeI32
	ValTypeI64       = wasm.ValTypeI64
	ValTypeF32       = wasm.ValTypeF32
	ValTypeF64       = wasm.ValTypeF64
	ValTypeFuncRef   = wasm.ValTypeFuncRef
	ValTypeExternRef = wasm.ValTypeExternRef
)

// ParseBytes validates and decodes a Wasm binary into a Module (spec §6
// "parse_bytes(bytes) -> Module").
func ParseBytes(bin []byte) (*Module, error) {
	return loader.ParseBytes(bin)
}

// NewStore creates an empty Store bound to reef's interpreter engine (spec
// §6 "Store::default() -> Store").
func NewStore() *Store {
	return wasm.NewStore(interp.NewEngine())
}

// NewImports creates an empty import set (spec §6 "Imports::new()").
func NewImports() *Imports {
	return wasm.NewImports()
}

// NewFuncImport builds a host-function Extern for Imports.Define.
func NewFuncImport(sig *FunctionType, fn wasm.HostFunction) Extern {
	return wasm.NewFuncExtern(sig, fn)
}

// NewGlobalImport builds a host-provided global Extern.
func NewGlobalImport(t GlobalType, initial Value) Extern {
	return wasm.NewGlobalExtern(t, initial)
}

// NewMemoryImport builds a host-provided memory Extern.
func NewMemoryImport(t MemoryType) Extern {
	return wasm.NewMemoryExtern(t)
}

// NewTableImport builds a host-provided table Extern.
func NewTableImport(t TableType) Extern {
	return wasm.NewTableExtern(t)
}

// Instantiate links module against imports into store and runs its start
// function, if any (spec §6 "Instance::instantiate(module, imports) ->
// Instance").
func Instantiate(store *Store, module *Module, imports *Imports) (*Instance, error) {
	return wasm.Instantiate(store, module, imports)
}

// InstantiateWithState re-links module against imports into a fresh store
// without invoking its start function (start has already logically run),
// then overlays the memory and global contents captured in blob and
// rebuilds the suspended ExecHandle from it (spec §6
// "Instance::instantiate_with_state(module, imports, state) -> (Instance,
// Stack)", spec §4.6's instantiate_with_state flow).
func InstantiateWithState(store *Store, module *Module, imports *Imports, blob []byte) (*Instance, *ExecHandle, error) {
	inst, err := wasm.InstantiateWithState(store, module, imports)
	if err != nil {
		return nil, nil, err
	}
	h, err := snapshot.Restore(store, blob)
	if err != nil {
		return nil, nil, err
	}
	return inst, &ExecHandle{store: store, inner: h}, nil
}

// FuncHandle is a resolved, callable export (spec §6
// "Instance::exported_func<P,R>(name) -> FuncHandleTyped").
type FuncHandle struct {
	store *Store
	addr  uint32
	typ   *FunctionType
}

// ExportedFunc resolves name to a callable export of inst.
func ExportedFunc(inst *Instance, name string) (*FuncHandle, error) {
	addr, typ, err := inst.ExportedFuncAddr(name)
	if err != nil {
		return nil, err
	}
	return &FuncHandle{store: inst.Store, addr: addr, typ: typ}, nil
}

// Type returns the function's signature, for callers that validate args
// themselves before Call.
func (f *FuncHandle) Type() *FunctionType { return f.typ }

// Call starts a new, suspendable call to f with args (spec §6
// "FuncHandleTyped::call(args, prior_stack?) -> ExecHandle"). len(args)
// must equal f.Type().Params; there is no prior_stack parameter here since
// reef's equivalent — resuming a suspended call — goes through
// InstantiateWithState instead of starting a fresh one.
func (f *FuncHandle) Call(args []Value) (*ExecHandle, error) {
	if len(args) != len(f.typ.Params) {
		return nil, fmt.Errorf("reef: %s expects %d argument(s), got %d", "call", len(f.typ.Params), len(args))
	}
	h, err := interp.NewExecHandle(f.store, f.addr, args)
	if err != nil {
		return nil, err
	}
	return &ExecHandle{store: f.store, inner: h}, nil
}

// Status is the outcome of one ExecHandle.Run call (spec §6 "Done(R) |
// Incomplete").
type Status = interp.Status

const (
	Incomplete = interp.Incomplete
	Done       = interp.Done
)

// ExecHandle is a single, possibly-suspended call in flight (spec §6
// "ExecHandle"). It wraps internal/interp's implementation so the root
// package can additionally offer Serialize without internal/snapshot
// needing to be imported by every caller.
type ExecHandle struct {
	store *Store
	inner *interp.ExecHandle
}

// Run executes at most maxCycles instruction dispatches (spec §6
// "ExecHandle::run(max_cycles) -> Done(R)|Incomplete").
func (h *ExecHandle) Run(maxCycles int) (Status, error) {
	return h.inner.Run(maxCycles)
}

// Results returns the call's return values once Run has reported Done.
func (h *ExecHandle) Results() []Value {
	return h.inner.Results()
}

// Serialize archives h's live state plus its Store's memory and global
// contents into a versioned binary blob (spec §6 "ExecHandle::serialize()
// -> bytes").
func (h *ExecHandle) Serialize() ([]byte, error) {
	return snapshot.Serialize(h.store, h.inner)
}

// MemoryRef is direct embedder-side access to an instance's linear memory,
// independent of any in-flight call (spec §6 "MemoryRef::load_string(ptr,
// len), load/store of scalar widths, copy, fill, size, grow").
type MemoryRef struct {
	mem *wasm.MemoryInstance
}

// Memory returns a MemoryRef over inst's sole memory, or nil if it declares
// none.
func Memory(inst *Instance) *MemoryRef {
	m := inst.Memory()
	if m == nil {
		return nil
	}
	return &MemoryRef{mem: m}
}

// Size returns the memory's current size in 64 KiB pages.
func (m *MemoryRef) Size() uint32 { return m.mem.PageCount() }

// Grow extends the memory by n pages, zero-initializing the new pages, and
// returns the previous size in pages, or false if doing so would exceed the
// declared maximum (or the hard 4 GiB cap).
func (m *MemoryRef) Grow(n uint32) (uint32, bool) {
	old := m.mem.PageCount()
	if m.mem.Type.Limits.HasMax && uint64(old)+uint64(n) > uint64(m.mem.Type.Limits.Max) {
		return 0, false
	}
	if uint64(old)+uint64(n) > wasm.MemoryMaxPages {
		return 0, false
	}
	m.mem.Data = append(m.mem.Data, make([]byte, uint64(n)*wasm.MemoryPageSize)...)
	return old, true
}

func (m *MemoryRef) bounds(offset uint32, size int) (uint64, error) {
	end := uint64(offset) + uint64(size)
	if end > uint64(len(m.mem.Data)) {
		return 0, wasm.NewTrap(wasm.TrapOutOfBoundsMemoryAccess)
	}
	return uint64(offset), nil
}

// LoadBytes copies length bytes starting at offset.
func (m *MemoryRef) LoadBytes(offset, length uint32) ([]byte, error) {
	addr, err := m.bounds(offset, int(length))
	if err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, m.mem.Data[addr:addr+uint64(length)])
	return out, nil
}

// LoadString reads length bytes at offset as UTF-8 text (spec §6
// "MemoryRef::load_string(ptr, len)").
func (m *MemoryRef) LoadString(offset, length uint32) (string, error) {
	b, err := m.LoadBytes(offset, length)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// StoreBytes writes data at offset.
func (m *MemoryRef) StoreBytes(offset uint32, data []byte) error {
	addr, err := m.bounds(offset, len(data))
	if err != nil {
		return err
	}
	copy(m.mem.Data[addr:addr+uint64(len(data))], data)
	return nil
}

// Copy moves n bytes from src to dst within the same memory, correctly
// handling overlap (spec §6 "copy").
func (m *MemoryRef) Copy(dst, src, n uint32) error {
	if _, err := m.bounds(src, int(n)); err != nil {
		return err
	}
	if _, err := m.bounds(dst, int(n)); err != nil {
		return err
	}
	copy(m.mem.Data[dst:dst+n], m.mem.Data[src:src+n])
	return nil
}

// Fill sets n bytes starting at offset to v (spec §6 "fill").
func (m *MemoryRef) Fill(offset uint32, v byte, n uint32) error {
	addr, err := m.bounds(offset, int(n))
	if err != nil {
		return err
	}
	for i := uint64(0); i < uint64(n); i++ {
		m.mem.Data[addr+i] = v
	}
	return nil
}
