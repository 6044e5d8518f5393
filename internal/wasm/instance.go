package wasm

import "fmt"

// Instance is a Module linked with imports and allocated into a Store (spec
// §3 "Instance"). The address arrays translate module-local indices to
// Store-global addresses, so imports appear transparently before
// module-defined entries without the interpreter needing to know the
// difference at run time.
type Instance struct {
	Module *Module
	Store  *Store

	FuncAddrs   []uint32
	TableAddrs  []uint32
	MemoryAddrs []uint32
	GlobalAddrs []uint32
	ElemAddrs   []uint32
	DataAddrs   []uint32
}

// FindExport does a linear scan of the module's export section (spec §4.3:
// "Export resolution walks module.exports linearly; the name lookup is
// expected to be rare").
func (i *Instance) FindExport(name string) (Export, bool) {
	for _, e := range i.Module.Exports {
		if e.Name == name {
			return e, true
		}
	}
	return Export{}, false
}

// ExportedFuncAddr resolves an exported function's Store address by name.
func (i *Instance) ExportedFuncAddr(name string) (uint32, *FunctionType, error) {
	e, ok := i.FindExport(name)
	if !ok || e.Kind != ImportKindFunc {
		return 0, nil, fmt.Errorf("export not found or not a function: %s", name)
	}
	addr := i.FuncAddrs[e.Index]
	return addr, i.Store.Functions[addr].Type, nil
}

// ExportedMemoryAddr resolves an exported memory's Store address by name.
func (i *Instance) ExportedMemoryAddr(name string) (uint32, error) {
	e, ok := i.FindExport(name)
	if !ok || e.Kind != ImportKindMemory {
		return 0, fmt.Errorf("export not found or not a memory: %s", name)
	}
	return i.MemoryAddrs[e.Index], nil
}

// Memory returns the instance's sole exported-or-not memory by module-local
// index, or nil if none is declared. Wasm 1.0 permits at most one memory.
func (i *Instance) Memory() *MemoryInstance {
	if len(i.MemoryAddrs) == 0 {
		return nil
	}
	return &i.Store.Memories[i.MemoryAddrs[0]]
}

// StartFuncAddr resolves the module's start function to a Store address,
// applying the `_start` export fallback recovered from original_source
// (SPEC_FULL §10.1): if no start section entry is declared, an exported
// function literally named "_start" is used instead.
func (i *Instance) StartFuncAddr() (uint32, bool) {
	if i.Module.HasStartFunc {
		return i.FuncAddrs[i.Module.StartFuncIndex], true
	}
	if e, ok := i.FindExport("_start"); ok && e.Kind == ImportKindFunc {
		return i.FuncAddrs[e.Index], true
	}
	return 0, false
}
