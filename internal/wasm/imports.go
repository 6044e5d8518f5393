package wasm

// ExternKind mirrors ImportKind but lives on Extern so the embedder-facing
// API (spec §4.7 "Imports is a mapping ... to an Extern{Func|Global|Memory|
// Table}") reads independently of the module-internal ImportKind type.
type ExternKind = ImportKind

const (
	ExternFunc   = ImportKindFunc
	ExternTableK = ImportKindTable
	ExternMemK   = ImportKindMemory
	ExternGlobal = ImportKindGlobal
)

// Extern is one thing an embedder can offer to satisfy a Module import:
// either a typed host function, a pre-sized table or memory, a global with
// an initial value, or (via FromExport) an alias into an already-
// instantiated Instance's export, so one module's exports can satisfy
// another module's imports without copying state.
type Extern struct {
	Kind ExternKind

	FuncType *FunctionType
	Func     HostFunction

	TableType *TableType

	MemoryType *MemoryType

	GlobalType  *GlobalType
	GlobalValue Value

	// When aliased is true, addr is an address directly into Store rather
	// than a description of state the linker must allocate.
	aliased bool
	addr    uint32
}

// NewFuncExtern builds a typed-host-function Extern (spec §4.7 "A typed-
// host-function builder turns a callable ... into an Extern::Func carrying
// its signature for the linker to check").
func NewFuncExtern(sig *FunctionType, fn HostFunction) Extern {
	return Extern{Kind: ExternFunc, FuncType: sig, Func: fn}
}

// NewGlobalExtern builds a host-provided global Extern.
func NewGlobalExtern(t GlobalType, initial Value) Extern {
	return Extern{Kind: ExternGlobal, GlobalType: &t, GlobalValue: initial}
}

// NewMemoryExtern builds a host-provided memory Extern, zero-initialized to
// its declared minimum size.
func NewMemoryExtern(t MemoryType) Extern {
	return Extern{Kind: ExternMemK, MemoryType: &t}
}

// NewTableExtern builds a host-provided table Extern, zero-initialized
// (all-null) to its declared minimum size.
func NewTableExtern(t TableType) Extern {
	return Extern{Kind: ExternTableK, TableType: &t}
}

// FuncExternFromExport aliases an exported function of an already-
// instantiated Instance in the same Store, so one module can satisfy
// another's function import without re-allocating a host shim.
func FuncExternFromExport(inst *Instance, name string) (Extern, bool) {
	e, ok := inst.FindExport(name)
	if !ok || e.Kind != ImportKindFunc {
		return Extern{}, false
	}
	addr := inst.FuncAddrs[e.Index]
	return Extern{Kind: ExternFunc, FuncType: inst.Store.Functions[addr].Type, aliased: true, addr: addr}, true
}

// MemoryExternFromExport aliases an exported memory of an already-
// instantiated Instance in the same Store.
func MemoryExternFromExport(inst *Instance, name string) (Extern, bool) {
	e, ok := inst.FindExport(name)
	if !ok || e.Kind != ImportKindMemory {
		return Extern{}, false
	}
	addr := inst.MemoryAddrs[e.Index]
	t := inst.Store.Memories[addr].Type
	return Extern{Kind: ExternMemK, MemoryType: &t, aliased: true, addr: addr}, true
}

// Imports is a mapping from (moduleName, fieldName) to an Extern (spec
// §4.7). Unused entries are tolerated; every Module import must be
// satisfied or Instantiate fails with LinkErrorUnknownImport.
type Imports struct {
	entries map[string]map[string]Extern
}

// NewImports creates an empty import set.
func NewImports() *Imports {
	return &Imports{entries: map[string]map[string]Extern{}}
}

// Define registers an Extern under the given (module, field) coordinate,
// overwriting any prior definition at the same coordinate.
func (im *Imports) Define(module, field string, ext Extern) {
	m, ok := im.entries[module]
	if !ok {
		m = map[string]Extern{}
		im.entries[module] = m
	}
	m[field] = ext
}

// lookup returns the Extern registered for (module, field), if any.
func (im *Imports) lookup(module, field string) (Extern, bool) {
	if im == nil {
		return Extern{}, false
	}
	m, ok := im.entries[module]
	if !ok {
		return Extern{}, false
	}
	ext, ok := m[field]
	return ext, ok
}
