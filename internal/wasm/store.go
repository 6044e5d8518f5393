package wasm

// Store owns the global allocation arenas for every instantiated module's
// function, table, memory, global, element and data instances (spec §3
// "Store"). Arenas are append-only during instantiation (invariant #2):
// element/data drops null out contents in place but never shrink the arena.
//
// Grounded on inkeliz/wazero's internal/wasm/store.go arena-of-instances
// design, generalized from wazero's pointer-based ModuleInstance to reef's
// address-based Instance (spec §3 explicitly calls for address arrays, to
// keep CallFrame cheap to clone across a snapshot).
type Store struct {
	Functions []FunctionInstance
	Tables    []TableInstance
	Memories  []MemoryInstance
	Globals   []GlobalInstance
	Elements  []ElementInstance
	Datas     []DataInstance

	// Engine executes Wasm function bodies. It is set once, at store
	// construction, and is the only way internal/wasm reaches into the
	// interpreter — keeping this package import-cycle-free with
	// internal/interp, which implements Engine and imports internal/wasm
	// for its types.
	Engine Engine

	// MaxCallDepth bounds the call stack (spec §9 Open Questions: "a
	// concrete call-depth cap ... should be configured at Store
	// creation"). Zero means DefaultMaxCallDepth.
	MaxCallDepth int

	typeIDs    map[string]uint32
	nextTypeID uint32
}

// DefaultMaxCallDepth is the call-stack depth cap used when a Store is
// constructed without an explicit override.
const DefaultMaxCallDepth = 1024

// FunctionKind distinguishes a Wasm-defined function body from a host
// callable (spec §3 FunctionInstance union).
type FunctionKind byte

const (
	FunctionKindWasm FunctionKind = iota
	FunctionKindHost
)

// HostFunction is the Go-side callable backing a FunctionKindHost
// FunctionInstance. It receives a FuncContext scoped to the calling
// instance and the typed argument cells, and returns result cells.
type HostFunction func(ctx *FuncContext, args []Value) ([]Value, error)

// FunctionInstance is a function instance in the Store (spec §3).
type FunctionInstance struct {
	Kind FunctionKind
	Type *FunctionType

	// Set when Kind == FunctionKindWasm.
	Body           *FunctionBody
	OwningInstance *Instance

	// Set when Kind == FunctionKindHost.
	Host HostFunction

	// TypeID is a Store-wide identifier for Type, used to type-check
	// call_indirect in O(1) instead of comparing signatures structurally
	// on every indirect call.
	TypeID uint32

	// DebugName augments trap messages (SPEC_FULL §10.4); it is the
	// import coordinate for host functions or the function body's Name for
	// Wasm functions.
	DebugName string
}

// TableInstance is a table instance in the Store (spec §3). Elements holds
// RefNull (or a valid func/extern address) per slot.
type TableInstance struct {
	Type     TableType
	Elements []Value
}

// MemoryInstance is a linear memory instance in the Store (spec §3). len(Data)
// is always a whole number of MemoryPageSize bytes (invariant #3).
type MemoryInstance struct {
	Type MemoryType
	Data []byte
}

// PageCount returns the memory's current size in 64 KiB pages.
func (m *MemoryInstance) PageCount() uint32 {
	return uint32(len(m.Data) / MemoryPageSize)
}

// GlobalInstance is a global instance in the Store (spec §3).
type GlobalInstance struct {
	Type  GlobalType
	Value Value
}

// ElementInstance is an element instance in the Store (spec §3). Items is
// nil once Dropped, but the arena slot itself is never removed (invariant #2).
type ElementInstance struct {
	Mode    ElementSegmentMode
	Items   []Value
	Dropped bool
}

// DataInstance is a data instance in the Store (spec §3).
type DataInstance struct {
	Bytes   []byte
	Dropped bool
}

// Engine executes Wasm function bodies to completion. internal/interp's
// Engine is the only production implementation; internal/wasm depends only
// on this interface so it never imports internal/interp.
type Engine interface {
	// CallToCompletion invokes the function at funcAddr (a Store address,
	// not a module-local index) with args, running until it returns,
	// traps, or the Store's call-depth cap is exceeded. It is used for
	// const-expression-adjacent invocations that are not part of the
	// resumable ExecHandle protocol: the module start function (spec §4.3
	// step 6) and FuncContext re-entrant calls (spec §6b).
	CallToCompletion(store *Store, funcAddr uint32, args []Value) ([]Value, error)
}

// NewStore creates an empty Store bound to the given Engine.
func NewStore(engine Engine) *Store {
	return &Store{
		Engine:       engine,
		MaxCallDepth: DefaultMaxCallDepth,
		typeIDs:      map[string]uint32{},
	}
}

// FuncTypeID exposes internTypeID for callers outside the package (the
// interpreter's call_indirect signature check).
func (s *Store) FuncTypeID(t *FunctionType) uint32 {
	return s.internTypeID(t)
}

// internTypeID assigns (or reuses) a Store-wide FunctionTypeID for t, used
// for O(1) call_indirect signature comparisons.
func (s *Store) internTypeID(t *FunctionType) uint32 {
	k := t.key()
	if id, ok := s.typeIDs[k]; ok {
		return id
	}
	id := s.nextTypeID
	s.nextTypeID++
	s.typeIDs[k] = id
	return id
}
