package wasm

// Index is a module-local index into one of the six index spaces (funcs,
// tables, memories, globals, elements, data). Import entries occupy the low
// end of the funcs/tables/memories/globals index spaces, ahead of
// module-defined entries, per the Wasm spec.
type Index = uint32

// ImportKind classifies an import/export entry.
type ImportKind byte

const (
	ImportKindFunc ImportKind = iota
	ImportKindTable
	ImportKindMemory
	ImportKindGlobal
)

// Import is one entry of the import section: a (module, field) coordinate
// plus the type of the thing being imported.
type Import struct {
	Module string
	Field  string
	Kind   ImportKind

	// Exactly one of the following is meaningful, selected by Kind.
	FuncType   *FunctionType
	TableType  *TableType
	MemoryType *MemoryType
	GlobalType *GlobalType
}

// Export is one entry of the export section.
type Export struct {
	Name  string
	Kind  ImportKind
	Index Index
}

// ConstExpr is a constant initializer expression: global initializers and
// active element/data segment offsets are restricted to exactly one
// value-producing instruction drawn from {i32.const, i64.const, f32.const,
// f64.const, global.get (of an imported immutable global), ref.null,
// ref.func} (spec §4.3 step 3).
type ConstExpr struct {
	Instr Instruction
}

// ElementSegmentMode distinguishes the three element segment kinds added by
// the bulk_memory/reference_types proposals.
type ElementSegmentMode byte

const (
	ElementModeActive ElementSegmentMode = iota
	ElementModePassive
	ElementModeDeclared
)

// ElementSegment is one entry of the element section, already resolved to a
// concrete funcref/externref-producing expression per item (func indices in
// the MVP encoding, or full const exprs under reference_types).
type ElementSegment struct {
	Mode      ElementSegmentMode
	TableIdx  Index // only meaningful when Mode == ElementModeActive
	Offset    ConstExpr
	ElemType  ValType
	Init      []ConstExpr // one const expr per element, producing a reference
}

// DataSegmentMode distinguishes active and passive data segments.
type DataSegmentMode byte

const (
	DataModeActive DataSegmentMode = iota
	DataModePassive
)

// DataSegment is one entry of the data section.
type DataSegment struct {
	Mode     DataSegmentMode
	MemIdx   Index // only meaningful when Mode == DataModeActive
	Offset   ConstExpr
	Init     []byte
}

// Global is a module-defined global's declared type and initializer.
type Global struct {
	Type *GlobalType
	Init ConstExpr
}

// Module is the immutable, validated, lowered representation of a parsed
// Wasm binary (spec §3 "Module"). It is safe to share across many
// instantiations: Instance never mutates it.
type Module struct {
	Types []*FunctionType

	Imports []Import

	// Functions holds only module-defined function bodies; imported
	// functions are listed in Imports and occupy the low indices of the
	// func index space ahead of these.
	Functions []*FunctionBody
	// FunctionTypeIndex maps a module-defined function's position in
	// Functions to its index into Types (kept for indirect-call type
	// checks, which compare against a *FunctionType).
	FunctionTypeIndex []uint32

	Tables    []*TableType
	Memories  []*MemoryType
	Globals   []Global
	Elements  []ElementSegment
	Data      []DataSegment
	Exports   []Export

	// StartFuncIndex is the module-level start function, if any, in the
	// combined (imports-then-defined) func index space.
	StartFuncIndex    Index
	HasStartFunc      bool

	// ID uniquely identifies this Module for engine-level caching; it has
	// no semantic meaning otherwise.
	ID uint64
}

// ImportedFuncCount returns how many of the func index space's low entries
// are imports rather than module-defined bodies.
func (m *Module) ImportedFuncCount() int {
	n := 0
	for _, im := range m.Imports {
		if im.Kind == ImportKindFunc {
			n++
		}
	}
	return n
}

// ImportedTableCount mirrors ImportedFuncCount for tables.
func (m *Module) ImportedTableCount() int {
	n := 0
	for _, im := range m.Imports {
		if im.Kind == ImportKindTable {
			n++
		}
	}
	return n
}

// ImportedMemoryCount mirrors ImportedFuncCount for memories.
func (m *Module) ImportedMemoryCount() int {
	n := 0
	for _, im := range m.Imports {
		if im.Kind == ImportKindMemory {
			n++
		}
	}
	return n
}

// ImportedGlobalCount mirrors ImportedFuncCount for globals.
func (m *Module) ImportedGlobalCount() int {
	n := 0
	for _, im := range m.Imports {
		if im.Kind == ImportKindGlobal {
			n++
		}
	}
	return n
}

// FuncTypeAt resolves the signature of the function at the given index in
// the combined func index space (imports first, then module-defined).
func (m *Module) FuncTypeAt(idx Index) *FunctionType {
	importedCount := 0
	for _, im := range m.Imports {
		if im.Kind != ImportKindFunc {
			continue
		}
		if importedCount == int(idx) {
			return im.FuncType
		}
		importedCount++
	}
	defIdx := int(idx) - importedCount
	return m.Types[m.FunctionTypeIndex[defIdx]]
}
