package wasm

// BlockType is the resolved parameter/result signature of a block, loop or
// if. The binary format encodes this as either the empty type, a single
// ValType, or a type-section index (multi_value); the loader resolves all
// three forms into this struct once, at load time.
type BlockType struct {
	Params  []ValType
	Results []ValType
}

// ParamArity is the number of values a branch to a loop's start must carry.
func (b *BlockType) ParamArity() int { return len(b.Params) }

// ResultArity is the number of values a branch to a block/if/function end
// must carry.
func (b *BlockType) ResultArity() int { return len(b.Results) }

// Instruction is one lowered, execution-ready opcode plus its immediates.
// Control instructions carry pre-resolved absolute instruction-array
// indices for their `end`/`else` targets (spec §3: "Instructions ... by
// pre-resolved relative instruction offsets to end/else") so the
// interpreter never scans forward to find a matching end at run time.
type Instruction struct {
	Op Opcode

	// Index is the general-purpose index operand: local/global/function/
	// table/type/element/data index depending on Op.
	Index uint32
	// Index2 is a secondary index operand, used by call_indirect (table
	// index) and the bulk memory/table copy instructions (source index).
	Index2 uint32

	// Offset and Align are the memory instruction immediates. Align is
	// informational only: reef permits unaligned accesses (spec §4.4).
	Offset uint32
	Align  uint32

	// Const carries the raw bit pattern for *.const instructions.
	Const uint64

	// EndTarget and ElseTarget are absolute indices into the owning
	// function's Instructions slice, patched by the loader's lowering pass.
	EndTarget  int32
	ElseTarget int32

	Block BlockType

	// Labels holds br_table's non-default label vector; Default is the
	// fallback label when the index is out of range.
	Labels  []uint32
	Default uint32

	RefType ValType

	// SelectTypes is the explicit type vector carried by a typed `select`.
	SelectTypes []ValType
}

// FunctionBody is a decoded, validated and lowered Wasm-defined function: its
// signature, declared locals (beyond parameters) and instruction stream.
type FunctionBody struct {
	Type         *FunctionType
	LocalTypes   []ValType // declared locals only, not parameters
	Instructions []Instruction
	// NumLocals is len(Type.Params)+len(LocalTypes), cached for frame setup.
	NumLocals int
	// Name is the function's debug name, if the module carries a name
	// section entry or the loader synthesizes one; used only for trap
	// diagnostics (SPEC_FULL §10.4).
	Name string
}
