package loader

import "github.com/reefwasm/reef/internal/wasm"

// primaryOpcode maps the single-byte Wasm binary opcode to reef's internal
// Opcode tag for every instruction not gated behind the 0xFC multi-byte
// prefix. Instructions with immediates still need their operands decoded
// separately by decodeInstructions; this table only resolves identity.
var primaryOpcode = map[byte]wasm.Opcode{
	0x00: wasm.OpUnreachable,
	0x01: wasm.OpNop,
	0x02: wasm.OpBlock,
	0x03: wasm.OpLoop,
	0x04: wasm.OpIf,
	0x05: wasm.OpElse,
	0x0B: wasm.OpEnd,
	0x0C: wasm.OpBr,
	0x0D: wasm.OpBrIf,
	0x0E: wasm.OpBrTable,
	0x0F: wasm.OpReturn,
	0x10: wasm.OpCall,
	0x11: wasm.OpCallIndirect,

	0x1A: wasm.OpDrop,
	0x1B: wasm.OpSelect,
	0x1C: wasm.OpSelectT,

	0x20: wasm.OpLocalGet,
	0x21: wasm.OpLocalSet,
	0x22: wasm.OpLocalTee,
	0x23: wasm.OpGlobalGet,
	0x24: wasm.OpGlobalSet,

	0x25: wasm.OpTableGet,
	0x26: wasm.OpTableSet,

	0x28: wasm.OpI32Load,
	0x29: wasm.OpI64Load,
	0x2A: wasm.OpF32Load,
	0x2B: wasm.OpF64Load,
	0x2C: wasm.OpI32Load8S,
	0x2D: wasm.OpI32Load8U,
	0x2E: wasm.OpI32Load16S,
	0x2F: wasm.OpI32Load16U,
	0x30: wasm.OpI64Load8S,
	0x31: wasm.OpI64Load8U,
	0x32: wasm.OpI64Load16S,
	0x33: wasm.OpI64Load16U,
	0x34: wasm.OpI64Load32S,
	0x35: wasm.OpI64Load32U,
	0x36: wasm.OpI32Store,
	0x37: wasm.OpI64Store,
	0x38: wasm.OpF32Store,
	0x39: wasm.OpF64Store,
	0x3A: wasm.OpI32Store8,
	0x3B: wasm.OpI32Store16,
	0x3C: wasm.OpI64Store8,
	0x3D: wasm.OpI64Store16,
	0x3E: wasm.OpI64Store32,
	0x3F: wasm.OpMemorySize,
	0x40: wasm.OpMemoryGrow,

	0x41: wasm.OpI32Const,
	0x42: wasm.OpI64Const,
	0x43: wasm.OpF32Const,
	0x44: wasm.OpF64Const,

	0x45: wasm.OpI32Eqz,
	0x46: wasm.OpI32Eq,
	0x47: wasm.OpI32Ne,
	0x48: wasm.OpI32LtS,
	0x49: wasm.OpI32LtU,
	0x4A: wasm.OpI32GtS,
	0x4B: wasm.OpI32GtU,
	0x4C: wasm.OpI32LeS,
	0x4D: wasm.OpI32LeU,
	0x4E: wasm.OpI32GeS,
	0x4F: wasm.OpI32GeU,

	0x50: wasm.OpI64Eqz,
	0x51: wasm.OpI64Eq,
	0x52: wasm.OpI64Ne,
	0x53: wasm.OpI64LtS,
	0x54: wasm.OpI64LtU,
	0x55: wasm.OpI64GtS,
	0x56: wasm.OpI64GtU,
	0x57: wasm.OpI64LeS,
	0x58: wasm.OpI64LeU,
	0x59: wasm.OpI64GeS,
	0x5A: wasm.OpI64GeU,

	0x5B: wasm.OpF32Eq,
	0x5C: wasm.OpF32Ne,
	0x5D: wasm.OpF32Lt,
	0x5E: wasm.OpF32Gt,
	0x5F: wasm.OpF32Le,
	0x60: wasm.OpF32Ge,

	0x61: wasm.OpF64Eq,
	0x62: wasm.OpF64Ne,
	0x63: wasm.OpF64Lt,
	0x64: wasm.OpF64Gt,
	0x65: wasm.OpF64Le,
	0x66: wasm.OpF64Ge,

	0x67: wasm.OpI32Clz,
	0x68: wasm.OpI32Ctz,
	0x69: wasm.OpI32Popcnt,
	0x6A: wasm.OpI32Add,
	0x6B: wasm.OpI32Sub,
	0x6C: wasm.OpI32Mul,
	0x6D: wasm.OpI32DivS,
	0x6E: wasm.OpI32DivU,
	0x6F: wasm.OpI32RemS,
	0x70: wasm.OpI32RemU,
	0x71: wasm.OpI32And,
	0x72: wasm.OpI32Or,
	0x73: wasm.OpI32Xor,
	0x74: wasm.OpI32Shl,
	0x75: wasm.OpI32ShrS,
	0x76: wasm.OpI32ShrU,
	0x77: wasm.OpI32Rotl,
	0x78: wasm.OpI32Rotr,

	0x79: wasm.OpI64Clz,
	0x7A: wasm.OpI64Ctz,
	0x7B: wasm.OpI64Popcnt,
	0x7C: wasm.OpI64Add,
	0x7D: wasm.OpI64Sub,
	0x7E: wasm.OpI64Mul,
	0x7F: wasm.OpI64DivS,
	0x80: wasm.OpI64DivU,
	0x81: wasm.OpI64RemS,
	0x82: wasm.OpI64RemU,
	0x83: wasm.OpI64And,
	0x84: wasm.OpI64Or,
	0x85: wasm.OpI64Xor,
	0x86: wasm.OpI64Shl,
	0x87: wasm.OpI64ShrS,
	0x88: wasm.OpI64ShrU,
	0x89: wasm.OpI64Rotl,
	0x8A: wasm.OpI64Rotr,

	0x8B: wasm.OpF32Abs,
	0x8C: wasm.OpF32Neg,
	0x8D: wasm.OpF32Ceil,
	0x8E: wasm.OpF32Floor,
	0x8F: wasm.OpF32Trunc,
	0x90: wasm.OpF32Nearest,
	0x91: wasm.OpF32Sqrt,
	0x92: wasm.OpF32Add,
	0x93: wasm.OpF32Sub,
	0x94: wasm.OpF32Mul,
	0x95: wasm.OpF32Div,
	0x96: wasm.OpF32Min,
	0x97: wasm.OpF32Max,
	0x98: wasm.OpF32Copysign,

	0x99: wasm.OpF64Abs,
	0x9A: wasm.OpF64Neg,
	0x9B: wasm.OpF64Ceil,
	0x9C: wasm.OpF64Floor,
	0x9D: wasm.OpF64Trunc,
	0x9E: wasm.OpF64Nearest,
	0x9F: wasm.OpF64Sqrt,
	0xA0: wasm.OpF64Add,
	0xA1: wasm.OpF64Sub,
	0xA2: wasm.OpF64Mul,
	0xA3: wasm.OpF64Div,
	0xA4: wasm.OpF64Min,
	0xA5: wasm.OpF64Max,
	0xA6: wasm.OpF64Copysign,

	0xA7: wasm.OpI32WrapI64,
	0xA8: wasm.OpI32TruncF32S,
	0xA9: wasm.OpI32TruncF32U,
	0xAA: wasm.OpI32TruncF64S,
	0xAB: wasm.OpI32TruncF64U,
	0xAC: wasm.OpI64ExtendI32S,
	0xAD: wasm.OpI64ExtendI32U,
	0xAE: wasm.OpI64TruncF32S,
	0xAF: wasm.OpI64TruncF32U,
	0xB0: wasm.OpI64TruncF64S,
	0xB1: wasm.OpI64TruncF64U,
	0xB2: wasm.OpF32ConvertI32S,
	0xB3: wasm.OpF32ConvertI32U,
	0xB4: wasm.OpF32ConvertI64S,
	0xB5: wasm.OpF32ConvertI64U,
	0xB6: wasm.OpF32DemoteF64,
	0xB7: wasm.OpF64ConvertI32S,
	0xB8: wasm.OpF64ConvertI32U,
	0xB9: wasm.OpF64ConvertI64S,
	0xBA: wasm.OpF64ConvertI64U,
	0xBB: wasm.OpF64PromoteF32,
	0xBC: wasm.OpI32ReinterpretF32,
	0xBD: wasm.OpI64ReinterpretF64,
	0xBE: wasm.OpF32ReinterpretI32,
	0xBF: wasm.OpF64ReinterpretI64,

	0xC0: wasm.OpI32Extend8S,
	0xC1: wasm.OpI32Extend16S,
	0xC2: wasm.OpI64Extend8S,
	0xC3: wasm.OpI64Extend16S,
	0xC4: wasm.OpI64Extend32S,

	0xD0: wasm.OpRefNull,
	0xD1: wasm.OpRefIsNull,
	0xD2: wasm.OpRefFunc,
}

// fcOpcode maps the u32 sub-opcode following a 0xFC prefix byte (bulk_memory
// and saturating_float_to_int) to reef's internal Opcode tag.
var fcOpcode = map[uint32]wasm.Opcode{
	0:  wasm.OpI32TruncSatF32S,
	1:  wasm.OpI32TruncSatF32U,
	2:  wasm.OpI32TruncSatF64S,
	3:  wasm.OpI32TruncSatF64U,
	4:  wasm.OpI64TruncSatF32S,
	5:  wasm.OpI64TruncSatF32U,
	6:  wasm.OpI64TruncSatF64S,
	7:  wasm.OpI64TruncSatF64U,
	8:  wasm.OpMemoryInit,
	9:  wasm.OpDataDrop,
	10: wasm.OpMemoryCopy,
	11: wasm.OpMemoryFill,
	12: wasm.OpTableInit,
	13: wasm.OpElemDrop,
	14: wasm.OpTableCopy,
	15: wasm.OpTableGrow,
	16: wasm.OpTableSize,
	17: wasm.OpTableFill,
}

// hasMemArg reports whether op carries an (align, offset) memarg immediate.
func hasMemArg(op wasm.Opcode) bool {
	switch op {
	case wasm.OpI32Load, wasm.OpI64Load, wasm.OpF32Load, wasm.OpF64Load,
		wasm.OpI32Load8S, wasm.OpI32Load8U, wasm.OpI32Load16S, wasm.OpI32Load16U,
		wasm.OpI64Load8S, wasm.OpI64Load8U, wasm.OpI64Load16S, wasm.OpI64Load16U,
		wasm.OpI64Load32S, wasm.OpI64Load32U,
		wasm.OpI32Store, wasm.OpI64Store, wasm.OpF32Store, wasm.OpF64Store,
		wasm.OpI32Store8, wasm.OpI32Store16, wasm.OpI64Store8, wasm.OpI64Store16, wasm.OpI64Store32:
		return true
	default:
		return false
	}
}
