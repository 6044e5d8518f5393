package interp

import (
	"math"
	"math/bits"

	"github.com/reefwasm/reef/internal/moremath"
	"github.com/reefwasm/reef/internal/wasm"
)

// execNumeric handles every opcode with no operand-independent side effect:
// constants, comparisons, arithmetic, conversions. Pop order throughout
// follows the teacher's callEngine convention (v2 popped first is the
// right-hand operand, v1 the left-hand one), since that is the order values
// were pushed in.
func (h *ExecHandle) execNumeric(instr wasm.Instruction) {
	switch instr.Op {
	case wasm.OpI32Const, wasm.OpI64Const, wasm.OpF32Const, wasm.OpF64Const:
		h.pushValue(instr.Const)
		return
	}

	switch instr.Op {
	case wasm.OpI32Eqz:
		h.pushValue(boolVal(wasm.DecodeI32(h.popValue()) == 0))
	case wasm.OpI64Eqz:
		h.pushValue(boolVal(wasm.DecodeI64(h.popValue()) == 0))

	case wasm.OpI32Eq:
		v2, v1 := h.popValue(), h.popValue()
		h.pushValue(boolVal(uint32(v1) == uint32(v2)))
	case wasm.OpI32Ne:
		v2, v1 := h.popValue(), h.popValue()
		h.pushValue(boolVal(uint32(v1) != uint32(v2)))
	case wasm.OpI32LtS:
		v2, v1 := h.popValue(), h.popValue()
		h.pushValue(boolVal(int32(v1) < int32(v2)))
	case wasm.OpI32LtU:
		v2, v1 := h.popValue(), h.popValue()
		h.pushValue(boolVal(uint32(v1) < uint32(v2)))
	case wasm.OpI32GtS:
		v2, v1 := h.popValue(), h.popValue()
		h.pushValue(boolVal(int32(v1) > int32(v2)))
	case wasm.OpI32GtU:
		v2, v1 := h.popValue(), h.popValue()
		h.pushValue(boolVal(uint32(v1) > uint32(v2)))
	case wasm.OpI32LeS:
		v2, v1 := h.popValue(), h.popValue()
		h.pushValue(boolVal(int32(v1) <= int32(v2)))
	case wasm.OpI32LeU:
		v2, v1 := h.popValue(), h.popValue()
		h.pushValue(boolVal(uint32(v1) <= uint32(v2)))
	case wasm.OpI32GeS:
		v2, v1 := h.popValue(), h.popValue()
		h.pushValue(boolVal(int32(v1) >= int32(v2)))
	case wasm.OpI32GeU:
		v2, v1 := h.popValue(), h.popValue()
		h.pushValue(boolVal(uint32(v1) >= uint32(v2)))

	case wasm.OpI64Eq:
		v2, v1 := h.popValue(), h.popValue()
		h.pushValue(boolVal(v1 == v2))
	case wasm.OpI64Ne:
		v2, v1 := h.popValue(), h.popValue()
		h.pushValue(boolVal(v1 != v2))
	case wasm.OpI64LtS:
		v2, v1 := h.popValue(), h.popValue()
		h.pushValue(boolVal(int64(v1) < int64(v2)))
	case wasm.OpI64LtU:
		v2, v1 := h.popValue(), h.popValue()
		h.pushValue(boolVal(v1 < v2))
	case wasm.OpI64GtS:
		v2, v1 := h.popValue(), h.popValue()
		h.pushValue(boolVal(int64(v1) > int64(v2)))
	case wasm.OpI64GtU:
		v2, v1 := h.popValue(), h.popValue()
		h.pushValue(boolVal(v1 > v2))
	case wasm.OpI64LeS:
		v2, v1 := h.popValue(), h.popValue()
		h.pushValue(boolVal(int64(v1) <= int64(v2)))
	case wasm.OpI64LeU:
		v2, v1 := h.popValue(), h.popValue()
		h.pushValue(boolVal(v1 <= v2))
	case wasm.OpI64GeS:
		v2, v1 := h.popValue(), h.popValue()
		h.pushValue(boolVal(int64(v1) >= int64(v2)))
	case wasm.OpI64GeU:
		v2, v1 := h.popValue(), h.popValue()
		h.pushValue(boolVal(v1 >= v2))

	case wasm.OpF32Eq, wasm.OpF32Ne, wasm.OpF32Lt, wasm.OpF32Gt, wasm.OpF32Le, wasm.OpF32Ge:
		v2, v1 := wasm.DecodeF32(h.popValue()), wasm.DecodeF32(h.popValue())
		h.pushValue(f32Compare(instr.Op, v1, v2))
	case wasm.OpF64Eq, wasm.OpF64Ne, wasm.OpF64Lt, wasm.OpF64Gt, wasm.OpF64Le, wasm.OpF64Ge:
		v2, v1 := wasm.DecodeF64(h.popValue()), wasm.DecodeF64(h.popValue())
		h.pushValue(f64Compare(instr.Op, v1, v2))

	case wasm.OpI32Clz:
		h.pushValue(wasm.EncodeI32(int32(bits.LeadingZeros32(uint32(h.popValue())))))
	case wasm.OpI32Ctz:
		h.pushValue(wasm.EncodeI32(int32(bits.TrailingZeros32(uint32(h.popValue())))))
	case wasm.OpI32Popcnt:
		h.pushValue(wasm.EncodeI32(int32(bits.OnesCount32(uint32(h.popValue())))))
	case wasm.OpI32Add:
		v2, v1 := uint32(h.popValue()), uint32(h.popValue())
		h.pushValue(wasm.Value(v1 + v2))
	case wasm.OpI32Sub:
		v2, v1 := uint32(h.popValue()), uint32(h.popValue())
		h.pushValue(wasm.Value(v1 - v2))
	case wasm.OpI32Mul:
		v2, v1 := uint32(h.popValue()), uint32(h.popValue())
		h.pushValue(wasm.Value(v1 * v2))
	case wasm.OpI32DivS:
		v2, v1 := int32(h.popValue()), int32(h.popValue())
		if v2 == 0 {
			h.trap(wasm.TrapIntegerDivByZero)
		}
		if v1 == math.MinInt32 && v2 == -1 {
			h.trap(wasm.TrapIntegerOverflow)
		}
		h.pushValue(wasm.EncodeI32(v1 / v2))
	case wasm.OpI32DivU:
		v2, v1 := uint32(h.popValue()), uint32(h.popValue())
		if v2 == 0 {
			h.trap(wasm.TrapIntegerDivByZero)
		}
		h.pushValue(wasm.Value(v1 / v2))
	case wasm.OpI32RemS:
		v2, v1 := int32(h.popValue()), int32(h.popValue())
		if v2 == 0 {
			h.trap(wasm.TrapIntegerDivByZero)
		}
		h.pushValue(wasm.EncodeI32(v1 % v2))
	case wasm.OpI32RemU:
		v2, v1 := uint32(h.popValue()), uint32(h.popValue())
		if v2 == 0 {
			h.trap(wasm.TrapIntegerDivByZero)
		}
		h.pushValue(wasm.Value(v1 % v2))
	case wasm.OpI32And:
		v2, v1 := uint32(h.popValue()), uint32(h.popValue())
		h.pushValue(wasm.Value(v1 & v2))
	case wasm.OpI32Or:
		v2, v1 := uint32(h.popValue()), uint32(h.popValue())
		h.pushValue(wasm.Value(v1 | v2))
	case wasm.OpI32Xor:
		v2, v1 := uint32(h.popValue()), uint32(h.popValue())
		h.pushValue(wasm.Value(v1 ^ v2))
	case wasm.OpI32Shl:
		v2, v1 := uint32(h.popValue()), uint32(h.popValue())
		h.pushValue(wasm.Value(v1 << (v2 % 32)))
	case wasm.OpI32ShrS:
		v2, v1 := uint32(h.popValue()), int32(h.popValue())
		h.pushValue(wasm.EncodeI32(v1 >> (v2 % 32)))
	case wasm.OpI32ShrU:
		v2, v1 := uint32(h.popValue()), uint32(h.popValue())
		h.pushValue(wasm.Value(v1 >> (v2 % 32)))
	case wasm.OpI32Rotl:
		v2, v1 := uint32(h.popValue()), uint32(h.popValue())
		h.pushValue(wasm.Value(bits.RotateLeft32(v1, int(v2))))
	case wasm.OpI32Rotr:
		v2, v1 := uint32(h.popValue()), uint32(h.popValue())
		h.pushValue(wasm.Value(bits.RotateLeft32(v1, -int(v2))))

	case wasm.OpI64Clz:
		h.pushValue(wasm.EncodeI64(int64(bits.LeadingZeros64(h.popValue()))))
	case wasm.OpI64Ctz:
		h.pushValue(wasm.EncodeI64(int64(bits.TrailingZeros64(h.popValue()))))
	case wasm.OpI64Popcnt:
		h.pushValue(wasm.EncodeI64(int64(bits.OnesCount64(h.popValue()))))
	case wasm.OpI64Add:
		v2, v1 := h.popValue(), h.popValue()
		h.pushValue(v1 + v2)
	case wasm.OpI64Sub:
		v2, v1 := h.popValue(), h.popValue()
		h.pushValue(v1 - v2)
	case wasm.OpI64Mul:
		v2, v1 := h.popValue(), h.popValue()
		h.pushValue(v1 * v2)
	case wasm.OpI64DivS:
		v2, v1 := int64(h.popValue()), int64(h.popValue())
		if v2 == 0 {
			h.trap(wasm.TrapIntegerDivByZero)
		}
		if v1 == math.MinInt64 && v2 == -1 {
			h.trap(wasm.TrapIntegerOverflow)
		}
		h.pushValue(wasm.EncodeI64(v1 / v2))
	case wasm.OpI64DivU:
		v2, v1 := h.popValue(), h.popValue()
		if v2 == 0 {
			h.trap(wasm.TrapIntegerDivByZero)
		}
		h.pushValue(v1 / v2)
	case wasm.OpI64RemS:
		v2, v1 := int64(h.popValue()), int64(h.popValue())
		if v2 == 0 {
			h.trap(wasm.TrapIntegerDivByZero)
		}
		h.pushValue(wasm.EncodeI64(v1 % v2))
	case wasm.OpI64RemU:
		v2, v1 := h.popValue(), h.popValue()
		if v2 == 0 {
			h.trap(wasm.TrapIntegerDivByZero)
		}
		h.pushValue(v1 % v2)
	case wasm.OpI64And:
		v2, v1 := h.popValue(), h.popValue()
		h.pushValue(v1 & v2)
	case wasm.OpI64Or:
		v2, v1 := h.popValue(), h.popValue()
		h.pushValue(v1 | v2)
	case wasm.OpI64Xor:
		v2, v1 := h.popValue(), h.popValue()
		h.pushValue(v1 ^ v2)
	case wasm.OpI64Shl:
		v2, v1 := h.popValue(), h.popValue()
		h.pushValue(v1 << (v2 % 64))
	case wasm.OpI64ShrS:
		v2, v1 := h.popValue(), int64(h.popValue())
		h.pushValue(wasm.EncodeI64(v1 >> (v2 % 64)))
	case wasm.OpI64ShrU:
		v2, v1 := h.popValue(), h.popValue()
		h.pushValue(v1 >> (v2 % 64))
	case wasm.OpI64Rotl:
		v2, v1 := h.popValue(), h.popValue()
		h.pushValue(bits.RotateLeft64(v1, int(v2)))
	case wasm.OpI64Rotr:
		v2, v1 := h.popValue(), h.popValue()
		h.pushValue(bits.RotateLeft64(v1, -int(v2)))

	case wasm.OpF32Abs:
		h.pushValue(wasm.EncodeF32(float32(math.Abs(float64(wasm.DecodeF32(h.popValue()))))))
	case wasm.OpF32Neg:
		h.pushValue(wasm.EncodeF32(-wasm.DecodeF32(h.popValue())))
	case wasm.OpF32Ceil:
		h.pushValue(wasm.EncodeF32(float32(math.Ceil(float64(wasm.DecodeF32(h.popValue()))))))
	case wasm.OpF32Floor:
		h.pushValue(wasm.EncodeF32(float32(math.Floor(float64(wasm.DecodeF32(h.popValue()))))))
	case wasm.OpF32Trunc:
		h.pushValue(wasm.EncodeF32(float32(math.Trunc(float64(wasm.DecodeF32(h.popValue()))))))
	case wasm.OpF32Nearest:
		h.pushValue(wasm.EncodeF32(moremath.WasmCompatNearestF32(wasm.DecodeF32(h.popValue()))))
	case wasm.OpF32Sqrt:
		h.pushValue(wasm.EncodeF32(float32(math.Sqrt(float64(wasm.DecodeF32(h.popValue()))))))
	case wasm.OpF32Add:
		v2, v1 := wasm.DecodeF32(h.popValue()), wasm.DecodeF32(h.popValue())
		h.pushValue(wasm.EncodeF32(v1 + v2))
	case wasm.OpF32Sub:
		v2, v1 := wasm.DecodeF32(h.popValue()), wasm.DecodeF32(h.popValue())
		h.pushValue(wasm.EncodeF32(v1 - v2))
	case wasm.OpF32Mul:
		v2, v1 := wasm.DecodeF32(h.popValue()), wasm.DecodeF32(h.popValue())
		h.pushValue(wasm.EncodeF32(v1 * v2))
	case wasm.OpF32Div:
		v2, v1 := wasm.DecodeF32(h.popValue()), wasm.DecodeF32(h.popValue())
		h.pushValue(wasm.EncodeF32(v1 / v2))
	case wasm.OpF32Min:
		v2, v1 := wasm.DecodeF32(h.popValue()), wasm.DecodeF32(h.popValue())
		h.pushValue(wasm.EncodeF32(moremath.WasmCompatMinF32(v1, v2)))
	case wasm.OpF32Max:
		v2, v1 := wasm.DecodeF32(h.popValue()), wasm.DecodeF32(h.popValue())
		h.pushValue(wasm.EncodeF32(moremath.WasmCompatMaxF32(v1, v2)))
	case wasm.OpF32Copysign:
		v2, v1 := wasm.DecodeF32(h.popValue()), wasm.DecodeF32(h.popValue())
		h.pushValue(wasm.EncodeF32(float32(math.Copysign(float64(v1), float64(v2)))))

	case wasm.OpF64Abs:
		h.pushValue(wasm.EncodeF64(math.Abs(wasm.DecodeF64(h.popValue()))))
	case wasm.OpF64Neg:
		h.pushValue(wasm.EncodeF64(-wasm.DecodeF64(h.popValue())))
	case wasm.OpF64Ceil:
		h.pushValue(wasm.EncodeF64(math.Ceil(wasm.DecodeF64(h.popValue()))))
	case wasm.OpF64Floor:
		h.pushValue(wasm.EncodeF64(math.Floor(wasm.DecodeF64(h.popValue()))))
	case wasm.OpF64Trunc:
		h.pushValue(wasm.EncodeF64(math.Trunc(wasm.DecodeF64(h.popValue()))))
	case wasm.OpF64Nearest:
		h.pushValue(wasm.EncodeF64(moremath.WasmCompatNearestF64(wasm.DecodeF64(h.popValue()))))
	case wasm.OpF64Sqrt:
		h.pushValue(wasm.EncodeF64(math.Sqrt(wasm.DecodeF64(h.popValue()))))
	case wasm.OpF64Add:
		v2, v1 := wasm.DecodeF64(h.popValue()), wasm.DecodeF64(h.popValue())
		h.pushValue(wasm.EncodeF64(v1 + v2))
	case wasm.OpF64Sub:
		v2, v1 := wasm.DecodeF64(h.popValue()), wasm.DecodeF64(h.popValue())
		h.pushValue(wasm.EncodeF64(v1 - v2))
	case wasm.OpF64Mul:
		v2, v1 := wasm.DecodeF64(h.popValue()), wasm.DecodeF64(h.popValue())
		h.pushValue(wasm.EncodeF64(v1 * v2))
	case wasm.OpF64Div:
		v2, v1 := wasm.DecodeF64(h.popValue()), wasm.DecodeF64(h.popValue())
		h.pushValue(wasm.EncodeF64(v1 / v2))
	case wasm.OpF64Min:
		v2, v1 := wasm.DecodeF64(h.popValue()), wasm.DecodeF64(h.popValue())
		h.pushValue(wasm.EncodeF64(moremath.WasmCompatMin(v1, v2)))
	case wasm.OpF64Max:
		v2, v1 := wasm.DecodeF64(h.popValue()), wasm.DecodeF64(h.popValue())
		h.pushValue(wasm.EncodeF64(moremath.WasmCompatMax(v1, v2)))
	case wasm.OpF64Copysign:
		v2, v1 := wasm.DecodeF64(h.popValue()), wasm.DecodeF64(h.popValue())
		h.pushValue(wasm.EncodeF64(math.Copysign(v1, v2)))

	case wasm.OpI32WrapI64:
		h.pushValue(wasm.Value(uint32(h.popValue())))
	case wasm.OpI64ExtendI32S:
		h.pushValue(wasm.EncodeI64(int64(int32(h.popValue()))))
	case wasm.OpI64ExtendI32U:
		h.pushValue(wasm.EncodeI64(int64(uint32(h.popValue()))))

	case wasm.OpI32TruncF32S:
		h.pushValue(wasm.EncodeI32(truncToI32(float64(wasm.DecodeF32(h.popValue())))))
	case wasm.OpI32TruncF32U:
		h.pushValue(wasm.Value(truncToU32(float64(wasm.DecodeF32(h.popValue())))))
	case wasm.OpI32TruncF64S:
		h.pushValue(wasm.EncodeI32(truncToI32(wasm.DecodeF64(h.popValue()))))
	case wasm.OpI32TruncF64U:
		h.pushValue(wasm.Value(truncToU32(wasm.DecodeF64(h.popValue()))))
	case wasm.OpI64TruncF32S:
		h.pushValue(wasm.EncodeI64(truncToI64(float64(wasm.DecodeF32(h.popValue())))))
	case wasm.OpI64TruncF32U:
		h.pushValue(wasm.Value(truncToU64(float64(wasm.DecodeF32(h.popValue())))))
	case wasm.OpI64TruncF64S:
		h.pushValue(wasm.EncodeI64(truncToI64(wasm.DecodeF64(h.popValue()))))
	case wasm.OpI64TruncF64U:
		h.pushValue(wasm.Value(truncToU64(wasm.DecodeF64(h.popValue()))))

	case wasm.OpF32ConvertI32S:
		h.pushValue(wasm.EncodeF32(float32(int32(h.popValue()))))
	case wasm.OpF32ConvertI32U:
		h.pushValue(wasm.EncodeF32(float32(uint32(h.popValue()))))
	case wasm.OpF32ConvertI64S:
		h.pushValue(wasm.EncodeF32(float32(int64(h.popValue()))))
	case wasm.OpF32ConvertI64U:
		h.pushValue(wasm.EncodeF32(float32(h.popValue())))
	case wasm.OpF32DemoteF64:
		h.pushValue(wasm.EncodeF32(float32(wasm.DecodeF64(h.popValue()))))
	case wasm.OpF64ConvertI32S:
		h.pushValue(wasm.EncodeF64(float64(int32(h.popValue()))))
	case wasm.OpF64ConvertI32U:
		h.pushValue(wasm.EncodeF64(float64(uint32(h.popValue()))))
	case wasm.OpF64ConvertI64S:
		h.pushValue(wasm.EncodeF64(float64(int64(h.popValue()))))
	case wasm.OpF64ConvertI64U:
		h.pushValue(wasm.EncodeF64(float64(h.popValue())))
	case wasm.OpF64PromoteF32:
		h.pushValue(wasm.EncodeF64(float64(wasm.DecodeF32(h.popValue()))))

	case wasm.OpI32ReinterpretF32, wasm.OpI64ReinterpretF64, wasm.OpF32ReinterpretI32, wasm.OpF64ReinterpretI64:
		// the cell's bit pattern is already the reinterpreted form; no-op.

	case wasm.OpI32Extend8S:
		h.pushValue(wasm.EncodeI32(int32(int8(h.popValue()))))
	case wasm.OpI32Extend16S:
		h.pushValue(wasm.EncodeI32(int32(int16(h.popValue()))))
	case wasm.OpI64Extend8S:
		h.pushValue(wasm.EncodeI64(int64(int8(h.popValue()))))
	case wasm.OpI64Extend16S:
		h.pushValue(wasm.EncodeI64(int64(int16(h.popValue()))))
	case wasm.OpI64Extend32S:
		h.pushValue(wasm.EncodeI64(int64(int32(h.popValue()))))

	case wasm.OpI32TruncSatF32S:
		h.pushValue(wasm.EncodeI32(moremath.SatI32FromF32(wasm.DecodeF32(h.popValue()))))
	case wasm.OpI32TruncSatF32U:
		h.pushValue(wasm.Value(moremath.SatU32FromF32(wasm.DecodeF32(h.popValue()))))
	case wasm.OpI32TruncSatF64S:
		h.pushValue(wasm.EncodeI32(moremath.SatI32FromF64(wasm.DecodeF64(h.popValue()))))
	case wasm.OpI32TruncSatF64U:
		h.pushValue(wasm.Value(moremath.SatU32FromF64(wasm.DecodeF64(h.popValue()))))
	case wasm.OpI64TruncSatF32S:
		h.pushValue(wasm.EncodeI64(moremath.SatI64FromF32(wasm.DecodeF32(h.popValue()))))
	case wasm.OpI64TruncSatF32U:
		h.pushValue(wasm.Value(moremath.SatU64FromF32(wasm.DecodeF32(h.popValue()))))
	case wasm.OpI64TruncSatF64S:
		h.pushValue(wasm.EncodeI64(moremath.SatI64FromF64(wasm.DecodeF64(h.popValue()))))
	case wasm.OpI64TruncSatF64U:
		h.pushValue(wasm.Value(moremath.SatU64FromF64(wasm.DecodeF64(h.popValue()))))

	default:
		h.trap(wasm.TrapUnreachable)
	}
}

func boolVal(b bool) wasm.Value {
	if b {
		return 1
	}
	return 0
}

func f32Compare(op wasm.Opcode, v1, v2 float32) wasm.Value {
	switch op {
	case wasm.OpF32Eq:
		return boolVal(v1 == v2)
	case wasm.OpF32Ne:
		return boolVal(v1 != v2)
	case wasm.OpF32Lt:
		return boolVal(v1 < v2)
	case wasm.OpF32Gt:
		return boolVal(v1 > v2)
	case wasm.OpF32Le:
		return boolVal(v1 <= v2)
	default: // OpF32Ge
		return boolVal(v1 >= v2)
	}
}

func f64Compare(op wasm.Opcode, v1, v2 float64) wasm.Value {
	switch op {
	case wasm.OpF64Eq:
		return boolVal(v1 == v2)
	case wasm.OpF64Ne:
		return boolVal(v1 != v2)
	case wasm.OpF64Lt:
		return boolVal(v1 < v2)
	case wasm.OpF64Gt:
		return boolVal(v1 > v2)
	case wasm.OpF64Le:
		return boolVal(v1 <= v2)
	default: // OpF64Ge
		return boolVal(v1 >= v2)
	}
}

// truncToI32/truncToU32/truncToI64/truncToU64 implement the trapping
// (non-saturating) float-to-int conversions: NaN and out-of-range values
// trap rather than clamp (spec §4.4 "Float-to-int conversions use
// truncation with trap on NaN/overflow").
func truncToI32(f float64) int32 {
	checkTruncSource(f)
	t := math.Trunc(f)
	if t < math.MinInt32 || t > math.MaxInt32 {
		panic(wasm.NewTrap(wasm.TrapIntegerOverflow))
	}
	return int32(t)
}

func truncToU32(f float64) uint32 {
	checkTruncSource(f)
	t := math.Trunc(f)
	if t < 0 || t > math.MaxUint32 {
		panic(wasm.NewTrap(wasm.TrapIntegerOverflow))
	}
	return uint32(t)
}

func truncToI64(f float64) int64 {
	checkTruncSource(f)
	t := math.Trunc(f)
	if t < math.MinInt64 || t >= math.MaxInt64 {
		panic(wasm.NewTrap(wasm.TrapIntegerOverflow))
	}
	return int64(t)
}

func truncToU64(f float64) uint64 {
	checkTruncSource(f)
	t := math.Trunc(f)
	if t < 0 || t >= math.MaxUint64 {
		panic(wasm.NewTrap(wasm.TrapIntegerOverflow))
	}
	return uint64(t)
}

func checkTruncSource(f float64) {
	if math.IsNaN(f) {
		panic(wasm.NewTrap(wasm.TrapInvalidConversionToInt))
	}
	if math.IsInf(f, 0) {
		panic(wasm.NewTrap(wasm.TrapIntegerOverflow))
	}
}
