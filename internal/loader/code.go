package loader

import (
	"fmt"

	"github.com/reefwasm/reef/internal/wasm"
)

// ctrlEntry tracks one open block/loop/if while decoding a function body, so
// its End (and, for if, Else) absolute instruction-array index can be
// patched back into the opening instruction once it closes (spec §4.1:
// "loader also lowers control instructions").
type ctrlEntry struct {
	openIndex int
	isIf      bool
	sawElse   bool
}

// decodeBlockType reads the blocktype immediate shared by block/loop/if: the
// empty type, a single value type, or a type-section index, all folded into
// one s33 encoding by the binary format.
func decodeBlockType(c *cursor, types []*wasm.FunctionType) (wasm.BlockType, error) {
	v, err := c.i33()
	if err != nil {
		return wasm.BlockType{}, err
	}
	switch v {
	case -64: // 0x40, empty
		return wasm.BlockType{}, nil
	case -1:
		return wasm.BlockType{Results: []wasm.ValType{wasm.ValTypeI32}}, nil
	case -2:
		return wasm.BlockType{Results: []wasm.ValType{wasm.ValTypeI64}}, nil
	case -3:
		return wasm.BlockType{Results: []wasm.ValType{wasm.ValTypeF32}}, nil
	case -4:
		return wasm.BlockType{Results: []wasm.ValType{wasm.ValTypeF64}}, nil
	case -16:
		return wasm.BlockType{Results: []wasm.ValType{wasm.ValTypeFuncRef}}, nil
	case -17:
		return wasm.BlockType{Results: []wasm.ValType{wasm.ValTypeExternRef}}, nil
	}
	if v < 0 || int(v) >= len(types) {
		return wasm.BlockType{}, &wasm.ParseError{Reason: fmt.Sprintf("invalid block type index %d", v)}
	}
	ft := types[v]
	return wasm.BlockType{Params: ft.Params, Results: ft.Results}, nil
}

// decodeFunctionBody decodes one Code section entry's locals declarations
// and instruction stream, lowering control instructions as it goes so the
// interpreter never needs to scan forward for a matching end/else.
func decodeFunctionBody(c *cursor, ft *wasm.FunctionType, types []*wasm.FunctionType, name string) (*wasm.FunctionBody, error) {
	localGroupCount, err := c.u32()
	if err != nil {
		return nil, err
	}
	var locals []wasm.ValType
	for i := uint32(0); i < localGroupCount; i++ {
		n, err := c.u32()
		if err != nil {
			return nil, err
		}
		vt, err := c.valType()
		if err != nil {
			return nil, err
		}
		for j := uint32(0); j < n; j++ {
			locals = append(locals, vt)
		}
	}

	instrs, err := decodeInstructions(c, types)
	if err != nil {
		return nil, err
	}

	return &wasm.FunctionBody{
		Type:         ft,
		LocalTypes:   locals,
		Instructions: instrs,
		NumLocals:    len(ft.Params) + len(locals),
		Name:         name,
	}, nil
}

// decodeInstructions decodes a flat instruction stream up to and including
// its closing End (a function body's own terminator, consumed here along
// with everything nested inside it), patching every nested block/loop/if's
// EndTarget/ElseTarget as each closes.
func decodeInstructions(c *cursor, types []*wasm.FunctionType) ([]wasm.Instruction, error) {
	var instrs []wasm.Instruction
	var stack []ctrlEntry

	for {
		b, err := c.byte()
		if err != nil {
			return nil, err
		}

		switch b {
		case 0x02, 0x03, 0x04: // block, loop, if
			bt, err := decodeBlockType(c, types)
			if err != nil {
				return nil, err
			}
			op := wasm.OpBlock
			if b == 0x03 {
				op = wasm.OpLoop
			} else if b == 0x04 {
				op = wasm.OpIf
			}
			idx := len(instrs)
			instrs = append(instrs, wasm.Instruction{Op: op, Block: bt, ElseTarget: -1})
			stack = append(stack, ctrlEntry{openIndex: idx, isIf: b == 0x04})
			continue

		case 0x05: // else
			if len(stack) == 0 || !stack[len(stack)-1].isIf {
				return nil, &wasm.ParseError{Reason: "else without matching if"}
			}
			top := &stack[len(stack)-1]
			top.sawElse = true
			idx := len(instrs)
			instrs = append(instrs, wasm.Instruction{Op: wasm.OpElse})
			instrs[top.openIndex].ElseTarget = int32(idx)
			continue

		case 0x0B: // end
			idx := len(instrs)
			instrs = append(instrs, wasm.Instruction{Op: wasm.OpEnd})
			if len(stack) == 0 {
				// function body terminator
				return instrs, nil
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			instrs[top.openIndex].EndTarget = int32(idx)
			continue
		}

		instr, err := decodeFlatInstruction(c, b, types)
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, instr)
	}
}

// decodeFlatInstruction decodes one non-structured instruction (everything
// except block/loop/if/else/end, handled directly by decodeInstructions).
func decodeFlatInstruction(c *cursor, b byte, types []*wasm.FunctionType) (wasm.Instruction, error) {
	if b == 0xFC {
		sub, err := c.u32()
		if err != nil {
			return wasm.Instruction{}, err
		}
		op, ok := fcOpcode[sub]
		if !ok {
			return wasm.Instruction{}, &wasm.UnsupportedFeatureError{Feature: fmt.Sprintf("0xFC sub-opcode %d", sub)}
		}
		return decodeImmediate(c, op)
	}

	op, ok := primaryOpcode[b]
	if !ok {
		return wasm.Instruction{}, &wasm.UnsupportedFeatureError{Feature: fmt.Sprintf("opcode byte %#x", b)}
	}
	return decodeImmediate(c, op)
}

// decodeImmediate decodes op's immediate operand(s), if any, into an
// Instruction. Structured opcodes (block/loop/if/else/end) never reach here.
func decodeImmediate(c *cursor, op wasm.Opcode) (wasm.Instruction, error) {
	switch {
	case hasMemArg(op):
		align, err := c.u32()
		if err != nil {
			return wasm.Instruction{}, err
		}
		offset, err := c.u32()
		if err != nil {
			return wasm.Instruction{}, err
		}
		return wasm.Instruction{Op: op, Align: align, Offset: offset}, nil
	}

	switch op {
	case wasm.OpBr, wasm.OpBrIf:
		idx, err := c.u32()
		if err != nil {
			return wasm.Instruction{}, err
		}
		return wasm.Instruction{Op: op, Index: idx}, nil

	case wasm.OpBrTable:
		count, err := c.u32()
		if err != nil {
			return wasm.Instruction{}, err
		}
		labels := make([]uint32, count)
		for i := range labels {
			labels[i], err = c.u32()
			if err != nil {
				return wasm.Instruction{}, err
			}
		}
		def, err := c.u32()
		if err != nil {
			return wasm.Instruction{}, err
		}
		return wasm.Instruction{Op: op, Labels: labels, Default: def}, nil

	case wasm.OpCall:
		idx, err := c.u32()
		if err != nil {
			return wasm.Instruction{}, err
		}
		return wasm.Instruction{Op: op, Index: idx}, nil

	case wasm.OpCallIndirect:
		typeIdx, err := c.u32()
		if err != nil {
			return wasm.Instruction{}, err
		}
		tableIdx, err := c.u32()
		if err != nil {
			return wasm.Instruction{}, err
		}
		return wasm.Instruction{Op: op, Index: typeIdx, Index2: tableIdx}, nil

	case wasm.OpSelectT:
		n, err := c.u32()
		if err != nil {
			return wasm.Instruction{}, err
		}
		types := make([]wasm.ValType, n)
		for i := range types {
			types[i], err = c.valType()
			if err != nil {
				return wasm.Instruction{}, err
			}
		}
		return wasm.Instruction{Op: op, SelectTypes: types}, nil

	case wasm.OpLocalGet, wasm.OpLocalSet, wasm.OpLocalTee,
		wasm.OpGlobalGet, wasm.OpGlobalSet,
		wasm.OpTableGet, wasm.OpTableSet, wasm.OpTableGrow, wasm.OpTableSize, wasm.OpTableFill,
		wasm.OpElemDrop, wasm.OpDataDrop, wasm.OpMemoryInit:
		idx, err := c.u32()
		if err != nil {
			return wasm.Instruction{}, err
		}
		instr := wasm.Instruction{Op: op, Index: idx}
		if op == wasm.OpMemoryInit {
			// memory.init also carries a trailing memory index (always 0
			// under the single-memory restriction, but still encoded).
			memIdx, err := c.u32()
			if err != nil {
				return wasm.Instruction{}, err
			}
			instr.Index2 = memIdx
		}
		return instr, nil

	case wasm.OpTableCopy:
		dst, err := c.u32()
		if err != nil {
			return wasm.Instruction{}, err
		}
		src, err := c.u32()
		if err != nil {
			return wasm.Instruction{}, err
		}
		return wasm.Instruction{Op: op, Index: dst, Index2: src}, nil

	case wasm.OpTableInit:
		elemIdx, err := c.u32()
		if err != nil {
			return wasm.Instruction{}, err
		}
		tableIdx, err := c.u32()
		if err != nil {
			return wasm.Instruction{}, err
		}
		return wasm.Instruction{Op: op, Index: elemIdx, Index2: tableIdx}, nil

	case wasm.OpMemorySize, wasm.OpMemoryGrow, wasm.OpMemoryCopy, wasm.OpMemoryFill:
		n := 1
		if op == wasm.OpMemoryCopy {
			n = 2
		}
		for i := 0; i < n; i++ {
			if _, err := c.byte(); err != nil { // reserved memory-index byte(s), must be 0x00
				return wasm.Instruction{}, err
			}
		}
		return wasm.Instruction{Op: op}, nil

	case wasm.OpI32Const:
		v, err := c.i32()
		if err != nil {
			return wasm.Instruction{}, err
		}
		return wasm.Instruction{Op: op, Const: uint64(uint32(v))}, nil

	case wasm.OpI64Const:
		v, err := c.i64()
		if err != nil {
			return wasm.Instruction{}, err
		}
		return wasm.Instruction{Op: op, Const: uint64(v)}, nil

	case wasm.OpF32Const:
		v, err := c.f32()
		if err != nil {
			return wasm.Instruction{}, err
		}
		return wasm.Instruction{Op: op, Const: uint64(v)}, nil

	case wasm.OpF64Const:
		v, err := c.f64()
		if err != nil {
			return wasm.Instruction{}, err
		}
		return wasm.Instruction{Op: op, Const: v}, nil

	case wasm.OpRefNull:
		rt, err := c.valType()
		if err != nil {
			return wasm.Instruction{}, err
		}
		return wasm.Instruction{Op: op, RefType: rt}, nil

	case wasm.OpRefFunc:
		idx, err := c.u32()
		if err != nil {
			return wasm.Instruction{}, err
		}
		return wasm.Instruction{Op: op, Index: idx}, nil

	default:
		// no immediate: unreachable, nop, return, drop, select, ref.is_null,
		// and every numeric/comparison/conversion opcode.
		return wasm.Instruction{Op: op}, nil
	}
}
