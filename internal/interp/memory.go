package interp

import "github.com/reefwasm/reef/internal/wasm"

func (h *ExecHandle) memory(cf *CallFrame) *wasm.MemoryInstance {
	return &h.store.Memories[cf.inst.MemoryAddrs[0]]
}

func (h *ExecHandle) checkBounds(mem *wasm.MemoryInstance, offset uint32, extra uint32, size int) uint64 {
	addr := uint64(offset) + uint64(extra)
	end := addr + uint64(size)
	if end > uint64(len(mem.Data)) {
		h.trap(wasm.TrapOutOfBoundsMemoryAccess)
	}
	return addr
}

func (h *ExecHandle) execMemory(cf *CallFrame, instr wasm.Instruction) {
	mem := func() *wasm.MemoryInstance { return h.memory(cf) }

	switch instr.Op {
	case wasm.OpI32Load:
		base := uint32(h.popValue())
		addr := h.checkBounds(mem(), instr.Offset, base, 4)
		h.pushValue(wasm.Value(le32(mem().Data[addr:])))
	case wasm.OpI64Load:
		base := uint32(h.popValue())
		addr := h.checkBounds(mem(), instr.Offset, base, 8)
		h.pushValue(le64(mem().Data[addr:]))
	case wasm.OpF32Load:
		base := uint32(h.popValue())
		addr := h.checkBounds(mem(), instr.Offset, base, 4)
		h.pushValue(wasm.Value(le32(mem().Data[addr:])))
	case wasm.OpF64Load:
		base := uint32(h.popValue())
		addr := h.checkBounds(mem(), instr.Offset, base, 8)
		h.pushValue(le64(mem().Data[addr:]))

	case wasm.OpI32Load8S:
		base := uint32(h.popValue())
		addr := h.checkBounds(mem(), instr.Offset, base, 1)
		h.pushValue(wasm.EncodeI32(int32(int8(mem().Data[addr]))))
	case wasm.OpI32Load8U:
		base := uint32(h.popValue())
		addr := h.checkBounds(mem(), instr.Offset, base, 1)
		h.pushValue(wasm.Value(mem().Data[addr]))
	case wasm.OpI32Load16S:
		base := uint32(h.popValue())
		addr := h.checkBounds(mem(), instr.Offset, base, 2)
		h.pushValue(wasm.EncodeI32(int32(int16(le16(mem().Data[addr:])))))
	case wasm.OpI32Load16U:
		base := uint32(h.popValue())
		addr := h.checkBounds(mem(), instr.Offset, base, 2)
		h.pushValue(wasm.Value(le16(mem().Data[addr:])))
	case wasm.OpI64Load8S:
		base := uint32(h.popValue())
		addr := h.checkBounds(mem(), instr.Offset, base, 1)
		h.pushValue(wasm.EncodeI64(int64(int8(mem().Data[addr]))))
	case wasm.OpI64Load8U:
		base := uint32(h.popValue())
		addr := h.checkBounds(mem(), instr.Offset, base, 1)
		h.pushValue(wasm.Value(mem().Data[addr]))
	case wasm.OpI64Load16S:
		base := uint32(h.popValue())
		addr := h.checkBounds(mem(), instr.Offset, base, 2)
		h.pushValue(wasm.EncodeI64(int64(int16(le16(mem().Data[addr:])))))
	case wasm.OpI64Load16U:
		base := uint32(h.popValue())
		addr := h.checkBounds(mem(), instr.Offset, base, 2)
		h.pushValue(wasm.Value(le16(mem().Data[addr:])))
	case wasm.OpI64Load32S:
		base := uint32(h.popValue())
		addr := h.checkBounds(mem(), instr.Offset, base, 4)
		h.pushValue(wasm.EncodeI64(int64(int32(le32(mem().Data[addr:])))))
	case wasm.OpI64Load32U:
		base := uint32(h.popValue())
		addr := h.checkBounds(mem(), instr.Offset, base, 4)
		h.pushValue(wasm.Value(le32(mem().Data[addr:])))

	case wasm.OpI32Store, wasm.OpF32Store:
		v := uint32(h.popValue())
		base := uint32(h.popValue())
		addr := h.checkBounds(mem(), instr.Offset, base, 4)
		putLe32(mem().Data[addr:], v)
	case wasm.OpI64Store, wasm.OpF64Store:
		v := h.popValue()
		base := uint32(h.popValue())
		addr := h.checkBounds(mem(), instr.Offset, base, 8)
		putLe64(mem().Data[addr:], v)
	case wasm.OpI32Store8, wasm.OpI64Store8:
		v := byte(h.popValue())
		base := uint32(h.popValue())
		addr := h.checkBounds(mem(), instr.Offset, base, 1)
		mem().Data[addr] = v
	case wasm.OpI32Store16, wasm.OpI64Store16:
		v := uint16(h.popValue())
		base := uint32(h.popValue())
		addr := h.checkBounds(mem(), instr.Offset, base, 2)
		putLe16(mem().Data[addr:], v)
	case wasm.OpI64Store32:
		v := uint32(h.popValue())
		base := uint32(h.popValue())
		addr := h.checkBounds(mem(), instr.Offset, base, 4)
		putLe32(mem().Data[addr:], v)

	case wasm.OpMemorySize:
		h.pushValue(wasm.Value(mem().PageCount()))
	case wasm.OpMemoryGrow:
		n := uint32(h.popValue())
		m := mem()
		old := m.PageCount()
		if m.Type.Limits.HasMax && uint64(old)+uint64(n) > uint64(m.Type.Limits.Max) {
			h.pushValue(wasm.Value(uint32(0xFFFFFFFF)))
		} else if uint64(old)+uint64(n) > wasm.MemoryMaxPages {
			h.pushValue(wasm.Value(uint32(0xFFFFFFFF)))
		} else {
			m.Data = append(m.Data, make([]byte, uint64(n)*wasm.MemoryPageSize)...)
			h.pushValue(wasm.Value(old))
		}
	case wasm.OpMemoryCopy:
		n := uint32(h.popValue())
		src := uint32(h.popValue())
		dst := uint32(h.popValue())
		m := mem()
		if uint64(src)+uint64(n) > uint64(len(m.Data)) || uint64(dst)+uint64(n) > uint64(len(m.Data)) {
			h.trap(wasm.TrapOutOfBoundsMemoryAccess)
		}
		copy(m.Data[dst:dst+n], m.Data[src:src+n])
	case wasm.OpMemoryFill:
		n := uint32(h.popValue())
		v := byte(h.popValue())
		off := uint32(h.popValue())
		m := mem()
		if uint64(off)+uint64(n) > uint64(len(m.Data)) {
			h.trap(wasm.TrapOutOfBoundsMemoryAccess)
		}
		for i := uint32(0); i < n; i++ {
			m.Data[off+i] = v
		}
	case wasm.OpMemoryInit:
		dataAddr := cf.inst.DataAddrs[instr.Index]
		data := &h.store.Datas[dataAddr]
		n := uint32(h.popValue())
		src := uint32(h.popValue())
		dst := uint32(h.popValue())
		m := mem()
		if data.Dropped {
			if n != 0 {
				h.trap(wasm.TrapOutOfBoundsMemoryAccess)
			}
		} else {
			if uint64(src)+uint64(n) > uint64(len(data.Bytes)) || uint64(dst)+uint64(n) > uint64(len(m.Data)) {
				h.trap(wasm.TrapOutOfBoundsMemoryAccess)
			}
			copy(m.Data[dst:dst+n], data.Bytes[src:src+n])
		}
	case wasm.OpDataDrop:
		dataAddr := cf.inst.DataAddrs[instr.Index]
		h.store.Datas[dataAddr].Bytes = nil
		h.store.Datas[dataAddr].Dropped = true

	default:
		h.execNumeric(instr)
		cf.instrPtr++
		return
	}
	cf.instrPtr++
}

func le16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
func le64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}
func putLe16(b []byte, v uint16) { b[0] = byte(v); b[1] = byte(v >> 8) }
func putLe32(b []byte, v uint32) {
	b[0], b[1], b[2], b[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
}
func putLe64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
