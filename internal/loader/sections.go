package loader

import (
	"fmt"

	"github.com/reefwasm/reef/internal/wasm"
)

func decodeTypeSection(c *cursor) ([]*wasm.FunctionType, error) {
	count, err := c.u32()
	if err != nil {
		return nil, err
	}
	types := make([]*wasm.FunctionType, count)
	for i := range types {
		tag, err := c.byte()
		if err != nil {
			return nil, err
		}
		if tag != 0x60 {
			return nil, &wasm.ParseError{Reason: fmt.Sprintf("invalid function type tag %#x", tag)}
		}
		params, err := decodeValTypeVec(c)
		if err != nil {
			return nil, err
		}
		results, err := decodeValTypeVec(c)
		if err != nil {
			return nil, err
		}
		types[i] = &wasm.FunctionType{Params: params, Results: results}
	}
	return types, nil
}

func decodeValTypeVec(c *cursor) ([]wasm.ValType, error) {
	n, err := c.u32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]wasm.ValType, n)
	for i := range out {
		out[i], err = c.valType()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func decodeImportSection(c *cursor, types []*wasm.FunctionType) ([]wasm.Import, error) {
	count, err := c.u32()
	if err != nil {
		return nil, err
	}
	imports := make([]wasm.Import, count)
	for i := range imports {
		mod, err := c.name()
		if err != nil {
			return nil, err
		}
		field, err := c.name()
		if err != nil {
			return nil, err
		}
		kindByte, err := c.byte()
		if err != nil {
			return nil, err
		}
		im := wasm.Import{Module: mod, Field: field}
		switch kindByte {
		case 0x00:
			im.Kind = wasm.ImportKindFunc
			idx, err := c.u32()
			if err != nil {
				return nil, err
			}
			if int(idx) >= len(types) {
				return nil, &wasm.ParseError{Reason: "import function type index out of range"}
			}
			im.FuncType = types[idx]
		case 0x01:
			im.Kind = wasm.ImportKindTable
			elemType, err := c.valType()
			if err != nil {
				return nil, err
			}
			lim, err := c.limits()
			if err != nil {
				return nil, err
			}
			im.TableType = &wasm.TableType{ElemType: elemType, Limits: lim}
		case 0x02:
			im.Kind = wasm.ImportKindMemory
			lim, err := c.limits()
			if err != nil {
				return nil, err
			}
			im.MemoryType = &wasm.MemoryType{Limits: lim}
		case 0x03:
			im.Kind = wasm.ImportKindGlobal
			vt, err := c.valType()
			if err != nil {
				return nil, err
			}
			mutByte, err := c.byte()
			if err != nil {
				return nil, err
			}
			im.GlobalType = &wasm.GlobalType{ValType: vt, Mutable: mutByte == 1}
		default:
			return nil, &wasm.ParseError{Reason: fmt.Sprintf("invalid import kind %#x", kindByte)}
		}
		imports[i] = im
	}
	return imports, nil
}

func decodeFunctionSection(c *cursor) ([]uint32, error) {
	count, err := c.u32()
	if err != nil {
		return nil, err
	}
	out := make([]uint32, count)
	for i := range out {
		out[i], err = c.u32()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func decodeTableSection(c *cursor) ([]*wasm.TableType, error) {
	count, err := c.u32()
	if err != nil {
		return nil, err
	}
	out := make([]*wasm.TableType, count)
	for i := range out {
		elemType, err := c.valType()
		if err != nil {
			return nil, err
		}
		lim, err := c.limits()
		if err != nil {
			return nil, err
		}
		out[i] = &wasm.TableType{ElemType: elemType, Limits: lim}
	}
	return out, nil
}

func decodeMemorySection(c *cursor) ([]*wasm.MemoryType, error) {
	count, err := c.u32()
	if err != nil {
		return nil, err
	}
	out := make([]*wasm.MemoryType, count)
	for i := range out {
		lim, err := c.limits()
		if err != nil {
			return nil, err
		}
		if lim.Min > wasm.MemoryMaxPages || (lim.HasMax && lim.Max > wasm.MemoryMaxPages) {
			return nil, &wasm.ValidationError{Reason: "memory limits exceed the maximum page count"}
		}
		out[i] = &wasm.MemoryType{Limits: lim}
	}
	return out, nil
}

func decodeConstExpr(c *cursor, types []*wasm.FunctionType) (wasm.ConstExpr, error) {
	instrs, err := decodeInstructions(c, types)
	if err != nil {
		return wasm.ConstExpr{}, err
	}
	// decodeInstructions returns the full stream including the terminating
	// End; a const expr is exactly one value-producing instruction plus End.
	if len(instrs) == 0 {
		return wasm.ConstExpr{}, &wasm.ParseError{Reason: "empty constant expression"}
	}
	if len(instrs) != 2 || instrs[1].Op != wasm.OpEnd {
		return wasm.ConstExpr{}, &wasm.ValidationError{Reason: "constant expression must contain exactly one instruction"}
	}
	return wasm.ConstExpr{Instr: instrs[0]}, nil
}

func decodeGlobalSection(c *cursor, types []*wasm.FunctionType) ([]wasm.Global, error) {
	count, err := c.u32()
	if err != nil {
		return nil, err
	}
	out := make([]wasm.Global, count)
	for i := range out {
		vt, err := c.valType()
		if err != nil {
			return nil, err
		}
		mutByte, err := c.byte()
		if err != nil {
			return nil, err
		}
		init, err := decodeConstExpr(c, types)
		if err != nil {
			return nil, err
		}
		out[i] = wasm.Global{Type: &wasm.GlobalType{ValType: vt, Mutable: mutByte == 1}, Init: init}
	}
	return out, nil
}

func decodeExportSection(c *cursor) ([]wasm.Export, error) {
	count, err := c.u32()
	if err != nil {
		return nil, err
	}
	out := make([]wasm.Export, count)
	for i := range out {
		name, err := c.name()
		if err != nil {
			return nil, err
		}
		kindByte, err := c.byte()
		if err != nil {
			return nil, err
		}
		idx, err := c.u32()
		if err != nil {
			return nil, err
		}
		var kind wasm.ImportKind
		switch kindByte {
		case 0x00:
			kind = wasm.ImportKindFunc
		case 0x01:
			kind = wasm.ImportKindTable
		case 0x02:
			kind = wasm.ImportKindMemory
		case 0x03:
			kind = wasm.ImportKindGlobal
		default:
			return nil, &wasm.ParseError{Reason: fmt.Sprintf("invalid export kind %#x", kindByte)}
		}
		out[i] = wasm.Export{Name: name, Kind: kind, Index: idx}
	}
	return out, nil
}

func decodeStartSection(c *cursor) (uint32, error) {
	return c.u32()
}

// decodeElementSection handles all eight element-segment encodings added
// incrementally by bulk_memory/reference_types (flags 0 through 7 of the
// MVP's original single active-only encoding).
func decodeElementSection(c *cursor, types []*wasm.FunctionType) ([]wasm.ElementSegment, error) {
	count, err := c.u32()
	if err != nil {
		return nil, err
	}
	out := make([]wasm.ElementSegment, count)
	for i := range out {
		flags, err := c.u32()
		if err != nil {
			return nil, err
		}
		seg := wasm.ElementSegment{ElemType: wasm.ValTypeFuncRef}

		active := flags&0x1 == 0
		hasExplicitTable := flags&0x2 != 0
		exprInit := flags&0x4 != 0

		if active {
			seg.Mode = wasm.ElementModeActive
			if hasExplicitTable {
				seg.TableIdx, err = c.u32()
				if err != nil {
					return nil, err
				}
			}
			seg.Offset, err = decodeConstExpr(c, types)
			if err != nil {
				return nil, err
			}
		} else if flags&0x2 != 0 {
			seg.Mode = wasm.ElementModeDeclared
		} else {
			seg.Mode = wasm.ElementModePassive
		}

		if !active {
			// passive/declared encode an elemkind or reftype byte before the
			// element vector, even when the vector itself holds func indices.
			if exprInit {
				seg.ElemType, err = c.valType()
			} else {
				var kindByte byte
				kindByte, err = c.byte()
				if err == nil && kindByte != 0x00 {
					err = &wasm.ParseError{Reason: "invalid elemkind byte"}
				}
			}
			if err != nil {
				return nil, err
			}
		} else if hasExplicitTable {
			if exprInit {
				seg.ElemType, err = c.valType()
			} else {
				var kindByte byte
				kindByte, err = c.byte()
				if err == nil && kindByte != 0x00 {
					err = &wasm.ParseError{Reason: "invalid elemkind byte"}
				}
			}
			if err != nil {
				return nil, err
			}
		}

		n, err := c.u32()
		if err != nil {
			return nil, err
		}
		init := make([]wasm.ConstExpr, n)
		for j := range init {
			if exprInit {
				init[j], err = decodeConstExpr(c, types)
				if err != nil {
					return nil, err
				}
			} else {
				idx, err := c.u32()
				if err != nil {
					return nil, err
				}
				init[j] = wasm.ConstExpr{Instr: wasm.Instruction{Op: wasm.OpRefFunc, Index: idx}}
			}
		}
		seg.Init = init
		out[i] = seg
	}
	return out, nil
}

func decodeDataSection(c *cursor, types []*wasm.FunctionType) ([]wasm.DataSegment, error) {
	count, err := c.u32()
	if err != nil {
		return nil, err
	}
	out := make([]wasm.DataSegment, count)
	for i := range out {
		flags, err := c.u32()
		if err != nil {
			return nil, err
		}
		seg := wasm.DataSegment{}
		switch flags {
		case 0:
			seg.Mode = wasm.DataModeActive
			seg.Offset, err = decodeConstExpr(c, types)
			if err != nil {
				return nil, err
			}
		case 1:
			seg.Mode = wasm.DataModePassive
		case 2:
			seg.Mode = wasm.DataModeActive
			seg.MemIdx, err = c.u32()
			if err != nil {
				return nil, err
			}
			seg.Offset, err = decodeConstExpr(c, types)
			if err != nil {
				return nil, err
			}
		default:
			return nil, &wasm.ParseError{Reason: fmt.Sprintf("invalid data segment flags %d", flags)}
		}
		n, err := c.u32()
		if err != nil {
			return nil, err
		}
		b, err := c.bytes(int(n))
		if err != nil {
			return nil, err
		}
		seg.Init = append([]byte(nil), b...)
		out[i] = seg
	}
	return out, nil
}
