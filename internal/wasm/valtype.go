package wasm

// ValType is a numeric or reference type usable as a local, parameter,
// result, global or table element type. All values are represented as a raw
// 64-bit cell at runtime (see Value); ValType is only consulted by the
// validator and by conversions at the Go <-> Wasm boundary.
type ValType byte

const (
	ValTypeI32       ValType = 0x7f
	ValTypeI64       ValType = 0x7e
	ValTypeF32       ValType = 0x7d
	ValTypeF64       ValType = 0x7c
	ValTypeFuncRef   ValType = 0x70
	ValTypeExternRef ValType = 0x6f
)

func (v ValType) String() string {
	switch v {
	case ValTypeI32:
		return "i32"
	case ValTypeI64:
		return "i64"
	case ValTypeF32:
		return "f32"
	case ValTypeF64:
		return "f64"
	case ValTypeFuncRef:
		return "funcref"
	case ValTypeExternRef:
		return "externref"
	default:
		return "unknown"
	}
}

// IsReference reports whether v is one of the two reference types reef
// supports (funcref, externref). SIMD/GC-proposal reference types are out of
// scope.
func (v ValType) IsReference() bool {
	return v == ValTypeFuncRef || v == ValTypeExternRef
}

// RefNull is the sentinel raw-cell value for a null reference, chosen so it
// never aliases a valid table index or heap address on supported platforms.
const RefNull = ^uint64(0)
