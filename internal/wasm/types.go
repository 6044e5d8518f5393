package wasm

import "strings"

// FunctionType is a function signature: an ordered list of parameter types
// and an ordered list of result types (multi_value allows more than one
// result).
type FunctionType struct {
	Params  []ValType
	Results []ValType
}

// key returns a string uniquely identifying the signature, used both to
// dedupe FunctionTypeIDs in the Store and for indirect-call type checks.
func (t *FunctionType) key() string {
	var sb strings.Builder
	for _, p := range t.Params {
		sb.WriteByte(byte(p))
	}
	sb.WriteByte(0)
	for _, r := range t.Results {
		sb.WriteByte(byte(r))
	}
	return sb.String()
}

// Equal reports whether two signatures are structurally identical, as
// required when linking a function import (spec §4.3 step 1).
func (t *FunctionType) Equal(o *FunctionType) bool {
	return t.key() == o.key()
}

// Limits is the min/max pair shared by table and memory types. Max is
// optional; HasMax distinguishes an explicit max of 0 from "no max".
type Limits struct {
	Min    uint32
	Max    uint32
	HasMax bool
}

// MemoryMaxPages is the hard Wasm 1.0 cap on linear memory: 65536 pages of
// 64 KiB each (4 GiB of address space).
const MemoryMaxPages = 65536

// MemoryPageSize is 64 KiB, the granularity of memory.grow and the declared
// memory limits.
const MemoryPageSize = 65536

// TableType describes a table's element type and size limits. Wasm 1.0 only
// has funcref tables; reference_types adds externref tables.
type TableType struct {
	ElemType ValType
	Limits   Limits
}

// MemoryType describes a linear memory's size limits, in pages.
type MemoryType struct {
	Limits Limits
}

// GlobalType describes a global's value type and mutability.
type GlobalType struct {
	ValType ValType
	Mutable bool
}
