package wasm

import "math"

// Value is the uniform raw 64-bit cell that every Wasm value (i32, i64, f32,
// f64, funcref, externref) is represented as on the value stack, in locals,
// and in globals. No runtime type tag travels with it: arithmetic operators
// reinterpret the bits according to the static type the validator attached
// to the producing instruction (spec data model: "Raw value").
type Value = uint64

// EncodeI32 widens a signed 32-bit value into a raw cell.
func EncodeI32(v int32) Value { return uint64(uint32(v)) }

// DecodeI32 narrows a raw cell back into a signed 32-bit value.
func DecodeI32(v Value) int32 { return int32(uint32(v)) }

// EncodeU32 widens an unsigned 32-bit value into a raw cell.
func EncodeU32(v uint32) Value { return uint64(v) }

// DecodeU32 narrows a raw cell into an unsigned 32-bit value.
func DecodeU32(v Value) uint32 { return uint32(v) }

// EncodeI64 is the identity conversion, kept for symmetry with the other
// scalar encoders.
func EncodeI64(v int64) Value { return uint64(v) }

// DecodeI64 narrows a raw cell into a signed 64-bit value.
func DecodeI64(v Value) int64 { return int64(v) }

// EncodeF32 stores a float32's bit pattern in the low 32 bits of a raw cell.
func EncodeF32(v float32) Value { return uint64(math.Float32bits(v)) }

// DecodeF32 recovers a float32 from the low 32 bits of a raw cell.
func DecodeF32(v Value) float32 { return math.Float32frombits(uint32(v)) }

// EncodeF64 stores a float64's bit pattern verbatim in a raw cell.
func EncodeF64(v float64) Value { return math.Float64bits(v) }

// DecodeF64 recovers a float64 from a raw cell.
func DecodeF64(v Value) float64 { return math.Float64frombits(v) }
