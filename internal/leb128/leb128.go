// Package leb128 implements the LEB128 variable-length integer encoding used
// throughout the Wasm binary format for indices, counts and signed
// constants.
package leb128

import (
	"fmt"
	"io"
)

const (
	maxVarintLen32 = 5
)

// DecodeUint32 reads an unsigned LEB128 value from r, returning an error if
// it overflows 32 bits or the stream ends early.
func DecodeUint32(r io.ByteReader) (uint32, uint64, error) {
	var result uint32
	var shift, bytesRead uint32
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, 0, fmt.Errorf("reading leb128: %w", err)
		}
		bytesRead++
		if shift == 28 && b&0xf0 != 0 {
			return 0, 0, fmt.Errorf("leb128: overflows a 32-bit integer")
		}
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, uint64(bytesRead), nil
		}
		shift += 7
		if shift >= maxVarintLen32*7 {
			return 0, 0, fmt.Errorf("leb128: invalid varint")
		}
	}
}

// DecodeInt32 reads a signed LEB128 value from r truncated to 32 bits.
func DecodeInt32(r io.ByteReader) (int32, uint64, error) {
	v, n, err := decodeSignedReader(r, 32)
	return int32(v), n, err
}

// DecodeInt64 reads a signed LEB128 value from r.
func DecodeInt64(r io.ByteReader) (int64, uint64, error) {
	return decodeSignedReader(r, 64)
}

// DecodeUint64 reads an unsigned LEB128 value from r.
func DecodeUint64(r io.ByteReader) (uint64, uint64, error) {
	var result uint64
	var shift uint
	var bytesRead uint64
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, 0, fmt.Errorf("reading leb128: %w", err)
		}
		bytesRead++
		if shift == 63 && b&0xfe != 0 {
			return 0, 0, fmt.Errorf("leb128: overflows a 64-bit integer")
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, bytesRead, nil
		}
		shift += 7
	}
}

// DecodeInt33AsInt64 reads a signed 33-bit LEB128 value (used for the s33
// block-type immediate, which is either a negative valtype tag or a
// non-negative type index) and sign-extends it into an int64.
func DecodeInt33AsInt64(r io.ByteReader) (int64, uint64, error) {
	return decodeSignedReader(r, 33)
}

func decodeSignedReader(r io.ByteReader, size int) (int64, uint64, error) {
	var result int64
	var shift uint
	var bytesRead uint64
	var b byte
	var err error
	for {
		b, err = r.ReadByte()
		if err != nil {
			return 0, 0, fmt.Errorf("reading leb128: %w", err)
		}
		bytesRead++
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
		if int(shift) >= size {
			return 0, 0, fmt.Errorf("leb128: invalid varint")
		}
	}
	if shift < uint(size) && b&0x40 != 0 {
		result |= -1 << shift
	}
	return result, bytesRead, nil
}

// LoadUint32 decodes an unsigned LEB128 value from the head of buf, also
// returning the number of bytes consumed. Unlike DecodeUint32 it operates
// directly on the byte slice rather than through an io.ByteReader.
func LoadUint32(buf []byte) (uint32, uint64, error) {
	var result uint32
	var shift uint32
	for i, b := range buf {
		if shift == 28 && b&0xf0 != 0 {
			return 0, 0, fmt.Errorf("leb128: overflows a 32-bit integer")
		}
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, uint64(i + 1), nil
		}
		shift += 7
		if shift >= maxVarintLen32*7 {
			return 0, 0, fmt.Errorf("leb128: invalid varint")
		}
	}
	return 0, 0, fmt.Errorf("leb128: unexpected end of buffer")
}

// LoadUint64 decodes an unsigned LEB128 value from the head of buf.
func LoadUint64(buf []byte) (uint64, uint64, error) {
	var result uint64
	var shift uint
	for i, b := range buf {
		if shift == 63 && b&0xfe != 0 {
			return 0, 0, fmt.Errorf("leb128: overflows a 64-bit integer")
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, uint64(i + 1), nil
		}
		shift += 7
	}
	return 0, 0, fmt.Errorf("leb128: unexpected end of buffer")
}

// LoadInt32 decodes a signed LEB128 value from the head of buf.
func LoadInt32(buf []byte) (int32, uint64, error) {
	v, n, err := loadSigned(buf, 32)
	return int32(v), n, err
}

// LoadInt64 decodes a signed LEB128 value from the head of buf.
func LoadInt64(buf []byte) (int64, uint64, error) {
	return loadSigned(buf, 64)
}

// LoadInt33AsInt64 decodes a signed 33-bit LEB128 value from the head of buf
// (the s33 block-type immediate), sign-extended into an int64.
func LoadInt33AsInt64(buf []byte) (int64, uint64, error) {
	return loadSigned(buf, 33)
}

func loadSigned(buf []byte, size int) (int64, uint64, error) {
	var result int64
	var shift uint
	var i int
	var b byte
	for i, b = range buf {
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < uint(size) && b&0x40 != 0 {
				result |= -1 << shift
			}
			if shift > uint(size) {
				// the final byte's bits above the size-bit value must all
				// repeat its sign bit.
				k := uint(size) - (shift - 7)
				p := int64(b & 0x7f)
				if p<<57>>57 != p<<(64-k)>>(64-k) {
					return 0, 0, fmt.Errorf("leb128: overflows a %d-bit integer", size)
				}
			}
			return result, uint64(i + 1), nil
		}
		if int(shift) >= size {
			return 0, 0, fmt.Errorf("leb128: invalid varint")
		}
	}
	return 0, 0, fmt.Errorf("leb128: unexpected end of buffer")
}

// EncodeInt32 encodes v as signed LEB128.
func EncodeInt32(v int32) []byte {
	return EncodeInt64(int64(v))
}

// EncodeInt64 encodes v as signed LEB128.
func EncodeInt64(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			out = append(out, b)
			return out
		}
		out = append(out, b|0x80)
	}
}

// EncodeUint32 encodes v as unsigned LEB128.
func EncodeUint32(v uint32) []byte {
	return EncodeUint64(uint64(v))
}

// EncodeUint64 encodes v as unsigned LEB128.
func EncodeUint64(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			out = append(out, b)
			return out
		}
		out = append(out, b|0x80)
	}
}
