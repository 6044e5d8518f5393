package loader

import (
	"fmt"

	"github.com/reefwasm/reef/internal/leb128"
	"github.com/reefwasm/reef/internal/wasm"
)

// cursor is an in-memory read head over a section's payload bytes. It backs
// ParseBytes; ParseReader wraps an io.Reader into a fully buffered []byte up
// front and then drives the very same cursor, since every section's payload
// is length-prefixed and therefore naturally bounded.
type cursor struct {
	buf []byte
	pos int
}

func newCursor(buf []byte) *cursor { return &cursor{buf: buf} }

func (c *cursor) eof() bool { return c.pos >= len(c.buf) }

func (c *cursor) remaining() []byte { return c.buf[c.pos:] }

func (c *cursor) byte() (byte, error) {
	if c.pos >= len(c.buf) {
		return 0, &wasm.ParseError{Reason: "unexpected end of section"}
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

func (c *cursor) bytes(n int) ([]byte, error) {
	if c.pos+n > len(c.buf) {
		return nil, &wasm.ParseError{Reason: "unexpected end of section"}
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *cursor) u32() (uint32, error) {
	v, n, err := leb128.LoadUint32(c.remaining())
	if err != nil {
		return 0, &wasm.ParseError{Reason: fmt.Sprintf("u32: %v", err)}
	}
	c.pos += int(n)
	return v, nil
}

func (c *cursor) u64() (uint64, error) {
	v, n, err := leb128.LoadUint64(c.remaining())
	if err != nil {
		return 0, &wasm.ParseError{Reason: fmt.Sprintf("u64: %v", err)}
	}
	c.pos += int(n)
	return v, nil
}

func (c *cursor) i32() (int32, error) {
	v, n, err := leb128.LoadInt32(c.remaining())
	if err != nil {
		return 0, &wasm.ParseError{Reason: fmt.Sprintf("i32: %v", err)}
	}
	c.pos += int(n)
	return v, nil
}

func (c *cursor) i64() (int64, error) {
	v, n, err := leb128.LoadInt64(c.remaining())
	if err != nil {
		return 0, &wasm.ParseError{Reason: fmt.Sprintf("i64: %v", err)}
	}
	c.pos += int(n)
	return v, nil
}

func (c *cursor) i33() (int64, error) {
	v, n, err := leb128.LoadInt33AsInt64(c.remaining())
	if err != nil {
		return 0, &wasm.ParseError{Reason: fmt.Sprintf("i33: %v", err)}
	}
	c.pos += int(n)
	return v, nil
}

func (c *cursor) f32() (uint32, error) {
	b, err := c.bytes(4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

func (c *cursor) f64() (uint64, error) {
	b, err := c.bytes(8)
	if err != nil {
		return 0, err
	}
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v, nil
}

func (c *cursor) name() (string, error) {
	n, err := c.u32()
	if err != nil {
		return "", err
	}
	b, err := c.bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c *cursor) valType() (wasm.ValType, error) {
	b, err := c.byte()
	if err != nil {
		return 0, err
	}
	t := wasm.ValType(b)
	switch t {
	case wasm.ValTypeI32, wasm.ValTypeI64, wasm.ValTypeF32, wasm.ValTypeF64, wasm.ValTypeFuncRef, wasm.ValTypeExternRef:
		return t, nil
	default:
		return 0, &wasm.ParseError{Reason: fmt.Sprintf("invalid value type byte %#x", b)}
	}
}

func (c *cursor) limits() (wasm.Limits, error) {
	flag, err := c.byte()
	if err != nil {
		return wasm.Limits{}, err
	}
	min, err := c.u32()
	if err != nil {
		return wasm.Limits{}, err
	}
	l := wasm.Limits{Min: min}
	if flag == 1 {
		max, err := c.u32()
		if err != nil {
			return wasm.Limits{}, err
		}
		l.Max = max
		l.HasMax = true
	} else if flag != 0 {
		return wasm.Limits{}, &wasm.ParseError{Reason: fmt.Sprintf("invalid limits flag %#x", flag)}
	}
	return l, nil
}
