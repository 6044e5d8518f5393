// Package snapshot archives and restores a live interpreter call in flight
// (spec §4.6): the value stack, the call-frame stack (with locals and
// block frames), each linear memory's bytes, and each global's cell. The
// format is a versioned, fixed-endianness, self-describing binary blob, per
// SPEC_FULL §4.6.a: fixed-width records via encoding/binary, but vector
// counts use the same uint32 LEB128 encoding the module loader itself uses,
// so a hex dump of a snapshot "reads" the same way a hex dump of a .wasm
// binary does.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/reefwasm/reef/internal/interp"
	"github.com/reefwasm/reef/internal/leb128"
	"github.com/reefwasm/reef/internal/wasm"
)

// magic identifies a reef snapshot blob; version lets a future schema change
// reject old blobs deterministically instead of mis-parsing them (spec's
// "Serialization format evolution" design note).
const (
	magic   = 0x72656566 // "reef" read as a big-endian uint32 (written little-endian)
	version = 1
)

// Serialize captures h's current state (valid between Run calls, at an
// instruction boundary) plus store's live memory and global contents, along
// with enough module-identifying metadata for Restore to reject a blob
// captured against a different module shape.
func Serialize(store *wasm.Store, h *interp.ExecHandle) ([]byte, error) {
	var buf bytes.Buffer

	writeU32(&buf, magic)
	writeU32(&buf, version)

	writeMetadata(&buf, store)

	st := h.State()
	writeLEB(&buf, uint32(len(st.Stack)))
	for _, v := range st.Stack {
		writeU64(&buf, v)
	}

	writeLEB(&buf, uint32(len(st.Frames)))
	for _, fr := range st.Frames {
		writeU32(&buf, fr.FuncAddr)
		writeU32(&buf, uint32(fr.InstrPtr))
		writeU32(&buf, uint32(fr.StackBase))
		writeU32(&buf, uint32(fr.NumResult))

		writeLEB(&buf, uint32(len(fr.Locals)))
		for _, v := range fr.Locals {
			writeU64(&buf, v)
		}

		writeLEB(&buf, uint32(len(fr.Blocks)))
		for _, b := range fr.Blocks {
			writeU32(&buf, uint32(b.StackBase))
			writeU32(&buf, uint32(b.StartIndex))
		}
	}

	writeLEB(&buf, uint32(len(store.Memories)))
	for i := range store.Memories {
		writeLEB(&buf, uint32(len(store.Memories[i].Data)))
		buf.Write(store.Memories[i].Data)
	}

	writeLEB(&buf, uint32(len(store.Globals)))
	for i := range store.Globals {
		writeU64(&buf, store.Globals[i].Value)
	}

	return buf.Bytes(), nil
}

// Restore rebuilds an ExecHandle and overlays store's memories/globals from
// data, a blob previously produced by Serialize against a Store built by the
// same Instantiate sequence (same module, same import order — so function,
// memory and global addresses line up, per the "instantiate_with_state"
// flow in spec §4.6).
func Restore(store *wasm.Store, data []byte) (*interp.ExecHandle, error) {
	c := &cursor{buf: data}

	if got := c.u32(); got != magic {
		return nil, fmt.Errorf("snapshot: bad magic %#x", got)
	}
	if got := c.u32(); got != version {
		return nil, fmt.Errorf("snapshot: unsupported version %d", got)
	}

	if err := checkMetadata(c, store); err != nil {
		return nil, err
	}

	var st interp.State

	stackLen := c.leb()
	st.Stack = make([]wasm.Value, stackLen)
	for i := range st.Stack {
		st.Stack[i] = c.u64()
	}

	frameCount := c.leb()
	st.Frames = make([]interp.FrameState, frameCount)
	for i := range st.Frames {
		fr := &st.Frames[i]
		fr.FuncAddr = c.u32()
		fr.InstrPtr = int(c.u32())
		fr.StackBase = int(c.u32())
		fr.NumResult = int(c.u32())

		localCount := c.leb()
		fr.Locals = make([]wasm.Value, localCount)
		for j := range fr.Locals {
			fr.Locals[j] = c.u64()
		}

		blockCount := c.leb()
		fr.Blocks = make([]interp.BlockState, blockCount)
		for j := range fr.Blocks {
			fr.Blocks[j].StackBase = int(c.u32())
			fr.Blocks[j].StartIndex = int(c.u32())
		}
	}

	memCount := c.leb()
	if int(memCount) != len(store.Memories) {
		return nil, fmt.Errorf("snapshot: memory count mismatch: blob has %d, store has %d", memCount, len(store.Memories))
	}
	for i := uint32(0); i < memCount; i++ {
		n := c.leb()
		store.Memories[i].Data = append([]byte(nil), c.bytes(int(n))...)
	}

	globalCount := c.leb()
	if int(globalCount) != len(store.Globals) {
		return nil, fmt.Errorf("snapshot: global count mismatch: blob has %d, store has %d", globalCount, len(store.Globals))
	}
	for i := uint32(0); i < globalCount; i++ {
		store.Globals[i].Value = c.u64()
	}

	if c.err != nil {
		return nil, c.err
	}

	return interp.FromState(store, st), nil
}

func writeMetadata(buf *bytes.Buffer, store *wasm.Store) {
	writeLEB(buf, uint32(len(store.Functions)))
	writeLEB(buf, uint32(len(store.Memories)))
	writeLEB(buf, uint32(len(store.Globals)))
	for i := range store.Functions {
		t := store.Functions[i].Type
		writeLEB(buf, uint32(len(t.Params)))
		for _, p := range t.Params {
			buf.WriteByte(byte(p))
		}
		writeLEB(buf, uint32(len(t.Results)))
		for _, r := range t.Results {
			buf.WriteByte(byte(r))
		}
	}
}

func checkMetadata(c *cursor, store *wasm.Store) error {
	funcCount := c.leb()
	memCount := c.leb()
	globalCount := c.leb()
	if int(funcCount) != len(store.Functions) {
		return fmt.Errorf("snapshot: function count mismatch: blob has %d, store has %d", funcCount, len(store.Functions))
	}
	if int(memCount) != len(store.Memories) {
		return fmt.Errorf("snapshot: memory count mismatch in metadata: blob has %d, store has %d", memCount, len(store.Memories))
	}
	if int(globalCount) != len(store.Globals) {
		return fmt.Errorf("snapshot: global count mismatch in metadata: blob has %d, store has %d", globalCount, len(store.Globals))
	}
	for i := uint32(0); i < funcCount; i++ {
		pc := c.leb()
		params := c.bytes(int(pc))
		rc := c.leb()
		results := c.bytes(int(rc))
		if c.err != nil {
			return c.err
		}
		t := store.Functions[i].Type
		if !sameValTypes(params, t.Params) || !sameValTypes(results, t.Results) {
			return fmt.Errorf("snapshot: function %d signature mismatch", i)
		}
	}
	return nil
}

func sameValTypes(raw []byte, types []wasm.ValType) bool {
	if len(raw) != len(types) {
		return false
	}
	for i, b := range raw {
		if wasm.ValType(b) != types[i] {
			return false
		}
	}
	return true
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	buf.Write(tmp[:])
}

func writeLEB(buf *bytes.Buffer, v uint32) {
	buf.Write(leb128.EncodeUint32(v))
}

// cursor is a minimal forward-only reader over a snapshot blob, mirroring
// the loader's own cursor in spirit (stop at first error, let the caller
// check once at the end) but scoped to snapshot's own fixed/LEB128 mix.
type cursor struct {
	buf []byte
	pos int
	err error
}

func (c *cursor) u32() uint32 {
	if c.err != nil || c.pos+4 > len(c.buf) {
		c.fail()
		return 0
	}
	v := binary.LittleEndian.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v
}

func (c *cursor) u64() uint64 {
	if c.err != nil || c.pos+8 > len(c.buf) {
		c.fail()
		return 0
	}
	v := binary.LittleEndian.Uint64(c.buf[c.pos:])
	c.pos += 8
	return v
}

func (c *cursor) leb() uint32 {
	if c.err != nil {
		return 0
	}
	v, n, err := leb128.LoadUint32(c.buf[c.pos:])
	if err != nil {
		c.err = fmt.Errorf("snapshot: %w", err)
		return 0
	}
	c.pos += int(n)
	return v
}

func (c *cursor) bytes(n int) []byte {
	if c.err != nil || c.pos+n > len(c.buf) {
		c.fail()
		return nil
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b
}

func (c *cursor) fail() {
	if c.err == nil {
		c.err = fmt.Errorf("snapshot: truncated blob")
	}
}
