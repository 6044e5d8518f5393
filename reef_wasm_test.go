package reef_test

// This file hand-assembles small Wasm binaries byte-by-byte, the way
// internal/loader's own decoder_test.go does, so the embedder-facing
// end-to-end scenarios in spec.md §8 can run against real module bytes
// without depending on an external wat2wasm toolchain.

import (
	"github.com/reefwasm/reef/internal/leb128"
)

func header() []byte {
	return []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
}

func section(id byte, payload []byte) []byte {
	out := []byte{id}
	out = append(out, leb128.EncodeUint32(uint32(len(payload)))...)
	return append(out, payload...)
}

func vec(n int) []byte { return leb128.EncodeUint32(uint32(n)) }

func nameBytes(s string) []byte {
	out := vec(len(s))
	return append(out, []byte(s)...)
}

func i32const(v int32) []byte {
	return append([]byte{0x41}, leb128.EncodeInt32(v)...)
}

const (
	opUnreachable = 0x00
	opBlock       = 0x02
	opLoop        = 0x03
	opEnd         = 0x0B
	opBr          = 0x0C
	opBrIf        = 0x0D
	opCall        = 0x10
	opDrop        = 0x1A
	opLocalGet    = 0x20
	opLocalSet    = 0x21
	opMemoryGrow  = 0x40
	opI32GeS      = 0x4E
	opI32Add      = 0x6A
	opI32DivS     = 0x6D
	blockTypeVoid = 0x40
)

func u32idx(op byte, idx uint32) []byte {
	return append([]byte{op}, leb128.EncodeUint32(idx)...)
}

// buildAddModule builds a module exporting "add": (i32,i32)->i32 computing
// local.get 0 + local.get 1 (spec.md §8 end-to-end scenario 1).
func buildAddModule() []byte {
	bin := header()

	typeSec := vec(1)
	typeSec = append(typeSec, 0x60)
	typeSec = append(typeSec, vec(2)...)
	typeSec = append(typeSec, 0x7f, 0x7f) // (i32,i32)
	typeSec = append(typeSec, vec(1)...)
	typeSec = append(typeSec, 0x7f) // -> i32
	bin = append(bin, section(1, typeSec)...)

	funcSec := append(vec(1), 0x00)
	bin = append(bin, section(3, funcSec)...)

	exportSec := vec(1)
	exportSec = append(exportSec, nameBytes("add")...)
	exportSec = append(exportSec, 0x00, 0x00)
	bin = append(bin, section(7, exportSec)...)

	body := []byte{0x00} // no locals
	body = append(body, u32idx(opLocalGet, 0)...)
	body = append(body, u32idx(opLocalGet, 1)...)
	body = append(body, opI32Add)
	body = append(body, opEnd)
	codeSec := vec(1)
	codeSec = append(codeSec, append(vec(len(body)), body...)...)
	bin = append(bin, section(10, codeSec)...)

	return bin
}

// buildFibModule builds a module exporting "fib": (i32)->i32, computing the
// nth Fibonacci number (F(0)=0, F(1)=1, ...) iteratively, so fib(30)==832040
// (spec.md §8 end-to-end scenario 3 and 6).
//
// Locals: 0=n (param), 1=a, 2=b, 3=i, 4=temp.
func buildFibModule() []byte {
	bin := header()

	typeSec := vec(1)
	typeSec = append(typeSec, 0x60)
	typeSec = append(typeSec, vec(1)...)
	typeSec = append(typeSec, 0x7f)
	typeSec = append(typeSec, vec(1)...)
	typeSec = append(typeSec, 0x7f)
	bin = append(bin, section(1, typeSec)...)

	funcSec := append(vec(1), 0x00)
	bin = append(bin, section(3, funcSec)...)

	exportSec := vec(1)
	exportSec = append(exportSec, nameBytes("fib")...)
	exportSec = append(exportSec, 0x00, 0x00)
	bin = append(bin, section(7, exportSec)...)

	var body []byte
	// local decl: 1 group of 4 i32 locals (a, b, i, temp)
	body = append(body, vec(1)...)
	body = append(body, leb128.EncodeUint32(4)...)
	body = append(body, 0x7f)

	body = append(body, i32const(1)...)
	body = append(body, u32idx(opLocalSet, 2)...) // b = 1

	body = append(body, opBlock, blockTypeVoid)
	body = append(body, opLoop, blockTypeVoid)
	body = append(body, u32idx(opLocalGet, 3)...) // i
	body = append(body, u32idx(opLocalGet, 0)...) // n
	body = append(body, opI32GeS)
	body = append(body, u32idx(opBrIf, 1)...) // i >= n -> exit block

	body = append(body, u32idx(opLocalGet, 1)...) // a
	body = append(body, u32idx(opLocalGet, 2)...) // b
	body = append(body, opI32Add)
	body = append(body, u32idx(opLocalSet, 4)...) // temp = a+b
	body = append(body, u32idx(opLocalGet, 2)...) // b
	body = append(body, u32idx(opLocalSet, 1)...) // a = b
	body = append(body, u32idx(opLocalGet, 4)...) // temp
	body = append(body, u32idx(opLocalSet, 2)...) // b = temp
	body = append(body, u32idx(opLocalGet, 3)...) // i
	body = append(body, i32const(1)...)
	body = append(body, opI32Add)
	body = append(body, u32idx(opLocalSet, 3)...) // i = i+1
	body = append(body, u32idx(opBr, 0)...)       // loop again

	body = append(body, opEnd) // end loop
	body = append(body, opEnd) // end block

	body = append(body, u32idx(opLocalGet, 1)...) // return a
	body = append(body, opEnd)

	codeSec := vec(1)
	codeSec = append(codeSec, append(vec(len(body)), body...)...)
	bin = append(bin, section(10, codeSec)...)

	return bin
}

// buildMemoryGrowModule builds a module with memory (min 1, max 64) and
// exports "grow100" (no params, i32 result) returning memory.grow(100), plus
// "size" returning memory.size (spec.md §8 end-to-end scenario 4).
func buildMemoryGrowModule() []byte {
	bin := header()

	typeSec := vec(1)
	typeSec = append(typeSec, 0x60, 0x00)
	typeSec = append(typeSec, vec(1)...)
	typeSec = append(typeSec, 0x7f)
	bin = append(bin, section(1, typeSec)...)

	funcSec := append(vec(2), 0x00, 0x00)
	bin = append(bin, section(3, funcSec)...)

	memSec := vec(1)
	memSec = append(memSec, 0x01, 0x01, 0x40) // flag=has-max, min=1, max=64
	bin = append(bin, section(5, memSec)...)

	exportSec := vec(2)
	exportSec = append(exportSec, nameBytes("grow100")...)
	exportSec = append(exportSec, 0x00, 0x00)
	exportSec = append(exportSec, nameBytes("size")...)
	exportSec = append(exportSec, 0x00, 0x01)
	bin = append(bin, section(7, exportSec)...)

	grow100 := []byte{0x00}
	grow100 = append(grow100, i32const(100)...)
	grow100 = append(grow100, opMemoryGrow, 0x00)
	grow100 = append(grow100, opEnd)

	size := []byte{0x00}
	size = append(size, 0x3F, 0x00) // memory.size
	size = append(size, opEnd)

	codeSec := vec(2)
	codeSec = append(codeSec, append(vec(len(grow100)), grow100...)...)
	codeSec = append(codeSec, append(vec(len(size)), size...)...)
	bin = append(bin, section(10, codeSec)...)

	return bin
}

// buildUnreachableModule builds a module exporting "boom" (no params, no
// results) that immediately traps (spec.md §8 end-to-end scenario 5).
func buildUnreachableModule() []byte {
	bin := header()

	typeSec := vec(1)
	typeSec = append(typeSec, 0x60, 0x00, 0x00)
	bin = append(bin, section(1, typeSec)...)

	funcSec := append(vec(1), 0x00)
	bin = append(bin, section(3, funcSec)...)

	exportSec := vec(1)
	exportSec = append(exportSec, nameBytes("boom")...)
	exportSec = append(exportSec, 0x00, 0x00)
	bin = append(bin, section(7, exportSec)...)

	body := []byte{0x00, opUnreachable, opEnd}
	codeSec := vec(1)
	codeSec = append(codeSec, append(vec(len(body)), body...)...)
	bin = append(bin, section(10, codeSec)...)

	return bin
}

// buildHelloModule builds a module with a data segment spelling "Hello
// World!" at offset 0, a start function that calls the imported
// reef.log(ptr, len), and a memory big enough to hold it (spec.md §8
// end-to-end scenario 2).
func buildHelloModule() []byte {
	bin := header()
	msg := "Hello World!"

	typeSec := vec(2)
	// type 0: (i32,i32) -> () for the import
	typeSec = append(typeSec, 0x60)
	typeSec = append(typeSec, vec(2)...)
	typeSec = append(typeSec, 0x7f, 0x7f)
	typeSec = append(typeSec, vec(0)...)
	// type 1: () -> () for the start function
	typeSec = append(typeSec, 0x60, 0x00, 0x00)
	bin = append(bin, section(1, typeSec)...)

	importSec := vec(1)
	importSec = append(importSec, nameBytes("reef")...)
	importSec = append(importSec, nameBytes("log")...)
	importSec = append(importSec, 0x00) // func import
	importSec = append(importSec, leb128.EncodeUint32(0)...)
	bin = append(bin, section(2, importSec)...)

	funcSec := append(vec(1), 0x01) // one defined func, type 1
	bin = append(bin, section(3, funcSec)...)

	memSec := vec(1)
	memSec = append(memSec, 0x00, 0x01) // flag=no-max, min=1 page
	bin = append(bin, section(5, memSec)...)

	startSec := leb128.EncodeUint32(1) // func index 1 (0 is the import)
	bin = append(bin, section(8, startSec)...)

	body := []byte{0x00}
	body = append(body, i32const(0)...)
	body = append(body, i32const(int32(len(msg)))...)
	body = append(body, u32idx(opCall, 0)...)
	body = append(body, opEnd)
	codeSec := vec(1)
	codeSec = append(codeSec, append(vec(len(body)), body...)...)
	bin = append(bin, section(10, codeSec)...)

	dataSec := vec(1)
	dataSec = append(dataSec, 0x00) // active, memory 0
	dataSec = append(dataSec, i32const(0)...)
	dataSec = append(dataSec, opEnd)
	dataSec = append(dataSec, vec(len(msg))...)
	dataSec = append(dataSec, []byte(msg)...)
	bin = append(bin, section(11, dataSec)...)

	return bin
}

// buildDivModule builds a module exporting "div_s": (i32,i32)->i32 computing
// local.get 0 / local.get 1 as a signed division, so callers can exercise
// both IntegerOverflow (INT_MIN / -1) and IntegerDivByZero (x / 0) traps.
func buildDivModule() []byte {
	bin := header()

	typeSec := vec(1)
	typeSec = append(typeSec, 0x60)
	typeSec = append(typeSec, vec(2)...)
	typeSec = append(typeSec, 0x7f, 0x7f)
	typeSec = append(typeSec, vec(1)...)
	typeSec = append(typeSec, 0x7f)
	bin = append(bin, section(1, typeSec)...)

	funcSec := append(vec(1), 0x00)
	bin = append(bin, section(3, funcSec)...)

	exportSec := vec(1)
	exportSec = append(exportSec, nameBytes("div_s")...)
	exportSec = append(exportSec, 0x00, 0x00)
	bin = append(bin, section(7, exportSec)...)

	body := []byte{0x00}
	body = append(body, u32idx(opLocalGet, 0)...)
	body = append(body, u32idx(opLocalGet, 1)...)
	body = append(body, opI32DivS)
	body = append(body, opEnd)
	codeSec := vec(1)
	codeSec = append(codeSec, append(vec(len(body)), body...)...)
	bin = append(bin, section(10, codeSec)...)

	return bin
}

// buildLabelArgModule builds a module exporting "labelarg" (no params, i32
// result) that pushes 1, 2, 3 then branches out of a block with result
// arity 1, to check that exactly the top cell survives the branch (spec.md
// §8 "Label-argument correctness").
func buildLabelArgModule() []byte {
	bin := header()

	typeSec := vec(1)
	typeSec = append(typeSec, 0x60, 0x00)
	typeSec = append(typeSec, vec(1)...)
	typeSec = append(typeSec, 0x7f)
	bin = append(bin, section(1, typeSec)...)

	funcSec := append(vec(1), 0x00)
	bin = append(bin, section(3, funcSec)...)

	exportSec := vec(1)
	exportSec = append(exportSec, nameBytes("labelarg")...)
	exportSec = append(exportSec, 0x00, 0x00)
	bin = append(bin, section(7, exportSec)...)

	body := []byte{0x00}
	body = append(body, opBlock, 0x7f) // block (i32)
	body = append(body, i32const(1)...)
	body = append(body, i32const(2)...)
	body = append(body, i32const(3)...)
	body = append(body, u32idx(opBr, 0)...)
	body = append(body, opEnd) // end block
	body = append(body, opEnd) // end func

	codeSec := vec(1)
	codeSec = append(codeSec, append(vec(len(body)), body...)...)
	bin = append(bin, section(10, codeSec)...)

	return bin
}
