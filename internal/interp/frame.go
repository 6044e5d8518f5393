package interp

import "github.com/reefwasm/reef/internal/wasm"

// BlockFrame is one open block/loop/if within a single CallFrame (spec §3
// "interpreter state: CallFrame, BlockFrame"). stackBase is the operand
// stack height at the moment the frame was entered minus the block's param
// arity, used to truncate the stack back to a known point on a branch out of
// (or around) the frame.
type BlockFrame struct {
	op        wasm.Opcode // OpBlock, OpLoop or OpIf
	block     wasm.BlockType
	stackBase int
	// startIndex is the instruction index of the opening block/loop/if,
	// used by a branch to a loop label to re-enter at the top.
	startIndex int
	// endTarget mirrors the opening instruction's EndTarget, so a branch
	// out of a block/if doesn't need to re-read the instruction stream.
	endTarget int32
}

// CallFrame is one activation record on the interpreter's call stack (spec
// §3). locals holds both parameters and declared locals; the operand stack
// is shared across all frames in ExecHandle.stack, sliced by stackBase.
type CallFrame struct {
	inst      *wasm.Instance
	body      *wasm.FunctionBody
	funcAddr  uint32
	locals    []wasm.Value
	instrPtr  int
	blocks    []BlockFrame
	stackBase int // height of the shared operand stack when this frame began
	numResult int // this frame's function type's result arity
}
