package interp

import "github.com/reefwasm/reef/internal/wasm"

// BlockState is the serializable form of a BlockFrame: everything needed to
// reconstruct it is its stack height at entry and the instruction index it
// opened at, since op/block/endTarget are all recoverable by re-reading
// that instruction from the (unchanged) function body (spec's "Cross-frame
// references" design note: "store (func_addr, instr_ptr) pairs and
// re-resolve on resume").
type BlockState struct {
	StackBase  int
	StartIndex int
}

// FrameState is the serializable form of a CallFrame.
type FrameState struct {
	FuncAddr  uint32
	InstrPtr  int
	Locals    []wasm.Value
	Blocks    []BlockState
	StackBase int
	NumResult int
}

// State is the serializable form of an ExecHandle's live state (spec §4.6).
// It is valid to capture between Run calls, since Run only ever suspends at
// an instruction boundary.
type State struct {
	Stack  []wasm.Value
	Frames []FrameState
}

// State captures h's current live state.
func (h *ExecHandle) State() State {
	st := State{Stack: append([]wasm.Value(nil), h.stack...)}
	for _, cf := range h.frames {
		fs := FrameState{
			FuncAddr:  cf.funcAddr,
			InstrPtr:  cf.instrPtr,
			Locals:    append([]wasm.Value(nil), cf.locals...),
			StackBase: cf.stackBase,
			NumResult: cf.numResult,
		}
		for _, b := range cf.blocks {
			fs.Blocks = append(fs.Blocks, BlockState{StackBase: b.stackBase, StartIndex: b.startIndex})
		}
		st.Frames = append(st.Frames, fs)
	}
	return st
}

// FromState reconstructs a resumable ExecHandle from a previously captured
// State against store, re-resolving each CallFrame's owning instance and
// function body from its Store address rather than trusting any pointer
// captured before the suspension.
func FromState(store *wasm.Store, st State) *ExecHandle {
	h := &ExecHandle{store: store, stack: append([]wasm.Value(nil), st.Stack...)}
	for _, fs := range st.Frames {
		fn := &store.Functions[fs.FuncAddr]
		cf := &CallFrame{
			inst:      fn.OwningInstance,
			body:      fn.Body,
			funcAddr:  fs.FuncAddr,
			locals:    append([]wasm.Value(nil), fs.Locals...),
			instrPtr:  fs.InstrPtr,
			stackBase: fs.StackBase,
			numResult: fs.NumResult,
		}
		for _, bs := range fs.Blocks {
			instr := cf.body.Instructions[bs.StartIndex]
			cf.blocks = append(cf.blocks, BlockFrame{
				op:         instr.Op,
				block:      instr.Block,
				stackBase:  bs.StackBase,
				startIndex: bs.StartIndex,
				endTarget:  instr.EndTarget,
			})
		}
		h.frames = append(h.frames, cf)
	}
	return h
}
