package interp

import "github.com/reefwasm/reef/internal/wasm"

// dispatch executes one instruction against cf, advancing cf.instrPtr (or
// replacing the top call frame, for call/return) before returning. This is
// reef's single unit of cooperative scheduling (spec §4.4's ExecResult
// cases: Ok/Call/Return/Trap, folded into direct control here since Go's
// call stack already gives us the "refresh cached body/instrs pointer on
// Call" behavior for free once we re-read h.frames[len(h.frames)-1] next
// step).
func (h *ExecHandle) dispatch(cf *CallFrame, instr wasm.Instruction) {
	switch instr.Op {
	case wasm.OpUnreachable:
		h.trap(wasm.TrapUnreachable)

	case wasm.OpNop:
		cf.instrPtr++

	case wasm.OpBlock:
		cf.blocks = append(cf.blocks, BlockFrame{
			op: wasm.OpBlock, block: instr.Block, stackBase: len(h.stack) - instr.Block.ParamArity(),
			startIndex: cf.instrPtr, endTarget: instr.EndTarget,
		})
		cf.instrPtr++

	case wasm.OpLoop:
		cf.blocks = append(cf.blocks, BlockFrame{
			op: wasm.OpLoop, block: instr.Block, stackBase: len(h.stack) - instr.Block.ParamArity(),
			startIndex: cf.instrPtr, endTarget: instr.EndTarget,
		})
		cf.instrPtr++

	case wasm.OpIf:
		cond := h.popValue()
		// the condition itself isn't a block parameter, so the arity is
		// subtracted from the stack height after popping it.
		if cond != 0 {
			cf.blocks = append(cf.blocks, BlockFrame{
				op: wasm.OpIf, block: instr.Block, stackBase: len(h.stack) - instr.Block.ParamArity(),
				startIndex: cf.instrPtr, endTarget: instr.EndTarget,
			})
			cf.instrPtr++
		} else if instr.ElseTarget >= 0 {
			cf.blocks = append(cf.blocks, BlockFrame{
				op: wasm.OpIf, block: instr.Block, stackBase: len(h.stack) - instr.Block.ParamArity(),
				startIndex: cf.instrPtr, endTarget: instr.EndTarget,
			})
			cf.instrPtr = int(instr.ElseTarget) + 1
		} else {
			cf.instrPtr = int(instr.EndTarget) + 1
		}

	case wasm.OpElse:
		// Reached by falling through the end of a taken `then` branch: the
		// else body must not also run.
		top := cf.blocks[len(cf.blocks)-1]
		cf.blocks = cf.blocks[:len(cf.blocks)-1]
		cf.instrPtr = int(top.endTarget) + 1

	case wasm.OpEnd:
		if len(cf.blocks) > 0 {
			cf.blocks = cf.blocks[:len(cf.blocks)-1]
			cf.instrPtr++
			return
		}
		h.returnFromCall(cf)

	case wasm.OpBr:
		h.branch(cf, int(instr.Index))

	case wasm.OpBrIf:
		cond := h.popValue()
		if cond != 0 {
			h.branch(cf, int(instr.Index))
		} else {
			cf.instrPtr++
		}

	case wasm.OpBrTable:
		idx := uint32(h.popValue())
		label := instr.Default
		if int(idx) < len(instr.Labels) {
			label = instr.Labels[idx]
		}
		h.branch(cf, int(label))

	case wasm.OpReturn:
		// Branching past every remaining block in this frame is equivalent
		// to a function return (spec's `Return — pop call frame`): drop to
		// the frame's own stack base, keep the top numResult values.
		cf.blocks = cf.blocks[:0]
		h.returnFromCall(cf)

	case wasm.OpCall:
		addr := cf.inst.FuncAddrs[instr.Index]
		h.call(cf, addr)

	case wasm.OpCallIndirect:
		h.callIndirect(cf, instr)

	case wasm.OpDrop:
		h.popValue()
		cf.instrPtr++

	case wasm.OpSelect, wasm.OpSelectT:
		cond := h.popValue()
		v2 := h.popValue()
		v1 := h.popValue()
		if cond != 0 {
			h.pushValue(v1)
		} else {
			h.pushValue(v2)
		}
		cf.instrPtr++

	default:
		h.execOther(cf, instr)
	}
}

// branch implements a branch to the block at the given depth (0 = innermost
// open block in the current frame): pop depth+1 block frames for a
// block/if target (landing after its End), or depth frames for a loop
// target (landing back at its start), carrying the label's argument values
// across the truncation (spec §4.4).
func (h *ExecHandle) branch(cf *CallFrame, depth int) {
	target := cf.blocks[len(cf.blocks)-1-depth]

	var arity int
	var landingIndex int
	if target.op == wasm.OpLoop {
		arity = target.block.ParamArity()
		landingIndex = target.startIndex + 1
	} else {
		arity = target.block.ResultArity()
		landingIndex = int(target.endTarget) + 1
	}

	args := h.popN(arity)
	h.stack = h.stack[:target.stackBase]
	for _, a := range args {
		h.pushValue(a)
	}

	if target.op == wasm.OpLoop {
		cf.blocks = cf.blocks[:len(cf.blocks)-depth]
	} else {
		cf.blocks = cf.blocks[:len(cf.blocks)-depth-1]
	}
	cf.instrPtr = landingIndex
}

// returnFromCall pops the current call frame, preserving exactly its
// function type's result arity of values at the frame's own stack base
// (spec invariant #5: "the top of the value stack holds exactly
// result_arity cells").
func (h *ExecHandle) returnFromCall(cf *CallFrame) {
	results := h.popN(cf.numResult)
	h.stack = h.stack[:cf.stackBase]
	for _, r := range results {
		h.pushValue(r)
	}
	h.frames = h.frames[:len(h.frames)-1]
}

func (h *ExecHandle) call(cf *CallFrame, addr uint32) {
	fn := &h.store.Functions[addr]
	args := h.popN(len(fn.Type.Params))
	cf.instrPtr++
	if err := h.pushCall(addr, args); err != nil {
		panic(err)
	}
}

func (h *ExecHandle) callIndirect(cf *CallFrame, instr wasm.Instruction) {
	tableAddr := cf.inst.TableAddrs[instr.Index2]
	table := &h.store.Tables[tableAddr]
	elemIdx := uint32(h.popValue())
	if elemIdx >= uint32(len(table.Elements)) {
		h.trap(wasm.TrapUndefinedElement)
	}
	ref := table.Elements[elemIdx]
	if ref == wasm.RefNull {
		h.trap(wasm.TrapUndefinedElement)
	}
	funcAddr := uint32(ref)
	expected := cf.inst.Module.Types[instr.Index]
	fn := &h.store.Functions[funcAddr]
	if fn.TypeID != h.store.FuncTypeID(expected) {
		h.trap(wasm.TrapIndirectCallTypeMismatch)
	}
	args := h.popN(len(fn.Type.Params))
	cf.instrPtr++
	if err := h.pushCall(funcAddr, args); err != nil {
		panic(err)
	}
}
