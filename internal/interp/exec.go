// Package interp is reef's stack-machine interpreter: the only
// implementation of wasm.Engine. It dispatches one pre-lowered
// wasm.Instruction per cycle, suspending between instructions so a run can
// be resumed, serialized, or abandoned at any cycle boundary (spec §4.4,
// §4.6).
package interp

import (
	"fmt"

	"github.com/reefwasm/reef/internal/wasm"
)

// Status is the outcome of one ExecHandle.Run call (spec §2, §4.6).
type Status int

const (
	Incomplete Status = iota
	Done
)

// ExecHandle is a single, possibly-suspended function call in flight (spec
// §3 "ExecHandle"). Grounded on the teacher's callEngine (stack []uint64,
// frames []*callFrame), generalized from a single uninterruptible call into
// a resumable one by keeping callEngine's fields as ExecHandle's own state
// across Run invocations instead of discarding them on return.
type ExecHandle struct {
	store *wasm.Store

	stack  []uint64
	frames []*CallFrame

	done    bool
	results []wasm.Value
	err     error
}

// NewExecHandle starts a call to the function at funcAddr with args already
// validated against its signature by the caller (the root façade's
// FuncHandle.Call).
func NewExecHandle(store *wasm.Store, funcAddr uint32, args []wasm.Value) (*ExecHandle, error) {
	h := &ExecHandle{store: store}
	if err := h.pushCall(funcAddr, args); err != nil {
		return nil, err
	}
	return h, nil
}

// Results returns the function's return values once Run has reported Done.
func (h *ExecHandle) Results() []wasm.Value { return h.results }

func (h *ExecHandle) pushValue(v wasm.Value) { h.stack = append(h.stack, v) }

func (h *ExecHandle) popValue() wasm.Value {
	top := len(h.stack) - 1
	v := h.stack[top]
	h.stack = h.stack[:top]
	return v
}

func (h *ExecHandle) peekValues(n int) []wasm.Value {
	if n == 0 {
		return nil
	}
	return h.stack[len(h.stack)-n:]
}

func (h *ExecHandle) popN(n int) []wasm.Value {
	vs := append([]wasm.Value(nil), h.peekValues(n)...)
	h.stack = h.stack[:len(h.stack)-n]
	return vs
}

// pushCall sets up a new CallFrame for funcAddr with args as its initial
// locals, trapping on call-depth exhaustion (spec §9 "a concrete call-depth
// cap").
func (h *ExecHandle) pushCall(funcAddr uint32, args []wasm.Value) error {
	if len(h.frames) >= h.maxCallDepth() {
		return wasm.NewTrap(wasm.TrapCallStackExhaustion)
	}
	fn := &h.store.Functions[funcAddr]

	if fn.Kind == wasm.FunctionKindHost {
		// the context is scoped to the calling frame's instance; a host
		// function has no OwningInstance of its own.
		var caller *wasm.Instance
		if n := len(h.frames); n > 0 {
			caller = h.frames[n-1].inst
		}
		ctx := wasm.NewFuncContext(h.store, caller)
		results, err := fn.Host(ctx, args)
		if err != nil {
			return err
		}
		for _, r := range results {
			h.pushValue(r)
		}
		return nil
	}

	locals := make([]wasm.Value, fn.Body.NumLocals)
	copy(locals, args)
	// declared locals (beyond params) default to the zero value per their
	// declared type, which is simply 0 for every numeric/reference type
	// reef supports (ref types' zero value is encoded as RefNull elsewhere,
	// but the Wasm spec itself defines a fresh local's initial value as 0,
	// not null — mirrored here literally).
	h.frames = append(h.frames, &CallFrame{
		inst:      fn.OwningInstance,
		body:      fn.Body,
		funcAddr:  funcAddr,
		locals:    locals,
		stackBase: len(h.stack),
		numResult: len(fn.Type.Results),
	})
	return nil
}

func (h *ExecHandle) maxCallDepth() int {
	if h.store.MaxCallDepth <= 0 {
		return wasm.DefaultMaxCallDepth
	}
	return h.store.MaxCallDepth
}

// Run executes at most maxCycles instruction dispatches (spec §4.6: "each
// primitive Wasm instruction counts as one cycle ... host calls count as
// one"), returning Done once the outermost call has returned, or Incomplete
// if the budget ran out first with the ExecHandle left resumable.
func (h *ExecHandle) Run(maxCycles int) (status Status, err error) {
	if h.done {
		return Done, h.err
	}

	defer func() {
		if r := recover(); r != nil {
			trap, ok := r.(*wasm.TrapError)
			if !ok {
				panic(r)
			}
			if len(trap.Trail) == 0 {
				trap.Trail = h.trail()
			}
			h.done = true
			h.err = trap
			status, err = Done, trap
		}
	}()

	cycles := 0
	for cycles < maxCycles {
		if len(h.frames) == 0 {
			h.done = true
			h.results = append([]wasm.Value(nil), h.stack...)
			return Done, nil
		}
		h.step()
		cycles++
	}
	return Incomplete, nil
}

// step executes exactly one pre-lowered instruction against the top call
// frame, counting as reef's unit cycle regardless of what the instruction
// actually does (host calls included, spec §4.6).
func (h *ExecHandle) step() {
	cf := h.frames[len(h.frames)-1]
	if cf.instrPtr >= len(cf.body.Instructions) {
		h.trap(wasm.TrapUnreachable)
	}
	instr := cf.body.Instructions[cf.instrPtr]
	h.dispatch(cf, instr)
}

func (h *ExecHandle) trap(kind wasm.TrapKind) {
	panic(wasm.NewTrap(kind))
}

// trail names each live frame, outermost first, falling back to "$<addr>"
// for a function with no recovered debug name. Run's recover handler calls
// this to attach a diagnostic trail to any trap that didn't already carry
// one (SPEC_FULL §10.4: debug-name preservation for traps), so every trap
// site gets the same treatment without each one having to call it.
func (h *ExecHandle) trail() []string {
	if len(h.frames) == 0 {
		return nil
	}
	trail := make([]string, len(h.frames))
	for i, cf := range h.frames {
		name := h.store.Functions[cf.funcAddr].DebugName
		if name == "" {
			name = fmt.Sprintf("$%d", cf.funcAddr)
		}
		trail[i] = name
	}
	return trail
}
