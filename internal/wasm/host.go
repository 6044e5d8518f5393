package wasm

import "fmt"

// FuncContext is the host-function-facing API a HostFunction receives on
// every call (spec §6 "host functions exchange raw scalars ... and may read
// or write the calling instance's memory by name, and may call back into
// one of the calling instance's own exports"). It is scoped to a single
// call: a host function must not retain it past return.
//
// Generalized from the teacher's wasm.ModuleContext into reef's narrower
// surface (no filesystem/WASI concerns, since those are explicit Non-goals),
// enriched with the re-entrant CallFunc callback SPEC_FULL §4.7.a calls for.
type FuncContext struct {
	store    *Store
	instance *Instance
}

// NewFuncContext builds a FuncContext scoped to inst. internal/interp
// constructs one per host call; external callers of the root façade never
// need to build one directly.
func NewFuncContext(store *Store, inst *Instance) *FuncContext {
	return &FuncContext{store: store, instance: inst}
}

// Instance returns the instance this context is scoped to.
func (c *FuncContext) Instance() *Instance { return c.instance }

// Memory returns the calling instance's sole memory, or nil if it declares
// none.
func (c *FuncContext) Memory() *MemoryInstance {
	return c.instance.Memory()
}

// MemoryByName resolves a memory export by name, for instances that expose
// more than one memory's worth of exports via aliasing (multi-memory itself
// is out of scope, spec Non-goals, but an imported memory re-exported under
// a second name is not).
func (c *FuncContext) MemoryByName(name string) (*MemoryInstance, error) {
	addr, err := c.instance.ExportedMemoryAddr(name)
	if err != nil {
		return nil, err
	}
	return &c.store.Memories[addr], nil
}

// LoadBytes copies length bytes starting at ptr out of the context's
// default memory. It traps-as-error (not a panic) on an out-of-bounds
// range, matching every other memory accessor in reef.
func (c *FuncContext) LoadBytes(ptr, length uint32) ([]byte, error) {
	mem := c.Memory()
	if mem == nil {
		return nil, fmt.Errorf("funccontext: instance has no memory")
	}
	end := uint64(ptr) + uint64(length)
	if end > uint64(len(mem.Data)) {
		return nil, NewTrap(TrapOutOfBoundsMemoryAccess)
	}
	out := make([]byte, length)
	copy(out, mem.Data[ptr:end])
	return out, nil
}

// LoadString reads a length-prefixed-by-caller UTF-8 string out of memory
// (spec §6 scenario 2's reef.log(ptr, len) host import is the motivating
// case): the caller supplies both ptr and len as plain i32 arguments,
// there is no implicit NUL-termination or length prefix in the format.
func (c *FuncContext) LoadString(ptr, length uint32) (string, error) {
	b, err := c.LoadBytes(ptr, length)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CallFunc re-enters the calling instance, invoking one of its own exports
// by name. This is how a host function implements a callback-style API
// (e.g. a sort comparator supplied by the guest) without the interpreter
// exposing its call stack directly. Re-entrant calls run to completion
// through the Store's Engine; they do not consume the outer ExecHandle's
// cycle budget (spec §6b: "host calls themselves count as one cycle;
// whatever work they do reentrantly is not separately metered").
func (c *FuncContext) CallFunc(name string, args ...uint64) ([]uint64, error) {
	addr, _, err := c.instance.ExportedFuncAddr(name)
	if err != nil {
		return nil, err
	}
	return c.store.Engine.CallToCompletion(c.store, addr, args)
}
