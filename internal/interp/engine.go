package interp

import "github.com/reefwasm/reef/internal/wasm"

// Engine is reef's wasm.Engine implementation: it drives an ExecHandle to
// completion in one call, for the two places the rest of the module needs a
// synchronous result rather than a resumable budget (spec §4.3 step 6's
// start function, and FuncContext.CallFunc's re-entrant host calls, spec
// §6b). The budgeted, resumable path goes through NewExecHandle/Run
// directly instead.
type Engine struct{}

// NewEngine constructs the interpreter's Engine. There is no per-instance
// state: every call gets its own ExecHandle.
func NewEngine() *Engine { return &Engine{} }

// CallToCompletion implements wasm.Engine.
func (e *Engine) CallToCompletion(store *wasm.Store, funcAddr uint32, args []wasm.Value) ([]wasm.Value, error) {
	h, err := NewExecHandle(store, funcAddr, args)
	if err != nil {
		return nil, err
	}
	for {
		status, err := h.Run(runToCompletionBatch)
		if err != nil {
			return nil, err
		}
		if status == Done {
			return h.Results(), nil
		}
	}
}

// runToCompletionBatch is the cycle budget per Run call inside
// CallToCompletion. It has no effect on observable behavior — only on how
// many iterations of the loop above it takes to drain a long-running call —
// since CallToCompletion never returns Incomplete to its own caller.
const runToCompletionBatch = 4096
