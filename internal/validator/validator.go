// Package validator wraps a real, independent Wasm validator so reef's own
// loader never has to reimplement Wasm 1.0's typing rules (spec §4.2:
// "the driver does not re-implement validation; it exists so section
// handling and validation stay in lockstep").
//
// It is deliberately thin: Validate either returns nil (the binary is
// well-formed and well-typed under the enabled feature set) or an error
// wrapping the validator's own diagnostic. The compiled module produced
// along the way is discarded — reef's loader performs its own decode pass
// over the same bytes to build its internal IR.
package validator

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/reefwasm/reef/internal/wasm"
)

// Validate structurally and statically type-checks bin against the feature
// set reef enables (spec §4.2): MVP plus bulk_memory, multi_value,
// mutable_global, reference_types, sign_extension, saturating_float_to_int.
// api.CoreFeaturesV2 is exactly that superset in the upstream runtime.
func Validate(bin []byte) error {
	ctx := context.Background()
	cfg := wazero.NewRuntimeConfigInterpreter().WithCoreFeatures(api.CoreFeaturesV2)
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)
	defer rt.Close(ctx)

	compiled, err := rt.CompileModule(ctx, bin)
	if err != nil {
		return &wasm.ValidationError{Reason: err.Error()}
	}
	_ = compiled.Close(ctx)
	return nil
}
