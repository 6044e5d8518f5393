// Command reef is a minimal embedder example, not part of the core runtime
// (SPEC_FULL §6.a): it loads a .wasm file, instantiates it with a
// reef.log(ptr, len) host import, calls an exported function, and runs it
// to completion by repeatedly budgeting cycles. Grounded on the teacher's
// cmd/wazero/wazero.go command-dispatch shape; arguments are read
// positionally from os.Args without the flag package.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/reefwasm/reef"
)

func main() {
	os.Exit(doMain(os.Stdout, os.Stderr, os.Args[1:]))
}

// doMain is separated from main so tests can exercise it without exec'ing a
// binary.
func doMain(stdOut, stdErr io.Writer, args []string) int {
	if len(args) < 2 {
		printUsage(stdErr)
		return 1
	}

	path, funcName := args[0], args[1]
	callArgs, err := parseArgs(args[2:])
	if err != nil {
		fmt.Fprintln(stdErr, err)
		return 1
	}

	bin, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(stdErr, err)
		return 1
	}

	module, err := reef.ParseBytes(bin)
	if err != nil {
		fmt.Fprintln(stdErr, err)
		return 1
	}

	store := reef.NewStore()
	imports := reef.NewImports()
	imports.Define("reef", "log", newLogImport(stdOut))

	inst, err := reef.Instantiate(store, module, imports)
	if err != nil {
		fmt.Fprintln(stdErr, err)
		return 1
	}

	fn, err := reef.ExportedFunc(inst, funcName)
	if err != nil {
		fmt.Fprintln(stdErr, err)
		return 1
	}

	handle, err := fn.Call(callArgs)
	if err != nil {
		fmt.Fprintln(stdErr, err)
		return 1
	}

	const cyclesPerBatch = 100_000
	for {
		status, err := handle.Run(cyclesPerBatch)
		if err != nil {
			fmt.Fprintln(stdErr, err)
			return 1
		}
		if status == reef.Done {
			break
		}
	}

	results := handle.Results()
	strs := make([]string, len(results))
	for i, r := range results {
		strs[i] = strconv.FormatUint(r, 10)
	}
	fmt.Fprintln(stdOut, strings.Join(strs, " "))
	return 0
}

// newLogImport builds the reef.log(ptr, len) host function fulfilling
// spec.md §8 end-to-end scenario 2: the guest writes a string into its own
// memory and calls this import with its location, and the host prints it.
func newLogImport(out io.Writer) reef.Extern {
	sig := &reef.FunctionType{Params: []reef.ValType{reef.ValTypeI32, reef.ValTypeI32}}
	return reef.NewFuncImport(sig, func(ctx *reef.FuncContext, args []reef.Value) ([]reef.Value, error) {
		ptr, length := uint32(args[0]), uint32(args[1])
		s, err := ctx.LoadString(ptr, length)
		if err != nil {
			return nil, err
		}
		fmt.Fprintln(out, s)
		return nil, nil
	})
}

func parseArgs(raw []string) ([]reef.Value, error) {
	out := make([]reef.Value, len(raw))
	for i, s := range raw {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("argument %d (%q) is not an unsigned integer: %w", i, s, err)
		}
		out[i] = v
	}
	return out, nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: reef <module.wasm> <exported-func> [args...]")
}
