package wasm

import "fmt"

// Instantiate executes spec §4.3 steps 1-6 against module, failing
// atomically on any error, including one from the start function: every
// Store arena is truncated back to its length before the call. Writes
// already made into a table or memory aliased from another instance are
// not undone. The start function, if declared (or recovered via the
// `_start` export fallback, SPEC_FULL §10.1), is invoked as a side effect;
// a trap there bubbles up unchanged.
func Instantiate(store *Store, module *Module, imports *Imports) (*Instance, error) {
	before := storeLengths(store)
	inst, err := instantiateCommon(store, module, imports)
	if err != nil {
		return nil, err
	}

	if addr, ok := inst.StartFuncAddr(); ok {
		if _, err := store.Engine.CallToCompletion(store, addr, nil); err != nil {
			rollback(store, before)
			return nil, err
		}
	}
	return inst, nil
}

// InstantiateWithState runs steps 1-5 without invoking start (the spec's
// start-has-already-logically-run rule, §4.6). The caller is expected to
// overlay preserved memory/global contents itself afterward, the way
// snapshot.Restore does with the freshly allocated Instance.
func InstantiateWithState(store *Store, module *Module, imports *Imports) (*Instance, error) {
	return instantiateCommon(store, module, imports)
}

func instantiateCommon(store *Store, module *Module, imports *Imports) (*Instance, error) {
	snapshot := storeLengths(store)

	inst := &Instance{Module: module, Store: store}

	if err := linkImports(store, inst, module, imports); err != nil {
		rollback(store, snapshot)
		return nil, err
	}

	allocateDefinedFuncs(store, inst, module)
	allocateDefinedTables(store, inst, module)
	allocateDefinedMemories(store, inst, module)

	if err := allocateDefinedGlobals(store, inst, module); err != nil {
		rollback(store, snapshot)
		return nil, err
	}

	if err := initElements(store, inst, module); err != nil {
		rollback(store, snapshot)
		return nil, err
	}

	if err := initData(store, inst, module); err != nil {
		rollback(store, snapshot)
		return nil, err
	}

	return inst, nil
}

type lengths struct{ f, t, m, g, e, d int }

func storeLengths(s *Store) lengths {
	return lengths{len(s.Functions), len(s.Tables), len(s.Memories), len(s.Globals), len(s.Elements), len(s.Datas)}
}

// rollback truncates every arena back to its pre-instantiate length. This is
// safe only because arenas are append-only (invariant #2): nothing else can
// have taken a dependency on the tail entries yet, since Instantiate hasn't
// returned an Instance to the caller.
func rollback(s *Store, l lengths) {
	s.Functions = s.Functions[:l.f]
	s.Tables = s.Tables[:l.t]
	s.Memories = s.Memories[:l.m]
	s.Globals = s.Globals[:l.g]
	s.Elements = s.Elements[:l.e]
	s.Datas = s.Datas[:l.d]
}

// linkImports is spec §4.3 step 1: for each declared import, locate a
// matching provider by (module name, field name, kind, type) and append it
// (or alias it) into the Store, populating inst's address arrays' import
// prefix.
func linkImports(store *Store, inst *Instance, module *Module, imports *Imports) error {
	for _, im := range module.Imports {
		ext, ok := imports.lookup(im.Module, im.Field)
		if !ok {
			return &LinkError{Kind: LinkErrorUnknownImport, Module: im.Module, Field: im.Field}
		}
		if ext.Kind != im.Kind {
			return &LinkError{Kind: LinkErrorIncompatibleImportType, Module: im.Module, Field: im.Field, Reason: "kind mismatch"}
		}
		switch im.Kind {
		case ImportKindFunc:
			if !ext.FuncType.Equal(im.FuncType) {
				return &LinkError{Kind: LinkErrorIncompatibleImportType, Module: im.Module, Field: im.Field, Reason: "signature mismatch"}
			}
			addr := ext.addr
			if !ext.aliased {
				addr = uint32(len(store.Functions))
				store.Functions = append(store.Functions, FunctionInstance{
					Kind:      FunctionKindHost,
					Type:      ext.FuncType,
					Host:      ext.Func,
					TypeID:    store.internTypeID(ext.FuncType),
					DebugName: fmt.Sprintf("%s.%s", im.Module, im.Field),
				})
			}
			inst.FuncAddrs = append(inst.FuncAddrs, addr)

		case ImportKindTable:
			if ext.TableType.ElemType != im.TableType.ElemType {
				return &LinkError{Kind: LinkErrorIncompatibleImportType, Module: im.Module, Field: im.Field, Reason: "element type mismatch"}
			}
			if ext.TableType.Limits.Min < im.TableType.Limits.Min {
				return &LinkError{Kind: LinkErrorIncompatibleImportType, Module: im.Module, Field: im.Field, Reason: "table minimum too small"}
			}
			addr := ext.addr
			if !ext.aliased {
				addr = uint32(len(store.Tables))
				elems := make([]Value, ext.TableType.Limits.Min)
				for i := range elems {
					elems[i] = RefNull
				}
				store.Tables = append(store.Tables, TableInstance{Type: *ext.TableType, Elements: elems})
			}
			inst.TableAddrs = append(inst.TableAddrs, addr)

		case ImportKindMemory:
			if ext.MemoryType.Limits.Min < im.MemoryType.Limits.Min {
				return &LinkError{Kind: LinkErrorIncompatibleImportType, Module: im.Module, Field: im.Field, Reason: "memory minimum too small"}
			}
			addr := ext.addr
			if !ext.aliased {
				addr = uint32(len(store.Memories))
				store.Memories = append(store.Memories, MemoryInstance{
					Type: *ext.MemoryType,
					Data: make([]byte, uint64(ext.MemoryType.Limits.Min)*MemoryPageSize),
				})
			}
			inst.MemoryAddrs = append(inst.MemoryAddrs, addr)

		case ImportKindGlobal:
			if ext.GlobalType.ValType != im.GlobalType.ValType || ext.GlobalType.Mutable != im.GlobalType.Mutable {
				return &LinkError{Kind: LinkErrorIncompatibleImportType, Module: im.Module, Field: im.Field, Reason: "global type or mutability mismatch"}
			}
			addr := ext.addr
			if !ext.aliased {
				addr = uint32(len(store.Globals))
				store.Globals = append(store.Globals, GlobalInstance{Type: *ext.GlobalType, Value: ext.GlobalValue})
			}
			inst.GlobalAddrs = append(inst.GlobalAddrs, addr)
		}
	}
	return nil
}

// allocateDefinedFuncs is spec §4.3 step 2 (func half).
func allocateDefinedFuncs(store *Store, inst *Instance, module *Module) {
	for i, body := range module.Functions {
		ft := module.Types[module.FunctionTypeIndex[i]]
		addr := uint32(len(store.Functions))
		store.Functions = append(store.Functions, FunctionInstance{
			Kind:           FunctionKindWasm,
			Type:           ft,
			Body:           body,
			OwningInstance: inst,
			TypeID:         store.internTypeID(ft),
			DebugName:      body.Name,
		})
		inst.FuncAddrs = append(inst.FuncAddrs, addr)
	}
}

// allocateDefinedTables is spec §4.3 step 2 (table half).
func allocateDefinedTables(store *Store, inst *Instance, module *Module) {
	for _, tt := range module.Tables {
		addr := uint32(len(store.Tables))
		elems := make([]Value, tt.Limits.Min)
		for i := range elems {
			elems[i] = RefNull
		}
		store.Tables = append(store.Tables, TableInstance{Type: *tt, Elements: elems})
		inst.TableAddrs = append(inst.TableAddrs, addr)
	}
}

// allocateDefinedMemories is spec §4.3 step 2 (memory half). New pages are
// always zero-initialized (spec §9 Open Questions resolves this explicitly
// in reef's favor, unlike the Rust original which relied on its buffer's
// extension behavior).
func allocateDefinedMemories(store *Store, inst *Instance, module *Module) {
	for _, mt := range module.Memories {
		addr := uint32(len(store.Memories))
		store.Memories = append(store.Memories, MemoryInstance{
			Type: *mt,
			Data: make([]byte, uint64(mt.Limits.Min)*MemoryPageSize),
		})
		inst.MemoryAddrs = append(inst.MemoryAddrs, addr)
	}
}

// allocateDefinedGlobals is spec §4.3 step 3: evaluate each global's
// initializer in the constrained const-only mini-interpreter, then append.
func allocateDefinedGlobals(store *Store, inst *Instance, module *Module) error {
	for _, g := range module.Globals {
		v, err := evalConstExpr(store, inst, g.Init)
		if err != nil {
			return err
		}
		addr := uint32(len(store.Globals))
		store.Globals = append(store.Globals, GlobalInstance{Type: *g.Type, Value: v})
		inst.GlobalAddrs = append(inst.GlobalAddrs, addr)
	}
	return nil
}

// evalConstExpr evaluates the restricted const-expression grammar shared by
// global initializers and active element/data segment offsets (spec §4.3
// step 3; SPEC_FULL §10.3 notes the Rust original shares one evaluator for
// both contexts, which reef mirrors).
func evalConstExpr(store *Store, inst *Instance, ce ConstExpr) (Value, error) {
	switch ce.Instr.Op {
	case OpI32Const, OpI64Const, OpF32Const, OpF64Const:
		return ce.Instr.Const, nil
	case OpRefNull:
		return RefNull, nil
	case OpRefFunc:
		return Value(inst.FuncAddrs[ce.Instr.Index]), nil
	case OpGlobalGet:
		// Only imported, already-linked globals may be referenced here;
		// the validator driver rejects forward references to
		// module-defined globals.
		addr := inst.GlobalAddrs[ce.Instr.Index]
		return store.Globals[addr].Value, nil
	default:
		return 0, &ValidationError{Reason: "invalid constant expression"}
	}
}

// initElements is spec §4.3 step 4. For an active segment, bounds-check the
// destination table range and trap without committing any earlier element
// writes from *this* segment; earlier, already-committed segments remain
// (segments are processed strictly in order).
func initElements(store *Store, inst *Instance, module *Module) error {
	for _, seg := range module.Elements {
		items := make([]Value, len(seg.Init))
		for i, ce := range seg.Init {
			v, err := evalConstExpr(store, inst, ce)
			if err != nil {
				return err
			}
			items[i] = v
		}

		switch seg.Mode {
		case ElementModeActive:
			off, err := evalConstExpr(store, inst, seg.Offset)
			if err != nil {
				return err
			}
			offset := uint32(off)
			tableAddr := inst.TableAddrs[seg.TableIdx]
			table := &store.Tables[tableAddr]
			if uint64(offset)+uint64(len(items)) > uint64(len(table.Elements)) {
				return NewTrap(TrapOutOfBoundsTableAccess)
			}
			copy(table.Elements[offset:], items)
			inst.ElemAddrs = append(inst.ElemAddrs, appendElem(store, ElementInstance{Mode: seg.Mode, Dropped: true}))
		case ElementModeDeclared:
			inst.ElemAddrs = append(inst.ElemAddrs, appendElem(store, ElementInstance{Mode: seg.Mode, Dropped: true}))
		default: // ElementModePassive
			inst.ElemAddrs = append(inst.ElemAddrs, appendElem(store, ElementInstance{Mode: seg.Mode, Items: items}))
		}
	}
	return nil
}

func appendElem(store *Store, e ElementInstance) uint32 {
	addr := uint32(len(store.Elements))
	store.Elements = append(store.Elements, e)
	return addr
}

// initData is spec §4.3 step 5, analogous to initElements over memory.
func initData(store *Store, inst *Instance, module *Module) error {
	for _, seg := range module.Data {
		switch seg.Mode {
		case DataModeActive:
			off, err := evalConstExpr(store, inst, seg.Offset)
			if err != nil {
				return err
			}
			offset := uint32(off)
			memAddr := inst.MemoryAddrs[seg.MemIdx]
			mem := &store.Memories[memAddr]
			if uint64(offset)+uint64(len(seg.Init)) > uint64(len(mem.Data)) {
				return NewTrap(TrapOutOfBoundsMemoryAccess)
			}
			copy(mem.Data[offset:], seg.Init)
			addr := uint32(len(store.Datas))
			store.Datas = append(store.Datas, DataInstance{Dropped: true})
			inst.DataAddrs = append(inst.DataAddrs, addr)
		default: // DataModePassive
			addr := uint32(len(store.Datas))
			store.Datas = append(store.Datas, DataInstance{Bytes: seg.Init})
			inst.DataAddrs = append(inst.DataAddrs, addr)
		}
	}
	return nil
}
