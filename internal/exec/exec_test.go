// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package exec

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleutian-oss/bcminer/internal/blocktrace"
	"github.com/aleutian-oss/bcminer/internal/semantics"
	"github.com/aleutian-oss/bcminer/internal/slicer"
	"github.com/aleutian-oss/bcminer/internal/value"
)

func TestMetaData_AddSumsFields(t *testing.T) {
	a := MetaData{Proper: 1, Duplicate: 2, PathUnsat: 3}
	b := MetaData{Proper: 4, NoTarget: 5}
	got := a.Add(b)
	assert.Equal(t, MetaData{Proper: 5, Duplicate: 2, PathUnsat: 3, NoTarget: 5}, got)
}

func TestState_Eval_ResolvesParamsLocalsAndConstants(t *testing.T) {
	m := ir.NewModule()
	glob := m.NewGlobalDef("g", constant.NewInt(types.I32, 0))
	fn := m.NewFunc("fn", types.Void, ir.NewParam("p", types.I32))
	entry := fn.NewBlock("entry")
	st := NewState(fn, entry, nil)

	assert.Equal(t, value.NewArg(0), st.Eval(fn.Params[0]))

	gv := st.Eval(glob)
	assert.Equal(t, value.KindGlob, gv.Kind)
	assert.Equal(t, "g", gv.Name)

	iv := st.Eval(constant.NewInt(types.I32, 9))
	assert.Equal(t, value.KindInt, iv.Kind)
	assert.EqualValues(t, 9, iv.Int)

	fv := st.Eval(fn)
	assert.Equal(t, value.KindFunc, fv.Kind)
	assert.Equal(t, "fn", fv.Name)

	nv := st.Eval(constant.NewNull(types.NewPointer(types.I32)))
	assert.Equal(t, value.KindNull, nv.Kind)
}

func TestState_LoadStore_MaterialisesFreshSymbolsAndUpgradesToGlobSym(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunc("fn", types.Void, ir.NewParam("p", types.NewPointer(types.I32)))
	entry := fn.NewBlock("entry")
	st := NewState(fn, entry, nil)

	argLoc := value.NewArg(0)
	first := st.Load(argLoc)
	require.Equal(t, value.KindGlobSym, first.Kind)

	second := st.Load(argLoc)
	assert.Equal(t, first, second)

	localLoc := value.NewAlloc(5)
	localFresh := st.Load(localLoc)
	assert.Equal(t, value.KindSym, localFresh.Kind)

	st.Store(argLoc, value.NewSym(77))
	upgraded := st.Memory[value.Key(argLoc)]
	assert.Equal(t, value.KindGlobSym, upgraded.Kind)
}

// buildSimpleCallSlice builds caller() { target_fn(7); ret } with a slice
// whose target edge is the call to target_fn.
func buildSimpleCallSlice(t *testing.T) (slicer.Slice, *ir.Block) {
	t.Helper()
	m := ir.NewModule()
	target := m.NewFunc("target_fn", types.I32, ir.NewParam("x", types.I32))
	target.NewBlock("entry").NewRet(target.Params[0])

	caller := m.NewFunc("caller", types.Void)
	entry := caller.NewBlock("entry")
	call := entry.NewCall(target, constant.NewInt(types.I32, 7))
	entry.NewRet(nil)

	s := slicer.Slice{Entry: caller, Caller: caller, Callee: target, Instr: call}
	return s, entry
}

func TestRun_SimpleCallProducesProperTrace(t *testing.T) {
	s, entry := buildSimpleCallSlice(t)

	bt := blocktrace.BlockTrace{{Function: s.Caller, Blocks: []*ir.Block{entry}, CallInstr: s.Instr}}
	opts := Options{
		MaxNodePerTrace:          100,
		MaxExploredTracePerSlice: 10,
		MaxTracePerSlice:         10,
		MaxTimeoutSeconds:        5,
		MaxTracesNum:             5,
		NotRandom:                true,
	}

	var persisted []semantics.Trace
	env := NewEnvironment(s, []blocktrace.BlockTrace{bt}, opts, func(tr semantics.Trace) {
		persisted = append(persisted, tr)
	})

	meta := Run(env)

	assert.Equal(t, 1, meta.Proper)
	require.Len(t, persisted, 1)

	tr := persisted[0]
	require.GreaterOrEqual(t, tr.Target, 0)
	targetNode := tr.TargetNode()
	assert.Equal(t, semantics.EventCall, targetNode.Sem.Kind)
	args := targetNode.Sem.CallArgs()
	require.Len(t, args, 1)
	assert.Equal(t, value.NewInt(7), args[0])
}

func TestRun_NoTargetWhenTargetNeverReached(t *testing.T) {
	m := ir.NewModule()
	callee := m.NewFunc("callee", types.Void)
	callee.NewBlock("entry").NewRet(nil)

	caller := m.NewFunc("caller", types.Void)
	entry := caller.NewBlock("entry")
	entry.NewRet(nil)

	otherCall := callee.Blocks[0]
	_ = otherCall

	// Instr points at a call instruction that never appears in caller, so
	// the target is never hit on this path.
	elsewhere := m.NewFunc("elsewhere", types.Void)
	elsewhereEntry := elsewhere.NewBlock("entry")
	unrelatedCall := elsewhereEntry.NewCall(callee)
	elsewhereEntry.NewRet(nil)

	s := slicer.Slice{Entry: caller, Caller: caller, Callee: callee, Instr: unrelatedCall}
	bt := blocktrace.BlockTrace{{Function: caller, Blocks: []*ir.Block{entry}, CallInstr: unrelatedCall}}
	opts := Options{
		MaxNodePerTrace:          100,
		MaxExploredTracePerSlice: 10,
		MaxTracePerSlice:         10,
		MaxTimeoutSeconds:        5,
		MaxTracesNum:             5,
		NotRandom:                true,
	}

	env := NewEnvironment(s, []blocktrace.BlockTrace{bt}, opts, nil)
	meta := Run(env)

	assert.Equal(t, 0, meta.Proper)
	// One no-target finish for the guided Work, one for Run's rough-mode
	// replay of the first block trace.
	assert.Equal(t, 2, meta.NoTarget)
}
