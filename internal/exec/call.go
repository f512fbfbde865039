// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package exec

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"

	"github.com/aleutian-oss/bcminer/internal/irmodel"
	"github.com/aleutian-oss/bcminer/internal/semantics"
	"github.com/aleutian-oss/bcminer/internal/slicer"
	"github.com/aleutian-oss/bcminer/internal/value"
)

// stepCall interprets one call site An intrinsic call is
// skipped entirely (it never reaches the trace). Every other call always
// produces a Call event; the instruction's own memory cell is later bound
// to a result only for calls the executor does not step into, since a
// stepped-in call's real result only becomes known when its Ret is
// reached, at which point stepReturn binds it directly.
func stepCall(env *Environment, s *State, inst *ir.InstCall) {
	if irmodel.IsIntrinsicCall(inst) {
		return
	}

	callee, direct := irmodel.CalleeFunction(inst)
	args := s.EvalArgs(inst.Args)
	calleeVal := calleeValueOf(inst, callee, direct)

	isTarget := inst == env.Slice.Instr
	if isTarget {
		s.TargetNode = len(s.Trace)
	}
	s.BlockIter.VisitCall(inst)

	stepIn := false
	if !isTarget && direct && !irmodel.IsDeclaration(callee) && !onStack(s, callee) {
		onChain, finalChainEdge := chainEdge(&env.Slice, inst)
		switch {
		case onChain && !finalChainEdge:
			stepIn = true
		case !onChain && (env.Slice.Entry != env.Slice.Caller || env.Opts.StepInAnytime) && env.Slice.Contains(callee, inst):
			stepIn = true
		}
	}

	s.record(inst, semantics.NewCall(calleeVal, args), nil)

	if stepIn {
		entry := callee.Blocks[0]
		s.Stack = append(s.Stack, newStackFrame(callee, inst, args, entry))
		s.InRelevantMethod = true
		return
	}

	// Not stepped into: the callee is opaque, so its result (if any) is a
	// fresh symbolic Call value, and any pointer it was handed might have
	// been mutated through — every argument's memory cell is invalidated
	// to a fresh symbol.
	var result *value.Value
	if callHasResult(inst) {
		result = value.NewCall(env.nextCallID(), calleeVal, args)
	}
	for _, a := range args {
		s.Store(a, s.kindAppropriateFresh(a))
	}
	if result != nil {
		s.top().Locals[inst] = result
	}
}

func calleeValueOf(inst *ir.InstCall, callee *ir.Func, direct bool) *value.Value {
	if direct {
		return value.NewFunc(callee.Name())
	}
	if _, ok := inst.Callee.(*ir.InlineAsm); ok {
		return value.NewAsm()
	}
	return value.NewFuncPtr()
}

func callHasResult(inst *ir.InstCall) bool {
	t := inst.Type()
	if t == nil {
		return false
	}
	_, isVoid := t.(*types.VoidType)
	return !isVoid
}

// onStack reports whether fn already has an activation record on the
// stack, the recursion guard checked before stepping in.
func onStack(s *State, fn *ir.Func) bool {
	for _, f := range s.Stack {
		if f.Func == fn {
			return true
		}
	}
	return false
}

// chainEdge reports whether inst is one of the slice's primary call-chain
// edges, and whether it is the chain's final edge (the target callee
// itself, which is always treated as opaque rather than stepped into).
func chainEdge(slice *slicer.Slice, inst *ir.InstCall) (onChain bool, isFinal bool) {
	edges := slice.CallChain.Edges
	for i, e := range edges {
		if e.Inst == inst {
			return true, i == len(edges)-1
		}
	}
	return false, false
}
