// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package slicer builds Slices: the bounded set of call sites, reachable
// from one target call edge, that a symbolic-execution run should step
// into.
package slicer

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/value"

	"github.com/aleutian-oss/bcminer/internal/callgraph"
	"github.com/aleutian-oss/bcminer/internal/irmodel"
)

// funcCall pairs a related function with the specific call instruction that
// invokes it, the same (Function, CallInstruction) identity the original
// analyzer's related-function set tracks.
type funcCall struct {
	Func *ir.Func
	Call *ir.InstCall
}

// Slice is the bounded call-chain neighbourhood of one target call edge.
type Slice struct {
	Entry     *ir.Func
	Caller    *ir.Func
	Callee    *ir.Func
	Instr     *ir.InstCall
	CallChain callgraph.CallGraphPath
	Functions map[funcCall]bool
}

// Contains reports whether (fn, call) is one of the slice's related
// functions.
func (s *Slice) Contains(fn *ir.Func, call *ir.InstCall) bool {
	return s.Functions[funcCall{fn, call}]
}

// TargetFunctionName is the slice's callee, simplified name.
func (s *Slice) TargetFunctionName() string {
	return irmodel.SimplifiedName(s.Callee.Name())
}

// Size is the number of related functions tracked by the slice.
func (s *Slice) Size() int {
	return len(s.Functions)
}

// Options configures slice generation (slice_depth, use_serial,
// max_num_blocks).
type Options struct {
	SliceDepth int
	UseSerial  bool

	// MaxNumBlocks caps the total number of blocks a slice's related
	// functions may touch; zero means unbounded. Slices over the cap are
	// dropped by Generate rather than truncated, since a slice's related
	// functions and call chain are meant to be analyzed as a whole.
	MaxNumBlocks int
}

// blockCount sums the number of blocks across every related function in a
// slice, the same coarse "how big is this slice" measure --max-num-blocks
// bounds.
func blockCount(s Slice) int {
	seen := make(map[*ir.Func]bool, len(s.Functions))
	total := 0
	for fc := range s.Functions {
		if seen[fc.Func] {
			continue
		}
		seen[fc.Func] = true
		total += len(fc.Func.Blocks)
	}
	return total
}

// IsWrapperFunction reports whether f is a thin pass-through: at most two
// blocks, every non-intrinsic call in it has a signature-compatible callee
// with at least as many arguments as f itself, and some return instruction
// forwards a call's result (or returns void). This mirrors a thin
// pass-through detector's is_wrapper_function exactly, including its
// early `false` returns on signature mismatch.
func IsWrapperFunction(f *ir.Func) bool {
	blocksNum := 0
	result := false
	for _, blk := range f.Blocks {
		if blocksNum > 1 {
			return false
		}
		for _, inst := range blk.Insts {
			switch ii := inst.(type) {
			case *ir.InstCall:
				if irmodel.IsIntrinsicCall(ii) {
					continue
				}
				callee, ok := irmodel.CalleeFunction(ii)
				if !ok || f.Name() == callee.Name() {
					return false
				}
				if len(f.Params) > len(ii.Args) {
					return false
				}
				if !irmodel.SignatureCompatible(f, callee) {
					return false
				}
			}
		}
		if term, ok := blk.Term.(*ir.TermRet); ok {
			if term.X == nil {
				result = true
			} else if call, ok := term.X.(*ir.InstCall); ok {
				_ = call
				result = true
			}
		}
		blocksNum++
	}
	return result
}

// operandSet is a HashSet<Operand> keyed by llir/llvm value identity: every
// value.Value is a pointer type, so plain Go map-key comparison already
// gives the reference-identity semantics alias tracking relies on.
type operandSet map[value.Value]bool

func (s operandSet) disjoint(other operandSet) bool {
	for v := range s {
		if other[v] {
			return false
		}
	}
	return true
}

func (s operandSet) union(other operandSet) {
	for v := range other {
		s[v] = true
	}
}

// getArgs collects a call's non-constant argument operands.
func getArgs(call *ir.InstCall) operandSet {
	set := make(operandSet)
	for _, arg := range call.Args {
		if _, isConst := arg.(constant.Constant); isConst {
			continue
		}
		set[arg] = true
	}
	return set
}

// directRelatedFuncs is a flow-insensitive, single pass over caller's
// instructions that (a) tracks, for every local stack slot, the set of
// values that may have flowed through it via load/store/GEP/phi (cast and
// other unary instructions are not followed), and (b) uses that alias information to decide which other calls in
// caller share arguments or return values with the call at index. The
// final pass's asymmetric i<index / i>=index comparison is kept as-is.
func directRelatedFuncs(caller *ir.Func, index int) (map[funcCall]bool, bool) {
	varMap := make(map[value.Value]operandSet)
	var varKeys []value.Value
	var functions []funcCall
	var funcArgs []operandSet
	var funcRet []operandSet
	callerRet := make(operandSet)

	for _, b := range caller.Blocks {
		for _, inst := range b.Insts {
			switch ii := inst.(type) {
			case *ir.InstCall:
				if irmodel.IsIntrinsicCall(ii) {
					continue
				}
				callee, ok := irmodel.CalleeFunction(ii)
				if !ok {
					continue
				}
				functions = append(functions, funcCall{callee, ii})
				funcArgs = append(funcArgs, getArgs(ii))
				ret := make(operandSet)
				ret[value.Value(inst)] = true
				funcRet = append(funcRet, ret)
			case *ir.InstLoad:
				for _, key := range varKeys {
					val := varMap[key]
					if val[ii.Src] {
						val[value.Value(inst)] = true
					}
				}
			case *ir.InstGetElementPtr:
				for _, key := range varKeys {
					val := varMap[key]
					if val[ii.Src] {
						val[value.Value(inst)] = true
					}
				}
			case *ir.InstStore:
				for _, key := range varKeys {
					val := varMap[key]
					if val[ii.Dst] {
						val[ii.Src] = true
					} else if val[ii.Src] {
						val[ii.Dst] = true
					}
				}
				for _, ret := range funcRet {
					if ret[ii.Src] {
						ret[ii.Dst] = true
					}
				}
			case *ir.InstPhi:
				if len(ii.Incs) > 0 {
					for _, key := range varKeys {
						val := varMap[key]
						for _, inc := range ii.Incs {
							if val[inc.X] {
								val[value.Value(inst)] = true
							}
						}
					}
				}
			case *ir.InstAlloca:
				set := make(operandSet)
				set[value.Value(inst)] = true
				varMap[value.Value(inst)] = set
				varKeys = append(varKeys, value.Value(inst))
			}
		}
		if term, ok := b.Term.(*ir.TermRet); ok && term.X != nil {
			if _, isConst := term.X.(constant.Constant); !isConst {
				callerRet[term.X] = true
			}
		}
	}

	for _, key := range varKeys {
		val := varMap[key]
		for i := range functions {
			if !val.disjoint(funcArgs[i]) {
				funcArgs[i][key] = true
			}
			if !val.disjoint(funcRet[i]) {
				funcRet[i][key] = true
			}
		}
		if !val.disjoint(callerRet) {
			callerRet[key] = true
		}
	}

	targetIsReturned := index < len(funcRet) && !callerRet.disjoint(funcRet[index])

	related := make(map[funcCall]bool)
	for i := range functions {
		if i == index {
			continue
		}
		if !funcArgs[index].disjoint(funcArgs[i]) {
			related[functions[i]] = true
		}
		if i < index && !funcRet[i].disjoint(funcArgs[index]) {
			related[functions[i]] = true
		} else if !funcArgs[i].disjoint(funcRet[index]) {
			related[functions[i]] = true
		}
	}
	return related, targetIsReturned
}
