// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package blocktrace enumerates candidate basic-block paths through a
// slice's call chain and drives the executor's conditional branch
// preference along one such path via BlockTraceIterator.
package blocktrace

import (
	"math/rand"
	"time"

	"github.com/llir/llvm/ir"

	"github.com/aleutian-oss/bcminer/internal/callgraph"
	"github.com/aleutian-oss/bcminer/internal/irmodel"
	"github.com/aleutian-oss/bcminer/internal/slicer"
)

// FunctionBlockTrace is one candidate block path, inside a single function,
// leading to the call instruction that continues the call chain.
type FunctionBlockTrace struct {
	Function  *ir.Func
	Blocks    []*ir.Block
	CallInstr *ir.InstCall
}

// BlockTrace is a full path across every function in a call chain.
type BlockTrace []FunctionBlockTrace

// compositeFunctionBlockTraces holds every candidate path inside one
// function, pending the cartesian-product expansion into full BlockTraces.
type compositeFunctionBlockTraces struct {
	Function  *ir.Func
	Paths     [][]*ir.Block
	CallInstr *ir.InstCall
}

// expand computes the cartesian product of every function's candidate
// paths, producing one BlockTrace per combination: the block traces of a
// call chain are the cross product of the block traces of each call in
// the chain.
func expand(composite []compositeFunctionBlockTraces) []BlockTrace {
	if len(composite) == 0 {
		return nil
	}
	counts := make([]int, len(composite))
	total := 1
	for i, c := range composite {
		counts[i] = len(c.Paths)
		total *= max(counts[i], 1)
	}
	indices := make([]int, len(composite))
	out := make([]BlockTrace, 0, total)
	for {
		trace := make(BlockTrace, 0, len(composite))
		for i, c := range composite {
			if counts[i] == 0 {
				continue
			}
			trace = append(trace, FunctionBlockTrace{
				Function:  c.Function,
				Blocks:    c.Paths[indices[i]],
				CallInstr: c.CallInstr,
			})
		}
		out = append(out, trace)

		pos := len(indices) - 1
		for pos >= 0 {
			if counts[pos] == 0 {
				pos--
				continue
			}
			indices[pos]++
			if indices[pos] < counts[pos] {
				break
			}
			indices[pos] = 0
			pos--
		}
		if pos < 0 {
			break
		}
	}
	return out
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func newRNG() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// FromCallGraphPath builds every BlockTrace that realizes one call-graph
// path. maxTracesNum bounds how many candidate block paths are kept per
// function hop (the executor never sees more than this many alternative
// routes to the next call).
func FromCallGraphPath(path callgraph.CallGraphPath, maxTracesNum int, notRandom bool) []BlockTrace {
	var composite []compositeFunctionBlockTraces
	curr := path.Edges[0].Caller
	for _, e := range path.Edges {
		paths := blockTracesToInstr(curr, e.Inst, maxTracesNum, notRandom)
		composite = append(composite, compositeFunctionBlockTraces{
			Function:  curr,
			Paths:     paths,
			CallInstr: e.Inst,
		})
		curr = e.Callee
	}
	return expand(composite)
}

// FromSlice builds the block traces for a slice's call chain, doubling
// maxTracesNum since a slice's chain typically needs more candidate
// routes than a single function hop.
func FromSlice(s slicer.Slice, maxTracesNum int, notRandom bool) []BlockTrace {
	if len(s.CallChain.Edges) == 0 {
		return nil
	}
	return FromCallGraphPath(s.CallChain, maxTracesNum*2, notRandom)
}

// blockTracesToInstr finds every candidate block path, inside f, from f's
// entry block to the block containing instr. When instr already lives in
// the entry block the only path is the entry block itself.
func blockTracesToInstr(f *ir.Func, instr *ir.InstCall, maxTracesNum int, notRandom bool) [][]*ir.Block {
	entry, ok := irmodel.EntryBlock(f)
	if !ok {
		return [][]*ir.Block{nil}
	}
	target := blockOf(f, instr)
	if target == nil {
		return [][]*ir.Block{nil}
	}
	if entry == target {
		return [][]*ir.Block{{entry}}
	}
	bg := buildBlockGraph(f, maxTracesNum, notRandom)
	return bg.reverseSearchBlkTraces(entry, target)
}

// blockOf finds the block that directly contains instr.
func blockOf(f *ir.Func, instr *ir.InstCall) *ir.Block {
	for _, b := range f.Blocks {
		for _, i := range b.Insts {
			if i == ir.Instruction(instr) {
				return b
			}
		}
	}
	return nil
}
