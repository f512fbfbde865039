// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package exec

import (
	"math/rand"
	"time"

	"github.com/llir/llvm/ir"

	"github.com/aleutian-oss/bcminer/internal/blocktrace"
	"github.com/aleutian-oss/bcminer/internal/semantics"
	"github.com/aleutian-oss/bcminer/internal/slicer"
)

// Work is one pending (or running) execution path.
type Work struct {
	EntryBlock *ir.Block
	State      *State
}

// Options bounds one slice's executor run.
type Options struct {
	SliceDepth               int
	MaxNodePerTrace          int
	MaxExploredTracePerSlice int
	MaxTracePerSlice         int
	MaxTimeoutSeconds        int
	MaxTracesNum             int
	StepInAnytime            bool
	NotRandom                bool
}

// Environment is the per-slice driver state an executor run shares across
// every Work it processes: the slice itself, the pending work list, the
// set of block-trace fingerprints already emitted (to suppress exact
// duplicates), the call-id counter handed out to opaque call results, and
// the rough-mode flag the no-proper-trace fallback flips on.
type Environment struct {
	Slice           slicer.Slice
	WorkList        []*Work
	Seen            map[string]bool
	CallIDNext      int
	RoughMode       bool
	Rng             *rand.Rand
	Opts            Options
	Metadata        MetaData
	FirstBlockTrace blocktrace.BlockTrace

	persist func(semantics.Trace)
}

// NewEnvironment seeds an Environment with one Work per candidate block
// trace for slice, each positioned at the entry block of the slice's
// outermost caller.
func NewEnvironment(s slicer.Slice, blockTraces []blocktrace.BlockTrace, opts Options, persist func(semantics.Trace)) *Environment {
	env := &Environment{
		Slice:      s,
		Seen:       make(map[string]bool),
		Rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		Opts:       opts,
		persist:    persist,
		CallIDNext: 0,
	}
	entryFunc := s.Caller
	if len(s.CallChain.Edges) > 0 {
		entryFunc = s.CallChain.Edges[0].Caller
	}
	entryBlock, ok := func() (*ir.Block, bool) {
		if len(entryFunc.Blocks) == 0 {
			return nil, false
		}
		return entryFunc.Blocks[0], true
	}()
	if !ok {
		return env
	}
	if len(blockTraces) > 0 {
		env.FirstBlockTrace = blockTraces[0]
	}
	for _, bt := range blockTraces {
		iter := blocktrace.NewIterator(bt, opts.MaxTracesNum, opts.NotRandom)
		st := NewState(entryFunc, entryBlock, iter)
		env.WorkList = append(env.WorkList, &Work{EntryBlock: entryBlock, State: st})
	}
	return env
}

func (env *Environment) nextCallID() int {
	id := env.CallIDNext
	env.CallIDNext++
	return id
}

// stopped reports whether the slice run has hit its stopping condition.
func (env *Environment) stopped(explored int) bool {
	if explored >= env.Opts.MaxExploredTracePerSlice {
		return true
	}
	if env.Metadata.Proper >= env.Opts.MaxTracePerSlice {
		return true
	}
	if env.Metadata.Timeout >= 3 {
		return true
	}
	return false
}

// Run drains the work list, executing one Work at a time, until the
// per-slice stop condition triggers or the list empties, then retries
// once in rough mode if nothing proper was found.
func Run(env *Environment) MetaData {
	explored := 0
	for len(env.WorkList) > 0 && !env.stopped(explored) {
		w := env.WorkList[0]
		env.WorkList = env.WorkList[1:]
		runOne(env, w)
		explored++
	}
	if env.Metadata.Proper == 0 && !env.RoughMode && env.FirstBlockTrace != nil {
		env.RoughMode = true
		iter := blocktrace.NewIterator(env.FirstBlockTrace, env.Opts.MaxTracesNum, env.Opts.NotRandom)
		entryFunc := env.Slice.Caller
		if len(env.Slice.CallChain.Edges) > 0 {
			entryFunc = env.Slice.CallChain.Edges[0].Caller
		}
		if len(entryFunc.Blocks) > 0 {
			st := NewState(entryFunc, entryFunc.Blocks[0], iter)
			runOne(env, &Work{EntryBlock: entryFunc.Blocks[0], State: st})
		}
	}
	return env.Metadata
}
