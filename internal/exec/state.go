// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package exec implements the bounded, guided symbolic executor: it walks
// one slice's call chain along a guiding block trace, interpreting every
// instruction into a Semantics event and an abstract Value, and emits one
// Trace per feasible, properly-returned path.
package exec

import (
	"time"

	"github.com/llir/llvm/ir"

	"github.com/aleutian-oss/bcminer/internal/blocktrace"
	"github.com/aleutian-oss/bcminer/internal/constraint"
	"github.com/aleutian-oss/bcminer/internal/irmodel"
	"github.com/aleutian-oss/bcminer/internal/semantics"
	"github.com/aleutian-oss/bcminer/internal/value"
)

// FinishState classifies why a Work stopped executing.
type FinishState int

const (
	Running FinishState = iota
	ProperlyReturned
	NoTarget
	BranchExplored
	ExceedingMaxTraceLength
	Unreachable
	Timeout
)

// StackFrame is one call's activation record: its function, the call site
// that invoked it (nil for the slice's entry frame), the instructions it
// has bound a value to so far, and the evaluated argument values it was
// invoked with.
type StackFrame struct {
	Func     *ir.Func
	CallSite *ir.InstCall
	Locals   map[ir.Instruction]*value.Value
	Args     []*value.Value

	// Block/InstIndex is this frame's execution cursor: the block it is
	// currently in and the index of the next not-yet-executed
	// instruction in that block. Recursive step-in calls push a new
	// frame and leave the caller's cursor parked at the instruction
	// after the call, so returning resumes exactly there.
	Block     *ir.Block
	InstIndex int
}

func newStackFrame(fn *ir.Func, callSite *ir.InstCall, args []*value.Value, entry *ir.Block) *StackFrame {
	return &StackFrame{Func: fn, CallSite: callSite, Locals: make(map[ir.Instruction]*value.Value), Args: args, Block: entry}
}

func (f *StackFrame) clone() *StackFrame {
	locals := make(map[ir.Instruction]*value.Value, len(f.Locals))
	for k, v := range f.Locals {
		locals[k] = v
	}
	args := make([]*value.Value, len(f.Args))
	copy(args, f.Args)
	return &StackFrame{Func: f.Func, CallSite: f.CallSite, Locals: locals, Args: args, Block: f.Block, InstIndex: f.InstIndex}
}

// branchKey identifies one conditional-branch instruction for
// State.VisitedBranches.
type branchKey struct {
	inst   *ir.InstCondBr
	branch semantics.Branch
}

// State is the complete mutable interpreter state for one symbolic
// execution path . A State is created fresh for every Work and
// deep-cloned whenever the executor pushes a speculative alternate-branch
// Work, so the two paths never alias each other's memory or stack.
type State struct {
	Stack            []*StackFrame
	Memory           map[string]*value.Value
	BlockIter        *blocktrace.Iterator
	VisitedBranches  map[branchKey]bool
	Trace            []semantics.TraceNode
	BlockPath        []*ir.Block
	TargetNode       int // -1 until set
	PrevBlock        *ir.Block
	Finish           FinishState
	Constraints      constraint.Constraints
	StartTime        time.Time
	AllocaID         int
	SymbolID         int
	LoopDepth        int
	InRelevantMethod bool
}

// NewState builds the initial State for a fresh Work: one stack frame for
// entryFunc, arguments bound to a fresh Arg value per parameter, and an
// empty trace/memory/path condition.
func NewState(entryFunc *ir.Func, entryBlock *ir.Block, iter *blocktrace.Iterator) *State {
	args := make([]*value.Value, len(entryFunc.Params))
	for i := range args {
		args[i] = value.NewArg(i)
	}
	return &State{
		Stack:           []*StackFrame{newStackFrame(entryFunc, nil, args, entryBlock)},
		Memory:          make(map[string]*value.Value),
		BlockIter:       iter,
		VisitedBranches: make(map[branchKey]bool),
		TargetNode:      -1,
		Finish:          Running,
		StartTime:       time.Now(),
	}
}

// Clone deep-copies a State for a speculative alternate-branch Work. The
// block iterator and start time are shared references: wall-clock timeout
// is a property of the Work's originating slice run, not of each
// speculative offshoot, and the guiding block-trace iterator is one object
// both branches share, so its position and any CorrectBlkPaths repair made
// by either path are seen by the other.
func (s *State) Clone() *State {
	stack := make([]*StackFrame, len(s.Stack))
	for i, f := range s.Stack {
		stack[i] = f.clone()
	}
	mem := make(map[string]*value.Value, len(s.Memory))
	for k, v := range s.Memory {
		mem[k] = v
	}
	visited := make(map[branchKey]bool, len(s.VisitedBranches))
	for k, v := range s.VisitedBranches {
		visited[k] = v
	}
	trace := make([]semantics.TraceNode, len(s.Trace))
	copy(trace, s.Trace)
	cs := make(constraint.Constraints, len(s.Constraints))
	copy(cs, s.Constraints)
	blockPath := make([]*ir.Block, len(s.BlockPath))
	copy(blockPath, s.BlockPath)
	return &State{
		Stack:            stack,
		Memory:           mem,
		BlockIter:        s.BlockIter,
		VisitedBranches:  visited,
		Trace:            trace,
		BlockPath:        blockPath,
		TargetNode:       s.TargetNode,
		PrevBlock:        s.PrevBlock,
		Finish:           s.Finish,
		Constraints:      cs,
		StartTime:        s.StartTime,
		AllocaID:         s.AllocaID,
		SymbolID:         s.SymbolID,
		LoopDepth:        s.LoopDepth,
		InRelevantMethod: s.InRelevantMethod,
	}
}

func (s *State) top() *StackFrame { return s.Stack[len(s.Stack)-1] }

func (s *State) freshSym() *value.Value {
	id := s.SymbolID
	s.SymbolID++
	return value.NewSym(id)
}

func (s *State) freshGlobSym() *value.Value {
	id := s.SymbolID
	s.SymbolID++
	return value.NewGlobSym(id)
}

func (s *State) freshAlloc() *value.Value {
	id := s.AllocaID
	s.AllocaID++
	return value.NewAlloc(id)
}

// record appends a TraceNode and, if v is non-nil, binds inst to it in the
// current frame's local memory.
func (s *State) record(inst ir.Instruction, sem semantics.Semantics, v *value.Value) {
	loc := irmodel.DebugLoc(inst)
	s.Trace = append(s.Trace, semantics.TraceNode{Loc: loc, Sem: sem, Result: v})
	if v != nil {
		s.top().Locals[inst] = v
	}
}

// recordTerm appends a TraceNode for a terminator instruction (Ret, CondBr,
// Switch), which never binds a result value to any frame's locals.
func (s *State) recordTerm(loc string, sem semantics.Semantics) {
	s.Trace = append(s.Trace, semantics.TraceNode{Loc: loc, Sem: sem})
}

// ToTrace converts the accumulated node list plus target index into the
// public semantics.Trace the feature extractors consume.
func (s *State) ToTrace() semantics.Trace {
	return semantics.Trace{Instrs: s.Trace, Target: s.TargetNode}
}

// MetaData is the per-slice outcome tally, combinable by element-wise
// addition across every Work an Environment ran.
type MetaData struct {
	Proper          int
	Duplicate       int
	PathUnsat       int
	NoTarget        int
	BranchExplored  int
	ExceedingLength int
	Unreachable     int
	Timeout         int
}

// Add combines two tallies element-wise.
func (m MetaData) Add(o MetaData) MetaData {
	return MetaData{
		Proper:          m.Proper + o.Proper,
		Duplicate:       m.Duplicate + o.Duplicate,
		PathUnsat:       m.PathUnsat + o.PathUnsat,
		NoTarget:        m.NoTarget + o.NoTarget,
		BranchExplored:  m.BranchExplored + o.BranchExplored,
		ExceedingLength: m.ExceedingLength + o.ExceedingLength,
		Unreachable:     m.Unreachable + o.Unreachable,
		Timeout:         m.Timeout + o.Timeout,
	}
}

// recordFinish increments the tally field matching a FinishState.
func (m *MetaData) recordFinish(fs FinishState) {
	switch fs {
	case NoTarget:
		m.NoTarget++
	case BranchExplored:
		m.BranchExplored++
	case ExceedingMaxTraceLength:
		m.ExceedingLength++
	case Unreachable:
		m.Unreachable++
	case Timeout:
		m.Timeout++
	}
}
