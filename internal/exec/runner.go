// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package exec

import (
	"fmt"
	"strings"
	"time"

	"github.com/llir/llvm/ir"

	"github.com/aleutian-oss/bcminer/internal/constraint"
	"github.com/aleutian-oss/bcminer/internal/irmodel"
	"github.com/aleutian-oss/bcminer/internal/semantics"
	"github.com/aleutian-oss/bcminer/internal/value"
)

// runOne interprets w one instruction at a time, driven by the top stack
// frame's Block/InstIndex cursor, until it reaches a FinishState, then
// records the outcome into env.Metadata and, if the path properly returned
// with a target hit, hands the resulting trace to env.persist. A stepped-in
// call pushes a new frame onto s.Stack and the loop simply keeps picking up
// whatever frame is now on top; a return pops it and resumes the caller's
// frame exactly where its own cursor was parked.
func runOne(env *Environment, w *Work) {
	s := w.State
	if len(s.BlockPath) == 0 {
		s.BlockPath = append(s.BlockPath, s.top().Block)
	}
	for s.Finish == Running {
		if len(s.Trace) > env.Opts.MaxNodePerTrace {
			s.Finish = ExceedingMaxTraceLength
			break
		}
		if time.Since(s.StartTime) >= time.Duration(env.Opts.MaxTimeoutSeconds)*time.Second {
			s.Finish = Timeout
			break
		}
		frame := s.top()
		if frame.InstIndex < len(frame.Block.Insts) {
			inst := frame.Block.Insts[frame.InstIndex]
			frame.InstIndex++
			stepInstruction(env, s, inst)
			continue
		}
		finish := stepTerminator(env, w, s)
		if finish != Running {
			s.Finish = finish
			break
		}
	}
	finishWork(env, s)
}

// stepInstruction dispatches one non-terminator instruction.
func stepInstruction(env *Environment, s *State, inst ir.Instruction) {
	switch ii := inst.(type) {
	case *ir.InstCall:
		stepCall(env, s, ii)
	case *ir.InstStore:
		loc := s.Eval(ii.Dst)
		val := s.Eval(ii.Src)
		s.Store(loc, val)
		s.record(inst, semantics.NewStore(loc, val), nil)
	case *ir.InstLoad:
		loc := s.Eval(ii.Src)
		result := s.Load(loc)
		s.record(inst, semantics.NewLoad(loc), result)
	case *ir.InstICmp:
		op0 := s.Eval(ii.X)
		op1 := s.Eval(ii.Y)
		pred := predOf(ii.Pred)
		result := value.NewICmp(pred, op0, op1)
		s.record(inst, semantics.NewICmp(pred, op0, op1), result)
	case *ir.InstPhi:
		var result *value.Value
		for _, inc := range ii.Incs {
			if inc.Pred == s.PrevBlock {
				result = s.Eval(inc.X)
				break
			}
		}
		if result == nil {
			result = value.NewUnknown()
		}
		s.top().Locals[inst] = result
	case *ir.InstGetElementPtr:
		loc := s.Eval(ii.Src)
		indices := make([]*value.Value, len(ii.Indices))
		for i, idx := range ii.Indices {
			indices[i] = s.Eval(idx)
		}
		result := value.NewGEP(loc, indices)
		s.record(inst, semantics.NewGEP(loc, indices), result)
	case *ir.InstAlloca:
		result := s.freshAlloc()
		s.top().Locals[inst] = result
	default:
		if op, x, y, ok := binOpOf(inst); ok {
			op0, op1 := s.Eval(x), s.Eval(y)
			built := value.NewBin(op, op0, op1)
			var bound *value.Value
			if s.LoopDepth > 0 {
				bound = s.freshSym()
			} else {
				bound = built
			}
			s.record(inst, semantics.NewBin(op, op0, op1), bound)
			return
		}
		if op, x, ok := unaOpOf(inst); ok {
			operand := s.Eval(x)
			s.record(inst, semantics.NewUna(op, operand), operand)
			return
		}
		// Unrecognised instruction kinds (vector ops, atomics, ...) are
		// outside scope; they neither emit an event nor bind
		// a value.
	}
}

func predOf(p ir.IPred) value.ICmpPred {
	switch p {
	case ir.IPredEQ:
		return value.PredEQ
	case ir.IPredNE:
		return value.PredNE
	case ir.IPredSGE:
		return value.PredSGE
	case ir.IPredUGE:
		return value.PredUGE
	case ir.IPredSGT:
		return value.PredSGT
	case ir.IPredUGT:
		return value.PredUGT
	case ir.IPredSLE:
		return value.PredSLE
	case ir.IPredULE:
		return value.PredULE
	case ir.IPredSLT:
		return value.PredSLT
	default:
		return value.PredULT
	}
}

// stepTerminator dispatches the current top frame's block terminator. A
// Ret either finishes the whole Work (base frame) or pops back to the
// caller's already-parked cursor; Br/CondBr/Switch advance the top frame's
// own cursor to its chosen successor block.
func stepTerminator(env *Environment, w *Work, s *State) FinishState {
	frame := s.top()
	switch term := frame.Block.Term.(type) {
	case *ir.TermRet:
		return stepReturn(s, term)
	case *ir.TermBr:
		s.PrevBlock = frame.Block
		if irmodel.LoopEntryBlocks(frame.Func)[term.Target] {
			if s.LoopDepth > 0 {
				s.LoopDepth--
			}
		}
		s.BlockIter.VisitBlock(frame.Block, term.Target, true)
		frame.Block = term.Target
		frame.InstIndex = 0
		s.BlockPath = append(s.BlockPath, term.Target)
		return Running
	case *ir.TermCondBr:
		return stepCondBr(env, w, s, term)
	case *ir.TermSwitch:
		return stepSwitch(env, w, s, term)
	case *ir.TermUnreachable:
		return Unreachable
	default:
		return Unreachable
	}
}

// stepReturn pops the current frame. If it was the path's last frame the
// whole Work finishes; otherwise the parent frame's cursor — already
// parked at the instruction after its call site when it stepped in — is
// exactly where execution resumes, so there is nothing left to search for.
func stepReturn(s *State, term *ir.TermRet) FinishState {
	var retVal *value.Value
	if term.X != nil {
		retVal = s.Eval(term.X)
	}
	s.recordTerm(irmodel.TermDebugLoc(term), semantics.NewRet(retVal))

	callee := s.top().Func
	callSite := s.top().CallSite
	s.Stack = s.Stack[:len(s.Stack)-1]
	s.InRelevantMethod = len(s.Stack) > 1

	if len(s.Stack) == 0 {
		return ProperlyReturned
	}
	if callSite != nil && retVal != nil && irmodel.HasReturnType(callee) {
		s.top().Locals[ir.Instruction(callSite)] = retVal
	}
	return Running
}

// finishWork tallies a completed Work's outcome and, for a properly
// returned target hit, applies the fingerprint-dedup and satisfiability
// gates before persisting.
func finishWork(env *Environment, s *State) {
	if s.Finish != ProperlyReturned || s.TargetNode < 0 {
		if s.Finish != ProperlyReturned {
			env.Metadata.recordFinish(s.Finish)
		} else {
			env.Metadata.NoTarget++
		}
		return
	}

	fingerprint := blockFingerprint(s)
	if !env.RoughMode && env.Seen[fingerprint] {
		env.Metadata.Duplicate++
		return
	}

	verdict := constraint.Sat
	if !env.RoughMode {
		verdict = constraint.Solve(s.Constraints)
	}
	if env.RoughMode || verdict == constraint.Sat || verdict == constraint.Unknown {
		env.Seen[fingerprint] = true
		env.Metadata.Proper++
		if env.persist != nil {
			env.persist(s.ToTrace())
		}
		return
	}
	env.Metadata.PathUnsat++
}

// blockFingerprint renders the ordered sequence of blocks a path visited as
// a stable string dedup key. Block pointer identity is stable for the
// lifetime of the parsed module (every block is parsed exactly once and
// never copied), so the pointer value itself, without any name lookup, is
// sufficient to tell two paths apart.
func blockFingerprint(s *State) string {
	var b strings.Builder
	for _, blk := range s.BlockPath {
		fmt.Fprintf(&b, "%p;", blk)
	}
	return b.String()
}
