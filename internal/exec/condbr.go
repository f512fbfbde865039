// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package exec

import (
	"github.com/llir/llvm/ir"

	"github.com/aleutian-oss/bcminer/internal/constraint"
	"github.com/aleutian-oss/bcminer/internal/irmodel"
	"github.com/aleutian-oss/bcminer/internal/semantics"
	"github.com/aleutian-oss/bcminer/internal/value"
)

// foldConstCond evaluates cond to a concrete boolean when it is an ICmp
// over two constant-foldable operands, enabling provably-unreachable
// branch pruning.
func foldConstCond(cond *value.Value) (result bool, ok bool) {
	if cond == nil || cond.Kind != value.KindICmp {
		return false, false
	}
	a, ok0 := value.EvalConstantValue(cond.Op0)
	b, ok1 := value.EvalConstantValue(cond.Op1)
	if !ok0 || !ok1 {
		return false, false
	}
	return constraint.EvalPred(cond.Pred, a, b), true
}

// stepCondBr resolves a conditional branch A provably
// constant condition prunes the infeasible arm outright. Otherwise the
// guiding block trace's own preference decides which feasible arm goes
// first; failing that, an attempt is made to repair an obviously
// infeasible guide via CorrectBlkPaths; failing that, whichever feasible
// arm hasn't been visited yet on this path is taken. A speculative Work
// for the other feasible, unvisited arm is queued when the work budget
// allows. A conditional branch with no feasible, unvisited arm left
// finishes the path as BranchExplored.
func stepCondBr(env *Environment, w *Work, s *State, term *ir.TermCondBr) FinishState {
	frame := s.top()
	cond := s.Eval(term.Cond)
	constVal, isConst := foldConstCond(cond)

	canThen, canElse := true, true
	if isConst {
		canThen, canElse = constVal, !constVal
	}

	visitedThen := s.VisitedBranches[branchKey{term, semantics.BranchThen}]
	visitedElse := s.VisitedBranches[branchKey{term, semantics.BranchElse}]

	needThen := canThen && s.BlockIter.VisitBlock(frame.Block, term.TargetTrue, false)
	needElse := canElse && s.BlockIter.VisitBlock(frame.Block, term.TargetFalse, false)

	var branch semantics.Branch
	var target *ir.Block
	switch {
	case needThen:
		branch, target = semantics.BranchThen, term.TargetTrue
	case needElse:
		branch, target = semantics.BranchElse, term.TargetFalse
	case canThen && !visitedThen && s.BlockIter.CorrectBlkPaths(term.TargetTrue, frame.Func):
		branch, target = semantics.BranchThen, term.TargetTrue
	case canElse && !visitedElse && s.BlockIter.CorrectBlkPaths(term.TargetFalse, frame.Func):
		branch, target = semantics.BranchElse, term.TargetFalse
	case canThen && !visitedThen:
		branch, target = semantics.BranchThen, term.TargetTrue
	case canElse && !visitedElse:
		branch, target = semantics.BranchElse, term.TargetFalse
	default:
		return BranchExplored
	}

	otherBranch, otherTarget, otherCan, otherVisited := semantics.BranchElse, term.TargetFalse, canElse, visitedElse
	if branch == semantics.BranchElse {
		otherBranch, otherTarget, otherCan, otherVisited = semantics.BranchThen, term.TargetTrue, canThen, visitedThen
	}
	if otherCan && !otherVisited && len(env.WorkList) <= env.Opts.MaxExploredTracePerSlice/2 {
		env.WorkList = append(env.WorkList, speculativeBranch(s, term, otherBranch, otherTarget, cond))
	}

	s.VisitedBranches[branchKey{term, branch}] = true
	s.Constraints = append(s.Constraints, constraint.Constraint{Cond: cond, Taken: branch == semantics.BranchThen})
	s.recordTerm(irmodel.TermDebugLoc(term), semantics.NewCondBr(cond, branch))

	if irmodel.LoopEntryBlocks(frame.Func)[target] {
		s.LoopDepth++
	}
	s.PrevBlock = frame.Block
	s.BlockIter.VisitBlock(frame.Block, target, true)
	frame.Block = target
	frame.InstIndex = 0
	s.BlockPath = append(s.BlockPath, target)
	return Running
}

// speculativeBranch clones s onto the unexplored arm of a conditional
// branch as its own queued Work bounded speculative
// exploration. The clone's block iterator is shared with the original
// path (State.Clone's doc comment) and is therefore left untouched here;
// only the clone's own frame cursor moves.
func speculativeBranch(s *State, term *ir.TermCondBr, branch semantics.Branch, target *ir.Block, cond *value.Value) *Work {
	alt := s.Clone()
	frame := alt.top()
	alt.VisitedBranches[branchKey{term, branch}] = true
	alt.Constraints = append(alt.Constraints, constraint.Constraint{Cond: cond, Taken: branch == semantics.BranchThen})
	alt.recordTerm(irmodel.TermDebugLoc(term), semantics.NewCondBr(cond, branch))
	if irmodel.LoopEntryBlocks(frame.Func)[target] {
		alt.LoopDepth++
	}
	alt.PrevBlock = frame.Block
	frame.Block = target
	frame.InstIndex = 0
	alt.BlockPath = append(alt.BlockPath, target)
	return &Work{State: alt}
}
