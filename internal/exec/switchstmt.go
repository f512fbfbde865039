// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package exec

import (
	"github.com/llir/llvm/ir"

	"github.com/aleutian-oss/bcminer/internal/irmodel"
	"github.com/aleutian-oss/bcminer/internal/semantics"
)

// stepSwitch resolves a switch terminator: the guiding block trace's
// selected successor is preferred when it names one of the switch's cases
// or its default target; otherwise the default arm is taken, and every
// other case is queued as its own speculative Work (subject to the work
// budget), mirroring a conditional branch's
// speculative-exploration treatment generalised to N-way arms.
func stepSwitch(env *Environment, w *Work, s *State, term *ir.TermSwitch) FinishState {
	frame := s.top()
	cond := s.Eval(term.X)
	s.recordTerm(irmodel.TermDebugLoc(term), semantics.NewSwitch(cond))

	targets := make([]*ir.Block, 0, len(term.Cases)+1)
	for _, c := range term.Cases {
		targets = append(targets, c.Target)
	}
	targets = append(targets, term.TargetDefault)

	var guided *ir.Block
	for _, t := range targets {
		if s.BlockIter.VisitBlock(frame.Block, t, false) {
			guided = t
			break
		}
	}

	chosen := term.TargetDefault
	if guided != nil {
		chosen = guided
	}

	for _, t := range targets {
		if t == chosen {
			continue
		}
		if len(env.WorkList) <= env.Opts.MaxExploredTracePerSlice/2 {
			env.WorkList = append(env.WorkList, speculativeSwitchArm(s, frame.Block, t))
		}
	}

	s.BlockIter.VisitBlock(frame.Block, chosen, true)
	s.PrevBlock = frame.Block
	if irmodel.LoopEntryBlocks(frame.Func)[chosen] {
		s.LoopDepth++
	}
	frame.Block = chosen
	frame.InstIndex = 0
	s.BlockPath = append(s.BlockPath, chosen)
	return Running
}

// speculativeSwitchArm clones s onto one not-taken case of a switch as its
// own queued Work.
func speculativeSwitchArm(s *State, from, target *ir.Block) *Work {
	alt := s.Clone()
	frame := alt.top()
	alt.PrevBlock = from
	if irmodel.LoopEntryBlocks(frame.Func)[target] {
		alt.LoopDepth++
	}
	frame.Block = target
	frame.InstIndex = 0
	alt.BlockPath = append(alt.BlockPath, target)
	return &Work{State: alt}
}
