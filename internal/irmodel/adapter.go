// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package irmodel

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/metadata"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

var voidType = types.Void

// CalleeFunction resolves a call instruction's callee to a directly-called
// function. Indirect calls (through a function pointer, inline asm, or any
// callee that is not itself a *ir.Func) return ok=false and are dropped
// from the call graph.
func CalleeFunction(call *ir.InstCall) (*ir.Func, bool) {
	if call == nil {
		return nil, false
	}
	fn, ok := call.Callee.(*ir.Func)
	return fn, ok
}

// IsIntrinsicCall reports whether a call instruction invokes an LLVM
// intrinsic, independent of whether the callee resolves at all.
func IsIntrinsicCall(call *ir.InstCall) bool {
	if fn, ok := CalleeFunction(call); ok {
		return IsIntrinsicName(fn.Name())
	}
	return false
}

// DebugLoc renders an instruction's debug location as "file:line", or "" if
// the instruction carries no "dbg" metadata attachment. Instructions
// without a location are deliberately skipped by the slicer // step 1), so an empty string here is load-bearing, not merely cosmetic.
func DebugLoc(inst ir.Instruction) string {
	return debugLocFromAttachments(instructionMetadata(inst))
}

// TermDebugLoc is DebugLoc's counterpart for block terminators, which
// llir/llvm models as a separate interface from ir.Instruction.
func TermDebugLoc(term ir.Terminator) string {
	return debugLocFromAttachments(terminatorMetadata(term))
}

func debugLocFromAttachments(attachments []*metadata.Attachment) string {
	for _, m := range attachments {
		if m.Name != "dbg" {
			continue
		}
		loc, ok := m.Node.(*metadata.DILocation)
		if !ok {
			continue
		}
		return fmt.Sprintf("%s:%d", loc.File, loc.Line)
	}
	return ""
}

type hasMetadata interface {
	Metadata() []*metadata.Attachment
}

// instructionMetadata extracts the metadata attachments carried by an
// instruction. Only a subset of llir/llvm instruction kinds carry
// attachments; instructions that don't implement the accessor yield none.
func instructionMetadata(inst ir.Instruction) []*metadata.Attachment {
	if m, ok := inst.(hasMetadata); ok {
		return m.Metadata()
	}
	return nil
}

// terminatorMetadata is instructionMetadata's counterpart for terminators.
func terminatorMetadata(term ir.Terminator) []*metadata.Attachment {
	if m, ok := term.(hasMetadata); ok {
		return m.Metadata()
	}
	return nil
}

// ConstantKind classifies a constant.Constant into the coarse kind tag
// Non-goals call for ("recovering true types beyond a coarse
// kind tag").
type ConstantKind int

const (
	ConstUnknown ConstantKind = iota
	ConstInt
	ConstNull
	ConstFunc
	ConstGlobal
)

// ClassifyConstant maps a constant.Constant to its coarse kind plus, for
// integers, its value.
func ClassifyConstant(c constant.Constant) (ConstantKind, int64) {
	switch v := c.(type) {
	case *constant.Int:
		return ConstInt, v.X.Int64()
	case *constant.Null, *constant.ZeroInitializer:
		return ConstNull, 0
	case *ir.Func:
		return ConstFunc, 0
	case *ir.Global:
		return ConstGlobal, 0
	default:
		return ConstUnknown, 0
	}
}

// IsGlobalValue reports whether an operand is a module-level global
// (variable or function), as opposed to a local SSA value.
func IsGlobalValue(v value.Value) bool {
	switch v.(type) {
	case *ir.Global, *ir.Func:
		return true
	default:
		return false
	}
}
