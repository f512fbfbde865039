// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package exec

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	llvmvalue "github.com/llir/llvm/ir/value"

	"github.com/aleutian-oss/bcminer/internal/value"
)

// Eval lowers one llir/llvm operand to its abstract Value : a
// formal parameter resolves against the current frame's bound argument
// values, a previously-executed instruction resolves against the frame's
// local bindings, constants resolve structurally, and anything else
// (inline asm operands, unrecognised constant kinds) becomes Unknown.
func (s *State) Eval(op llvmvalue.Value) *value.Value {
	frame := s.top()
	if p, ok := op.(*ir.Param); ok {
		for i, param := range frame.Func.Params {
			if param == p {
				if i < len(frame.Args) {
					return frame.Args[i]
				}
				return value.NewUnknown()
			}
		}
		return value.NewUnknown()
	}
	if inst, ok := op.(ir.Instruction); ok {
		if v, ok := frame.Locals[inst]; ok {
			return v
		}
	}
	switch c := op.(type) {
	case *constant.Int:
		return value.NewInt(c.X.Int64())
	case *constant.Null, *constant.ZeroInitializer:
		return value.NewNull()
	case *ir.Global:
		return value.NewGlob(c.Name())
	case *ir.Func:
		return value.NewFunc(c.Name())
	}
	return value.NewUnknown()
}

// EvalArgs lowers a call's argument list in order.
func (s *State) EvalArgs(args []llvmvalue.Value) []*value.Value {
	out := make([]*value.Value, len(args))
	for i, a := range args {
		out[i] = s.Eval(a)
	}
	return out
}

func binOpOf(inst ir.Instruction) (value.BinOp, llvmvalue.Value, llvmvalue.Value, bool) {
	switch ii := inst.(type) {
	case *ir.InstAdd:
		return value.BinAdd, ii.X, ii.Y, true
	case *ir.InstSub:
		return value.BinSub, ii.X, ii.Y, true
	case *ir.InstMul:
		return value.BinMul, ii.X, ii.Y, true
	case *ir.InstUDiv:
		return value.BinUDiv, ii.X, ii.Y, true
	case *ir.InstSDiv:
		return value.BinSDiv, ii.X, ii.Y, true
	case *ir.InstURem:
		return value.BinURem, ii.X, ii.Y, true
	case *ir.InstSRem:
		return value.BinSRem, ii.X, ii.Y, true
	case *ir.InstFAdd:
		return value.BinFAdd, ii.X, ii.Y, true
	case *ir.InstFSub:
		return value.BinFSub, ii.X, ii.Y, true
	case *ir.InstFMul:
		return value.BinFMul, ii.X, ii.Y, true
	case *ir.InstFDiv:
		return value.BinFDiv, ii.X, ii.Y, true
	case *ir.InstFRem:
		return value.BinFRem, ii.X, ii.Y, true
	case *ir.InstShl:
		return value.BinShl, ii.X, ii.Y, true
	case *ir.InstLShr:
		return value.BinLShr, ii.X, ii.Y, true
	case *ir.InstAShr:
		return value.BinAShr, ii.X, ii.Y, true
	case *ir.InstAnd:
		return value.BinAnd, ii.X, ii.Y, true
	case *ir.InstOr:
		return value.BinOr, ii.X, ii.Y, true
	case *ir.InstXor:
		return value.BinXor, ii.X, ii.Y, true
	default:
		return 0, nil, nil, false
	}
}

func unaOpOf(inst ir.Instruction) (value.UnaOp, llvmvalue.Value, bool) {
	switch ii := inst.(type) {
	case *ir.InstFNeg:
		return value.UnaFNeg, ii.X, true
	case *ir.InstTrunc:
		return value.UnaTrunc, ii.From, true
	case *ir.InstZExt:
		return value.UnaZExt, ii.From, true
	case *ir.InstSExt:
		return value.UnaSExt, ii.From, true
	case *ir.InstFPToUI:
		return value.UnaFPToUI, ii.From, true
	case *ir.InstFPToSI:
		return value.UnaFPToSI, ii.From, true
	case *ir.InstUIToFP:
		return value.UnaUIToFP, ii.From, true
	case *ir.InstSIToFP:
		return value.UnaSIToFP, ii.From, true
	case *ir.InstFPTrunc:
		return value.UnaFPTrunc, ii.From, true
	case *ir.InstFPExt:
		return value.UnaFPExt, ii.From, true
	case *ir.InstPtrToInt:
		return value.UnaPtrToInt, ii.From, true
	case *ir.InstIntToPtr:
		return value.UnaIntToPtr, ii.From, true
	case *ir.InstBitCast:
		return value.UnaBitCast, ii.From, true
	default:
		return 0, nil, false
	}
}
