// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package value implements the abstract Value model: a small tagged union
// of symbolic/concrete operands that the executor materialises while it
// interprets a trace. Values are immutable once built — every constructor
// in this file returns a brand-new *Value and nothing here ever mutates
// one in place — so a pointer handed to the trace, the memory map and the
// evaluation stack is exactly the shared node callers need; Go's garbage
// collector plays the role a reference-counted Rc<Value> would elsewhere.
package value

import "fmt"

// Kind tags the Value variant.
type Kind int

const (
	KindArg Kind = iota
	KindConstSym
	KindSym
	KindGlobSym
	KindGlob
	KindFunc
	KindAlloc
	KindFuncPtr
	KindAsm
	KindInt
	KindNull
	KindGEP
	KindBin
	KindICmp
	KindCall
	KindUnknown
)

// BinOp mirrors llir/llvm's binary instruction kinds.
type BinOp int

const (
	BinAdd BinOp = iota
	BinSub
	BinMul
	BinUDiv
	BinSDiv
	BinURem
	BinSRem
	BinFAdd
	BinFSub
	BinFMul
	BinFDiv
	BinFRem
	BinShl
	BinLShr
	BinAShr
	BinAnd
	BinOr
	BinXor
)

func (op BinOp) String() string {
	names := [...]string{"add", "sub", "mul", "udiv", "sdiv", "urem", "srem",
		"fadd", "fsub", "fmul", "fdiv", "frem", "shl", "lshr", "ashr", "and", "or", "xor"}
	if int(op) < len(names) {
		return names[op]
	}
	return "unknown"
}

// UnaOp mirrors llir/llvm's unary/cast instruction kinds.
type UnaOp int

const (
	UnaFNeg UnaOp = iota
	UnaTrunc
	UnaZExt
	UnaSExt
	UnaFPToUI
	UnaFPToSI
	UnaUIToFP
	UnaSIToFP
	UnaFPTrunc
	UnaFPExt
	UnaPtrToInt
	UnaIntToPtr
	UnaBitCast
)

// ICmpPred mirrors llir/llvm's integer comparison predicates.
type ICmpPred int

const (
	PredEQ ICmpPred = iota
	PredNE
	PredSGE
	PredUGE
	PredSGT
	PredUGT
	PredSLE
	PredULE
	PredSLT
	PredULT
)

func (p ICmpPred) String() string {
	names := [...]string{"eq", "ne", "sge", "uge", "sgt", "ugt", "sle", "ule", "slt", "ult"}
	if int(p) < len(names) {
		return names[p]
	}
	return "unknown"
}

// Value is the abstract operand/result model. Exactly the fields relevant
// to Kind are populated; the rest are zero. A Value is only ever built via
// the New* constructors below and is treated as immutable thereafter.
type Value struct {
	Kind Kind

	// Arg, ConstSym, Sym, GlobSym, Alloc, Call: a small integer id.
	ID int

	// Glob, Func: a name.
	Name string

	// Int: a 64-bit integer.
	Int int64

	// GEP
	Loc     *Value
	Indices []*Value

	// Bin
	Op  BinOp
	Op0 *Value
	Op1 *Value

	// ICmp
	Pred ICmpPred

	// Call
	CallFunc *Value
	Args     []*Value
}

func NewArg(i int) *Value        { return &Value{Kind: KindArg, ID: i} }
func NewConstSym(i int) *Value   { return &Value{Kind: KindConstSym, ID: i} }
func NewSym(i int) *Value        { return &Value{Kind: KindSym, ID: i} }
func NewGlobSym(i int) *Value    { return &Value{Kind: KindGlobSym, ID: i} }
func NewGlob(name string) *Value { return &Value{Kind: KindGlob, Name: name} }
func NewFunc(name string) *Value { return &Value{Kind: KindFunc, Name: name} }
func NewAlloc(i int) *Value      { return &Value{Kind: KindAlloc, ID: i} }
func NewFuncPtr() *Value         { return &Value{Kind: KindFuncPtr} }
func NewAsm() *Value             { return &Value{Kind: KindAsm} }
func NewInt(i int64) *Value      { return &Value{Kind: KindInt, Int: i} }
func NewNull() *Value            { return &Value{Kind: KindNull} }
func NewUnknown() *Value         { return &Value{Kind: KindUnknown} }

func NewGEP(loc *Value, indices []*Value) *Value {
	return &Value{Kind: KindGEP, Loc: loc, Indices: indices}
}

func NewBin(op BinOp, op0, op1 *Value) *Value {
	return &Value{Kind: KindBin, Op: op, Op0: op0, Op1: op1}
}

func NewICmp(pred ICmpPred, op0, op1 *Value) *Value {
	return &Value{Kind: KindICmp, Pred: pred, Op0: op0, Op1: op1}
}

func NewCall(id int, fn *Value, args []*Value) *Value {
	return &Value{Kind: KindCall, ID: id, CallFunc: fn, Args: args}
}

// Equal is structural equality ("compared by structural equality").
func Equal(a, b *Value) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindArg, KindConstSym, KindSym, KindGlobSym, KindAlloc:
		return a.ID == b.ID
	case KindGlob, KindFunc:
		return a.Name == b.Name
	case KindInt:
		return a.Int == b.Int
	case KindNull, KindFuncPtr, KindAsm, KindUnknown:
		return true
	case KindGEP:
		if !Equal(a.Loc, b.Loc) || len(a.Indices) != len(b.Indices) {
			return false
		}
		for i := range a.Indices {
			if !Equal(a.Indices[i], b.Indices[i]) {
				return false
			}
		}
		return true
	case KindBin:
		return a.Op == b.Op && Equal(a.Op0, b.Op0) && Equal(a.Op1, b.Op1)
	case KindICmp:
		return a.Pred == b.Pred && Equal(a.Op0, b.Op0) && Equal(a.Op1, b.Op1)
	case KindCall:
		if a.ID != b.ID || !Equal(a.CallFunc, b.CallFunc) || len(a.Args) != len(b.Args) {
			return false
		}
		for i := range a.Args {
			if !Equal(a.Args[i], b.Args[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Key renders a canonical string for use as a hash-map key, matching the
// structural-equality semantics of Equal. It is used wherever callers need
// a `map Value -> Value` (the global memory) or a `HashSet<Value>`
// (alias sets, tracked-value sets).
func Key(v *Value) string {
	if v == nil {
		return "<nil>"
	}
	switch v.Kind {
	case KindArg:
		return fmt.Sprintf("Arg(%d)", v.ID)
	case KindConstSym:
		return fmt.Sprintf("ConstSym(%d)", v.ID)
	case KindSym:
		return fmt.Sprintf("Sym(%d)", v.ID)
	case KindGlobSym:
		return fmt.Sprintf("GlobSym(%d)", v.ID)
	case KindGlob:
		return fmt.Sprintf("Glob(%s)", v.Name)
	case KindFunc:
		return fmt.Sprintf("Func(%s)", v.Name)
	case KindAlloc:
		return fmt.Sprintf("Alloc(%d)", v.ID)
	case KindFuncPtr:
		return "FuncPtr"
	case KindAsm:
		return "Asm"
	case KindInt:
		return fmt.Sprintf("Int(%d)", v.Int)
	case KindNull:
		return "Null"
	case KindGEP:
		s := fmt.Sprintf("GEP(%s", Key(v.Loc))
		for _, idx := range v.Indices {
			s += "," + Key(idx)
		}
		return s + ")"
	case KindBin:
		return fmt.Sprintf("Bin(%s,%s,%s)", v.Op, Key(v.Op0), Key(v.Op1))
	case KindICmp:
		return fmt.Sprintf("ICmp(%s,%s,%s)", v.Pred, Key(v.Op0), Key(v.Op1))
	case KindCall:
		s := fmt.Sprintf("Call(%d,%s", v.ID, Key(v.CallFunc))
		for _, a := range v.Args {
			s += "," + Key(a)
		}
		return s + ")"
	default:
		return "Unknown"
	}
}

// Contains reports whether value contains self as a GEP base, following
// Value::contains used by the arg-post extractor.
func Contains(haystack, needle *Value) bool {
	for cur := haystack; cur != nil; {
		if Equal(cur, needle) {
			return true
		}
		if cur.Kind != KindGEP {
			return false
		}
		cur = cur.Loc
	}
	return false
}

// EvalConstantValue recursively folds Int/Null/Bin trees to a concrete
// int64. Anything else (Sym, GlobSym, Unknown, ...) is not foldable and
// returns ok=false.
func EvalConstantValue(v *Value) (int64, bool) {
	if v == nil {
		return 0, false
	}
	switch v.Kind {
	case KindInt:
		return v.Int, true
	case KindNull:
		return 0, true
	case KindBin:
		op0, ok0 := EvalConstantValue(v.Op0)
		op1, ok1 := EvalConstantValue(v.Op1)
		if !ok0 || !ok1 {
			return 0, false
		}
		switch v.Op {
		case BinAdd:
			return op0 + op1, true
		case BinSub:
			return op0 - op1, true
		case BinMul:
			return op0 * op1, true
		case BinUDiv, BinSDiv:
			if op1 == 0 {
				return 0, false
			}
			return op0 / op1, true
		case BinURem, BinSRem:
			if op1 == 0 {
				return 0, false
			}
			return op0 % op1, true
		default:
			return 0, false
		}
	default:
		return 0, false
	}
}

// NumOfValue extracts the integer payload of a constant-like Value, used by
// the retval/arg-pre extractors' "compared_with_const" detection.
func NumOfValue(v *Value) (int64, bool) {
	if v == nil {
		return 0, false
	}
	switch v.Kind {
	case KindInt:
		return v.Int, true
	case KindNull:
		return 0, true
	default:
		return 0, false
	}
}
