// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package value

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON renders a Value as a single-key tagged object, e.g.
// `{"Int": 5}`, `{"Arg": 0}`, `{"GEP": {"loc": ..., "indices": [...]}}`.
// This is "Value serialise as tagged objects (tag name is the
// variant; payload is the fields)".
func (v *Value) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	var tag string
	var payload any
	switch v.Kind {
	case KindArg:
		tag, payload = "Arg", v.ID
	case KindConstSym:
		tag, payload = "ConstSym", v.ID
	case KindSym:
		tag, payload = "Sym", v.ID
	case KindGlobSym:
		tag, payload = "GlobSym", v.ID
	case KindGlob:
		tag, payload = "Glob", v.Name
	case KindFunc:
		tag, payload = "Func", v.Name
	case KindAlloc:
		tag, payload = "Alloc", v.ID
	case KindFuncPtr:
		tag, payload = "FuncPtr", struct{}{}
	case KindAsm:
		tag, payload = "Asm", struct{}{}
	case KindInt:
		tag, payload = "Int", v.Int
	case KindNull:
		tag, payload = "Null", struct{}{}
	case KindGEP:
		tag, payload = "GEP", struct {
			Loc     *Value   `json:"loc"`
			Indices []*Value `json:"indices"`
		}{v.Loc, v.Indices}
	case KindBin:
		tag, payload = "Bin", struct {
			Op  string `json:"op"`
			Op0 *Value `json:"op0"`
			Op1 *Value `json:"op1"`
		}{v.Op.String(), v.Op0, v.Op1}
	case KindICmp:
		tag, payload = "ICmp", struct {
			Pred string `json:"pred"`
			Op0  *Value `json:"op0"`
			Op1  *Value `json:"op1"`
		}{v.Pred.String(), v.Op0, v.Op1}
	case KindCall:
		tag, payload = "Call", struct {
			ID   int      `json:"id"`
			Func *Value   `json:"func"`
			Args []*Value `json:"args"`
		}{v.ID, v.CallFunc, v.Args}
	default:
		tag, payload = "Unknown", struct{}{}
	}
	return json.Marshal(map[string]any{tag: payload})
}

// UnmarshalJSON rebuilds a Value from its tagged-object form. Round-tripping
// through this pair is one of quantified properties.
func (v *Value) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if len(m) != 1 {
		return fmt.Errorf("value: expected single-key tagged object, got %d keys", len(m))
	}
	for tag, raw := range m {
		switch tag {
		case "Arg":
			var id int
			if err := json.Unmarshal(raw, &id); err != nil {
				return err
			}
			*v = *NewArg(id)
		case "ConstSym":
			var id int
			if err := json.Unmarshal(raw, &id); err != nil {
				return err
			}
			*v = *NewConstSym(id)
		case "Sym":
			var id int
			if err := json.Unmarshal(raw, &id); err != nil {
				return err
			}
			*v = *NewSym(id)
		case "GlobSym":
			var id int
			if err := json.Unmarshal(raw, &id); err != nil {
				return err
			}
			*v = *NewGlobSym(id)
		case "Glob":
			var name string
			if err := json.Unmarshal(raw, &name); err != nil {
				return err
			}
			*v = *NewGlob(name)
		case "Func":
			var name string
			if err := json.Unmarshal(raw, &name); err != nil {
				return err
			}
			*v = *NewFunc(name)
		case "Alloc":
			var id int
			if err := json.Unmarshal(raw, &id); err != nil {
				return err
			}
			*v = *NewAlloc(id)
		case "FuncPtr":
			*v = *NewFuncPtr()
		case "Asm":
			*v = *NewAsm()
		case "Int":
			var i int64
			if err := json.Unmarshal(raw, &i); err != nil {
				return err
			}
			*v = *NewInt(i)
		case "Null":
			*v = *NewNull()
		case "GEP":
			var p struct {
				Loc     *Value   `json:"loc"`
				Indices []*Value `json:"indices"`
			}
			if err := json.Unmarshal(raw, &p); err != nil {
				return err
			}
			*v = *NewGEP(p.Loc, p.Indices)
		case "Bin":
			var p struct {
				Op  string `json:"op"`
				Op0 *Value `json:"op0"`
				Op1 *Value `json:"op1"`
			}
			if err := json.Unmarshal(raw, &p); err != nil {
				return err
			}
			*v = *NewBin(parseBinOp(p.Op), p.Op0, p.Op1)
		case "ICmp":
			var p struct {
				Pred string `json:"pred"`
				Op0  *Value `json:"op0"`
				Op1  *Value `json:"op1"`
			}
			if err := json.Unmarshal(raw, &p); err != nil {
				return err
			}
			*v = *NewICmp(parseICmpPred(p.Pred), p.Op0, p.Op1)
		case "Call":
			var p struct {
				ID   int      `json:"id"`
				Func *Value   `json:"func"`
				Args []*Value `json:"args"`
			}
			if err := json.Unmarshal(raw, &p); err != nil {
				return err
			}
			*v = *NewCall(p.ID, p.Func, p.Args)
		default:
			*v = *NewUnknown()
		}
	}
	return nil
}

func parseBinOp(s string) BinOp {
	names := [...]string{"add", "sub", "mul", "udiv", "sdiv", "urem", "srem",
		"fadd", "fsub", "fmul", "fdiv", "frem", "shl", "lshr", "ashr", "and", "or", "xor"}
	for i, n := range names {
		if n == s {
			return BinOp(i)
		}
	}
	return BinAdd
}

func parseICmpPred(s string) ICmpPred {
	names := [...]string{"eq", "ne", "sge", "uge", "sgt", "ugt", "sle", "ule", "slt", "ult"}
	for i, n := range names {
		if n == s {
			return ICmpPred(i)
		}
	}
	return PredEQ
}
