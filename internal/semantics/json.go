// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package semantics

import (
	"encoding/json"
	"fmt"

	"github.com/aleutian-oss/bcminer/internal/value"
)

// MarshalJSON renders a Semantics event as a single-key tagged object whose
// tag is the event kind, matching the same external-tagging convention as
// value.Value.
func (s Semantics) MarshalJSON() ([]byte, error) {
	var tag string
	var payload any
	switch s.Kind {
	case EventCall:
		tag, payload = "Call", struct {
			Func *value.Value   `json:"func"`
			Args []*value.Value `json:"args"`
		}{s.Func, s.Args}
	case EventICmp:
		tag, payload = "ICmp", struct {
			Pred string       `json:"pred"`
			Op0  *value.Value `json:"op0"`
			Op1  *value.Value `json:"op1"`
		}{s.Pred.String(), s.Op0, s.Op1}
	case EventCondBr:
		tag, payload = "CondBr", struct {
			Cond *value.Value `json:"cond"`
			Br   string       `json:"br"`
		}{s.Cond, s.Branch.String()}
	case EventSwitch:
		tag, payload = "Switch", struct {
			Cond *value.Value `json:"cond"`
		}{s.Cond}
	case EventRet:
		tag, payload = "Ret", struct {
			Op *value.Value `json:"op"`
		}{s.RetOp}
	case EventStore:
		tag, payload = "Store", struct {
			Loc *value.Value `json:"loc"`
			Val *value.Value `json:"val"`
		}{s.Loc, s.Val}
	case EventLoad:
		tag, payload = "Load", struct {
			Loc *value.Value `json:"loc"`
		}{s.Loc}
	case EventGEP:
		tag, payload = "GEP", struct {
			Loc     *value.Value   `json:"loc"`
			Indices []*value.Value `json:"indices"`
		}{s.Loc, s.Indices}
	case EventUna:
		tag, payload = "Una", struct {
			Op  string       `json:"op"`
			Op0 *value.Value `json:"op0"`
		}{unaOpName(s.UnaOp), s.Op0}
	case EventBin:
		tag, payload = "Bin", struct {
			Op  string       `json:"op"`
			Op0 *value.Value `json:"op0"`
			Op1 *value.Value `json:"op1"`
		}{s.BinOp.String(), s.Op0, s.Op1}
	default:
		return nil, fmt.Errorf("semantics: unknown event kind %d", s.Kind)
	}
	return json.Marshal(map[string]any{tag: payload})
}

var unaOpNames = [...]string{"fneg", "trunc", "zext", "sext", "fptoui", "fptosi",
	"uitofp", "sitofp", "fptrunc", "fpext", "ptrtoint", "inttoptr", "bitcast"}

func unaOpName(op value.UnaOp) string {
	if int(op) < len(unaOpNames) {
		return unaOpNames[op]
	}
	return "unknown"
}

// UnmarshalJSON rebuilds a Semantics event from its tagged-object form.
func (s *Semantics) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if len(m) != 1 {
		return fmt.Errorf("semantics: expected single-key tagged object, got %d keys", len(m))
	}
	for tag, raw := range m {
		switch tag {
		case "Call":
			var p struct {
				Func *value.Value   `json:"func"`
				Args []*value.Value `json:"args"`
			}
			if err := json.Unmarshal(raw, &p); err != nil {
				return err
			}
			*s = NewCall(p.Func, p.Args)
		case "ICmp":
			var p struct {
				Pred string       `json:"pred"`
				Op0  *value.Value `json:"op0"`
				Op1  *value.Value `json:"op1"`
			}
			if err := json.Unmarshal(raw, &p); err != nil {
				return err
			}
			*s = NewICmp(parsePred(p.Pred), p.Op0, p.Op1)
		case "CondBr":
			var p struct {
				Cond *value.Value `json:"cond"`
				Br   string       `json:"br"`
			}
			if err := json.Unmarshal(raw, &p); err != nil {
				return err
			}
			br := BranchThen
			if p.Br == "else" {
				br = BranchElse
			}
			*s = NewCondBr(p.Cond, br)
		case "Switch":
			var p struct {
				Cond *value.Value `json:"cond"`
			}
			if err := json.Unmarshal(raw, &p); err != nil {
				return err
			}
			*s = NewSwitch(p.Cond)
		case "Ret":
			var p struct {
				Op *value.Value `json:"op"`
			}
			if err := json.Unmarshal(raw, &p); err != nil {
				return err
			}
			*s = NewRet(p.Op)
		case "Store":
			var p struct {
				Loc *value.Value `json:"loc"`
				Val *value.Value `json:"val"`
			}
			if err := json.Unmarshal(raw, &p); err != nil {
				return err
			}
			*s = NewStore(p.Loc, p.Val)
		case "Load":
			var p struct {
				Loc *value.Value `json:"loc"`
			}
			if err := json.Unmarshal(raw, &p); err != nil {
				return err
			}
			*s = NewLoad(p.Loc)
		case "GEP":
			var p struct {
				Loc     *value.Value   `json:"loc"`
				Indices []*value.Value `json:"indices"`
			}
			if err := json.Unmarshal(raw, &p); err != nil {
				return err
			}
			*s = NewGEP(p.Loc, p.Indices)
		case "Una":
			var p struct {
				Op  string       `json:"op"`
				Op0 *value.Value `json:"op0"`
			}
			if err := json.Unmarshal(raw, &p); err != nil {
				return err
			}
			*s = NewUna(parseUnaOp(p.Op), p.Op0)
		case "Bin":
			var p struct {
				Op  string       `json:"op"`
				Op0 *value.Value `json:"op0"`
				Op1 *value.Value `json:"op1"`
			}
			if err := json.Unmarshal(raw, &p); err != nil {
				return err
			}
			*s = NewBin(parseBinOpName(p.Op), p.Op0, p.Op1)
		default:
			return fmt.Errorf("semantics: unknown tag %q", tag)
		}
	}
	return nil
}

func parsePred(s string) value.ICmpPred {
	names := [...]string{"eq", "ne", "sge", "uge", "sgt", "ugt", "sle", "ule", "slt", "ult"}
	for i, n := range names {
		if n == s {
			return value.ICmpPred(i)
		}
	}
	return value.PredEQ
}

func parseUnaOp(s string) value.UnaOp {
	for i, n := range unaOpNames {
		if n == s {
			return value.UnaOp(i)
		}
	}
	return value.UnaBitCast
}

func parseBinOpName(s string) value.BinOp {
	names := [...]string{"add", "sub", "mul", "udiv", "sdiv", "urem", "srem",
		"fadd", "fsub", "fmul", "fdiv", "frem", "shl", "lshr", "ashr", "and", "or", "xor"}
	for i, n := range names {
		if n == s {
			return value.BinOp(i)
		}
	}
	return value.BinAdd
}

// traceJSON is the wire shape for Trace.
type traceJSON struct {
	Target int        `json:"target"`
	Instrs []nodeJSON `json:"instrs"`
}

type nodeJSON struct {
	Loc string       `json:"loc"`
	Sem Semantics    `json:"sem"`
	Res *value.Value `json:"res"`
}

func (t Trace) MarshalJSON() ([]byte, error) {
	nodes := make([]nodeJSON, len(t.Instrs))
	for i, n := range t.Instrs {
		nodes[i] = nodeJSON{Loc: n.Loc, Sem: n.Sem, Res: n.Result}
	}
	return json.Marshal(traceJSON{Target: t.Target, Instrs: nodes})
}

func (t *Trace) UnmarshalJSON(data []byte) error {
	var w traceJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	t.Target = w.Target
	t.Instrs = make([]TraceNode, len(w.Instrs))
	for i, n := range w.Instrs {
		t.Instrs[i] = TraceNode{Loc: n.Loc, Sem: n.Sem, Result: n.Res}
	}
	return nil
}
