// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package slicer

import (
	"encoding/json"

	"github.com/aleutian-oss/bcminer/internal/irmodel"
)

// sliceJSON is the on-disk shape of a Slice: slices/<target>/<n>.json.
type sliceJSON struct {
	Entry     string     `json:"entry"`
	Caller    string     `json:"caller"`
	Callee    string     `json:"callee"`
	Instr     string     `json:"instr"`
	Functions []funcJSON `json:"functions"`
	CallChain []string   `json:"call_chain"`
}

type funcJSON struct {
	Name string `json:"name"`
	Loc  string `json:"loc"`
}

// MarshalJSON renders a Slice on disk: simplified names for
// entry/caller/callee, the related-function set as (name, debug-loc)
// pairs, and the call chain as a flat list of simplified names from the
// entry function down to the target callee.
func (s Slice) MarshalJSON() ([]byte, error) {
	funcs := make([]funcJSON, 0, len(s.Functions))
	for fc := range s.Functions {
		funcs = append(funcs, funcJSON{
			Name: irmodel.SimplifiedName(fc.Func.Name()),
			Loc:  irmodel.DebugLoc(fc.Call),
		})
	}
	chain := make([]string, 0, len(s.CallChain.Edges)+1)
	if len(s.CallChain.Edges) > 0 {
		chain = append(chain, irmodel.SimplifiedName(s.CallChain.Edges[0].Caller.Name()))
	} else {
		chain = append(chain, irmodel.SimplifiedName(s.Entry.Name()))
	}
	for _, e := range s.CallChain.Edges {
		chain = append(chain, irmodel.SimplifiedName(e.Callee.Name()))
	}
	return json.Marshal(sliceJSON{
		Entry:     irmodel.SimplifiedName(s.Entry.Name()),
		Caller:    irmodel.SimplifiedName(s.Caller.Name()),
		Callee:    irmodel.SimplifiedName(s.Callee.Name()),
		Instr:     irmodel.DebugLoc(s.Instr),
		Functions: funcs,
		CallChain: chain,
	})
}
