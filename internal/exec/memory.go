// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package exec

import "github.com/aleutian-oss/bcminer/internal/value"

// ultimateBase follows a GEP's Loc chain down to its non-GEP base, the
// same walk value.Contains performs.
func ultimateBase(v *value.Value) *value.Value {
	for v != nil && v.Kind == value.KindGEP {
		v = v.Loc
	}
	return v
}

// kindAppropriateFresh picks GlobSym when loc's ultimate base is a global
// or an argument (memory reachable from outside the current call), and
// Sym otherwise.
func (s *State) kindAppropriateFresh(loc *value.Value) *value.Value {
	base := ultimateBase(loc)
	if base != nil && (base.Kind == value.KindGlob || base.Kind == value.KindArg) {
		return s.freshGlobSym()
	}
	return s.freshSym()
}

// Load reads the abstract memory cell at loc: an Unknown location reads
// as Unknown; anything else that has never been written materialises
// (and memoizes) a fresh symbol of the kind its base implies.
func (s *State) Load(loc *value.Value) *value.Value {
	if loc == nil || loc.Kind == value.KindUnknown {
		return value.NewUnknown()
	}
	key := value.Key(loc)
	if v, ok := s.Memory[key]; ok {
		return v
	}
	fresh := s.kindAppropriateFresh(loc)
	s.Memory[key] = fresh
	return fresh
}

// Store writes val into the cell at loc. If the cell currently holds a
// GlobSym and val is a freshly-minted Sym, the store is upgraded to a
// fresh GlobSym instead so a not-local cell never regresses to looking
// purely local after being overwritten by an unconstrained value.
func (s *State) Store(loc, val *value.Value) {
	key := value.Key(loc)
	if existing, ok := s.Memory[key]; ok && existing.Kind == value.KindGlobSym && val.Kind == value.KindSym {
		val = s.freshGlobSym()
	}
	s.Memory[key] = val
}
