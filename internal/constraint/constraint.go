// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package constraint lowers the path conditions a symbolic-execution Work
// accumulates and checks a completed trace's path for satisfiability.
//
// Solve is a small pure-Go checker rather than a wrapper around an
// external SMT solver. It is deliberately under-approximate: anything it
// cannot decide is reported Unknown (which the executor admits like Sat),
// and a path with no ICmp condition to check is Sat.
package constraint

import "github.com/aleutian-oss/bcminer/internal/value"

// Constraint is one accumulated branch decision: cond must be an
// *value.Value of KindICmp, and taken records which arm was followed.
type Constraint struct {
	Cond  *value.Value
	Taken bool
}

// Constraints is the ordered path condition of one trace.
type Constraints []Constraint

// Verdict is the outcome of Solve.
type Verdict int

const (
	Sat Verdict = iota
	Unsat
	Unknown
)

// term is a lowered operand: either a concrete integer or a symbolic slot
// identified by its canonical value.Key. Opaque values (GEP, Call, and
// anything else that does not fold to a constant) get a slot the same
// way, so two structurally equal operands share one slot.
type term struct {
	isConst bool
	c       int64
	slot    string
}

func lowerTerm(v *value.Value) term {
	if i, ok := value.EvalConstantValue(v); ok {
		return term{isConst: true, c: i}
	}
	return term{slot: value.Key(v)}
}

// Solve checks whether the conjunction of constraints is satisfiable.
// Equality/inequality facts between symbolic slots and constants are
// tracked with a union-find plus a disequality list; anything involving an
// ordering predicate (signed/unsigned greater/less) that does not reduce
// to two constants is left undecided (Unknown), matching // instruction to drop FAdd/bitwise/shift constraints as vacuously true and
// to treat anything else it cannot lower as inconclusive rather than
// fabricating a wrong answer.
func Solve(cs Constraints) Verdict {
	uf := newUnionFind()
	var diseq [][2]string
	decided := false
	seen := false

	for _, c := range cs {
		if c.Cond == nil || c.Cond.Kind != value.KindICmp {
			continue
		}
		seen = true
		lhs := lowerTerm(c.Cond.Op0)
		rhs := lowerTerm(c.Cond.Op1)

		isEq := c.Cond.Pred == value.PredEQ
		isNe := c.Cond.Pred == value.PredNE
		if !isEq && !isNe {
			// Ordering predicate: only decidable when both sides are
			// constant; otherwise left unresolved.
			if lhs.isConst && rhs.isConst {
				decided = true
				if orderHolds(c.Cond.Pred, lhs.c, rhs.c) != c.Taken {
					return Unsat
				}
			}
			continue
		}

		// Constraint asserts lhs==rhs when (isEq && taken) || (isNe && !taken),
		// and lhs!=rhs otherwise.
		wantEqual := (isEq && c.Taken) || (isNe && !c.Taken)

		if lhs.isConst && rhs.isConst {
			decided = true
			if (lhs.c == rhs.c) != wantEqual {
				return Unsat
			}
			continue
		}
		if lhs.isConst || rhs.isConst {
			var slot string
			var k int64
			if lhs.isConst {
				slot, k = rhs.slot, lhs.c
			} else {
				slot, k = lhs.slot, rhs.c
			}
			decided = true
			if wantEqual {
				if !uf.bindConst(slot, k) {
					return Unsat
				}
			} else {
				uf.forbidConst(slot, k)
			}
			continue
		}
		decided = true
		if wantEqual {
			uf.union(lhs.slot, rhs.slot)
		} else {
			diseq = append(diseq, [2]string{lhs.slot, rhs.slot})
		}
	}

	for _, d := range diseq {
		if uf.connected(d[0], d[1]) {
			return Unsat
		}
	}
	if uf.conflict() {
		return Unsat
	}
	if !seen {
		return Sat
	}
	if !decided {
		return Unknown
	}
	return Sat
}

// EvalPred evaluates any of the ten integer predicates over two concrete
// operands. It is shared with the executor's constant-condition folding
// so the two places that need "does this predicate hold
// over these constants" logic do not drift apart.
func EvalPred(pred value.ICmpPred, a, b int64) bool {
	switch pred {
	case value.PredEQ:
		return a == b
	case value.PredNE:
		return a != b
	default:
		return orderHolds(pred, a, b)
	}
}

func orderHolds(pred value.ICmpPred, a, b int64) bool {
	switch pred {
	case value.PredSGE, value.PredUGE:
		return a >= b
	case value.PredSGT, value.PredUGT:
		return a > b
	case value.PredSLE, value.PredULE:
		return a <= b
	case value.PredSLT, value.PredULT:
		return a < b
	default:
		return false
	}
}
