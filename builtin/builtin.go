// Copyright 2022 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package builtin implements the comparison predicates evaluable without
// consulting a fact store: ge, gt, le, lt, eq, ne.
package builtin

import (
	"fmt"
	"strconv"

	"github.com/pn2/ruleengine/ast"
)

// Predicates is the set of built-in predicate symbols. They may appear in
// rule bodies, negated or not, but never as a rule head; the evaluator
// special-cases them
// instead of looking them up in a fact store, and the stratifier excludes
// them from the predicate dependency graph.
var Predicates = map[ast.PredicateSym]struct{}{
	{Name: "ge", Arity: 2}: {},
	{Name: "gt", Arity: 2}: {},
	{Name: "le", Arity: 2}: {},
	{Name: "lt", Arity: 2}: {},
	{Name: "eq", Arity: 2}: {},
	{Name: "ne", Arity: 2}: {},
}

// IsBuiltin reports whether sym names a built-in predicate.
func IsBuiltin(sym ast.PredicateSym) bool {
	_, ok := Predicates[sym]
	return ok
}

// Decide evaluates a fully-grounded built-in atom and reports whether it
// holds. It returns an error if atom's predicate isn't a built-in, or if
// any argument is not a constant — callers are expected to have grounded
// the atom via the body's positive atoms first.
func Decide(atom ast.Atom) (bool, error) {
	if !IsBuiltin(atom.Sym()) {
		return false, fmt.Errorf("builtin: %s is not a built-in predicate", atom.Predicate)
	}
	if len(atom.Args) != 2 {
		return false, fmt.Errorf("builtin: %s expects 2 args, got %d", atom.Predicate, len(atom.Args))
	}
	left, ok := atom.Args[0].(ast.Constant)
	if !ok {
		return false, fmt.Errorf("builtin: %s first argument %v is not grounded", atom.Predicate, atom.Args[0])
	}
	right, ok := atom.Args[1].(ast.Constant)
	if !ok {
		return false, fmt.Errorf("builtin: %s second argument %v is not grounded", atom.Predicate, atom.Args[1])
	}

	result, err := compare(atom.Predicate, left.Symbol, right.Symbol)
	if err != nil {
		return false, err
	}
	return result != atom.Negated, nil
}

// compare evaluates pred(a, b). It parses both arguments as decimal numbers
// and compares numerically; when either side fails to parse, eq and ne fall
// back to string equality, and the ordering predicates report false.
func compare(pred, a, b string) (bool, error) {
	af, aErr := strconv.ParseFloat(a, 64)
	bf, bErr := strconv.ParseFloat(b, 64)
	if aErr == nil && bErr == nil {
		switch pred {
		case "ge":
			return af >= bf, nil
		case "gt":
			return af > bf, nil
		case "le":
			return af <= bf, nil
		case "lt":
			return af < bf, nil
		case "eq":
			return af == bf, nil
		case "ne":
			return af != bf, nil
		}
	}
	switch pred {
	case "eq":
		return a == b, nil
	case "ne":
		return a != b, nil
	case "ge", "gt", "le", "lt":
		return false, nil
	}
	return false, fmt.Errorf("builtin: unknown predicate %q", pred)
}
