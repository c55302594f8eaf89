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

package analysis

import (
	"testing"

	"github.com/pn2/ruleengine/ast"
)

func rule(headPred string, headArity int, body ...ast.Atom) ast.Rule {
	args := make([]ast.Term, headArity)
	for i := range args {
		args[i] = ast.Variable{Symbol: "?V"}
	}
	return ast.Rule{Head: ast.Atom{Predicate: headPred, Args: args}, Body: body}
}

func bodyAtom(pred string, negated bool, arity int) ast.Atom {
	args := make([]ast.Term, arity)
	for i := range args {
		args[i] = ast.Variable{Symbol: "?V"}
	}
	return ast.Atom{Predicate: pred, Args: args, Negated: negated}
}

func TestStratifyPositiveRecursionIsOneStratum(t *testing.T) {
	// ancestor(?X,?Y) :- parent(?X,?Y).
	// ancestor(?X,?Y) :- parent(?X,?Z), ancestor(?Z,?Y).
	rules := []ast.Rule{
		rule("ancestor", 2, bodyAtom("parent", false, 2)),
		rule("ancestor", 2, bodyAtom("parent", false, 2), bodyAtom("ancestor", false, 2)),
	}
	strata, err := Stratify(rules)
	if err != nil {
		t.Fatalf("Stratify() error: %v", err)
	}
	ancestorSym := ast.PredicateSym{Name: "ancestor", Arity: 2}
	parentSym := ast.PredicateSym{Name: "parent", Arity: 2}
	if strata[ancestorSym] < strata[parentSym] {
		t.Errorf("stratum(ancestor)=%d should be >= stratum(parent)=%d", strata[ancestorSym], strata[parentSym])
	}
}

func TestStratifyNegationAcrossStrata(t *testing.T) {
	// eligible(?X) :- applicant(?X), not disqualified(?X).
	rules := []ast.Rule{
		rule("eligible", 1, bodyAtom("applicant", false, 1), bodyAtom("disqualified", true, 1)),
		rule("disqualified", 1, bodyAtom("has_conviction", false, 1)),
	}
	strata, err := Stratify(rules)
	if err != nil {
		t.Fatalf("Stratify() error: %v", err)
	}
	eligible := ast.PredicateSym{Name: "eligible", Arity: 1}
	disqualified := ast.PredicateSym{Name: "disqualified", Arity: 1}
	if strata[eligible] <= strata[disqualified] {
		t.Errorf("stratum(eligible)=%d must be strictly greater than stratum(disqualified)=%d",
			strata[eligible], strata[disqualified])
	}
}

func TestStratifyRejectsNegativeCycle(t *testing.T) {
	// even(?X) :- not odd(?X).
	// odd(?X)  :- not even(?X).
	rules := []ast.Rule{
		rule("even", 1, bodyAtom("odd", true, 1)),
		rule("odd", 1, bodyAtom("even", true, 1)),
	}
	_, err := Stratify(rules)
	if err == nil {
		t.Fatalf("Stratify() should reject a negative cycle")
	}
	stratErr, ok := err.(*StratificationError)
	if !ok {
		t.Fatalf("error type = %T, want *StratificationError", err)
	}
	foundEven, foundOdd := false, false
	for _, sym := range stratErr.Cycle {
		if sym.Name == "even" {
			foundEven = true
		}
		if sym.Name == "odd" {
			foundOdd = true
		}
	}
	if !foundEven || !foundOdd {
		t.Errorf("StratificationError.Cycle = %v, want both even and odd named", stratErr.Cycle)
	}
}

func TestStratifyIgnoresBuiltins(t *testing.T) {
	// adult(?X) :- age(?X, ?A), ge(?A, "18").
	rules := []ast.Rule{
		{
			Head: ast.Atom{Predicate: "adult", Args: []ast.Term{ast.Variable{Symbol: "?X"}}},
			Body: []ast.Atom{
				{Predicate: "age", Args: []ast.Term{ast.Variable{Symbol: "?X"}, ast.Variable{Symbol: "?A"}}},
				{Predicate: "ge", Args: []ast.Term{ast.Variable{Symbol: "?A"}, ast.Constant{Symbol: "18"}}},
			},
		},
	}
	strata, err := Stratify(rules)
	if err != nil {
		t.Fatalf("Stratify() error: %v", err)
	}
	if _, ok := strata[ast.PredicateSym{Name: "ge", Arity: 2}]; ok {
		t.Errorf("strata should not contain an entry for the builtin ge/2")
	}
}
